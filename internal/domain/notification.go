/**
 * @description
 * This file defines the domain model for the notification ledger: durable,
 * per-user notification records with read tracking. Both the verification
 * workflow and the broadcast fan-out write into this ledger; the end-user
 * read path only ever transitions a notification's status, never deletes it.
 *
 * @dependencies
 * - time: Standard Go library.
 * - github.com/google/uuid: For UUID handling.
 */

package domain

import (
	"time"

	"github.com/google/uuid"
)

// NotificationStatus enumerates the read-state lifecycle of a notification.
// Archived implies read and is terminal for UI purposes; rows are never removed.
type NotificationStatus string

const (
	NotificationStatusUnread   NotificationStatus = "unread"
	NotificationStatusRead     NotificationStatus = "read"
	NotificationStatusArchived NotificationStatus = "archived"
)

// IsValid reports whether the status is a known notification state.
func (s NotificationStatus) IsValid() bool {
	switch s {
	case NotificationStatusUnread, NotificationStatusRead, NotificationStatusArchived:
		return true
	}
	return false
}

// Notification type tags written by the two producing subsystems.
const (
	NotificationTypeVerification = "verification"
	NotificationTypeAdminMessage = "admin-message"
)

// Notification is one user-visible event record. The Read flag is derived from
// Status (true for read and archived) and is maintained in the same write.
type Notification struct {
	ID        uuid.UUID              `json:"id"`
	UserID    uuid.UUID              `json:"user_id"`
	Type      string                 `json:"type"`
	Title     string                 `json:"title"`
	Message   string                 `json:"message"`
	Status    NotificationStatus     `json:"status"`
	Read      bool                   `json:"read"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	DedupeKey *string                `json:"-"`
	CreatedAt time.Time              `json:"created_at"`
	UpdatedAt time.Time              `json:"updated_at"`
}

// NotificationListOptions carries pagination and status filtering for the
// per-user notification listing.
type NotificationListOptions struct {
	Page   int
	Limit  int
	Status *NotificationStatus
}

// NotificationPage is one page of a user's notifications plus the total and
// unread counters the notification panel renders.
type NotificationPage struct {
	Notifications []Notification `json:"notifications"`
	Page          int            `json:"page"`
	Limit         int            `json:"limit"`
	Total         int64          `json:"total"`
	UnreadCount   int64          `json:"unread_count"`
}
