/**
 * @description
 * This file defines the domain models for admin broadcast messages and their
 * per-recipient delivery records. A single authored message fans out into one
 * MessageRecipient row per resolved user; the recipient rows carry the read
 * state while the message itself stays immutable after send.
 *
 * The recipient filter is a tagged union: the RecipientType discriminator fixes
 * which payload field is meaningful, and the shape is validated when the filter
 * is parsed, not when it is resolved.
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

// RecipientType discriminates the addressing strategies of an admin message.
type RecipientType string

const (
	// RecipientTypeIndividual addresses an explicit list of user IDs.
	RecipientTypeIndividual RecipientType = "individual"
	// RecipientTypeRole addresses every user holding a directory role.
	RecipientTypeRole RecipientType = "role"
	// RecipientTypeStatus addresses every user whose verification record has a status.
	RecipientTypeStatus RecipientType = "status"
	// RecipientTypeBulk addresses every user in the directory.
	RecipientTypeBulk RecipientType = "bulk"
)

// IsValid reports whether the recipient type is a known addressing strategy.
func (t RecipientType) IsValid() bool {
	switch t {
	case RecipientTypeIndividual, RecipientTypeRole, RecipientTypeStatus, RecipientTypeBulk:
		return true
	}
	return false
}

// RecipientFilter is the validated payload of an addressing strategy. Exactly one
// payload field is populated according to Type; construction goes through
// app.ParseRecipientFilter so an ill-shaped filter never reaches resolution.
type RecipientFilter struct {
	Type    RecipientType      `json:"type"`
	UserIDs []uuid.UUID        `json:"user_ids,omitempty"`
	Role    string             `json:"role,omitempty"`
	Status  VerificationStatus `json:"status,omitempty"`
}

// AdminMessage is one authored broadcast. recipient rows reference it by ID.
type AdminMessage struct {
	ID              uuid.UUID       `json:"id"`
	SenderID        uuid.UUID       `json:"sender_id"`
	RecipientType   RecipientType   `json:"recipient_type"`
	RecipientFilter RecipientFilter `json:"recipient_filter"`
	Subject         string          `json:"subject"`
	Body            string          `json:"body"`
	SentAt          time.Time       `json:"sent_at"`
	CreatedAt       time.Time       `json:"created_at"`
}

// MessageRecipient is one delivery record for a (message, user) pair. At most one
// row exists per pair; the unique key backs the idempotent fan-out retry.
type MessageRecipient struct {
	ID        uuid.UUID  `json:"id"`
	MessageID uuid.UUID  `json:"message_id"`
	UserID    uuid.UUID  `json:"user_id"`
	Read      bool       `json:"read"`
	ReadAt    *time.Time `json:"read_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// InboxMessage is a recipient row joined with its authored message, the shape the
// end-user inbox listing returns.
type InboxMessage struct {
	RecipientID uuid.UUID  `json:"recipient_id"`
	MessageID   uuid.UUID  `json:"message_id"`
	SenderID    uuid.UUID  `json:"sender_id"`
	Subject     string     `json:"subject"`
	Body        string     `json:"body"`
	Read        bool       `json:"read"`
	ReadAt      *time.Time `json:"read_at,omitempty"`
	SentAt      time.Time  `json:"sent_at"`
}

// MessageSummary is an authored message annotated with delivery counts for the
// admin message log.
type MessageSummary struct {
	AdminMessage
	RecipientCount int64 `json:"recipient_count"`
	ReadCount      int64 `json:"read_count"`
}

// MessageListOptions carries pagination and filtering for the admin message log.
type MessageListOptions struct {
	Page     int
	Limit    int
	SenderID *uuid.UUID
}

// SendResult reports the outcome of a broadcast send.
type SendResult struct {
	Message        *AdminMessage `json:"message"`
	RecipientCount int           `json:"recipient_count"`
}
