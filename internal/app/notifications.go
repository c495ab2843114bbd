/**
 * @description
 * This file implements the notification ledger operations exposed to the rest
 * of the platform: creating standalone ledger entries and letting a recipient
 * read or archive their own notifications. Rows are never deleted; archiving is
 * terminal for UI purposes and always implies read.
 *
 * @dependencies
 * - context: Standard Go library.
 * - github.com/google/uuid: For UUID generation.
 * - internal/domain: For domain models.
 */

package app

import (
	"context"

	"github.com/google/uuid"
	"github.com/singflex/moderation-service/internal/domain"
)

// CreateNotification inserts a single ledger entry for a user. Used by platform
// callers outside the two built-in producers (verification, broadcast fan-out).
func (s *Service) CreateNotification(ctx context.Context, userID uuid.UUID, notificationType, title, message string, metadata map[string]interface{}) (*domain.Notification, error) {
	n := domain.Notification{
		ID:       uuid.New(),
		UserID:   userID,
		Type:     notificationType,
		Title:    title,
		Message:  message,
		Metadata: metadata,
	}
	if err := s.repo.CreateNotification(ctx, n); err != nil {
		return nil, err
	}
	return s.repo.FindNotificationByID(ctx, n.ID)
}

// MarkNotificationRead transitions the caller's notification to read. Reading
// an already-read or archived notification is a no-op success; archived stays
// archived.
func (s *Service) MarkNotificationRead(ctx context.Context, callerID uuid.UUID, notificationID uuid.UUID) (*domain.Notification, error) {
	n, err := s.repo.FindNotificationByID(ctx, notificationID)
	if err != nil {
		return nil, err
	}
	if n.UserID != callerID {
		return nil, ErrNotOwner
	}
	if n.Status != domain.NotificationStatusUnread {
		return n, nil
	}
	return s.repo.SetNotificationStatus(ctx, notificationID, domain.NotificationStatusRead)
}

// ArchiveNotification transitions the caller's notification to archived.
// Archiving implies read. Archiving twice is a no-op success.
func (s *Service) ArchiveNotification(ctx context.Context, callerID uuid.UUID, notificationID uuid.UUID) (*domain.Notification, error) {
	n, err := s.repo.FindNotificationByID(ctx, notificationID)
	if err != nil {
		return nil, err
	}
	if n.UserID != callerID {
		return nil, ErrNotOwner
	}
	if n.Status == domain.NotificationStatusArchived {
		return n, nil
	}
	return s.repo.SetNotificationStatus(ctx, notificationID, domain.NotificationStatusArchived)
}

// ListNotifications returns one page of the caller's notifications, newest
// first, optionally filtered by status.
func (s *Service) ListNotifications(ctx context.Context, userID uuid.UUID, opts domain.NotificationListOptions) (*domain.NotificationPage, error) {
	if opts.Status != nil && !opts.Status.IsValid() {
		return nil, ErrInvalidStatus
	}
	return s.repo.ListNotifications(ctx, userID, opts)
}
