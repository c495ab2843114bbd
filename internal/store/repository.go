/**
 * @description
 * This file defines the `Repository` interface, which specifies the contract for all
 * data access operations required by the moderation-service. By defining an interface,
 * we decouple the application's business logic from the specific database implementation
 * (e.g., PostgreSQL), making the code more modular and easier to test.
 *
 * @dependencies
 * - context, time: Standard Go libraries.
 * - github.com/google/uuid: For UUID handling.
 * - internal/domain: For the service's domain models.
 */

package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/singflex/moderation-service/internal/domain"
)

var (
	ErrUserNotFound             = errors.New("user not found")
	ErrVerificationNotFound     = errors.New("verification record not found")
	ErrMessageNotFound          = errors.New("admin message not found")
	ErrMessageRecipientNotFound = errors.New("message recipient not found")
	ErrNotificationNotFound     = errors.New("notification not found")
	// ErrWriteConflict surfaces a concurrent transactional write conflict. The whole
	// operation is safe to retry.
	ErrWriteConflict = errors.New("concurrent write conflict")
)

// VerificationTransitionParams describes one status transition to apply to a
// user's verification record. Nil fields are left untouched; ClearReasons wipes
// the rejection and flag reasons (used when a record is approved).
type VerificationTransitionParams struct {
	Status          domain.VerificationStatus
	ReviewedAt      *time.Time
	ReviewerID      *uuid.UUID
	Remark          *string
	RejectionReason *string
	FlagReason      *string
	ClearReasons    bool
	SetVerifiedAt   bool
}

// Repository defines the set of methods for interacting with the database.
type Repository interface {
	// Directory lookups used by the recipient resolver. The users table is owned
	// by the platform's account system; this service only ever reads it.
	UserExists(ctx context.Context, userID uuid.UUID) (bool, error)
	ListUserIDsByRole(ctx context.Context, role string) ([]uuid.UUID, error)
	ListUserIDsByVerificationStatus(ctx context.Context, status domain.VerificationStatus) ([]uuid.UUID, error)
	ListAllUserIDs(ctx context.Context) ([]uuid.UUID, error)

	// Verification methods
	FindVerificationByUserID(ctx context.Context, userID uuid.UUID) (*domain.UserVerification, error)
	// MarkVerificationSubmitted lazily creates the verification row if the profile
	// exists without one, then sets status=submitted and the submission timestamp.
	MarkVerificationSubmitted(ctx context.Context, userID uuid.UUID) (*domain.UserVerification, error)
	// ApplyVerificationTransition upserts the status transition and writes the
	// paired notification in one transaction; either both commit or neither does.
	ApplyVerificationTransition(ctx context.Context, userID uuid.UUID, params VerificationTransitionParams, notification domain.Notification) (*domain.UserVerification, error)
	UpdateVerificationDocuments(ctx context.Context, userID uuid.UUID, update domain.VerificationDocumentsUpdate) (*domain.UserVerification, error)
	GetVerificationStats(ctx context.Context) (*domain.VerificationStats, error)

	// Broadcast fan-out methods
	// CreateMessageWithRecipients persists the message, all recipient rows, and all
	// notification rows atomically. Recipient and notification inserts are keyed on
	// (message_id, user_id) so retrying the whole fan-out never duplicates rows.
	CreateMessageWithRecipients(ctx context.Context, msg *domain.AdminMessage, recipients []domain.MessageRecipient, notifications []domain.Notification) error
	MarkMessageRead(ctx context.Context, messageID uuid.UUID, userID uuid.UUID) (*domain.MessageRecipient, error)
	ListInboxMessages(ctx context.Context, userID uuid.UUID, unreadOnly bool) ([]domain.InboxMessage, error)
	ListMessages(ctx context.Context, opts domain.MessageListOptions) ([]domain.MessageSummary, int64, error)

	// Notification ledger methods
	CreateNotification(ctx context.Context, n domain.Notification) error
	FindNotificationByID(ctx context.Context, id uuid.UUID) (*domain.Notification, error)
	SetNotificationStatus(ctx context.Context, id uuid.UUID, status domain.NotificationStatus) (*domain.Notification, error)
	ListNotifications(ctx context.Context, userID uuid.UUID, opts domain.NotificationListOptions) (*domain.NotificationPage, error)
}
