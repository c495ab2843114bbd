/**
 * @description
 * This file implements the verification state machine. Users move their own
 * record to submitted; administrators apply the review transitions (approve,
 * reject, flag, suspend) plus a narrow catch-all that sets only status and
 * remark. Every administrator transition writes exactly one ledger notification
 * for the affected user inside the same transaction as the status change, so a
 * failed notification write rolls the transition back.
 *
 * @dependencies
 * - context, errors, fmt, log, time: Standard Go libraries.
 * - github.com/google/uuid: For UUID generation.
 * - internal/domain, internal/store: For domain models and data access.
 */

package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/singflex/moderation-service/internal/domain"
	"github.com/singflex/moderation-service/internal/store"
)

// Default reasons applied when an administrator supplies none. A missing reason
// is a policy default, not a validation failure.
const (
	defaultRejectionReason = "Rejected by admin"
	defaultFlagReason      = "Flagged by admin"
	defaultSuspendRemark   = "Suspended by admin"
)

// GetVerification returns a user's verification record. A user with no stored
// record yields the implicit updating/0% projection; this never fails for a
// missing record.
func (s *Service) GetVerification(ctx context.Context, userID uuid.UUID) (*domain.UserVerification, error) {
	v, err := s.repo.FindVerificationByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrVerificationNotFound) {
			return &domain.UserVerification{
				UserID:               userID,
				Status:               domain.VerificationStatusUpdating,
				CompletionPercentage: 0,
			}, nil
		}
		return nil, fmt.Errorf("failed to load verification record: %w", err)
	}
	return v, nil
}

// SubmitVerification moves the caller's own record into the submitted state.
// The record is created lazily if the profile exists without one.
func (s *Service) SubmitVerification(ctx context.Context, userID uuid.UUID) (*domain.UserVerification, error) {
	v, err := s.repo.MarkVerificationSubmitted(ctx, userID)
	if err != nil {
		return nil, err
	}
	log.Printf("level=info component=verification msg=\"profile submitted for review\" user_id=%s", userID)
	return v, nil
}

// UpdateVerificationDocuments updates the user-editable document fields on the
// caller's own record. No reviewer metadata and no notification is involved.
func (s *Service) UpdateVerificationDocuments(ctx context.Context, userID uuid.UUID, update domain.VerificationDocumentsUpdate) (*domain.UserVerification, error) {
	if update.CompletionPercentage != nil && (*update.CompletionPercentage < 0 || *update.CompletionPercentage > 100) {
		return nil, ErrInvalidCompletion
	}
	return s.repo.UpdateVerificationDocuments(ctx, userID, update)
}

// ApproveVerification marks a user's record verified, clearing any earlier
// rejection or flag reasons. The optional remark is kept on the record and
// echoed in the notification.
func (s *Service) ApproveVerification(ctx context.Context, admin domain.AdminIdentity, userID uuid.UUID, remark string) (*domain.UserVerification, error) {
	now := time.Now().UTC()
	params := store.VerificationTransitionParams{
		Status:        domain.VerificationStatusVerified,
		ReviewedAt:    &now,
		ReviewerID:    &admin.ID,
		ClearReasons:  true,
		SetVerifiedAt: true,
	}
	if remark != "" {
		params.Remark = &remark
	}

	message := "Your profile has been verified. You now have full access to the platform."
	if remark != "" {
		message = fmt.Sprintf("%s Reviewer note: %s", message, remark)
	}
	return s.applyTransition(ctx, admin, userID, params, "Profile Verification Approved", message, remark)
}

// RejectVerification marks a user's record rejected with the given reason.
func (s *Service) RejectVerification(ctx context.Context, admin domain.AdminIdentity, userID uuid.UUID, reason string) (*domain.UserVerification, error) {
	if reason == "" {
		reason = defaultRejectionReason
	}
	now := time.Now().UTC()
	params := store.VerificationTransitionParams{
		Status:          domain.VerificationStatusRejected,
		ReviewedAt:      &now,
		ReviewerID:      &admin.ID,
		RejectionReason: &reason,
	}
	message := fmt.Sprintf("Your profile verification was rejected: %s. You can update your profile and submit it again.", reason)
	return s.applyTransition(ctx, admin, userID, params, "Profile Verification Rejected", message, reason)
}

// FlagVerification marks a user's record flagged for further review.
func (s *Service) FlagVerification(ctx context.Context, admin domain.AdminIdentity, userID uuid.UUID, reason string) (*domain.UserVerification, error) {
	if reason == "" {
		reason = defaultFlagReason
	}
	now := time.Now().UTC()
	params := store.VerificationTransitionParams{
		Status:     domain.VerificationStatusFlagged,
		ReviewedAt: &now,
		ReviewerID: &admin.ID,
		FlagReason: &reason,
	}
	message := fmt.Sprintf("Your profile has been flagged for review: %s. Our team will follow up with next steps.", reason)
	return s.applyTransition(ctx, admin, userID, params, "Profile Verification Flagged", message, reason)
}

// SuspendVerification suspends a user's record. The reason is stored as the
// record's remark.
func (s *Service) SuspendVerification(ctx context.Context, admin domain.AdminIdentity, userID uuid.UUID, remark string) (*domain.UserVerification, error) {
	if remark == "" {
		remark = defaultSuspendRemark
	}
	now := time.Now().UTC()
	params := store.VerificationTransitionParams{
		Status:     domain.VerificationStatusSuspended,
		ReviewedAt: &now,
		ReviewerID: &admin.ID,
		Remark:     &remark,
	}
	message := fmt.Sprintf("Your account has been suspended: %s. Contact support if you believe this is a mistake.", remark)
	return s.applyTransition(ctx, admin, userID, params, "Account Suspended", message, remark)
}

// UpdateVerificationStatus is the catch-all transition for statuses without a
// dedicated action. It sets only status and remark, never reviewer metadata, so
// it cannot bypass the audit fields the dedicated transitions guarantee.
func (s *Service) UpdateVerificationStatus(ctx context.Context, admin domain.AdminIdentity, userID uuid.UUID, status domain.VerificationStatus, remark string) (*domain.UserVerification, error) {
	if !status.IsValid() {
		return nil, ErrInvalidStatus
	}
	if status == domain.VerificationStatusSubmitted {
		return nil, ErrSubmittedReserved
	}

	params := store.VerificationTransitionParams{Status: status}
	if remark != "" {
		params.Remark = &remark
	}

	message := fmt.Sprintf("Your verification status was updated to %q.", status)
	if remark != "" {
		message = fmt.Sprintf("%s Note: %s", message, remark)
	}
	return s.applyTransition(ctx, admin, userID, params, "Verification Status Updated", message, remark)
}

// GetVerificationStats aggregates record counts per status for the admin dashboard.
func (s *Service) GetVerificationStats(ctx context.Context) (*domain.VerificationStats, error) {
	return s.repo.GetVerificationStats(ctx)
}

// applyTransition runs the shared administrator-transition path: one atomic
// status-change-plus-notification write, then a best-effort event publish.
func (s *Service) applyTransition(ctx context.Context, admin domain.AdminIdentity, userID uuid.UUID, params store.VerificationTransitionParams, title, message, reason string) (*domain.UserVerification, error) {
	notification := domain.Notification{
		ID:      uuid.New(),
		UserID:  userID,
		Type:    domain.NotificationTypeVerification,
		Title:   title,
		Message: message,
		Metadata: map[string]interface{}{
			"status":      string(params.Status),
			"reviewer_id": admin.ID.String(),
		},
	}

	v, err := s.repo.ApplyVerificationTransition(ctx, userID, params, notification)
	if err != nil {
		return nil, err
	}
	log.Printf("level=info component=verification msg=\"status transition applied\" user_id=%s status=%s reviewer_id=%s", userID, params.Status, admin.ID)

	event := domain.VerificationStatusEvent{
		EventID:    uuid.New(),
		UserID:     userID,
		Status:     params.Status,
		ReviewerID: &admin.ID,
		Reason:     reason,
		OccurredAt: time.Now().UTC(),
	}
	if err := s.eventProducer.PublishVerificationStatusEvent(ctx, s.eventExchange, event); err != nil {
		// The transition has committed; a broker outage only costs the event.
		log.Printf("level=warn component=verification msg=\"verification event publish failed\" user_id=%s status=%s err=%v", userID, params.Status, err)
	}

	return v, nil
}
