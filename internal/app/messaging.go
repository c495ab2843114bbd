/**
 * @description
 * This file implements the admin broadcast fan-out engine. A single authored
 * message is expanded into one delivery record and one ledger notification per
 * resolved recipient. Recipients are resolved before the transactional write
 * phase so the fan-out transaction never blocks on directory lookups; the write
 * phase itself is atomic and keyed on (message_id, user_id), making a retried
 * fan-out safe against duplicate deliveries.
 *
 * @dependencies
 * - context, fmt, log, strings, time: Standard Go libraries.
 * - github.com/google/uuid: For UUID generation.
 * - internal/domain, internal/store: For domain models and data access.
 */

package app

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/singflex/moderation-service/internal/domain"
)

// SendBroadcast authors a message and fans it out to the audience the filter
// resolves to at send time. Each send produces a new, independent message even
// if an identical broadcast was sent before. A zero-recipient resolution is a
// valid broadcast, not an error.
func (s *Service) SendBroadcast(ctx context.Context, sender domain.AdminIdentity, subject, body string, filter domain.RecipientFilter) (*domain.SendResult, error) {
	subject = strings.TrimSpace(subject)
	body = strings.TrimSpace(body)
	if subject == "" {
		return nil, ErrMissingSubject
	}
	if body == "" {
		return nil, ErrMissingBody
	}

	if s.rateLimiter != nil && s.broadcastsPerMinute > 0 {
		count, retryAfter, err := s.rateLimiter.ConsumeRateLimit(ctx, "broadcast_send", sender.ID.String(), s.broadcastsPerMinute, s.broadcastRateLimitSpan)
		if err != nil {
			// A limiter outage must not block moderation work.
			log.Printf("level=warn component=messaging msg=\"broadcast rate limiter unavailable\" sender_id=%s err=%v", sender.ID, err)
		} else if count > s.broadcastsPerMinute {
			if retryAfter < 1 {
				retryAfter = 1
			}
			return nil, &RateLimitedError{RetryAfterSeconds: retryAfter}
		}
	}

	// Resolve first: directory reads complete before the transaction opens.
	recipientIDs, err := s.resolveRecipients(ctx, filter)
	if err != nil {
		return nil, err
	}
	if len(recipientIDs) > MaxBroadcastRecipients {
		return nil, fmt.Errorf("%w: %d resolved, max %d", ErrTooManyRecipients, len(recipientIDs), MaxBroadcastRecipients)
	}

	msg := &domain.AdminMessage{
		ID:              uuid.New(),
		SenderID:        sender.ID,
		RecipientType:   filter.Type,
		RecipientFilter: filter,
		Subject:         subject,
		Body:            body,
		SentAt:          time.Now().UTC(),
	}

	if err := s.deliver(ctx, msg, sender.Name, recipientIDs); err != nil {
		return nil, err
	}
	log.Printf("level=info component=messaging msg=\"broadcast sent\" message_id=%s sender_id=%s recipient_type=%s recipients=%d",
		msg.ID, sender.ID, filter.Type, len(recipientIDs))

	event := domain.BroadcastSentEvent{
		EventID:        uuid.New(),
		MessageID:      msg.ID,
		SenderID:       sender.ID,
		RecipientType:  filter.Type,
		RecipientCount: len(recipientIDs),
		OccurredAt:     time.Now().UTC(),
	}
	if err := s.eventProducer.PublishBroadcastSentEvent(ctx, s.eventExchange, event); err != nil {
		log.Printf("level=warn component=messaging msg=\"broadcast event publish failed\" message_id=%s err=%v", msg.ID, err)
	}

	return &domain.SendResult{Message: msg, RecipientCount: len(recipientIDs)}, nil
}

// deliver runs the atomic write phase of a fan-out. Recipient rows and their
// ledger notifications are keyed on (message_id, user_id), so re-running this
// phase for the same message never duplicates deliveries.
func (s *Service) deliver(ctx context.Context, msg *domain.AdminMessage, senderName string, recipientIDs []uuid.UUID) error {
	recipients := make([]domain.MessageRecipient, 0, len(recipientIDs))
	notifications := make([]domain.Notification, 0, len(recipientIDs))
	for _, userID := range recipientIDs {
		recipients = append(recipients, domain.MessageRecipient{
			ID:        uuid.New(),
			MessageID: msg.ID,
			UserID:    userID,
		})

		dedupeKey := fmt.Sprintf("admin-message:%s:%s", msg.ID, userID)
		notifications = append(notifications, domain.Notification{
			ID:      uuid.New(),
			UserID:  userID,
			Type:    domain.NotificationTypeAdminMessage,
			Title:   msg.Subject,
			Message: msg.Body,
			Metadata: map[string]interface{}{
				"message_id":  msg.ID.String(),
				"sender_name": senderName,
			},
			DedupeKey: &dedupeKey,
		})
	}

	return s.repo.CreateMessageWithRecipients(ctx, msg, recipients, notifications)
}

// MarkMessageRead marks the caller's delivery record for a message as read,
// together with its ledger notification. Marking an already-read message again
// is a no-op success.
func (s *Service) MarkMessageRead(ctx context.Context, userID uuid.UUID, messageID uuid.UUID) (*domain.MessageRecipient, error) {
	return s.repo.MarkMessageRead(ctx, messageID, userID)
}

// ListInboxMessages returns the caller's received messages, newest first.
func (s *Service) ListInboxMessages(ctx context.Context, userID uuid.UUID, unreadOnly bool) ([]domain.InboxMessage, error) {
	return s.repo.ListInboxMessages(ctx, userID, unreadOnly)
}

// ListMessages returns the paginated admin message log with delivery counts.
func (s *Service) ListMessages(ctx context.Context, opts domain.MessageListOptions) ([]domain.MessageSummary, int64, error) {
	return s.repo.ListMessages(ctx, opts)
}
