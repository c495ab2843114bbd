package app

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/singflex/moderation-service/internal/domain"
	"github.com/singflex/moderation-service/internal/store"
)

// fanoutRepoStub mimics the database's (message_id, user_id) unique key: repeat
// inserts for the same pair are silently skipped, like ON CONFLICT DO NOTHING.
type fanoutRepoStub struct {
	store.Repository

	statusIDs []uuid.UUID

	messages      map[uuid.UUID]*domain.AdminMessage
	recipients    map[string]domain.MessageRecipient
	notifications map[string]domain.Notification

	failOnce bool
	calls    int
}

func newFanoutRepoStub() *fanoutRepoStub {
	return &fanoutRepoStub{
		messages:      make(map[uuid.UUID]*domain.AdminMessage),
		recipients:    make(map[string]domain.MessageRecipient),
		notifications: make(map[string]domain.Notification),
	}
}

func (s *fanoutRepoStub) ListAllUserIDs(ctx context.Context) ([]uuid.UUID, error) {
	return nil, nil
}

func (s *fanoutRepoStub) ListUserIDsByVerificationStatus(ctx context.Context, status domain.VerificationStatus) ([]uuid.UUID, error) {
	return s.statusIDs, nil
}

// MarkMessageRead mirrors the repository contract: the read flag flips, but the
// read timestamp keeps its first value, like read_at = COALESCE(read_at, NOW()).
func (s *fanoutRepoStub) MarkMessageRead(ctx context.Context, messageID uuid.UUID, userID uuid.UUID) (*domain.MessageRecipient, error) {
	key := fmt.Sprintf("%s:%s", messageID, userID)
	recipient, ok := s.recipients[key]
	if !ok {
		return nil, store.ErrMessageRecipientNotFound
	}
	recipient.Read = true
	if recipient.ReadAt == nil {
		now := time.Now().UTC()
		recipient.ReadAt = &now
	}
	s.recipients[key] = recipient
	return &recipient, nil
}

func (s *fanoutRepoStub) CreateMessageWithRecipients(ctx context.Context, msg *domain.AdminMessage, recipients []domain.MessageRecipient, notifications []domain.Notification) error {
	s.calls++
	if s.failOnce {
		s.failOnce = false
		return errors.New("connection reset during fan-out")
	}

	s.messages[msg.ID] = msg
	for _, r := range recipients {
		key := fmt.Sprintf("%s:%s", r.MessageID, r.UserID)
		if _, exists := s.recipients[key]; exists {
			continue
		}
		s.recipients[key] = r
	}
	for _, n := range notifications {
		if n.DedupeKey == nil {
			continue
		}
		if _, exists := s.notifications[*n.DedupeKey]; exists {
			continue
		}
		s.notifications[*n.DedupeKey] = n
	}
	return nil
}

func TestSendBroadcast_FansOutToStatusAudience(t *testing.T) {
	flagged := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
	repo := newFanoutRepoStub()
	repo.statusIDs = flagged
	service := newTestService(repo)
	admin := testAdmin()

	result, err := service.SendBroadcast(context.Background(), admin, "Account notice", "Please update your documents.", domain.RecipientFilter{
		Type:   domain.RecipientTypeStatus,
		Status: domain.VerificationStatusFlagged,
	})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if result.RecipientCount != 3 {
		t.Fatalf("expected 3 recipients, got %d", result.RecipientCount)
	}
	if result.Message.SenderID != admin.ID {
		t.Fatal("expected sender to be recorded on the message")
	}
	if len(repo.recipients) != 3 {
		t.Fatalf("expected 3 delivery rows, got %d", len(repo.recipients))
	}
	if len(repo.notifications) != 3 {
		t.Fatalf("expected one notification per recipient, got %d", len(repo.notifications))
	}
	for _, n := range repo.notifications {
		if n.Type != domain.NotificationTypeAdminMessage {
			t.Fatalf("expected admin-message notification type, got %q", n.Type)
		}
		if n.Metadata["message_id"] != result.Message.ID.String() {
			t.Fatal("expected the message id in notification metadata")
		}
		if n.Metadata["sender_name"] != admin.Name {
			t.Fatal("expected the sender name in notification metadata")
		}
	}
}

func TestSendBroadcast_ZeroRecipientsIsSuccess(t *testing.T) {
	repo := newFanoutRepoStub()
	service := newTestService(repo)

	result, err := service.SendBroadcast(context.Background(), testAdmin(), "Hello", "Nobody matches.", domain.RecipientFilter{
		Type:   domain.RecipientTypeStatus,
		Status: domain.VerificationStatusSuspended,
	})
	if err != nil {
		t.Fatalf("expected zero-recipient send to succeed, got %v", err)
	}
	if result.RecipientCount != 0 {
		t.Fatalf("expected 0 recipients, got %d", result.RecipientCount)
	}
	if len(repo.messages) != 1 {
		t.Fatal("expected the message itself to be persisted")
	}
}

func TestSendBroadcast_ValidatesSubjectAndBody(t *testing.T) {
	service := newTestService(newFanoutRepoStub())
	filter := domain.RecipientFilter{Type: domain.RecipientTypeBulk}

	if _, err := service.SendBroadcast(context.Background(), testAdmin(), "   ", "body", filter); !errors.Is(err, ErrMissingSubject) {
		t.Fatalf("expected ErrMissingSubject, got %v", err)
	}
	if _, err := service.SendBroadcast(context.Background(), testAdmin(), "subject", "", filter); !errors.Is(err, ErrMissingBody) {
		t.Fatalf("expected ErrMissingBody, got %v", err)
	}
}

func TestSendBroadcast_EnforcesRecipientCap(t *testing.T) {
	ids := make([]uuid.UUID, MaxBroadcastRecipients+1)
	for i := range ids {
		ids[i] = uuid.New()
	}
	repo := newFanoutRepoStub()
	service := newTestService(repo)

	_, err := service.SendBroadcast(context.Background(), testAdmin(), "Too big", "body", domain.RecipientFilter{
		Type:    domain.RecipientTypeIndividual,
		UserIDs: ids,
	})
	if !errors.Is(err, ErrTooManyRecipients) {
		t.Fatalf("expected ErrTooManyRecipients, got %v", err)
	}
	if repo.calls != 0 {
		t.Fatal("expected no write attempt past the cap")
	}
}

func TestDeliver_RetryDoesNotDuplicateRows(t *testing.T) {
	recipients := []uuid.UUID{uuid.New(), uuid.New()}
	repo := newFanoutRepoStub()
	repo.failOnce = true
	service := newTestService(repo)

	msg := &domain.AdminMessage{
		ID:            uuid.New(),
		SenderID:      uuid.New(),
		RecipientType: domain.RecipientTypeIndividual,
		Subject:       "Retry check",
		Body:          "body",
		SentAt:        time.Now().UTC(),
	}

	if err := service.deliver(context.Background(), msg, "Review Team", recipients); err == nil {
		t.Fatal("expected the first delivery attempt to fail")
	}
	if err := service.deliver(context.Background(), msg, "Review Team", recipients); err != nil {
		t.Fatalf("expected the retry to succeed, got %v", err)
	}
	// A second full retry after success must be absorbed by the unique key.
	if err := service.deliver(context.Background(), msg, "Review Team", recipients); err != nil {
		t.Fatalf("expected the redundant retry to succeed, got %v", err)
	}

	if len(repo.recipients) != len(recipients) {
		t.Fatalf("expected %d delivery rows after retries, got %d", len(recipients), len(repo.recipients))
	}
	if len(repo.notifications) != len(recipients) {
		t.Fatalf("expected %d notifications after retries, got %d", len(recipients), len(repo.notifications))
	}
}

func TestMarkMessageRead_RepeatKeepsFirstReadTimestamp(t *testing.T) {
	recipients := []uuid.UUID{uuid.New()}
	repo := newFanoutRepoStub()
	repo.statusIDs = recipients
	service := newTestService(repo)

	result, err := service.SendBroadcast(context.Background(), testAdmin(), "Read check", "body", domain.RecipientFilter{
		Type:   domain.RecipientTypeStatus,
		Status: domain.VerificationStatusVerified,
	})
	if err != nil {
		t.Fatalf("broadcast failed: %v", err)
	}

	first, err := service.MarkMessageRead(context.Background(), recipients[0], result.Message.ID)
	if err != nil {
		t.Fatalf("first mark-read failed: %v", err)
	}
	if !first.Read || first.ReadAt == nil {
		t.Fatal("expected the delivery to be marked read with a timestamp")
	}

	second, err := service.MarkMessageRead(context.Background(), recipients[0], result.Message.ID)
	if err != nil {
		t.Fatalf("expected repeat mark-read to succeed, got %v", err)
	}
	if second.ReadAt == nil || !second.ReadAt.Equal(*first.ReadAt) {
		t.Fatalf("expected read timestamp to stay at %v, got %v", first.ReadAt, second.ReadAt)
	}
}

func TestMarkMessageRead_MissingDelivery(t *testing.T) {
	service := newTestService(newFanoutRepoStub())

	_, err := service.MarkMessageRead(context.Background(), uuid.New(), uuid.New())
	if !errors.Is(err, store.ErrMessageRecipientNotFound) {
		t.Fatalf("expected ErrMessageRecipientNotFound, got %v", err)
	}
}

type countingRateLimiterStub struct {
	count      int
	retryAfter int
	err        error
}

func (s *countingRateLimiterStub) ConsumeRateLimit(ctx context.Context, scope, subject string, limit int, window time.Duration) (int, int, error) {
	if s.err != nil {
		return 0, 0, s.err
	}
	s.count++
	return s.count, s.retryAfter, nil
}

func TestSendBroadcast_RateLimitExceededCarriesRetryAfter(t *testing.T) {
	repo := newFanoutRepoStub()
	service := newTestService(repo)
	service.SetBroadcastRateLimiter(&countingRateLimiterStub{count: 5, retryAfter: 30}, 5)

	_, err := service.SendBroadcast(context.Background(), testAdmin(), "Limited", "body", domain.RecipientFilter{Type: domain.RecipientTypeBulk})
	if !errors.Is(err, ErrBroadcastRateLimited) {
		t.Fatalf("expected ErrBroadcastRateLimited, got %v", err)
	}
	var limited *RateLimitedError
	if !errors.As(err, &limited) {
		t.Fatalf("expected RateLimitedError, got %T", err)
	}
	if limited.RetryAfterSeconds != 30 {
		t.Fatalf("expected retry-after 30s, got %d", limited.RetryAfterSeconds)
	}
}

func TestSendBroadcast_RateLimitRetryAfterClampedToOneSecond(t *testing.T) {
	repo := newFanoutRepoStub()
	service := newTestService(repo)
	service.SetBroadcastRateLimiter(&countingRateLimiterStub{count: 5, retryAfter: 0}, 5)

	_, err := service.SendBroadcast(context.Background(), testAdmin(), "Limited", "body", domain.RecipientFilter{Type: domain.RecipientTypeBulk})
	var limited *RateLimitedError
	if !errors.As(err, &limited) {
		t.Fatalf("expected RateLimitedError, got %v", err)
	}
	if limited.RetryAfterSeconds != 1 {
		t.Fatalf("expected retry-after clamped to 1s, got %d", limited.RetryAfterSeconds)
	}
}

func TestSendBroadcast_LimiterOutageDoesNotBlock(t *testing.T) {
	repo := newFanoutRepoStub()
	service := newTestService(repo)
	service.SetBroadcastRateLimiter(&countingRateLimiterStub{err: errors.New("redis down")}, 5)

	if _, err := service.SendBroadcast(context.Background(), testAdmin(), "Degraded", "body", domain.RecipientFilter{Type: domain.RecipientTypeBulk}); err != nil {
		t.Fatalf("expected limiter outage to be non-fatal, got %v", err)
	}
}
