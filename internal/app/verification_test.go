package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/singflex/moderation-service/internal/domain"
	"github.com/singflex/moderation-service/internal/store"
	"github.com/singflex/moderation-service/pkg/rabbitmq"
)

type verificationRepoStub struct {
	store.Repository

	users  map[uuid.UUID]bool
	record *domain.UserVerification

	transitions   []store.VerificationTransitionParams
	notifications []domain.Notification
}

func (s *verificationRepoStub) FindVerificationByUserID(ctx context.Context, userID uuid.UUID) (*domain.UserVerification, error) {
	if s.record == nil {
		return nil, store.ErrVerificationNotFound
	}
	return s.record, nil
}

// MarkVerificationSubmitted mirrors the repository contract: a missing profile
// is ErrUserNotFound, a profile without a record gets one created lazily.
func (s *verificationRepoStub) MarkVerificationSubmitted(ctx context.Context, userID uuid.UUID) (*domain.UserVerification, error) {
	if !s.users[userID] {
		return nil, store.ErrUserNotFound
	}
	if s.record == nil {
		s.record = &domain.UserVerification{ID: uuid.New(), UserID: userID, Status: domain.VerificationStatusUpdating}
	}
	now := time.Now().UTC()
	s.record.Status = domain.VerificationStatusSubmitted
	s.record.SubmittedAt = &now
	return s.record, nil
}

func (s *verificationRepoStub) ApplyVerificationTransition(ctx context.Context, userID uuid.UUID, params store.VerificationTransitionParams, notification domain.Notification) (*domain.UserVerification, error) {
	s.transitions = append(s.transitions, params)
	s.notifications = append(s.notifications, notification)

	if s.record == nil {
		s.record = &domain.UserVerification{ID: uuid.New(), UserID: userID}
	}
	s.record.Status = params.Status
	s.record.ReviewedAt = params.ReviewedAt
	s.record.ReviewerID = params.ReviewerID
	if params.Remark != nil {
		s.record.Remark = params.Remark
	}
	if params.RejectionReason != nil {
		s.record.RejectionReason = params.RejectionReason
	}
	if params.FlagReason != nil {
		s.record.FlagReason = params.FlagReason
	}
	if params.ClearReasons {
		s.record.RejectionReason = nil
		s.record.FlagReason = nil
	}
	return s.record, nil
}

func newTestService(repo store.Repository) *Service {
	return NewService(repo, &rabbitmq.EventProducerFallback{}, "test.events")
}

func testAdmin() domain.AdminIdentity {
	return domain.AdminIdentity{ID: uuid.New(), Name: "Review Team"}
}

func TestGetVerification_DefaultProjectionForMissingRecord(t *testing.T) {
	repo := &verificationRepoStub{}
	service := newTestService(repo)
	userID := uuid.New()

	v, err := service.GetVerification(context.Background(), userID)
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if v.UserID != userID {
		t.Fatalf("expected user id %s, got %s", userID, v.UserID)
	}
	if v.Status != domain.VerificationStatusUpdating {
		t.Fatalf("expected status updating, got %q", v.Status)
	}
	if v.CompletionPercentage != 0 {
		t.Fatalf("expected completion 0, got %d", v.CompletionPercentage)
	}
}

func TestSubmitVerification_LazilyCreatesRecord(t *testing.T) {
	userID := uuid.New()
	repo := &verificationRepoStub{users: map[uuid.UUID]bool{userID: true}}
	service := newTestService(repo)

	v, err := service.SubmitVerification(context.Background(), userID)
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if v.Status != domain.VerificationStatusSubmitted {
		t.Fatalf("expected status submitted, got %q", v.Status)
	}
	if v.SubmittedAt == nil {
		t.Fatal("expected the submission timestamp to be stamped")
	}
	if len(repo.notifications) != 0 {
		t.Fatal("expected no notification for the user's own submit")
	}
}

func TestSubmitVerification_MissingProfile(t *testing.T) {
	repo := &verificationRepoStub{}
	service := newTestService(repo)

	_, err := service.SubmitVerification(context.Background(), uuid.New())
	if !errors.Is(err, store.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestRejectVerification_StoresReasonAndNotifies(t *testing.T) {
	repo := &verificationRepoStub{}
	service := newTestService(repo)
	admin := testAdmin()
	userID := uuid.New()

	v, err := service.RejectVerification(context.Background(), admin, userID, "Government ID photo is blurry")
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if v.Status != domain.VerificationStatusRejected {
		t.Fatalf("expected status rejected, got %q", v.Status)
	}
	if v.RejectionReason == nil || *v.RejectionReason != "Government ID photo is blurry" {
		t.Fatalf("expected rejection reason to be stored, got %v", v.RejectionReason)
	}
	if v.ReviewerID == nil || *v.ReviewerID != admin.ID {
		t.Fatal("expected reviewer id to be recorded")
	}

	if len(repo.notifications) != 1 {
		t.Fatalf("expected exactly one notification, got %d", len(repo.notifications))
	}
	n := repo.notifications[0]
	if n.UserID != userID {
		t.Fatalf("expected notification for %s, got %s", userID, n.UserID)
	}
	if n.Type != domain.NotificationTypeVerification {
		t.Fatalf("expected verification notification type, got %q", n.Type)
	}
	if n.Metadata["status"] != string(domain.VerificationStatusRejected) {
		t.Fatalf("expected rejected status in metadata, got %v", n.Metadata["status"])
	}
}

func TestRejectVerification_DefaultReasonWhenOmitted(t *testing.T) {
	repo := &verificationRepoStub{}
	service := newTestService(repo)

	v, err := service.RejectVerification(context.Background(), testAdmin(), uuid.New(), "")
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if v.RejectionReason == nil || *v.RejectionReason != "Rejected by admin" {
		t.Fatalf("expected default rejection reason, got %v", v.RejectionReason)
	}
}

func TestApproveVerification_ClearsReasonsAndSetsVerifiedAt(t *testing.T) {
	reason := "old rejection"
	repo := &verificationRepoStub{
		record: &domain.UserVerification{
			ID:              uuid.New(),
			UserID:          uuid.New(),
			Status:          domain.VerificationStatusRejected,
			RejectionReason: &reason,
		},
	}
	service := newTestService(repo)

	v, err := service.ApproveVerification(context.Background(), testAdmin(), repo.record.UserID, "")
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if v.Status != domain.VerificationStatusVerified {
		t.Fatalf("expected status verified, got %q", v.Status)
	}
	if v.RejectionReason != nil {
		t.Fatalf("expected rejection reason cleared, got %v", *v.RejectionReason)
	}
	if len(repo.transitions) != 1 || !repo.transitions[0].SetVerifiedAt {
		t.Fatal("expected the transition to stamp the verified timestamp")
	}
}

func TestApproveVerification_RepeatIsIdempotentButStillNotifies(t *testing.T) {
	repo := &verificationRepoStub{}
	service := newTestService(repo)
	admin := testAdmin()
	userID := uuid.New()

	if _, err := service.ApproveVerification(context.Background(), admin, userID, ""); err != nil {
		t.Fatalf("first approve failed: %v", err)
	}
	v, err := service.ApproveVerification(context.Background(), admin, userID, "")
	if err != nil {
		t.Fatalf("second approve failed: %v", err)
	}
	if v.Status != domain.VerificationStatusVerified {
		t.Fatalf("expected status verified after repeat approve, got %q", v.Status)
	}
	if len(repo.notifications) != 2 {
		t.Fatalf("expected a notification per transition, got %d", len(repo.notifications))
	}
}

func TestSuspendVerification_DefaultRemark(t *testing.T) {
	repo := &verificationRepoStub{}
	service := newTestService(repo)

	v, err := service.SuspendVerification(context.Background(), testAdmin(), uuid.New(), "")
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if v.Status != domain.VerificationStatusSuspended {
		t.Fatalf("expected status suspended, got %q", v.Status)
	}
	if v.Remark == nil || *v.Remark != "Suspended by admin" {
		t.Fatalf("expected default suspend remark, got %v", v.Remark)
	}
}

func TestUpdateVerificationStatus_RejectsInvalidAndSubmitted(t *testing.T) {
	repo := &verificationRepoStub{}
	service := newTestService(repo)
	admin := testAdmin()

	if _, err := service.UpdateVerificationStatus(context.Background(), admin, uuid.New(), "bogus", ""); !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}
	if _, err := service.UpdateVerificationStatus(context.Background(), admin, uuid.New(), domain.VerificationStatusSubmitted, ""); !errors.Is(err, ErrSubmittedReserved) {
		t.Fatalf("expected ErrSubmittedReserved, got %v", err)
	}
	if len(repo.transitions) != 0 {
		t.Fatal("expected no transitions for rejected inputs")
	}
}

func TestUpdateVerificationDocuments_RejectsOutOfRangeCompletion(t *testing.T) {
	repo := &verificationRepoStub{}
	service := newTestService(repo)

	bad := 120
	_, err := service.UpdateVerificationDocuments(context.Background(), uuid.New(), domain.VerificationDocumentsUpdate{CompletionPercentage: &bad})
	if !errors.Is(err, ErrInvalidCompletion) {
		t.Fatalf("expected ErrInvalidCompletion, got %v", err)
	}
}
