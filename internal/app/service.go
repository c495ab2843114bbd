/**
 * @description
 * This file contains the core of the moderation-service's business logic layer.
 * The `Service` struct coordinates the verification state machine, the recipient
 * resolver, and the broadcast fan-out engine, delegating persistence to the
 * store repository and publishing committed domain events to RabbitMQ.
 *
 * Key features:
 * - Every operation takes the caller identity as an explicit parameter; the
 *   service never reads ambient session state.
 * - Each transition-plus-notification and each fan-out is a single atomic unit
 *   handled by the repository; the service resolves recipients before any
 *   transactional write begins.
 *
 * @dependencies
 * - errors, fmt, time: Standard Go libraries.
 * - internal/store: For data access.
 * - pkg/rabbitmq: For event publishing.
 */

package app

import (
	"errors"
	"fmt"
	"time"

	"github.com/singflex/moderation-service/internal/store"
	"github.com/singflex/moderation-service/pkg/rabbitmq"
)

var (
	// ErrInvalidFilter is returned when a recipient filter's shape does not match
	// its declared recipient type.
	ErrInvalidFilter = errors.New("recipient filter does not match recipient type")
	// ErrInvalidStatus is returned when a caller supplies an unknown status value.
	ErrInvalidStatus = errors.New("invalid status value")
	// ErrSubmittedReserved is returned when an administrator tries to set the
	// submitted status, which only the user's own submit action may reach.
	ErrSubmittedReserved = errors.New("submitted status is reserved for the user's own submit action")
	// ErrMissingSubject is returned when a broadcast is sent without a subject.
	ErrMissingSubject = errors.New("subject is required")
	// ErrMissingBody is returned when a broadcast is sent without a body.
	ErrMissingBody = errors.New("message body is required")
	// ErrTooManyRecipients caps a single fan-out at the platform limit.
	ErrTooManyRecipients = errors.New("too many recipients for a single broadcast")
	// ErrBroadcastRateLimited is returned when a sender exceeds the broadcast rate limit.
	ErrBroadcastRateLimited = errors.New("broadcast rate limit exceeded")
	// ErrInvalidCompletion is returned for completion percentages outside 0-100.
	ErrInvalidCompletion = errors.New("completion percentage must be between 0 and 100")
	// ErrNotOwner is returned when a caller operates on another user's notification.
	ErrNotOwner = errors.New("notification belongs to another user")
)

// MaxBroadcastRecipients bounds a single fan-out. Larger audiences must be split
// by the sender; the platform's user count makes this a generous ceiling.
const MaxBroadcastRecipients = 10000

// RateLimitedError carries the cooldown of a rejected broadcast send so the
// HTTP layer can return a Retry-After hint. It unwraps to ErrBroadcastRateLimited.
type RateLimitedError struct {
	RetryAfterSeconds int
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("broadcast rate limit exceeded, retry in %ds", e.RetryAfterSeconds)
}

func (e *RateLimitedError) Unwrap() error {
	return ErrBroadcastRateLimited
}

// Service provides the core business logic for the moderation workflow.
type Service struct {
	repo          store.Repository
	eventProducer rabbitmq.Publisher
	eventExchange string

	rateLimiter            BroadcastRateLimiter
	broadcastsPerMinute    int
	broadcastRateLimitSpan time.Duration
}

// NewService creates a new moderation service instance.
func NewService(repo store.Repository, producer rabbitmq.Publisher, eventExchange string) *Service {
	return &Service{
		repo:                   repo,
		eventProducer:          producer,
		eventExchange:          eventExchange,
		broadcastRateLimitSpan: time.Minute,
	}
}

// SetBroadcastRateLimiter installs an optional distributed rate limiter on the
// broadcast send path. A nil limiter or non-positive limit disables limiting.
func (s *Service) SetBroadcastRateLimiter(limiter BroadcastRateLimiter, perMinute int) {
	s.rateLimiter = limiter
	s.broadcastsPerMinute = perMinute
}
