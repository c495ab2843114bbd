package domain

import (
	"time"

	"github.com/google/uuid"
)

// VerificationStatusEvent is published after a verification transition commits.
type VerificationStatusEvent struct {
	EventID    uuid.UUID          `json:"event_id"`
	UserID     uuid.UUID          `json:"user_id"`
	Status     VerificationStatus `json:"status"`
	ReviewerID *uuid.UUID         `json:"reviewer_id,omitempty"`
	Reason     string             `json:"reason,omitempty"`
	OccurredAt time.Time          `json:"occurred_at"`
}

// BroadcastSentEvent is published after a broadcast fan-out commits.
type BroadcastSentEvent struct {
	EventID        uuid.UUID     `json:"event_id"`
	MessageID      uuid.UUID     `json:"message_id"`
	SenderID       uuid.UUID     `json:"sender_id"`
	RecipientType  RecipientType `json:"recipient_type"`
	RecipientCount int           `json:"recipient_count"`
	OccurredAt     time.Time     `json:"occurred_at"`
}
