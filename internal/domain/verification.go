/**
 * @description
 * This file defines the domain models for the user verification workflow. A user
 * has at most one verification record tracking the moderation status of their
 * profile. Administrators move the record through the status lifecycle; the user
 * can only submit their own profile for review or update the attached documents.
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

// VerificationStatus enumerates the moderation states of a verification record.
type VerificationStatus string

const (
	VerificationStatusUpdating  VerificationStatus = "updating"
	VerificationStatusSubmitted VerificationStatus = "submitted"
	VerificationStatusVerified  VerificationStatus = "verified"
	VerificationStatusRejected  VerificationStatus = "rejected"
	VerificationStatusFlagged   VerificationStatus = "flagged"
	VerificationStatusSuspended VerificationStatus = "suspended"
)

// IsValid reports whether the status is one of the known verification states.
func (s VerificationStatus) IsValid() bool {
	switch s {
	case VerificationStatusUpdating, VerificationStatusSubmitted, VerificationStatusVerified,
		VerificationStatusRejected, VerificationStatusFlagged, VerificationStatusSuspended:
		return true
	}
	return false
}

// UserVerification is the per-user moderation record. A missing row is treated as
// an implicit "updating" record with zero completion; see app.Service.GetVerification.
type UserVerification struct {
	ID                   uuid.UUID          `json:"id"`
	UserID               uuid.UUID          `json:"user_id"`
	Status               VerificationStatus `json:"status"`
	CompletionPercentage int                `json:"completion_percentage"`
	SubmittedAt          *time.Time         `json:"submitted_at,omitempty"`
	ReviewedAt           *time.Time         `json:"reviewed_at,omitempty"`
	VerifiedAt           *time.Time         `json:"verified_at,omitempty"`
	ReviewerID           *uuid.UUID         `json:"reviewer_id,omitempty"`
	Remark               *string            `json:"remark,omitempty"`
	RejectionReason      *string            `json:"rejection_reason,omitempty"`
	FlagReason           *string            `json:"flag_reason,omitempty"`
	GovernmentIDURL      *string            `json:"government_id_url,omitempty"`
	SignatureURL         *string            `json:"signature_url,omitempty"`
	CreatedAt            time.Time          `json:"created_at"`
	UpdatedAt            time.Time          `json:"updated_at"`
}

// VerificationDocumentsUpdate carries the user-editable document fields of a
// verification record. Nil fields are left untouched.
type VerificationDocumentsUpdate struct {
	GovernmentIDURL      *string `json:"government_id_url,omitempty"`
	SignatureURL         *string `json:"signature_url,omitempty"`
	CompletionPercentage *int    `json:"completion_percentage,omitempty"`
}

// VerificationStats aggregates record counts per status for the admin dashboard.
type VerificationStats struct {
	Total     int64 `json:"total"`
	Updating  int64 `json:"updating"`
	Submitted int64 `json:"submitted"`
	Verified  int64 `json:"verified"`
	Rejected  int64 `json:"rejected"`
	Flagged   int64 `json:"flagged"`
	Suspended int64 `json:"suspended"`
}

// AdminIdentity is the verified administrator acting on a moderation operation.
// It is produced by the authentication layer and passed explicitly into every
// administrator-gated operation; the core never reads it from ambient state.
type AdminIdentity struct {
	ID   uuid.UUID
	Name string
}
