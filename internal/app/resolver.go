/**
 * @description
 * This file implements the recipient resolver: it validates a recipient filter
 * against its declared addressing strategy at construction time, and later
 * expands a validated filter into the concrete, deduplicated set of target user
 * IDs. Shape errors surface as ErrInvalidFilter before any resolution work; an
 * empty resolved set is a valid zero-recipient broadcast, not an error.
 *
 * @dependencies
 * - context, fmt, strings: Standard Go libraries.
 * - github.com/google/uuid: For UUID parsing.
 * - internal/domain: For the filter and status types.
 */

package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/singflex/moderation-service/internal/domain"
)

// RecipientFilterInput is the raw, wire-shaped filter payload before validation.
type RecipientFilterInput struct {
	UserIDs []string `json:"user_ids,omitempty"`
	Role    string   `json:"role,omitempty"`
	Status  string   `json:"status,omitempty"`
}

// ParseRecipientFilter validates the raw payload against the declared recipient
// type and returns the tagged filter. Exactly one payload shape is legal per
// type; anything else is ErrInvalidFilter.
func ParseRecipientFilter(recipientType string, input RecipientFilterInput) (domain.RecipientFilter, error) {
	rt := domain.RecipientType(strings.TrimSpace(strings.ToLower(recipientType)))
	if !rt.IsValid() {
		return domain.RecipientFilter{}, fmt.Errorf("%w: unknown recipient type %q", ErrInvalidFilter, recipientType)
	}

	filter := domain.RecipientFilter{Type: rt}

	switch rt {
	case domain.RecipientTypeIndividual:
		if len(input.UserIDs) == 0 {
			return domain.RecipientFilter{}, fmt.Errorf("%w: individual addressing requires a user id list", ErrInvalidFilter)
		}
		ids := make([]uuid.UUID, 0, len(input.UserIDs))
		for _, raw := range input.UserIDs {
			id, err := uuid.Parse(strings.TrimSpace(raw))
			if err != nil {
				return domain.RecipientFilter{}, fmt.Errorf("%w: invalid user id %q", ErrInvalidFilter, raw)
			}
			ids = append(ids, id)
		}
		filter.UserIDs = ids

	case domain.RecipientTypeRole:
		role := strings.TrimSpace(input.Role)
		if role == "" {
			return domain.RecipientFilter{}, fmt.Errorf("%w: role addressing requires a role name", ErrInvalidFilter)
		}
		filter.Role = role

	case domain.RecipientTypeStatus:
		status := domain.VerificationStatus(strings.TrimSpace(strings.ToLower(input.Status)))
		if !status.IsValid() {
			return domain.RecipientFilter{}, fmt.Errorf("%w: status addressing requires a verification status", ErrInvalidFilter)
		}
		filter.Status = status

	case domain.RecipientTypeBulk:
		// No payload; extraneous fields are ignored.
	}

	return filter, nil
}

// resolveRecipients expands a validated filter into the deduplicated set of
// target user IDs. Resolution reads the directory before the fan-out
// transaction opens; the audience is whoever matched at send time.
func (s *Service) resolveRecipients(ctx context.Context, filter domain.RecipientFilter) ([]uuid.UUID, error) {
	switch filter.Type {
	case domain.RecipientTypeIndividual:
		return dedupeUserIDs(filter.UserIDs), nil

	case domain.RecipientTypeRole:
		ids, err := s.repo.ListUserIDsByRole(ctx, filter.Role)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve role recipients: %w", err)
		}
		return dedupeUserIDs(ids), nil

	case domain.RecipientTypeStatus:
		ids, err := s.repo.ListUserIDsByVerificationStatus(ctx, filter.Status)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve status recipients: %w", err)
		}
		return dedupeUserIDs(ids), nil

	case domain.RecipientTypeBulk:
		ids, err := s.repo.ListAllUserIDs(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve bulk recipients: %w", err)
		}
		return dedupeUserIDs(ids), nil
	}

	return nil, fmt.Errorf("%w: unknown recipient type %q", ErrInvalidFilter, filter.Type)
}

// dedupeUserIDs removes duplicates while preserving first-seen order.
func dedupeUserIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
