package api

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/singflex/moderation-service/internal/app"
	"github.com/singflex/moderation-service/internal/store"
)

func TestWriteServiceError_StatusMapping(t *testing.T) {
	h := NewModerationHandlers(nil)

	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "invalid filter", err: app.ErrInvalidFilter, want: http.StatusBadRequest},
		{name: "not owner", err: app.ErrNotOwner, want: http.StatusForbidden},
		{name: "user not found", err: store.ErrUserNotFound, want: http.StatusNotFound},
		{name: "write conflict", err: store.ErrWriteConflict, want: http.StatusConflict},
		{name: "rate limited", err: app.ErrBroadcastRateLimited, want: http.StatusTooManyRequests},
		{name: "unknown error", err: errors.New("boom"), want: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.writeServiceError(rec, "test_endpoint", tt.err)
			if rec.Code != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, rec.Code)
			}
		})
	}
}

func TestWriteServiceError_RateLimitedSetsRetryAfter(t *testing.T) {
	h := NewModerationHandlers(nil)

	rec := httptest.NewRecorder()
	h.writeServiceError(rec, "send_message", &app.RateLimitedError{RetryAfterSeconds: 30})
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	if got := rec.Header().Get("Retry-After"); got != "30" {
		t.Fatalf("expected Retry-After 30, got %q", got)
	}
}
