/**
 * @description
 * This file contains the HTTP handlers for the moderation-service's verification
 * endpoints, plus the shared response helpers and the service-error to HTTP
 * status mapping used by every handler. Handlers parse requests, call the
 * application service with the explicit caller identity, and write the response.
 *
 * @dependencies
 * - encoding/json, errors, log, net/http: Standard Go libraries.
 * - github.com/go-chi/chi/v5, github.com/google/uuid: Routing and IDs.
 * - internal/app, internal/domain, internal/store: Service logic, models, errors.
 */

package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/singflex/moderation-service/internal/app"
	"github.com/singflex/moderation-service/internal/domain"
	"github.com/singflex/moderation-service/internal/store"
)

// ModerationHandlers holds the application service that handlers will use.
type ModerationHandlers struct {
	service *app.Service
}

// NewModerationHandlers creates a new instance of ModerationHandlers.
func NewModerationHandlers(service *app.Service) *ModerationHandlers {
	return &ModerationHandlers{service: service}
}

// writeJSON is a helper for writing JSON responses.
func (h *ModerationHandlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// writeError is a helper for writing JSON error responses.
func (h *ModerationHandlers) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}

// writeServiceError maps a service-layer error onto the HTTP status taxonomy
// and writes the response. Unknown errors are logged and become 500.
func (h *ModerationHandlers) writeServiceError(w http.ResponseWriter, endpoint string, err error) {
	switch {
	case errors.Is(err, app.ErrInvalidFilter),
		errors.Is(err, app.ErrInvalidStatus),
		errors.Is(err, app.ErrSubmittedReserved),
		errors.Is(err, app.ErrMissingSubject),
		errors.Is(err, app.ErrMissingBody),
		errors.Is(err, app.ErrTooManyRecipients),
		errors.Is(err, app.ErrInvalidCompletion):
		h.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, app.ErrNotOwner):
		h.writeError(w, http.StatusForbidden, "You do not have access to this resource.")
	case errors.Is(err, store.ErrUserNotFound):
		h.writeError(w, http.StatusNotFound, "User not found.")
	case errors.Is(err, store.ErrVerificationNotFound):
		h.writeError(w, http.StatusNotFound, "Verification record not found.")
	case errors.Is(err, store.ErrMessageNotFound),
		errors.Is(err, store.ErrMessageRecipientNotFound):
		h.writeError(w, http.StatusNotFound, "Message not found.")
	case errors.Is(err, store.ErrNotificationNotFound):
		h.writeError(w, http.StatusNotFound, "Notification not found.")
	case errors.Is(err, store.ErrWriteConflict):
		h.writeError(w, http.StatusConflict, "The record was modified concurrently. Please retry.")
	case errors.Is(err, app.ErrBroadcastRateLimited):
		var limited *app.RateLimitedError
		if errors.As(err, &limited) && limited.RetryAfterSeconds > 0 {
			w.Header().Set("Retry-After", strconv.Itoa(limited.RetryAfterSeconds))
		}
		h.writeError(w, http.StatusTooManyRequests, "Too many broadcasts. Please wait and try again.")
	default:
		log.Printf("level=error component=api endpoint=%s outcome=failed err=%v", endpoint, err)
		h.writeError(w, http.StatusInternalServerError, "An internal error occurred.")
	}
}

// adminIdentity builds the caller identity from the authenticated context. The
// display name falls back to a platform default when the token omits it.
func (h *ModerationHandlers) adminIdentity(r *http.Request) (domain.AdminIdentity, bool) {
	adminID, ok := GetUserID(r.Context())
	if !ok {
		return domain.AdminIdentity{}, false
	}
	name := GetUserName(r.Context())
	if name == "" {
		name = "SingFLEX Admin"
	}
	return domain.AdminIdentity{ID: adminID, Name: name}, true
}

func parsePositiveIntParam(raw string, defaultValue int) (int, error) {
	if strings.TrimSpace(raw) == "" {
		return defaultValue, nil
	}
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, err
	}
	if value < 1 {
		return 0, errors.New("must be >= 1")
	}
	return value, nil
}

type verificationUpdatePayload struct {
	Status          string `json:"status"`
	Remark          string `json:"remark,omitempty"`
	RejectionReason string `json:"rejection_reason,omitempty"`
	FlagReason      string `json:"flag_reason,omitempty"`
}

// GetVerificationHandler returns a user's verification record for the admin
// review panel. Users without a stored record get the implicit default.
func (h *ModerationHandlers) GetVerificationHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid user ID")
		return
	}

	v, err := h.service.GetVerification(r.Context(), userID)
	if err != nil {
		h.writeServiceError(w, "get_verification", err)
		return
	}
	h.writeJSON(w, http.StatusOK, v)
}

// UpdateVerificationHandler applies an administrator review transition. The
// body's status field dispatches to the matching action; statuses without a
// dedicated action go through the narrow catch-all update.
func (h *ModerationHandlers) UpdateVerificationHandler(w http.ResponseWriter, r *http.Request) {
	admin, ok := h.adminIdentity(r)
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "Could not get user ID from context")
		return
	}

	userID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid user ID")
		return
	}

	var payload verificationUpdatePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	status := domain.VerificationStatus(strings.TrimSpace(strings.ToLower(payload.Status)))
	var v *domain.UserVerification
	switch status {
	case domain.VerificationStatusVerified:
		v, err = h.service.ApproveVerification(r.Context(), admin, userID, strings.TrimSpace(payload.Remark))
	case domain.VerificationStatusRejected:
		v, err = h.service.RejectVerification(r.Context(), admin, userID, strings.TrimSpace(payload.RejectionReason))
	case domain.VerificationStatusFlagged:
		v, err = h.service.FlagVerification(r.Context(), admin, userID, strings.TrimSpace(payload.FlagReason))
	case domain.VerificationStatusSuspended:
		v, err = h.service.SuspendVerification(r.Context(), admin, userID, strings.TrimSpace(payload.Remark))
	default:
		v, err = h.service.UpdateVerificationStatus(r.Context(), admin, userID, status, strings.TrimSpace(payload.Remark))
	}
	if err != nil {
		h.writeServiceError(w, "update_verification", err)
		return
	}
	h.writeJSON(w, http.StatusOK, v)
}

// VerificationStatsHandler returns per-status record counts for the admin dashboard.
func (h *ModerationHandlers) VerificationStatsHandler(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.GetVerificationStats(r.Context())
	if err != nil {
		h.writeServiceError(w, "verification_stats", err)
		return
	}
	h.writeJSON(w, http.StatusOK, stats)
}

// SubmitVerificationHandler moves the caller's own record to submitted.
func (h *ModerationHandlers) SubmitVerificationHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserID(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "Could not get user ID from context")
		return
	}

	v, err := h.service.SubmitVerification(r.Context(), userID)
	if err != nil {
		h.writeServiceError(w, "submit_verification", err)
		return
	}
	h.writeJSON(w, http.StatusOK, v)
}

// UpdateVerificationDocumentsHandler updates the caller's own document fields.
func (h *ModerationHandlers) UpdateVerificationDocumentsHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserID(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "Could not get user ID from context")
		return
	}

	var update domain.VerificationDocumentsUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	v, err := h.service.UpdateVerificationDocuments(r.Context(), userID, update)
	if err != nil {
		h.writeServiceError(w, "update_verification_documents", err)
		return
	}
	h.writeJSON(w, http.StatusOK, v)
}
