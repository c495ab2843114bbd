/**
 * @description
 * This file contains the HTTP handlers for the per-user notification ledger:
 * the paginated listing with unread count and the read/archive status update.
 *
 * @dependencies
 * - encoding/json, net/http, strings: Standard Go libraries.
 * - github.com/go-chi/chi/v5, github.com/google/uuid: Routing and IDs.
 * - internal/domain: For the notification models.
 */

package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/singflex/moderation-service/internal/domain"
)

type notificationUpdatePayload struct {
	Status string `json:"status"`
}

// ListNotificationsHandler returns one page of the caller's notifications with
// the total and unread counters. `?status=` narrows to one ledger state.
func (h *ModerationHandlers) ListNotificationsHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserID(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "Could not get user ID from context")
		return
	}

	page, err := parsePositiveIntParam(r.URL.Query().Get("page"), 1)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid page")
		return
	}
	limit, err := parsePositiveIntParam(r.URL.Query().Get("limit"), 20)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid limit")
		return
	}

	opts := domain.NotificationListOptions{Page: page, Limit: limit}
	if raw := strings.TrimSpace(strings.ToLower(r.URL.Query().Get("status"))); raw != "" {
		status := domain.NotificationStatus(raw)
		if !status.IsValid() {
			h.writeError(w, http.StatusBadRequest, "Invalid status")
			return
		}
		opts.Status = &status
	}

	pageResult, err := h.service.ListNotifications(r.Context(), userID, opts)
	if err != nil {
		h.writeServiceError(w, "list_notifications", err)
		return
	}
	h.writeJSON(w, http.StatusOK, pageResult)
}

// UpdateNotificationHandler transitions one of the caller's notifications to
// read or archived. Unread cannot be restored through this endpoint.
func (h *ModerationHandlers) UpdateNotificationHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserID(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "Could not get user ID from context")
		return
	}

	notificationID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid notification ID")
		return
	}

	var payload notificationUpdatePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	var notification *domain.Notification
	switch domain.NotificationStatus(strings.TrimSpace(strings.ToLower(payload.Status))) {
	case domain.NotificationStatusRead:
		notification, err = h.service.MarkNotificationRead(r.Context(), userID, notificationID)
	case domain.NotificationStatusArchived:
		notification, err = h.service.ArchiveNotification(r.Context(), userID, notificationID)
	default:
		h.writeError(w, http.StatusBadRequest, "Status must be read or archived")
		return
	}
	if err != nil {
		h.writeServiceError(w, "update_notification", err)
		return
	}
	h.writeJSON(w, http.StatusOK, notification)
}
