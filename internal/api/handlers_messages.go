/**
 * @description
 * This file contains the HTTP handlers for admin broadcast messages: the admin
 * send and message-log endpoints, and the end-user inbox listing and mark-read
 * endpoints.
 *
 * @dependencies
 * - encoding/json, net/http, strings: Standard Go libraries.
 * - github.com/go-chi/chi/v5, github.com/google/uuid: Routing and IDs.
 * - internal/app, internal/domain: Service logic and models.
 */

package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/singflex/moderation-service/internal/app"
	"github.com/singflex/moderation-service/internal/domain"
)

type sendMessagePayload struct {
	RecipientType   string                   `json:"recipient_type"`
	RecipientFilter app.RecipientFilterInput `json:"recipient_filter"`
	Subject         string                   `json:"subject"`
	Body            string                   `json:"body"`
}

type messageListResponse struct {
	Messages []domain.MessageSummary `json:"messages"`
	Page     int                     `json:"page"`
	Limit    int                     `json:"limit"`
	Total    int64                   `json:"total"`
}

// SendMessageHandler sends an admin broadcast to the audience the filter
// resolves. A filter that matches nobody is still a successful send.
func (h *ModerationHandlers) SendMessageHandler(w http.ResponseWriter, r *http.Request) {
	admin, ok := h.adminIdentity(r)
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "Could not get user ID from context")
		return
	}

	var payload sendMessagePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	filter, err := app.ParseRecipientFilter(payload.RecipientType, payload.RecipientFilter)
	if err != nil {
		h.writeServiceError(w, "send_message", err)
		return
	}

	result, err := h.service.SendBroadcast(r.Context(), admin, payload.Subject, payload.Body, filter)
	if err != nil {
		h.writeServiceError(w, "send_message", err)
		return
	}
	h.writeJSON(w, http.StatusCreated, result)
}

// ListMessagesHandler returns the admin message log with per-message delivery
// and read counts, newest first.
func (h *ModerationHandlers) ListMessagesHandler(w http.ResponseWriter, r *http.Request) {
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

	opts := domain.MessageListOptions{Page: page, Limit: limit}
	if raw := strings.TrimSpace(r.URL.Query().Get("sender_id")); raw != "" {
		senderID, err := uuid.Parse(raw)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "Invalid sender ID")
			return
		}
		opts.SenderID = &senderID
	}

	messages, total, err := h.service.ListMessages(r.Context(), opts)
	if err != nil {
		h.writeServiceError(w, "list_messages", err)
		return
	}
	h.writeJSON(w, http.StatusOK, messageListResponse{
		Messages: messages,
		Page:     page,
		Limit:    limit,
		Total:    total,
	})
}

// ListInboxHandler returns the authenticated user's received messages, newest
// first. `?unread=true` restricts the listing to unread deliveries.
func (h *ModerationHandlers) ListInboxHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserID(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "Could not get user ID from context")
		return
	}

	unreadOnly := strings.EqualFold(strings.TrimSpace(r.URL.Query().Get("unread")), "true")

	messages, err := h.service.ListInboxMessages(r.Context(), userID, unreadOnly)
	if err != nil {
		h.writeServiceError(w, "list_inbox", err)
		return
	}
	h.writeJSON(w, http.StatusOK, messages)
}

// MarkMessageReadHandler marks the caller's delivery of a message as read.
// Repeat calls keep the original read timestamp.
func (h *ModerationHandlers) MarkMessageReadHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserID(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "Could not get user ID from context")
		return
	}

	messageID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid message ID")
		return
	}

	recipient, err := h.service.MarkMessageRead(r.Context(), userID, messageID)
	if err != nil {
		h.writeServiceError(w, "mark_message_read", err)
		return
	}
	h.writeJSON(w, http.StatusOK, recipient)
}
