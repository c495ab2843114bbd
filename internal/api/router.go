/**
 * @description
 * This file sets up the HTTP router for the moderation-service. It defines the
 * API endpoints, associates them with their corresponding handlers, and applies
 * the middleware stack: logging, panic recovery, timeouts, CORS, JWT
 * authentication, and the administrator gate on the admin route group.
 *
 * @dependencies
 * - net/http: Standard Go library for HTTP functionality.
 * - github.com/go-chi/chi/v5: A lightweight and idiomatic router for Go.
 * - github.com/go-chi/cors: CORS middleware for the admin dashboard origin.
 */

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// ModerationRoutes creates and returns a new router for the moderation service.
func ModerationRoutes(h *ModerationHandlers, jwtSecret string, allowedOrigins []string) http.Handler {
	r := chi.NewRouter()

	// Add standard middleware for logging, panic recovery, and timeouts.
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("healthy"))
	})

	// Authenticated end-user endpoints.
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(jwtSecret))

		r.Post("/profile/verification/submit", h.SubmitVerificationHandler)
		r.Patch("/profile/verification/documents", h.UpdateVerificationDocumentsHandler)

		r.Get("/messages", h.ListInboxHandler)
		r.Post("/messages/{id}/read", h.MarkMessageReadHandler)

		r.Get("/notifications", h.ListNotificationsHandler)
		r.Patch("/notifications/{id}", h.UpdateNotificationHandler)
	})

	// Administrator endpoints.
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(jwtSecret))
		r.Use(RequireAdmin)

		r.Get("/admin/users/{id}/verification", h.GetVerificationHandler)
		r.Patch("/admin/users/{id}/verification", h.UpdateVerificationHandler)
		r.Get("/admin/verification/stats", h.VerificationStatsHandler)

		r.Post("/admin/messages/send", h.SendMessageHandler)
		r.Get("/admin/messages", h.ListMessagesHandler)
	})

	return r
}
