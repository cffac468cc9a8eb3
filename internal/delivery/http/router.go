package http

import (
	"log/slog"
	"net/http"

	httpSwagger "github.com/swaggo/http-swagger"

	"eventreminders/internal/delivery/http/controllers"
	"eventreminders/internal/delivery/http/middleware"
	"eventreminders/internal/domain"
)

// Controllers groups the handlers mounted by NewRouter.
type Controllers struct {
	Events        *controllers.EventController
	Registrations *controllers.RegistrationController
	Notifications *controllers.NotificationController
	Broadcast     *controllers.BroadcastController
	Health        *controllers.HealthController
}

// NewRouter initializes the HTTP router with all application routes.
// Everything except /health and /swagger/ requires an organizer token.
func NewRouter(c Controllers, verifier domain.TokenVerifier, logger *slog.Logger) *http.ServeMux {
	mux := http.NewServeMux()
	auth := middleware.RequireAuth(verifier, logger)

	// Events
	mux.HandleFunc("POST /events", auth(c.Events.CreateEvent))
	mux.HandleFunc("GET /events/{eventID}", auth(c.Events.GetEvent))
	mux.HandleFunc("PATCH /events/{eventID}", auth(c.Events.UpdateEvent))

	// Registrations
	mux.HandleFunc("POST /events/{eventID}/registrations", auth(c.Registrations.Register))
	mux.HandleFunc("DELETE /registrations/{registrationID}", auth(c.Registrations.CancelRegistration))
	mux.HandleFunc("PUT /registrations/{registrationID}/confirmation", auth(c.Registrations.SetConfirmation))

	// Notifications
	mux.HandleFunc("POST /notification-templates", auth(c.Notifications.CreateTemplate))
	mux.HandleFunc("GET /notification-templates", auth(c.Notifications.ListTemplates))
	mux.HandleFunc("GET /notification-templates/{templateID}", auth(c.Notifications.GetTemplate))
	mux.HandleFunc("POST /events/{eventID}/notification-rules", auth(c.Notifications.AddRule))
	mux.HandleFunc("PATCH /notification-rules/{ruleID}", auth(c.Notifications.UpdateRule))
	mux.HandleFunc("GET /events/{eventID}/scheduled-notifications", auth(c.Notifications.ListScheduled))
	mux.HandleFunc("POST /events/{eventID}/broadcast", auth(c.Broadcast.Broadcast))

	mux.HandleFunc("GET /health", c.Health.Health)

	// Swagger
	mux.Handle("/swagger/", httpSwagger.WrapHandler)

	return mux
}
