package controllers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"eventreminders/internal/delivery/http/helpers"
)

// Pinger reports database reachability.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// DispatcherStatus reports whether the background dispatcher loop is started.
type DispatcherStatus interface {
	Active() bool
}

// HealthResponse is the data payload for GET /health.
type HealthResponse struct {
	Status     string `json:"status"`
	Database   string `json:"database"`
	Dispatcher string `json:"dispatcher"`
}

// HealthSuccessResponse is the response envelope for GET /health.
type HealthSuccessResponse struct {
	Data  HealthResponse    `json:"data"`
	Error *helpers.APIError `json:"error"`
}

type HealthController struct {
	Logger     *slog.Logger
	DB         Pinger
	Dispatcher DispatcherStatus
	Timeout    time.Duration
}

func NewHealthController(logger *slog.Logger, db Pinger, dispatcher DispatcherStatus, timeout time.Duration) *HealthController {
	return &HealthController{Logger: logger, DB: db, Dispatcher: dispatcher, Timeout: timeout}
}

// Health godoc
// @Summary Liveness and readiness
// @Description Reports database reachability and whether the dispatcher loop is running. Returns 503 when the database is unreachable.
// @Tags health
// @Produce json
// @Success 200 {object} controllers.HealthSuccessResponse
// @Failure 503 {object} controllers.HealthSuccessResponse
// @Router /health [get]
func (c *HealthController) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), c.Timeout)
	defer cancel()

	resp := HealthResponse{Status: "ok", Database: "ok", Dispatcher: "stopped"}
	status := http.StatusOK
	if err := c.DB.PingContext(ctx); err != nil {
		c.Logger.WarnContext(ctx, "database ping failed", "err", err)
		resp.Status = "unavailable"
		resp.Database = "unreachable"
		status = http.StatusServiceUnavailable
	}
	if c.Dispatcher != nil && c.Dispatcher.Active() {
		resp.Dispatcher = "running"
	}
	helpers.WriteJSONSuccess(w, status, resp)
}
