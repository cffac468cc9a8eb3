package controllers

import (
	"log/slog"
	"net/http"

	"eventreminders/internal/delivery/http/helpers"
	"eventreminders/internal/domain"
)

// BroadcastRequest is the request body for POST /events/{eventID}/broadcast.
// An empty text sends the default event notice.
type BroadcastRequest struct {
	Text string `json:"text"`
}

// BroadcastSuccessResponse is the success response envelope for POST /events/{eventID}/broadcast.
type BroadcastSuccessResponse struct {
	Data  domain.BroadcastResult `json:"data"`
	Error *helpers.APIError      `json:"error"`
}

type BroadcastController struct {
	Logger  *slog.Logger
	Service domain.BroadcastService
}

func NewBroadcastController(logger *slog.Logger, svc domain.BroadcastService) *BroadcastController {
	return &BroadcastController{Logger: logger, Service: svc}
}

// Broadcast godoc
// @Summary Send a message to every registrant now
// @Description Sends immediately and waits until every send has finished. Placeholders such as {event_title} are substituted.
// @Tags broadcast
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Param message body BroadcastRequest true "Message text"
// @Success 200 {object} controllers.BroadcastSuccessResponse "data contains per-outcome counts"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventID}/broadcast [post]
func (c *BroadcastController) Broadcast(w http.ResponseWriter, r *http.Request) {
	eventID, ok := helpers.PathUUID(w, r, "eventID")
	if !ok {
		return
	}
	var req BroadcastRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	result, err := c.Service.SendNow(r.Context(), eventID, req.Text)
	if err != nil {
		writeServiceError(w, r, c.Logger, err, "event not found")
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, result)
}
