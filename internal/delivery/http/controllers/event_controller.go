package controllers

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"eventreminders/internal/delivery/http/helpers"
	"eventreminders/internal/delivery/http/middleware"
	"eventreminders/internal/domain"
	"eventreminders/internal/timezone"
)

// CreateEventRequest is the request body for POST /events.
// date_time is RFC 3339 or "YYYY-MM-DD HH:MM" in the configured zone.
type CreateEventRequest struct {
	Title       string  `json:"title"`
	Description *string `json:"description"`
	DateTime    *string `json:"date_time"`
	Status      *string `json:"status"`
}

// Validate implements Validator.
func (c CreateEventRequest) Validate() []string {
	var errs []string
	if strings.TrimSpace(c.Title) == "" {
		errs = append(errs, "title is required")
	}
	if c.DateTime != nil && !validDateTime(*c.DateTime) {
		errs = append(errs, "date_time must be RFC 3339 or YYYY-MM-DD HH:MM")
	}
	if c.Status != nil && !domain.EventStatus(*c.Status).Valid() {
		errs = append(errs, "status must be one of draft, approved, active, archived")
	}
	return errs
}

// UpdateEventRequest is the request body for PATCH /events/{eventID}. Omitted fields are unchanged.
type UpdateEventRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	DateTime    *string `json:"date_time"`
	Status      *string `json:"status"`
}

// Validate implements Validator.
func (u UpdateEventRequest) Validate() []string {
	var errs []string
	if u.Title != nil && strings.TrimSpace(*u.Title) == "" {
		errs = append(errs, "title must not be empty")
	}
	if u.DateTime != nil && !validDateTime(*u.DateTime) {
		errs = append(errs, "date_time must be RFC 3339 or YYYY-MM-DD HH:MM")
	}
	if u.Status != nil && !domain.EventStatus(*u.Status).Valid() {
		errs = append(errs, "status must be one of draft, approved, active, archived")
	}
	if u.Title == nil && u.Description == nil && u.DateTime == nil && u.Status == nil {
		errs = append(errs, "at least one field is required")
	}
	return errs
}

// EventResponse is an event plus its date in the configured zone.
type EventResponse struct {
	*domain.Event
	DateTimeLocal string `json:"date_time_local,omitempty"`
}

// EventSuccessResponse is the success response envelope for event endpoints.
type EventSuccessResponse struct {
	Data  EventResponse     `json:"data"`
	Error *helpers.APIError `json:"error"`
}

type EventController struct {
	Logger  *slog.Logger
	Service domain.EventService
	TZ      *timezone.Converter
}

func NewEventController(logger *slog.Logger, svc domain.EventService, tz *timezone.Converter) *EventController {
	return &EventController{
		Logger:  logger,
		Service: svc,
		TZ:      tz,
	}
}

func (c *EventController) response(e *domain.Event) EventResponse {
	resp := EventResponse{Event: e}
	if e.DateTime != nil {
		resp.DateTimeLocal = c.TZ.Format(*e.DateTime)
	}
	return resp
}

// CreateEvent godoc
// @Summary Create an event
// @Description Creates an event owned by the authenticated organizer. Status defaults to draft.
// @Tags events
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param event body CreateEventRequest true "Event data"
// @Success 201 {object} controllers.EventSuccessResponse "data contains the created event"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events [post]
func (c *EventController) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var req CreateEventRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	organizerID, ok := middleware.OrganizerIDFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}
	var dateTime *time.Time
	if req.DateTime != nil {
		t, err := parseDateTime(c.TZ, *req.DateTime)
		if err != nil {
			helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "invalid date_time")
			return
		}
		dateTime = &t
	}
	event := domain.NewEvent(req.Title, req.Description, dateTime, organizerID, time.Time{}, time.Time{})
	if req.Status != nil {
		event.Status = domain.EventStatus(*req.Status)
	}
	if err := c.Service.CreateEvent(r.Context(), event); err != nil {
		writeServiceError(w, r, c.Logger, err, "event not found")
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusCreated, c.response(event))
}

// GetEvent godoc
// @Summary Get an event by ID
// @Tags events
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Success 200 {object} controllers.EventSuccessResponse "data contains the event"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventID} [get]
func (c *EventController) GetEvent(w http.ResponseWriter, r *http.Request) {
	eventID, ok := helpers.PathUUID(w, r, "eventID")
	if !ok {
		return
	}
	event, err := c.Service.GetEvent(r.Context(), eventID)
	if err != nil {
		writeServiceError(w, r, c.Logger, err, "event not found")
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, c.response(event))
}

// UpdateEvent godoc
// @Summary Update an event
// @Description Partially updates an event. Changing date_time discards the event's unsent scheduled notifications and schedules them again from the new time.
// @Tags events
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Param event body UpdateEventRequest true "Fields to change"
// @Success 200 {object} controllers.EventSuccessResponse "data contains the updated event"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventID} [patch]
func (c *EventController) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	eventID, ok := helpers.PathUUID(w, r, "eventID")
	if !ok {
		return
	}
	var req UpdateEventRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	upd := domain.EventUpdate{Title: req.Title, Description: req.Description}
	if req.DateTime != nil {
		t, err := parseDateTime(c.TZ, *req.DateTime)
		if err != nil {
			helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "invalid date_time")
			return
		}
		upd.DateTime = &t
	}
	if req.Status != nil {
		s := domain.EventStatus(*req.Status)
		upd.Status = &s
	}
	event, err := c.Service.UpdateEvent(r.Context(), eventID, upd)
	if err != nil {
		writeServiceError(w, r, c.Logger, err, "event not found")
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, c.response(event))
}
