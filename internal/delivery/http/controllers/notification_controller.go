package controllers

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"eventreminders/internal/delivery/http/helpers"
	"eventreminders/internal/domain"
	"eventreminders/internal/timezone"
)

// CreateTemplateRequest is the request body for POST /notification-templates.
// Exactly one of time_before_event_minutes and absolute_date_time must be set.
type CreateTemplateRequest struct {
	Name                   string  `json:"name"`
	TimeBeforeEventMinutes *int    `json:"time_before_event_minutes"`
	AbsoluteDateTime       *string `json:"absolute_date_time"`
	MessageTemplate        string  `json:"message_template"`
}

// Validate implements Validator.
func (c CreateTemplateRequest) Validate() []string {
	var errs []string
	if strings.TrimSpace(c.Name) == "" {
		errs = append(errs, "name is required")
	}
	switch {
	case c.TimeBeforeEventMinutes == nil && c.AbsoluteDateTime == nil:
		errs = append(errs, "one of time_before_event_minutes or absolute_date_time is required")
	case c.TimeBeforeEventMinutes != nil && c.AbsoluteDateTime != nil:
		errs = append(errs, "time_before_event_minutes and absolute_date_time are mutually exclusive")
	case c.TimeBeforeEventMinutes != nil && *c.TimeBeforeEventMinutes < 0:
		errs = append(errs, "time_before_event_minutes must not be negative")
	case c.AbsoluteDateTime != nil && !validDateTime(*c.AbsoluteDateTime):
		errs = append(errs, "absolute_date_time must be RFC 3339 or YYYY-MM-DD HH:MM")
	}
	return errs
}

// AddRuleRequest is the request body for POST /events/{eventID}/notification-rules.
// enabled and include_buttons default to true.
type AddRuleRequest struct {
	TemplateID        *string  `json:"template_id"`
	CustomTimeMinutes *int     `json:"custom_time_minutes"`
	Enabled           *bool    `json:"enabled"`
	IncludeButtons    *bool    `json:"include_buttons"`
	RecipientIDs      []string `json:"recipient_ids"`
}

// Validate implements Validator.
func (a AddRuleRequest) Validate() []string {
	var errs []string
	if a.TemplateID != nil && uuid.Validate(*a.TemplateID) != nil {
		errs = append(errs, "template_id must be a valid UUID")
	}
	if a.TemplateID != nil && a.CustomTimeMinutes != nil {
		errs = append(errs, "template_id and custom_time_minutes are mutually exclusive")
	}
	if a.CustomTimeMinutes != nil && *a.CustomTimeMinutes < 0 {
		errs = append(errs, "custom_time_minutes must not be negative")
	}
	return errs
}

// UpdateRuleRequest is the request body for PATCH /notification-rules/{ruleID}.
// Setting template_id clears the custom offset and vice versa.
type UpdateRuleRequest struct {
	TemplateID        *string   `json:"template_id"`
	CustomTimeMinutes *int      `json:"custom_time_minutes"`
	ClearTemplate     bool      `json:"clear_template"`
	ClearCustomTime   bool      `json:"clear_custom_time"`
	Enabled           *bool     `json:"enabled"`
	IncludeButtons    *bool     `json:"include_buttons"`
	RecipientIDs      *[]string `json:"recipient_ids"`
}

// Validate implements Validator.
func (u UpdateRuleRequest) Validate() []string {
	var errs []string
	if u.TemplateID != nil && uuid.Validate(*u.TemplateID) != nil {
		errs = append(errs, "template_id must be a valid UUID")
	}
	if u.TemplateID != nil && u.CustomTimeMinutes != nil {
		errs = append(errs, "template_id and custom_time_minutes are mutually exclusive")
	}
	if u.CustomTimeMinutes != nil && *u.CustomTimeMinutes < 0 {
		errs = append(errs, "custom_time_minutes must not be negative")
	}
	return errs
}

// TemplateSuccessResponse is the success response envelope for a single template.
type TemplateSuccessResponse struct {
	Data  *domain.NotificationTemplate `json:"data"`
	Error *helpers.APIError            `json:"error"`
}

// ListTemplatesResponse is the data payload for GET /notification-templates.
type ListTemplatesResponse struct {
	Items      []*domain.NotificationTemplate `json:"items"`
	Pagination helpers.PaginationMeta         `json:"pagination"`
}

// ListTemplatesSuccessResponse is the success response envelope for GET /notification-templates.
type ListTemplatesSuccessResponse struct {
	Data  ListTemplatesResponse `json:"data"`
	Error *helpers.APIError     `json:"error"`
}

// RuleResponse is a rule plus the outcome of scheduling it.
type RuleResponse struct {
	Rule     *domain.NotificationRule `json:"rule"`
	Schedule domain.ScheduleReport    `json:"schedule"`
}

// RuleSuccessResponse is the success response envelope for rule endpoints.
type RuleSuccessResponse struct {
	Data  RuleResponse      `json:"data"`
	Error *helpers.APIError `json:"error"`
}

// ScheduledNotificationView is a scheduled notification with its fire time in the configured zone.
type ScheduledNotificationView struct {
	*domain.ScheduledNotification
	ScheduledTimeLocal string `json:"scheduled_time_local"`
}

// ListScheduledSuccessResponse is the success response envelope for GET /events/{eventID}/scheduled-notifications.
type ListScheduledSuccessResponse struct {
	Data  []ScheduledNotificationView `json:"data"`
	Error *helpers.APIError           `json:"error"`
}

type NotificationController struct {
	Logger  *slog.Logger
	Service domain.NotificationRuleService
	TZ      *timezone.Converter
}

func NewNotificationController(logger *slog.Logger, svc domain.NotificationRuleService, tz *timezone.Converter) *NotificationController {
	return &NotificationController{Logger: logger, Service: svc, TZ: tz}
}

// CreateTemplate godoc
// @Summary Create a notification template
// @Description Creates a reusable timing definition with a message body. The body may use {event_title}, {event_date} and {event_description}.
// @Tags notifications
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param template body CreateTemplateRequest true "Template data"
// @Success 201 {object} controllers.TemplateSuccessResponse "data contains the created template"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict (name taken)"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /notification-templates [post]
func (c *NotificationController) CreateTemplate(w http.ResponseWriter, r *http.Request) {
	var req CreateTemplateRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	t := &domain.NotificationTemplate{
		Name:                   req.Name,
		TimeBeforeEventMinutes: req.TimeBeforeEventMinutes,
		MessageTemplate:        req.MessageTemplate,
	}
	if req.AbsoluteDateTime != nil {
		abs, err := parseDateTime(c.TZ, *req.AbsoluteDateTime)
		if err != nil {
			helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "invalid absolute_date_time")
			return
		}
		t.AbsoluteDateTime = &abs
	}
	if err := c.Service.CreateTemplate(r.Context(), t); err != nil {
		writeServiceError(w, r, c.Logger, err, "notification template not found")
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusCreated, t)
}

// GetTemplate godoc
// @Summary Get a notification template
// @Tags notifications
// @Produce json
// @Security BearerAuth
// @Param templateID path string true "Template ID (UUID)"
// @Success 200 {object} controllers.TemplateSuccessResponse "data contains the template"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /notification-templates/{templateID} [get]
func (c *NotificationController) GetTemplate(w http.ResponseWriter, r *http.Request) {
	templateID, ok := helpers.PathUUID(w, r, "templateID")
	if !ok {
		return
	}
	t, err := c.Service.GetTemplate(r.Context(), templateID)
	if err != nil {
		writeServiceError(w, r, c.Logger, err, "notification template not found")
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, t)
}

// ListTemplates godoc
// @Summary List notification templates
// @Description Templates ordered by name.
// @Tags notifications
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number (default 1)"
// @Param page_size query int false "Page size (default 20, max 100)"
// @Success 200 {object} controllers.ListTemplatesSuccessResponse "data contains items and pagination"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /notification-templates [get]
func (c *NotificationController) ListTemplates(w http.ResponseWriter, r *http.Request) {
	params := helpers.ParsePagination(r)
	items, total, err := c.Service.ListTemplates(r.Context(), params)
	if err != nil {
		writeServiceError(w, r, c.Logger, err, "notification template not found")
		return
	}
	if items == nil {
		items = []*domain.NotificationTemplate{}
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, ListTemplatesResponse{
		Items:      items,
		Pagination: helpers.NewPaginationMeta(params.Page, params.PageSize, total),
	})
}

// AddRule godoc
// @Summary Add a notification rule to an event
// @Description Binds a template or a custom offset in minutes to the event. An enabled rule is scheduled for every current registration right away.
// @Tags notifications
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Param rule body AddRuleRequest true "Rule data"
// @Success 201 {object} controllers.RuleSuccessResponse "data contains the rule and the scheduling report"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found (event or template)"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventID}/notification-rules [post]
func (c *NotificationController) AddRule(w http.ResponseWriter, r *http.Request) {
	eventID, ok := helpers.PathUUID(w, r, "eventID")
	if !ok {
		return
	}
	var req AddRuleRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	rule := &domain.NotificationRule{
		EventID:           eventID,
		TemplateID:        req.TemplateID,
		CustomTimeMinutes: req.CustomTimeMinutes,
		Enabled:           boolOr(req.Enabled, true),
		IncludeButtons:    boolOr(req.IncludeButtons, true),
		RecipientIDs:      req.RecipientIDs,
	}
	report, err := c.Service.AddRule(r.Context(), rule)
	if err != nil {
		writeServiceError(w, r, c.Logger, err, "event not found")
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusCreated, RuleResponse{Rule: rule, Schedule: report})
}

// UpdateRule godoc
// @Summary Update a notification rule
// @Description Partially updates a rule. The event's unsent scheduled notifications are discarded and scheduled again from the current rules.
// @Tags notifications
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param ruleID path string true "Rule ID (UUID)"
// @Param rule body UpdateRuleRequest true "Fields to change"
// @Success 200 {object} controllers.RuleSuccessResponse "data contains the rule and the scheduling report"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found (rule or template)"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /notification-rules/{ruleID} [patch]
func (c *NotificationController) UpdateRule(w http.ResponseWriter, r *http.Request) {
	ruleID, ok := helpers.PathUUID(w, r, "ruleID")
	if !ok {
		return
	}
	var req UpdateRuleRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	upd := domain.NotificationRuleUpdate{
		TemplateID:        req.TemplateID,
		CustomTimeMinutes: req.CustomTimeMinutes,
		ClearTemplate:     req.ClearTemplate,
		ClearCustomTime:   req.ClearCustomTime,
		Enabled:           req.Enabled,
		IncludeButtons:    req.IncludeButtons,
		RecipientIDs:      req.RecipientIDs,
	}
	rule, report, err := c.Service.UpdateRule(r.Context(), ruleID, upd)
	if err != nil {
		writeServiceError(w, r, c.Logger, err, "notification rule not found")
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, RuleResponse{Rule: rule, Schedule: report})
}

// ListScheduled godoc
// @Summary List an event's scheduled notifications
// @Description Sent and pending notifications ordered by fire time.
// @Tags notifications
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Success 200 {object} controllers.ListScheduledSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventID}/scheduled-notifications [get]
func (c *NotificationController) ListScheduled(w http.ResponseWriter, r *http.Request) {
	eventID, ok := helpers.PathUUID(w, r, "eventID")
	if !ok {
		return
	}
	rows, err := c.Service.ListScheduled(r.Context(), eventID)
	if err != nil {
		writeServiceError(w, r, c.Logger, err, "event not found")
		return
	}
	views := make([]ScheduledNotificationView, 0, len(rows))
	for _, n := range rows {
		views = append(views, ScheduledNotificationView{
			ScheduledNotification: n,
			ScheduledTimeLocal:    c.TZ.Format(n.ScheduledTime),
		})
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, views)
}

func boolOr(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}
