package domain

import (
	"context"
	"time"
)

// NotificationKind tags how a scheduled notification's fire time was derived.
type NotificationKind string

const (
	NotificationKindTemplate NotificationKind = "template"
	NotificationKindCustom   NotificationKind = "custom"
)

// Template placeholders substituted when a message body is rendered.
const (
	PlaceholderEventTitle       = "{event_title}"
	PlaceholderEventDate        = "{event_date}"
	PlaceholderEventDescription = "{event_description}"
)

// NotificationTemplate is a reusable rule definition. Exactly one of
// TimeBeforeEventMinutes and AbsoluteDateTime is set.
// swagger:model NotificationTemplate
type NotificationTemplate struct {
	ID                     string     `json:"id"`
	Name                   string     `json:"name"`
	TimeBeforeEventMinutes *int       `json:"time_before_event_minutes,omitempty"`
	AbsoluteDateTime       *time.Time `json:"absolute_date_time,omitempty"` // UTC
	MessageTemplate        string     `json:"message_template"`
	CreatedAt              time.Time  `json:"created_at"`
}

// Validate checks the timing fields are mutually exclusive and that one is present.
func (t *NotificationTemplate) Validate() []string {
	var errs []string
	if t.Name == "" {
		errs = append(errs, "name is required")
	}
	switch {
	case t.TimeBeforeEventMinutes == nil && t.AbsoluteDateTime == nil:
		errs = append(errs, "one of time_before_event_minutes or absolute_date_time is required")
	case t.TimeBeforeEventMinutes != nil && t.AbsoluteDateTime != nil:
		errs = append(errs, "time_before_event_minutes and absolute_date_time are mutually exclusive")
	case t.TimeBeforeEventMinutes != nil && *t.TimeBeforeEventMinutes < 0:
		errs = append(errs, "time_before_event_minutes must not be negative")
	}
	return errs
}

// NotificationRule binds an event to either a template or an inline custom offset.
// RecipientIDs, when nil, means the organizer-facing defaults apply (see ResolveOrganizerRecipients).
// swagger:model NotificationRule
type NotificationRule struct {
	ID                string   `json:"id"`
	EventID           string   `json:"event_id"`
	TemplateID        *string  `json:"template_id,omitempty"`
	CustomTimeMinutes *int     `json:"custom_time_minutes,omitempty"`
	Enabled           bool     `json:"enabled"`
	IncludeButtons    bool     `json:"include_buttons"`
	RecipientIDs      []string `json:"recipient_ids,omitempty"`
}

// Validate checks that the template and the custom offset are not both set.
func (r *NotificationRule) Validate() []string {
	var errs []string
	if r.TemplateID != nil && r.CustomTimeMinutes != nil {
		errs = append(errs, "template_id and custom_time_minutes are mutually exclusive")
	}
	if r.CustomTimeMinutes != nil && *r.CustomTimeMinutes < 0 {
		errs = append(errs, "custom_time_minutes must not be negative")
	}
	return errs
}

// NotificationRuleUpdate carries the optional fields of a partial rule update.
// ClearTemplate and ClearCustomTime switch a rule from one timing source to the other.
type NotificationRuleUpdate struct {
	TemplateID        *string
	CustomTimeMinutes *int
	ClearTemplate     bool
	ClearCustomTime   bool
	Enabled           *bool
	IncludeButtons    *bool
	RecipientIDs      *[]string
}

// Apply returns a copy of r with u applied.
func (u NotificationRuleUpdate) Apply(r NotificationRule) NotificationRule {
	if u.ClearTemplate {
		r.TemplateID = nil
	}
	if u.ClearCustomTime {
		r.CustomTimeMinutes = nil
	}
	if u.TemplateID != nil {
		r.TemplateID = u.TemplateID
		r.CustomTimeMinutes = nil
	}
	if u.CustomTimeMinutes != nil {
		r.CustomTimeMinutes = u.CustomTimeMinutes
		r.TemplateID = nil
	}
	if u.Enabled != nil {
		r.Enabled = *u.Enabled
	}
	if u.IncludeButtons != nil {
		r.IncludeButtons = *u.IncludeButtons
	}
	if u.RecipientIDs != nil {
		r.RecipientIDs = *u.RecipientIDs
	}
	return r
}

// ScheduledNotification is one materialized reminder for one registration.
// At most one row exists per (EventID, RegistrationID, ScheduledTime).
// swagger:model ScheduledNotification
type ScheduledNotification struct {
	ID             string           `json:"id"`
	EventID        string           `json:"event_id"`
	RegistrationID string           `json:"registration_id"`
	Kind           NotificationKind `json:"kind"`
	ScheduledTime  time.Time        `json:"scheduled_time"` // UTC
	Sent           bool             `json:"sent"`
	SentAt         *time.Time       `json:"sent_at,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
}

// NotificationTemplateRepository defines storage for notification templates.
type NotificationTemplateRepository interface {
	Create(ctx context.Context, t *NotificationTemplate) error
	GetByID(ctx context.Context, id string) (*NotificationTemplate, error)
	List(ctx context.Context, params PaginationParams) ([]*NotificationTemplate, int, error)
}

// NotificationRuleRepository defines storage for per-event notification rules.
type NotificationRuleRepository interface {
	Create(ctx context.Context, r *NotificationRule) error
	GetByID(ctx context.Context, id string) (*NotificationRule, error)
	Update(ctx context.Context, r *NotificationRule) error
	ListEnabledByEventID(ctx context.Context, eventID string) ([]*NotificationRule, error)
}

// ScheduledNotificationRepository defines storage for materialized notifications.
type ScheduledNotificationRepository interface {
	// Create inserts n unless a row with the same (event, registration, scheduled time)
	// exists. It reports whether a row was inserted.
	Create(ctx context.Context, n *ScheduledNotification) (bool, error)
	ListDue(ctx context.Context, now time.Time) ([]*ScheduledNotification, error)
	ListByEventID(ctx context.Context, eventID string) ([]*ScheduledNotification, error)
	MarkSent(ctx context.Context, id string, sentAt time.Time) error
	Delete(ctx context.Context, id string) error
	// DeleteUpcomingByEventID removes unsent rows scheduled after the given instant. Overdue
	// unsent rows are retries in progress and stay.
	DeleteUpcomingByEventID(ctx context.Context, eventID string, after time.Time) (int64, error)
}

// ScheduleReport summarizes one materialization pass.
type ScheduleReport struct {
	Created    int `json:"created"`
	Duplicates int `json:"duplicates"`
	Stale      int `json:"stale"`
	Skipped    int `json:"skipped"`
}

// Add accumulates o into r.
func (r *ScheduleReport) Add(o ScheduleReport) {
	r.Created += o.Created
	r.Duplicates += o.Duplicates
	r.Stale += o.Stale
	r.Skipped += o.Skipped
}

// NotificationScheduler materializes rules into scheduled notifications.
type NotificationScheduler interface {
	ScheduleForEvent(ctx context.Context, eventID string) (ScheduleReport, error)
	ScheduleForRegistration(ctx context.Context, reg *Registration) (ScheduleReport, error)
}

// DeliveryOutcome classifies one delivery attempt.
type DeliveryOutcome string

const (
	OutcomeDelivered        DeliveryOutcome = "delivered"
	OutcomePermanentFailure DeliveryOutcome = "permanent_failure"
	OutcomeTransientFailure DeliveryOutcome = "transient_failure"
	OutcomeDropped          DeliveryOutcome = "dropped"
)

// DeliveryService delivers a single due scheduled notification and records the outcome.
type DeliveryService interface {
	Deliver(ctx context.Context, n *ScheduledNotification) (DeliveryOutcome, error)
}

// NotificationRuleService defines organizer-facing operations on templates and rules.
type NotificationRuleService interface {
	CreateTemplate(ctx context.Context, t *NotificationTemplate) error
	GetTemplate(ctx context.Context, templateID string) (*NotificationTemplate, error)
	ListTemplates(ctx context.Context, params PaginationParams) ([]*NotificationTemplate, int, error)
	AddRule(ctx context.Context, rule *NotificationRule) (ScheduleReport, error)
	UpdateRule(ctx context.Context, ruleID string, upd NotificationRuleUpdate) (*NotificationRule, ScheduleReport, error)
	ListScheduled(ctx context.Context, eventID string) ([]*ScheduledNotification, error)
}
