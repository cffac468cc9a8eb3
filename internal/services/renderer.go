package services

import (
	"strings"

	"eventreminders/internal/domain"
	"eventreminders/internal/timezone"
)

// Renderer builds message bodies from an event.
type Renderer struct {
	tz *timezone.Converter
}

// NewRenderer returns a Renderer that shows event dates in the configured zone.
func NewRenderer(tz *timezone.Converter) *Renderer {
	return &Renderer{tz: tz}
}

// Reminder renders the default reminder for an event.
func (r *Renderer) Reminder(event *domain.Event) string {
	var b strings.Builder
	b.WriteString("🔔 Event reminder!\n\n")
	b.WriteString("📅 " + event.Title + "\n")
	b.WriteString("📆 Date: " + r.date(event) + "\n")
	if event.Description != nil && *event.Description != "" {
		b.WriteString("\n" + *event.Description + "\n")
	}
	return b.String()
}

// Notice renders the default manual broadcast for an event.
func (r *Renderer) Notice(event *domain.Event) string {
	return "🔔 Event notice!\n\n📅 " + event.Title + "\n📆 Date: " + r.date(event)
}

// ResponseNotice renders the message organizers get when a registrant answers a reminder.
func (r *Renderer) ResponseNotice(event *domain.Event, reg *domain.Registration) string {
	var b strings.Builder
	switch reg.Confirmed {
	case domain.ConfirmationConfirmed:
		b.WriteString("✅ Participation confirmed\n\n")
	case domain.ConfirmationDeclined:
		b.WriteString("❌ Participation declined\n\n")
	default:
		b.WriteString("ℹ️ Registration updated\n\n")
	}
	b.WriteString("📅 " + event.Title + "\n")
	if name := reg.Data["name"]; name != "" {
		b.WriteString("👤 " + name + "\n")
	}
	b.WriteString("🆔 " + reg.RecipientID + "\n")
	return b.String()
}

// Render substitutes the event placeholders in body.
func (r *Renderer) Render(body string, event *domain.Event) string {
	desc := ""
	if event.Description != nil {
		desc = *event.Description
	}
	return strings.NewReplacer(
		domain.PlaceholderEventTitle, event.Title,
		domain.PlaceholderEventDate, r.date(event),
		domain.PlaceholderEventDescription, desc,
	).Replace(body)
}

func (r *Renderer) date(event *domain.Event) string {
	if event.DateTime == nil {
		return ""
	}
	return r.tz.Format(*event.DateTime)
}
