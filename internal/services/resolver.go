package services

import (
	"time"

	"eventreminders/internal/domain"
	"eventreminders/internal/timezone"
)

// FireTime is a resolved notification instant.
type FireTime struct {
	Local time.Time
	UTC   time.Time
	Kind  domain.NotificationKind
}

// ResolveFireTime computes when rule fires for an event held at eventUTC. tmpl is the
// rule's template, already loaded, or nil. ok is false when the rule yields no fire time.
//
// A custom offset is subtracted from the event's local wall clock. A template fires either
// at its absolute time, independent of the event, or its offset before the event.
func ResolveFireTime(tz *timezone.Converter, eventUTC time.Time, rule *domain.NotificationRule, tmpl *domain.NotificationTemplate) (FireTime, bool) {
	eventLocal := tz.ToLocal(eventUTC)

	var fireLocal time.Time
	var kind domain.NotificationKind
	switch {
	case rule.CustomTimeMinutes != nil:
		fireLocal = tz.ShiftWall(eventLocal, -*rule.CustomTimeMinutes)
		kind = domain.NotificationKindCustom
	case rule.TemplateID != nil && tmpl != nil:
		kind = domain.NotificationKindTemplate
		switch {
		case tmpl.AbsoluteDateTime != nil:
			fireLocal = tz.ToLocal(*tmpl.AbsoluteDateTime)
		case tmpl.TimeBeforeEventMinutes != nil:
			fireLocal = tz.ShiftWall(eventLocal, -*tmpl.TimeBeforeEventMinutes)
		default:
			return FireTime{}, false
		}
	default:
		return FireTime{}, false
	}

	return FireTime{Local: fireLocal, UTC: tz.ToUTC(fireLocal), Kind: kind}, true
}
