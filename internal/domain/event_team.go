package domain

import (
	"context"
	"sort"
)

// EventTeamMember is an assistant helping the organizer with an event.
// swagger:model EventTeamMember
type EventTeamMember struct {
	EventID              string `json:"event_id"`
	RecipientID          string `json:"recipient_id"`
	CanSendNotifications bool   `json:"can_send_notifications"`
}

// EventTeamMemberRepository defines the interface for event team member storage.
type EventTeamMemberRepository interface {
	ListByEventID(ctx context.Context, eventID string) ([]*EventTeamMember, error)
}

// RecipientSet is the resolved audience for an organizer-facing notice.
// Explicit is true when the ids came from a rule's recipient list.
type RecipientSet struct {
	Explicit bool
	IDs      []string
}

// ResolveOrganizerRecipients picks who hears about registrant responses. A rule with an
// explicit recipient list wins; otherwise the event creator plus every team member allowed
// to send notifications. The result is deduplicated and sorted.
func ResolveOrganizerRecipients(rule *NotificationRule, event *Event, members []*EventTeamMember) RecipientSet {
	if rule != nil && len(rule.RecipientIDs) > 0 {
		return RecipientSet{Explicit: true, IDs: dedupe(rule.RecipientIDs)}
	}
	return RecipientSet{Explicit: false, IDs: defaultOrganizers(event, members)}
}

func defaultOrganizers(event *Event, members []*EventTeamMember) []string {
	var ids []string
	if event != nil && event.CreatedBy != "" {
		ids = append(ids, event.CreatedBy)
	}
	for _, m := range members {
		if m.CanSendNotifications {
			ids = append(ids, m.RecipientID)
		}
	}
	return dedupe(ids)
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
