package domain

import (
	"context"
	"time"
)

// EventStatus is the lifecycle state of an event.
type EventStatus string

const (
	EventStatusDraft    EventStatus = "draft"
	EventStatusApproved EventStatus = "approved"
	EventStatusActive   EventStatus = "active"
	EventStatusArchived EventStatus = "archived"
)

// Valid reports whether s is a known status.
func (s EventStatus) Valid() bool {
	switch s {
	case EventStatusDraft, EventStatusApproved, EventStatusActive, EventStatusArchived:
		return true
	}
	return false
}

// Event represents an event people register for.
// swagger:model Event
type Event struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	Description *string     `json:"description,omitempty"`
	DateTime    *time.Time  `json:"date_time,omitempty"` // UTC
	Status      EventStatus `json:"status"`
	CreatedBy   string      `json:"created_by"` // recipient id of the organizer who created the event
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// NewEvent returns a new draft Event. ID is typically set by the repository on create.
func NewEvent(title string, description *string, dateTime *time.Time, createdBy string, createdAt, updatedAt time.Time) *Event {
	return &Event{
		Title:       title,
		Description: description,
		DateTime:    dateTime,
		Status:      EventStatusDraft,
		CreatedBy:   createdBy,
		CreatedAt:   createdAt,
		UpdatedAt:   updatedAt,
	}
}

// EventUpdate carries the optional fields of a partial event update. Nil fields are unchanged.
type EventUpdate struct {
	Title       *string
	Description *string
	DateTime    *time.Time
	Status      *EventStatus
}

// DateTimeChanged reports whether applying u to e moves the event in time.
func (u EventUpdate) DateTimeChanged(e *Event) bool {
	if u.DateTime == nil {
		return false
	}
	if e.DateTime == nil {
		return true
	}
	return !e.DateTime.Equal(*u.DateTime)
}

// EventRepository defines the interface for event storage
type EventRepository interface {
	Create(ctx context.Context, event *Event) error
	GetByID(ctx context.Context, id string) (*Event, error)
	Update(ctx context.Context, id string, upd EventUpdate) (*Event, error)
	Delete(ctx context.Context, id string) error
}

// EventService defines organizer-facing event operations.
type EventService interface {
	CreateEvent(ctx context.Context, event *Event) error
	GetEvent(ctx context.Context, eventID string) (*Event, error)
	// UpdateEvent applies upd. When the date/time changes, unsent scheduled notifications
	// of the event are discarded and recomputed from the new time.
	UpdateEvent(ctx context.Context, eventID string, upd EventUpdate) (*Event, error)
}
