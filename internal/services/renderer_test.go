package services

import (
	"testing"
	"time"

	"eventreminders/internal/domain"

	"github.com/stretchr/testify/assert"
)

func TestRenderer(t *testing.T) {
	at := time.Date(2025, 12, 20, 15, 0, 0, 0, time.UTC)
	r := NewRenderer(fixedTZ(at))

	event := &domain.Event{Title: "Go Meetup", DateTime: &at}
	reminder := r.Reminder(event)
	assert.Contains(t, reminder, "Go Meetup")
	assert.Contains(t, reminder, "20.12.2025 18:00")
	assert.NotContains(t, reminder, "\n\n\n")

	assert.Equal(t, "Go Meetup / 20.12.2025 18:00 / ", r.Render("{event_title} / {event_date} / {event_description}", event))

	event.Description = strPtr("Room 4")
	assert.Contains(t, r.Reminder(event), "Room 4")

	undated := &domain.Event{Title: "TBA"}
	assert.Equal(t, "TBA at ", r.Render("{event_title} at {event_date}", undated))
}
