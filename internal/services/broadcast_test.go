package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"eventreminders/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBroadcastService_SendNow(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 12, 19, 12, 0, 0, 0, time.UTC)
	eventAt := time.Date(2025, 12, 20, 15, 0, 0, 0, time.UTC)
	event := &domain.Event{ID: "ev-1", Title: "Go Meetup", DateTime: &eventAt}

	regs := testRegistrations("ev-1", 5)
	messenger := &fakeMessenger{errs: map[string]error{
		"chat-2": fmt.Errorf("blocked: %w", domain.ErrRecipientUnreachable),
		"chat-4": errors.New("bad gateway"),
	}}
	svc := NewBroadcastService(testLogger, NewRenderer(fixedTZ(now)), messenger,
		newFakeEventRepo(event), newFakeRegistrationRepo(regs...), newFakeRuleRepo(), 2, time.Second)

	result, err := svc.SendNow(ctx, "ev-1", "{event_title} moved to room 4")
	require.NoError(t, err)
	assert.Equal(t, domain.BroadcastResult{Total: 5, Sent: 3, Unreachable: 1, Failed: 1}, result)
	assert.Equal(t, []string{"chat-1", "chat-3", "chat-5"}, messenger.recipients())
	for _, m := range messenger.sent {
		assert.Equal(t, "Go Meetup moved to room 4", m.Text)
		assert.Len(t, m.Buttons, 3)
	}
}

func TestBroadcastService_DefaultText(t *testing.T) {
	now := time.Date(2025, 12, 19, 12, 0, 0, 0, time.UTC)
	eventAt := time.Date(2025, 12, 20, 15, 0, 0, 0, time.UTC)
	messenger := &fakeMessenger{}
	rules := newFakeRuleRepo(&domain.NotificationRule{ID: "r1", EventID: "ev-1", Enabled: true, IncludeButtons: false, CustomTimeMinutes: intPtr(60)})
	svc := NewBroadcastService(testLogger, NewRenderer(fixedTZ(now)), messenger,
		newFakeEventRepo(&domain.Event{ID: "ev-1", Title: "Go Meetup", DateTime: &eventAt}),
		newFakeRegistrationRepo(testRegistrations("ev-1", 1)...), rules, 0, 0)

	result, err := svc.SendNow(context.Background(), "ev-1", "")
	require.NoError(t, err)
	assert.Equal(t, 1, result.Sent)
	require.Len(t, messenger.sent, 1)
	assert.Contains(t, messenger.sent[0].Text, "Go Meetup")
	assert.Contains(t, messenger.sent[0].Text, "20.12.2025 18:00")
	assert.Empty(t, messenger.sent[0].Buttons)
}

func TestBroadcastService_UnknownEvent(t *testing.T) {
	svc := NewBroadcastService(testLogger, NewRenderer(fixedTZ(time.Now())), &fakeMessenger{},
		newFakeEventRepo(), newFakeRegistrationRepo(), newFakeRuleRepo(), 1, time.Second)

	_, err := svc.SendNow(context.Background(), "nope", "hi")
	require.ErrorIs(t, err, domain.ErrNotFound)
}
