package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"eventreminders/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type deliveryFixture struct {
	events    *fakeEventRepo
	regs      *fakeRegistrationRepo
	rules     *fakeRuleRepo
	templates *fakeTemplateRepo
	scheduled *fakeScheduledRepo
	messenger *fakeMessenger
	now       time.Time
}

func newDeliveryFixture() *deliveryFixture {
	eventAt := time.Date(2025, 12, 20, 15, 0, 0, 0, time.UTC)
	now := eventAt.Add(-time.Hour)
	return &deliveryFixture{
		events: newFakeEventRepo(&domain.Event{
			ID: "ev-1", Title: "Go Meetup", Description: strPtr("Bring a laptop"), DateTime: &eventAt,
		}),
		regs:      newFakeRegistrationRepo(&domain.Registration{ID: "reg-1", EventID: "ev-1", RecipientID: "chat-1"}),
		rules:     newFakeRuleRepo(),
		templates: newFakeTemplateRepo(),
		scheduled: newFakeScheduledRepo(&domain.ScheduledNotification{
			ID: "sn-1", EventID: "ev-1", RegistrationID: "reg-1", Kind: domain.NotificationKindCustom, ScheduledTime: now,
		}),
		messenger: &fakeMessenger{},
		now:       now,
	}
}

func (f *deliveryFixture) service() domain.DeliveryService {
	return NewDeliveryService(testLogger, fixedClock(f.now), NewRenderer(fixedTZ(f.now)), f.messenger,
		f.events, f.regs, f.rules, f.templates, f.scheduled, time.Second)
}

func (f *deliveryFixture) row(t *testing.T) *domain.ScheduledNotification {
	t.Helper()
	rows, _ := f.scheduled.ListByEventID(context.Background(), "ev-1")
	require.Len(t, rows, 1)
	return rows[0]
}

func TestDeliveryService_Deliver(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name        string
		sendErr     error
		wantOutcome domain.DeliveryOutcome
		wantSent    bool
	}{
		{name: "delivered", wantOutcome: domain.OutcomeDelivered, wantSent: true},
		{
			name:        "recipient blocked the bot",
			sendErr:     fmt.Errorf("telegram: 403 Forbidden: %w", domain.ErrRecipientUnreachable),
			wantOutcome: domain.OutcomePermanentFailure,
			wantSent:    true,
		},
		{
			name:        "network error is retried",
			sendErr:     errors.New("connection reset by peer"),
			wantOutcome: domain.OutcomeTransientFailure,
			wantSent:    false,
		},
		{
			name:        "timeout is retried",
			sendErr:     context.DeadlineExceeded,
			wantOutcome: domain.OutcomeTransientFailure,
			wantSent:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newDeliveryFixture()
			if tt.sendErr != nil {
				f.messenger.errs = map[string]error{"chat-1": tt.sendErr}
			}
			n := f.row(t)

			outcome, err := f.service().Deliver(ctx, n)
			require.NoError(t, err)
			assert.Equal(t, tt.wantOutcome, outcome)

			row := f.row(t)
			assert.Equal(t, tt.wantSent, row.Sent)
			if tt.wantSent {
				require.NotNil(t, row.SentAt)
				assert.True(t, f.now.Equal(*row.SentAt))
			} else {
				assert.Nil(t, row.SentAt)
			}
		})
	}
}

func TestDeliveryService_DefaultReminder(t *testing.T) {
	f := newDeliveryFixture()
	_, err := f.service().Deliver(context.Background(), f.row(t))
	require.NoError(t, err)

	require.Len(t, f.messenger.sent, 1)
	msg := f.messenger.sent[0]
	assert.Equal(t, "chat-1", msg.RecipientID)
	assert.Contains(t, msg.Text, "Go Meetup")
	assert.Contains(t, msg.Text, "20.12.2025 18:00")
	assert.Contains(t, msg.Text, "Bring a laptop")
	assert.Equal(t, domain.ResponseButtons("reg-1"), msg.Buttons)
}

func TestDeliveryService_ButtonsFollowFirstEnabledRule(t *testing.T) {
	tests := []struct {
		name        string
		rules       []*domain.NotificationRule
		wantButtons bool
	}{
		{name: "no rules", wantButtons: true},
		{
			name:        "first enabled rule without buttons",
			rules:       []*domain.NotificationRule{{ID: "r1", EventID: "ev-1", Enabled: true, IncludeButtons: false, CustomTimeMinutes: intPtr(60)}},
			wantButtons: false,
		},
		{
			name: "disabled rule is not consulted",
			rules: []*domain.NotificationRule{
				{ID: "r1", EventID: "ev-1", Enabled: false, IncludeButtons: false, CustomTimeMinutes: intPtr(60)},
				{ID: "r2", EventID: "ev-1", Enabled: true, IncludeButtons: true, CustomTimeMinutes: intPtr(30)},
			},
			wantButtons: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newDeliveryFixture()
			f.rules = newFakeRuleRepo(tt.rules...)
			_, err := f.service().Deliver(context.Background(), f.row(t))
			require.NoError(t, err)
			require.Len(t, f.messenger.sent, 1)
			assert.Equal(t, tt.wantButtons, len(f.messenger.sent[0].Buttons) > 0)
		})
	}
}

func TestDeliveryService_TemplateBody(t *testing.T) {
	f := newDeliveryFixture()
	f.templates = newFakeTemplateRepo(&domain.NotificationTemplate{
		ID:                     "t1",
		TimeBeforeEventMinutes: intPtr(60),
		MessageTemplate:        "{event_title} starts at {event_date}. {event_description}",
	})
	f.rules = newFakeRuleRepo(&domain.NotificationRule{ID: "r1", EventID: "ev-1", Enabled: true, IncludeButtons: true, TemplateID: strPtr("t1")})

	_, err := f.service().Deliver(context.Background(), f.row(t))
	require.NoError(t, err)
	require.Len(t, f.messenger.sent, 1)
	assert.Equal(t, "Go Meetup starts at 20.12.2025 18:00. Bring a laptop", f.messenger.sent[0].Text)
}

func TestDeliveryService_OrphanedRowIsDropped(t *testing.T) {
	ctx := context.Background()

	t.Run("registration gone", func(t *testing.T) {
		f := newDeliveryFixture()
		n := f.row(t)
		require.NoError(t, f.regs.Delete(ctx, "reg-1"))

		outcome, err := f.service().Deliver(ctx, n)
		require.NoError(t, err)
		assert.Equal(t, domain.OutcomeDropped, outcome)
		rows, _ := f.scheduled.ListByEventID(ctx, "ev-1")
		assert.Empty(t, rows)
		assert.Empty(t, f.messenger.sent)
	})
	t.Run("event gone", func(t *testing.T) {
		f := newDeliveryFixture()
		n := f.row(t)
		require.NoError(t, f.events.Delete(ctx, "ev-1"))

		outcome, err := f.service().Deliver(ctx, n)
		require.NoError(t, err)
		assert.Equal(t, domain.OutcomeDropped, outcome)
		assert.Empty(t, f.messenger.sent)
	})
}

func TestDeliveryService_MarkSentFailure(t *testing.T) {
	f := newDeliveryFixture()
	f.scheduled.markErr = errors.New("db down")

	outcome, err := f.service().Deliver(context.Background(), f.row(t))
	require.Error(t, err)
	assert.Equal(t, domain.OutcomeDelivered, outcome)
	assert.True(t, strings.Contains(err.Error(), "mark notification sent"))
	assert.False(t, f.row(t).Sent)
}

type blockingMessenger struct{}

func (blockingMessenger) Send(ctx context.Context, msg domain.Message) error {
	<-ctx.Done()
	return ctx.Err()
}

func TestDeliveryService_SendTimeout(t *testing.T) {
	f := newDeliveryFixture()
	svc := NewDeliveryService(testLogger, fixedClock(f.now), NewRenderer(fixedTZ(f.now)), blockingMessenger{},
		f.events, f.regs, f.rules, f.templates, f.scheduled, 20*time.Millisecond)

	outcome, err := svc.Deliver(context.Background(), f.row(t))
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeTransientFailure, outcome)
	assert.False(t, f.row(t).Sent)
}
