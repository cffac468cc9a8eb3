package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"eventreminders/internal/delivery/http/helpers"
	"eventreminders/internal/delivery/http/middleware"
	"eventreminders/internal/domain"
	"eventreminders/internal/timezone"

	"github.com/stretchr/testify/require"
)

// testLogger is a no-op logger for controller tests so we don't assert on log output.
var testLogger = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))

const (
	eventUUID        = "6f1c1f5e-8f57-4e4b-9d0c-6b1f3f2a7c11"
	registrationUUID = "0b6d8f0e-2f3a-4c55-8a51-1b9b1d2c3e4f"
	templateUUID     = "9a7e3c2d-1b4f-4e6a-8c9d-0f1e2d3c4b5a"
	ruleUUID         = "3c2b1a09-8f7e-4d6c-9b5a-4e3d2c1b0a98"
)

func testTZ(t *testing.T) *timezone.Converter {
	t.Helper()
	loc, err := time.LoadLocation("Europe/Moscow")
	require.NoError(t, err)
	return timezone.New(loc, time.Now)
}

func newRequest(t *testing.T, method, target string, body any) *http.Request {
	t.Helper()
	var r io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		r = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		r = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, r)
	return req.WithContext(middleware.SetOrganizerID(req.Context(), "organizer-1"))
}

func decodeEnvelope(t *testing.T, rr *httptest.ResponseRecorder, data any) *helpers.APIError {
	t.Helper()
	var env struct {
		Data  json.RawMessage   `json:"data"`
		Error *helpers.APIError `json:"error"`
	}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&env))
	if data != nil && env.Error == nil {
		require.NoError(t, json.Unmarshal(env.Data, data))
	}
	return env.Error
}

type fakeEventService struct {
	created *domain.Event
	lastID  string
	lastUpd domain.EventUpdate
	event   *domain.Event
	err     error
}

func (f *fakeEventService) CreateEvent(_ context.Context, e *domain.Event) error {
	if f.err != nil {
		return f.err
	}
	e.ID = eventUUID
	f.created = e
	return nil
}

func (f *fakeEventService) GetEvent(_ context.Context, id string) (*domain.Event, error) {
	f.lastID = id
	if f.err != nil {
		return nil, f.err
	}
	return f.event, nil
}

func (f *fakeEventService) UpdateEvent(_ context.Context, id string, upd domain.EventUpdate) (*domain.Event, error) {
	f.lastID = id
	f.lastUpd = upd
	if f.err != nil {
		return nil, f.err
	}
	return f.event, nil
}

type fakeAttendeeService struct {
	reg          *domain.Registration
	created      bool
	err          error
	lastEventID  string
	lastRecip    string
	lastData     map[string]string
	lastRegID    string
	lastAnswer   domain.Confirmation
	cancelCalled bool
}

func (f *fakeAttendeeService) Register(_ context.Context, eventID, recipientID string, data map[string]string) (*domain.Registration, bool, error) {
	f.lastEventID, f.lastRecip, f.lastData = eventID, recipientID, data
	if f.err != nil {
		return nil, false, f.err
	}
	return f.reg, f.created, nil
}

func (f *fakeAttendeeService) CancelRegistration(_ context.Context, id string) error {
	f.lastRegID = id
	f.cancelCalled = true
	return f.err
}

func (f *fakeAttendeeService) Respond(_ context.Context, id string, c domain.Confirmation) (*domain.Registration, error) {
	f.lastRegID, f.lastAnswer = id, c
	if f.err != nil {
		return nil, f.err
	}
	reg := *f.reg
	reg.Confirmed = c
	return &reg, nil
}

type fakeNotificationRuleService struct {
	err          error
	template     *domain.NotificationTemplate
	templates    []*domain.NotificationTemplate
	total        int
	lastParams   domain.PaginationParams
	lastTemplate *domain.NotificationTemplate
	lastRule     *domain.NotificationRule
	lastRuleID   string
	lastUpd      domain.NotificationRuleUpdate
	rule         *domain.NotificationRule
	report       domain.ScheduleReport
	scheduled    []*domain.ScheduledNotification
}

func (f *fakeNotificationRuleService) CreateTemplate(_ context.Context, t *domain.NotificationTemplate) error {
	f.lastTemplate = t
	if f.err != nil {
		return f.err
	}
	t.ID = templateUUID
	return nil
}

func (f *fakeNotificationRuleService) GetTemplate(_ context.Context, _ string) (*domain.NotificationTemplate, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.template, nil
}

func (f *fakeNotificationRuleService) ListTemplates(_ context.Context, p domain.PaginationParams) ([]*domain.NotificationTemplate, int, error) {
	f.lastParams = p
	if f.err != nil {
		return nil, 0, f.err
	}
	return f.templates, f.total, nil
}

func (f *fakeNotificationRuleService) AddRule(_ context.Context, rule *domain.NotificationRule) (domain.ScheduleReport, error) {
	f.lastRule = rule
	if f.err != nil {
		return domain.ScheduleReport{}, f.err
	}
	rule.ID = ruleUUID
	return f.report, nil
}

func (f *fakeNotificationRuleService) UpdateRule(_ context.Context, id string, upd domain.NotificationRuleUpdate) (*domain.NotificationRule, domain.ScheduleReport, error) {
	f.lastRuleID, f.lastUpd = id, upd
	if f.err != nil {
		return nil, domain.ScheduleReport{}, f.err
	}
	return f.rule, f.report, nil
}

func (f *fakeNotificationRuleService) ListScheduled(_ context.Context, _ string) ([]*domain.ScheduledNotification, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.scheduled, nil
}

type fakeBroadcastService struct {
	result      domain.BroadcastResult
	err         error
	lastEventID string
	lastText    string
}

func (f *fakeBroadcastService) SendNow(_ context.Context, eventID, text string) (domain.BroadcastResult, error) {
	f.lastEventID, f.lastText = eventID, text
	return f.result, f.err
}

type fakePinger struct{ err error }

func (f fakePinger) PingContext(context.Context) error { return f.err }

type fakeDispatcher struct{ running bool }

func (f fakeDispatcher) Active() bool { return f.running }

func intPtr(v int) *int { return &v }

func strPtr(v string) *string { return &v }

func boolPtr(v bool) *bool { return &v }
