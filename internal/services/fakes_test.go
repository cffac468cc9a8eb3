package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"eventreminders/internal/domain"
	"eventreminders/internal/timezone"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))

func moscow() *time.Location {
	loc, err := time.LoadLocation("Europe/Moscow")
	if err != nil {
		return time.FixedZone("UTC+3", timezone.FallbackOffset)
	}
	return loc
}

// fixedTZ returns a Moscow converter whose clock is pinned to now.
func fixedTZ(now time.Time) *timezone.Converter {
	return timezone.New(moscow(), func() time.Time { return now })
}

func fixedClock(now time.Time) domain.Clock {
	return domain.ClockFunc(func() time.Time { return now })
}

func intPtr(v int) *int { return &v }
func strPtr(v string) *string { return &v }
func timePtr(v time.Time) *time.Time { return &v }

// fakeEventRepo is an in-memory EventRepository for tests.
type fakeEventRepo struct {
	byID   map[string]*domain.Event
	nextID int
	err    error // if set, Create returns this error
}

func newFakeEventRepo(events ...*domain.Event) *fakeEventRepo {
	f := &fakeEventRepo{byID: make(map[string]*domain.Event), nextID: 1}
	for _, e := range events {
		f.byID[e.ID] = e
	}
	return f
}

func (f *fakeEventRepo) Create(ctx context.Context, e *domain.Event) error {
	if f.err != nil {
		return f.err
	}
	e.ID = fmt.Sprintf("ev-%d", f.nextID)
	f.nextID++
	f.byID[e.ID] = e
	return nil
}

func (f *fakeEventRepo) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	if e, ok := f.byID[id]; ok {
		return e, nil
	}
	return nil, domain.ErrNotFound
}

func (f *fakeEventRepo) Update(ctx context.Context, id string, upd domain.EventUpdate) (*domain.Event, error) {
	e, ok := f.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if upd.Title != nil {
		e.Title = *upd.Title
	}
	if upd.Description != nil {
		e.Description = upd.Description
	}
	if upd.DateTime != nil {
		e.DateTime = upd.DateTime
	}
	if upd.Status != nil {
		e.Status = *upd.Status
	}
	return e, nil
}

func (f *fakeEventRepo) Delete(ctx context.Context, id string) error {
	if _, ok := f.byID[id]; !ok {
		return domain.ErrNotFound
	}
	delete(f.byID, id)
	return nil
}

// fakeRegistrationRepo is an in-memory RegistrationRepository for tests.
type fakeRegistrationRepo struct {
	byID   map[string]*domain.Registration
	order  []string
	nextID int
	err    error // if set, ListByEventID returns this error
}

func newFakeRegistrationRepo(regs ...*domain.Registration) *fakeRegistrationRepo {
	f := &fakeRegistrationRepo{byID: make(map[string]*domain.Registration), nextID: 1}
	for _, r := range regs {
		f.byID[r.ID] = r
		f.order = append(f.order, r.ID)
	}
	return f
}

func (f *fakeRegistrationRepo) Create(ctx context.Context, reg *domain.Registration) error {
	reg.ID = fmt.Sprintf("reg-new-%d", f.nextID)
	f.nextID++
	f.byID[reg.ID] = reg
	f.order = append(f.order, reg.ID)
	return nil
}

func (f *fakeRegistrationRepo) GetByID(ctx context.Context, id string) (*domain.Registration, error) {
	if r, ok := f.byID[id]; ok {
		return r, nil
	}
	return nil, domain.ErrNotFound
}

func (f *fakeRegistrationRepo) GetByEventAndRecipient(ctx context.Context, eventID, recipientID string) (*domain.Registration, error) {
	for _, id := range f.order {
		r, ok := f.byID[id]
		if ok && r.EventID == eventID && r.RecipientID == recipientID {
			return r, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeRegistrationRepo) ListByEventID(ctx context.Context, eventID string) ([]*domain.Registration, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []*domain.Registration
	for _, id := range f.order {
		if r, ok := f.byID[id]; ok && r.EventID == eventID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeRegistrationRepo) SetConfirmation(ctx context.Context, id string, c domain.Confirmation) error {
	r, ok := f.byID[id]
	if !ok {
		return domain.ErrNotFound
	}
	r.Confirmed = c
	return nil
}

func (f *fakeRegistrationRepo) Delete(ctx context.Context, id string) error {
	if _, ok := f.byID[id]; !ok {
		return domain.ErrNotFound
	}
	delete(f.byID, id)
	return nil
}

// fakeRuleRepo keeps rules in insertion order.
type fakeRuleRepo struct {
	rules  []*domain.NotificationRule
	nextID int
	err    error // if set, ListEnabledByEventID returns this error
}

func newFakeRuleRepo(rules ...*domain.NotificationRule) *fakeRuleRepo {
	return &fakeRuleRepo{rules: rules, nextID: 1}
}

func (f *fakeRuleRepo) Create(ctx context.Context, r *domain.NotificationRule) error {
	r.ID = fmt.Sprintf("rule-new-%d", f.nextID)
	f.nextID++
	f.rules = append(f.rules, r)
	return nil
}

func (f *fakeRuleRepo) GetByID(ctx context.Context, id string) (*domain.NotificationRule, error) {
	for _, r := range f.rules {
		if r.ID == id {
			cp := *r
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeRuleRepo) Update(ctx context.Context, r *domain.NotificationRule) error {
	for i, existing := range f.rules {
		if existing.ID == r.ID {
			cp := *r
			f.rules[i] = &cp
			return nil
		}
	}
	return domain.ErrNotFound
}

func (f *fakeRuleRepo) ListEnabledByEventID(ctx context.Context, eventID string) ([]*domain.NotificationRule, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []*domain.NotificationRule
	for _, r := range f.rules {
		if r.EventID == eventID && r.Enabled {
			out = append(out, r)
		}
	}
	return out, nil
}

type fakeTemplateRepo struct {
	byID   map[string]*domain.NotificationTemplate
	nextID int
	err    error // if set, GetByID returns this error
}

func newFakeTemplateRepo(templates ...*domain.NotificationTemplate) *fakeTemplateRepo {
	f := &fakeTemplateRepo{byID: make(map[string]*domain.NotificationTemplate), nextID: 1}
	for _, t := range templates {
		f.byID[t.ID] = t
	}
	return f
}

func (f *fakeTemplateRepo) Create(ctx context.Context, t *domain.NotificationTemplate) error {
	for _, existing := range f.byID {
		if existing.Name == t.Name {
			return domain.ErrDuplicate
		}
	}
	t.ID = fmt.Sprintf("tmpl-new-%d", f.nextID)
	f.nextID++
	f.byID[t.ID] = t
	return nil
}

func (f *fakeTemplateRepo) GetByID(ctx context.Context, id string) (*domain.NotificationTemplate, error) {
	if f.err != nil {
		return nil, f.err
	}
	if t, ok := f.byID[id]; ok {
		return t, nil
	}
	return nil, domain.ErrNotFound
}

func (f *fakeTemplateRepo) List(ctx context.Context, params domain.PaginationParams) ([]*domain.NotificationTemplate, int, error) {
	var out []*domain.NotificationTemplate
	for _, t := range f.byID {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, len(out), nil
}

// fakeScheduledRepo enforces the (event, registration, scheduled time) uniqueness in memory.
type fakeScheduledRepo struct {
	mu      sync.Mutex
	rows    []*domain.ScheduledNotification
	nextID  int
	markErr error
}

func newFakeScheduledRepo(rows ...*domain.ScheduledNotification) *fakeScheduledRepo {
	return &fakeScheduledRepo{rows: rows, nextID: 1}
}

func (f *fakeScheduledRepo) Create(ctx context.Context, n *domain.ScheduledNotification) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.rows {
		if r.EventID == n.EventID && r.RegistrationID == n.RegistrationID && r.ScheduledTime.Equal(n.ScheduledTime) {
			return false, nil
		}
	}
	n.ID = fmt.Sprintf("sn-%d", f.nextID)
	f.nextID++
	f.rows = append(f.rows, n)
	return true, nil
}

func (f *fakeScheduledRepo) ListDue(ctx context.Context, now time.Time) ([]*domain.ScheduledNotification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.ScheduledNotification
	for _, r := range f.rows {
		if !r.Sent && !r.ScheduledTime.After(now) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeScheduledRepo) ListByEventID(ctx context.Context, eventID string) ([]*domain.ScheduledNotification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.ScheduledNotification
	for _, r := range f.rows {
		if r.EventID == eventID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeScheduledRepo) MarkSent(ctx context.Context, id string, sentAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.markErr != nil {
		return f.markErr
	}
	for _, r := range f.rows {
		if r.ID == id {
			r.Sent = true
			r.SentAt = &sentAt
			return nil
		}
	}
	return domain.ErrNotFound
}

func (f *fakeScheduledRepo) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, r := range f.rows {
		if r.ID == id {
			f.rows = append(f.rows[:i], f.rows[i+1:]...)
			return nil
		}
	}
	return domain.ErrNotFound
}

func (f *fakeScheduledRepo) DeleteUpcomingByEventID(ctx context.Context, eventID string, after time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var kept []*domain.ScheduledNotification
	var removed int64
	for _, r := range f.rows {
		if r.EventID == eventID && !r.Sent && r.ScheduledTime.After(after) {
			removed++
			continue
		}
		kept = append(kept, r)
	}
	f.rows = kept
	return removed, nil
}

type fakeTeamRepo struct {
	members []*domain.EventTeamMember
}

func (f *fakeTeamRepo) ListByEventID(ctx context.Context, eventID string) ([]*domain.EventTeamMember, error) {
	var out []*domain.EventTeamMember
	for _, m := range f.members {
		if m.EventID == eventID {
			out = append(out, m)
		}
	}
	return out, nil
}

// fakeMessenger records sent messages. errs maps a recipient id to the error Send returns.
type fakeMessenger struct {
	mu   sync.Mutex
	sent []domain.Message
	errs map[string]error
}

func (f *fakeMessenger) Send(ctx context.Context, msg domain.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.errs[msg.RecipientID]; ok {
		return err
	}
	f.sent = append(f.sent, msg)
	return nil
}

func (f *fakeMessenger) recipients() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.sent))
	for _, m := range f.sent {
		out = append(out, m.RecipientID)
	}
	sort.Strings(out)
	return out
}
