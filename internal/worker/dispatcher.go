// Package worker runs the periodic dispatch of due notifications.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"eventreminders/internal/domain"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultInterval    = 30 * time.Second
	DefaultConcurrency = 4
)

// Dispatcher polls for due, unsent notifications and hands each one to the DeliveryService.
// Ticks never overlap; a tick that outlives the interval delays the next one.
type Dispatcher struct {
	logger      *slog.Logger
	clock       domain.Clock
	repo        domain.ScheduledNotificationRepository
	delivery    domain.DeliveryService
	interval    time.Duration
	concurrency int
	running     atomic.Bool
	active      atomic.Bool
}

// NewDispatcher returns a Dispatcher. Non-positive interval or concurrency take the defaults.
func NewDispatcher(
	logger *slog.Logger,
	clock domain.Clock,
	repo domain.ScheduledNotificationRepository,
	delivery domain.DeliveryService,
	interval time.Duration,
	concurrency int,
) *Dispatcher {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &Dispatcher{
		logger:      logger,
		clock:       clock,
		repo:        repo,
		delivery:    delivery,
		interval:    interval,
		concurrency: concurrency,
	}
}

// Running reports whether a tick is in progress.
func (d *Dispatcher) Running() bool { return d.running.Load() }

// Active reports whether Run's schedule is started.
func (d *Dispatcher) Active() bool { return d.active.Load() }

// Run schedules Tick every interval until ctx is done, then waits for the tick in flight.
// Ticks still queued at that point are skipped.
func (d *Dispatcher) Run(ctx context.Context) error {
	cl := cronLogger{logger: d.logger}
	c := cron.New(
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.DelayIfStillRunning(cl)),
	)
	// Deliveries must not be cut off by shutdown; Stop waits for them instead.
	tickCtx := context.WithoutCancel(ctx)
	c.Schedule(cron.Every(d.interval), cron.FuncJob(func() {
		// A tick queued behind a slow one must not start a new batch once stopping.
		if ctx.Err() != nil {
			d.logger.DebugContext(tickCtx, "dispatcher stopping, tick skipped")
			return
		}
		if err := d.Tick(tickCtx); err != nil {
			d.logger.ErrorContext(tickCtx, "dispatch tick failed", "err", err)
		}
	}))
	c.Start()
	d.active.Store(true)
	defer d.active.Store(false)
	d.logger.InfoContext(ctx, "dispatcher started", "interval", d.interval, "concurrency", d.concurrency)

	<-ctx.Done()
	d.logger.InfoContext(tickCtx, "dispatcher stopping")
	<-c.Stop().Done()
	d.logger.InfoContext(tickCtx, "dispatcher stopped")
	return nil
}

// Tick delivers every notification due at the current instant. A failure or panic on one
// item is logged and does not affect the others. The returned error covers only the lookup.
func (d *Dispatcher) Tick(ctx context.Context) error {
	d.running.Store(true)
	defer d.running.Store(false)

	now := d.clock.Now().UTC()
	due, err := d.repo.ListDue(ctx, now)
	if err != nil {
		return fmt.Errorf("list due notifications: %w", err)
	}
	if len(due) == 0 {
		d.logger.DebugContext(ctx, "no due notifications")
		return nil
	}
	d.logger.InfoContext(ctx, "dispatching notifications", "due", len(due))

	var (
		mu     sync.Mutex
		counts = make(map[domain.DeliveryOutcome]int)
		g      errgroup.Group
	)
	g.SetLimit(d.concurrency)
	for _, n := range due {
		g.Go(func() error {
			outcome := d.deliver(ctx, n)
			mu.Lock()
			counts[outcome]++
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	d.logger.InfoContext(ctx, "dispatch finished",
		"due", len(due),
		"delivered", counts[domain.OutcomeDelivered],
		"permanent_failures", counts[domain.OutcomePermanentFailure],
		"transient_failures", counts[domain.OutcomeTransientFailure],
		"dropped", counts[domain.OutcomeDropped],
		"errors", counts[""],
	)
	return nil
}

// deliver returns the empty outcome when delivery errored or panicked.
func (d *Dispatcher) deliver(ctx context.Context, n *domain.ScheduledNotification) (outcome domain.DeliveryOutcome) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.ErrorContext(ctx, "panic delivering notification", "notification_id", n.ID, "panic", r)
			outcome = ""
		}
	}()
	outcome, err := d.delivery.Deliver(ctx, n)
	if err != nil {
		d.logger.ErrorContext(ctx, "deliver notification", "notification_id", n.ID, "outcome", outcome, "err", err)
		return ""
	}
	return outcome
}

// cronLogger routes cron's logging through slog.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error("cron: "+msg, append(keysAndValues, "err", err)...)
}
