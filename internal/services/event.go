package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"eventreminders/internal/domain"
)

type eventService struct {
	logger         *slog.Logger
	clock          domain.Clock
	eventRepo      domain.EventRepository
	scheduledRepo  domain.ScheduledNotificationRepository
	scheduler      domain.NotificationScheduler
	contextTimeout time.Duration
}

func NewEventService(
	logger *slog.Logger,
	clock domain.Clock,
	eventRepo domain.EventRepository,
	scheduledRepo domain.ScheduledNotificationRepository,
	scheduler domain.NotificationScheduler,
	timeout time.Duration,
) domain.EventService {
	return &eventService{
		logger:         logger,
		clock:          clock,
		eventRepo:      eventRepo,
		scheduledRepo:  scheduledRepo,
		scheduler:      scheduler,
		contextTimeout: timeout,
	}
}

func (s *eventService) CreateEvent(ctx context.Context, event *domain.Event) error {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	event.Title = strings.TrimSpace(event.Title)
	if event.Title == "" {
		return fmt.Errorf("%w: title is required", domain.ErrInvalidInput)
	}
	if event.CreatedBy == "" {
		return fmt.Errorf("%w: event creator is required", domain.ErrInvalidInput)
	}
	if event.Status == "" {
		event.Status = domain.EventStatusDraft
	}
	if !event.Status.Valid() {
		return fmt.Errorf("%w: unknown status %q", domain.ErrInvalidInput, event.Status)
	}
	if event.DateTime != nil {
		utc := event.DateTime.UTC()
		event.DateTime = &utc
	}

	now := s.clock.Now().UTC()
	event.CreatedAt = now
	event.UpdatedAt = now
	return s.eventRepo.Create(ctx, event)
}

func (s *eventService) GetEvent(ctx context.Context, eventID string) (*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()
	return s.eventRepo.GetByID(ctx, eventID)
}

func (s *eventService) UpdateEvent(ctx context.Context, eventID string, upd domain.EventUpdate) (*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if upd.Title != nil && strings.TrimSpace(*upd.Title) == "" {
		return nil, fmt.Errorf("%w: title must not be empty", domain.ErrInvalidInput)
	}
	if upd.Status != nil && !upd.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", domain.ErrInvalidInput, *upd.Status)
	}
	if upd.DateTime != nil {
		utc := upd.DateTime.UTC()
		upd.DateTime = &utc
	}

	existing, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	moved := upd.DateTimeChanged(existing)

	event, err := s.eventRepo.Update(ctx, eventID, upd)
	if err != nil {
		return nil, err
	}
	if !moved {
		return event, nil
	}

	removed, err := s.scheduledRepo.DeleteUpcomingByEventID(ctx, eventID, s.clock.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("discard upcoming notifications: %w", err)
	}
	report, err := s.scheduler.ScheduleForEvent(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("reschedule notifications: %w", err)
	}
	s.logger.InfoContext(ctx, "event moved, notifications rescheduled",
		"event_id", eventID,
		"discarded", removed,
		"created", report.Created,
		"stale", report.Stale,
	)
	return event, nil
}
