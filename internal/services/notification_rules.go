package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"eventreminders/internal/domain"
)

type notificationRuleService struct {
	logger         *slog.Logger
	clock          domain.Clock
	eventRepo      domain.EventRepository
	templateRepo   domain.NotificationTemplateRepository
	ruleRepo       domain.NotificationRuleRepository
	scheduledRepo  domain.ScheduledNotificationRepository
	scheduler      domain.NotificationScheduler
	contextTimeout time.Duration
}

// NewNotificationRuleService returns the organizer-facing service for templates and rules.
// Rule changes are materialized immediately.
func NewNotificationRuleService(
	logger *slog.Logger,
	clock domain.Clock,
	eventRepo domain.EventRepository,
	templateRepo domain.NotificationTemplateRepository,
	ruleRepo domain.NotificationRuleRepository,
	scheduledRepo domain.ScheduledNotificationRepository,
	scheduler domain.NotificationScheduler,
	timeout time.Duration,
) domain.NotificationRuleService {
	return &notificationRuleService{
		logger:         logger,
		clock:          clock,
		eventRepo:      eventRepo,
		templateRepo:   templateRepo,
		ruleRepo:       ruleRepo,
		scheduledRepo:  scheduledRepo,
		scheduler:      scheduler,
		contextTimeout: timeout,
	}
}

func (s *notificationRuleService) CreateTemplate(ctx context.Context, t *domain.NotificationTemplate) error {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	t.Name = strings.TrimSpace(t.Name)
	if errs := t.Validate(); len(errs) > 0 {
		return fmt.Errorf("%w: %s", domain.ErrInvalidInput, strings.Join(errs, "; "))
	}
	if t.AbsoluteDateTime != nil {
		utc := t.AbsoluteDateTime.UTC()
		t.AbsoluteDateTime = &utc
	}
	t.CreatedAt = s.clock.Now().UTC()
	return s.templateRepo.Create(ctx, t)
}

func (s *notificationRuleService) GetTemplate(ctx context.Context, templateID string) (*domain.NotificationTemplate, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()
	return s.templateRepo.GetByID(ctx, templateID)
}

func (s *notificationRuleService) ListTemplates(ctx context.Context, params domain.PaginationParams) ([]*domain.NotificationTemplate, int, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()
	return s.templateRepo.List(ctx, params)
}

func (s *notificationRuleService) AddRule(ctx context.Context, rule *domain.NotificationRule) (domain.ScheduleReport, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if errs := rule.Validate(); len(errs) > 0 {
		return domain.ScheduleReport{}, fmt.Errorf("%w: %s", domain.ErrInvalidInput, strings.Join(errs, "; "))
	}
	if _, err := s.eventRepo.GetByID(ctx, rule.EventID); err != nil {
		return domain.ScheduleReport{}, err
	}
	if err := s.checkTemplate(ctx, rule.TemplateID); err != nil {
		return domain.ScheduleReport{}, err
	}
	if err := s.ruleRepo.Create(ctx, rule); err != nil {
		return domain.ScheduleReport{}, fmt.Errorf("create notification rule: %w", err)
	}
	if !rule.Enabled {
		return domain.ScheduleReport{}, nil
	}
	report, err := s.scheduler.ScheduleForEvent(ctx, rule.EventID)
	if err != nil {
		return report, fmt.Errorf("schedule notifications: %w", err)
	}
	return report, nil
}

// UpdateRule saves the change and rebuilds the event's upcoming notifications, so a changed
// offset or a disabled rule does not leave rows at the old fire times. Rows already due and
// still unsent keep retrying.
func (s *notificationRuleService) UpdateRule(ctx context.Context, ruleID string, upd domain.NotificationRuleUpdate) (*domain.NotificationRule, domain.ScheduleReport, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	current, err := s.ruleRepo.GetByID(ctx, ruleID)
	if err != nil {
		return nil, domain.ScheduleReport{}, err
	}
	rule := upd.Apply(*current)
	if errs := rule.Validate(); len(errs) > 0 {
		return nil, domain.ScheduleReport{}, fmt.Errorf("%w: %s", domain.ErrInvalidInput, strings.Join(errs, "; "))
	}
	if err := s.checkTemplate(ctx, rule.TemplateID); err != nil {
		return nil, domain.ScheduleReport{}, err
	}
	if err := s.ruleRepo.Update(ctx, &rule); err != nil {
		return nil, domain.ScheduleReport{}, fmt.Errorf("update notification rule: %w", err)
	}

	removed, err := s.scheduledRepo.DeleteUpcomingByEventID(ctx, rule.EventID, s.clock.Now().UTC())
	if err != nil {
		return &rule, domain.ScheduleReport{}, fmt.Errorf("discard upcoming notifications: %w", err)
	}
	report, err := s.scheduler.ScheduleForEvent(ctx, rule.EventID)
	if err != nil {
		return &rule, report, fmt.Errorf("schedule notifications: %w", err)
	}
	s.logger.InfoContext(ctx, "notification rule updated",
		"rule_id", rule.ID,
		"event_id", rule.EventID,
		"discarded", removed,
		"created", report.Created,
	)
	return &rule, report, nil
}

func (s *notificationRuleService) ListScheduled(ctx context.Context, eventID string) ([]*domain.ScheduledNotification, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if _, err := s.eventRepo.GetByID(ctx, eventID); err != nil {
		return nil, err
	}
	return s.scheduledRepo.ListByEventID(ctx, eventID)
}

func (s *notificationRuleService) checkTemplate(ctx context.Context, templateID *string) error {
	if templateID == nil {
		return nil
	}
	if _, err := s.templateRepo.GetByID(ctx, *templateID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrTemplateNotFound
		}
		return fmt.Errorf("get notification template: %w", err)
	}
	return nil
}
