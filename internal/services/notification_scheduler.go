package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"eventreminders/internal/domain"
	"eventreminders/internal/timezone"
)

// StaleThreshold is how far in the past a fire time may be and still get scheduled.
// Older ones are dropped so a late rule or a moved event does not flush a backlog at once.
const StaleThreshold = 60 * time.Minute

type notificationScheduler struct {
	logger        *slog.Logger
	tz            *timezone.Converter
	eventRepo     domain.EventRepository
	regRepo       domain.RegistrationRepository
	ruleRepo      domain.NotificationRuleRepository
	templateRepo  domain.NotificationTemplateRepository
	scheduledRepo domain.ScheduledNotificationRepository
}

// NewNotificationScheduler returns the materializer that expands (registrations x enabled rules)
// into scheduled notifications.
func NewNotificationScheduler(
	logger *slog.Logger,
	tz *timezone.Converter,
	eventRepo domain.EventRepository,
	regRepo domain.RegistrationRepository,
	ruleRepo domain.NotificationRuleRepository,
	templateRepo domain.NotificationTemplateRepository,
	scheduledRepo domain.ScheduledNotificationRepository,
) domain.NotificationScheduler {
	return &notificationScheduler{
		logger:        logger,
		tz:            tz,
		eventRepo:     eventRepo,
		regRepo:       regRepo,
		ruleRepo:      ruleRepo,
		templateRepo:  templateRepo,
		scheduledRepo: scheduledRepo,
	}
}

func (s *notificationScheduler) ScheduleForEvent(ctx context.Context, eventID string) (domain.ScheduleReport, error) {
	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		return domain.ScheduleReport{}, fmt.Errorf("get event: %w", err)
	}
	regs, err := s.regRepo.ListByEventID(ctx, eventID)
	if err != nil {
		return domain.ScheduleReport{}, fmt.Errorf("list registrations: %w", err)
	}
	return s.schedule(ctx, event, regs)
}

func (s *notificationScheduler) ScheduleForRegistration(ctx context.Context, reg *domain.Registration) (domain.ScheduleReport, error) {
	event, err := s.eventRepo.GetByID(ctx, reg.EventID)
	if err != nil {
		return domain.ScheduleReport{}, fmt.Errorf("get event: %w", err)
	}
	return s.schedule(ctx, event, []*domain.Registration{reg})
}

func (s *notificationScheduler) schedule(ctx context.Context, event *domain.Event, regs []*domain.Registration) (domain.ScheduleReport, error) {
	var report domain.ScheduleReport
	if event.DateTime == nil {
		s.logger.WarnContext(ctx, "event has no date, skipping notification scheduling", "event_id", event.ID)
		return report, nil
	}

	rules, err := s.ruleRepo.ListEnabledByEventID(ctx, event.ID)
	if err != nil {
		return report, fmt.Errorf("list notification rules: %w", err)
	}
	if len(rules) == 0 || len(regs) == 0 {
		s.logger.DebugContext(ctx, "nothing to schedule", "event_id", event.ID, "rules", len(rules), "registrations", len(regs))
		return report, nil
	}

	// Fire times depend only on the rule, so resolve once per rule.
	fireTimes := make([]*FireTime, len(rules))
	for i, rule := range rules {
		ft, err := s.resolve(ctx, event, rule)
		if err != nil {
			return report, err
		}
		fireTimes[i] = ft
	}

	nowLocal := s.tz.NowLocal()
	s.logger.InfoContext(ctx, "scheduling notifications",
		"event_id", event.ID,
		"event_local", s.tz.ToLocal(*event.DateTime).Format(time.DateTime),
		"rules", len(rules),
		"registrations", len(regs),
	)

	for _, reg := range regs {
		for i, rule := range rules {
			ft := fireTimes[i]
			if ft == nil {
				report.Skipped++
				continue
			}
			untilFire := ft.Local.Sub(nowLocal)
			if untilFire < -StaleThreshold {
				s.logger.WarnContext(ctx, "skipping notification, fire time too far in the past",
					"event_id", event.ID,
					"registration_id", reg.ID,
					"rule_id", rule.ID,
					"fire_local", ft.Local.Format(time.DateTime),
					"minutes_until_fire", int(untilFire.Minutes()),
				)
				report.Stale++
				continue
			}

			n := &domain.ScheduledNotification{
				EventID:        event.ID,
				RegistrationID: reg.ID,
				Kind:           ft.Kind,
				ScheduledTime:  ft.UTC,
			}
			created, err := s.scheduledRepo.Create(ctx, n)
			if err != nil {
				return report, fmt.Errorf("create scheduled notification: %w", err)
			}
			if !created {
				report.Duplicates++
				continue
			}
			report.Created++
			s.logger.InfoContext(ctx, "scheduled notification",
				"event_id", event.ID,
				"registration_id", reg.ID,
				"kind", ft.Kind,
				"fire_local", ft.Local.Format(time.DateTime),
			)
		}
	}
	return report, nil
}

// resolve returns nil when the rule yields no fire time, including when its template is gone.
func (s *notificationScheduler) resolve(ctx context.Context, event *domain.Event, rule *domain.NotificationRule) (*FireTime, error) {
	var tmpl *domain.NotificationTemplate
	if rule.CustomTimeMinutes == nil && rule.TemplateID != nil {
		t, err := s.templateRepo.GetByID(ctx, *rule.TemplateID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				s.logger.WarnContext(ctx, "notification template not found, skipping rule",
					"event_id", event.ID, "rule_id", rule.ID, "template_id", *rule.TemplateID)
				return nil, nil
			}
			return nil, fmt.Errorf("get notification template: %w", err)
		}
		tmpl = t
	}
	ft, ok := ResolveFireTime(s.tz, *event.DateTime, rule, tmpl)
	if !ok {
		s.logger.WarnContext(ctx, "rule has no fire time", "event_id", event.ID, "rule_id", rule.ID)
		return nil, nil
	}
	return &ft, nil
}
