package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"eventreminders/internal/domain"
)

// DefaultSendTimeout bounds a single Messenger call when none is configured.
const DefaultSendTimeout = 10 * time.Second

type deliveryService struct {
	logger        *slog.Logger
	clock         domain.Clock
	renderer      *Renderer
	messenger     domain.Messenger
	eventRepo     domain.EventRepository
	regRepo       domain.RegistrationRepository
	ruleRepo      domain.NotificationRuleRepository
	templateRepo  domain.NotificationTemplateRepository
	scheduledRepo domain.ScheduledNotificationRepository
	sendTimeout   time.Duration
}

// NewDeliveryService returns the handler that sends one due notification and records
// whether it was delivered, permanently undeliverable, or should be retried.
func NewDeliveryService(
	logger *slog.Logger,
	clock domain.Clock,
	renderer *Renderer,
	messenger domain.Messenger,
	eventRepo domain.EventRepository,
	regRepo domain.RegistrationRepository,
	ruleRepo domain.NotificationRuleRepository,
	templateRepo domain.NotificationTemplateRepository,
	scheduledRepo domain.ScheduledNotificationRepository,
	sendTimeout time.Duration,
) domain.DeliveryService {
	if sendTimeout <= 0 {
		sendTimeout = DefaultSendTimeout
	}
	return &deliveryService{
		logger:        logger,
		clock:         clock,
		renderer:      renderer,
		messenger:     messenger,
		eventRepo:     eventRepo,
		regRepo:       regRepo,
		ruleRepo:      ruleRepo,
		templateRepo:  templateRepo,
		scheduledRepo: scheduledRepo,
		sendTimeout:   sendTimeout,
	}
}

func (s *deliveryService) Deliver(ctx context.Context, n *domain.ScheduledNotification) (domain.DeliveryOutcome, error) {
	reg, err := s.regRepo.GetByID(ctx, n.RegistrationID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return s.drop(ctx, n, "registration not found")
		}
		return "", fmt.Errorf("get registration: %w", err)
	}
	event, err := s.eventRepo.GetByID(ctx, n.EventID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return s.drop(ctx, n, "event not found")
		}
		return "", fmt.Errorf("get event: %w", err)
	}

	rule, err := firstEnabledRule(ctx, s.ruleRepo, event.ID)
	if err != nil {
		return "", err
	}
	msg := domain.Message{
		RecipientID: reg.RecipientID,
		Text:        s.body(ctx, event, rule),
	}
	if rule == nil || rule.IncludeButtons {
		msg.Buttons = domain.ResponseButtons(reg.ID)
	}

	sendCtx, cancel := context.WithTimeout(ctx, s.sendTimeout)
	sendErr := s.messenger.Send(sendCtx, msg)
	cancel()

	switch {
	case sendErr == nil:
		if err := s.markSent(ctx, n); err != nil {
			return domain.OutcomeDelivered, err
		}
		s.logger.InfoContext(ctx, "notification delivered",
			"notification_id", n.ID, "registration_id", reg.ID, "recipient_id", reg.RecipientID)
		return domain.OutcomeDelivered, nil
	case errors.Is(sendErr, domain.ErrRecipientUnreachable):
		s.logger.WarnContext(ctx, "recipient unreachable, giving up on notification",
			"notification_id", n.ID, "recipient_id", reg.RecipientID, "err", sendErr)
		if err := s.markSent(ctx, n); err != nil {
			return domain.OutcomePermanentFailure, err
		}
		return domain.OutcomePermanentFailure, nil
	default:
		s.logger.WarnContext(ctx, "notification delivery failed, will retry",
			"notification_id", n.ID, "recipient_id", reg.RecipientID, "err", sendErr)
		return domain.OutcomeTransientFailure, nil
	}
}

func (s *deliveryService) markSent(ctx context.Context, n *domain.ScheduledNotification) error {
	now := s.clock.Now().UTC()
	if err := s.scheduledRepo.MarkSent(ctx, n.ID, now); err != nil {
		return fmt.Errorf("mark notification sent: %w", err)
	}
	n.Sent = true
	n.SentAt = &now
	return nil
}

// drop removes a row whose registration or event is gone so it stops coming back as due.
func (s *deliveryService) drop(ctx context.Context, n *domain.ScheduledNotification, reason string) (domain.DeliveryOutcome, error) {
	s.logger.WarnContext(ctx, "dropping orphaned notification",
		"notification_id", n.ID, "event_id", n.EventID, "registration_id", n.RegistrationID, "reason", reason)
	if err := s.scheduledRepo.Delete(ctx, n.ID); err != nil && !errors.Is(err, domain.ErrNotFound) {
		return domain.OutcomeDropped, fmt.Errorf("delete orphaned notification: %w", err)
	}
	return domain.OutcomeDropped, nil
}

// body uses the rule's template text when there is one, else the default reminder.
func (s *deliveryService) body(ctx context.Context, event *domain.Event, rule *domain.NotificationRule) string {
	if rule == nil || rule.TemplateID == nil || rule.CustomTimeMinutes != nil {
		return s.renderer.Reminder(event)
	}
	tmpl, err := s.templateRepo.GetByID(ctx, *rule.TemplateID)
	if err != nil {
		s.logger.WarnContext(ctx, "cannot load template, using default reminder",
			"template_id", *rule.TemplateID, "err", err)
		return s.renderer.Reminder(event)
	}
	if tmpl.MessageTemplate == "" {
		return s.renderer.Reminder(event)
	}
	return s.renderer.Render(tmpl.MessageTemplate, event)
}

func firstEnabledRule(ctx context.Context, repo domain.NotificationRuleRepository, eventID string) (*domain.NotificationRule, error) {
	rules, err := repo.ListEnabledByEventID(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("list notification rules: %w", err)
	}
	if len(rules) == 0 {
		return nil, nil
	}
	return rules[0], nil
}
