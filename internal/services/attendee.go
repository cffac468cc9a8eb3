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

type attendeeService struct {
	logger         *slog.Logger
	clock          domain.Clock
	renderer       *Renderer
	messenger      domain.Messenger
	eventRepo      domain.EventRepository
	regRepo        domain.RegistrationRepository
	ruleRepo       domain.NotificationRuleRepository
	teamRepo       domain.EventTeamMemberRepository
	scheduler      domain.NotificationScheduler
	contextTimeout time.Duration
}

// NewAttendeeService creates an AttendeeService with the given repositories.
func NewAttendeeService(
	logger *slog.Logger,
	clock domain.Clock,
	renderer *Renderer,
	messenger domain.Messenger,
	eventRepo domain.EventRepository,
	regRepo domain.RegistrationRepository,
	ruleRepo domain.NotificationRuleRepository,
	teamRepo domain.EventTeamMemberRepository,
	scheduler domain.NotificationScheduler,
	timeout time.Duration,
) domain.AttendeeService {
	return &attendeeService{
		logger:         logger,
		clock:          clock,
		renderer:       renderer,
		messenger:      messenger,
		eventRepo:      eventRepo,
		regRepo:        regRepo,
		ruleRepo:       ruleRepo,
		teamRepo:       teamRepo,
		scheduler:      scheduler,
		contextTimeout: timeout,
	}
}

func (s *attendeeService) Register(ctx context.Context, eventID, recipientID string, data map[string]string) (*domain.Registration, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	recipientID = strings.TrimSpace(recipientID)
	if recipientID == "" {
		return nil, false, fmt.Errorf("%w: recipient_id is required", domain.ErrInvalidInput)
	}
	if _, err := s.eventRepo.GetByID(ctx, eventID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, false, domain.ErrNotFound
		}
		return nil, false, fmt.Errorf("get event: %w", err)
	}

	// Registering twice returns the existing row. Scheduling again is harmless and
	// fills in anything a failed earlier attempt missed.
	reg, err := s.regRepo.GetByEventAndRecipient(ctx, eventID, recipientID)
	created := false
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrNotFound):
		reg = domain.NewRegistration(eventID, recipientID, data, s.clock.Now().UTC())
		if err := s.regRepo.Create(ctx, reg); err != nil {
			return nil, false, fmt.Errorf("create registration: %w", err)
		}
		created = true
	default:
		return nil, false, fmt.Errorf("get registration: %w", err)
	}

	report, err := s.scheduler.ScheduleForRegistration(ctx, reg)
	if err != nil {
		return reg, created, fmt.Errorf("schedule notifications: %w", err)
	}
	s.logger.InfoContext(ctx, "registration scheduled",
		"event_id", eventID,
		"registration_id", reg.ID,
		"created", created,
		"notifications", report.Created,
	)
	return reg, created, nil
}

func (s *attendeeService) CancelRegistration(ctx context.Context, registrationID string) error {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()
	return s.regRepo.Delete(ctx, registrationID)
}

func (s *attendeeService) Respond(ctx context.Context, registrationID string, c domain.Confirmation) (*domain.Registration, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if c != domain.ConfirmationConfirmed && c != domain.ConfirmationDeclined {
		return nil, fmt.Errorf("%w: confirmation must be %q or %q", domain.ErrInvalidInput,
			domain.ConfirmationConfirmed, domain.ConfirmationDeclined)
	}
	reg, err := s.regRepo.GetByID(ctx, registrationID)
	if err != nil {
		return nil, err
	}
	if err := s.regRepo.SetConfirmation(ctx, registrationID, c); err != nil {
		return nil, fmt.Errorf("set confirmation: %w", err)
	}
	reg.Confirmed = c

	if err := s.notifyOrganizers(ctx, reg); err != nil {
		s.logger.WarnContext(ctx, "cannot notify organizers", "registration_id", reg.ID, "err", err)
	}
	return reg, nil
}

// notifyOrganizers sends the response notice to every organizer; a failed send is logged and
// the rest still go out.
func (s *attendeeService) notifyOrganizers(ctx context.Context, reg *domain.Registration) error {
	event, err := s.eventRepo.GetByID(ctx, reg.EventID)
	if err != nil {
		return fmt.Errorf("get event: %w", err)
	}
	rule, err := firstEnabledRule(ctx, s.ruleRepo, event.ID)
	if err != nil {
		return err
	}
	members, err := s.teamRepo.ListByEventID(ctx, event.ID)
	if err != nil {
		return fmt.Errorf("list team members: %w", err)
	}

	recipients := domain.ResolveOrganizerRecipients(rule, event, members)
	text := s.renderer.ResponseNotice(event, reg)
	for _, id := range recipients.IDs {
		if err := s.messenger.Send(ctx, domain.Message{RecipientID: id, Text: text}); err != nil {
			s.logger.WarnContext(ctx, "organizer notice failed",
				"event_id", event.ID, "recipient_id", id, "err", err)
		}
	}
	s.logger.InfoContext(ctx, "organizers notified",
		"event_id", event.ID,
		"registration_id", reg.ID,
		"confirmation", reg.Confirmed,
		"recipients", len(recipients.IDs),
		"explicit", recipients.Explicit,
	)
	return nil
}
