package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"eventreminders/internal/domain"

	"golang.org/x/sync/errgroup"
)

// DefaultBroadcastConcurrency caps concurrent sends of one broadcast when none is configured.
const DefaultBroadcastConcurrency = 4

type broadcastService struct {
	logger      *slog.Logger
	renderer    *Renderer
	messenger   domain.Messenger
	eventRepo   domain.EventRepository
	regRepo     domain.RegistrationRepository
	ruleRepo    domain.NotificationRuleRepository
	concurrency int
	sendTimeout time.Duration
}

// NewBroadcastService returns a BroadcastService sending through messenger with at most
// concurrency sends in flight.
func NewBroadcastService(
	logger *slog.Logger,
	renderer *Renderer,
	messenger domain.Messenger,
	eventRepo domain.EventRepository,
	regRepo domain.RegistrationRepository,
	ruleRepo domain.NotificationRuleRepository,
	concurrency int,
	sendTimeout time.Duration,
) domain.BroadcastService {
	if concurrency <= 0 {
		concurrency = DefaultBroadcastConcurrency
	}
	if sendTimeout <= 0 {
		sendTimeout = DefaultSendTimeout
	}
	return &broadcastService{
		logger:      logger,
		renderer:    renderer,
		messenger:   messenger,
		eventRepo:   eventRepo,
		regRepo:     regRepo,
		ruleRepo:    ruleRepo,
		concurrency: concurrency,
		sendTimeout: sendTimeout,
	}
}

// SendNow sends text (or the default notice when empty) to every registrant and waits
// for all sends to finish. Per-recipient failures are counted, not returned.
func (s *broadcastService) SendNow(ctx context.Context, eventID string, text string) (domain.BroadcastResult, error) {
	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		return domain.BroadcastResult{}, fmt.Errorf("get event: %w", err)
	}
	regs, err := s.regRepo.ListByEventID(ctx, eventID)
	if err != nil {
		return domain.BroadcastResult{}, fmt.Errorf("list registrations: %w", err)
	}
	rule, err := firstEnabledRule(ctx, s.ruleRepo, eventID)
	if err != nil {
		return domain.BroadcastResult{}, err
	}
	includeButtons := rule == nil || rule.IncludeButtons

	body := s.renderer.Notice(event)
	if text != "" {
		body = s.renderer.Render(text, event)
	}

	result := domain.BroadcastResult{Total: len(regs)}
	var mu sync.Mutex
	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for _, reg := range regs {
		g.Go(func() error {
			msg := domain.Message{RecipientID: reg.RecipientID, Text: body}
			if includeButtons {
				msg.Buttons = domain.ResponseButtons(reg.ID)
			}
			sendCtx, cancel := context.WithTimeout(ctx, s.sendTimeout)
			err := s.messenger.Send(sendCtx, msg)
			cancel()

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				result.Sent++
			case errors.Is(err, domain.ErrRecipientUnreachable):
				result.Unreachable++
				s.logger.WarnContext(ctx, "broadcast recipient unreachable",
					"event_id", eventID, "recipient_id", reg.RecipientID, "err", err)
			default:
				result.Failed++
				s.logger.WarnContext(ctx, "broadcast send failed",
					"event_id", eventID, "recipient_id", reg.RecipientID, "err", err)
			}
			return nil
		})
	}
	_ = g.Wait()

	s.logger.InfoContext(ctx, "broadcast finished",
		"event_id", eventID,
		"total", result.Total,
		"sent", result.Sent,
		"unreachable", result.Unreachable,
		"failed", result.Failed,
	)
	return result, nil
}
