// Package messaging selects the outbound channel used for notifications.
package messaging

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"eventreminders/internal/adapters/email"
	"eventreminders/internal/adapters/telegram"
	"eventreminders/internal/domain"
)

// Provider names accepted by New.
const (
	ProviderTelegram = "telegram"
	ProviderSES      = "ses"
	ProviderNoop     = "noop"
)

// TelegramConfig holds Bot API settings.
type TelegramConfig struct {
	Token  string
	APIURL string
}

// Config holds configuration for creating a messenger.
type Config struct {
	Provider string
	Telegram TelegramConfig
	Email    email.MailerConfig
	// HTTPTimeout bounds a single Bot API round trip.
	HTTPTimeout time.Duration
}

// New returns the Messenger for cfg.Provider. Unknown providers fall back to noop.
func New(cfg Config, logger *slog.Logger) (domain.Messenger, error) {
	switch cfg.Provider {
	case ProviderTelegram:
		if cfg.Telegram.Token == "" {
			return nil, errors.New("telegram bot token is required")
		}
		client := &http.Client{Timeout: cfg.HTTPTimeout}
		return telegram.NewClient(cfg.Telegram.Token, cfg.Telegram.APIURL, client), nil
	case ProviderSES:
		mailer, err := email.NewMailer(cfg.Email, logger)
		if err != nil {
			return nil, fmt.Errorf("create mailer: %w", err)
		}
		return email.NewMessenger(mailer), nil
	case ProviderNoop:
		return &noopMessenger{logger: logger}, nil
	default:
		logger.Warn("unknown messenger provider, using noop", "provider", cfg.Provider)
		return &noopMessenger{logger: logger}, nil
	}
}

type noopMessenger struct {
	logger *slog.Logger
}

func (n *noopMessenger) Send(_ context.Context, msg domain.Message) error {
	n.logger.Info("message would be sent (noop)", "recipient", msg.RecipientID, "buttons", len(msg.Buttons))
	return nil
}
