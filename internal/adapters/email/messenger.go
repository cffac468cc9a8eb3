package email

import (
	"context"
	"fmt"
	"net/mail"
	"strings"

	"eventreminders/internal/domain"
)

const notificationTemplate = "notification"

// notificationData feeds the notification templates.
type notificationData struct {
	Subject string
	Lines   []string
	Buttons []domain.Button
}

// Messenger delivers domain messages as email. Recipient ids are email addresses and
// response buttons are listed as text since mail has no callback channel.
type Messenger struct {
	mailer   domain.Mailer
	renderer *templateRenderer
}

// NewMessenger wraps a Mailer as a domain.Messenger.
func NewMessenger(mailer domain.Mailer) *Messenger {
	return &Messenger{mailer: mailer, renderer: &templateRenderer{}}
}

func (m *Messenger) Send(ctx context.Context, msg domain.Message) error {
	addr, err := mail.ParseAddress(msg.RecipientID)
	if err != nil {
		return fmt.Errorf("%w: invalid email address %q", domain.ErrRecipientUnreachable, msg.RecipientID)
	}
	data := notificationData{
		Subject: subjectOf(msg.Text),
		Lines:   strings.Split(strings.TrimRight(msg.Text, "\n"), "\n"),
		Buttons: msg.Buttons,
	}
	subject, html, text, err := m.renderer.Render(notificationTemplate, data)
	if err != nil {
		return fmt.Errorf("render email: %w", err)
	}
	return m.mailer.Send(ctx, addr.Address, subject, html, text)
}

// subjectOf returns the first non-blank line of text.
func subjectOf(text string) string {
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return line
		}
	}
	return "Event notification"
}
