package email

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventreminders/internal/domain"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))

type fakeSES struct {
	input *ses.SendEmailInput
	err   error
}

func (f *fakeSES) SendEmail(_ context.Context, params *ses.SendEmailInput, _ ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
	f.input = params
	if f.err != nil {
		return nil, f.err
	}
	return &ses.SendEmailOutput{MessageId: aws.String("msg-1")}, nil
}

func TestNewMailer(t *testing.T) {
	m, err := NewMailer(MailerConfig{Provider: "noop"}, testLogger)
	require.NoError(t, err)
	assert.IsType(t, &noopMailer{}, m)

	m, err = NewMailer(MailerConfig{Provider: "carrier-pigeon"}, testLogger)
	require.NoError(t, err)
	assert.IsType(t, &noopMailer{}, m)

	m, err = NewMailer(MailerConfig{Provider: "ses", SES: SESConfig{Region: "eu-central-1"}}, testLogger)
	require.NoError(t, err)
	assert.IsType(t, &sesMailer{}, m)

	_, err = NewMailer(MailerConfig{Provider: "ses"}, testLogger)
	require.Error(t, err)
}

func TestSESMailer_Send(t *testing.T) {
	tests := []struct {
		name            string
		sesErr          error
		wantErr         bool
		wantUnreachable bool
	}{
		{name: "sent"},
		{name: "rejected", sesErr: &types.MessageRejected{Message: aws.String("Email address is not verified")}, wantErr: true, wantUnreachable: true},
		{name: "throttled", sesErr: errors.New("throttling"), wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &fakeSES{err: tt.sesErr}
			m := &sesMailer{client: client, fromAddress: "bot@example.com", fromName: "Events", logger: testLogger}

			err := m.Send(context.Background(), "ann@example.com", "Reminder", "<p>hi</p>", "hi")

			require.NotNil(t, client.input)
			assert.Equal(t, "Events <bot@example.com>", aws.ToString(client.input.Source))
			assert.Equal(t, []string{"ann@example.com"}, client.input.Destination.ToAddresses)
			assert.Equal(t, "Reminder", aws.ToString(client.input.Message.Subject.Data))
			assert.Equal(t, "hi", aws.ToString(client.input.Message.Body.Text.Data))
			if !tt.wantErr {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.wantUnreachable, errors.Is(err, domain.ErrRecipientUnreachable))
		})
	}
}
