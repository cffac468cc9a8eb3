package domain

import "context"

// Button is an interactive response control attached to a message.
type Button struct {
	Text string `json:"text"`
	Data string `json:"data"`
}

// Message is what a Messenger delivers to one recipient.
type Message struct {
	RecipientID string
	Text        string
	Buttons     []Button
}

// Messenger sends messages over a chat or mail channel.
// A nil error means success; an error wrapping ErrRecipientUnreachable is permanent;
// any other error is transient.
type Messenger interface {
	Send(ctx context.Context, msg Message) error
}

// ResponseButtons returns the confirm/decline/contact controls for a registration.
func ResponseButtons(registrationID string) []Button {
	return []Button{
		{Text: "✅ I confirm my participation", Data: "confirm_participation_" + registrationID},
		{Text: "❌ I won't be able to attend", Data: "decline_participation_" + registrationID},
		{Text: "📞 Please contact me", Data: "contact_me_" + registrationID},
	}
}

// BroadcastResult reports the completion of a manual fan-out.
type BroadcastResult struct {
	Total       int `json:"total"`
	Sent        int `json:"sent"`
	Unreachable int `json:"unreachable"`
	Failed      int `json:"failed"`
}

// BroadcastService sends an immediate message to every registrant of an event.
type BroadcastService interface {
	SendNow(ctx context.Context, eventID string, text string) (BroadcastResult, error)
}
