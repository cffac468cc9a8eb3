package domain

import (
	"context"
	"time"
)

// Confirmation is the registrant's tri-state answer to a reminder.
type Confirmation string

const (
	ConfirmationPending   Confirmation = ""
	ConfirmationConfirmed Confirmation = "confirmed"
	ConfirmationDeclined  Confirmation = "declined"
)

// Registration links a registrant to an event.
// swagger:model Registration
type Registration struct {
	ID          string            `json:"id"`
	EventID     string            `json:"event_id"`
	RecipientID string            `json:"recipient_id"`
	Data        map[string]string `json:"data"`
	Confirmed   Confirmation      `json:"confirmed"`
	CreatedAt   time.Time         `json:"created_at"`
}

// NewRegistration creates a new unconfirmed Registration. ID is typically set by the repository on create.
func NewRegistration(eventID, recipientID string, data map[string]string, createdAt time.Time) *Registration {
	if data == nil {
		data = map[string]string{}
	}
	return &Registration{
		EventID:     eventID,
		RecipientID: recipientID,
		Data:        data,
		Confirmed:   ConfirmationPending,
		CreatedAt:   createdAt,
	}
}

// RegistrationRepository defines storage operations for registrations.
type RegistrationRepository interface {
	Create(ctx context.Context, reg *Registration) error
	GetByID(ctx context.Context, id string) (*Registration, error)
	GetByEventAndRecipient(ctx context.Context, eventID, recipientID string) (*Registration, error)
	ListByEventID(ctx context.Context, eventID string) ([]*Registration, error)
	SetConfirmation(ctx context.Context, id string, c Confirmation) error
	// Delete removes the registration; its scheduled notifications go with it.
	Delete(ctx context.Context, id string) error
}

// AttendeeService defines registrant-facing operations.
type AttendeeService interface {
	// Register registers the recipient for the event. Returns (reg, created, err): created is false if already registered.
	Register(ctx context.Context, eventID, recipientID string, data map[string]string) (*Registration, bool, error)
	CancelRegistration(ctx context.Context, registrationID string) error
	// Respond records a confirm/decline answer and tells the organizers about it.
	Respond(ctx context.Context, registrationID string, c Confirmation) (*Registration, error)
}
