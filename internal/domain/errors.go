package domain

import "errors"

// Sentinel errors shared by repositories, services and controllers.
var (
	ErrNotFound         = errors.New("not found")
	ErrForbidden        = errors.New("forbidden")
	ErrDuplicate        = errors.New("already exists")
	ErrInvalidInput     = errors.New("invalid input")
	ErrTemplateNotFound = errors.New("notification template not found")
)

// ErrRecipientUnreachable is returned by a Messenger when retrying is futile:
// the recipient blocked the bot, the chat no longer exists, or the address was rejected.
var ErrRecipientUnreachable = errors.New("recipient unreachable")
