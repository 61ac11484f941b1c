package mailbox

import "errors"

var (
	// ErrNotFound covers both truly absent messages and messages owned by
	// someone else; callers cannot distinguish the two.
	ErrNotFound = errors.New("mailbox: message not found")

	// ErrInvalidMessage is returned when a message misses required fields.
	ErrInvalidMessage = errors.New("mailbox: invalid message")
)
