package notifications

import "errors"

// Notifier errors.
var (
	ErrQueueFull      = errors.New("notification queue is full")
	ErrNotifierClosed = errors.New("notifier is closed")
	ErrNoRecipient    = errors.New("recipient has no email address")
)
