package notifications

import "time"

// QueueItem is a message waiting for delivery.
type QueueItem struct {
	ID         string
	Message    Message
	Attempts   int
	EnqueuedAt time.Time
	LastError  string
}
