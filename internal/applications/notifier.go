package applications

import (
	"context"

	"github.com/bissquit/job-garden/internal/domain"
)

// EventType identifies an application lifecycle event.
type EventType string

// Event types.
const (
	EventSubmitted     EventType = "application_submitted"
	EventStatusChanged EventType = "status_changed"
)

// Event describes a lifecycle change for a notification recipient.
type Event struct {
	Type           EventType
	RecipientID    string
	Application    domain.Application
	JobTitle       string
	PreviousStatus domain.ApplicationStatus
}

// Notifier is the notification sink. Notify must not block on delivery;
// an error means the event was not accepted and is only logged.
type Notifier interface {
	Notify(ctx context.Context, event Event) error
}
