// Package notifications delivers application lifecycle messages to users.
//
// Producers call Notifier, which never blocks: messages go into a bounded
// in-memory queue and are dropped when it is full. Worker drains the queue,
// resolves recipients, renders templates and sends through the Dispatcher.
package notifications

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bissquit/job-garden/internal/applications"
	"github.com/bissquit/job-garden/internal/domain"
	"github.com/bissquit/job-garden/internal/pkg/ctxlog"
	"github.com/google/uuid"
)

// Notifier is the non-blocking notification sink. It implements
// applications.Notifier and identity.UserCreatedHandler.
type Notifier struct {
	queue   chan *QueueItem
	baseURL string

	mu     sync.RWMutex
	closed bool
}

// NewNotifier creates a notifier with a queue of queueSize messages.
func NewNotifier(queueSize int, baseURL string) *Notifier {
	if queueSize < 1 {
		queueSize = 1
	}
	return &Notifier{
		queue:   make(chan *QueueItem, queueSize),
		baseURL: baseURL,
	}
}

// Notify converts an application event into a message and enqueues it.
func (n *Notifier) Notify(ctx context.Context, event applications.Event) error {
	msg := Message{
		RecipientID: event.RecipientID,
		Payload: Payload{
			ApplicationID: event.Application.ID,
			JobID:         event.Application.JobID,
			JobTitle:      event.JobTitle,
			StatusTo:      event.Application.Status,
			URL:           n.applicationURL(event.Application.ID),
		},
	}

	switch event.Type {
	case applications.EventSubmitted:
		msg.Type = MessageTypeApplicationSubmitted
		msg.Payload.CoverLetter = event.Application.CoverLetter
	case applications.EventStatusChanged:
		msg.Type = MessageTypeStatusChanged
		msg.Payload.StatusFrom = event.PreviousStatus
	default:
		return fmt.Errorf("unknown event type %q", event.Type)
	}

	return n.Enqueue(ctx, msg)
}

// OnUserCreated enqueues a welcome message for a new account.
func (n *Notifier) OnUserCreated(ctx context.Context, user *domain.User) error {
	return n.Enqueue(ctx, Message{
		Type:        MessageTypeWelcome,
		RecipientID: user.ID,
		Payload: Payload{
			Role: user.Role,
			URL:  n.baseURL,
		},
	})
}

// Enqueue adds msg to the queue without blocking.
func (n *Notifier) Enqueue(ctx context.Context, msg Message) error {
	n.mu.RLock()
	defer n.mu.RUnlock()

	if n.closed {
		return ErrNotifierClosed
	}

	msg.Payload.MessageType = msg.Type
	msg.Payload.GeneratedAt = time.Now()
	item := &QueueItem{
		ID:         uuid.NewString(),
		Message:    msg,
		EnqueuedAt: msg.Payload.GeneratedAt,
	}

	select {
	case n.queue <- item:
		recordEnqueued(msg.Type)
		recordQueueDepth(len(n.queue))
		return nil
	default:
		recordDropped(msg.Type)
		ctxlog.FromContext(ctx).Warn("notification queue full, message dropped",
			"type", msg.Type,
			"recipient_id", msg.RecipientID,
		)
		return ErrQueueFull
	}
}

// Queue returns the receiving side of the queue for workers.
func (n *Notifier) Queue() <-chan *QueueItem {
	return n.queue
}

// Len returns the number of queued messages.
func (n *Notifier) Len() int {
	return len(n.queue)
}

// Close stops accepting messages and closes the queue. Workers finish
// the messages already queued.
func (n *Notifier) Close() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return
	}
	n.closed = true
	close(n.queue)
}

func (n *Notifier) applicationURL(id string) string {
	if n.baseURL == "" || id == "" {
		return ""
	}
	return fmt.Sprintf("%s/applications/%s", n.baseURL, id)
}
