package notifications

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bissquit/job-garden/internal/domain"
)

// WorkerConfig contains worker configuration.
type WorkerConfig struct {
	NumWorkers        int
	MaxAttempts       int
	InitialBackoff    time.Duration
	MaxBackoff        time.Duration
	BackoffMultiplier float64
	// Channel selects the sender used for every message.
	Channel Channel
}

// DefaultWorkerConfig returns default worker configuration.
func DefaultWorkerConfig() WorkerConfig {
	return WorkerConfig{
		NumWorkers:        2,
		MaxAttempts:       3,
		InitialBackoff:    1 * time.Second,
		MaxBackoff:        1 * time.Minute,
		BackoffMultiplier: 2.0,
		Channel:           ChannelLog,
	}
}

// RecipientResolver looks up the user a message is addressed to.
type RecipientResolver interface {
	GetUserByID(ctx context.Context, id string) (*domain.User, error)
}

// Worker delivers queued notifications.
type Worker struct {
	config     WorkerConfig
	queue      <-chan *QueueItem
	recipients RecipientResolver
	renderer   *Renderer
	dispatcher *Dispatcher

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewWorker creates a new notification worker reading from queue.
func NewWorker(config WorkerConfig, queue <-chan *QueueItem, recipients RecipientResolver, renderer *Renderer, dispatcher *Dispatcher) *Worker {
	if config.NumWorkers < 1 {
		config.NumWorkers = 1
	}
	if config.MaxAttempts < 1 {
		config.MaxAttempts = 1
	}
	return &Worker{
		config:     config,
		queue:      queue,
		recipients: recipients,
		renderer:   renderer,
		dispatcher: dispatcher,
		stopCh:     make(chan struct{}),
	}
}

// Start launches worker goroutines.
func (w *Worker) Start(ctx context.Context) {
	slog.Info("starting notification worker",
		"workers", w.config.NumWorkers,
		"channel", w.config.Channel,
		"max_attempts", w.config.MaxAttempts,
	)

	for i := 0; i < w.config.NumWorkers; i++ {
		w.wg.Add(1)
		go w.run(ctx, i)
	}
}

// Stop signals workers to exit and waits for them. A message being
// retried is abandoned.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() { close(w.stopCh) })
	w.wg.Wait()
	slog.Info("notification worker stopped")
}

// Wait blocks until the queue is closed and drained.
func (w *Worker) Wait() {
	w.wg.Wait()
}

func (w *Worker) run(ctx context.Context, workerID int) {
	defer w.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case item, ok := <-w.queue:
			if !ok {
				return
			}
			recordQueueDepth(len(w.queue))
			w.processItem(ctx, workerID, item)
		}
	}
}

func (w *Worker) processItem(ctx context.Context, workerID int, item *QueueItem) {
	channel := w.config.Channel
	logger := slog.With(
		"worker", workerID,
		"item_id", item.ID,
		"type", item.Message.Type,
		"recipient_id", item.Message.RecipientID,
	)

	notification, err := w.prepare(ctx, item)
	if err != nil {
		logger.Error("failed to prepare notification", "error", err)
		recordNotificationSent(channel, "failed")
		return
	}

	for {
		start := time.Now()
		err := w.dispatcher.SendToChannel(ctx, channel, notification)
		item.Attempts++

		if err == nil {
			duration := time.Since(start)
			recordNotificationSent(channel, "success")
			recordNotificationDuration(channel, duration)
			logger.Debug("notification sent", "attempts", item.Attempts, "duration", duration)
			return
		}

		item.LastError = err.Error()
		logger.Warn("send failed",
			"attempt", item.Attempts,
			"max_attempts", w.config.MaxAttempts,
			"error", err,
		)

		if !isRetryable(err) || item.Attempts >= w.config.MaxAttempts {
			logger.Error("notification failed", "attempts", item.Attempts, "error", err)
			recordNotificationSent(channel, "failed")
			return
		}

		recordNotificationSent(channel, "retry")
		if !w.sleep(ctx, w.calculateBackoff(item.Attempts)) {
			logger.Warn("notification abandoned on shutdown", "attempts", item.Attempts)
			recordNotificationSent(channel, "abandoned")
			return
		}
	}
}

// prepare resolves the recipient and renders the message.
func (w *Worker) prepare(ctx context.Context, item *QueueItem) (Notification, error) {
	user, err := w.recipients.GetUserByID(ctx, item.Message.RecipientID)
	if err != nil {
		return Notification{}, fmt.Errorf("resolve recipient: %w", err)
	}
	if user.Email == "" {
		return Notification{}, ErrNoRecipient
	}

	payload := item.Message.Payload
	payload.RecipientName = displayName(user)

	subject, body, err := w.renderer.Render(w.config.Channel, payload)
	if err != nil {
		return Notification{}, err
	}

	return Notification{
		To:      user.Email,
		Subject: subject,
		Body:    body,
	}, nil
}

// sleep waits for d and reports false if the worker is stopping.
func (w *Worker) sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	case <-w.stopCh:
		return false
	}
}

func (w *Worker) calculateBackoff(attempt int) time.Duration {
	backoff := float64(w.config.InitialBackoff)
	for i := 1; i < attempt; i++ {
		backoff *= w.config.BackoffMultiplier
	}

	if backoff > float64(w.config.MaxBackoff) {
		backoff = float64(w.config.MaxBackoff)
	}

	return time.Duration(backoff)
}

func displayName(u *domain.User) string {
	if u.FirstName != "" {
		return u.FirstName
	}
	return u.Email
}

// isRetryable checks if an error is retryable.
func isRetryable(err error) bool {
	type retryable interface {
		IsRetryable() bool
	}
	var r retryable
	if errors.As(err, &r) {
		return r.IsRetryable()
	}

	// Default: retry unknown errors
	return true
}

// RetryableError wraps an error and marks it as retryable or not.
type RetryableError struct {
	Err       error
	Retryable bool
}

func (e *RetryableError) Error() string {
	return e.Err.Error()
}

// IsRetryable returns whether the error is retryable.
func (e *RetryableError) IsRetryable() bool {
	return e.Retryable
}

func (e *RetryableError) Unwrap() error {
	return e.Err
}

// NewRetryableError creates a retryable error.
func NewRetryableError(err error) *RetryableError {
	return &RetryableError{Err: err, Retryable: true}
}

// NewNonRetryableError creates a non-retryable error.
func NewNonRetryableError(err error) *RetryableError {
	return &RetryableError{Err: err, Retryable: false}
}
