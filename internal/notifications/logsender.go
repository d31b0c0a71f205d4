package notifications

import (
	"context"
	"log/slog"
)

// LogSender writes notifications to the application log. It is used when
// no external channel is configured.
type LogSender struct {
	logger *slog.Logger
}

// NewLogSender creates a log sender. A nil logger uses slog.Default.
func NewLogSender(logger *slog.Logger) *LogSender {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSender{logger: logger}
}

// Type returns the channel type.
func (s *LogSender) Type() Channel {
	return ChannelLog
}

// Send logs the notification.
func (s *LogSender) Send(ctx context.Context, notification Notification) error {
	s.logger.InfoContext(ctx, "notification",
		"to", notification.To,
		"subject", notification.Subject,
		"body", notification.Body,
	)
	return nil
}
