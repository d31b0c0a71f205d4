// Package email provides email notification sending via SMTP.
package email

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/textproto"

	"github.com/bissquit/job-garden/internal/notifications"
	"gopkg.in/gomail.v2"
)

// Config holds email sender configuration.
type Config struct {
	Enabled      bool
	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
	FromAddress  string
}

// Sender implements email notification sender via SMTP.
type Sender struct {
	config Config
	dialer *gomail.Dialer
}

// NewSender creates a new email sender.
// Returns error if enabled but required config is missing.
func NewSender(config Config) (*Sender, error) {
	if config.Enabled {
		if config.SMTPHost == "" {
			return nil, errors.New("email sender: SMTP host is required when enabled")
		}
		if config.FromAddress == "" {
			return nil, errors.New("email sender: from address is required when enabled")
		}
	}

	if config.SMTPPort == 0 {
		config.SMTPPort = 587
	}

	dialer := gomail.NewDialer(config.SMTPHost, config.SMTPPort, config.SMTPUser, config.SMTPPassword)
	dialer.TLSConfig = &tls.Config{
		ServerName: config.SMTPHost,
		MinVersion: tls.VersionTLS12,
	}

	slog.Info("email sender configured",
		"enabled", config.Enabled,
		"smtp_host", config.SMTPHost,
		"smtp_port", config.SMTPPort,
		"from_address", config.FromAddress,
	)

	return &Sender{
		config: config,
		dialer: dialer,
	}, nil
}

// Type returns the channel type.
func (s *Sender) Type() notifications.Channel {
	return notifications.ChannelEmail
}

// Send sends an email notification to a single recipient.
func (s *Sender) Send(ctx context.Context, notification notifications.Notification) error {
	if !s.config.Enabled {
		slog.Warn("email sender disabled, skipping send")
		return nil
	}
	if err := ctx.Err(); err != nil {
		return notifications.NewNonRetryableError(err)
	}
	if notification.To == "" {
		return notifications.NewNonRetryableError(errors.New("no recipient"))
	}

	if err := s.dialer.DialAndSend(s.buildMessage(notification)); err != nil {
		err = fmt.Errorf("send email: %w", err)
		if IsRetryable(err) {
			return notifications.NewRetryableError(err)
		}
		return notifications.NewNonRetryableError(err)
	}
	return nil
}

func (s *Sender) buildMessage(notification notifications.Notification) *gomail.Message {
	msg := gomail.NewMessage()
	msg.SetHeader("From", s.config.FromAddress)
	msg.SetHeader("To", notification.To)
	msg.SetHeader("Subject", notification.Subject)
	msg.SetBody("text/plain", notification.Body)
	return msg
}

// IsRetryable determines if an error is retryable.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	// Network timeout errors are retryable
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	// Connection refused is retryable
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}

	// SMTP 4xx codes are temporary failures; 552 (mailbox full) often clears.
	var smtpErr *textproto.Error
	if errors.As(err, &smtpErr) {
		return (smtpErr.Code >= 400 && smtpErr.Code < 500) || smtpErr.Code == 552
	}

	return false
}
