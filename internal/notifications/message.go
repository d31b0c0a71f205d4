package notifications

import (
	"time"

	"github.com/bissquit/job-garden/internal/domain"
)

// MessageType defines the type of notification.
type MessageType string

// Message types.
const (
	MessageTypeApplicationSubmitted MessageType = "application_submitted"
	MessageTypeStatusChanged        MessageType = "status_changed"
	MessageTypeWelcome              MessageType = "welcome"
)

// Message is a notification addressed to a user. The recipient's email is
// resolved at delivery time.
type Message struct {
	Type        MessageType
	RecipientID string
	Payload     Payload
}

// Payload contains data for rendering a notification.
type Payload struct {
	MessageType   MessageType              `json:"message_type"`
	RecipientName string                   `json:"recipient_name"`
	Role          domain.Role              `json:"role,omitempty"`
	ApplicationID string                   `json:"application_id,omitempty"`
	JobID         string                   `json:"job_id,omitempty"`
	JobTitle      string                   `json:"job_title,omitempty"`
	StatusFrom    domain.ApplicationStatus `json:"status_from,omitempty"`
	StatusTo      domain.ApplicationStatus `json:"status_to,omitempty"`
	CoverLetter   string                   `json:"cover_letter,omitempty"`
	URL           string                   `json:"url,omitempty"`
	GeneratedAt   time.Time                `json:"generated_at"`
}

// Notification is a rendered message ready for a sender.
type Notification struct {
	To      string
	Subject string
	Body    string
}
