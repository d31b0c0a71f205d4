package notifications

import (
	"strings"
	"testing"
	"time"

	"github.com/bissquit/job-garden/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRenderer(t *testing.T) {
	r, err := NewRenderer()
	require.NoError(t, err)
	require.NotNil(t, r)

	assert.Len(t, r.templates, len(renderChannels)*len(renderTypes))
}

func TestRenderer_ApplicationSubmitted(t *testing.T) {
	r, err := NewRenderer()
	require.NoError(t, err)

	subject, body, err := r.Render(ChannelEmail, Payload{
		MessageType:   MessageTypeApplicationSubmitted,
		RecipientName: "Grace",
		JobTitle:      "Go engineer",
		CoverLetter:   "I have shipped Go services for years.",
		URL:           "https://jobs.example.com/applications/app-1",
	})
	require.NoError(t, err)

	assert.Equal(t, "[New application] Go engineer", subject)
	assert.Contains(t, body, "Hello Grace")
	assert.Contains(t, body, `"Go engineer"`)
	assert.Contains(t, body, "I have shipped Go services for years.")
	assert.Contains(t, body, "https://jobs.example.com/applications/app-1")
}

func TestRenderer_StatusChanged(t *testing.T) {
	r, err := NewRenderer()
	require.NoError(t, err)

	subject, body, err := r.Render(ChannelEmail, Payload{
		MessageType:   MessageTypeStatusChanged,
		RecipientName: "Ada",
		JobTitle:      "SRE",
		StatusFrom:    domain.ApplicationStatusScreening,
		StatusTo:      domain.ApplicationStatusOffered,
	})
	require.NoError(t, err)

	assert.Equal(t, "[Offered] SRE", subject)
	assert.Contains(t, body, "has moved to Offered")
	assert.Contains(t, body, "Previous status: Screening")
	assert.NotContains(t, body, "View the application")
}

func TestRenderer_Welcome(t *testing.T) {
	r, err := NewRenderer()
	require.NoError(t, err)

	subject, body, err := r.Render(ChannelEmail, Payload{
		MessageType:   MessageTypeWelcome,
		RecipientName: "new@example.com",
		Role:          domain.RoleEmployer,
	})
	require.NoError(t, err)

	assert.Equal(t, "Welcome to Job Garden", subject)
	assert.Contains(t, body, "registered as Employer")
}

func TestRenderer_LogFormat(t *testing.T) {
	r, err := NewRenderer()
	require.NoError(t, err)

	_, body, err := r.Render(ChannelLog, Payload{
		MessageType:   MessageTypeStatusChanged,
		ApplicationID: "app-1",
		JobTitle:      "SRE",
		StatusFrom:    domain.ApplicationStatusApplied,
		StatusTo:      domain.ApplicationStatusRejected,
	})
	require.NoError(t, err)

	assert.Equal(t, `application app-1 status applied -> rejected for job "SRE"`, body)
	assert.NotContains(t, body, "\n")
}

func TestRenderer_UnknownTemplate(t *testing.T) {
	r, err := NewRenderer()
	require.NoError(t, err)

	_, _, err = r.Render("sms", Payload{MessageType: MessageTypeWelcome})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "template not found")
	assert.False(t, isRetryable(err))
}

func TestRenderer_LongCoverLetterTruncated(t *testing.T) {
	r, err := NewRenderer()
	require.NoError(t, err)

	_, body, err := r.Render(ChannelEmail, Payload{
		MessageType: MessageTypeApplicationSubmitted,
		JobTitle:    "Go engineer",
		CoverLetter: strings.Repeat("a", 800),
	})
	require.NoError(t, err)

	assert.Contains(t, body, strings.Repeat("a", 500)+"...")
	assert.NotContains(t, body, strings.Repeat("a", 501))
}

func TestStatusLabel(t *testing.T) {
	assert.Equal(t, "Interview", statusLabel("interview"))
	assert.Equal(t, "Full Time", statusLabel("full_time"))
	assert.Equal(t, "Unknown", statusLabel(""))
}

func TestFormatTime(t *testing.T) {
	ts := time.Date(2024, 3, 5, 14, 30, 0, 0, time.UTC)

	assert.Equal(t, "Mar 5, 2024 14:30 UTC", formatTime(ts))
	assert.Equal(t, "", formatTime(time.Time{}))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate(10, "short"))
	assert.Equal(t, "héll...", truncate(4, "héllo world"))
}

func TestTitleCase(t *testing.T) {
	assert.Equal(t, "Hello World", titleCase("hello world"))
}
