package notifications

import (
	"bytes"
	"embed"
	"fmt"
	"strings"
	"text/template"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

//go:embed templates/*.tmpl
var templatesFS embed.FS

// Renderer renders notifications from templates.
type Renderer struct {
	templates map[string]*template.Template
}

var (
	renderChannels = []Channel{ChannelEmail, ChannelLog}
	renderTypes    = []MessageType{
		MessageTypeApplicationSubmitted,
		MessageTypeStatusChanged,
		MessageTypeWelcome,
	}
)

// NewRenderer creates a new renderer and loads all templates.
func NewRenderer() (*Renderer, error) {
	funcMap := template.FuncMap{
		"title":       titleCase,
		"statusLabel": statusLabel,
		"upper":       strings.ToUpper,
		"lower":       strings.ToLower,
		"formatTime":  formatTime,
		"truncate":    truncate,
	}

	r := &Renderer{templates: make(map[string]*template.Template)}

	for _, channel := range renderChannels {
		for _, msg := range renderTypes {
			name := fmt.Sprintf("%s_%s", channel, msg)
			filename := fmt.Sprintf("templates/%s.tmpl", name)

			content, err := templatesFS.ReadFile(filename)
			if err != nil {
				return nil, fmt.Errorf("read template %s: %w", filename, err)
			}

			tmpl, err := template.New(name).Funcs(funcMap).Parse(string(content))
			if err != nil {
				return nil, fmt.Errorf("parse template %s: %w", name, err)
			}

			r.templates[name] = tmpl
		}
	}

	return r, nil
}

// Render renders a payload for the channel. Returns subject and body.
func (r *Renderer) Render(channel Channel, payload Payload) (subject, body string, err error) {
	templateName := fmt.Sprintf("%s_%s", channel, payload.MessageType)
	tmpl, ok := r.templates[templateName]
	if !ok {
		return "", "", NewNonRetryableError(fmt.Errorf("template not found: %s", templateName))
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, payload); err != nil {
		return "", "", fmt.Errorf("execute template %s: %w", templateName, err)
	}

	return renderSubject(payload), strings.TrimSpace(buf.String()), nil
}

func renderSubject(payload Payload) string {
	switch payload.MessageType {
	case MessageTypeApplicationSubmitted:
		return fmt.Sprintf("[New application] %s", payload.JobTitle)
	case MessageTypeStatusChanged:
		return fmt.Sprintf("[%s] %s", statusLabel(string(payload.StatusTo)), payload.JobTitle)
	case MessageTypeWelcome:
		return "Welcome to Job Garden"
	default:
		return "Notification"
	}
}

// Template functions

var titleCaser = cases.Title(language.English)

func titleCase(s string) string {
	return titleCaser.String(s)
}

func statusLabel(status string) string {
	if status == "" {
		return "Unknown"
	}
	return titleCase(strings.ReplaceAll(status, "_", " "))
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format("Jan 2, 2006 15:04 UTC")
}

func truncate(n int, s string) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
