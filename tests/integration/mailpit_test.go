//go:build integration

package integration

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// MailpitClient reads the Mailpit REST API.
type MailpitClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewMailpitClient creates a new Mailpit API client.
func NewMailpitClient(host string, port int) *MailpitClient {
	return &MailpitClient{
		baseURL:    fmt.Sprintf("http://%s:%d", host, port),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// MailpitMessage is a message summary as returned by the search endpoint.
type MailpitMessage struct {
	ID      string           `json:"ID"`
	From    MailpitAddress   `json:"From"`
	To      []MailpitAddress `json:"To"`
	Subject string           `json:"Subject"`
	Snippet string           `json:"Snippet"`
	Text    string           `json:"Text"`
}

// MailpitAddress represents an email address.
type MailpitAddress struct {
	Address string `json:"Address"`
	Name    string `json:"Name"`
}

type messagesResponse struct {
	Messages []MailpitMessage `json:"messages"`
	Total    int              `json:"messages_count"`
}

// SearchByRecipient returns messages addressed to email.
func (c *MailpitClient) SearchByRecipient(email string) ([]MailpitMessage, error) {
	var result messagesResponse
	if err := c.getJSON("/api/v1/search?query="+url.QueryEscape("to:"+email), &result); err != nil {
		return nil, fmt.Errorf("search messages: %w", err)
	}
	return result.Messages, nil
}

// GetMessage returns a message including its plain text body.
func (c *MailpitClient) GetMessage(id string) (*MailpitMessage, error) {
	var msg MailpitMessage
	if err := c.getJSON("/api/v1/message/"+id, &msg); err != nil {
		return nil, fmt.Errorf("get message: %w", err)
	}
	return &msg, nil
}

// WaitForSubject polls until a message with subject reaches email.
func (c *MailpitClient) WaitForSubject(email, subject string, timeout time.Duration) (*MailpitMessage, error) {
	deadline := time.Now().Add(timeout)
	var seen []string

	for time.Now().Before(deadline) {
		messages, err := c.SearchByRecipient(email)
		if err == nil {
			seen = seen[:0]
			for _, m := range messages {
				if m.Subject == subject {
					return c.GetMessage(m.ID)
				}
				seen = append(seen, m.Subject)
			}
		}
		time.Sleep(100 * time.Millisecond)
	}

	return nil, fmt.Errorf("timeout waiting for %q to %s, got %v", subject, email, seen)
}

func (c *MailpitClient) getJSON(path string, v interface{}) error {
	resp, err := c.httpClient.Get(c.baseURL + path)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("status %d: %s", resp.StatusCode, body)
	}
	return json.NewDecoder(resp.Body).Decode(v)
}
