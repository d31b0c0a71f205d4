// Package testutil provides the HTTP client, containers and OpenAPI
// validator shared by integration tests.
package testutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"testing"

	"github.com/bissquit/job-garden/internal/pkg/httputil"
)

// Client calls the API the way a browser would: auth cookies live in a
// jar and the CSRF token is echoed on state-changing requests. Setting
// Token switches to bearer authentication.
type Client struct {
	BaseURL     string
	Token       string
	CSRFToken   string
	HTTPClient  *http.Client
	Validator   *OpenAPIValidator
	ValidateAPI bool
	t           *testing.T
}

func newJarClient() *http.Client {
	jar, _ := cookiejar.New(nil)
	return &http.Client{Jar: jar}
}

// NewClient creates a client without response validation.
func NewClient(baseURL string) *Client {
	return &Client{BaseURL: baseURL, HTTPClient: newJarClient()}
}

// NewClientWithValidator creates a client that checks every response
// against validator. Call SetT before use so failures are reported.
func NewClientWithValidator(baseURL string, validator *OpenAPIValidator) *Client {
	return &Client{
		BaseURL:     baseURL,
		HTTPClient:  newJarClient(),
		Validator:   validator,
		ValidateAPI: true,
	}
}

// SetT sets the test that validation failures are reported to.
func (c *Client) SetT(t *testing.T) {
	c.t = t
}

// WithoutValidation returns a copy sharing the cookie jar with validation off.
func (c *Client) WithoutValidation() *Client {
	clone := *c
	clone.ValidateAPI = false
	return &clone
}

// LoginAs logs in and keeps the returned cookies and CSRF token.
func (c *Client) LoginAs(t *testing.T, email, password string) {
	t.Helper()
	c.t = t

	resp, err := c.POST("/api/v1/auth/login", map[string]string{
		"email":    email,
		"password": password,
	})
	if err != nil {
		t.Fatalf("login request failed: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("login failed: status=%d body=%s", resp.StatusCode, body)
	}

	for _, cookie := range resp.Cookies() {
		if cookie.Name == httputil.CSRFTokenCookie {
			c.CSRFToken = cookie.Value
		}
	}
}

// Register creates an account with the given role and returns its id.
func (c *Client) Register(t *testing.T, email, password, role string) string {
	t.Helper()
	c.t = t

	resp, err := c.POST("/api/v1/auth/register", map[string]string{
		"email":      email,
		"password":   password,
		"first_name": "Test",
		"role":       role,
	})
	if err != nil {
		t.Fatalf("register request failed: %v", err)
	}
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register failed: status=%d body=%s", resp.StatusCode, ReadBody(t, resp))
	}

	var result struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	DecodeJSON(t, resp, &result)
	return result.Data.ID
}

// RegisterAndLogin registers a fresh account with a random email and logs in as it.
func (c *Client) RegisterAndLogin(t *testing.T, role string) (id, email string) {
	t.Helper()
	email = RandomEmail()
	id = c.Register(t, email, DefaultPassword, role)
	c.LoginAs(t, email, DefaultPassword)
	return id, email
}

// ClearToken drops all credentials.
func (c *Client) ClearToken() {
	c.Token = ""
	c.CSRFToken = ""
	c.HTTPClient = newJarClient()
}

// GET performs a GET request.
func (c *Client) GET(path string) (*http.Response, error) {
	return c.Do(http.MethodGet, path, nil)
}

// POST performs a POST request with a JSON body.
func (c *Client) POST(path string, body interface{}) (*http.Response, error) {
	return c.Do(http.MethodPost, path, body)
}

// PUT performs a PUT request with a JSON body.
func (c *Client) PUT(path string, body interface{}) (*http.Response, error) {
	return c.Do(http.MethodPut, path, body)
}

// PATCH performs a PATCH request with a JSON body.
func (c *Client) PATCH(path string, body interface{}) (*http.Response, error) {
	return c.Do(http.MethodPatch, path, body)
}

// DELETE performs a DELETE request.
func (c *Client) DELETE(path string) (*http.Response, error) {
	return c.Do(http.MethodDelete, path, nil)
}

// Do sends a request with body encoded as JSON when non-nil.
func (c *Client) Do(method, path string, body interface{}) (*http.Response, error) {
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return nil, fmt.Errorf("marshal body: %w", err)
		}
	}

	req, err := http.NewRequest(method, c.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	if c.CSRFToken != "" && method != http.MethodGet {
		req.Header.Set(httputil.CSRFTokenHeader, c.CSRFToken)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}

	if c.ValidateAPI && c.Validator != nil && c.t != nil {
		c.Validator.ValidateResponse(c.t, req, resp)
	}
	return resp, nil
}

// DecodeJSON decodes and closes the response body.
func DecodeJSON(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()
	defer func() { _ = resp.Body.Close() }()

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

// ReadBody reads and closes the response body.
func ReadBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return string(body)
}
