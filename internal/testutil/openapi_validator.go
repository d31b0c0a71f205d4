package testutil

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers"
	"github.com/getkin/kin-openapi/routers/legacy"
)

// Endpoints that are not JSON API operations.
var unvalidatedPaths = map[string]bool{
	"/healthz":          true,
	"/readyz":           true,
	"/docs":             true,
	"/api/openapi.yaml": true,
}

// OpenAPIValidator checks requests and responses against the API document.
type OpenAPIValidator struct {
	doc    *openapi3.T
	router routers.Router
}

// NewOpenAPIValidator loads the document at specPath or fails the test.
func NewOpenAPIValidator(t *testing.T, specPath string) *OpenAPIValidator {
	t.Helper()

	v, err := LoadOpenAPIValidator(specPath)
	if err != nil {
		t.Fatalf("load OpenAPI validator: %v", err)
	}
	return v
}

// LoadOpenAPIValidator loads and validates the document. Use it from
// TestMain where no *testing.T exists.
func LoadOpenAPIValidator(specPath string) (*OpenAPIValidator, error) {
	loader := openapi3.NewLoader()

	doc, err := loader.LoadFromFile(specPath)
	if err != nil {
		return nil, fmt.Errorf("load OpenAPI spec from %s: %w", specPath, err)
	}
	if err := doc.Validate(context.Background()); err != nil {
		return nil, fmt.Errorf("validate OpenAPI spec: %w", err)
	}

	router, err := legacy.NewRouter(doc)
	if err != nil {
		return nil, fmt.Errorf("create OpenAPI router: %w", err)
	}

	return &OpenAPIValidator{doc: doc, router: router}, nil
}

// CheckRequest returns the first mismatch between req and the document.
// Credentials are not checked.
func (v *OpenAPIValidator) CheckRequest(req *http.Request) error {
	if unvalidatedPaths[req.URL.Path] {
		return nil
	}

	route, pathParams, err := v.router.FindRoute(req)
	if err != nil {
		return fmt.Errorf("no route for %s %s: %w", req.Method, req.URL.Path, err)
	}

	return openapi3filter.ValidateRequest(context.Background(), &openapi3filter.RequestValidationInput{
		Request:    req,
		PathParams: pathParams,
		Route:      route,
		Options: &openapi3filter.Options{
			MultiError:         true,
			AuthenticationFunc: openapi3filter.NoopAuthenticationFunc,
		},
	})
}

// CheckResponse returns the first mismatch between resp and the operation
// matched by req. The response body is restored for the caller.
func (v *OpenAPIValidator) CheckResponse(req *http.Request, resp *http.Response) error {
	if unvalidatedPaths[req.URL.Path] {
		return nil
	}

	// The router matches on path only; the test server's host is not a declared server.
	routeReq, err := http.NewRequest(req.Method, req.URL.Path, nil)
	if err != nil {
		return fmt.Errorf("create route request: %w", err)
	}
	route, pathParams, err := v.router.FindRoute(routeReq)
	if err != nil {
		return fmt.Errorf("no route for %s %s: %w", req.Method, req.URL.Path, err)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response body: %w", err)
	}
	_ = resp.Body.Close()
	resp.Body = io.NopCloser(bytes.NewReader(body))

	err = openapi3filter.ValidateResponse(context.Background(), &openapi3filter.ResponseValidationInput{
		RequestValidationInput: &openapi3filter.RequestValidationInput{
			Request:    req,
			PathParams: pathParams,
			Route:      route,
		},
		Status: resp.StatusCode,
		Header: resp.Header,
		Body:   io.NopCloser(bytes.NewReader(body)),
		Options: &openapi3filter.Options{
			MultiError:            true,
			IncludeResponseStatus: true,
		},
	})
	if err != nil {
		return fmt.Errorf("status %d: %s; body: %s", resp.StatusCode, truncate(err.Error(), 500), truncate(string(body), 200))
	}
	return nil
}

// ValidateRequest reports a request mismatch as a test error.
func (v *OpenAPIValidator) ValidateRequest(t *testing.T, req *http.Request) {
	t.Helper()
	if err := v.CheckRequest(req); err != nil {
		t.Errorf("OpenAPI request validation failed for %s %s: %v", req.Method, req.URL.Path, err)
	}
}

// ValidateResponse reports a response mismatch as a test error.
func (v *OpenAPIValidator) ValidateResponse(t *testing.T, req *http.Request, resp *http.Response) {
	t.Helper()
	if err := v.CheckResponse(req, resp); err != nil {
		t.Errorf("OpenAPI response validation failed for %s %s: %v", req.Method, req.URL.Path, err)
	}
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) > n {
		return s[:n] + "..."
	}
	return s
}
