// Package supabase talks to a Supabase project over its two REST surfaces:
// GoTrue at /auth/v1 for identities and PostgREST at /rest/v1 for rows.
//
// Every request carries the project's public anon key in the "apikey"
// header. Requests made on behalf of a user carry the user's access token
// as the bearer; anonymous requests use the anon key as the bearer, which
// is what maps them to PostgREST's anon role.
package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/sakif/tsubuyaki/internal/auth"
	"github.com/sakif/tsubuyaki/internal/backend"
)

// Client is shared by the auth provider and the row store.
type Client struct {
	baseURL *url.URL
	anonKey string
	http    *http.Client
	logger  *slog.Logger
}

func NewClient(projectURL, anonKey string, httpClient *http.Client, logger *slog.Logger) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(projectURL, "/"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("supabase: invalid project URL %q", projectURL)
	}
	if anonKey == "" {
		return nil, errors.New("supabase: anon key is required")
	}
	return &Client{
		baseURL: u,
		anonKey: anonKey,
		http:    httpClient,
		logger:  logger.With("component", "supabase"),
	}, nil
}

// APIError is a non-2xx response. GoTrue and PostgREST disagree on the
// field that holds the human-readable text, so all known ones are decoded.
type APIError struct {
	Status int

	Msg              string `json:"msg"`
	Message          string `json:"message"`
	ErrorDescription string `json:"error_description"`
	ErrorCode        string `json:"error_code"`
	Code             any    `json:"code"`
	ErrorName        string `json:"error"`
}

func (e *APIError) Error() string {
	if text := e.Text(); text != "" {
		return text
	}
	return fmt.Sprintf("supabase: HTTP %d", e.Status)
}

// Text is the server's human-readable message, if any.
func (e *APIError) Text() string {
	for _, s := range []string{e.Msg, e.ErrorDescription, e.Message, e.ErrorName} {
		if s != "" {
			return s
		}
	}
	return ""
}

// request describes one call. token is the bearer; empty means the anon key.
type request struct {
	method  string
	path    string
	query   url.Values
	body    any
	token   string
	headers map[string]string
}

// do sends req and decodes a 2xx JSON body into out (if out is non-nil).
func (c *Client) do(ctx context.Context, req request, out any) error {
	u := *c.baseURL
	u.Path = c.baseURL.Path + req.path
	if req.query != nil {
		u.RawQuery = req.query.Encode()
	}

	var body io.Reader
	if req.body != nil {
		buf, err := json.Marshal(req.body)
		if err != nil {
			return fmt.Errorf("supabase: encoding %s body: %w", req.path, err)
		}
		body = bytes.NewReader(buf)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, u.String(), body)
	if err != nil {
		return fmt.Errorf("supabase: building %s request: %w", req.path, err)
	}
	httpReq.Header.Set("apikey", c.anonKey)
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	for k, v := range req.headers {
		httpReq.Header.Set(k, v)
	}

	token := req.token
	if token == "" {
		token = c.anonKey
	}
	client := auth.BearerClient(ctx, c.http, token)

	resp, err := client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("supabase: %s %s: %w", req.method, req.path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode}
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		if len(raw) > 0 {
			// A non-JSON error body still leaves Status set.
			_ = json.Unmarshal(raw, apiErr)
		}
		c.logger.Debug("request failed",
			"method", req.method,
			"path", req.path,
			"status", resp.StatusCode,
			"error", apiErr.Error(),
		)
		return apiErr
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("supabase: decoding %s response: %w", req.path, err)
	}
	return nil
}

// userToken is the caller's token from the context, or "" when anonymous.
func userToken(ctx context.Context) string {
	return backend.AccessTokenFromContext(ctx)
}
