// Package apiclient is the single outbound gateway to the monologue REST API.
// It owns the base URL, bearer header injection and the 401 forced logout.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	apperrors "github.com/jrsteele09/go-monologue/internal/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

const (
	HeaderRequestID = "X-Request-ID"

	maxErrorBody = 64 << 10
)

// SessionBinding connects a client to the login state of one user.
type SessionBinding interface {
	// Token returns nil when nobody is logged in.
	Token(ctx context.Context) *oauth2.Token
	// Expire clears the session after the backend rejected the token.
	Expire(ctx context.Context) error
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	session    SessionBinding
}

func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

// WithSession returns a client sharing the base URL and transport that sends
// the session's bearer token and expires the session on 401.
func (c *Client) WithSession(session SessionBinding) *Client {
	clone := *c
	clone.session = session
	return &clone
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

// NewRequest builds a request for a path relative to the base URL.
func (c *Client) NewRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
}

// Do sends req and returns the response only for 2xx statuses; the caller
// must close its body. Anything else is a NetworkError or a RequestError.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	op := req.Method + " " + req.URL.Path

	requestID := uuid.NewString()
	req.Header.Set(HeaderRequestID, requestID)
	if c.session != nil {
		if token := c.session.Token(ctx); token != nil && token.AccessToken != "" {
			token.SetAuthHeader(req)
		}
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		log.Debug().Err(err).Str("request_id", requestID).Str("op", op).Msg("api request failed")
		return nil, &apperrors.NetworkError{Op: op, Err: err}
	}

	log.Debug().
		Str("request_id", requestID).
		Str("op", op).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("api request")

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}

	defer resp.Body.Close()
	reqErr := &apperrors.RequestError{StatusCode: resp.StatusCode, Message: errorMessage(resp.Body)}

	if resp.StatusCode == http.StatusUnauthorized && c.session != nil {
		if err := c.session.Expire(ctx); err != nil {
			log.Err(err).Str("request_id", requestID).Msg("failed to clear expired session")
		}
		return nil, fmt.Errorf("%s: %w: %w", op, apperrors.ErrSessionExpired, reqErr)
	}
	return nil, fmt.Errorf("%s: %w", op, reqErr)
}

// DoJSON sends in as a JSON body (when non-nil) and decodes the response into
// out (when non-nil).
func (c *Client) DoJSON(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := c.NewRequest(ctx, method, path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if err == io.EOF {
			return nil
		}
		return fmt.Errorf("decode %s %s response: %w", method, path, err)
	}
	return nil
}

// errorMessage pulls {"message": "..."} out of an error payload.
func errorMessage(body io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(body, maxErrorBody))
	if err != nil || len(raw) == 0 {
		return ""
	}
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return ""
	}
	if payload.Message != "" {
		return payload.Message
	}
	return payload.Error
}
