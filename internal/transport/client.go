// Package transport implements the HTTP contract with the answer backend:
// one streaming ask endpoint plus best-effort conversation and suggestion
// lookups.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/grantline/assist/pkg/types"
)

var (
	// ErrNoCredentials is returned before any request when no API key is
	// configured. Callers surface it without opening a stream.
	ErrNoCredentials = errors.New("no API credential configured")
	// ErrNotFound indicates the requested conversation no longer exists.
	ErrNotFound = errors.New("conversation not found")
)

const (
	// retryInitialInterval is the initial interval for exponential backoff.
	retryInitialInterval = 500 * time.Millisecond
	// retryMaxInterval is the maximum interval for exponential backoff.
	retryMaxInterval = 5 * time.Second
	// maxRetries bounds retries for idempotent lookups.
	maxRetries = 3
)

// Config holds client configuration.
type Config struct {
	// BaseURL is the backend root, e.g. "https://api.grantline.app".
	BaseURL string
	// APIKey authenticates every request.
	APIKey string
	// HTTPClient overrides the default client. The default has no timeout
	// because ask responses stream indefinitely.
	HTTPClient *http.Client
}

// Client talks to the answer backend.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// NewClient creates a backend client.
func NewClient(cfg Config) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		http:    httpClient,
	}
}

// AskRequest is one outgoing question.
type AskRequest struct {
	Scope          types.Scope     `json:"scope"`
	Text           string          `json:"text"`
	ConversationID string          `json:"conversationID,omitempty"`
	Mentions       []types.Mention `json:"mentions,omitempty"`
}

// newRetryBackoff creates an exponential backoff with jitter for the
// idempotent lookup endpoints. Re-running a lookup is always safe.
func newRetryBackoff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = retryInitialInterval
	b.MaxInterval = retryMaxInterval
	b.RandomizationFactor = 0.5
	b.Multiplier = 2.0
	b.Reset()
	return backoff.WithContext(backoff.WithMaxRetries(b, maxRetries), ctx)
}

// OpenStream sends a question and returns the raw response stream. The
// caller owns the returned body and must close it; cancelling ctx aborts
// the read. A non-success status is reported as a descriptive error before
// any streaming begins.
func (c *Client) OpenStream(ctx context.Context, req AskRequest) (io.ReadCloser, error) {
	if c.apiKey == "" {
		return nil, ErrNoCredentials
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode ask request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/ask", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create ask request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("ask request failed: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, statusError("ask", resp)
	}

	return resp.Body, nil
}

// Conversation fetches the full history for a conversation id.
// Returns ErrNotFound when the id no longer resolves.
func (c *Client) Conversation(ctx context.Context, id string) (*types.Conversation, error) {
	var conv types.Conversation
	err := c.getJSON(ctx, "/v1/conversations/"+url.PathEscape(id), nil, &conv)
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

// Recent fetches the single most recent conversation in a scope.
// Returns ErrNotFound when the scope has no conversations.
func (c *Client) Recent(ctx context.Context, scope types.Scope) (*types.Conversation, error) {
	var conv types.Conversation
	err := c.getJSON(ctx, "/v1/conversations/recent", scopeQuery(scope), &conv)
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

// Suggestions fetches scope-appropriate suggested questions.
func (c *Client) Suggestions(ctx context.Context, scope types.Scope) ([]string, error) {
	var out struct {
		Questions []string `json:"questions"`
	}
	if err := c.getJSON(ctx, "/v1/suggestions", scopeQuery(scope), &out); err != nil {
		return nil, err
	}
	return out.Questions, nil
}

// getJSON performs a GET with retries and decodes the response body into v.
func (c *Client) getJSON(ctx context.Context, path string, query url.Values, v any) error {
	if c.apiKey == "" {
		return ErrNoCredentials
	}

	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	operation := func() error {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

		resp, err := c.http.Do(httpReq)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusOK:
			if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
				return backoff.Permanent(fmt.Errorf("failed to decode response: %w", err))
			}
			return nil
		case resp.StatusCode == http.StatusNotFound:
			return backoff.Permanent(ErrNotFound)
		case resp.StatusCode >= 500:
			// Transient server trouble: worth retrying.
			return statusError("lookup", resp)
		default:
			return backoff.Permanent(statusError("lookup", resp))
		}
	}

	return backoff.Retry(operation, newRetryBackoff(ctx))
}

// scopeQuery encodes a scope as query parameters.
func scopeQuery(scope types.Scope) url.Values {
	q := url.Values{"scope": {string(scope.Kind)}}
	if scope.ID != "" {
		q.Set("scopeID", scope.ID)
	}
	return q
}

// statusError builds a descriptive error from a non-success response.
func statusError(op string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	detail := strings.TrimSpace(string(body))
	if detail == "" {
		return fmt.Errorf("%s request failed: %s", op, resp.Status)
	}
	return fmt.Errorf("%s request failed: %s: %s", op, resp.Status, detail)
}
