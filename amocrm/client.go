// ABOUTME: Rate-limited HTTP client for the amoCRM v4 API
// ABOUTME: Serializes upstream calls with minimum spacing and attaches bearer auth
package amocrm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"golang.org/x/oauth2"
)

// RequestError reports a non-2xx upstream response. Callers must not
// retry; the failure propagates to their own error handling.
type RequestError struct {
	Status   int
	Endpoint string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("amocrm: %s returned HTTP %d", e.Endpoint, e.Status)
}

// Client issues requests against the amoCRM API with a minimum wall-clock
// spacing between consecutive calls. The account-wide rate limit applies
// to every endpoint, so a single gate guards all of them.
//
// The gate mutex is held across the wait and the request itself: callers
// are dispatched strictly one at a time, each at least `delay` after the
// previous one started.
type Client struct {
	baseURL string
	delay   time.Duration
	http    *http.Client

	mu          sync.Mutex
	token       *oauth2.Token
	lastRequest time.Time
}

// NewClient creates a client for the given API base URL. A zero delay
// disables the gate's spacing, which is only sensible in tests.
func NewClient(baseURL string, delay time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		delay:   delay,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// SetToken replaces the credentials used for the Authorization header.
// The pair is swapped wholesale, matching the token store semantics.
func (c *Client) SetToken(tok *oauth2.Token) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = tok
}

// Token returns the current credentials (may be nil before Authenticate).
func (c *Client) Token() *oauth2.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

// do issues one gated request. Body, when non-nil, is JSON-encoded. The
// response body is returned raw so each fetcher can decode its own
// envelope. lastRequest is stamped after the call completes, success or
// not, so failures still count against the spacing budget.
func (c *Client) do(ctx context.Context, method, endpoint string, body any) (json.RawMessage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if wait := c.delay - time.Since(c.lastRequest); wait > 0 {
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != nil && c.token.AccessToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.token.AccessToken)
	}

	defer func() { c.lastRequest = time.Now() }()

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request %s: %w", endpoint, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &RequestError{Status: resp.StatusCode, Endpoint: endpoint}
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response from %s: %w", endpoint, err)
	}

	return raw, nil
}
