// Package fetch walks remote HTTP collections and normalizes their items
// into hoard.RemoteItem records: paginated repository listings (GitHub) and
// one-shot filtered resource queries (Paymo).
package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"
)

// StatusError reports a non-2xx HTTP response, preserving the status code
// for diagnostics.
type StatusError struct {
	Code int
	URL  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d from %s", e.Code, e.URL)
}

// Auth is the credential attached to every request. When Bearer is set it
// wins; otherwise Username/Password are sent as basic auth; when all are
// empty the request goes out unauthenticated.
type Auth struct {
	Bearer   string
	Username string
	Password string
}

// Client issues JSON GET requests with bounded timeouts and a fixed
// inter-request delay. The delay is a deliberate backpressure policy toward
// the upstream API, enforced before every request after the first.
type Client struct {
	http  *http.Client
	auth  Auth
	delay time.Duration

	// sleep is swapped out in tests.
	sleep func(time.Duration)
	sent  int
}

// NewClient creates a Client. connectTimeout bounds connection establishment
// and timeout bounds each whole request; a hung remote can never hang the
// run forever.
func NewClient(auth Auth, connectTimeout, timeout, delay time.Duration) *Client {
	return &Client{
		http: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				DialContext:         (&net.Dialer{Timeout: connectTimeout}).DialContext,
				TLSHandshakeTimeout: connectTimeout,
			},
		},
		auth:  auth,
		delay: delay,
		sleep: time.Sleep,
	}
}

// GetJSON issues one GET and decodes the response into v. A non-2xx status
// is returned as *StatusError; a body that is not well-formed JSON is a hard
// failure for the caller's fetch pass.
func (c *Client) GetJSON(ctx context.Context, url string, v any) error {
	c.throttle()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("building request for %s: %w", url, err)
	}
	req.Header.Set("Accept", "application/json")
	switch {
	case c.auth.Bearer != "":
		req.Header.Set("Authorization", "Bearer "+c.auth.Bearer)
	case c.auth.Username != "" || c.auth.Password != "":
		req.SetBasicAuth(c.auth.Username, c.auth.Password)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("requesting %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, resp.Body)
		return &StatusError{Code: resp.StatusCode, URL: url}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response from %s: %w", url, err)
	}

	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("malformed response from %s: %w", url, err)
	}
	return nil
}

// throttle enforces the inter-request delay.
func (c *Client) throttle() {
	if c.sent > 0 && c.delay > 0 {
		c.sleep(c.delay)
	}
	c.sent++
}
