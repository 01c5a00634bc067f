package httpc

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// Retry is how often a request is repeated after a transport error, a 429 or
// a 5xx. Attempt n waits n*Delay.
type Retry struct {
	Max   int
	Delay time.Duration
}

// Caller sends requests for one provider and turns failures into its errors.
type Caller struct {
	Service  string
	Provider string
	Client   *http.Client
	Retry    Retry
	Logger   *slog.Logger
}

// Do sends the request built by newReq, rebuilding it for every attempt. A
// 2xx response is returned with its body open; anything else becomes an
// *APIError or *ProviderError.
func (c *Caller) Do(ctx context.Context, newReq func(context.Context) (*http.Request, error)) (*http.Response, error) {
	var lastErr error
	for attempt := range c.Retry.Max + 1 {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, c.wrap(ctx.Err())
			case <-time.After(c.Retry.Delay * time.Duration(attempt)):
			}
		}

		req, err := newReq(ctx)
		if err != nil {
			return nil, c.wrap(err)
		}
		resp, err := c.Client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, c.wrap(ctx.Err())
			}
			lastErr = c.wrap(err)
			c.logger().Warn("request failed", "attempt", attempt+1, "error", err)
			continue
		}
		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return resp, nil
		}

		apiErr := ParseError(c.Service, c.Provider, resp)
		resp.Body.Close()
		if !apiErr.IsRetryable() {
			return nil, apiErr
		}
		lastErr = apiErr
		c.logger().Warn("retrying request", "attempt", attempt+1, "status", resp.StatusCode)
	}
	return nil, lastErr
}

// Get issues a single authenticated GET, used for health checks.
func (c *Caller) Get(ctx context.Context, url, apiKey string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return c.wrap(err)
	}
	if apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}
	resp, err := c.Client.Do(req)
	if err != nil {
		return c.wrap(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return ParseError(c.Service, c.Provider, resp)
	}
	return nil
}

func (c *Caller) wrap(err error) error { return Wrap(c.Service, c.Provider, err) }

func (c *Caller) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.Default()
	}
	return c.Logger
}
