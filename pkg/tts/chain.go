package tts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// DefaultBench is how long a provider that rejected its key is skipped.
const DefaultBench = 5 * time.Minute

// Chain tries providers in order and returns the first success. A provider
// that answers with an unauthorized APIError is benched for a while so every
// utterance does not pay for a round trip that cannot succeed.
type Chain struct {
	providers []Provider
	logger    *slog.Logger
	bench     time.Duration
	now       func() time.Time

	mu      sync.Mutex
	benched []time.Time // per provider; zero when active
	last    string
}

// ChainOption configures a Chain.
type ChainOption func(*Chain)

// WithChainLogger sets the chain's logger.
func WithChainLogger(l *slog.Logger) ChainOption {
	return func(c *Chain) { c.logger = l }
}

// WithBench sets how long an unauthorized provider is skipped. Zero
// disables benching.
func WithBench(d time.Duration) ChainOption {
	return func(c *Chain) { c.bench = d }
}

// WithChainClock sets the time source.
func WithChainClock(now func() time.Time) ChainOption {
	return func(c *Chain) { c.now = now }
}

// NewChain builds a chain over providers, which must not be empty.
func NewChain(providers []Provider, opts ...ChainOption) (*Chain, error) {
	if len(providers) == 0 {
		return nil, ErrProviderUnavailable
	}
	c := &Chain{
		providers: providers,
		logger:    slog.Default(),
		bench:     DefaultBench,
		now:       time.Now,
		benched:   make([]time.Time, len(providers)),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("component", "tts.chain")
	return c, nil
}

// Synthesize tries each active provider until one succeeds.
func (c *Chain) Synthesize(ctx context.Context, req Request) (*AudioResult, error) {
	var errs []error
	for i, p := range c.providers {
		if c.isBenched(i) {
			continue
		}

		result, err := p.Synthesize(ctx, req)
		if err == nil {
			if len(errs) > 0 {
				c.logger.Info("fallback provider spoke", "provider", result.Provider)
			}
			c.mu.Lock()
			c.last = result.Provider
			c.mu.Unlock()
			return result, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		errs = append(errs, err)
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.IsUnauthorized() && c.bench > 0 {
			c.benchProvider(i)
			c.logger.Warn("provider rejected its key, benching", "index", i, "for", c.bench, "error", err)
			continue
		}
		c.logger.Warn("provider failed, trying next", "index", i, "error", err)
	}
	if len(errs) == 0 {
		return nil, ErrProviderUnavailable
	}
	return nil, &ChainError{Errors: errs}
}

func (c *Chain) isBenched(i int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	until := c.benched[i]
	if until.IsZero() {
		return false
	}
	if c.now().Before(until) {
		return true
	}
	c.benched[i] = time.Time{}
	return false
}

func (c *Chain) benchProvider(i int) {
	c.mu.Lock()
	c.benched[i] = c.now().Add(c.bench)
	c.mu.Unlock()
}

// Last names the provider that produced the most recent audio.
func (c *Chain) Last() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last
}

// Health succeeds when any provider is healthy.
func (c *Chain) Health(ctx context.Context) error {
	var errs []error
	for _, p := range c.providers {
		err := p.Health(ctx)
		if err == nil {
			return nil
		}
		errs = append(errs, err)
	}
	return fmt.Errorf("tts: all %d providers unhealthy: %w", len(c.providers), errors.Join(errs...))
}

// Close closes every provider.
func (c *Chain) Close() error {
	var errs []error
	for _, p := range c.providers {
		errs = append(errs, p.Close())
	}
	return errors.Join(errs...)
}

// ChainError holds one error per provider that was tried.
type ChainError struct {
	Errors []error
}

func (e *ChainError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("tts chain: %v", e.Errors[0])
	}
	return fmt.Sprintf("tts chain: %d providers failed, last: %v", len(e.Errors), e.Errors[len(e.Errors)-1])
}

func (e *ChainError) Unwrap() []error { return e.Errors }

var _ Provider = (*Chain)(nil)
