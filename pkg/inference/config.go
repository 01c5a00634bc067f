package inference

import (
	"log/slog"
	"net/http"
	"time"
)

// Defaults match OpenAI. Local servers such as Ollama only need a different
// BaseURL and model.
const (
	DefaultBaseURL = "https://api.openai.com/v1"
	DefaultModel   = "gpt-4o-mini"
)

// Config configures a Client.
type Config struct {
	BaseURL     string
	APIKey      string // optional for local servers
	Model       string
	VisionModel string

	// Spoken replies are short, so the token cap is low.
	MaxTokens   int
	Temperature float64

	Timeout    time.Duration
	MaxRetries int
	RetryDelay time.Duration

	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Option configures a Config.
type Option func(*Config)

func WithBaseURL(url string) Option { return func(c *Config) { c.BaseURL = url } }
func WithAPIKey(key string) Option { return func(c *Config) { c.APIKey = key } }
func WithModel(model string) Option { return func(c *Config) { c.Model = model } }

// WithVisionModel sets the model used for Vision. Empty uses the chat model.
func WithVisionModel(model string) Option { return func(c *Config) { c.VisionModel = model } }

func WithMaxTokens(n int) Option { return func(c *Config) { c.MaxTokens = n } }

func WithTemperature(t float64) Option { return func(c *Config) { c.Temperature = t } }

func WithTimeout(d time.Duration) Option { return func(c *Config) { c.Timeout = d } }

// WithRetry sets how many times a 429, 5xx or transport failure is retried.
// The default is none: a failed turn is answered with an apology instead.
func WithRetry(maxRetries int, delay time.Duration) Option {
	return func(c *Config) {
		c.MaxRetries = maxRetries
		c.RetryDelay = delay
	}
}

func WithHTTPClient(hc *http.Client) Option { return func(c *Config) { c.HTTPClient = hc } }

func WithLogger(l *slog.Logger) Option { return func(c *Config) { c.Logger = l } }

// DefaultConfig returns the defaults.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:     DefaultBaseURL,
		Model:       DefaultModel,
		MaxTokens:   150,
		Temperature: 0.7,
		Timeout:     30 * time.Second,
		Logger:      slog.Default(),
	}
}

// Apply applies opts in order.
func (c *Config) Apply(opts ...Option) {
	for _, opt := range opts {
		opt(c)
	}
}

// Validate checks the config and fills derived defaults.
func (c *Config) Validate() error {
	if c.Model == "" {
		return ErrNoModel
	}
	if c.VisionModel == "" {
		c.VisionModel = c.Model
	}
	return nil
}
