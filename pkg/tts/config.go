package tts

import (
	"log/slog"
	"net/http"
	"time"
)

// Config configures the remote speech provider.
type Config struct {
	APIKey  string
	BaseURL string
	VoiceID string // used when a request names no known voice
	ModelID string

	Timeout    time.Duration
	MaxRetries int
	RetryDelay time.Duration

	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Option configures a Config.
type Option func(*Config)

func WithAPIKey(key string) Option { return func(c *Config) { c.APIKey = key } }
func WithBaseURL(url string) Option { return func(c *Config) { c.BaseURL = url } }
func WithVoice(id string) Option { return func(c *Config) { c.VoiceID = id } }
func WithModel(id string) Option { return func(c *Config) { c.ModelID = id } }
func WithTimeout(d time.Duration) Option {
	return func(c *Config) { c.Timeout = d }
}

// WithRetry sets how many times a 429, 5xx or transport failure is retried.
// The default is none; the Chain falls back to the next provider instead.
func WithRetry(maxRetries int, delay time.Duration) Option {
	return func(c *Config) {
		c.MaxRetries = maxRetries
		c.RetryDelay = delay
	}
}

// WithHTTPClient replaces the client built from Timeout.
func WithHTTPClient(hc *http.Client) Option { return func(c *Config) { c.HTTPClient = hc } }

func WithLogger(l *slog.Logger) Option { return func(c *Config) { c.Logger = l } }

// DefaultConfig targets OpenAI's tts-1 model with the alloy voice.
func DefaultConfig() *Config {
	return &Config{
		BaseURL: openAIBaseURL,
		ModelID: ModelTTS1,
		VoiceID: VoiceAlloy,
		Timeout: 30 * time.Second,
		Logger:  slog.Default(),
	}
}

// Apply applies opts in order.
func (c *Config) Apply(opts ...Option) {
	for _, opt := range opts {
		opt(c)
	}
}
