package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/teslashibe/go-ainex/internal/httpc"
)

const (
	openAIBaseURL  = "https://api.openai.com/v1"
	providerOpenAI = "openai"

	// openAIRate is the sample rate of wav audio from /audio/speech.
	openAIRate = 24000
)

// Speech models.
const (
	ModelTTS1   = "tts-1"
	ModelTTS1HD = "tts-1-hd"
)

// OpenAI synthesizes speech with the /audio/speech endpoint.
type OpenAI struct {
	config  *Config
	baseURL string
	http    *http.Client
	caller  *httpc.Caller
	logger  *slog.Logger
}

// NewOpenAI creates the remote provider. An API key is required.
func NewOpenAI(opts ...Option) (*OpenAI, error) {
	cfg := DefaultConfig()
	cfg.Apply(opts...)
	if cfg.APIKey == "" {
		return nil, ErrNoAPIKey
	}

	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = openAIBaseURL
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = httpc.NewClient(cfg.Timeout)
	}
	logger := cfg.Logger.With("component", "tts.openai")

	return &OpenAI{
		config:  cfg,
		baseURL: baseURL,
		http:    hc,
		logger:  logger,
		caller: &httpc.Caller{
			Service:  "tts",
			Provider: providerOpenAI,
			Client:   hc,
			Retry:    httpc.Retry{Max: cfg.MaxRetries, Delay: cfg.RetryDelay},
			Logger:   logger,
		},
	}, nil
}

type speechPayload struct {
	Model          string  `json:"model"`
	Voice          string  `json:"voice"`
	Input          string  `json:"input"`
	Speed          float64 `json:"speed"`
	ResponseFormat string  `json:"response_format"`
}

// Synthesize returns req.Text as WAV. Voices OpenAI does not know fall back
// to the configured default.
func (o *OpenAI) Synthesize(ctx context.Context, req Request) (*AudioResult, error) {
	if strings.TrimSpace(req.Text) == "" {
		return nil, WrapError(providerOpenAI, ErrEmptyText)
	}
	start := time.Now()

	payload := speechPayload{
		Model:          o.config.ModelID,
		Voice:          req.Voice,
		Input:          req.Text,
		Speed:          ClampSpeed(req.Speed),
		ResponseFormat: string(EncodingWAV),
	}
	if _, ok := Voices[payload.Voice]; !ok {
		payload.Voice = o.config.VoiceID
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, WrapError(providerOpenAI, fmt.Errorf("marshal payload: %w", err))
	}

	resp, err := o.caller.Do(ctx, func(ctx context.Context) (*http.Request, error) {
		r, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/audio/speech", bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		r.Header.Set("Authorization", "Bearer "+o.config.APIKey)
		r.Header.Set("Content-Type", "application/json")
		return r, nil
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, WrapError(providerOpenAI, fmt.Errorf("read response: %w", err))
	}
	latency := time.Since(start).Milliseconds()
	o.logger.Debug("synthesized", "chars", len(req.Text), "bytes", len(audio),
		"voice", payload.Voice, "speed", payload.Speed, "latency_ms", latency)

	return &AudioResult{
		Audio:     audio,
		Format:    AudioFormat{Encoding: EncodingWAV, SampleRate: openAIRate, Channels: 1},
		Duration:  estimateDuration(req.Text, payload.Speed),
		Provider:  providerOpenAI,
		CharCount: len(req.Text),
		LatencyMs: latency,
	}, nil
}

// Health checks that the key is accepted.
func (o *OpenAI) Health(ctx context.Context) error {
	return o.caller.Get(ctx, o.baseURL+"/models", o.config.APIKey)
}

func (o *OpenAI) Close() error {
	o.http.CloseIdleConnections()
	return nil
}

var _ Provider = (*OpenAI)(nil)
