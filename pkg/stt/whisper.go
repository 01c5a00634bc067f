package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/teslashibe/go-ainex/internal/httpc"
)

const providerWhisper = "whisper"

// Whisper transcribes audio with the OpenAI /audio/transcriptions endpoint.
type Whisper struct {
	config *Config
	http   *http.Client
	caller *httpc.Caller
	logger *slog.Logger
}

// NewWhisper creates a Whisper provider. An API key is required.
func NewWhisper(opts ...Option) (*Whisper, error) {
	cfg := DefaultConfig()
	cfg.Apply(opts...)

	if cfg.APIKey == "" {
		return nil, ErrNoAPIKey
	}
	cfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")

	hc := cfg.HTTPClient
	if hc == nil {
		hc = httpc.NewClient(cfg.Timeout)
	}
	logger := cfg.Logger.With("component", "stt.whisper")

	return &Whisper{
		config: cfg,
		http:   hc,
		logger: logger,
		caller: &httpc.Caller{
			Service:  "stt",
			Provider: providerWhisper,
			Client:   hc,
			Retry:    httpc.Retry{Max: cfg.MaxRetries, Delay: cfg.RetryDelay},
			Logger:   logger,
		},
	}, nil
}

// Transcribe uploads req.Audio as a multipart form and returns the text.
func (w *Whisper) Transcribe(ctx context.Context, req Request) (*Result, error) {
	if len(req.Audio) == 0 {
		return nil, ErrEmptyAudio
	}
	start := time.Now()

	lang := req.Language
	if lang == "" {
		lang = w.config.Language
	}

	body, contentType, err := w.buildForm(req, lang)
	if err != nil {
		return nil, WrapError(providerWhisper, err)
	}

	resp, err := w.caller.Do(ctx, func(ctx context.Context) (*http.Request, error) {
		r, err := http.NewRequestWithContext(ctx, http.MethodPost,
			w.config.BaseURL+"/audio/transcriptions", bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		r.Header.Set("Content-Type", contentType)
		r.Header.Set("Authorization", "Bearer "+w.config.APIKey)
		return r, nil
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var result struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, WrapError(providerWhisper, fmt.Errorf("decode response: %w", err))
	}
	text := strings.TrimSpace(result.Text)

	latency := time.Since(start).Milliseconds()
	w.logger.Debug("transcribed", "chars", len(text), "latency_ms", latency)
	return &Result{Text: text, Provider: providerWhisper, LatencyMs: latency}, nil
}

func (w *Whisper) buildForm(req Request, lang string) ([]byte, string, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	fields := [][2]string{{"model", w.config.Model}, {"language", lang}, {"prompt", req.Prompt}, {"response_format", "json"}}
	for _, f := range fields {
		if f[1] == "" {
			continue
		}
		if err := mw.WriteField(f[0], f[1]); err != nil {
			return nil, "", err
		}
	}
	part, err := mw.CreateFormFile("file", "audio.wav")
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(req.Audio); err != nil {
		return nil, "", err
	}
	if err := mw.Close(); err != nil {
		return nil, "", err
	}
	return body.Bytes(), mw.FormDataContentType(), nil
}

// Health checks that the key is accepted.
func (w *Whisper) Health(ctx context.Context) error {
	return w.caller.Get(ctx, w.config.BaseURL+"/models", w.config.APIKey)
}

// Close releases idle connections.
func (w *Whisper) Close() error {
	w.http.CloseIdleConnections()
	return nil
}

var _ Provider = (*Whisper)(nil)
