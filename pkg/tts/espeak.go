package tts

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/teslashibe/go-ainex/pkg/audioio"
)

const providerEspeak = "espeak"

// espeak defaults: words per minute and pitch (0-99).
const (
	espeakWPM   = 175
	espeakPitch = 50
)

// Espeak implements Provider with the local espeak command. It needs no
// network and is used as the last resort in a Chain.
type Espeak struct {
	command string
	run     audioio.RunFunc
	logger  *slog.Logger
}

// EspeakOption configures an Espeak provider.
type EspeakOption func(*Espeak)

// WithEspeakCommand sets the binary to run (e.g. "espeak-ng").
func WithEspeakCommand(name string) EspeakOption {
	return func(e *Espeak) { e.command = name }
}

// WithEspeakRunner replaces command execution, for tests.
func WithEspeakRunner(run audioio.RunFunc) EspeakOption {
	return func(e *Espeak) { e.run = run }
}

// WithEspeakLogger sets the logger.
func WithEspeakLogger(logger *slog.Logger) EspeakOption {
	return func(e *Espeak) { e.logger = logger }
}

// NewEspeak creates a local espeak provider.
func NewEspeak(opts ...EspeakOption) *Espeak {
	e := &Espeak{
		command: "espeak",
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.run == nil {
		e.run = audioio.ExecRun
	}
	e.logger = e.logger.With("component", "tts.espeak")
	return e
}

// Synthesize renders text to WAV on stdout.
func (e *Espeak) Synthesize(ctx context.Context, req Request) (*AudioResult, error) {
	if strings.TrimSpace(req.Text) == "" {
		return nil, WrapError(providerEspeak, ErrEmptyText)
	}
	start := time.Now()

	args := e.args(req)
	stdout, stderr, err := e.run(ctx, nil, e.command, args...)
	if err != nil {
		msg := strings.TrimSpace(string(stderr))
		if msg == "" {
			msg = err.Error()
		}
		return nil, WrapError(providerEspeak, fmt.Errorf("%s: %s: %w", e.command, msg, err))
	}
	if !bytes.HasPrefix(stdout, []byte("RIFF")) {
		return nil, WrapError(providerEspeak, fmt.Errorf("%s produced no wav output", e.command))
	}

	latency := time.Since(start).Milliseconds()
	e.logger.Debug("synthesized audio", "chars", len(req.Text), "bytes", len(stdout), "latency_ms", latency)

	return &AudioResult{
		Audio:     stdout,
		Format:    AudioFormat{Encoding: EncodingWAV, SampleRate: 22050, Channels: 1},
		Duration:  estimateDuration(req.Text, req.Speed),
		Provider:  providerEspeak,
		CharCount: len(req.Text),
		LatencyMs: latency,
	}, nil
}

func (e *Espeak) args(req Request) []string {
	voice, ok := espeakVoices[req.Voice]
	if !ok {
		voice = "en"
	}
	wpm := int(espeakWPM * ClampSpeed(req.Speed))

	pitch := req.Pitch
	if pitch == 0 {
		pitch = 1.0
	}
	p := min(max(int(espeakPitch*pitch), 0), 99)

	return []string{
		"-v", voice,
		"-s", strconv.Itoa(wpm),
		"-p", strconv.Itoa(p),
		"--stdout",
		req.Text,
	}
}

// Health checks that the command is installed.
func (e *Espeak) Health(ctx context.Context) error {
	if _, _, err := e.run(ctx, nil, e.command, "--version"); err != nil {
		return WrapError(providerEspeak, err)
	}
	return nil
}

// Close is a no-op.
func (e *Espeak) Close() error {
	return nil
}

// Verify Espeak implements Provider at compile time.
var _ Provider = (*Espeak)(nil)
