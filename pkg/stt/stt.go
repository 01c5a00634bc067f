// Package stt turns recorded speech into text.
//
// Providers implement a single Transcribe call over a complete WAV clip; the
// robot records fixed-length utterances so no streaming interface is needed.
//
//	w, _ := stt.NewWhisper(stt.WithAPIKey(os.Getenv("OPENAI_API_KEY")))
//	res, err := w.Transcribe(ctx, stt.Request{Audio: clip.WAV()})
package stt

import (
	"context"
	"time"
)

// Provider converts audio to text.
type Provider interface {
	// Transcribe returns the text spoken in req.Audio.
	Transcribe(ctx context.Context, req Request) (*Result, error)

	// Health checks provider connectivity.
	Health(ctx context.Context) error

	// Close releases any resources held by the provider.
	Close() error
}

// Request is one transcription job.
type Request struct {
	// Audio is a complete WAV file.
	Audio []byte

	// Language is an optional ISO-639-1 hint ("en").
	Language string

	// Prompt optionally biases recognition toward expected words.
	Prompt string
}

// Result is a transcription.
type Result struct {
	Text      string
	Provider  string
	Duration  time.Duration // audio length, when known
	LatencyMs int64
}
