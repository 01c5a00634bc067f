// Package tts synthesizes the robot's voice.
//
// The robot speaks through the OpenAI speech endpoint and falls back to the
// local espeak command when the remote call fails. Both return WAV audio so
// the result can be handed straight to aplay.
//
// Example usage:
//
//	remote, _ := tts.NewOpenAI(tts.WithAPIKey(os.Getenv("OPENAI_API_KEY")))
//	chain, _ := tts.NewChain([]tts.Provider{remote, tts.NewEspeak()})
//	defer chain.Close()
//
//	result, _ := chain.Synthesize(ctx, tts.Request{Text: "Hello", Voice: "nova", Speed: 1.0})
//	// result.Audio contains a WAV file
package tts

import (
	"context"
	"time"
)

// Provider turns text into audio the sound card can play.
type Provider interface {
	Synthesize(ctx context.Context, req Request) (*AudioResult, error)

	// Health fails when the provider cannot currently speak.
	Health(ctx context.Context) error
	Close() error
}

// Request describes one synthesis call.
type Request struct {
	Text string

	// Voice is a provider voice id. Empty uses the provider default.
	Voice string

	// Speed is a playback rate multiplier; 1.0 is normal. Zero means 1.0.
	Speed float64

	// Pitch is a multiplier around the provider's normal pitch. Providers
	// that cannot change pitch ignore it. Zero means 1.0.
	Pitch float64
}

// AudioResult is a complete synthesized utterance.
type AudioResult struct {
	Audio    []byte
	Format   AudioFormat
	Duration time.Duration // estimated from the text
	Provider string

	CharCount int
	LatencyMs int64
}

// AudioFormat describes Audio.
type AudioFormat struct {
	Encoding   Encoding
	SampleRate int
	Channels   int
}

// Encoding is the container of AudioResult.Audio.
type Encoding string

// Only WAV is requested; aplay plays it without a decoder.
const EncodingWAV Encoding = "wav"

// Speed bounds accepted by the robot's voice settings.
const (
	MinSpeed = 0.5
	MaxSpeed = 1.5
)

// ClampSpeed limits s to [MinSpeed, MaxSpeed]; zero becomes 1.0.
func ClampSpeed(s float64) float64 {
	switch {
	case s == 0:
		return 1.0
	case s < MinSpeed:
		return MinSpeed
	case s > MaxSpeed:
		return MaxSpeed
	}
	return s
}

// estimateDuration guesses how long text takes to say at speed.
func estimateDuration(text string, speed float64) time.Duration {
	const charsPerSecond = 15.0
	return time.Duration(float64(len(text)) / (charsPerSecond * ClampSpeed(speed)) * float64(time.Second))
}
