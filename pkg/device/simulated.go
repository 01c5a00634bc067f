package device

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"os"
	"strings"
	"time"
)

// ExamplePhrases is the menu the simulated microphone picks from when
// nothing has been staged.
var ExamplePhrases = []string{
	"beta",
	"beta tell me about yourself",
	"beta what do you see",
	"beta tell me a fact about robots",
	"beta list voices",
	"beta walk forward 2 steps",
	"beta wave",
	"beta stop",
}

// SimulatedChannel uses hardware when it is present and working, and
// otherwise substitutes staged or example input, console output and a
// placeholder image. It never reports a hardware error.
type SimulatedChannel struct {
	hw      *HardwareChannel
	staging *Staging
	menu    []string
	pick    func(n int) int
	out     io.Writer
	logger  *slog.Logger
}

// SimOption configures a SimulatedChannel.
type SimOption func(*SimulatedChannel)

// WithStaging sets the staged-input queue.
func WithStaging(s *Staging) SimOption {
	return func(c *SimulatedChannel) { c.staging = s }
}

// WithMenu replaces the example phrases. An empty menu makes an idle
// capture return empty text.
func WithMenu(phrases []string) SimOption {
	return func(c *SimulatedChannel) { c.menu = phrases }
}

// WithPicker sets the function choosing a menu index in [0,n).
func WithPicker(pick func(n int) int) SimOption {
	return func(c *SimulatedChannel) { c.pick = pick }
}

// WithOutput sets where simulated speech is written.
func WithOutput(w io.Writer) SimOption {
	return func(c *SimulatedChannel) { c.out = w }
}

// WithSimLogger sets the logger.
func WithSimLogger(l *slog.Logger) SimOption {
	return func(c *SimulatedChannel) { c.logger = l }
}

// NewSimulated wraps hw. hw may have no devices attached at all.
func NewSimulated(hw *HardwareChannel, opts ...SimOption) *SimulatedChannel {
	c := &SimulatedChannel{
		hw:     hw,
		menu:   ExamplePhrases,
		pick:   rand.IntN,
		out:    os.Stdout,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.staging == nil {
		c.staging = NewStaging()
	}
	if c.hw == nil {
		c.hw = NewHardware(nil)
	}
	c.logger = c.logger.With("component", "device.simulated")
	return c
}

// Staging returns the staged-input queue.
func (c *SimulatedChannel) Staging() *Staging { return c.staging }

// Stage queues text to be returned by a later CaptureSpeech.
func (c *SimulatedChannel) Stage(text string) { c.staging.Stage(text) }

// Probe reports which real devices are present.
func (c *SimulatedChannel) Probe(ctx context.Context) Status { return c.hw.Probe(ctx) }

// CaptureSpeech records from the microphone when one is present. Otherwise it
// waits up to timeout for staged input and falls back to an example phrase.
func (c *SimulatedChannel) CaptureSpeech(ctx context.Context, timeout time.Duration) (Speech, Result) {
	if c.hw.microphonePresent(ctx) {
		speech, res := c.hw.CaptureSpeech(ctx, timeout)
		if res.OK {
			return speech, res
		}
		c.logger.Debug("microphone failed, simulating input", "signature", res.Signature)
	}

	if text, ok := c.staging.TryNext(); ok {
		return c.staged(text)
	}

	wctx, cancel := context.WithTimeout(ctx, timeout)
	text, ok := c.staging.Next(wctx)
	cancel()
	if ok {
		return c.staged(text)
	}
	if ctx.Err() != nil {
		return Speech{}, failed(ClassMicrophone, KindTransientIO, "canceled", ctx.Err())
	}

	if len(c.menu) == 0 {
		return Speech{Source: SourceMenu, Heard: time.Now()}, simulated(ClassMicrophone)
	}
	text = c.menu[c.pick(len(c.menu))]
	c.logger.Info("simulated input", "text", text)
	return Speech{Text: text, Source: SourceMenu, Heard: time.Now()}, simulated(ClassMicrophone)
}

func (c *SimulatedChannel) staged(text string) (Speech, Result) {
	c.logger.Info("staged input", "text", text)
	return Speech{Text: text, Source: SourceStaged, Heard: time.Now()}, simulated(ClassMicrophone)
}

// Speak plays through the speaker when one is present and working, and
// prints the text otherwise.
func (c *SimulatedChannel) Speak(ctx context.Context, text string, voice VoiceSettings) Result {
	if strings.TrimSpace(text) == "" {
		return succeeded(ClassSpeaker)
	}
	if c.hw.speakerPresent(ctx) {
		res := c.hw.Speak(ctx, text, voice)
		if res.OK {
			return res
		}
		c.logger.Debug("speaker failed, printing", "signature", res.Signature)
	}
	fmt.Fprintf(c.out, "🤖 %s\n", text)
	return simulated(ClassSpeaker)
}

// CaptureImage returns a real frame when the camera works, else NoImage.
func (c *SimulatedChannel) CaptureImage(ctx context.Context) (Frame, Result) {
	if c.hw.cameraPresent() {
		f, res := c.hw.CaptureImage(ctx)
		if res.OK {
			return f, res
		}
		c.logger.Debug("camera failed, using placeholder", "signature", res.Signature)
	}
	return NoImage, simulated(ClassCamera)
}

// Close closes the wrapped hardware channel.
func (c *SimulatedChannel) Close() error {
	return c.hw.Close()
}

var _ Channel = (*SimulatedChannel)(nil)
