package audioio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"regexp"
	"strconv"
	"time"
)

// RunFunc runs an external command, feeding stdin when non-nil.
type RunFunc func(ctx context.Context, stdin io.Reader, name string, args ...string) (stdout, stderr []byte, err error)

// ALSA records and plays audio with arecord and aplay.
type ALSA struct {
	cfg    Config
	logger *slog.Logger
	run    RunFunc
}

// Option configures an ALSA backend.
type Option func(*ALSA)

// WithRunner replaces command execution, for tests.
func WithRunner(run RunFunc) Option {
	return func(a *ALSA) { a.run = run }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *ALSA) { a.logger = logger }
}

// Compile-time interface checks.
var (
	_ Recorder = (*ALSA)(nil)
	_ Player   = (*ALSA)(nil)
	_ Prober   = (*ALSA)(nil)
)

// NewALSA creates an ALSA backend.
func NewALSA(cfg Config, opts ...Option) (*ALSA, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	a := &ALSA{
		cfg:    cfg,
		logger: slog.Default(),
		run:    ExecRun,
	}
	for _, opt := range opts {
		opt(a)
	}
	a.logger = a.logger.With("component", "audioio.alsa")
	return a, nil
}

// Config returns the audio configuration.
func (a *ALSA) Config() Config {
	return a.cfg
}

// Record captures d of audio. The command is killed if it runs longer than
// d plus the configured grace period.
func (a *ALSA) Record(ctx context.Context, d time.Duration) (Clip, error) {
	secs := int((d + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	ctx, cancel := context.WithTimeout(ctx, time.Duration(secs)*time.Second+a.cfg.Grace)
	defer cancel()

	args := []string{
		"-q",
		"-D", a.cfg.CaptureDevice,
		"-d", strconv.Itoa(secs),
		"-f", "S16_LE",
		"-r", strconv.Itoa(a.cfg.SampleRate),
		"-c", strconv.Itoa(a.cfg.Channels),
		"-t", "wav",
		"-",
	}
	a.logger.Debug("recording", "device", a.cfg.CaptureDevice, "seconds", secs)

	start := time.Now()
	stdout, stderr, err := a.run(ctx, nil, a.cfg.RecordCommand, args...)
	if err != nil {
		return Clip{}, a.commandError(ctx, a.cfg.RecordCommand, stderr, err)
	}

	clip, err := DecodeWAV(stdout)
	if err != nil {
		return Clip{}, fmt.Errorf("decode recording: %w", err)
	}
	if len(clip.Samples) == 0 {
		return Clip{}, ErrEmptyClip
	}

	a.logger.Debug("recorded",
		"duration", clip.Duration(),
		"elapsed", time.Since(start),
		"level", clip.Level(),
	)
	return clip, nil
}

// maxPlayback bounds audio whose length cannot be read from its header.
const maxPlayback = time.Minute

// Play plays a WAV file and blocks until aplay exits, or until the clip's
// length plus Grace has passed.
func (a *ALSA) Play(ctx context.Context, wav []byte) error {
	limit := maxPlayback
	if clip, err := DecodeWAV(wav); err == nil {
		limit = clip.Duration() + a.cfg.Grace
	}
	ctx, cancel := context.WithTimeout(ctx, limit)
	defer cancel()

	_, stderr, err := a.run(ctx, bytes.NewReader(wav), a.cfg.PlayCommand, "-q", "-D", a.cfg.PlaybackDevice, "-")
	if err != nil {
		return a.commandError(ctx, a.cfg.PlayCommand, stderr, err)
	}
	return nil
}

// ProbeCapture checks that the capture device's card is listed by arecord.
func (a *ALSA) ProbeCapture(ctx context.Context) error {
	return a.probe(ctx, a.cfg.RecordCommand, a.cfg.CaptureDevice)
}

// ProbePlayback checks that the playback device's card is listed by aplay.
func (a *ALSA) ProbePlayback(ctx context.Context) error {
	return a.probe(ctx, a.cfg.PlayCommand, a.cfg.PlaybackDevice)
}

var (
	noCardsRe  = regexp.MustCompile(`(?i)no soundcards found`)
	cardLineRe = regexp.MustCompile(`(?m)^card (\d+):`)
	hwCardRe   = regexp.MustCompile(`hw:(\d+)`)
)

func (a *ALSA) probe(ctx context.Context, command, device string) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	stdout, stderr, err := a.run(ctx, nil, command, "-l")
	if err != nil {
		return a.commandError(ctx, command, stderr, err)
	}
	listing := append(stdout, stderr...)
	if noCardsRe.Match(listing) {
		return ErrNoSoundcard
	}

	cards := cardLineRe.FindAllSubmatch(listing, -1)
	if len(cards) == 0 {
		return ErrNoSoundcard
	}

	// Named devices like "default" are resolved by ALSA itself.
	m := hwCardRe.FindStringSubmatch(device)
	if m == nil {
		return nil
	}
	for _, c := range cards {
		if string(c[1]) == m[1] {
			return nil
		}
	}
	return fmt.Errorf("%w: card %s for device %s", ErrNoSoundcard, m[1], device)
}

func (a *ALSA) commandError(ctx context.Context, command string, stderr []byte, err error) error {
	if errors.Is(err, exec.ErrNotFound) {
		return fmt.Errorf("%w: %s", ErrCommandNotFound, command)
	}
	ce := &CommandError{Command: command, ExitCode: -1, Stderr: string(stderr), Err: err}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		ce.ExitCode = exitErr.ExitCode()
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		ce.Err = ctxErr
	}
	return ce
}

// ExecRun runs a command with exec.CommandContext and collects its output.
func ExecRun(ctx context.Context, stdin io.Reader, name string, args ...string) ([]byte, []byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdin = stdin
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.Bytes(), stderr.Bytes(), err
}
