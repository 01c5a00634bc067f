package audioio

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Recorder captures a fixed-length clip from the capture device.
type Recorder interface {
	Record(ctx context.Context, d time.Duration) (Clip, error)
}

// Player plays a WAV file on the playback device and blocks until done.
type Player interface {
	Play(ctx context.Context, wav []byte) error
}

// Prober reports whether the devices are present right now.
// Implementations must not cache results; devices can be reattached.
type Prober interface {
	ProbeCapture(ctx context.Context) error
	ProbePlayback(ctx context.Context) error
}

// Sentinel errors.
var (
	// ErrNoSoundcard means the ALSA tools found no usable card.
	ErrNoSoundcard = errors.New("audioio: no soundcard found")

	// ErrCommandNotFound means the record or play binary is not installed.
	ErrCommandNotFound = errors.New("audioio: command not found")

	// ErrEmptyClip means the recording produced no samples.
	ErrEmptyClip = errors.New("audioio: empty recording")
)

// CommandError reports a failed external command.
type CommandError struct {
	Command  string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *CommandError) Error() string {
	msg := strings.TrimSpace(e.Stderr)
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	return fmt.Sprintf("%s exited with code %d: %s", e.Command, e.ExitCode, msg)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// IsTimeout reports whether the command was killed by its deadline.
func (e *CommandError) IsTimeout() bool {
	return errors.Is(e.Err, context.DeadlineExceeded)
}

// IsBusy reports whether the device was held by another process.
func (e *CommandError) IsBusy() bool {
	s := strings.ToLower(e.Stderr)
	return strings.Contains(s, "device or resource busy") || strings.Contains(s, "resource temporarily unavailable")
}
