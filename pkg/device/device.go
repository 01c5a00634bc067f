// Package device owns the robot's physical I/O: listening, speaking and
// looking. Two implementations share the Channel interface. HardwareChannel
// drives the sound card, camera and remote speech services directly;
// SimulatedChannel wraps it and substitutes staged or example input, console
// output and a placeholder image whenever a device is absent or fails.
//
// Device errors never escape as Go errors. Every operation returns a Result
// carrying an ErrorKind and a stable Signature that callers feed into a
// retry.Gate before deciding whether to report the failure.
package device

import (
	"context"
	"time"

	"github.com/teslashibe/go-ainex/pkg/retry"
)

// Channel is the robot's I/O capability.
type Channel interface {
	// CaptureSpeech listens once and returns what was said. timeout bounds
	// how long the call may wait for the microphone to become free.
	CaptureSpeech(ctx context.Context, timeout time.Duration) (Speech, Result)

	// Speak says text aloud with the given voice.
	Speak(ctx context.Context, text string, voice VoiceSettings) Result

	// CaptureImage grabs one frame. A placeholder frame (see NoImage) means
	// no real image was available and callers should describe a simulated scene.
	CaptureImage(ctx context.Context) (Frame, Result)

	// Close releases devices and removes any lock markers this process created.
	Close() error
}

// ErrorKind classifies a failed operation.
type ErrorKind int

const (
	KindNone ErrorKind = iota
	// KindHardwareAbsent means the device is not present or cannot be opened.
	KindHardwareAbsent
	// KindTransientIO means a timeout or busy device; try again next iteration.
	KindTransientIO
	// KindServiceError means a remote speech service call failed.
	KindServiceError
)

func (k ErrorKind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindHardwareAbsent:
		return "hardware_absent"
	case KindTransientIO:
		return "transient_io"
	case KindServiceError:
		return "service_error"
	default:
		return "unknown"
	}
}

// Result is the outcome of a device operation.
type Result struct {
	OK        bool
	Kind      ErrorKind
	Class     string // retry class: microphone, speaker or camera
	Signature string // stable description used for retry gating
	Err       error
	Simulated bool // the value was substituted, not produced by hardware
}

func succeeded(class string) Result {
	return Result{OK: true, Class: class}
}

func simulated(class string) Result {
	return Result{OK: true, Class: class, Simulated: true}
}

func failed(class string, kind ErrorKind, reason string, err error) Result {
	return Result{
		Kind:      kind,
		Class:     class,
		Signature: class + ": " + reason,
		Err:       err,
	}
}

// Source says where an utterance came from.
type Source string

const (
	SourceMicrophone Source = "microphone"
	SourceStaged     Source = "staged"
	SourceMenu       Source = "menu"
)

// Speech is one captured utterance.
type Speech struct {
	Text   string
	Source Source
	Heard  time.Time
}

// VoiceSettings selects how Speak sounds.
type VoiceSettings struct {
	VoiceID string
	Speed   float64
	Pitch   float64
}

// Frame is a captured image. A Placeholder frame carries no pixels.
type Frame struct {
	JPEG        []byte
	Width       int
	Height      int
	Captured    time.Time
	Placeholder bool
}

// NoImage is returned in place of a real frame when no camera is usable.
var NoImage = Frame{Placeholder: true}

// Retry classes, re-exported for callers that only import device.
const (
	ClassMicrophone = retry.ClassMicrophone
	ClassSpeaker    = retry.ClassSpeaker
	ClassCamera     = retry.ClassCamera
)

// New returns the channel for the configured mode. The choice is made once;
// callers never branch on simulation themselves.
func New(hw *HardwareChannel, simulation bool, opts ...SimOption) Channel {
	if simulation {
		return NewSimulated(hw, opts...)
	}
	return hw
}
