package device

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/teslashibe/go-ainex/internal/httpc"
	"github.com/teslashibe/go-ainex/pkg/audioio"
	"github.com/teslashibe/go-ainex/pkg/camera"
	"github.com/teslashibe/go-ainex/pkg/stt"
	"github.com/teslashibe/go-ainex/pkg/tts"
)

// Defaults for HardwareChannel.
const (
	DefaultRecordDuration = 5 * time.Second
	DefaultLockKey        = "microphone"
	transcribeRate        = 16000
)

// Audio is the sound card: record, play and presence probes.
type Audio interface {
	audioio.Recorder
	audioio.Player
	audioio.Prober
}

// Camera is the image source used by CaptureImage.
type Camera interface {
	Available() bool
	Capture(ctx context.Context) (camera.Frame, error)
	Close() error
}

// Status is a snapshot of which devices are present.
type Status struct {
	Microphone bool `json:"microphone"`
	Speaker    bool `json:"speaker"`
	Camera     bool `json:"camera"`
}

// HardwareChannel talks to real devices. Presence is probed on every call
// because devices can be attached or removed while running.
type HardwareChannel struct {
	audio    Audio
	camera   Camera
	stt      stt.Provider
	tts      tts.Provider
	lock     *Lock
	record   time.Duration
	language string
	logger   *slog.Logger
}

// HardwareOption configures a HardwareChannel.
type HardwareOption func(*HardwareChannel)

// WithCamera sets the camera. Without one CaptureImage reports the camera absent.
func WithCamera(c Camera) HardwareOption {
	return func(h *HardwareChannel) { h.camera = c }
}

// WithTranscriber sets the speech-to-text provider.
func WithTranscriber(p stt.Provider) HardwareOption {
	return func(h *HardwareChannel) { h.stt = p }
}

// WithSynthesizer sets the speech synthesis provider.
func WithSynthesizer(p tts.Provider) HardwareOption {
	return func(h *HardwareChannel) { h.tts = p }
}

// WithLock sets the microphone lock marker.
func WithLock(l *Lock) HardwareOption {
	return func(h *HardwareChannel) { h.lock = l }
}

// WithRecordDuration sets how long each capture records.
func WithRecordDuration(d time.Duration) HardwareOption {
	return func(h *HardwareChannel) { h.record = d }
}

// WithLanguage sets the transcription language hint.
func WithLanguage(lang string) HardwareOption {
	return func(h *HardwareChannel) { h.language = lang }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) HardwareOption {
	return func(h *HardwareChannel) { h.logger = l }
}

// NewHardware creates a channel over the given sound card.
func NewHardware(audio Audio, opts ...HardwareOption) *HardwareChannel {
	h := &HardwareChannel{
		audio:  audio,
		record: DefaultRecordDuration,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.lock == nil {
		h.lock = NewLock(defaultLockDir(), DefaultLockKey)
	}
	h.logger = h.logger.With("component", "device.hardware")
	return h
}

// Probe reports which devices are present right now.
func (h *HardwareChannel) Probe(ctx context.Context) Status {
	return Status{
		Microphone: h.microphonePresent(ctx),
		Speaker:    h.speakerPresent(ctx),
		Camera:     h.cameraPresent(),
	}
}

func (h *HardwareChannel) microphonePresent(ctx context.Context) bool {
	return h.audio != nil && h.audio.ProbeCapture(ctx) == nil
}

func (h *HardwareChannel) speakerPresent(ctx context.Context) bool {
	return h.audio != nil && h.audio.ProbePlayback(ctx) == nil
}

func (h *HardwareChannel) cameraPresent() bool {
	return h.camera != nil && h.camera.Available()
}

// CaptureSpeech records a fixed-length clip under the microphone lock and
// transcribes it. Recognised noise is returned as empty text.
func (h *HardwareChannel) CaptureSpeech(ctx context.Context, timeout time.Duration) (Speech, Result) {
	const class = ClassMicrophone

	if h.audio == nil {
		return Speech{}, failed(class, KindHardwareAbsent, "no audio device", nil)
	}
	if err := h.audio.ProbeCapture(ctx); err != nil {
		return Speech{}, audioFailure(class, err)
	}

	if err := h.lock.Acquire(ctx, timeout); err != nil {
		if errors.Is(err, ErrBusy) {
			return Speech{}, failed(class, KindTransientIO, "busy", err)
		}
		return Speech{}, failed(class, KindTransientIO, "lock unavailable", err)
	}
	h.logger.Debug("listening", "duration", h.record)
	clip, err := h.audio.Record(ctx, h.record)
	if rerr := h.lock.Release(); rerr != nil {
		h.logger.Warn("release microphone lock", "error", rerr)
	}
	if err != nil {
		return Speech{}, audioFailure(class, err)
	}
	if len(clip.Samples) == 0 {
		return Speech{}, failed(class, KindTransientIO, "empty recording", audioio.ErrEmptyClip)
	}

	if h.stt == nil {
		return Speech{}, failed(class, KindServiceError, "speech recognition unavailable", stt.ErrProviderUnavailable)
	}
	wav := clip.Mono().Resampled(transcribeRate).WAV()
	res, err := h.stt.Transcribe(ctx, stt.Request{Audio: wav, Language: h.language})
	if err != nil {
		return Speech{}, serviceFailure(class, "transcription failed", err)
	}

	text := res.Text
	if stt.IsNoise(text) {
		text = ""
	}
	h.logger.Debug("heard", "text", text, "level", clip.Level(), "latency_ms", res.LatencyMs)
	return Speech{Text: text, Source: SourceMicrophone, Heard: time.Now()}, succeeded(class)
}

// Speak synthesises text and plays it on the speaker.
func (h *HardwareChannel) Speak(ctx context.Context, text string, voice VoiceSettings) Result {
	const class = ClassSpeaker

	if strings.TrimSpace(text) == "" {
		return succeeded(class)
	}
	if h.audio == nil {
		return failed(class, KindHardwareAbsent, "no audio device", nil)
	}
	if err := h.audio.ProbePlayback(ctx); err != nil {
		return audioFailure(class, err)
	}
	if h.tts == nil {
		return failed(class, KindServiceError, "speech synthesis unavailable", tts.ErrProviderUnavailable)
	}

	h.logger.Debug("speaking", "text", text, "voice", voice.VoiceID, "speed", voice.Speed)
	audio, err := h.tts.Synthesize(ctx, tts.Request{
		Text:  text,
		Voice: voice.VoiceID,
		Speed: voice.Speed,
		Pitch: voice.Pitch,
	})
	if err != nil {
		return serviceFailure(class, "speech synthesis failed", err)
	}
	if err := h.audio.Play(ctx, audio.Audio); err != nil {
		return audioFailure(class, err)
	}
	return succeeded(class)
}

// CaptureImage grabs one frame from the camera.
func (h *HardwareChannel) CaptureImage(ctx context.Context) (Frame, Result) {
	const class = ClassCamera

	if !h.cameraPresent() {
		return Frame{}, failed(class, KindHardwareAbsent, "camera not found", camera.ErrNoCamera)
	}
	f, err := h.camera.Capture(ctx)
	if err != nil {
		switch {
		case errors.Is(err, camera.ErrNoCamera):
			return Frame{}, failed(class, KindHardwareAbsent, "camera not found", err)
		case errors.Is(err, camera.ErrReadTimeout), errors.Is(err, context.DeadlineExceeded):
			return Frame{}, failed(class, KindTransientIO, "frame read timed out", err)
		default:
			return Frame{}, failed(class, KindTransientIO, "frame capture failed", err)
		}
	}
	h.logger.Debug("captured frame", "device", f.Device, "bytes", len(f.JPEG))
	return Frame{JPEG: f.JPEG, Width: f.Width, Height: f.Height, Captured: f.Captured}, succeeded(class)
}

// Close releases the camera and removes this process's lock marker.
func (h *HardwareChannel) Close() error {
	var errs []error
	if h.camera != nil {
		errs = append(errs, h.camera.Close())
	}
	errs = append(errs, h.lock.Close())
	return errors.Join(errs...)
}

func audioFailure(class string, err error) Result {
	var cmdErr *audioio.CommandError
	switch {
	case errors.Is(err, audioio.ErrNoSoundcard):
		return failed(class, KindHardwareAbsent, "no sound card", err)
	case errors.Is(err, audioio.ErrCommandNotFound):
		return failed(class, KindHardwareAbsent, "audio tools missing", err)
	case errors.As(err, &cmdErr) && cmdErr.IsBusy():
		return failed(class, KindTransientIO, "device busy", err)
	case errors.As(err, &cmdErr) && cmdErr.IsTimeout(), errors.Is(err, context.DeadlineExceeded):
		return failed(class, KindTransientIO, "timed out", err)
	case errors.Is(err, context.Canceled):
		return failed(class, KindTransientIO, "canceled", err)
	case errors.As(err, &cmdErr):
		return failed(class, KindTransientIO, fmt.Sprintf("%s exit %d", cmdErr.Command, cmdErr.ExitCode), err)
	default:
		return failed(class, KindHardwareAbsent, "device unavailable", err)
	}
}

func serviceFailure(class, what string, err error) Result {
	var apiErr *httpc.APIError
	if errors.As(err, &apiErr) {
		what = fmt.Sprintf("%s (%d)", what, apiErr.StatusCode)
	}
	return failed(class, KindServiceError, what, err)
}

var _ Channel = (*HardwareChannel)(nil)
