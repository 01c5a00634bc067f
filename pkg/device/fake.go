package device

import (
	"context"
	"sync"
	"time"
)

// Fake is an in-memory Channel for tests. Utterances queued with Say are
// returned in order; everything passed to Speak is recorded.
type Fake struct {
	// SpeakResult is returned by Speak. The zero value means success.
	SpeakResult *Result

	// ImageResult is returned with queued or placeholder frames.
	ImageResult *Result

	// ListenResult, when set, makes CaptureSpeech fail with it.
	ListenResult *Result

	mu      sync.Mutex
	heard   []string
	spoken  []Spoken
	frames  []Frame
	closed  bool
	images  int
	listens int
}

// Spoken is one recorded Speak call.
type Spoken struct {
	Text  string
	Voice VoiceSettings
}

// NewFake returns a fake with the given utterances queued.
func NewFake(utterances ...string) *Fake {
	return &Fake{heard: append([]string(nil), utterances...)}
}

// Say queues utterances.
func (f *Fake) Say(utterances ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.heard = append(f.heard, utterances...)
}

// QueueFrame queues a frame for CaptureImage.
func (f *Fake) QueueFrame(fr Frame) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.frames = append(f.frames, fr)
}

// CaptureSpeech pops the next queued utterance, or returns empty text.
func (f *Fake) CaptureSpeech(ctx context.Context, timeout time.Duration) (Speech, Result) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listens++
	if f.ListenResult != nil {
		return Speech{}, *f.ListenResult
	}
	if len(f.heard) == 0 {
		return Speech{Source: SourceStaged}, simulated(ClassMicrophone)
	}
	text := f.heard[0]
	f.heard = f.heard[1:]
	return Speech{Text: text, Source: SourceStaged, Heard: time.Now()}, simulated(ClassMicrophone)
}

// Speak records text.
func (f *Fake) Speak(ctx context.Context, text string, voice VoiceSettings) Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.spoken = append(f.spoken, Spoken{Text: text, Voice: voice})
	if f.SpeakResult != nil {
		return *f.SpeakResult
	}
	return succeeded(ClassSpeaker)
}

// CaptureImage pops a queued frame, or returns NoImage.
func (f *Fake) CaptureImage(ctx context.Context) (Frame, Result) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.images++
	fr := NoImage
	if len(f.frames) > 0 {
		fr = f.frames[0]
		f.frames = f.frames[1:]
	}
	if f.ImageResult != nil {
		return fr, *f.ImageResult
	}
	if fr.Placeholder {
		return fr, simulated(ClassCamera)
	}
	return fr, succeeded(ClassCamera)
}

// Close marks the fake closed.
func (f *Fake) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

// Spoken returns the texts passed to Speak.
func (f *Fake) Spoken() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.spoken))
	for i, s := range f.spoken {
		out[i] = s.Text
	}
	return out
}

// SpokenCalls returns every Speak call with its voice.
func (f *Fake) SpokenCalls() []Spoken {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Spoken(nil), f.spoken...)
}

// LastSpoken returns the most recent spoken text, or "".
func (f *Fake) LastSpoken() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.spoken) == 0 {
		return ""
	}
	return f.spoken[len(f.spoken)-1].Text
}

// ResetSpoken clears recorded speech.
func (f *Fake) ResetSpoken() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.spoken = nil
}

// ImageCount returns the number of CaptureImage calls.
func (f *Fake) ImageCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.images
}

// Pending returns the number of queued utterances.
func (f *Fake) Pending() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.heard)
}

// Closed reports whether Close was called.
func (f *Fake) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// Listens returns how many times CaptureSpeech was called.
func (f *Fake) Listens() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listens
}

var _ Channel = (*Fake)(nil)
