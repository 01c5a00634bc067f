package audioio

import (
	"context"
	"sync"
	"time"
)

// Mock implements Recorder, Player and Prober for testing.
// All methods can be customized via function fields.
type Mock struct {
	// RecordFunc is called when Record is invoked.
	// If nil, returns a silent clip of the requested length at 16 kHz.
	RecordFunc func(ctx context.Context, d time.Duration) (Clip, error)

	// PlayFunc is called when Play is invoked.
	// If nil, returns nil.
	PlayFunc func(ctx context.Context, wav []byte) error

	// CaptureErr and PlaybackErr are returned by the probes.
	CaptureErr  error
	PlaybackErr error

	mu    sync.Mutex
	calls []MockCall
}

// MockCall records a method invocation for verification.
type MockCall struct {
	Method string
	Bytes  int
	Start  time.Time
	End    time.Time
}

var (
	_ Recorder = (*Mock)(nil)
	_ Player   = (*Mock)(nil)
	_ Prober   = (*Mock)(nil)
)

// NewMock creates a mock with working devices.
func NewMock() *Mock {
	return &Mock{}
}

// Record calls RecordFunc and records the call with its start and end time.
func (m *Mock) Record(ctx context.Context, d time.Duration) (Clip, error) {
	start := time.Now()
	var (
		clip Clip
		err  error
	)
	if m.RecordFunc != nil {
		clip, err = m.RecordFunc(ctx, d)
	} else {
		rate := 16000
		clip = Clip{Samples: make([]int16, int(d.Seconds()*float64(rate))), SampleRate: rate, Channels: 1}
	}
	m.record(MockCall{Method: "Record", Bytes: len(clip.Samples) * 2, Start: start, End: time.Now()})
	return clip, err
}

// Play calls PlayFunc and records the call.
func (m *Mock) Play(ctx context.Context, wav []byte) error {
	start := time.Now()
	var err error
	if m.PlayFunc != nil {
		err = m.PlayFunc(ctx, wav)
	}
	m.record(MockCall{Method: "Play", Bytes: len(wav), Start: start, End: time.Now()})
	return err
}

// ProbeCapture returns CaptureErr.
func (m *Mock) ProbeCapture(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.CaptureErr
}

// ProbePlayback returns PlaybackErr.
func (m *Mock) ProbePlayback(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.PlaybackErr
}

// SetProbeErrors changes the probe results, e.g. to simulate unplugging.
func (m *Mock) SetProbeErrors(capture, playback error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CaptureErr = capture
	m.PlaybackErr = playback
}

func (m *Mock) record(c MockCall) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, c)
}

// Calls returns all recorded calls.
func (m *Mock) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]MockCall, len(m.calls))
	copy(result, m.calls)
	return result
}

// CallCount returns the number of calls to a method.
func (m *Mock) CallCount(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.calls {
		if c.Method == method {
			n++
		}
	}
	return n
}

// Reset clears recorded calls.
func (m *Mock) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
}
