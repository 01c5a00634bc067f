package tts

import (
	"context"
	"sync"

	"github.com/teslashibe/go-ainex/pkg/audioio"
)

// Mock is a Provider for tests. It answers every request with a silent WAV
// about as long as the text would take to say, or with Err when set.
type Mock struct {
	Err       error
	HealthErr error

	mu       sync.Mutex
	requests []Request
	closed   bool
}

// NewMock returns a Mock that always succeeds.
func NewMock() *Mock { return &Mock{} }

// WithError returns a Mock whose every call fails with err.
func WithError(err error) *Mock {
	return &Mock{Err: err, HealthErr: err}
}

// Synthesize records req and returns silence.
func (m *Mock) Synthesize(ctx context.Context, req Request) (*AudioResult, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	err := m.Err
	m.mu.Unlock()
	if err != nil {
		return nil, err
	}

	const rate = 16000
	d := estimateDuration(req.Text, req.Speed)
	clip := audioio.Clip{Samples: make([]int16, int(d.Seconds()*rate)), SampleRate: rate, Channels: 1}
	return &AudioResult{
		Audio:     clip.WAV(),
		Format:    AudioFormat{Encoding: EncodingWAV, SampleRate: rate, Channels: 1},
		Duration:  d,
		Provider:  "mock",
		CharCount: len(req.Text),
	}, nil
}

func (m *Mock) Health(ctx context.Context) error { return m.HealthErr }

func (m *Mock) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Requests returns every request seen, oldest first.
func (m *Mock) Requests() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Request(nil), m.requests...)
}

// LastRequest returns the most recent request.
func (m *Mock) LastRequest() (Request, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.requests) == 0 {
		return Request{}, false
	}
	return m.requests[len(m.requests)-1], true
}

// Closed reports whether Close was called.
func (m *Mock) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

var _ Provider = (*Mock)(nil)
