package stt

import (
	"context"
	"sync"
	"time"
)

// Mock implements Provider for testing. Queued transcripts are returned in
// order; once exhausted TranscribeFunc (or an empty result) is used.
type Mock struct {
	TranscribeFunc func(ctx context.Context, req Request) (*Result, error)
	HealthFunc     func(ctx context.Context) error

	mu     sync.Mutex
	queue  []string
	calls  []MockCall
	closed bool
}

// MockCall records a method invocation.
type MockCall struct {
	Method  string
	Request Request
	Time    time.Time
}

// NewMock creates a mock that returns texts in order.
func NewMock(texts ...string) *Mock {
	return &Mock{queue: append([]string(nil), texts...)}
}

// Push queues more transcripts.
func (m *Mock) Push(texts ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = append(m.queue, texts...)
}

// Transcribe returns the next queued text.
func (m *Mock) Transcribe(ctx context.Context, req Request) (*Result, error) {
	m.mu.Lock()
	m.calls = append(m.calls, MockCall{Method: "Transcribe", Request: req, Time: time.Now()})
	if len(m.queue) > 0 {
		text := m.queue[0]
		m.queue = m.queue[1:]
		m.mu.Unlock()
		return &Result{Text: text, Provider: "mock"}, nil
	}
	fn := m.TranscribeFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, req)
	}
	return &Result{Provider: "mock"}, nil
}

// Health calls HealthFunc.
func (m *Mock) Health(ctx context.Context) error {
	if m.HealthFunc != nil {
		return m.HealthFunc(ctx)
	}
	return nil
}

// Close marks the mock closed.
func (m *Mock) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// CallCount returns the number of Transcribe calls.
func (m *Mock) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// Calls returns all recorded calls.
func (m *Mock) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]MockCall, len(m.calls))
	copy(out, m.calls)
	return out
}

// WithError returns a mock whose Transcribe always fails with err.
func WithError(err error) *Mock {
	return &Mock{
		TranscribeFunc: func(ctx context.Context, req Request) (*Result, error) {
			return nil, err
		},
		HealthFunc: func(ctx context.Context) error { return err },
	}
}

var _ Provider = (*Mock)(nil)
