package motion

import (
	"context"
	"sync"
	"time"
)

// MockBus is an in-memory Bus for tests.
type MockBus struct {
	// PublishErr, when set, is returned by Publish.
	PublishErr error

	mu        sync.Mutex
	connected bool
	closed    bool
	published []Published
	subs      map[string]func([]byte)
}

// Published is one recorded message.
type Published struct {
	Topic   string
	Payload []byte
	Time    time.Time
}

// NewMockBus returns a connected mock bus.
func NewMockBus() *MockBus {
	return &MockBus{connected: true, subs: make(map[string]func([]byte))}
}

// SetConnected changes what Connected reports.
func (m *MockBus) SetConnected(ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connected = ok
}

func (m *MockBus) Connected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected && !m.closed
}

func (m *MockBus) Publish(ctx context.Context, topic string, payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.PublishErr != nil {
		return m.PublishErr
	}
	if !m.connected {
		return ErrNotConnected
	}
	m.published = append(m.published, Published{Topic: topic, Payload: payload, Time: time.Now()})
	return nil
}

func (m *MockBus) Subscribe(topic string, fn func([]byte)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subs[topic] = fn
	return nil
}

// Deliver simulates an incoming message on topic.
func (m *MockBus) Deliver(topic string, payload []byte) {
	m.mu.Lock()
	fn := m.subs[topic]
	m.mu.Unlock()
	if fn != nil {
		fn(payload)
	}
}

func (m *MockBus) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Published returns every recorded message.
func (m *MockBus) Published() []Published {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Published(nil), m.published...)
}

// Topics returns the topics of recorded messages, in order.
func (m *MockBus) Topics() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.published))
	for i, p := range m.published {
		out[i] = p.Topic
	}
	return out
}

// Count returns how many messages were published to topic.
func (m *MockBus) Count(topic string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, p := range m.published {
		if p.Topic == topic {
			n++
		}
	}
	return n
}

// Closed reports whether Close was called.
func (m *MockBus) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

var _ Bus = (*MockBus)(nil)
