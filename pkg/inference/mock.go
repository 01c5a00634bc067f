package inference

import (
	"context"
	"strings"
	"sync"
)

// Mock is a scripted Provider for tests. Chat answers with Replies in
// order, repeating the last one; Vision answers with Description. Err, when
// set, fails every call.
type Mock struct {
	Replies     []string
	Description string
	Err         error

	mu      sync.Mutex
	chats   []*ChatRequest
	visions []*VisionRequest
	closed  bool
}

// NewMock returns a Mock that replies with replies, or "Mock response".
func NewMock(replies ...string) *Mock {
	if len(replies) == 0 {
		replies = []string{"Mock response"}
	}
	return &Mock{Replies: replies, Description: "I see a mock image"}
}

// WithError returns a Mock whose every call fails with err.
func WithError(err error) *Mock { return &Mock{Err: err} }

func (m *Mock) Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.chats = append(m.chats, req)
	if m.Err != nil {
		return nil, m.Err
	}
	if len(m.Replies) == 0 {
		return nil, WrapError("mock", ErrProviderUnavailable)
	}
	reply := m.Replies[min(len(m.chats), len(m.Replies))-1]
	return &ChatResponse{
		Message:      NewAssistantMessage(reply),
		FinishReason: "stop",
		Usage:        Usage{TotalTokens: len(strings.Fields(reply))},
	}, nil
}

func (m *Mock) Vision(ctx context.Context, req *VisionRequest) (*VisionResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.visions = append(m.visions, req)
	if m.Err != nil {
		return nil, m.Err
	}
	return &VisionResponse{Content: m.Description}, nil
}

func (m *Mock) Health(ctx context.Context) error { return m.Err }

func (m *Mock) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Chats returns every chat request seen, oldest first.
func (m *Mock) Chats() []*ChatRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*ChatRequest(nil), m.chats...)
}

// LastChat returns the most recent chat request, or nil.
func (m *Mock) LastChat() *ChatRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.chats) == 0 {
		return nil
	}
	return m.chats[len(m.chats)-1]
}

// Visions returns every vision request seen, oldest first.
func (m *Mock) Visions() []*VisionRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*VisionRequest(nil), m.visions...)
}

// Closed reports whether Close was called.
func (m *Mock) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

var _ Provider = (*Mock)(nil)
