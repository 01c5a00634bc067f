package device

import (
	"context"
	"strings"
	"sync"
)

// Staging queues synthetic utterances for the simulated microphone. Each
// staged line is returned by exactly one capture.
type Staging struct {
	mu     sync.Mutex
	items  []string
	notify chan struct{}
}

// NewStaging returns an empty queue.
func NewStaging() *Staging {
	return &Staging{notify: make(chan struct{}, 1)}
}

// Stage queues text. Blank text is ignored.
func (s *Staging) Stage(text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	s.mu.Lock()
	s.items = append(s.items, text)
	s.mu.Unlock()

	select {
	case s.notify <- struct{}{}:
	default:
	}
}

// TryNext pops the oldest staged line without waiting.
func (s *Staging) TryNext() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.items) == 0 {
		return "", false
	}
	text := s.items[0]
	s.items = s.items[1:]
	return text, true
}

// Next pops the oldest staged line, waiting until one is staged or ctx ends.
func (s *Staging) Next(ctx context.Context) (string, bool) {
	for {
		if text, ok := s.TryNext(); ok {
			return text, true
		}
		select {
		case <-ctx.Done():
			return "", false
		case <-s.notify:
		}
	}
}

// Len returns the number of queued lines.
func (s *Staging) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}
