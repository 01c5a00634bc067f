// Package conversation keeps the bounded message history sent to the
// language model. The system preamble is fixed and always first; at most
// MaxTurns further turns are kept, oldest user/assistant turn evicted first.
package conversation

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/teslashibe/go-ainex/pkg/inference"
)

// Defaults.
const (
	DefaultMaxTurns     = 10
	DefaultSystemPrompt = "You are a helpful assistant for a humanoid robot. " +
		"Keep your responses concise and natural for spoken conversation."
)

// ErrEmptyReply is returned by Respond when the model answers with nothing.
var ErrEmptyReply = errors.New("conversation: empty reply")

// Context is the conversation history. It is safe for concurrent use.
type Context struct {
	mu       sync.Mutex
	preamble inference.Message
	turns    []inference.Message
	max      int
}

// Option configures a Context.
type Option func(*Context)

// WithSystemPrompt replaces the preamble.
func WithSystemPrompt(prompt string) Option {
	return func(c *Context) { c.preamble = inference.NewSystemMessage(prompt) }
}

// WithMaxTurns sets the bound on non-preamble turns.
func WithMaxTurns(n int) Option {
	return func(c *Context) {
		if n > 0 {
			c.max = n
		}
	}
}

// New returns a context holding only the preamble.
func New(opts ...Option) *Context {
	c := &Context{
		preamble: inference.NewSystemMessage(DefaultSystemPrompt),
		max:      DefaultMaxTurns,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// AddUser appends a user turn.
func (c *Context) AddUser(text string) { c.Append(inference.RoleUser, text) }

// AddAssistant appends an assistant turn.
func (c *Context) AddAssistant(text string) { c.Append(inference.RoleAssistant, text) }

// Append adds a turn and evicts the oldest turns beyond the bound.
func (c *Context) Append(role inference.Role, text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.turns = append(c.turns, inference.Message{Role: role, Content: text})
	for len(c.turns) > c.max {
		c.evictLocked()
	}
}

// evictLocked drops the oldest user or assistant turn, or the oldest turn of
// any role when only system notes remain.
func (c *Context) evictLocked() {
	idx := 0
	for i, m := range c.turns {
		if m.Role != inference.RoleSystem {
			idx = i
			break
		}
	}
	c.turns = append(c.turns[:idx], c.turns[idx+1:]...)
}

// Messages returns the preamble followed by the kept turns.
func (c *Context) Messages() []inference.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]inference.Message, 0, len(c.turns)+1)
	out = append(out, c.preamble)
	return append(out, c.turns...)
}

// Turns returns the kept turns without the preamble.
func (c *Context) Turns() []inference.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]inference.Message(nil), c.turns...)
}

// Len returns the number of turns, not counting the preamble.
func (c *Context) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.turns)
}

// Reset drops every turn, keeping the preamble.
func (c *Context) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.turns = nil
}

// Respond records text as a user turn, asks the model for a reply over the
// whole history and records the reply. On error the user turn is kept.
func (c *Context) Respond(ctx context.Context, p inference.Provider, text string) (string, error) {
	c.AddUser(text)

	resp, err := p.Chat(ctx, &inference.ChatRequest{Messages: c.Messages()})
	if err != nil {
		return "", err
	}
	reply := strings.TrimSpace(resp.Message.Content)
	if reply == "" {
		return "", ErrEmptyReply
	}
	c.AddAssistant(reply)
	return reply, nil
}
