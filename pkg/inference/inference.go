// Package inference talks to an OpenAI-compatible model service. The robot
// uses it for two things: free conversation when no command matched, and
// describing what the head camera sees.
package inference

import "context"

// Provider answers chat turns and describes images.
type Provider interface {
	Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error)
	Vision(ctx context.Context, req *VisionRequest) (*VisionResponse, error)

	// Health fails when the service is unreachable or rejects the key.
	Health(ctx context.Context) error
	Close() error
}

// ChatRequest is one completion over a conversation. Zero MaxTokens and
// Temperature use the client's defaults.
type ChatRequest struct {
	Messages    []Message
	Model       string
	MaxTokens   int
	Temperature float64
}

// ChatResponse carries the assistant's reply.
type ChatResponse struct {
	Message      Message
	FinishReason string
	Usage        Usage
	Model        string
	LatencyMs    int64
}

// VisionRequest asks for a description of one JPEG frame.
type VisionRequest struct {
	JPEG      []byte
	Prompt    string
	Model     string
	MaxTokens int
}

// VisionResponse is the model's description of the frame.
type VisionResponse struct {
	Content   string
	Usage     Usage
	Model     string
	LatencyMs int64
}

// Usage is the token count reported by the service.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}
