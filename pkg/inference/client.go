package inference

import (
	"bytes"
	"cmp"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/teslashibe/go-ainex/internal/httpc"
)

const providerClient = "openai"

// Client is a Provider for any OpenAI-compatible /chat/completions server.
type Client struct {
	config *Config
	http   *http.Client
	caller *httpc.Caller
	logger *slog.Logger
}

// NewClient builds a Client. An empty API key is allowed for local servers.
func NewClient(opts ...Option) (*Client, error) {
	cfg := DefaultConfig()
	cfg.Apply(opts...)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")

	hc := cfg.HTTPClient
	if hc == nil {
		hc = httpc.NewClient(cfg.Timeout)
	}
	logger := cfg.Logger.With("component", "inference.client")

	return &Client{
		config: cfg,
		http:   hc,
		logger: logger,
		caller: &httpc.Caller{
			Service:  "inference",
			Provider: providerClient,
			Client:   hc,
			Retry:    httpc.Retry{Max: cfg.MaxRetries, Delay: cfg.RetryDelay},
			Logger:   logger,
		},
	}, nil
}

// Chat sends the conversation and returns the assistant's turn.
func (c *Client) Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	start := time.Now()

	payload := completionRequest{
		Model:       cmp.Or(req.Model, c.config.Model),
		Messages:    make([]apiMessage, len(req.Messages)),
		MaxTokens:   cmp.Or(req.MaxTokens, c.config.MaxTokens),
		Temperature: cmp.Or(req.Temperature, c.config.Temperature),
	}
	for i, m := range req.Messages {
		payload.Messages[i] = toAPIMessage(m)
	}

	result, err := c.complete(ctx, payload)
	if err != nil {
		return nil, err
	}
	choice := result.Choices[0]
	return &ChatResponse{
		Message:      NewAssistantMessage(choice.Message.Content),
		FinishReason: choice.FinishReason,
		Usage:        result.Usage.toUsage(),
		Model:        result.Model,
		LatencyMs:    time.Since(start).Milliseconds(),
	}, nil
}

// Vision asks the vision model about one frame.
func (c *Client) Vision(ctx context.Context, req *VisionRequest) (*VisionResponse, error) {
	if len(req.JPEG) == 0 {
		return nil, WrapError(providerClient, ErrNoImage)
	}
	start := time.Now()

	payload := completionRequest{
		Model:     cmp.Or(req.Model, c.config.VisionModel),
		Messages:  []apiMessage{toAPIMessage(NewImageMessage(req.Prompt, req.JPEG))},
		MaxTokens: cmp.Or(req.MaxTokens, c.config.MaxTokens),
	}
	result, err := c.complete(ctx, payload)
	if err != nil {
		return nil, err
	}
	return &VisionResponse{
		Content:   result.Choices[0].Message.Content,
		Usage:     result.Usage.toUsage(),
		Model:     result.Model,
		LatencyMs: time.Since(start).Milliseconds(),
	}, nil
}

// Health lists models to check that the server answers and takes the key.
func (c *Client) Health(ctx context.Context) error {
	return c.caller.Get(ctx, c.config.BaseURL+"/models", c.config.APIKey)
}

func (c *Client) Close() error {
	c.http.CloseIdleConnections()
	return nil
}

func (c *Client) complete(ctx context.Context, payload completionRequest) (*chatCompletionResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, WrapError(providerClient, fmt.Errorf("marshal payload: %w", err))
	}

	resp, err := c.caller.Do(ctx, func(ctx context.Context) (*http.Request, error) {
		r, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+"/chat/completions", bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		r.Header.Set("Content-Type", "application/json")
		if c.config.APIKey != "" {
			r.Header.Set("Authorization", "Bearer "+c.config.APIKey)
		}
		return r, nil
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var result chatCompletionResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, WrapError(providerClient, fmt.Errorf("decode response: %w", err))
	}
	if len(result.Choices) == 0 {
		return nil, WrapError(providerClient, ErrEmptyResponse)
	}
	c.logger.Debug("completion", "model", result.Model, "tokens", result.Usage.TotalTokens)
	return &result, nil
}

type completionRequest struct {
	Model       string       `json:"model"`
	Messages    []apiMessage `json:"messages"`
	MaxTokens   int          `json:"max_tokens,omitempty"`
	Temperature float64      `json:"temperature,omitempty"`
}

// apiMessage content is a plain string, or a list of parts when an image
// is attached.
type apiMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

func toAPIMessage(m Message) apiMessage {
	if len(m.JPEG) == 0 {
		return apiMessage{Role: string(m.Role), Content: m.Content}
	}
	return apiMessage{
		Role: string(m.Role),
		Content: []contentPart{
			{Type: "text", Text: m.Content},
			{Type: "image_url", ImageURL: &imageURL{
				URL: "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(m.JPEG),
			}},
		},
	}
}

type chatCompletionResponse struct {
	ID      string      `json:"id"`
	Model   string      `json:"model"`
	Choices []apiChoice `json:"choices"`
	Usage   apiUsage    `json:"usage"`
}

type apiChoice struct {
	Message struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"message"`
	FinishReason string `json:"finish_reason"`
}

type apiUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

func (u apiUsage) toUsage() Usage {
	return Usage{PromptTokens: u.PromptTokens, CompletionTokens: u.CompletionTokens, TotalTokens: u.TotalTokens}
}

var _ Provider = (*Client)(nil)
