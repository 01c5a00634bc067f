package inference

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func completion(content string) chatCompletionResponse {
	var choice apiChoice
	choice.Message.Role = "assistant"
	choice.Message.Content = content
	choice.FinishReason = "stop"
	return chatCompletionResponse{
		ID:      "test-id",
		Model:   "gpt-4o",
		Choices: []apiChoice{choice},
		Usage:   apiUsage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
	}
}

func TestClientChat(t *testing.T) {
	var got map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("Expected /chat/completions, got %s", r.URL.Path)
		}
		if r.Method != http.MethodPost {
			t.Errorf("Expected POST, got %s", r.Method)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
			t.Errorf("Expected Bearer test-key, got %s", auth)
		}
		json.NewDecoder(r.Body).Decode(&got)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(completion("Hello! How can I help?"))
	}))
	defer server.Close()

	client, err := NewClient(
		WithBaseURL(server.URL),
		WithAPIKey("test-key"),
		WithModel("gpt-4o"),
	)
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}
	defer client.Close()

	resp, err := client.Chat(context.Background(), &ChatRequest{
		Messages: []Message{
			NewSystemMessage("You are a helpful assistant."),
			NewUserMessage("Hello"),
		},
	})
	if err != nil {
		t.Fatalf("Chat failed: %v", err)
	}

	if resp.Message.Content != "Hello! How can I help?" {
		t.Errorf("Unexpected content: %s", resp.Message.Content)
	}
	if resp.Message.Role != RoleAssistant {
		t.Errorf("Expected assistant role, got %s", resp.Message.Role)
	}
	if resp.Usage.TotalTokens != 15 {
		t.Errorf("Expected 15 total tokens, got %d", resp.Usage.TotalTokens)
	}

	if got["model"] != "gpt-4o" {
		t.Errorf("model = %v", got["model"])
	}
	msgs, _ := got["messages"].([]interface{})
	if len(msgs) != 2 {
		t.Fatalf("Expected 2 messages in payload, got %d", len(msgs))
	}
	first := msgs[0].(map[string]interface{})
	if first["role"] != "system" || first["content"] != "You are a helpful assistant." {
		t.Errorf("first message = %v", first)
	}
}

func TestClientVision(t *testing.T) {
	jpeg := []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x01}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content []struct {
					Type     string `json:"type"`
					Text     string `json:"text"`
					ImageURL struct {
						URL string `json:"url"`
					} `json:"image_url"`
				} `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		if payload.Model != "vision-model" {
			t.Errorf("model = %q", payload.Model)
		}
		parts := payload.Messages[0].Content
		if len(parts) != 2 || parts[0].Text != "What is this?" {
			t.Errorf("unexpected parts: %+v", parts)
		}
		want := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(jpeg)
		if parts[1].ImageURL.URL != want {
			t.Errorf("image url = %q", parts[1].ImageURL.URL)
		}
		json.NewEncoder(w).Encode(completion("A red mug"))
	}))
	defer server.Close()

	client, _ := NewClient(WithBaseURL(server.URL), WithVisionModel("vision-model"))
	resp, err := client.Vision(context.Background(), &VisionRequest{JPEG: jpeg, Prompt: "What is this?"})
	if err != nil {
		t.Fatalf("Vision failed: %v", err)
	}
	if resp.Content != "A red mug" {
		t.Errorf("Content = %q", resp.Content)
	}
}

func TestClientVisionNoImage(t *testing.T) {
	client, _ := NewClient(WithBaseURL("http://127.0.0.1:1"))
	if _, err := client.Vision(context.Background(), &VisionRequest{Prompt: "x"}); !errors.Is(err, ErrNoImage) {
		t.Fatalf("err = %v, want ErrNoImage", err)
	}
}

func TestClientHealth(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models" {
			t.Errorf("Expected /models, got %s", r.URL.Path)
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"data":[]}`))
	}))
	defer server.Close()

	client, _ := NewClient(WithBaseURL(server.URL))
	if err := client.Health(context.Background()); err != nil {
		t.Errorf("Health check failed: %v", err)
	}
}

func TestClientError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"message":"Invalid API key","type":"invalid_request_error","code":"invalid_api_key"}}`))
	}))
	defer server.Close()

	client, _ := NewClient(WithBaseURL(server.URL), WithAPIKey("bad-key"))

	_, err := client.Chat(context.Background(), &ChatRequest{
		Messages: []Message{NewUserMessage("Hello")},
	})

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("Expected APIError, got %T: %v", err, err)
	}
	if !apiErr.IsUnauthorized() {
		t.Errorf("Expected unauthorized, got status %d", apiErr.StatusCode)
	}
	if apiErr.Code != "invalid_api_key" {
		t.Errorf("Code = %q", apiErr.Code)
	}
	if apiErr.IsRetryable() {
		t.Error("401 should not be retryable")
	}
}

func TestClientDoesNotRetryByDefault(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"message":"rate limited"}}`))
	}))
	defer server.Close()

	client, _ := NewClient(WithAPIKey("k"), WithBaseURL(server.URL), WithModel("gpt-4o"))
	_, err := client.Chat(context.Background(), &ChatRequest{Messages: []Message{NewUserMessage("hi")}})

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("Expected APIError, got %T: %v", err, err)
	}
	if !apiErr.IsRateLimited() {
		t.Errorf("status = %d, want 429", apiErr.StatusCode)
	}
	if n := atomic.LoadInt32(&hits); n != 1 {
		t.Errorf("hits = %d, want 1", n)
	}
}

func TestClientRetriesServerErrorWhenAsked(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		json.NewEncoder(w).Encode(completion("ok"))
	}))
	defer server.Close()

	client, _ := NewClient(WithBaseURL(server.URL), WithRetry(2, time.Millisecond))
	resp, err := client.Chat(context.Background(), &ChatRequest{Messages: []Message{NewUserMessage("hi")}})
	if err != nil {
		t.Fatalf("Chat failed: %v", err)
	}
	if resp.Message.Content != "ok" {
		t.Errorf("Content = %q", resp.Message.Content)
	}
	if n := atomic.LoadInt32(&hits); n != 2 {
		t.Errorf("hits = %d, want 2", n)
	}
}

func TestClientEmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":"x","choices":[]}`))
	}))
	defer server.Close()

	client, _ := NewClient(WithBaseURL(server.URL))
	_, err := client.Chat(context.Background(), &ChatRequest{Messages: []Message{NewUserMessage("hi")}})
	if !errors.Is(err, ErrEmptyResponse) {
		t.Errorf("err = %v, want ErrEmptyResponse", err)
	}
}

func TestClientNoAPIKey(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if auth := r.Header.Get("Authorization"); auth != "" {
			t.Errorf("Expected no auth header, got %s", auth)
		}
		json.NewEncoder(w).Encode(completion("local"))
	}))
	defer server.Close()

	client, _ := NewClient(WithBaseURL(server.URL+"/"), WithModel("llama3"))
	resp, err := client.Chat(context.Background(), &ChatRequest{Messages: []Message{NewUserMessage("hi")}})
	if err != nil {
		t.Fatalf("Chat failed: %v", err)
	}
	if !strings.Contains(resp.Message.Content, "local") {
		t.Errorf("Content = %q", resp.Message.Content)
	}
}

func TestNewClientRequiresModel(t *testing.T) {
	if _, err := NewClient(WithModel("")); !errors.Is(err, ErrNoModel) {
		t.Errorf("err = %v, want ErrNoModel", err)
	}
}

func TestMockRecordsRequests(t *testing.T) {
	m := NewMock()
	req := &ChatRequest{Messages: []Message{NewUserMessage("hi")}}
	if _, err := m.Chat(context.Background(), req); err != nil {
		t.Fatal(err)
	}
	if len(m.Chats()) != 1 {
		t.Errorf("chats = %d", len(m.Chats()))
	}
	if m.LastChat() != req {
		t.Errorf("LastChat = %+v", m.LastChat())
	}

	failing := WithError(ErrProviderUnavailable)
	if _, err := failing.Vision(context.Background(), &VisionRequest{}); !errors.Is(err, ErrProviderUnavailable) {
		t.Errorf("err = %v", err)
	}
}
