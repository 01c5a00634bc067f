package tts_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/teslashibe/go-ainex/pkg/audioio"
	"github.com/teslashibe/go-ainex/pkg/tts"
)

func TestMockProvider(t *testing.T) {
	mock := tts.NewMock()
	ctx := context.Background()

	result, err := mock.Synthesize(ctx, tts.Request{Text: "Hello world", Voice: tts.VoiceEcho})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(string(result.Audio), "RIFF") {
		t.Error("expected wav data")
	}
	if result.CharCount != 11 {
		t.Errorf("expected 11 chars, got %d", result.CharCount)
	}
	if last, ok := mock.LastRequest(); !ok || last.Voice != tts.VoiceEcho {
		t.Errorf("last request = %+v", last)
	}

	if err := mock.Close(); err != nil || !mock.Closed() {
		t.Errorf("Close: %v, closed=%v", err, mock.Closed())
	}
}

func TestMockWithError(t *testing.T) {
	testErr := errors.New("test error")
	mock := tts.WithError(testErr)

	if _, err := mock.Synthesize(context.Background(), tts.Request{Text: "Hello"}); !errors.Is(err, testErr) {
		t.Errorf("expected test error, got %v", err)
	}
	if err := mock.Health(context.Background()); err == nil {
		t.Error("expected health error")
	}
	if len(mock.Requests()) != 1 {
		t.Errorf("requests = %d", len(mock.Requests()))
	}
}

func TestChain(t *testing.T) {
	ctx := context.Background()

	t.Run("falls back to next provider", func(t *testing.T) {
		remote := tts.WithError(&tts.APIError{StatusCode: 500, Provider: "openai"})
		local := tts.NewMock()
		chain, err := tts.NewChain([]tts.Provider{remote, local})
		if err != nil {
			t.Fatal(err)
		}

		result, err := chain.Synthesize(ctx, tts.Request{Text: "hi", Voice: tts.VoiceNova})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.Provider != "mock" || chain.Last() != "mock" {
			t.Errorf("provider = %q, last = %q", result.Provider, chain.Last())
		}
		if got, _ := local.LastRequest(); got.Voice != tts.VoiceNova {
			t.Errorf("voice not passed through: %q", got.Voice)
		}
		if len(remote.Requests()) != 1 {
			t.Errorf("remote tried %d times", len(remote.Requests()))
		}
	})

	t.Run("all fail", func(t *testing.T) {
		apiErr := &tts.APIError{StatusCode: 401, Provider: "openai"}
		chain, _ := tts.NewChain([]tts.Provider{tts.WithError(apiErr), tts.WithError(errors.New("espeak missing"))})

		_, err := chain.Synthesize(ctx, tts.Request{Text: "hi"})
		var chainErr *tts.ChainError
		if !errors.As(err, &chainErr) || len(chainErr.Errors) != 2 {
			t.Fatalf("expected ChainError with 2 errors, got %v", err)
		}
		var got *tts.APIError
		if !errors.As(err, &got) || !got.IsUnauthorized() {
			t.Errorf("expected unauthorized APIError in chain, got %v", err)
		}
	})

	t.Run("unauthorized provider is benched", func(t *testing.T) {
		now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
		remote := tts.WithError(&tts.APIError{StatusCode: 401, Provider: "openai"})
		local := tts.NewMock()
		chain, _ := tts.NewChain([]tts.Provider{remote, local},
			tts.WithBench(time.Minute),
			tts.WithChainClock(func() time.Time { return now }),
		)

		for range 3 {
			if _, err := chain.Synthesize(ctx, tts.Request{Text: "hi"}); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		}
		if n := len(remote.Requests()); n != 1 {
			t.Errorf("benched provider tried %d times, want 1", n)
		}

		now = now.Add(2 * time.Minute)
		chain.Synthesize(ctx, tts.Request{Text: "hi"})
		if n := len(remote.Requests()); n != 2 {
			t.Errorf("provider not retried after bench: %d", n)
		}
	})

	t.Run("everything benched", func(t *testing.T) {
		chain, _ := tts.NewChain([]tts.Provider{tts.WithError(&tts.APIError{StatusCode: 403})})
		chain.Synthesize(ctx, tts.Request{Text: "hi"})
		if _, err := chain.Synthesize(ctx, tts.Request{Text: "hi"}); !errors.Is(err, tts.ErrProviderUnavailable) {
			t.Errorf("expected ErrProviderUnavailable, got %v", err)
		}
	})

	t.Run("requires a provider", func(t *testing.T) {
		if _, err := tts.NewChain(nil); !errors.Is(err, tts.ErrProviderUnavailable) {
			t.Errorf("expected ErrProviderUnavailable, got %v", err)
		}
	})

	t.Run("close reaches every provider", func(t *testing.T) {
		a, b := tts.NewMock(), tts.NewMock()
		chain, _ := tts.NewChain([]tts.Provider{a, b})
		if err := chain.Close(); err != nil || !a.Closed() || !b.Closed() {
			t.Errorf("Close: %v", err)
		}
	})
}

func TestOpenAI(t *testing.T) {
	t.Run("requires API key", func(t *testing.T) {
		if _, err := tts.NewOpenAI(); !errors.Is(err, tts.ErrNoAPIKey) {
			t.Errorf("expected ErrNoAPIKey, got %v", err)
		}
	})

	t.Run("sends voice and speed", func(t *testing.T) {
		var got map[string]any
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/audio/speech" {
				t.Errorf("path = %s", r.URL.Path)
			}
			if r.Header.Get("Authorization") != "Bearer sk-test" {
				t.Errorf("auth header = %q", r.Header.Get("Authorization"))
			}
			body, _ := io.ReadAll(r.Body)
			json.Unmarshal(body, &got)
			w.Write(audioio.Clip{Samples: []int16{0}, SampleRate: 24000, Channels: 1}.WAV())
		}))
		defer srv.Close()

		p, err := tts.NewOpenAI(tts.WithAPIKey("sk-test"), tts.WithBaseURL(srv.URL))
		if err != nil {
			t.Fatal(err)
		}
		result, err := p.Synthesize(context.Background(), tts.Request{Text: "hello", Voice: tts.VoiceOnyx, Speed: 1.2})
		if err != nil {
			t.Fatalf("Synthesize: %v", err)
		}
		if result.Format.Encoding != tts.EncodingWAV {
			t.Errorf("encoding = %s", result.Format.Encoding)
		}
		if got["voice"] != tts.VoiceOnyx || got["speed"] != 1.2 || got["response_format"] != "wav" {
			t.Errorf("payload = %v", got)
		}
	})

	t.Run("unknown voice uses default", func(t *testing.T) {
		var got map[string]any
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			body, _ := io.ReadAll(r.Body)
			json.Unmarshal(body, &got)
			w.Write([]byte("RIFF"))
		}))
		defer srv.Close()

		p, _ := tts.NewOpenAI(tts.WithAPIKey("k"), tts.WithBaseURL(srv.URL), tts.WithVoice(tts.VoiceFable))
		if _, err := p.Synthesize(context.Background(), tts.Request{Text: "x", Voice: "robotic"}); err != nil {
			t.Fatal(err)
		}
		if got["voice"] != tts.VoiceFable {
			t.Errorf("voice = %v, want fable", got["voice"])
		}
	})

	t.Run("no retry by default", func(t *testing.T) {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusTooManyRequests)
		}))
		defer srv.Close()

		p, _ := tts.NewOpenAI(tts.WithAPIKey("k"), tts.WithBaseURL(srv.URL))
		_, err := p.Synthesize(context.Background(), tts.Request{Text: "x"})
		var apiErr *tts.APIError
		if !errors.As(err, &apiErr) || !apiErr.IsRateLimited() {
			t.Fatalf("expected rate-limited APIError, got %v", err)
		}
		if calls.Load() != 1 {
			t.Errorf("calls = %d, want 1", calls.Load())
		}
	})

	t.Run("retries server errors when asked", func(t *testing.T) {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) == 1 {
				w.WriteHeader(http.StatusBadGateway)
				return
			}
			w.Write([]byte("RIFF"))
		}))
		defer srv.Close()

		p, _ := tts.NewOpenAI(tts.WithAPIKey("k"), tts.WithBaseURL(srv.URL), tts.WithRetry(2, time.Millisecond))
		if _, err := p.Synthesize(context.Background(), tts.Request{Text: "x"}); err != nil {
			t.Fatalf("Synthesize: %v", err)
		}
		if calls.Load() != 2 {
			t.Errorf("calls = %d, want 2", calls.Load())
		}
	})

	t.Run("unauthorized is not retried", func(t *testing.T) {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":{"message":"Incorrect API key provided","code":"invalid_api_key"}}`))
		}))
		defer srv.Close()

		p, _ := tts.NewOpenAI(tts.WithAPIKey("bad"), tts.WithBaseURL(srv.URL), tts.WithRetry(3, time.Millisecond))
		_, err := p.Synthesize(context.Background(), tts.Request{Text: "x"})
		var apiErr *tts.APIError
		if !errors.As(err, &apiErr) || !apiErr.IsUnauthorized() {
			t.Fatalf("expected unauthorized APIError, got %v", err)
		}
		if apiErr.Code != "invalid_api_key" {
			t.Errorf("code = %q", apiErr.Code)
		}
		if calls.Load() != 1 {
			t.Errorf("calls = %d, want 1", calls.Load())
		}
	})

	t.Run("empty text", func(t *testing.T) {
		p, _ := tts.NewOpenAI(tts.WithAPIKey("k"))
		if _, err := p.Synthesize(context.Background(), tts.Request{Text: "  "}); !errors.Is(err, tts.ErrEmptyText) {
			t.Errorf("expected ErrEmptyText, got %v", err)
		}
	})
}

func TestEspeak(t *testing.T) {
	var gotName string
	var gotArgs []string
	run := func(ctx context.Context, stdin io.Reader, name string, args ...string) ([]byte, []byte, error) {
		gotName, gotArgs = name, args
		return []byte("RIFF....WAVE"), nil, nil
	}
	e := tts.NewEspeak(tts.WithEspeakRunner(run))

	result, err := e.Synthesize(context.Background(), tts.Request{Text: "hello there", Voice: tts.VoiceNova, Speed: 1.5, Pitch: 1.5})
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if result.Provider != "espeak" {
		t.Errorf("provider = %q", result.Provider)
	}
	if gotName != "espeak" {
		t.Errorf("command = %q", gotName)
	}
	want := []string{"-v", "en+f3", "-s", "262", "-p", "75", "--stdout", "hello there"}
	if !slices.Equal(gotArgs, want) {
		t.Errorf("args = %v, want %v", gotArgs, want)
	}
}

func TestEspeakFailure(t *testing.T) {
	run := func(ctx context.Context, stdin io.Reader, name string, args ...string) ([]byte, []byte, error) {
		return nil, []byte("espeak: not found"), errors.New("exit status 127")
	}
	e := tts.NewEspeak(tts.WithEspeakRunner(run))

	_, err := e.Synthesize(context.Background(), tts.Request{Text: "hello"})
	var pe *tts.ProviderError
	if !errors.As(err, &pe) || pe.Provider != "espeak" {
		t.Errorf("expected espeak ProviderError, got %v", err)
	}
}

func TestClampSpeed(t *testing.T) {
	tests := []struct{ in, want float64 }{
		{0, 1.0},
		{0.2, tts.MinSpeed},
		{0.8, 0.8},
		{2.0, tts.MaxSpeed},
	}
	for _, tt := range tests {
		if got := tts.ClampSpeed(tt.in); got != tt.want {
			t.Errorf("ClampSpeed(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestVoiceIDs(t *testing.T) {
	ids := tts.VoiceIDs()
	if len(ids) != len(tts.Voices) {
		t.Fatalf("got %d ids", len(ids))
	}
	if !slices.IsSorted(ids) {
		t.Errorf("ids not sorted: %v", ids)
	}
}
