package httpc

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// maxErrorBody caps how much of a failed response is read into an APIError.
const maxErrorBody = 64 << 10

// APIError is a non-2xx reply from a remote service.
type APIError struct {
	Service    string // stt, tts, inference
	Provider   string
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	prefix := e.Provider
	if e.Service != "" {
		prefix = e.Service + " [" + e.Provider + "]"
	}
	if e.Code != "" {
		return fmt.Sprintf("%s: API error %d (%s): %s", prefix, e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: API error %d: %s", prefix, e.StatusCode, e.Message)
}

// IsRateLimited reports HTTP 429.
func (e *APIError) IsRateLimited() bool { return e.StatusCode == http.StatusTooManyRequests }

// IsUnauthorized reports HTTP 401 and 403. Both mean the key will not work
// until someone changes it.
func (e *APIError) IsUnauthorized() bool {
	return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
}

// IsServerError reports HTTP 5xx.
func (e *APIError) IsServerError() bool { return e.StatusCode >= 500 && e.StatusCode < 600 }

// IsRetryable reports whether the same request may succeed later.
func (e *APIError) IsRetryable() bool { return e.IsRateLimited() || e.IsServerError() }

// ProviderError tags a transport or decoding failure with where it happened.
type ProviderError struct {
	Service  string
	Provider string
	Err      error
}

func (e *ProviderError) Error() string {
	if e.Service == "" {
		return fmt.Sprintf("%s: %v", e.Provider, e.Err)
	}
	return fmt.Sprintf("%s [%s]: %v", e.Service, e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// Wrap returns nil for a nil err.
func Wrap(service, provider string, err error) error {
	if err == nil {
		return nil
	}
	return &ProviderError{Service: service, Provider: provider, Err: err}
}

// ParseError builds an APIError from a failed response. OpenAI-style
// {"error":{"message","code"}} bodies are unpacked; anything else is kept
// verbatim as the message.
func ParseError(service, provider string, resp *http.Response) *APIError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	var envelope struct {
		Error struct {
			Message string `json:"message"`
			Code    any    `json:"code"`
		} `json:"error"`
	}
	e := &APIError{
		Service:    service,
		Provider:   provider,
		StatusCode: resp.StatusCode,
		Message:    string(body),
	}
	if json.Unmarshal(body, &envelope) == nil && envelope.Error.Message != "" {
		e.Message = envelope.Error.Message
		if envelope.Error.Code != nil {
			e.Code = fmt.Sprint(envelope.Error.Code)
		}
	}
	if e.Message == "" {
		e.Message = http.StatusText(resp.StatusCode)
	}
	return e
}
