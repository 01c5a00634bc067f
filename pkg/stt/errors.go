package stt

import (
	"errors"

	"github.com/teslashibe/go-ainex/internal/httpc"
)

var (
	ErrNoAPIKey            = errors.New("stt: API key required")
	ErrEmptyAudio          = errors.New("stt: empty audio")
	ErrProviderUnavailable = errors.New("stt: provider unavailable")
)

// APIError is an HTTP failure from a transcription service.
type APIError = httpc.APIError

// ProviderError tags a failure with the provider that produced it.
type ProviderError = httpc.ProviderError

// WrapError returns nil for a nil err.
func WrapError(provider string, err error) error {
	return httpc.Wrap("stt", provider, err)
}
