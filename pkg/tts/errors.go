package tts

import (
	"errors"

	"github.com/teslashibe/go-ainex/internal/httpc"
)

// Sentinel errors.
var (
	// ErrNoAPIKey is returned by providers that need a key and were given none.
	ErrNoAPIKey = errors.New("tts: API key required")

	// ErrEmptyText is returned when there is nothing to say.
	ErrEmptyText = errors.New("tts: empty text")

	// ErrProviderUnavailable is returned when every provider is missing or
	// benched.
	ErrProviderUnavailable = errors.New("tts: no providers available")
)

// APIError is an HTTP failure from a speech service.
type APIError = httpc.APIError

// ProviderError tags a failure with the provider that produced it.
type ProviderError = httpc.ProviderError

// WrapError returns nil for a nil err.
func WrapError(provider string, err error) error {
	return httpc.Wrap("tts", provider, err)
}
