package inference

import (
	"errors"

	"github.com/teslashibe/go-ainex/internal/httpc"
)

var (
	// ErrNoAPIKey is returned when the client is built without a key.
	ErrNoAPIKey = errors.New("inference: API key required")

	// ErrNoModel is returned when no chat model is configured.
	ErrNoModel = errors.New("inference: model required")

	// ErrProviderUnavailable is returned by a Mock with nothing scripted.
	ErrProviderUnavailable = errors.New("inference: provider unavailable")

	// ErrEmptyResponse is returned when a completion has no choices.
	ErrEmptyResponse = errors.New("inference: empty response")

	// ErrNoImage is returned by Vision without a frame.
	ErrNoImage = errors.New("inference: no image provided")
)

// APIError is an HTTP failure from the model service. The router and the
// vision layer inspect it to pick what to say.
type APIError = httpc.APIError

// ProviderError tags a failure with the provider that produced it.
type ProviderError = httpc.ProviderError

// WrapError returns nil for a nil err.
func WrapError(provider string, err error) error {
	return httpc.Wrap("inference", provider, err)
}
