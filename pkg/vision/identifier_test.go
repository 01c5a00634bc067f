package vision

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-ainex/pkg/device"
	"github.com/teslashibe/go-ainex/pkg/inference"
)

func TestIdentifyRealFrame(t *testing.T) {
	cam := device.NewFake()
	cam.QueueFrame(device.Frame{JPEG: []byte{0xFF, 0xD8, 0xFF}, Width: 640, Height: 480})
	model := inference.NewMock()
	model.Description = "  A yellow rubber duck.  "

	id := New(cam, WithDescriber(model)).Identify(context.Background(), "")

	assert.True(t, id.OK())
	assert.False(t, id.Simulated)
	assert.Equal(t, "A yellow rubber duck.", id.Description)

	calls := model.Visions()
	require.Len(t, calls, 1)
	assert.Equal(t, []byte{0xFF, 0xD8, 0xFF}, calls[0].JPEG)
	assert.Equal(t, DefaultPrompt, calls[0].Prompt)
}

func TestIdentifyPlaceholderUsesHint(t *testing.T) {
	cam := device.NewFake()
	model := inference.NewMock()

	id := New(cam, WithDescriber(model)).Identify(context.Background(), "rubber duck")

	assert.True(t, id.OK())
	assert.True(t, id.Simulated)
	assert.Contains(t, id.Description, "rubber duck")
	assert.Zero(t, len(model.Visions()), "placeholder frames never reach the model")
}

func TestIdentifyPlaceholderPicksGenericScene(t *testing.T) {
	cam := device.NewFake()
	var asked int
	ident := New(cam,
		WithScenes("a lamp", "a chair", "a cat"),
		WithRand(func(n int) int { asked = n; return 2 }),
	)

	id := ident.Identify(context.Background(), "  ")

	assert.Equal(t, 3, asked)
	assert.Equal(t, "I can see what appears to be a cat.", id.Description)
	assert.True(t, id.Simulated)
}

func TestIdentifyWithoutDescriber(t *testing.T) {
	cam := device.NewFake()
	cam.QueueFrame(device.Frame{JPEG: []byte{1, 2, 3}})

	id := New(cam, WithRand(func(int) int { return 0 })).Identify(context.Background(), "")

	assert.True(t, id.Simulated)
	assert.Equal(t, "I can see what appears to be "+GenericScenes[0]+".", id.Description)
}

func TestIdentifyVisionError(t *testing.T) {
	cam := device.NewFake()
	cam.QueueFrame(device.Frame{JPEG: []byte{1}})
	apiErr := &inference.APIError{Provider: "openai", StatusCode: 401, Message: "Incorrect API key provided"}

	id := New(cam, WithDescriber(inference.WithError(apiErr))).Identify(context.Background(), "")

	assert.False(t, id.OK())
	assert.True(t, errors.Is(id.Err, apiErr))
	assert.Contains(t, id.Description, "credentials")
}

func TestIdentifyEmptyAnswer(t *testing.T) {
	cam := device.NewFake()
	cam.QueueFrame(device.Frame{JPEG: []byte{1}})
	model := inference.NewMock()
	model.Description = " "

	id := New(cam, WithDescriber(model)).Identify(context.Background(), "")

	assert.ErrorIs(t, id.Err, inference.ErrEmptyResponse)
	assert.NotEmpty(t, id.Description)
}

func TestIdentifyCameraFailure(t *testing.T) {
	cam := device.NewFake()
	cam.ImageResult = &device.Result{
		Kind:      device.KindHardwareAbsent,
		Class:     device.ClassCamera,
		Signature: "camera: camera not found",
	}
	model := inference.NewMock()

	id := New(cam, WithDescriber(model)).Identify(context.Background(), "mug")

	assert.False(t, id.OK())
	assert.False(t, id.Camera.OK)
	assert.Contains(t, id.Description, "can't access the camera")
	assert.Zero(t, len(model.Visions()))
}
