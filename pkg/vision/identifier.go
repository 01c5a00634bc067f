// Package vision identifies what the robot is looking at. A real camera frame
// is described by a remote vision model; a placeholder frame from a simulated
// channel yields a canned scene description instead.
package vision

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/teslashibe/go-ainex/pkg/device"
	"github.com/teslashibe/go-ainex/pkg/errtext"
	"github.com/teslashibe/go-ainex/pkg/inference"
)

// DefaultPrompt asks the vision model for a short spoken description.
const DefaultPrompt = "You are the eyes of a small humanoid robot. Describe the main object in view " +
	"in one short sentence, naming it plainly. Mention its colour if obvious."

// DefaultTimeout bounds the vision service call.
const DefaultTimeout = 20 * time.Second

// GenericScenes are used for simulated frames when no training hint is given.
var GenericScenes = []string{
	"a computer keyboard on a desk with some papers beside it",
	"a white coffee mug on a wooden table",
	"a red ball on the floor",
	"a book lying open next to a pencil",
	"a potted plant near a window",
	"a pair of glasses resting on a notebook",
}

// Camera is the part of device.Channel used here.
type Camera interface {
	CaptureImage(ctx context.Context) (device.Frame, device.Result)
}

// Describer describes an image. inference.Provider satisfies it.
type Describer interface {
	Vision(ctx context.Context, req *inference.VisionRequest) (*inference.VisionResponse, error)
}

// Identification is the outcome of one look.
type Identification struct {
	// Description is always speakable: the model's answer, a canned scene,
	// or an explanation of what went wrong.
	Description string
	Simulated   bool
	// Camera is the capture result; callers gate !Camera.OK under the
	// camera retry class.
	Camera device.Result
	// Err is set when the vision service failed.
	Err error
}

// OK reports whether Description describes a scene rather than a failure.
func (id Identification) OK() bool {
	return id.Camera.OK && id.Err == nil
}

// Identifier captures a frame and describes it.
type Identifier struct {
	cam        Camera
	describer  Describer
	translator *errtext.Translator
	prompt     string
	scenes     []string
	intn       func(int) int
	timeout    time.Duration
	logger     *slog.Logger
}

// Option configures an Identifier.
type Option func(*Identifier)

// WithDescriber sets the vision model. Without one every frame is treated
// as a placeholder.
func WithDescriber(d Describer) Option {
	return func(i *Identifier) { i.describer = d }
}

// WithTranslator sets the translator used for failure sentences.
func WithTranslator(t *errtext.Translator) Option {
	return func(i *Identifier) { i.translator = t }
}

// WithPrompt overrides DefaultPrompt.
func WithPrompt(p string) Option {
	return func(i *Identifier) { i.prompt = p }
}

// WithScenes overrides GenericScenes.
func WithScenes(scenes ...string) Option {
	return func(i *Identifier) { i.scenes = scenes }
}

// WithRand replaces the scene picker, for tests. intn(n) must return [0,n).
func WithRand(intn func(int) int) Option {
	return func(i *Identifier) { i.intn = intn }
}

// WithTimeout bounds the vision service call.
func WithTimeout(d time.Duration) Option {
	return func(i *Identifier) { i.timeout = d }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(i *Identifier) { i.logger = l }
}

// New creates an Identifier reading frames from cam.
func New(cam Camera, opts ...Option) *Identifier {
	i := &Identifier{
		cam:     cam,
		prompt:  DefaultPrompt,
		scenes:  GenericScenes,
		intn:    rand.IntN,
		timeout: DefaultTimeout,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(i)
	}
	if i.translator == nil {
		i.translator = errtext.New(i.logger)
	}
	i.logger = i.logger.With("component", "vision.identifier")
	return i
}

// Identify looks once and describes the scene. hint is the name of the
// object being trained, if any; simulated frames are biased towards it so
// training works without a camera.
func (i *Identifier) Identify(ctx context.Context, hint string) Identification {
	frame, res := i.cam.CaptureImage(ctx)
	if !res.OK {
		i.logger.Debug("capture failed", "signature", res.Signature, "error", res.Err)
		return Identification{
			Description: i.translator.Translate(errtext.Camera, res.Signature),
			Camera:      res,
		}
	}

	if frame.Placeholder || len(frame.JPEG) == 0 || i.describer == nil {
		return Identification{
			Description: i.canned(hint),
			Simulated:   true,
			Camera:      res,
		}
	}

	ctx, cancel := context.WithTimeout(ctx, i.timeout)
	defer cancel()

	resp, err := i.describer.Vision(ctx, &inference.VisionRequest{
		JPEG:   frame.JPEG,
		Prompt: i.prompt,
	})
	if err == nil && strings.TrimSpace(resp.Content) == "" {
		err = inference.ErrEmptyResponse
	}
	if err != nil {
		i.logger.Warn("vision request failed", "error", err)
		return Identification{
			Description: i.translator.Translate(errtext.API, "vision: "+err.Error()),
			Camera:      res,
			Err:         err,
		}
	}

	i.logger.Debug("described frame", "latency_ms", resp.LatencyMs, "bytes", len(frame.JPEG))
	return Identification{
		Description: strings.TrimSpace(resp.Content),
		Camera:      res,
	}
}

func (i *Identifier) canned(hint string) string {
	if hint = strings.TrimSpace(hint); hint != "" {
		return fmt.Sprintf("I can see what appears to be a %s in front of me.", hint)
	}
	if len(i.scenes) == 0 {
		return "I can't make out anything in particular."
	}
	return fmt.Sprintf("I can see what appears to be %s.", i.scenes[i.intn(len(i.scenes))])
}
