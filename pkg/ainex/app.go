// Package ainex wires the robot's voice interface together and runs its main
// loop: listen, route the utterance, speak, enforce motion deadlines, repeat.
package ainex

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/teslashibe/go-ainex/internal/config"
	"github.com/teslashibe/go-ainex/pkg/audioio"
	"github.com/teslashibe/go-ainex/pkg/camera"
	"github.com/teslashibe/go-ainex/pkg/conversation"
	"github.com/teslashibe/go-ainex/pkg/device"
	"github.com/teslashibe/go-ainex/pkg/errtext"
	"github.com/teslashibe/go-ainex/pkg/inference"
	"github.com/teslashibe/go-ainex/pkg/motion"
	"github.com/teslashibe/go-ainex/pkg/objects"
	"github.com/teslashibe/go-ainex/pkg/retry"
	"github.com/teslashibe/go-ainex/pkg/router"
	"github.com/teslashibe/go-ainex/pkg/stt"
	"github.com/teslashibe/go-ainex/pkg/training"
	"github.com/teslashibe/go-ainex/pkg/tts"
	"github.com/teslashibe/go-ainex/pkg/vision"
	"github.com/teslashibe/go-ainex/pkg/web"
)

// Loop timing.
const (
	DefaultListenTimeout = 10 * time.Second
	DefaultPause         = 100 * time.Millisecond
)

// App is one running robot voice interface.
type App struct {
	cfg    config.Config
	id     string
	logger *slog.Logger

	channel    device.Channel
	staging    *device.Staging
	llm        inference.Provider
	store      *objects.Store
	bus        motion.Bus
	motion     *motion.Controller
	gate       *retry.Gate
	translator *errtext.Translator
	router     *router.Router
	session    *router.Session
	web        *web.Server

	devices       device.Status
	listenTimeout time.Duration
	pause         time.Duration
}

// Option configures an App. Injected collaborators replace the ones New
// would otherwise build from the configuration.
type Option func(*App)

// WithChannel replaces the hardware or simulated device channel.
func WithChannel(ch device.Channel) Option {
	return func(a *App) { a.channel = ch }
}

// WithStaging sets the staged-input queue shared with the dashboard.
func WithStaging(s *device.Staging) Option {
	return func(a *App) { a.staging = s }
}

// WithLLM replaces the language model client.
func WithLLM(p inference.Provider) Option {
	return func(a *App) { a.llm = p }
}

// WithStore replaces the SQLite-backed object store.
func WithStore(s *objects.Store) Option {
	return func(a *App) { a.store = s }
}

// WithMotionBus replaces the MQTT connection.
func WithMotionBus(b motion.Bus) Option {
	return func(a *App) { a.bus = b }
}

// WithListenTimeout bounds each capture.
func WithListenTimeout(d time.Duration) Option {
	return func(a *App) { a.listenTimeout = d }
}

// WithPause sets the delay between loop iterations.
func WithPause(d time.Duration) Option {
	return func(a *App) { a.pause = d }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(a *App) { a.logger = l }
}

// New builds the application from cfg. Missing hardware or credentials
// degrade the robot but never fail construction; only an unusable object
// store or motion configuration does.
func New(ctx context.Context, cfg config.Config, opts ...Option) (*App, error) {
	a := &App{
		cfg:           cfg,
		id:            uuid.NewString(),
		logger:        slog.Default(),
		listenTimeout: DefaultListenTimeout,
		pause:         DefaultPause,
	}
	for _, opt := range opts {
		opt(a)
	}
	a.logger = a.logger.With("component", "ainex", "session", a.id)
	a.gate = retry.New()
	a.translator = errtext.New(a.logger)

	if a.llm == nil && cfg.OpenAIKey != "" {
		client, err := inference.NewClient(
			inference.WithAPIKey(cfg.OpenAIKey),
			inference.WithBaseURL(cfg.Models.BaseURL),
			inference.WithModel(cfg.Models.Chat),
			inference.WithVisionModel(cfg.Models.Vision),
			inference.WithTimeout(time.Duration(cfg.Models.TimeoutSecs)*time.Second),
			inference.WithLogger(a.logger),
		)
		if err != nil {
			a.logger.Warn("language model unavailable", "error", err)
		} else {
			a.llm = client
		}
	}

	if a.channel == nil {
		a.channel = a.buildChannel()
	}

	if a.store == nil {
		repo, err := objects.OpenSQLite(cfg.Storage.DataDir)
		if err != nil {
			a.channel.Close()
			return nil, fmt.Errorf("open object store: %w", err)
		}
		store, err := objects.Open(ctx, objects.WithRepository(repo), objects.WithLogger(a.logger))
		if err != nil {
			repo.Close()
			a.channel.Close()
			return nil, fmt.Errorf("load trained objects: %w", err)
		}
		a.store = store
	}

	if cfg.Motion.Enabled {
		if a.bus == nil {
			a.bus = motion.DialMQTT(motion.MQTTConfig{
				Broker:   cfg.Motion.Broker,
				ClientID: cfg.Motion.ClientID,
				Username: cfg.Motion.Username,
				Password: cfg.Motion.Password,
			}, a.logger)
		}
		a.motion = motion.NewController(a.bus,
			motion.WithSimulation(cfg.Simulation),
			motion.WithLogger(a.logger),
		)
	}

	a.session = a.newSession()

	if cfg.Web.Enabled {
		webOpts := []web.Option{web.WithObjects(a.store), web.WithLogger(a.logger)}
		if a.staging != nil {
			webOpts = append(webOpts, web.WithStager(a.staging))
		}
		if a.motion != nil {
			webOpts = append(webOpts, web.WithMotion(a.motion))
		}
		a.web = web.NewServer(cfg.Web.Port, webOpts...)
	}

	visionOpts := []vision.Option{vision.WithTranslator(a.translator), vision.WithLogger(a.logger)}
	if a.llm != nil {
		visionOpts = append(visionOpts, vision.WithDescriber(a.llm))
	}
	routerOpts := []router.Option{
		router.WithIdentifier(vision.New(a.camera(), visionOpts...)),
		router.WithMatcher(a.store),
		router.WithTranslator(a.translator),
		router.WithGate(a.gate),
		router.WithLogger(a.logger),
	}
	if a.llm != nil {
		routerOpts = append(routerOpts, router.WithLLM(a.llm))
	}
	if a.motion != nil {
		routerOpts = append(routerOpts, router.WithMotion(a.motion))
	}
	a.router = router.New(a.speaker(), routerOpts...)

	return a, nil
}

// buildChannel assembles the hardware channel and, in simulation, wraps it.
func (a *App) buildChannel() device.Channel {
	cfg := a.cfg
	hwOpts := []device.HardwareOption{
		device.WithLock(device.NewLock(cfg.LockDir, device.DefaultLockKey)),
		device.WithRecordDuration(time.Duration(cfg.Audio.RecordSeconds) * time.Second),
		device.WithLogger(a.logger),
	}

	camCfg := camera.DefaultConfig()
	camCfg.Candidates = cfg.Camera.Candidates
	camCfg.Width, camCfg.Height = cfg.Camera.Width, cfg.Camera.Height
	camCfg.ReadTimeout = time.Duration(cfg.Camera.ReadTimeoutMs) * time.Millisecond
	if cam, err := camera.New(camCfg, camera.WithLogger(a.logger)); err != nil {
		a.logger.Warn("camera disabled", "error", err)
	} else {
		hwOpts = append(hwOpts, device.WithCamera(cam))
	}

	if a.cfg.OpenAIKey != "" {
		whisper, err := stt.NewWhisper(
			stt.WithAPIKey(cfg.OpenAIKey),
			stt.WithBaseURL(cfg.Models.BaseURL),
			stt.WithModel(cfg.Models.Transcribe),
			stt.WithLogger(a.logger),
		)
		if err != nil {
			a.logger.Warn("speech recognition unavailable", "error", err)
		} else {
			hwOpts = append(hwOpts, device.WithTranscriber(whisper))
		}
	}

	voices := []tts.Provider{}
	if cfg.OpenAIKey != "" {
		if p, err := tts.NewOpenAI(
			tts.WithAPIKey(cfg.OpenAIKey),
			tts.WithBaseURL(cfg.Models.BaseURL),
			tts.WithModel(cfg.Models.Speech),
			tts.WithVoice(cfg.Voice.VoiceID),
			tts.WithLogger(a.logger),
		); err != nil {
			a.logger.Warn("remote speech synthesis unavailable", "error", err)
		} else {
			voices = append(voices, p)
		}
	}
	voices = append(voices, tts.NewEspeak(tts.WithEspeakLogger(a.logger)))
	if chain, err := tts.NewChain(voices, tts.WithChainLogger(a.logger)); err != nil {
		a.logger.Warn("speech synthesis unavailable", "error", err)
	} else {
		hwOpts = append(hwOpts, device.WithSynthesizer(chain))
	}

	var snd device.Audio
	audioCfg := audioio.DefaultConfig()
	audioCfg.CaptureDevice = cfg.Audio.MicrophoneDevice
	audioCfg.PlaybackDevice = cfg.Audio.SpeakerDevice
	audioCfg.SampleRate = cfg.Audio.SampleRate
	if alsa, err := audioio.NewALSA(audioCfg, audioio.WithLogger(a.logger)); err != nil {
		a.logger.Warn("sound card disabled", "error", err)
	} else {
		snd = alsa
	}

	hw := device.NewHardware(snd, hwOpts...)
	if !cfg.Simulation {
		return hw
	}
	if a.staging == nil {
		a.staging = device.NewStaging()
	}
	return device.New(hw, true, device.WithStaging(a.staging), device.WithSimLogger(a.logger))
}

func (a *App) newSession() *router.Session {
	s := router.NewSession(
		conversation.New(),
		training.New(a.store, a.logger),
	)
	if a.cfg.WakeWord.Word != "" {
		s.WakeWord = a.cfg.WakeWord.Word
	}
	s.WakeWordEnabled = a.cfg.WakeWord.Enabled
	if a.cfg.WakeWord.TimeoutSeconds > 0 {
		s.WakeTimeout = time.Duration(a.cfg.WakeWord.TimeoutSeconds) * time.Second
	}
	if _, ok := s.Voice.Available[a.cfg.Voice.VoiceID]; ok {
		s.Voice.VoiceID = a.cfg.Voice.VoiceID
	}
	if a.cfg.Voice.Speed > 0 {
		s.Voice.Speed = tts.ClampSpeed(a.cfg.Voice.Speed)
	}
	s.MotionEnabled = a.motion != nil
	return s
}

// speaker returns the channel, wrapped so the dashboard sees what is said.
func (a *App) speaker() router.Speaker {
	if a.web == nil {
		return a.channel
	}
	return &observedSpeaker{next: a.channel, web: a.web}
}

func (a *App) camera() vision.Camera {
	if a.web == nil {
		return a.channel
	}
	return &observedCamera{next: a.channel, web: a.web}
}

// Session returns the conversation state. It must only be used from the
// goroutine running the loop.
func (a *App) Session() *router.Session { return a.session }

// Staging returns the staged-input queue, or nil outside simulation.
func (a *App) Staging() *device.Staging { return a.staging }

// Dashboard returns the web server, or nil when disabled.
func (a *App) Dashboard() *web.Server { return a.web }

// Close stops the robot and releases every device and store.
func (a *App) Close() error {
	var errs []error
	if a.motion != nil {
		if err := a.motion.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close motion: %w", err))
		}
	}
	if err := a.channel.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close devices: %w", err))
	}
	if err := a.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close object store: %w", err))
	}
	if a.llm != nil {
		if err := a.llm.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close language model: %w", err))
		}
	}
	a.logger.Info("shut down")
	return errors.Join(errs...)
}
