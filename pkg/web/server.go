// Package web serves the robot's dashboard: current state, the spoken
// transcript, the last camera frame, trained objects, and a text box that
// stages utterances for the simulated microphone.
package web

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"
	"github.com/teslashibe/go-ainex/pkg/hub"
	"github.com/teslashibe/go-ainex/pkg/objects"
)

const (
	maxLogs       = 500
	maxTranscript = 100

	shutdownTimeout = 5 * time.Second
)

// State is the dashboard's view of the robot.
type State struct {
	Simulation bool `json:"simulation"`
	Microphone bool `json:"microphone"`
	Speaker    bool `json:"speaker"`
	Camera     bool `json:"camera"`

	WakeWord        string `json:"wake_word"`
	WakeWordEnabled bool   `json:"wake_word_enabled"`
	WakeWordActive  bool   `json:"wake_word_active"`

	Training       string `json:"training"`
	TrainingObject string `json:"training_object,omitempty"`

	Voice string  `json:"voice"`
	Speed float64 `json:"speed"`

	MotionConnected bool   `json:"motion_connected"`
	Moving          bool   `json:"moving"`
	Tracking        bool   `json:"tracking"`
	Action          string `json:"action,omitempty"`

	LastHeard string `json:"last_heard,omitempty"`
	LastSaid  string `json:"last_said,omitempty"`
}

// LogEntry is one dashboard log line.
type LogEntry struct {
	Time    string `json:"time"`
	Type    string `json:"type"` // info, speech, error, motion
	Message string `json:"message"`
}

// TranscriptEntry is one spoken line.
type TranscriptEntry struct {
	Time string `json:"time"`
	Role string `json:"role"` // user or robot
	Text string `json:"text"`
}

// Roles used in the transcript.
const (
	RoleUser  = "user"
	RoleRobot = "robot"
)

// Stager queues typed text as if it had been heard.
type Stager interface {
	Stage(text string)
}

// ObjectStore lists and forgets trained objects.
type ObjectStore interface {
	Objects() []objects.Object
	Has(name string) bool
	Delete(ctx context.Context, name string) error
}

// MotionStopper halts the robot.
type MotionStopper interface {
	Stop() string
}

// Server is the dashboard server.
type Server struct {
	app    *fiber.App
	addr   string
	logger *slog.Logger

	state   State
	stateMu sync.RWMutex

	logs   []LogEntry
	logsMu sync.RWMutex

	transcript   []TranscriptEntry
	transcriptMu sync.RWMutex

	frame   []byte // last JPEG the robot looked at
	frameMu sync.RWMutex

	statusHub *hub.Hub
	logHub    *hub.Hub
	speechHub *hub.Hub
	cameraHub *hub.Hub

	stager  Stager
	objects ObjectStore
	motion  MotionStopper
	now     func() time.Time
}

// Option configures a Server.
type Option func(*Server)

// WithStager enables POST /api/say.
func WithStager(st Stager) Option {
	return func(s *Server) { s.stager = st }
}

// WithObjects enables the trained-object endpoints.
func WithObjects(o ObjectStore) Option {
	return func(s *Server) { s.objects = o }
}

// WithMotion enables POST /api/motion/stop.
func WithMotion(m MotionStopper) Option {
	return func(s *Server) { s.motion = m }
}

// WithClock sets the time source for entry timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// NewServer creates a dashboard listening on port.
func NewServer(port string, opts ...Option) *Server {
	s := &Server{
		addr:       ":" + port,
		logger:     slog.Default(),
		logs:       make([]LogEntry, 0, maxLogs),
		transcript: make([]TranscriptEntry, 0, maxTranscript),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "web.server")
	s.statusHub = hub.New("status", s.logger)
	s.logHub = hub.New("logs", s.logger)
	s.speechHub = hub.New("speech", s.logger)
	s.cameraHub = hub.New("camera", s.logger)

	app := fiber.New(fiber.Config{
		AppName:               "AiNex Dashboard",
		DisableStartupMessage: true,
	})
	app.Use(cors.New())

	api := app.Group("/api")
	api.Get("/status", s.handleStatus)
	api.Get("/logs", s.handleGetLogs)
	api.Get("/transcript", s.handleGetTranscript)
	api.Post("/say", s.handleSay)
	api.Get("/objects", s.handleListObjects)
	api.Delete("/objects/:name", s.handleDeleteObject)
	api.Post("/motion/stop", s.handleMotionStop)
	api.Get("/camera/last", s.handleLastFrame)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/status", websocket.New(s.handleStatusWS))
	app.Get("/ws/logs", websocket.New(s.handleLogsWS))
	app.Get("/ws/speech", websocket.New(s.handleSpeechWS))
	app.Get("/ws/camera", websocket.New(s.handleCameraWS))

	s.app = app
	return s
}

// Run serves until ctx is done, then shuts the server down.
func (s *Server) Run(ctx context.Context) error {
	for _, h := range []*hub.Hub{s.statusHub, s.logHub, s.speechHub, s.cameraHub} {
		go h.Run(ctx)
	}

	errc := make(chan error, 1)
	go func() { errc <- s.app.Listen(s.addr) }()
	s.logger.Info("dashboard listening", "addr", s.addr)

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	if err := s.app.ShutdownWithTimeout(shutdownTimeout); err != nil {
		return err
	}
	if err := <-errc; err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// UpdateState applies update and broadcasts the result.
func (s *Server) UpdateState(update func(*State)) {
	s.stateMu.Lock()
	update(&s.state)
	state := s.state
	s.stateMu.Unlock()

	if err := s.statusHub.BroadcastJSON(state); err != nil {
		s.logger.Warn("broadcast status", "error", err)
	}
}

// State returns a copy of the current state.
func (s *Server) State() State {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.state
}

// AddLog records a dashboard log line.
func (s *Server) AddLog(logType, message string) {
	entry := LogEntry{
		Time:    s.now().Format("15:04:05"),
		Type:    logType,
		Message: message,
	}

	s.logsMu.Lock()
	s.logs = append(s.logs, entry)
	if len(s.logs) > maxLogs {
		s.logs = s.logs[1:]
	}
	s.logsMu.Unlock()

	if err := s.logHub.BroadcastJSON(entry); err != nil {
		s.logger.Warn("broadcast log", "error", err)
	}
}

// Logs returns the recorded log lines, oldest first.
func (s *Server) Logs() []LogEntry {
	s.logsMu.RLock()
	defer s.logsMu.RUnlock()
	return append([]LogEntry(nil), s.logs...)
}

// AddTranscript records a spoken line and updates LastHeard or LastSaid.
func (s *Server) AddTranscript(role, text string) {
	entry := TranscriptEntry{
		Time: s.now().Format("15:04:05"),
		Role: role,
		Text: text,
	}

	s.transcriptMu.Lock()
	s.transcript = append(s.transcript, entry)
	if len(s.transcript) > maxTranscript {
		s.transcript = s.transcript[1:]
	}
	s.transcriptMu.Unlock()

	if err := s.speechHub.BroadcastJSON(entry); err != nil {
		s.logger.Warn("broadcast transcript", "error", err)
	}
	s.UpdateState(func(st *State) {
		if role == RoleUser {
			st.LastHeard = text
		} else {
			st.LastSaid = text
		}
	})
}

// Transcript returns the recorded lines, oldest first.
func (s *Server) Transcript() []TranscriptEntry {
	s.transcriptMu.RLock()
	defer s.transcriptMu.RUnlock()
	return append([]TranscriptEntry(nil), s.transcript...)
}

// PublishFrame records jpeg as the last frame and pushes it to camera
// viewers.
func (s *Server) PublishFrame(jpeg []byte) {
	if len(jpeg) == 0 {
		return
	}
	s.frameMu.Lock()
	s.frame = jpeg
	s.frameMu.Unlock()
	s.cameraHub.Broadcast(hub.NewBinaryMessage(jpeg))
}

// LastFrame returns the last published frame, or nil.
func (s *Server) LastFrame() []byte {
	s.frameMu.RLock()
	defer s.frameMu.RUnlock()
	return s.frame
}

// Shutdown stops the server immediately.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
