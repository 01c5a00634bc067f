// Package motion turns spoken movement commands into messages for the
// robot's motion middleware. Timed actions (walking, waving) are stopped
// automatically when their duration elapses, both by a one-shot timer and by
// CheckTimeouts, which the main loop calls once per iteration.
package motion

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Default action durations.
const (
	DefaultStepDuration = 1500 * time.Millisecond
	DefaultWaveDuration = 5 * time.Second
	DefaultPublishWait  = 2 * time.Second
)

// Step count bounds for walking commands.
const (
	MinSteps = 1
	MaxSteps = 10
)

// Middleware interprets movement commands.
type Middleware interface {
	// Execute handles text if it is a movement command. ok is false when the
	// text is not a movement command and should be handled elsewhere.
	Execute(ctx context.Context, text string) (reply string, ok bool)
	// CheckTimeouts stops the current action once its duration has elapsed.
	CheckTimeouts()
	// Stop halts all movement. Calling it repeatedly is harmless.
	Stop() string
	Close() error
}

// Status is a snapshot of what the robot is doing.
type Status struct {
	Connected bool   `json:"connected"`
	Moving    bool   `json:"moving"`
	Tracking  bool   `json:"tracking"`
	Action    string `json:"action,omitempty"`
}

// Controller is the Middleware backed by a Bus. A nil bus, or a bus that is
// not connected, makes the controller respond without publishing when
// simulation is enabled and refuse otherwise.
type Controller struct {
	bus        Bus
	simulation bool
	stepDur    time.Duration
	waveDur    time.Duration
	pubWait    time.Duration
	now        func() time.Time
	logger     *slog.Logger

	mu       sync.Mutex
	action   string
	started  time.Time
	duration time.Duration
	timer    *time.Timer
	gen      uint64
	closed   bool

	stateMu  sync.Mutex
	moving   bool
	tracking bool
}

// Option configures a Controller.
type Option func(*Controller)

// WithSimulation lets commands succeed without a connected bus.
func WithSimulation(on bool) Option {
	return func(c *Controller) { c.simulation = on }
}

// WithStepDuration sets how long one walking step lasts.
func WithStepDuration(d time.Duration) Option {
	return func(c *Controller) { c.stepDur = d }
}

// WithWaveDuration sets how long a wave lasts.
func WithWaveDuration(d time.Duration) Option {
	return func(c *Controller) { c.waveDur = d }
}

// WithClock replaces time.Now for CheckTimeouts.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// NewController creates a Controller publishing on bus (which may be nil)
// and subscribes to robot state updates.
func NewController(bus Bus, opts ...Option) *Controller {
	c := &Controller{
		bus:        bus,
		simulation: true,
		stepDur:    DefaultStepDuration,
		waveDur:    DefaultWaveDuration,
		pubWait:    DefaultPublishWait,
		now:        time.Now,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("component", "motion.controller")

	if bus != nil {
		if err := bus.Subscribe(TopicRobotState, c.onRobotState); err != nil {
			c.logger.Warn("subscribe robot state failed", "error", err)
		}
	}
	return c
}

var stepsRe = regexp.MustCompile(`(\d+)\s*(steps?|paces?)`)

// Execute implements Middleware.
func (c *Controller) Execute(ctx context.Context, text string) (string, bool) {
	cmd := strings.ToLower(strings.TrimSpace(text))
	switch {
	case strings.Contains(cmd, "stop"):
		return c.Stop(), true
	case strings.Contains(cmd, "move"), strings.Contains(cmd, "step"), strings.Contains(cmd, "walk"):
		return c.walk(ctx, cmd), true
	case strings.Contains(cmd, "wave"):
		return c.wave(ctx), true
	case strings.Contains(cmd, "kick") && strings.Contains(cmd, "ball"):
		return c.kick(ctx), true
	case strings.Contains(cmd, "track") && (strings.Contains(cmd, "object") || strings.Contains(cmd, "target")):
		return c.track(ctx), true
	}
	return "", false
}

// ParseWalk extracts direction and step count from a walking command.
func ParseWalk(cmd string) (direction string, steps int) {
	direction = "forward"
	switch {
	case strings.Contains(cmd, "back"):
		direction = "backward"
	case strings.Contains(cmd, "left"):
		direction = "left"
	case strings.Contains(cmd, "right"):
		direction = "right"
	}

	steps = 1
	if m := stepsRe.FindStringSubmatch(cmd); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			steps = n
		}
	}
	steps = min(max(steps, MinSteps), MaxSteps)
	return direction, steps
}

func (c *Controller) walk(ctx context.Context, cmd string) string {
	if !c.ready() {
		return "I can't move because I'm not connected to the robot's movement system."
	}
	direction, steps := ParseWalk(cmd)
	c.logger.Info("walking", "direction", direction, "steps", steps)

	if c.connected() {
		var tw Twist
		switch direction {
		case "forward":
			tw.Linear.X = 0.2 * float64(steps)
		case "backward":
			tw.Linear.X = -0.2 * float64(steps)
		case "left":
			tw.Angular.Z = 0.5
		case "right":
			tw.Angular.Z = -0.5
		}
		if err := c.publish(ctx, TopicCmdVel, tw); err != nil {
			c.logger.Warn("walk publish failed", "error", err)
			return "I couldn't start moving. The motion system didn't accept the command."
		}
		c.begin("moving", time.Duration(steps)*c.stepDur)
	}
	return fmt.Sprintf("Moving %s for %d steps.", direction, steps)
}

func (c *Controller) wave(ctx context.Context) string {
	if !c.ready() {
		return "I can't wave because I'm not connected to the robot's movement system."
	}
	c.logger.Info("waving right hand")
	if c.connected() {
		if err := c.publish(ctx, TopicArmMovement, ArmCommand{Command: "wave_right_arm"}); err != nil {
			c.logger.Warn("wave publish failed", "error", err)
			return "I couldn't wave. The motion system didn't accept the command."
		}
		c.begin("waving", c.waveDur)
	}
	return fmt.Sprintf("I'm waving my right hand for %s.", seconds(c.waveDur))
}

func (c *Controller) kick(ctx context.Context) string {
	if !c.ready() {
		return "I can't kick the ball because I'm not connected to the robot's movement system."
	}
	c.logger.Info("looking for ball to kick")
	if c.connected() {
		if err := c.publish(ctx, TopicExecuteAction, ActionCommand{Action: "find_and_kick_ball"}); err != nil {
			c.logger.Warn("kick publish failed", "error", err)
			return "I couldn't start looking for the ball."
		}
	}
	return "I'm looking for the ball and will kick it when I find it."
}

func (c *Controller) track(ctx context.Context) string {
	if !c.ready() {
		return "I can't track objects because I'm not connected to the robot's vision system."
	}
	c.logger.Info("starting object tracking")
	if c.connected() {
		if err := c.publish(ctx, TopicExecuteAction, ActionCommand{Action: "start_tracking"}); err != nil {
			c.logger.Warn("track publish failed", "error", err)
			return "I couldn't start tracking."
		}
		c.stateMu.Lock()
		c.tracking = true
		c.stateMu.Unlock()
	}
	return "I'm now tracking objects in front of me. Say 'stop tracking' when you want me to stop."
}

// Stop implements Middleware.
func (c *Controller) Stop() string {
	if !c.ready() {
		return "I can't stop because I'm not connected to the robot's movement system."
	}
	c.halt("stop requested")
	return "I've stopped all movements."
}

// CheckTimeouts implements Middleware.
func (c *Controller) CheckTimeouts() {
	c.mu.Lock()
	expired := c.action != "" && c.now().Sub(c.started) > c.duration
	action := c.action
	c.mu.Unlock()

	if expired {
		c.logger.Info("action timed out", "action", action)
		c.halt("timeout")
	}
}

// Status returns what the robot is doing.
func (c *Controller) Status() Status {
	c.mu.Lock()
	action := c.action
	c.mu.Unlock()
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	return Status{
		Connected: c.connected(),
		Moving:    c.moving || action == "moving",
		Tracking:  c.tracking,
		Action:    action,
	}
}

// Close stops any movement and closes the bus.
func (c *Controller) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	if c.connected() {
		c.halt("shutdown")
	} else {
		c.cancelTimer()
	}
	if c.bus != nil {
		return c.bus.Close()
	}
	return nil
}

func (c *Controller) connected() bool {
	return c.bus != nil && c.bus.Connected()
}

func (c *Controller) ready() bool {
	return c.simulation || c.connected()
}

// begin records a timed action and arms the auto-stop timer. A newer
// action supersedes the timer of an older one.
func (c *Controller) begin(action string, d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	if c.timer != nil {
		c.timer.Stop()
	}
	c.gen++
	gen := c.gen
	c.action = action
	c.started = c.now()
	c.duration = d
	c.timer = time.AfterFunc(d, func() { c.expire(gen) })
}

func (c *Controller) expire(gen uint64) {
	c.mu.Lock()
	current := gen == c.gen && c.action != ""
	c.mu.Unlock()
	if current {
		c.halt("auto-stop")
	}
}

func (c *Controller) cancelTimer() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.gen++
	c.action = ""
}

// halt publishes stop messages and clears action state.
func (c *Controller) halt(reason string) {
	c.cancelTimer()
	c.stateMu.Lock()
	c.moving = false
	c.tracking = false
	c.stateMu.Unlock()

	if !c.connected() {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), c.pubWait)
	defer cancel()
	if err := c.publish(ctx, TopicStopAll, StopCommand{Stop: true}); err != nil {
		c.logger.Warn("stop publish failed", "reason", reason, "error", err)
	}
	if err := c.publish(ctx, TopicCmdVel, Twist{}); err != nil {
		c.logger.Warn("zero velocity publish failed", "reason", reason, "error", err)
	}
	c.logger.Debug("stopped", "reason", reason)
}

func (c *Controller) publish(ctx context.Context, topic string, msg any) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return c.bus.Publish(ctx, topic, payload)
}

// onRobotState parses state strings such as "moving", "stopped",
// "tracking" and "not_tracking".
func (c *Controller) onRobotState(payload []byte) {
	state := strings.ToLower(string(payload))
	c.stateMu.Lock()
	defer c.stateMu.Unlock()

	switch {
	case strings.Contains(state, "stopped"):
		c.moving = false
	case strings.Contains(state, "moving"):
		c.moving = true
	}
	switch {
	case strings.Contains(state, "not_tracking"):
		c.tracking = false
	case strings.Contains(state, "tracking"):
		c.tracking = true
	}
	c.logger.Debug("robot state", "state", state)
}

func seconds(d time.Duration) string {
	s := d.Seconds()
	if s == 1 {
		return "1 second"
	}
	return strconv.FormatFloat(s, 'f', -1, 64) + " seconds"
}

var _ Middleware = (*Controller)(nil)
