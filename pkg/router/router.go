// Package router decides what the robot does with each utterance. Intents
// are evaluated in a fixed priority order and exactly one branch handles an
// utterance, unless the wake-word gate drops it first:
//
//  1. wake-word gate
//  2. object identification
//  3. wake-word enable/disable
//  4. start training
//  5. finish or cancel training
//  6. training samples
//  7. voice settings and conversation reset
//  8. motion commands
//  9. free conversation with the language model
package router

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/teslashibe/go-ainex/pkg/device"
	"github.com/teslashibe/go-ainex/pkg/errtext"
	"github.com/teslashibe/go-ainex/pkg/inference"
	"github.com/teslashibe/go-ainex/pkg/motion"
	"github.com/teslashibe/go-ainex/pkg/retry"
	"github.com/teslashibe/go-ainex/pkg/vision"
)

// Spoken lines used by more than one branch.
const (
	Greeting  = "Hello, I'm ready to talk"
	Looking   = "Looking at what's in front of me..."
	Listening = "Yes? I'm listening."
	Apology   = "I'm sorry, I couldn't process that request."
)

// DefaultChatTimeout bounds one language model call.
const DefaultChatTimeout = 30 * time.Second

// Speaker says text aloud. device.Channel satisfies it.
type Speaker interface {
	Speak(ctx context.Context, text string, voice device.VoiceSettings) device.Result
}

// Identifier looks at the scene. *vision.Identifier satisfies it.
type Identifier interface {
	Identify(ctx context.Context, hint string) vision.Identification
}

// Matcher finds a trained object in a description. *objects.Store satisfies it.
type Matcher interface {
	Match(description string) (string, bool)
}

// Outcome describes how one utterance was handled.
type Outcome struct {
	Intent  Intent
	Text    string // utterance after wake-word stripping
	Replies []string
}

// Dropped reports whether the wake-word gate discarded the utterance.
func (o Outcome) Dropped() bool { return o.Intent == IntentDropped }

// Router dispatches utterances. It holds collaborators only; all
// conversation state lives in the Session passed to Route.
type Router struct {
	speaker     Speaker
	identifier  Identifier
	matcher     Matcher
	motion      motion.Middleware
	llm         inference.Provider
	translator  *errtext.Translator
	gate        *retry.Gate
	now         func() time.Time
	chatTimeout time.Duration
	logger      *slog.Logger
}

// Option configures a Router.
type Option func(*Router)

// WithIdentifier sets the object identifier.
func WithIdentifier(id Identifier) Option {
	return func(r *Router) { r.identifier = id }
}

// WithMatcher sets the trained object matcher.
func WithMatcher(m Matcher) Option {
	return func(r *Router) { r.matcher = m }
}

// WithMotion sets the motion middleware.
func WithMotion(m motion.Middleware) Option {
	return func(r *Router) { r.motion = m }
}

// WithLLM sets the language model used for free conversation.
func WithLLM(p inference.Provider) Option {
	return func(r *Router) { r.llm = p }
}

// WithTranslator sets the error translator.
func WithTranslator(t *errtext.Translator) Option {
	return func(r *Router) { r.translator = t }
}

// WithGate shares a retry gate with the main loop.
func WithGate(g *retry.Gate) Option {
	return func(r *Router) { r.gate = g }
}

// WithClock replaces time.Now, for wake-word timeouts in tests.
func WithClock(now func() time.Time) Option {
	return func(r *Router) { r.now = now }
}

// WithChatTimeout bounds each language model call.
func WithChatTimeout(d time.Duration) Option {
	return func(r *Router) { r.chatTimeout = d }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Router) { r.logger = l }
}

// New creates a Router that replies through speaker.
func New(speaker Speaker, opts ...Option) *Router {
	r := &Router{
		speaker:     speaker,
		now:         time.Now,
		chatTimeout: DefaultChatTimeout,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.translator == nil {
		r.translator = errtext.New(r.logger)
	}
	if r.gate == nil {
		r.gate = retry.New()
	}
	r.logger = r.logger.With("component", "router")
	return r
}

// Say speaks text with the session's voice. Speaker failures are gated
// under the speaker class so a dead speaker is not reported every turn.
func (r *Router) Say(ctx context.Context, s *Session, text string) device.Result {
	res := r.speaker.Speak(ctx, text, s.Voice.Device())
	if res.OK {
		r.gate.Succeeded(retry.ClassSpeaker)
		return res
	}
	if r.gate.ShouldAct(retry.ClassSpeaker, res.Signature) {
		r.logger.Warn("speak failed", "signature", res.Signature, "kind", res.Kind, "error", res.Err)
	}
	return res
}

// Route handles one utterance.
func (r *Router) Route(ctx context.Context, s *Session, utterance string) Outcome {
	raw := strings.Join(strings.Fields(utterance), " ")
	text := normalize(raw)
	if text == "" {
		return Outcome{Intent: IntentDropped}
	}

	out := &Outcome{Text: text}
	say := func(line string) {
		out.Replies = append(out.Replies, line)
		r.Say(ctx, s, line)
	}

	var done bool
	if text, done = r.wakeGate(s, text, out, say); done {
		return *out
	}
	out.Text = text
	said := asSaid(raw, normalize(raw), text)
	collecting := s.Training != nil && s.Training.Collecting()

	switch {
	case isIdentify(text) && !collecting:
		out.Intent = IntentIdentify
		r.identify(ctx, s, text, say)

	case wakeToggle(text) != 0:
		out.Intent = IntentWakeToggle
		r.toggleWake(s, wakeToggle(text) > 0, say)

	case isTrainStart(text) && !isTrainingControl(text) && s.Training != nil:
		out.Intent = IntentTrainStart
		name, _ := ParseTrainObject(text)
		reply, err := s.Training.Start(ctx, name)
		if err != nil {
			r.logger.Warn("start training", "object", name, "error", err)
		}
		say(reply)

	case isFinishTraining(text) && s.Training != nil && (collecting || mentionsTraining(text)):
		out.Intent = IntentTrainFinish
		reply, err := s.Training.Finish(ctx)
		if err != nil {
			r.logger.Error("save trained object", "error", err)
		}
		say(reply)

	case isCancelTraining(text) && s.Training != nil && (collecting || mentionsTraining(text)):
		out.Intent = IntentTrainCancel
		reply, err := s.Training.Cancel(ctx)
		if err != nil {
			r.logger.Warn("forget trained object", "error", err)
		}
		say(reply)

	case collecting && isSample(text):
		out.Intent = IntentTrainSample
		r.sample(ctx, s, say)

	case parseVoice(text) != voiceNone:
		out.Intent = IntentVoice
		say(r.voice(s, text, parseVoice(text)))

	case isResetConversation(text):
		out.Intent = IntentResetConversation
		if s.Conversation != nil {
			s.Conversation.Reset()
		}
		say("Okay, I've forgotten our conversation. Let's start fresh.")

	default:
		if reply, ok := r.tryMotion(ctx, s, text); ok {
			out.Intent = IntentMotion
			say(reply)
			r.remember(s, said, reply)
			break
		}
		out.Intent = IntentConversation
		say(r.converse(ctx, s, said))
	}

	r.logger.Info("routed", "intent", out.Intent, "text", text)
	return *out
}

// wakeGate applies the wake-word gate. It returns the text to continue with,
// or done when the utterance has been fully handled or dropped.
func (r *Router) wakeGate(s *Session, text string, out *Outcome, say func(string)) (string, bool) {
	if !s.WakeWordEnabled {
		return text, false
	}
	now := r.now()
	rest, found := stripWake(text, s.WakeWord)
	switch {
	case found && rest == "":
		s.WakeWordActive = true
		s.LastWake = now
		out.Intent = IntentWake
		say(Listening)
		return "", true

	case found:
		s.WakeWordActive = true
		s.LastWake = now
		return rest, false

	case !s.WakeWordActive:
		out.Intent = IntentDropped
		r.logger.Debug("dropped without wake word", "text", text)
		return "", true

	case now.Sub(s.LastWake) > s.WakeTimeout:
		s.WakeWordActive = false
		out.Intent = IntentSleep
		say(fmt.Sprintf("I haven't heard from you in a while, so I'm going back to sleep. Say %q to wake me.", s.WakeWord))
		return "", true
	}
	s.LastWake = now
	return text, false
}

func (r *Router) look(ctx context.Context, hint string) (vision.Identification, bool) {
	if r.identifier == nil {
		return vision.Identification{Description: "I can't look around right now because my vision isn't set up."}, false
	}
	id := r.identifier.Identify(ctx, hint)
	if !id.Camera.OK {
		if r.gate.ShouldAct(retry.ClassCamera, id.Camera.Signature) {
			r.logger.Warn("camera failed", "signature", id.Camera.Signature, "error", id.Camera.Err)
		}
	} else {
		r.gate.Succeeded(retry.ClassCamera)
	}
	if id.Err != nil {
		r.logger.Error("vision service failed", "error", id.Err)
	}
	return id, id.OK()
}

func (r *Router) identify(ctx context.Context, s *Session, text string, say func(string)) {
	say(Looking)
	id, ok := r.look(ctx, "")
	reply := id.Description
	if ok && r.matcher != nil {
		if name, found := r.matcher.Match(id.Description); found {
			reply = fmt.Sprintf("That looks like your %s.", name)
		}
	}
	say(reply)
	r.remember(s, text, reply)
}

func (r *Router) sample(ctx context.Context, s *Session, say func(string)) {
	id, ok := r.look(ctx, s.Training.Object())
	if !ok {
		say(id.Description)
		return
	}
	r.logger.Debug("training sample", "object", s.Training.Object(), "description", id.Description)
	say(s.Training.AddSample(id.Description))
}

func (r *Router) toggleWake(s *Session, enable bool, say func(string)) {
	if enable {
		s.WakeWordEnabled = true
		s.WakeWordActive = true
		s.LastWake = r.now()
		say(fmt.Sprintf("Wake word enabled. Say %q before talking to me.", s.WakeWord))
		return
	}
	s.WakeWordEnabled = false
	s.WakeWordActive = true
	say("Wake word disabled. I'll listen to everything you say.")
}

func (r *Router) voice(s *Session, text string, action voiceAction) string {
	v := &s.Voice
	switch action {
	case voiceList:
		ids := v.IDs()
		parts := make([]string, len(ids))
		for i, id := range ids {
			parts[i] = fmt.Sprintf("%s, %s", id, v.Available[id])
		}
		return "I can speak with these voices: " + strings.Join(parts, "; ") + "."

	case voiceFaster:
		if !v.adjust(SpeedStep) {
			return "I'm already speaking as fast as I can."
		}
		return fmt.Sprintf("Okay, I'll speak faster. My speed is now %.1f.", v.Speed)

	case voiceSlower:
		if !v.adjust(-SpeedStep) {
			return "I'm already speaking as slowly as I can."
		}
		return fmt.Sprintf("Okay, I'll speak slower. My speed is now %.1f.", v.Speed)

	case voiceReset:
		avail := v.Available
		*v = DefaultVoiceSettings()
		if len(avail) > 0 {
			v.Available = avail
		}
		return "I've reset my voice to the default settings."

	case voiceChange:
		ids := v.IDs()
		if len(ids) == 0 {
			return "I don't have any other voices."
		}
		next, ok := namedVoice(text, ids)
		if !ok {
			i := slices.Index(ids, v.VoiceID)
			next = ids[(i+1)%len(ids)]
		}
		v.VoiceID = next
		return fmt.Sprintf("Okay, I'm now using the %s voice, %s.", next, v.Available[next])
	}
	return ""
}

func (r *Router) tryMotion(ctx context.Context, s *Session, text string) (string, bool) {
	if !s.MotionEnabled || r.motion == nil {
		return "", false
	}
	return r.motion.Execute(ctx, text)
}

func (r *Router) converse(ctx context.Context, s *Session, text string) string {
	if r.llm == nil || s.Conversation == nil {
		return "I'm sorry, I can't hold a conversation right now because my language service isn't set up."
	}
	ctx, cancel := context.WithTimeout(ctx, r.chatTimeout)
	defer cancel()

	reply, err := s.Conversation.Respond(ctx, r.llm, text)
	if err != nil {
		r.logger.Error("conversation failed", "error", err)
		return Apology + " " + r.translator.TranslateError(errtext.API, err)
	}
	return reply
}

// remember records a handled exchange so later conversation has context.
func (r *Router) remember(s *Session, text, reply string) {
	if s.Conversation == nil {
		return
	}
	s.Conversation.AddUser(text)
	s.Conversation.AddAssistant(reply)
}
