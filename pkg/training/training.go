// Package training runs the spoken flow that teaches the robot a new object:
// start with a name, collect descriptions from a few angles, then finish
// (save) or cancel (forget). One object is trained at a time.
package training

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/teslashibe/go-ainex/pkg/objects"
)

// TargetSamples is how many samples are asked for before suggesting to finish.
const TargetSamples = 5

// NoActiveSession is said when finish, cancel or a sample arrives outside
// a training session.
const NoActiveSession = "There's no active training session. Say \"train object\" followed by a name to start one."

// State is the training state.
type State int

const (
	Idle State = iota
	Collecting
	Finished
	Canceled
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Collecting:
		return "collecting"
	case Finished:
		return "finished"
	case Canceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// Session is the training state machine over an object store.
type Session struct {
	mu     sync.Mutex
	store  *objects.Store
	state  State
	object string
	logger *slog.Logger
}

// New returns an idle session writing into store.
func New(store *objects.Store, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		store:  store,
		logger: logger.With("component", "training.session"),
	}
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Object returns the name being trained, or "" outside Collecting.
func (s *Session) Object() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.object
}

// Collecting reports whether a session is in progress.
func (s *Session) Collecting() bool {
	return s.State() == Collecting
}

// Start begins training name, clearing samples it already had. An unfinished
// session for another object is discarded first.
func (s *Session) Start(ctx context.Context, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "What should I call the object? Say \"train object\" followed by its name.", nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == Collecting {
		s.logger.Info("discarding unfinished training", "object", s.object)
		if err := s.store.Delete(ctx, s.object); err != nil {
			s.logger.Warn("discard unfinished object", "object", s.object, "error", err)
		}
	}

	s.object = s.store.Start(name)
	s.state = Collecting
	s.logger.Info("training started", "object", s.object)

	return fmt.Sprintf("Let's learn the %s. Hold it in front of me and say \"what do you see\". "+
		"I'd like to see it from a few different angles.", s.object), nil
}

// AddSample records one description of the object being trained.
func (s *Session) AddSample(description string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != Collecting {
		return NoActiveSession
	}
	n := s.store.Add(s.object, description)
	s.logger.Info("training sample added", "object", s.object, "samples", n)

	if n < TargetSamples {
		return fmt.Sprintf("Got it, that's %s of the %s. Show me another angle and say \"another angle\".",
			samples(n), s.object)
	}
	return fmt.Sprintf("I have %s of the %s, that should be enough. "+
		"Say \"finished training\" to save it, or show me another angle.", samples(n), s.object)
}

// Finish ends the session. Without samples the object is removed and the
// session counts as canceled.
func (s *Session) Finish(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != Collecting {
		return NoActiveSession, nil
	}
	name := s.object
	s.object = ""

	n, err := s.store.Commit(ctx, name)
	if n == 0 {
		s.state = Canceled
		s.logger.Info("training finished without samples", "object", name)
		return fmt.Sprintf("I didn't see the %s yet, so there was nothing to save. Training canceled.", name), err
	}

	s.state = Finished
	s.logger.Info("training finished", "object", name, "samples", n)
	return fmt.Sprintf("Training complete! I learned the %s from %s.", name, samples(n)), err
}

// Cancel ends the session and forgets the samples collected.
func (s *Session) Cancel(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != Collecting {
		return NoActiveSession, nil
	}
	name := s.object
	s.object = ""
	s.state = Canceled

	err := s.store.Delete(ctx, name)
	s.logger.Info("training canceled", "object", name)
	return fmt.Sprintf("Okay, I've stopped training the %s and forgotten it.", name), err
}

func samples(n int) string {
	if n == 1 {
		return "1 sample"
	}
	return fmt.Sprintf("%d samples", n)
}
