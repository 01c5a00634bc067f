// Package objects remembers objects the robot has been taught. Each object
// is a name plus the descriptions collected while training it; Match finds a
// trained object whose samples overlap a new description.
package objects

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// ErrEmptyObject is returned when saving an object without samples.
var ErrEmptyObject = errors.New("objects: object has no samples")

// Object is a trained object.
type Object struct {
	Name      string
	Samples   []string
	TrainedAt time.Time
}

// Repository persists finished objects.
type Repository interface {
	// Load returns every saved object in training order.
	Load(ctx context.Context) ([]Object, error)

	// Save replaces the object's samples. Objects without samples are refused.
	Save(ctx context.Context, obj Object) error

	// Delete removes the object. Deleting a missing object is not an error.
	Delete(ctx context.Context, name string) error

	Close() error
}

// Store holds trained objects in memory, in insertion order, and writes
// finished objects through to an optional Repository.
type Store struct {
	mu      sync.RWMutex
	order   []string
	samples map[string][]string
	trained map[string]time.Time

	repo   Repository
	logger *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithRepository sets the persistence backend.
func WithRepository(r Repository) Option {
	return func(s *Store) { s.repo = r }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// NewStore returns an empty store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		samples: make(map[string][]string),
		trained: make(map[string]time.Time),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "objects.store")
	return s
}

// Open returns a store preloaded from its repository.
func Open(ctx context.Context, opts ...Option) (*Store, error) {
	s := NewStore(opts...)
	if s.repo == nil {
		return s, nil
	}
	objs, err := s.repo.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load objects: %w", err)
	}
	for _, o := range objs {
		if len(o.Samples) == 0 {
			continue
		}
		s.order = append(s.order, o.Name)
		s.samples[o.Name] = append([]string(nil), o.Samples...)
		s.trained[o.Name] = o.TrainedAt
	}
	s.logger.Info("loaded trained objects", "count", len(s.order))
	return s, nil
}

func normalize(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}

// Start begins collecting samples for name, discarding any it had. An
// existing object keeps its position.
func (s *Store) Start(name string) string {
	name = normalize(name)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.samples[name]; !ok {
		s.order = append(s.order, name)
	}
	s.samples[name] = nil
	return name
}

// Add appends a sample and returns how many the object now has.
func (s *Store) Add(name, description string) int {
	name = normalize(name)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.samples[name]; !ok {
		s.order = append(s.order, name)
	}
	s.samples[name] = append(s.samples[name], description)
	return len(s.samples[name])
}

// Samples returns a copy of the object's samples.
func (s *Store) Samples(name string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.samples[normalize(name)]...)
}

// Count returns the number of samples for name.
func (s *Store) Count(name string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.samples[normalize(name)])
}

// Has reports whether name is present, even with zero samples.
func (s *Store) Has(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.samples[normalize(name)]
	return ok
}

// Names returns object names in insertion order.
func (s *Store) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.order...)
}

// Objects returns every object with at least one sample.
func (s *Store) Objects() []Object {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Object, 0, len(s.order))
	for _, name := range s.order {
		if len(s.samples[name]) == 0 {
			continue
		}
		out = append(out, Object{
			Name:      name,
			Samples:   append([]string(nil), s.samples[name]...),
			TrainedAt: s.trained[name],
		})
	}
	return out
}

// Len returns the number of objects.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// Delete removes name from memory and the repository.
func (s *Store) Delete(ctx context.Context, name string) error {
	name = normalize(name)
	s.mu.Lock()
	s.deleteLocked(name)
	s.mu.Unlock()

	if s.repo == nil {
		return nil
	}
	if err := s.repo.Delete(ctx, name); err != nil {
		return fmt.Errorf("delete %q: %w", name, err)
	}
	return nil
}

func (s *Store) deleteLocked(name string) {
	delete(s.samples, name)
	delete(s.trained, name)
	for i, n := range s.order {
		if n == name {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// Commit finishes name: an object with samples is saved, an empty one is
// removed. It reports how many samples were kept.
func (s *Store) Commit(ctx context.Context, name string) (int, error) {
	name = normalize(name)
	s.mu.Lock()
	samples := append([]string(nil), s.samples[name]...)
	if len(samples) == 0 {
		s.deleteLocked(name)
		s.mu.Unlock()
		if s.repo != nil {
			if err := s.repo.Delete(ctx, name); err != nil {
				return 0, fmt.Errorf("delete %q: %w", name, err)
			}
		}
		return 0, nil
	}
	now := time.Now()
	s.trained[name] = now
	s.mu.Unlock()

	if s.repo != nil {
		if err := s.repo.Save(ctx, Object{Name: name, Samples: samples, TrainedAt: now}); err != nil {
			return len(samples), fmt.Errorf("save %q: %w", name, err)
		}
	}
	s.logger.Info("trained object saved", "name", name, "samples", len(samples))
	return len(samples), nil
}

// Close closes the repository.
func (s *Store) Close() error {
	if s.repo == nil {
		return nil
	}
	return s.repo.Close()
}
