package device

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Lock marker defaults.
const (
	DefaultLockStale = 30 * time.Second
	DefaultLockPoll  = 50 * time.Millisecond
)

// ErrBusy is returned by Lock.Acquire when another holder keeps a fresh
// marker for the whole wait.
var ErrBusy = errors.New("device: resource busy")

// Lock is a file marker that keeps two recordings off the same physical
// device, including recordings started by helper processes. The marker holds
// the owner id and creation time; a marker older than the stale age is
// treated as abandoned and removed.
type Lock struct {
	path  string
	owner string
	stale time.Duration
	poll  time.Duration
	now   func() time.Time

	mu   sync.Mutex
	held bool
}

// LockOption configures a Lock.
type LockOption func(*Lock)

// WithStaleAge sets the age after which a marker is considered abandoned.
func WithStaleAge(d time.Duration) LockOption {
	return func(l *Lock) { l.stale = d }
}

// WithPollInterval sets how often a waiting Acquire retries.
func WithPollInterval(d time.Duration) LockOption {
	return func(l *Lock) { l.poll = d }
}

// WithLockClock sets the clock used for marker timestamps and staleness.
func WithLockClock(now func() time.Time) LockOption {
	return func(l *Lock) { l.now = now }
}

// NewLock returns a lock whose marker is <dir>/<key>.lock.
func NewLock(dir, key string, opts ...LockOption) *Lock {
	l := &Lock{
		path:  filepath.Join(dir, key+".lock"),
		owner: uuid.NewString(),
		stale: DefaultLockStale,
		poll:  DefaultLockPoll,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Path returns the marker file path.
func (l *Lock) Path() string { return l.path }

// Owner returns the id written into markers created by this lock.
func (l *Lock) Owner() string { return l.owner }

// Acquire creates the marker, waiting up to wait for a fresh foreign marker
// to go away. It returns ErrBusy when the wait runs out.
func (l *Lock) Acquire(ctx context.Context, wait time.Duration) error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("create lock dir: %w", err)
	}

	deadline := time.Now().Add(wait)
	for {
		err := l.tryCreate()
		if err == nil {
			return nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("create lock marker: %w", err)
		}
		if l.evictStale() {
			continue
		}
		if !time.Now().Before(deadline) {
			return ErrBusy
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(l.poll):
		}
	}
}

func (l *Lock) tryCreate() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.OpenFile(l.path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	_, werr := fmt.Fprintf(f, "%s\n%s\n", l.owner, l.now().UTC().Format(time.RFC3339Nano))
	cerr := f.Close()
	if err := errors.Join(werr, cerr); err != nil {
		os.Remove(l.path)
		return err
	}
	l.held = true
	return nil
}

// evictStale removes the marker if it is older than the stale age and
// reports whether it did.
func (l *Lock) evictStale() bool {
	data, err := os.ReadFile(l.path)
	if err != nil {
		// Gone between create and read: retry immediately.
		return errors.Is(err, fs.ErrNotExist)
	}
	created, ok := markerTime(data)
	if !ok {
		info, err := os.Stat(l.path)
		if err != nil {
			return errors.Is(err, fs.ErrNotExist)
		}
		created = info.ModTime()
	}
	if l.now().Sub(created) <= l.stale {
		return false
	}

	// Only remove the marker we judged; a new holder may have replaced it.
	current, err := os.ReadFile(l.path)
	if err != nil || !bytes.Equal(current, data) {
		return err != nil && errors.Is(err, fs.ErrNotExist)
	}
	return os.Remove(l.path) == nil
}

func markerTime(data []byte) (time.Time, bool) {
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) < 2 {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(lines[1]))
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func markerOwner(data []byte) string {
	owner, _, _ := strings.Cut(string(data), "\n")
	return strings.TrimSpace(owner)
}

// Release removes the marker if this lock created it.
func (l *Lock) Release() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.held {
		return nil
	}
	l.held = false

	data, err := os.ReadFile(l.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}
	if markerOwner(data) != l.owner {
		return nil
	}
	if err := os.Remove(l.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// Close removes any marker left by this lock.
func (l *Lock) Close() error {
	return l.Release()
}

func defaultLockDir() string {
	return filepath.Join(os.TempDir(), "ainex")
}
