package camera

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"
)

// Errors returned by Capture.
var (
	// ErrNoCamera means no candidate device could be opened.
	ErrNoCamera = errors.New("camera: no working camera found")

	// ErrReadTimeout means a frame read did not finish within ReadTimeout.
	ErrReadTimeout = errors.New("camera: frame read timed out")

	// ErrEmptyFrame means the device returned no image data.
	ErrEmptyFrame = errors.New("camera: empty frame")
)

// Frame is one JPEG-encoded image.
type Frame struct {
	JPEG     []byte
	Width    int
	Height   int
	Device   int
	Captured time.Time
}

// Device is an open camera.
type Device interface {
	// Read grabs one frame. It may block.
	Read() (Frame, error)
	Close() error
}

// Opener opens the camera at index with the given settings.
type Opener func(index int, cfg Config) (Device, error)

// Camera opens the first working candidate lazily and keeps it open
// between captures. A failed read triggers one reinitialisation.
type Camera struct {
	mu     sync.Mutex
	cfg    Config
	open   Opener
	exists func(index int) bool
	dev    Device
	index  int
	logger *slog.Logger
}

// Option configures a Camera.
type Option func(*Camera)

// WithOpener replaces the OpenCV opener, for tests.
func WithOpener(open Opener) Option {
	return func(c *Camera) { c.open = open }
}

// WithDeviceCheck replaces the /dev/video<N> existence check.
func WithDeviceCheck(exists func(index int) bool) Option {
	return func(c *Camera) { c.exists = exists }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Camera) { c.logger = logger }
}

// New creates a Camera. No device is opened until the first Capture.
func New(cfg Config, opts ...Option) (*Camera, error) {
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("validation failed: %v", errs)
	}
	c := &Camera{
		cfg:    cfg,
		open:   OpenCV,
		exists: videoNodeExists,
		index:  -1,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("component", "camera")
	return c, nil
}

// Config returns the current configuration.
func (c *Camera) Config() Config {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cfg
}

// SetConfig applies new settings. The open device is closed so the next
// Capture reopens it with the new resolution.
func (c *Camera) SetConfig(cfg Config) error {
	if errs := cfg.Validate(); len(errs) > 0 {
		return fmt.Errorf("validation failed: %v", errs)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cfg = cfg
	c.closeLocked()
	return nil
}

// Available reports whether any candidate device node exists right now.
// It does not open the device.
func (c *Camera) Available() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, idx := range c.cfg.Candidates {
		if c.exists(idx) {
			return true
		}
	}
	return false
}

// Capture returns one frame. On a failed or timed out read the device is
// closed, reopened, primed with a throwaway frame and read once more.
func (c *Camera) Capture(ctx context.Context) (Frame, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.dev == nil {
		if err := c.openLocked(ctx); err != nil {
			return Frame{}, err
		}
	}

	frame, err := c.readLocked(ctx)
	if err == nil {
		return frame, nil
	}
	if ctx.Err() != nil {
		return Frame{}, ctx.Err()
	}

	c.logger.Warn("camera read failed, reinitialising", "device", c.index, "error", err)
	c.closeLocked()
	if err := c.openLocked(ctx); err != nil {
		return Frame{}, err
	}

	frame, err = c.readLocked(ctx)
	if err != nil {
		c.closeLocked()
		return Frame{}, fmt.Errorf("read after reinit: %w", err)
	}
	return frame, nil
}

// Close releases the device. It is safe to call more than once.
func (c *Camera) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeLocked()
	return nil
}

// openLocked opens the first candidate that yields a frame.
func (c *Camera) openLocked(ctx context.Context) error {
	var errs []error
	for _, idx := range c.cfg.Candidates {
		if err := ctx.Err(); err != nil {
			return err
		}
		dev, err := c.open(idx, c.cfg)
		if err != nil {
			errs = append(errs, fmt.Errorf("open %d: %w", idx, err))
			continue
		}
		c.dev, c.index = dev, idx

		ok := true
		for i := 0; i < max(c.cfg.WarmupFrames, 1); i++ {
			if _, err := c.readLocked(ctx); err != nil {
				errs = append(errs, fmt.Errorf("test read %d: %w", idx, err))
				ok = false
				break
			}
		}
		if ok {
			c.logger.Info("camera opened", "device", idx, "width", c.cfg.Width, "height", c.cfg.Height)
			return nil
		}
		c.closeLocked()
	}
	return fmt.Errorf("%w: %w", ErrNoCamera, errors.Join(errs...))
}

type readResult struct {
	frame Frame
	err   error
}

// readLocked reads one frame with the configured timeout. A read that
// outlives the timeout leaves the device to be closed by its goroutine.
func (c *Camera) readLocked(ctx context.Context) (Frame, error) {
	dev := c.dev
	ch := make(chan readResult, 1)
	go func() {
		f, err := dev.Read()
		ch <- readResult{f, err}
	}()

	timer := time.NewTimer(c.cfg.ReadTimeout)
	defer timer.Stop()

	select {
	case r := <-ch:
		if r.err != nil {
			return Frame{}, r.err
		}
		if len(r.frame.JPEG) == 0 {
			return Frame{}, ErrEmptyFrame
		}
		r.frame.Device = c.index
		if r.frame.Captured.IsZero() {
			r.frame.Captured = time.Now()
		}
		return r.frame, nil
	case <-timer.C:
		c.abandon(dev, ch)
		return Frame{}, ErrReadTimeout
	case <-ctx.Done():
		c.abandon(dev, ch)
		return Frame{}, ctx.Err()
	}
}

// abandon detaches a device whose read is still in flight and closes it
// once the read returns.
func (c *Camera) abandon(dev Device, ch <-chan readResult) {
	if c.dev == dev {
		c.dev = nil
		c.index = -1
	}
	go func() {
		<-ch
		dev.Close()
	}()
}

func (c *Camera) closeLocked() {
	if c.dev != nil {
		c.dev.Close()
		c.dev = nil
		c.index = -1
	}
}

func videoNodeExists(index int) bool {
	_, err := os.Stat(fmt.Sprintf("/dev/video%d", index))
	return err == nil
}
