// Package camera grabs single frames from a USB camera through OpenCV.
package camera

import (
	"fmt"
	"time"
)

// Config holds all camera configuration parameters.
// These can be modified via the dashboard API at runtime.
type Config struct {
	// Candidates are the device indexes tried in order (/dev/video<N>).
	Candidates []int `json:"candidates"`

	// === Resolution ===
	Width   int `json:"width"`   // Frame width in pixels
	Height  int `json:"height"`  // Frame height in pixels
	Quality int `json:"quality"` // JPEG quality 1-100

	// ReadTimeout bounds a single frame read.
	ReadTimeout time.Duration `json:"read_timeout"`

	// WarmupFrames are read and discarded after opening, since the first
	// frames from many USB cameras are dark or stale.
	WarmupFrames int `json:"warmup_frames"`
}

// DefaultConfig returns the standard 640x480 configuration.
func DefaultConfig() Config {
	return Config{
		Candidates:   []int{0, 1, 2},
		Width:        640,
		Height:       480,
		Quality:      85,
		ReadTimeout:  2 * time.Second,
		WarmupFrames: 1,
	}
}

// Validate checks if the config values are within valid ranges.
// Returns a list of validation errors, or nil if valid.
func (c *Config) Validate() []string {
	var errors []string

	if len(c.Candidates) == 0 {
		errors = append(errors, "at least one camera candidate is required")
	}
	for _, idx := range c.Candidates {
		if idx < 0 {
			errors = append(errors, fmt.Sprintf("invalid camera index %d", idx))
		}
	}
	if c.Width < 160 || c.Width > 3840 {
		errors = append(errors, "width must be between 160 and 3840")
	}
	if c.Height < 120 || c.Height > 2160 {
		errors = append(errors, "height must be between 120 and 2160")
	}
	if c.Quality < 1 || c.Quality > 100 {
		errors = append(errors, "quality must be between 1 and 100")
	}
	if c.ReadTimeout <= 0 {
		errors = append(errors, "read_timeout must be positive")
	}
	if c.WarmupFrames < 0 {
		errors = append(errors, "warmup_frames must not be negative")
	}

	return errors
}
