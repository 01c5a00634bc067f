// Package audioio records and plays short audio clips through the ALSA
// command-line tools.
//
// Capture and playback shell out to arecord and aplay so the physical device
// is shared with any helper processes on the robot the same way. The package
// also provides WAV encoding for clips and a mock backend for tests.
package audioio

import (
	"fmt"
	"time"
)

// Config holds audio configuration.
type Config struct {
	// CaptureDevice is the ALSA capture device, e.g. "plughw:3,0".
	CaptureDevice string `yaml:"capture_device" json:"capture_device"`

	// PlaybackDevice is the ALSA playback device, e.g. "plughw:2,0".
	PlaybackDevice string `yaml:"playback_device" json:"playback_device"`

	// SampleRate is the capture sample rate in Hz.
	SampleRate int `yaml:"sample_rate" json:"sample_rate"`

	// Channels is the number of capture channels.
	// Default: 1 (mono)
	Channels int `yaml:"channels" json:"channels"`

	// RecordCommand and PlayCommand name the binaries to run.
	// Default: "arecord" and "aplay"
	RecordCommand string `yaml:"record_command" json:"record_command"`
	PlayCommand   string `yaml:"play_command" json:"play_command"`

	// Grace is added to the clip duration to bound a recording command that
	// does not exit on its own.
	Grace time.Duration `yaml:"grace" json:"grace"`
}

// DefaultConfig returns a Config with the robot's device layout.
func DefaultConfig() Config {
	return Config{
		CaptureDevice:  "plughw:3,0",
		PlaybackDevice: "plughw:2,0",
		SampleRate:     44100,
		Channels:       1,
		RecordCommand:  "arecord",
		PlayCommand:    "aplay",
		Grace:          2 * time.Second,
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.SampleRate <= 0 {
		return fmt.Errorf("sample_rate must be positive, got %d", c.SampleRate)
	}
	if c.Channels <= 0 || c.Channels > 2 {
		return fmt.Errorf("channels must be 1 or 2, got %d", c.Channels)
	}
	if c.RecordCommand == "" || c.PlayCommand == "" {
		return fmt.Errorf("record and play commands are required")
	}
	return nil
}
