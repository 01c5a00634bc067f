package router

import (
	"maps"
	"math"
	"slices"
	"time"

	"github.com/teslashibe/go-ainex/pkg/conversation"
	"github.com/teslashibe/go-ainex/pkg/device"
	"github.com/teslashibe/go-ainex/pkg/training"
	"github.com/teslashibe/go-ainex/pkg/tts"
)

// Session defaults.
const (
	DefaultWakeWord    = "beta"
	DefaultWakeTimeout = 30 * time.Second
	DefaultVoice       = tts.VoiceAlloy
	DefaultSpeed       = 1.0
	SpeedStep          = 0.1
)

// VoiceSettings controls how replies sound.
type VoiceSettings struct {
	VoiceID   string
	Available map[string]string // voice id -> description
	Speed     float64
	Pitch     float64
}

// DefaultVoiceSettings returns the OpenAI voices at normal speed.
func DefaultVoiceSettings() VoiceSettings {
	return VoiceSettings{
		VoiceID:   DefaultVoice,
		Available: maps.Clone(tts.Voices),
		Speed:     DefaultSpeed,
		Pitch:     1.0,
	}
}

// Device converts the settings for device.Channel.Speak.
func (v VoiceSettings) Device() device.VoiceSettings {
	return device.VoiceSettings{VoiceID: v.VoiceID, Speed: v.Speed, Pitch: v.Pitch}
}

// IDs returns the available voice ids in sorted order.
func (v VoiceSettings) IDs() []string {
	return slices.Sorted(maps.Keys(v.Available))
}

// adjust changes speed by delta within [tts.MinSpeed, tts.MaxSpeed] and
// reports whether it changed.
func (v *VoiceSettings) adjust(delta float64) bool {
	next := math.Round((v.Speed+delta)*10) / 10
	next = min(max(next, tts.MinSpeed), tts.MaxSpeed)
	if next == v.Speed {
		return false
	}
	v.Speed = next
	return true
}

// Session is the state one conversation with the robot carries between
// utterances. It is owned by the main loop and mutated only by the Router.
type Session struct {
	WakeWord        string
	WakeWordEnabled bool
	WakeWordActive  bool
	LastWake        time.Time
	WakeTimeout     time.Duration

	Conversation *conversation.Context
	Training     *training.Session
	Voice        VoiceSettings

	MotionEnabled bool
}

// NewSession returns a session with the wake word enabled and inactive.
func NewSession(conv *conversation.Context, train *training.Session) *Session {
	return &Session{
		WakeWord:        DefaultWakeWord,
		WakeWordEnabled: true,
		WakeTimeout:     DefaultWakeTimeout,
		Conversation:    conv,
		Training:        train,
		Voice:           DefaultVoiceSettings(),
		MotionEnabled:   true,
	}
}
