// Package config loads go-ainex configuration from defaults, an optional YAML
// file and environment variables, in that order of precedence (later wins).
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the robot voice interface.
// Flag parsing is done in cmd/ainex; this struct is data only.
type Config struct {
	Simulation bool          `yaml:"simulation"`
	OpenAIKey  string        `yaml:"-"`
	LockDir    string        `yaml:"lock_dir"`
	Log        LogConfig     `yaml:"log"`
	Audio      AudioConfig   `yaml:"audio"`
	Camera     CameraConfig  `yaml:"camera"`
	WakeWord   WakeConfig    `yaml:"wake_word"`
	Voice      VoiceConfig   `yaml:"voice"`
	Models     ModelConfig   `yaml:"models"`
	Motion     MotionConfig  `yaml:"motion"`
	Storage    StorageConfig `yaml:"storage"`
	Web        WebConfig     `yaml:"web"`
}

// LogConfig controls logging output.
type LogConfig struct {
	Level string `yaml:"level"`
	Dir   string `yaml:"dir"` // empty disables the log file
}

// AudioConfig describes the ALSA capture and playback devices.
type AudioConfig struct {
	MicrophoneDevice string `yaml:"microphone_device"`
	SpeakerDevice    string `yaml:"speaker_device"`
	SampleRate       int    `yaml:"sample_rate"`
	RecordSeconds    int    `yaml:"record_seconds"`
	SimInputFile     string `yaml:"sim_input_file"`
}

// CameraConfig describes camera discovery.
type CameraConfig struct {
	Candidates    []int `yaml:"candidates"`
	ReadTimeoutMs int   `yaml:"read_timeout_ms"`
	Width         int   `yaml:"width"`
	Height        int   `yaml:"height"`
}

// WakeConfig controls wake-word gating.
type WakeConfig struct {
	Word           string `yaml:"word"`
	Enabled        bool   `yaml:"enabled"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// VoiceConfig holds default speech synthesis settings.
type VoiceConfig struct {
	VoiceID string  `yaml:"voice_id"`
	Speed   float64 `yaml:"speed"`
}

// ModelConfig names the remote models.
type ModelConfig struct {
	BaseURL     string `yaml:"base_url"`
	Chat        string `yaml:"chat"`
	Vision      string `yaml:"vision"`
	Transcribe  string `yaml:"transcribe"`
	Speech      string `yaml:"speech"`
	TimeoutSecs int    `yaml:"timeout_seconds"`
}

// MotionConfig controls the motion middleware integration.
type MotionConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Broker   string `yaml:"broker"`
	ClientID string `yaml:"client_id"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// StorageConfig locates persistent data.
type StorageConfig struct {
	DataDir string `yaml:"data_dir"`
}

// WebConfig controls the dashboard.
type WebConfig struct {
	Enabled bool   `yaml:"enabled"`
	Port    string `yaml:"port"`
}

// Default returns the configuration used when nothing is overridden.
func Default() Config {
	tmp := os.TempDir()
	return Config{
		Simulation: true,
		LockDir:    filepath.Join(tmp, "ainex"),
		Log:        LogConfig{Level: "info"},
		Audio: AudioConfig{
			MicrophoneDevice: "plughw:3,0",
			SpeakerDevice:    "plughw:2,0",
			SampleRate:       44100,
			RecordSeconds:    5,
			SimInputFile:     filepath.Join(tmp, "robot_sim_input.txt"),
		},
		Camera: CameraConfig{
			Candidates:    []int{0, 1, 2},
			ReadTimeoutMs: 2000,
			Width:         640,
			Height:        480,
		},
		WakeWord: WakeConfig{
			Word:           "beta",
			Enabled:        true,
			TimeoutSeconds: 30,
		},
		Voice: VoiceConfig{
			VoiceID: "alloy",
			Speed:   1.0,
		},
		Models: ModelConfig{
			BaseURL:     "https://api.openai.com/v1",
			Chat:        "gpt-4o",
			Vision:      "gpt-4o",
			Transcribe:  "whisper-1",
			Speech:      "tts-1",
			TimeoutSecs: 30,
		},
		Motion: MotionConfig{
			Enabled:  true,
			Broker:   "localhost:1883",
			ClientID: "ainex-voice",
		},
		Storage: StorageConfig{DataDir: defaultDataDir()},
		Web:     WebConfig{Enabled: false, Port: "8080"},
	}
}

func defaultDataDir() string {
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".ainex")
	}
	return filepath.Join(os.TempDir(), "ainex-data")
}

// Load builds a Config from defaults, the YAML file at path (optional; a
// missing file is not an error) and environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return Config{}, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	cfg.applyEnv(os.Getenv)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// applyEnv overrides values from the environment. getenv is injectable for tests.
func (c *Config) applyEnv(getenv func(string) string) {
	c.OpenAIKey = getenv("OPENAI_API_KEY")

	if v := getenv("AINEX_SIMULATION"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Simulation = b
		}
	}
	if v := getenv("AINEX_LOG_LEVEL"); v != "" {
		c.Log.Level = strings.ToLower(v)
	}
	if v := getenv("AINEX_MIC_DEVICE"); v != "" {
		c.Audio.MicrophoneDevice = v
	}
	if v := getenv("AINEX_SPEAKER_DEVICE"); v != "" {
		c.Audio.SpeakerDevice = v
	}
	if v := getenv("AINEX_WAKE_WORD"); v != "" {
		c.WakeWord.Word = strings.ToLower(v)
	}
	if v := getenv("AINEX_MQTT_BROKER"); v != "" {
		c.Motion.Broker = v
	}
	if v := getenv("AINEX_DATA_DIR"); v != "" {
		c.Storage.DataDir = v
	}
	if v := getenv("AINEX_WEB_PORT"); v != "" {
		c.Web.Port = v
		c.Web.Enabled = true
	}
}

// Validate checks that values are within usable ranges.
func (c *Config) Validate() error {
	var errs []error
	if c.Audio.RecordSeconds <= 0 {
		errs = append(errs, fmt.Errorf("audio.record_seconds must be positive, got %d", c.Audio.RecordSeconds))
	}
	if c.Audio.SampleRate <= 0 {
		errs = append(errs, fmt.Errorf("audio.sample_rate must be positive, got %d", c.Audio.SampleRate))
	}
	if c.WakeWord.Enabled && strings.TrimSpace(c.WakeWord.Word) == "" {
		errs = append(errs, errors.New("wake_word.word is required when wake word is enabled"))
	}
	if c.WakeWord.TimeoutSeconds <= 0 {
		errs = append(errs, fmt.Errorf("wake_word.timeout_seconds must be positive, got %d", c.WakeWord.TimeoutSeconds))
	}
	if c.Voice.Speed < 0.5 || c.Voice.Speed > 1.5 {
		errs = append(errs, fmt.Errorf("voice.speed must be between 0.5 and 1.5, got %.2f", c.Voice.Speed))
	}
	if len(c.Camera.Candidates) == 0 {
		errs = append(errs, errors.New("camera.candidates must not be empty"))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
