package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ainex.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaults(t *testing.T) {
	cfg := Default()

	if !cfg.Simulation {
		t.Error("simulation should default to enabled")
	}
	if cfg.WakeWord.Word != "beta" || cfg.WakeWord.TimeoutSeconds != 30 {
		t.Errorf("wake word defaults = %+v", cfg.WakeWord)
	}
	if cfg.Audio.RecordSeconds != 5 || cfg.Audio.SampleRate != 44100 {
		t.Errorf("audio defaults = %+v", cfg.Audio)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("missing file should not fail: %v", err)
	}
	if cfg.Models.Chat != "gpt-4o" {
		t.Errorf("Models.Chat = %q", cfg.Models.Chat)
	}
}

func TestLoadYAML(t *testing.T) {
	path := writeTempConfig(t, `
simulation: false
wake_word:
  word: jarvis
  timeout_seconds: 10
audio:
  microphone_device: hw:1,0
camera:
  candidates: [2]
motion:
  enabled: false
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Simulation {
		t.Error("simulation should be disabled by file")
	}
	if cfg.WakeWord.Word != "jarvis" || cfg.WakeWord.TimeoutSeconds != 10 {
		t.Errorf("wake word = %+v", cfg.WakeWord)
	}
	if cfg.Audio.MicrophoneDevice != "hw:1,0" {
		t.Errorf("mic device = %q", cfg.Audio.MicrophoneDevice)
	}
	// Unset keys keep defaults.
	if cfg.Audio.SpeakerDevice != "plughw:2,0" {
		t.Errorf("speaker device = %q", cfg.Audio.SpeakerDevice)
	}
	if len(cfg.Camera.Candidates) != 1 || cfg.Camera.Candidates[0] != 2 {
		t.Errorf("camera candidates = %v", cfg.Camera.Candidates)
	}
	if cfg.Motion.Enabled {
		t.Error("motion should be disabled by file")
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	path := writeTempConfig(t, "wake_word: [unterminated")
	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"OPENAI_API_KEY":    "sk-test",
		"AINEX_SIMULATION":  "false",
		"AINEX_WAKE_WORD":   "Robot",
		"AINEX_WEB_PORT":    "9090",
		"AINEX_MQTT_BROKER": "broker:1883",
	}
	cfg := Default()
	cfg.applyEnv(func(k string) string { return env[k] })

	if cfg.OpenAIKey != "sk-test" {
		t.Errorf("OpenAIKey = %q", cfg.OpenAIKey)
	}
	if cfg.Simulation {
		t.Error("AINEX_SIMULATION=false should disable simulation")
	}
	if cfg.WakeWord.Word != "robot" {
		t.Errorf("wake word should be lowercased, got %q", cfg.WakeWord.Word)
	}
	if !cfg.Web.Enabled || cfg.Web.Port != "9090" {
		t.Errorf("web = %+v", cfg.Web)
	}
	if cfg.Motion.Broker != "broker:1883" {
		t.Errorf("broker = %q", cfg.Motion.Broker)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero record seconds", func(c *Config) { c.Audio.RecordSeconds = 0 }},
		{"empty wake word", func(c *Config) { c.WakeWord.Word = " " }},
		{"speed too high", func(c *Config) { c.Voice.Speed = 2 }},
		{"no camera candidates", func(c *Config) { c.Camera.Candidates = nil }},
		{"zero wake timeout", func(c *Config) { c.WakeWord.TimeoutSeconds = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
