package stt

import "strings"

// Whisper hallucinates these on silence or background noise.
var noisePatterns = []string{
	"thank you",
	"thanks for watching",
	"subscribe",
	"[music]",
	"[applause]",
	"...",
	"hmm",
	"uh",
	"um",
	"you",
}

// IsNoise reports whether text looks like a transcription of silence rather
// than speech. Only short transcripts are considered.
func IsNoise(text string) bool {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return true
	}
	if len(trimmed) >= 20 {
		return false
	}
	lower := strings.ToLower(strings.Trim(trimmed, ".!? "))
	if lower == "" {
		return true
	}
	for _, pattern := range noisePatterns {
		if lower == pattern || (len(pattern) > 3 && strings.Contains(lower, pattern)) {
			return true
		}
	}
	return false
}
