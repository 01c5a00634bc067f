package tts

import "slices"

// OpenAI voice options
const (
	VoiceAlloy   = "alloy"
	VoiceEcho    = "echo"
	VoiceFable   = "fable"
	VoiceOnyx    = "onyx"
	VoiceNova    = "nova"
	VoiceShimmer = "shimmer"
)

// Voices maps each OpenAI voice to a short spoken description.
var Voices = map[string]string{
	VoiceAlloy:   "a neutral, balanced voice",
	VoiceEcho:    "a warm male voice",
	VoiceFable:   "a British storyteller voice",
	VoiceOnyx:    "a deep male voice",
	VoiceNova:    "a bright female voice",
	VoiceShimmer: "a soft female voice",
}

// VoiceIDs returns the voice ids in a stable order.
func VoiceIDs() []string {
	ids := make([]string, 0, len(Voices))
	for id := range Voices {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// espeakVoices maps OpenAI voices onto espeak variants so the fallback
// keeps roughly the same character.
var espeakVoices = map[string]string{
	VoiceAlloy:   "en",
	VoiceEcho:    "en+m3",
	VoiceFable:   "en-gb",
	VoiceOnyx:    "en+m1",
	VoiceNova:    "en+f3",
	VoiceShimmer: "en+f2",
}
