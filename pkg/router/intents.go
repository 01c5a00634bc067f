package router

import (
	"regexp"
	"strings"
)

// Intent names the branch that handled an utterance.
type Intent string

const (
	IntentDropped           Intent = "dropped"
	IntentWake              Intent = "wake"
	IntentSleep             Intent = "sleep"
	IntentIdentify          Intent = "identify"
	IntentWakeToggle        Intent = "wake_toggle"
	IntentTrainStart        Intent = "train_start"
	IntentTrainFinish       Intent = "train_finish"
	IntentTrainCancel       Intent = "train_cancel"
	IntentTrainSample       Intent = "train_sample"
	IntentVoice             Intent = "voice"
	IntentResetConversation Intent = "reset_conversation"
	IntentMotion            Intent = "motion"
	IntentConversation      Intent = "conversation"
)

var (
	identifyPhrases = []string{
		"what do you see",
		"what is this",
		"identify this",
		"what object",
		"recognize this",
		"look at this",
		"what's in front of you",
		"can you see",
		"what am i holding",
	}
	anglePhrases = []string{"another angle", "different angle", "more angles"}

	enableWakePhrases = []string{
		"enable wake word", "turn on wake word", "use wake word", "use the wake word", "wake word on",
	}
	disableWakePhrases = []string{
		"disable wake word", "turn off wake word", "stop using wake word", "stop using the wake word",
		"no wake word", "wake word off",
	}

	finishTrainingPhrases = []string{
		"finished training", "finish training", "done training", "training complete", "that's enough",
	}
	cancelTrainingPhrases = []string{
		"cancel training", "stop training", "abort training", "forget this object",
	}

	listVoicePhrases   = []string{"list voices", "what voices", "which voices", "available voices", "list your voices"}
	fasterPhrases      = []string{"speak faster", "talk faster", "speed up", "faster please"}
	slowerPhrases      = []string{"speak slower", "talk slower", "slow down", "slower please"}
	resetVoicePhrases  = []string{"reset voice", "reset your voice", "default voice", "normal voice", "normal speed"}
	changeVoicePhrases = []string{"change voice", "change your voice", "switch voice", "different voice", "another voice", "use voice", "voice to"}

	resetConversationPhrases = []string{
		"reset conversation", "reset our conversation", "forget our conversation", "clear conversation", "start over",
	}
)

func containsAny(text string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(text, p) {
			return true
		}
	}
	return false
}

// normalize lowercases text, collapses whitespace and trims the trailing
// punctuation transcripts tend to add.
func normalize(text string) string {
	t := strings.Join(strings.Fields(strings.ToLower(text)), " ")
	return strings.TrimRight(t, ".,!?;: ")
}

// asSaid returns the part of raw that text, a suffix of its normalized form,
// came from, keeping the speaker's capitalisation and punctuation.
func asSaid(raw, normalized, text string) string {
	off := len(normalized) - len(text)
	if off < 0 || len(strings.ToLower(raw)) != len(raw) {
		return text
	}
	return strings.TrimSpace(raw[off:])
}

// stripWake reports whether text begins with the wake word as a whole word.
// rest is what follows it, with separating punctuation removed.
func stripWake(text, wake string) (rest string, found bool) {
	wake = strings.ToLower(strings.TrimSpace(wake))
	if wake == "" || !strings.HasPrefix(text, wake) {
		return "", false
	}
	rest = text[len(wake):]
	if rest == "" {
		return "", true
	}
	if !strings.ContainsRune(" ,.!?;:", rune(rest[0])) {
		return "", false
	}
	return strings.TrimLeft(rest, " ,.!?;:"), true
}

func isIdentify(text string) bool { return containsAny(text, identifyPhrases) }

func isSample(text string) bool {
	return isIdentify(text) || containsAny(text, anglePhrases)
}

// wakeToggle returns +1 for enable, -1 for disable and 0 otherwise.
func wakeToggle(text string) int {
	switch {
	case containsAny(text, disableWakePhrases):
		return -1
	case containsAny(text, enableWakePhrases):
		return 1
	}
	return 0
}

func isTrainStart(text string) bool {
	return strings.Contains(text, "train") && strings.Contains(text, "object")
}

var trainObjectRe = regexp.MustCompile(`train(?:ing)?\s+(?:(?:the|an?|new)\s+)*object\s+(?:called\s+|named\s+)?(.*)$`)

// ParseTrainObject extracts the object name from "train object <name>".
func ParseTrainObject(text string) (string, bool) {
	m := trainObjectRe.FindStringSubmatch(normalize(text))
	if m == nil {
		return "", false
	}
	name := strings.TrimSpace(m[1])
	name = strings.TrimPrefix(name, "the ")
	name = strings.TrimPrefix(name, "a ")
	name = strings.TrimPrefix(name, "an ")
	name = strings.TrimSpace(name)
	return name, name != ""
}

func isFinishTraining(text string) bool { return containsAny(text, finishTrainingPhrases) }
func isCancelTraining(text string) bool { return containsAny(text, cancelTrainingPhrases) }

// isTrainingControl is true for "stop training the object" and the like,
// which also contain "train" and "object".
func isTrainingControl(text string) bool { return isFinishTraining(text) || isCancelTraining(text) }

// mentionsTraining lets explicit training phrases reach the session while it
// is idle, so the user hears that nothing is being trained. "that's enough"
// and "forget this object" stay ordinary speech.
func mentionsTraining(text string) bool { return strings.Contains(text, "training") }

type voiceAction int

const (
	voiceNone voiceAction = iota
	voiceList
	voiceFaster
	voiceSlower
	voiceReset
	voiceChange
)

func parseVoice(text string) voiceAction {
	switch {
	case containsAny(text, listVoicePhrases):
		return voiceList
	case containsAny(text, fasterPhrases):
		return voiceFaster
	case containsAny(text, slowerPhrases):
		return voiceSlower
	case containsAny(text, resetVoicePhrases):
		return voiceReset
	case containsAny(text, changeVoicePhrases):
		return voiceChange
	}
	return voiceNone
}

// namedVoice returns the first voice id that appears as a word in text.
func namedVoice(text string, ids []string) (string, bool) {
	words := strings.FieldsFunc(text, func(r rune) bool {
		return r == ' ' || r == ',' || r == '.' || r == '!' || r == '?' || r == '\''
	})
	for _, w := range words {
		for _, id := range ids {
			if w == id {
				return id, true
			}
		}
	}
	return "", false
}

func isResetConversation(text string) bool { return containsAny(text, resetConversationPhrases) }
