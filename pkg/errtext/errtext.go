// Package errtext turns technical error messages into one short sentence the
// robot can say out loud. Rules are regular expressions grouped by context;
// the context's own rules are tried first, then the general rules, then a
// generic fallback.
package errtext

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"sync"
)

// Context names the subsystem an error came from.
type Context string

const (
	General    Context = "general"
	Camera     Context = "camera"
	Microphone Context = "microphone"
	Speaker    Context = "speaker"
	Network    Context = "network"
	API        Context = "api"
	Movement   Context = "movement"
	Vision     Context = "vision"
	Speech     Context = "speech"
	Hardware   Context = "hardware"
)

// Severity is informational only; it is logged with each match.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Messages returned when nothing matches.
const (
	Unknown  = "An unknown error occurred."
	Fallback = "I encountered a technical issue that prevented me from completing the task."
)

// Rule maps a pattern to a spoken explanation.
type Rule struct {
	Pattern  *regexp.Regexp
	Message  string
	Severity Severity
}

// Translator holds rule tables and a cache of earlier translations.
// It is safe for concurrent use.
type Translator struct {
	mu     sync.Mutex
	rules  map[Context][]Rule
	cache  map[string]string
	logger *slog.Logger
}

// New creates a Translator loaded with the built-in rules.
func New(logger *slog.Logger) *Translator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Translator{
		rules:  builtinRules(),
		cache:  make(map[string]string),
		logger: logger.With("component", "errtext"),
	}
}

// Translate returns a spoken explanation for msg in context ctx.
func (t *Translator) Translate(ctx Context, msg string) string {
	if strings.TrimSpace(msg) == "" {
		return Unknown
	}
	norm := Normalize(msg)
	key := string(ctx) + ":" + norm

	t.mu.Lock()
	defer t.mu.Unlock()

	if out, ok := t.cache[key]; ok {
		return out
	}

	out := Fallback
	if r, ok := t.match(ctx, norm); ok {
		t.logger.Debug("translated error", "context", ctx, "severity", r.Severity, "pattern", r.Pattern.String())
		out = r.Message
	}
	t.cache[key] = out
	return out
}

// TranslateError is Translate for an error value; nil yields "".
func (t *Translator) TranslateError(ctx Context, err error) string {
	if err == nil {
		return ""
	}
	return t.Translate(ctx, err.Error())
}

func (t *Translator) match(ctx Context, norm string) (Rule, bool) {
	for _, r := range t.rules[ctx] {
		if r.Pattern.MatchString(norm) {
			return r, true
		}
	}
	if ctx == General {
		return Rule{}, false
	}
	for _, r := range t.rules[General] {
		if r.Pattern.MatchString(norm) {
			return r, true
		}
	}
	return Rule{}, false
}

// AddRule appends a custom rule to ctx and clears the cache. The pattern is
// matched case-insensitively.
func (t *Translator) AddRule(ctx Context, pattern, message string, sev Severity) error {
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return fmt.Errorf("errtext: compile %q: %w", pattern, err)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rules[ctx] = append(t.rules[ctx], Rule{Pattern: re, Message: message, Severity: sev})
	t.cache = make(map[string]string)
	return nil
}

var (
	spaceRe     = regexp.MustCompile(`\s+`)
	prefixRe    = regexp.MustCompile(`^(error|warning|fatal|exception|critical):\s*`)
	timestampRe = regexp.MustCompile(`\[\d{4}-\d{2}-\d{2}.*?\]`)
	tagRe       = regexp.MustCompile(`\[\w+\]`)
	pathRe      = regexp.MustCompile(`(/\w+)+/\w+\.\w+`)
	lineRe      = regexp.MustCompile(`line \d+`)
	codeRe      = regexp.MustCompile(`error code: \w+`)
)

// Normalize lowercases msg and strips timestamps, paths, line numbers and
// error codes so equivalent messages share a cache entry.
func Normalize(msg string) string {
	s := strings.ToLower(msg)
	s = spaceRe.ReplaceAllString(s, " ")
	s = prefixRe.ReplaceAllString(s, "")
	s = timestampRe.ReplaceAllString(s, "")
	s = tagRe.ReplaceAllString(s, "")
	s = pathRe.ReplaceAllString(s, "FILE")
	s = lineRe.ReplaceAllString(s, "LINE")
	s = codeRe.ReplaceAllString(s, "ERROR_CODE")
	return strings.TrimSpace(s)
}
