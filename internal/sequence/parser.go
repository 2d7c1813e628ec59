package sequence

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Default classification limits.
const (
	DefaultMaxCommandLength = 1000
	DefaultMaxWaitSeconds   = 3600
	DefaultMaxCaptures      = 10
	DefaultParseBudget      = time.Second
)

// multizonePrefix marks a command whose base should fan out to every
// active zone, for example "og_multizone-scene 2".
const multizonePrefix = "og_multizone-"

// ParserConfig bounds the classifier. Zero values fall back to defaults.
type ParserConfig struct {
	// MaxCommandLength rejects commands longer than this many bytes.
	MaxCommandLength int

	// MaxWaitSeconds is the ceiling for wait durations.
	MaxWaitSeconds float64

	// MaxCaptures rejects commands whose parameter text splits into
	// more than this many fields.
	MaxCaptures int

	// ParseBudget is the wall-clock budget for classifying one command.
	ParseBudget time.Duration
}

// Parser classifies raw command strings into kinds with extracted
// payloads. Classification is deterministic: the same input always
// yields the same outcome.
//
// Matching is keyword-driven with hand-written scanning, so every step
// is linear in the input length and the wall-clock budget exists only
// as a hard backstop.
//
// Thread Safety:
//   - Parser is immutable after construction and safe for concurrent use.
type Parser struct {
	maxCommandLength int
	maxWaitSeconds   float64
	maxCaptures      int
	budget           time.Duration
}

// NewParser creates a parser with the given limits.
func NewParser(cfg ParserConfig) *Parser {
	if cfg.MaxCommandLength <= 0 {
		cfg.MaxCommandLength = DefaultMaxCommandLength
	}
	if cfg.MaxWaitSeconds <= 0 {
		cfg.MaxWaitSeconds = DefaultMaxWaitSeconds
	}
	if cfg.MaxCaptures <= 0 {
		cfg.MaxCaptures = DefaultMaxCaptures
	}
	if cfg.ParseBudget <= 0 {
		cfg.ParseBudget = DefaultParseBudget
	}
	return &Parser{
		maxCommandLength: cfg.MaxCommandLength,
		maxWaitSeconds:   cfg.MaxWaitSeconds,
		maxCaptures:      cfg.MaxCaptures,
		budget:           cfg.ParseBudget,
	}
}

// Classify determines the kind and payload of one raw command.
//
// Keywords are matched case-insensitively; payload text keeps its
// original case. Anything that matches no recognised form is a regular
// command, so classification never fails on unknown text, only on
// recognised forms with bad arguments.
//
// Parameters:
//   - command: Raw command text, leading and trailing whitespace ignored
//
// Returns:
//   - ValidationOutcome: Kind, payload and validity for the command
func (p *Parser) Classify(command string) ValidationOutcome {
	if len(command) > p.maxCommandLength {
		return invalid(KindUnknown, fmt.Sprintf("command exceeds %d bytes", p.maxCommandLength))
	}

	trimmed := strings.TrimSpace(command)
	if trimmed == "" {
		return invalid(KindUnknown, "empty command")
	}

	deadline := time.Now().Add(p.budget)
	lower := strings.ToLower(trimmed)

	switch {
	case lower == "else":
		return valid(KindElse, nil)
	case lower == "endif":
		return valid(KindEndIf, nil)
	}

	if overBudget(deadline) {
		return invalid(KindUnknown, "classification budget exceeded")
	}

	if rest, ok := keywordArg(trimmed, lower, "wait"); ok {
		return p.classifyWait(rest)
	}
	if rest, ok := keywordArg(trimmed, lower, "if"); ok {
		return p.classifyCondition(KindIf, "if", rest)
	}
	if rest, ok := keywordArg(trimmed, lower, "stop_if_not"); ok {
		return p.classifyCondition(KindStopIfNot, "stop_if_not", rest)
	}

	if overBudget(deadline) {
		return invalid(KindUnknown, "classification budget exceeded")
	}

	if strings.HasPrefix(lower, multizonePrefix) {
		base := strings.TrimSpace(trimmed[len(multizonePrefix):])
		if base == "" {
			return invalid(KindMultizone, "multizone command has no base command")
		}
		if err := p.checkCaptures(base); err != "" {
			return invalid(KindMultizone, err)
		}
		return valid(KindMultizone, map[string]any{PayloadBaseCommand: base})
	}
	if rest, ok := keywordArg(trimmed, lower, "multizone"); ok {
		if rest == "" {
			return invalid(KindMultizone, "multizone requires parameters")
		}
		if err := p.checkCaptures(rest); err != "" {
			return invalid(KindMultizone, err)
		}
		return valid(KindMultizone, map[string]any{PayloadParams: rest})
	}

	if overBudget(deadline) {
		return invalid(KindUnknown, "classification budget exceeded")
	}

	if rest, ok := keywordArg(trimmed, lower, "sequence"); ok {
		if rest == "" {
			return invalid(KindSequenceRef, "sequence reference has no name")
		}
		return valid(KindSequenceRef, map[string]any{PayloadSequenceName: rest})
	}
	if rest, ok := keywordArg(trimmed, lower, "button"); ok {
		if rest == "" {
			return invalid(KindButtonRef, "button reference has no parameters")
		}
		if err := p.checkCaptures(rest); err != "" {
			return invalid(KindButtonRef, err)
		}
		return valid(KindButtonRef, map[string]any{PayloadButtonParams: rest})
	}
	if rest, ok := keywordArg(trimmed, lower, "tagged"); ok {
		if rest == "" {
			return invalid(KindTagged, "tagged command has no tag")
		}
		return valid(KindTagged, map[string]any{PayloadTag: rest})
	}

	if err := p.checkCaptures(trimmed); err != "" {
		return invalid(KindRegular, err)
	}
	return valid(KindRegular, map[string]any{PayloadCommand: trimmed})
}

// MaxWaitSeconds returns the configured wait ceiling.
func (p *Parser) MaxWaitSeconds() float64 {
	return p.maxWaitSeconds
}

func (p *Parser) classifyWait(arg string) ValidationOutcome {
	if arg == "" {
		return invalid(KindWait, "wait requires a duration in seconds")
	}
	if strings.ContainsAny(arg, " \t") {
		return invalid(KindWait, "wait takes a single numeric argument")
	}
	if !plainDecimal(arg) {
		return invalid(KindWait, fmt.Sprintf("invalid wait duration %q", arg))
	}
	seconds, err := strconv.ParseFloat(arg, 64)
	if err != nil {
		return invalid(KindWait, fmt.Sprintf("invalid wait duration %q", arg))
	}
	if seconds > p.maxWaitSeconds {
		return invalid(KindWait, fmt.Sprintf("wait duration %g exceeds %g seconds", seconds, p.maxWaitSeconds))
	}
	return valid(KindWait, map[string]any{PayloadWaitTime: seconds})
}

func (p *Parser) classifyCondition(kind CommandKind, keyword, arg string) ValidationOutcome {
	if arg == "" {
		return invalid(kind, keyword+" requires a condition")
	}
	return valid(kind, map[string]any{PayloadCondition: arg})
}

// plainDecimal matches digits with an optional fractional part.
// strconv.ParseFloat alone also accepts exponent, hex and nan/inf
// spellings, none of which are a wait duration.
func plainDecimal(s string) bool {
	intPart, fracPart, dotted := strings.Cut(s, ".")
	if intPart == "" || !allDigits(intPart) {
		return false
	}
	if dotted && (fracPart == "" || !allDigits(fracPart)) {
		return false
	}
	return true
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// checkCaptures bounds how many fields a parameter segment may split into.
func (p *Parser) checkCaptures(text string) string {
	if len(strings.Fields(text)) > p.maxCaptures {
		return fmt.Sprintf("too many parameter groups (limit %d)", p.maxCaptures)
	}
	return ""
}

// keywordArg matches "<keyword> <rest>" case-insensitively and returns
// the trimmed rest. A bare keyword matches with an empty rest.
func keywordArg(trimmed, lower, keyword string) (string, bool) {
	if lower == keyword {
		return "", true
	}
	if strings.HasPrefix(lower, keyword+" ") || strings.HasPrefix(lower, keyword+"\t") {
		return strings.TrimSpace(trimmed[len(keyword):]), true
	}
	return "", false
}

func overBudget(deadline time.Time) bool {
	return time.Now().After(deadline)
}

func valid(kind CommandKind, payload map[string]any) ValidationOutcome {
	return ValidationOutcome{Valid: true, Kind: kind, Payload: payload}
}

func invalid(kind CommandKind, reason string) ValidationOutcome {
	return ValidationOutcome{Valid: false, Kind: kind, Err: reason}
}
