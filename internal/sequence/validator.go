package sequence

import "fmt"

// DefaultMaxSequenceLength bounds how many commands one sequence may hold.
const DefaultMaxSequenceLength = 10000

// Validator checks individual commands and whole sequences without
// executing anything.
//
// Per-command outcomes are cached by command text: classification
// depends only on the text, so a cached outcome never goes stale.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
type Validator struct {
	parser            *Parser
	maxSequenceLength int
	cache             *resultCache
}

// NewValidator creates a validator on top of the given parser.
func NewValidator(parser *Parser, maxSequenceLength, cacheSize int) *Validator {
	if maxSequenceLength < 1 {
		maxSequenceLength = DefaultMaxSequenceLength
	}
	return &Validator{
		parser:            parser,
		maxSequenceLength: maxSequenceLength,
		cache:             newResultCache(cacheSize),
	}
}

// ValidateCommand classifies one command, serving repeats from cache.
func (v *Validator) ValidateCommand(command string) ValidationOutcome {
	if cached, ok := v.cache.get(command); ok {
		return cached.(ValidationOutcome)
	}
	outcome := v.parser.Classify(command)
	v.cache.put(command, outcome, nil)
	return outcome
}

// ValidateSequence checks a command list for per-command validity and
// balanced conditional structure.
//
// Error messages index commands 1-based. An endif with no open block
// reports its own position; an if left open reports the position where
// the block started.
//
// Parameters:
//   - commands: Command list to check
//
// Returns:
//   - bool: True when the sequence is executable
//   - []string: One message per problem found, empty when valid
func (v *Validator) ValidateSequence(commands []string) (bool, []string) {
	var errs []string

	if len(commands) == 0 {
		return false, []string{"sequence is empty"}
	}
	if len(commands) > v.maxSequenceLength {
		return false, []string{fmt.Sprintf("sequence has %d commands (limit %d)", len(commands), v.maxSequenceLength)}
	}

	// Indices of commands that opened still-unclosed blocks.
	var openIfs []int

	for i, command := range commands {
		index := i + 1
		outcome := v.ValidateCommand(command)
		if !outcome.Valid {
			errs = append(errs, fmt.Sprintf("command %d: %s", index, outcome.Err))
			continue
		}

		switch outcome.Kind {
		case KindIf:
			openIfs = append(openIfs, index)
		case KindElse:
			if len(openIfs) == 0 {
				errs = append(errs, fmt.Sprintf("command %d: 'else' without matching 'if'", index))
			}
		case KindEndIf:
			if len(openIfs) == 0 {
				errs = append(errs, fmt.Sprintf("command %d: 'endif' without matching 'if'", index))
			} else {
				openIfs = openIfs[:len(openIfs)-1]
			}
		}
	}

	for _, index := range openIfs {
		errs = append(errs, fmt.Sprintf("unclosed conditional starting at index %d", index))
	}

	return len(errs) == 0, errs
}

// Stats returns the per-command outcome cache counters.
func (v *Validator) Stats() CacheStats {
	return v.cache.stats()
}
