package sequence

import (
	"strconv"
	"strings"
)

// FlagProvider supplies flag values to conditional expressions.
// FlagStore satisfies it; tests use map-backed fakes.
type FlagProvider interface {
	GetFlag(name string) bool
}

// flagPrefix introduces a flag reference inside an expression.
const flagPrefix = "flag:"

// frame is one open conditional block.
type frame struct {
	// value is the branch's truth: commands run while it is true.
	value bool

	// parentSuppressed marks a block opened inside a suppressed branch.
	// Such a frame stays inert: else can flip value, but the block
	// never executes until the parent closes.
	parentSuppressed bool
}

// ConditionalContext tracks nested if/else/endif blocks during one run
// and evaluates their expressions against a flag provider.
//
// Suppression nests: while the innermost active branch is false, all
// commands are skipped, but conditional keywords are still processed so
// the block structure stays balanced. An if opened inside a suppressed
// branch pushes an inert frame without evaluating its expression.
//
// Thread Safety:
//   - Not safe for concurrent use. Each run owns its own context.
type ConditionalContext struct {
	frames []frame
	flags  FlagProvider
}

// NewConditionalContext creates a context reading flags from the provider.
func NewConditionalContext(flags FlagProvider) *ConditionalContext {
	return &ConditionalContext{flags: flags}
}

// Depth returns the number of open conditional blocks.
func (c *ConditionalContext) Depth() int {
	return len(c.frames)
}

// Suppressed reports whether commands should currently be skipped.
func (c *ConditionalContext) Suppressed() bool {
	if len(c.frames) == 0 {
		return false
	}
	top := c.frames[len(c.frames)-1]
	return top.parentSuppressed || !top.value
}

// ProcessIf opens a conditional block. Inside a suppressed branch the
// expression is not evaluated and the new block is inert.
func (c *ConditionalContext) ProcessIf(condition string) {
	if c.Suppressed() {
		c.frames = append(c.frames, frame{value: false, parentSuppressed: true})
		return
	}
	c.frames = append(c.frames, frame{value: c.Evaluate(condition)})
}

// ProcessElse flips the innermost block.
func (c *ConditionalContext) ProcessElse() error {
	if len(c.frames) == 0 {
		return ErrStructural
	}
	top := &c.frames[len(c.frames)-1]
	top.value = !top.value
	return nil
}

// ProcessEndIf closes the innermost block.
func (c *ConditionalContext) ProcessEndIf() error {
	if len(c.frames) == 0 {
		return ErrStructural
	}
	c.frames = c.frames[:len(c.frames)-1]
	return nil
}

// Reset discards all open blocks.
func (c *ConditionalContext) Reset() {
	c.frames = c.frames[:0]
}

// Evaluate computes a conditional expression against the flag provider.
//
// The grammar, loosest binding first:
//
//	expr   = and { "||" and }
//	and    = unary { "&&" unary }
//	unary  = "!" unary | comparison | term
//	term   = "flag:" name | anything else (true)
//
// Comparisons use "==" or "!=" between a flag reference and a literal;
// the flag's value is stringified and compared case-insensitively.
// Unrecognised terms evaluate to true so a typo degrades to
// unconditional execution rather than silently skipping commands.
func (c *ConditionalContext) Evaluate(expr string) bool {
	for _, clause := range strings.Split(expr, "||") {
		if c.evalAnd(clause) {
			return true
		}
	}
	return false
}

func (c *ConditionalContext) evalAnd(clause string) bool {
	for _, term := range strings.Split(clause, "&&") {
		if !c.evalUnary(term) {
			return false
		}
	}
	return true
}

func (c *ConditionalContext) evalUnary(term string) bool {
	term = strings.TrimSpace(term)
	if strings.HasPrefix(term, "!") {
		return !c.evalUnary(term[1:])
	}

	if left, right, negate, ok := splitComparison(term); ok {
		return c.evalComparison(left, right, negate)
	}

	if name, ok := flagName(term); ok {
		return c.flags.GetFlag(name)
	}

	// Unknown terms are permissive.
	return true
}

func (c *ConditionalContext) evalComparison(left, right string, negate bool) bool {
	name, ok := flagName(left)
	if !ok {
		return true
	}
	value := strconv.FormatBool(c.flags.GetFlag(name))
	equal := strings.EqualFold(value, strings.TrimSpace(right))
	if negate {
		return !equal
	}
	return equal
}

// splitComparison splits "left == right" or "left != right" once.
func splitComparison(term string) (left, right string, negate, ok bool) {
	if i := strings.Index(term, "=="); i >= 0 {
		return strings.TrimSpace(term[:i]), strings.TrimSpace(term[i+2:]), false, true
	}
	if i := strings.Index(term, "!="); i >= 0 {
		return strings.TrimSpace(term[:i]), strings.TrimSpace(term[i+2:]), true, true
	}
	return "", "", false, false
}

// flagName extracts the name from a "flag:<name>" reference.
func flagName(term string) (string, bool) {
	if !strings.HasPrefix(strings.ToLower(term), flagPrefix) {
		return "", false
	}
	name := strings.TrimSpace(term[len(flagPrefix):])
	if name == "" {
		return "", false
	}
	return name, true
}
