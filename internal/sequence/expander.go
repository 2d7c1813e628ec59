package sequence

import "strings"

// DefaultMaxRecursionDepth caps how deep nested sequence references expand.
const DefaultMaxRecursionDepth = 20

// Expander resolves nested sequence and button references into flat
// command lists.
//
// Unknown names expand to nothing, a sequence that can reach itself
// expands to nothing, a cyclic reference further down is cut at the
// point of re-entry, and branches deeper than the recursion cap are cut
// off silently. The engine treats a broken definition as an empty run
// rather than an execution-time failure.
//
// Expansion is memoised two ways: within one call each sequence is
// flattened at most once, so total work is linear in the output, and
// across calls results are kept in a bounded cache tagged with the
// names they were derived from.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
type Expander struct {
	maxDepth int
	cache    *resultCache
}

// NewExpander creates an expander with the given recursion cap and
// cross-call cache size.
func NewExpander(maxDepth, cacheSize int) *Expander {
	if maxDepth < 1 {
		maxDepth = DefaultMaxRecursionDepth
	}
	return &Expander{
		maxDepth: maxDepth,
		cache:    newResultCache(cacheSize),
	}
}

// Expand flattens the named sequence against the given tables.
//
// Items are resolved in order: an item naming a sequence (bare or as
// "sequence <name>") recurses, an item naming a button (bare or as
// "button <name>") substitutes the button's command, and everything
// else passes through unchanged.
//
// Parameters:
//   - name: Sequence to expand
//   - sequences: Sequence table, name to command list
//   - buttons: Button table, name to single command
//
// Returns:
//   - []string: Flat command list; empty for unknown or cyclic names
func (e *Expander) Expand(name string, sequences map[string][]string, buttons map[string]string) []string {
	if cached, ok := e.cache.get(name); ok {
		return copyCommands(cached.([]string))
	}

	if _, ok := sequences[name]; !ok {
		return nil
	}
	if e.inCycle(name, sequences) {
		return []string{}
	}

	deps := map[string]struct{}{name: {}}
	memo := make(map[string][]string)
	visiting := make(map[string]bool)
	result := e.flatten(name, sequences, buttons, memo, deps, visiting, 0)

	e.cache.put(name, copyCommands(result), deps)
	return result
}

// Invalidate evicts cached expansions derived from name.
func (e *Expander) Invalidate(name string) {
	e.cache.invalidate(name)
}

// Clear evicts every cached expansion.
func (e *Expander) Clear() {
	e.cache.clear()
}

// Stats returns the expansion cache counters.
func (e *Expander) Stats() CacheStats {
	return e.cache.stats()
}

// flatten walks one sequence. visiting holds the names on the current
// reference chain; re-entering one of them is a cycle and expands to
// nothing. memo is only written once a name has fully unwound, so a
// cut branch never poisons it.
func (e *Expander) flatten(name string, sequences map[string][]string, buttons map[string]string, memo map[string][]string, deps map[string]struct{}, visiting map[string]bool, depth int) []string {
	if visiting[name] {
		return []string{}
	}
	if flat, ok := memo[name]; ok {
		return flat
	}
	if depth > e.maxDepth {
		return []string{}
	}

	visiting[name] = true
	var out []string
	for _, item := range sequences[name] {
		ref, kind := resolveRef(item, sequences, buttons)
		switch kind {
		case refSequence:
			deps[ref] = struct{}{}
			out = append(out, e.flatten(ref, sequences, buttons, memo, deps, visiting, depth+1)...)
		case refButton:
			deps[ref] = struct{}{}
			out = append(out, buttons[ref])
		default:
			out = append(out, item)
		}
	}
	delete(visiting, name)
	memo[name] = out
	return out
}

// inCycle reports whether name can reach itself through sequence references.
func (e *Expander) inCycle(name string, sequences map[string][]string) bool {
	visited := make(map[string]bool)
	var visit func(current string) bool
	visit = func(current string) bool {
		if visited[current] {
			return false
		}
		visited[current] = true
		for _, item := range sequences[current] {
			ref, kind := resolveRef(item, sequences, nil)
			if kind != refSequence {
				continue
			}
			if ref == name || visit(ref) {
				return true
			}
		}
		return false
	}
	return visit(name)
}

type refKind int

const (
	refNone refKind = iota
	refSequence
	refButton
)

// resolveRef decides whether an item references a sequence or button.
// Bare names are matched first, then the "sequence <name>" and
// "button <name>" keyword forms.
func resolveRef(item string, sequences map[string][]string, buttons map[string]string) (string, refKind) {
	if _, ok := sequences[item]; ok {
		return item, refSequence
	}
	if buttons != nil {
		if _, ok := buttons[item]; ok {
			return item, refButton
		}
	}

	lower := strings.ToLower(item)
	if strings.HasPrefix(lower, "sequence ") {
		name := strings.TrimSpace(item[len("sequence "):])
		if _, ok := sequences[name]; ok {
			return name, refSequence
		}
	}
	if buttons != nil && strings.HasPrefix(lower, "button ") {
		name := strings.TrimSpace(item[len("button "):])
		if _, ok := buttons[name]; ok {
			return name, refButton
		}
	}
	return "", refNone
}

func copyCommands(commands []string) []string {
	if commands == nil {
		return nil
	}
	out := make([]string, len(commands))
	copy(out, commands)
	return out
}
