package sequence

import (
	"sort"
	"strings"
	"sync"

	"github.com/agnivade/levenshtein"
)

// suggestDistance is the widest edit distance Suggest will offer.
const suggestDistance = 3

// Searcher answers content queries over the sequence and button tables.
//
// It maintains an inverted index from lowercased tokens to the names
// containing them, rebuilt whole on every table mutation. Query results
// are cached; the cache is dropped on rebuild.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
type Searcher struct {
	mu sync.RWMutex

	// tokenIndex maps each lowercased command token to the names of
	// the definitions containing it.
	tokenIndex map[string]map[string]struct{}

	// commands maps each name to its lowercased command texts, for
	// substring matches that cross token boundaries.
	commands map[string][]string

	// kindIndex maps command kinds to the names using them.
	kindIndex map[CommandKind]map[string]struct{}

	names  []string
	parser *Parser
	cache  *resultCache
}

// NewSearcher creates an empty searcher using the parser for kind queries.
func NewSearcher(parser *Parser, cacheSize int) *Searcher {
	s := &Searcher{
		parser: parser,
		cache:  newResultCache(cacheSize),
	}
	s.Rebuild(nil, nil)
	return s
}

// Rebuild replaces the index with the current tables. Called after any
// sequence or button mutation; the query cache is invalidated.
func (s *Searcher) Rebuild(sequences map[string][]string, buttons map[string]string) {
	tokenIndex := make(map[string]map[string]struct{})
	commands := make(map[string][]string)
	kindIndex := make(map[CommandKind]map[string]struct{})
	var names []string

	index := func(name string, cmds []string) {
		names = append(names, name)
		lowered := make([]string, 0, len(cmds))
		for _, cmd := range cmds {
			lower := strings.ToLower(cmd)
			lowered = append(lowered, lower)
			for _, token := range strings.Fields(lower) {
				if tokenIndex[token] == nil {
					tokenIndex[token] = make(map[string]struct{})
				}
				tokenIndex[token][name] = struct{}{}
			}
			kind := s.parser.Classify(cmd).Kind
			if kindIndex[kind] == nil {
				kindIndex[kind] = make(map[string]struct{})
			}
			kindIndex[kind][name] = struct{}{}
		}
		commands[name] = lowered
	}

	for name, cmds := range sequences {
		index(name, cmds)
	}
	for name, cmd := range buttons {
		index(name, []string{cmd})
	}
	sort.Strings(names)

	s.mu.Lock()
	s.tokenIndex = tokenIndex
	s.commands = commands
	s.kindIndex = kindIndex
	s.names = names
	s.mu.Unlock()

	s.cache.clear()
}

// Search returns the names whose definition matches the query.
//
// A definition matches when its name contains the query, a token equals
// the query, or any command text contains the query as a substring.
// Matching is case-insensitive and results are sorted.
func (s *Searcher) Search(query string) []string {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return nil
	}

	cacheKey := "q:" + query
	if cached, ok := s.cache.get(cacheKey); ok {
		return copyCommands(cached.([]string))
	}

	s.mu.RLock()
	matched := make(map[string]struct{})
	for name := range s.tokenIndex[query] {
		matched[name] = struct{}{}
	}
	for name, cmds := range s.commands {
		if strings.Contains(strings.ToLower(name), query) {
			matched[name] = struct{}{}
			continue
		}
		for _, cmd := range cmds {
			if strings.Contains(cmd, query) {
				matched[name] = struct{}{}
				break
			}
		}
	}
	s.mu.RUnlock()

	results := make([]string, 0, len(matched))
	for name := range matched {
		results = append(results, name)
	}
	sort.Strings(results)

	s.cache.put(cacheKey, copyCommands(results), nil)
	return results
}

// SearchByKind returns the names containing at least one command of the
// given kind, sorted.
func (s *Searcher) SearchByKind(kind CommandKind) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make([]string, 0, len(s.kindIndex[kind]))
	for name := range s.kindIndex[kind] {
		results = append(results, name)
	}
	sort.Strings(results)
	return results
}

// Suggest returns up to max names close to partial, nearest first,
// ties broken alphabetically. A name counts as a match when partial is
// a prefix of it or within three edits of it.
func (s *Searcher) Suggest(partial string, max int) []string {
	partial = strings.ToLower(strings.TrimSpace(partial))
	if partial == "" || max < 1 {
		return nil
	}

	s.mu.RLock()
	type scored struct {
		name string
		dist int
	}
	var candidates []scored
	for _, name := range s.names {
		lower := strings.ToLower(name)
		dist := levenshtein.ComputeDistance(partial, lower)
		if strings.HasPrefix(lower, partial) {
			// Prefix matches rank as exact completions.
			dist = 0
		}
		if dist <= suggestDistance {
			candidates = append(candidates, scored{name: name, dist: dist})
		}
	}
	s.mu.RUnlock()

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].dist != candidates[j].dist {
			return candidates[i].dist < candidates[j].dist
		}
		return candidates[i].name < candidates[j].name
	})

	if len(candidates) > max {
		candidates = candidates[:max]
	}
	results := make([]string, 0, len(candidates))
	for _, c := range candidates {
		results = append(results, c.name)
	}
	return results
}

// Stats returns the query cache counters.
func (s *Searcher) Stats() CacheStats {
	return s.cache.stats()
}
