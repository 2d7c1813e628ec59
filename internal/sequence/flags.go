package sequence

import "sync"

// FlagStore holds named boolean flags consulted by conditional
// expressions. Flags default to false: reading a name that was never
// set returns false rather than an error, so sequences can reference
// flags before anything defines them.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
type FlagStore struct {
	mu    sync.RWMutex
	flags map[string]bool
}

// NewFlagStore creates an empty flag store.
func NewFlagStore() *FlagStore {
	return &FlagStore{flags: make(map[string]bool)}
}

// SetFlag sets a flag to the given value, creating it if needed.
func (s *FlagStore) SetFlag(name string, value bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flags[name] = value
}

// GetFlag returns a flag's value. Unset flags are false.
func (s *FlagStore) GetFlag(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.flags[name]
}

// HasFlag reports whether a flag has ever been set.
func (s *FlagStore) HasFlag(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.flags[name]
	return ok
}

// ClearFlag removes a flag. Clearing an unset flag is a no-op.
func (s *FlagStore) ClearFlag(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.flags, name)
}

// Flags returns a copy of every set flag.
func (s *FlagStore) Flags() map[string]bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]bool, len(s.flags))
	for name, value := range s.flags {
		out[name] = value
	}
	return out
}

// Len returns the number of set flags.
func (s *FlagStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.flags)
}

// Reset removes every flag.
func (s *FlagStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flags = make(map[string]bool)
}
