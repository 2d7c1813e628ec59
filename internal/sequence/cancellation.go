package sequence

import "sync"

// CancellationToken signals a running execution to stop.
//
// The token carries a generation counter so a stale cancel cannot leak
// into the next run: Reset bumps the generation and installs a fresh
// done channel, and anything still holding the old channel sees only
// the run it belonged to.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
type CancellationToken struct {
	mu         sync.Mutex
	cancelled  bool
	generation uint64
	done       chan struct{}
}

// NewCancellationToken creates a token in the not-cancelled state.
func NewCancellationToken() *CancellationToken {
	return &CancellationToken{done: make(chan struct{})}
}

// Cancel requests the current run to stop. Idempotent.
func (t *CancellationToken) Cancel() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cancelled {
		return
	}
	t.cancelled = true
	close(t.done)
}

// IsCancelled reports whether cancellation was requested.
func (t *CancellationToken) IsCancelled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cancelled
}

// Check returns ErrCancelled when cancellation was requested.
func (t *CancellationToken) Check() error {
	if t.IsCancelled() {
		return ErrCancelled
	}
	return nil
}

// Done returns a channel closed when cancellation is requested. After
// Reset the previous channel stays closed or open as it was; callers
// must take the channel fresh for each run.
func (t *CancellationToken) Done() <-chan struct{} {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.done
}

// Reset prepares the token for a new run: the cancelled flag clears,
// the generation advances and a fresh done channel is installed.
func (t *CancellationToken) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cancelled = false
	t.generation++
	t.done = make(chan struct{})
}

// Generation returns the current run generation.
func (t *CancellationToken) Generation() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.generation
}
