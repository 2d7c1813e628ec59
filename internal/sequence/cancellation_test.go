package sequence

import (
	"errors"
	"testing"
	"time"
)

func TestToken_CancelIdempotent(t *testing.T) {
	token := NewCancellationToken()

	if token.IsCancelled() {
		t.Fatal("new token reports cancelled")
	}
	if err := token.Check(); err != nil {
		t.Fatalf("Check() = %v on fresh token", err)
	}

	token.Cancel()
	token.Cancel() // second call must not panic on the closed channel

	if !token.IsCancelled() {
		t.Error("IsCancelled() = false after Cancel()")
	}
	if err := token.Check(); !errors.Is(err, ErrCancelled) {
		t.Errorf("Check() = %v, want ErrCancelled", err)
	}
}

func TestToken_DoneChannel(t *testing.T) {
	token := NewCancellationToken()
	done := token.Done()

	select {
	case <-done:
		t.Fatal("done channel closed before Cancel()")
	default:
	}

	token.Cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("done channel not closed after Cancel()")
	}
}

func TestToken_ResetStartsNewGeneration(t *testing.T) {
	token := NewCancellationToken()
	gen := token.Generation()
	stale := token.Done()

	token.Cancel()
	token.Reset()

	if token.IsCancelled() {
		t.Error("IsCancelled() = true after Reset()")
	}
	if token.Generation() != gen+1 {
		t.Errorf("Generation() = %d, want %d", token.Generation(), gen+1)
	}

	// The stale channel belongs to the cancelled run and stays closed;
	// the fresh channel must be open.
	select {
	case <-stale:
	default:
		t.Error("stale done channel should remain closed")
	}
	select {
	case <-token.Done():
		t.Error("fresh done channel closed after Reset()")
	default:
	}
}

func TestToken_StaleCancelDoesNotLeak(t *testing.T) {
	token := NewCancellationToken()
	token.Cancel()
	token.Reset()

	// A new run taking the channel after Reset must not see the old cancel.
	if err := token.Check(); err != nil {
		t.Errorf("Check() = %v after Reset(), want nil", err)
	}

	token.Cancel()
	select {
	case <-token.Done():
	case <-time.After(time.Second):
		t.Error("cancel after Reset() did not close the fresh channel")
	}
}
