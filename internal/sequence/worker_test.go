package sequence

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func newTestWorker() (*Worker, *execHarness) {
	h := newExecHarness()
	return NewWorker(h.executor, h.token), h
}

func waitForState(t *testing.T, w *Worker, want WorkerState) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if w.State() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("worker state = %s, want %s", w.State(), want)
}

func TestWorker_RunsToCompletion(t *testing.T) {
	w, h := newTestWorker()

	if w.State() != WorkerIdle {
		t.Fatalf("initial state = %s, want idle", w.State())
	}

	if err := w.Start(context.Background(), []string{"c1", "c2"}); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := w.Wait(context.Background()); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}

	if w.State() != WorkerCompleted {
		t.Errorf("state = %s, want completed", w.State())
	}
	if got := len(h.transport.sentCommands()); got != 2 {
		t.Errorf("sent %d commands, want 2", got)
	}

	progress := w.Progress()
	if progress.Current != progress.Total || progress.Total != 2 {
		t.Errorf("progress = %+v, want current == total == 2", progress)
	}
	if got := len(w.Results()); got != 2 {
		t.Errorf("results = %d entries, want 2", got)
	}
}

func TestWorker_StartWhileRunning(t *testing.T) {
	w, _ := newTestWorker()

	if err := w.Start(context.Background(), []string{"wait 1"}); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := w.Start(context.Background(), []string{"c1"}); !errors.Is(err, ErrBusy) {
		t.Errorf("second Start() error = %v, want ErrBusy", err)
	}

	_ = w.Cancel()
	_ = w.Wait(context.Background())
}

func TestWorker_PauseResume(t *testing.T) {
	w, h := newTestWorker()

	if err := w.Start(context.Background(), []string{"wait 0.05", "c1", "c2"}); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := w.Pause(); err != nil {
		t.Fatalf("Pause() error = %v", err)
	}
	waitForState(t, w, WorkerPaused)

	// Paused: no further commands may be dispatched.
	sentWhilePaused := len(h.transport.sentCommands())
	time.Sleep(100 * time.Millisecond)
	if got := len(h.transport.sentCommands()); got != sentWhilePaused {
		t.Errorf("dispatched %d commands while paused, want %d", got, sentWhilePaused)
	}

	if err := w.Resume(); err != nil {
		t.Fatalf("Resume() error = %v", err)
	}
	if err := w.Wait(context.Background()); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}

	if w.State() != WorkerCompleted {
		t.Errorf("state = %s, want completed", w.State())
	}
	if got := len(h.transport.sentCommands()); got != 2 {
		t.Errorf("sent %d commands after resume, want 2", got)
	}
}

func TestWorker_PauseWhenIdle(t *testing.T) {
	w, _ := newTestWorker()

	if err := w.Pause(); !errors.Is(err, ErrNoExecution) {
		t.Errorf("Pause() on idle worker = %v, want ErrNoExecution", err)
	}
	if err := w.Resume(); !errors.Is(err, ErrNoExecution) {
		t.Errorf("Resume() on idle worker = %v, want ErrNoExecution", err)
	}
	if err := w.Cancel(); !errors.Is(err, ErrNoExecution) {
		t.Errorf("Cancel() on idle worker = %v, want ErrNoExecution", err)
	}
}

func TestWorker_CancelWhileRunning(t *testing.T) {
	w, _ := newTestWorker()

	if err := w.Start(context.Background(), []string{"wait 10", "never"}); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	time.Sleep(20 * time.Millisecond)

	started := time.Now()
	if err := w.Cancel(); err != nil {
		t.Fatalf("Cancel() error = %v", err)
	}
	if err := w.Wait(context.Background()); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if elapsed := time.Since(started); elapsed > 200*time.Millisecond {
		t.Errorf("cancellation landed after %v, want within 200ms", elapsed)
	}
	if w.State() != WorkerCancelled {
		t.Errorf("state = %s, want cancelled", w.State())
	}
}

func TestWorker_CancelWhilePaused(t *testing.T) {
	w, _ := newTestWorker()

	if err := w.Start(context.Background(), []string{"wait 0.05", "c1"}); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := w.Pause(); err != nil {
		t.Fatalf("Pause() error = %v", err)
	}
	waitForState(t, w, WorkerPaused)

	if err := w.Cancel(); err != nil {
		t.Fatalf("Cancel() error = %v", err)
	}
	if err := w.Wait(context.Background()); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if w.State() != WorkerCancelled {
		t.Errorf("state = %s, want cancelled", w.State())
	}
}

func TestWorker_FailedRun(t *testing.T) {
	w, h := newTestWorker()
	h.transport.sendErr = errors.New("broker gone")

	if err := w.Start(context.Background(), []string{"c1"}); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	_ = w.Wait(context.Background())

	if w.State() != WorkerFailed {
		t.Errorf("state = %s, want failed", w.State())
	}
	if w.Message() == "" {
		t.Error("failed run has no message")
	}
}

func TestWorker_GatedRunCompletes(t *testing.T) {
	w, _ := newTestWorker()

	if err := w.Start(context.Background(), []string{"stop_if_not flag:armed", "never"}); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	_ = w.Wait(context.Background())

	if w.State() != WorkerCompleted {
		t.Errorf("state = %s, want completed for gated run", w.State())
	}
	if w.Message() != "stopped by gate" {
		t.Errorf("message = %q, want %q", w.Message(), "stopped by gate")
	}
}

func TestWorker_OnFinishedCallback(t *testing.T) {
	w, _ := newTestWorker()

	var mu sync.Mutex
	var calls int
	var gotState WorkerState
	w.SetOnFinished(func(state WorkerState, message string, results []CommandResult) {
		mu.Lock()
		calls++
		gotState = state
		mu.Unlock()
	})

	if err := w.Start(context.Background(), []string{"c1"}); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	_ = w.Wait(context.Background())

	mu.Lock()
	defer mu.Unlock()
	if calls != 1 {
		t.Errorf("onFinished called %d times, want 1", calls)
	}
	if gotState != WorkerCompleted {
		t.Errorf("onFinished state = %s, want completed", gotState)
	}
}

func TestWorker_Restart(t *testing.T) {
	w, h := newTestWorker()

	if err := w.Start(context.Background(), []string{"c1"}); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	_ = w.Wait(context.Background())

	// A terminal worker can be started again after a token reset.
	h.token.Reset()
	if err := w.Start(context.Background(), []string{"c2"}); err != nil {
		t.Fatalf("restart error = %v", err)
	}
	_ = w.Wait(context.Background())

	if got := len(h.transport.sentCommands()); got != 2 {
		t.Errorf("sent %d commands over two runs, want 2", got)
	}
}
