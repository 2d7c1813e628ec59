package sequence

import (
	"context"
	"errors"
	"sync"
)

// Worker runs one command list on a background goroutine with pause,
// resume and cancel control.
//
// Lifecycle: Idle -> Running <-> Paused -> Completed | Failed | Cancelled.
// A gated run (stop_if_not evaluated false) completes rather than fails.
// Pause takes effect at the next command boundary; the in-flight command
// finishes first. A paused worker parks on a channel, it does not poll.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
type Worker struct {
	mu       sync.Mutex
	executor *Executor
	token    *CancellationToken

	state    WorkerState
	current  int
	total    int
	results  []CommandResult
	message  string
	resumeCh chan struct{}
	doneCh   chan struct{}

	// onFinished is invoked once when the run reaches a terminal state.
	onFinished func(state WorkerState, message string, results []CommandResult)
}

// NewWorker creates an idle worker around the given executor. The
// worker installs its own pre-command and result hooks on the executor.
func NewWorker(executor *Executor, token *CancellationToken) *Worker {
	w := &Worker{
		executor: executor,
		token:    token,
		state:    WorkerIdle,
	}
	executor.SetPreCommand(w.gate)
	executor.SetOnCommandExecuted(w.recordResult)
	return w
}

// SetOnFinished sets the terminal-state callback. Must be set before Start.
func (w *Worker) SetOnFinished(callback func(state WorkerState, message string, results []CommandResult)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onFinished = callback
}

// Start launches the run on a new goroutine.
func (w *Worker) Start(ctx context.Context, commands []string) error {
	w.mu.Lock()
	if w.state == WorkerRunning || w.state == WorkerPaused {
		w.mu.Unlock()
		return ErrBusy
	}
	w.state = WorkerRunning
	w.current = 0
	w.total = len(commands)
	w.results = nil
	w.message = ""
	w.doneCh = make(chan struct{})
	w.mu.Unlock()

	go w.run(ctx, commands)
	return nil
}

// Pause suspends the run at the next command boundary.
func (w *Worker) Pause() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state != WorkerRunning {
		return ErrNoExecution
	}
	w.state = WorkerPaused
	w.resumeCh = make(chan struct{})
	return nil
}

// Resume continues a paused run.
func (w *Worker) Resume() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state != WorkerPaused {
		return ErrNoExecution
	}
	w.state = WorkerRunning
	close(w.resumeCh)
	w.resumeCh = nil
	return nil
}

// Cancel requests the run to stop. Effective while running or paused;
// a paused run unparks and terminates promptly.
func (w *Worker) Cancel() error {
	w.mu.Lock()
	state := w.state
	w.mu.Unlock()
	if state != WorkerRunning && state != WorkerPaused {
		return ErrNoExecution
	}
	w.token.Cancel()
	return nil
}

// State returns the worker's lifecycle state.
func (w *Worker) State() WorkerState {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Progress returns a snapshot of the run position.
func (w *Worker) Progress() Progress {
	w.mu.Lock()
	defer w.mu.Unlock()
	return Progress{Current: w.current, Total: w.total, State: w.state}
}

// Results returns a snapshot of the per-command results so far.
func (w *Worker) Results() []CommandResult {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]CommandResult, len(w.results))
	copy(out, w.results)
	return out
}

// Message returns the terminal message, empty until the run ends.
func (w *Worker) Message() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.message
}

// Wait blocks until the run reaches a terminal state or ctx ends.
func (w *Worker) Wait(ctx context.Context) error {
	w.mu.Lock()
	done := w.doneCh
	w.mu.Unlock()
	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// gate runs before each command: it updates progress and parks while
// the worker is paused. Cancellation unparks and aborts.
func (w *Worker) gate(index, total int) error {
	w.mu.Lock()
	w.current = index
	w.total = total
	for w.state == WorkerPaused {
		resume := w.resumeCh
		w.mu.Unlock()
		select {
		case <-resume:
		case <-w.token.Done():
			return ErrCancelled
		}
		w.mu.Lock()
	}
	w.mu.Unlock()
	return w.token.Check()
}

// recordResult appends one command outcome for live progress queries.
func (w *Worker) recordResult(result CommandResult) {
	w.mu.Lock()
	w.results = append(w.results, result)
	w.mu.Unlock()
}

func (w *Worker) run(ctx context.Context, commands []string) {
	_, err := w.executor.Execute(ctx, commands, w.token)

	w.mu.Lock()
	switch {
	case err == nil:
		w.state = WorkerCompleted
		w.message = "completed"
		w.current = w.total
	case errors.Is(err, ErrGated):
		w.state = WorkerCompleted
		w.message = "stopped by gate"
	case errors.Is(err, ErrCancelled) || errors.Is(err, context.Canceled):
		w.state = WorkerCancelled
		w.message = "cancelled"
	default:
		w.state = WorkerFailed
		w.message = err.Error()
	}
	state := w.state
	message := w.message
	results := make([]CommandResult, len(w.results))
	copy(results, w.results)
	callback := w.onFinished
	done := w.doneCh
	w.mu.Unlock()

	close(done)
	if callback != nil {
		callback(state, message, results)
	}
}
