package sequence

import (
	"context"
	"fmt"
	"time"

	"github.com/ogsystems/og-sequence-core/internal/multizone"
)

// Default execution timing.
const (
	DefaultWaitSlice      = 100 * time.Millisecond
	DefaultAckTimeout     = 10 * time.Second
	DefaultZoneAckTimeout = 5 * time.Second
)

// ExecutorConfig holds per-run timing. Zero values fall back to defaults.
type ExecutorConfig struct {
	// WaitSlice is the granularity of wait commands. Smaller slices
	// mean faster cancellation response during long waits.
	WaitSlice time.Duration

	// AckTimeout bounds the wait for a command acknowledgement.
	AckTimeout time.Duration

	// ZoneAckTimeout bounds the wait for a zone mask acknowledgement.
	ZoneAckTimeout time.Duration
}

// Executor walks a flat command list and drives the device.
//
// One executor serves one run. The manager builds a fresh executor per
// execution and wires the run's callbacks before starting it.
//
// Commands are dispatched strictly in order. Waits are sliced so
// cancellation lands within one slice, conditionals gate dispatch
// without ever being sent, and multizone fan-out delegates zone
// bookkeeping to the zone manager. Any transport or acknowledgement
// failure aborts the run; remaining commands are not sent.
type Executor struct {
	transport Transport
	zones     *multizone.Manager
	parser    *Parser
	flags     FlagProvider
	collector *ResponseCollector
	acks      *AckClassifier
	cfg       ExecutorConfig
	logger    Logger

	// preCommand runs before each command is processed. The worker
	// uses it for pause gating and progress. A non-nil error aborts.
	preCommand func(index, total int) error

	// onCommandExecuted runs after each command resolves.
	onCommandExecuted func(result CommandResult)
}

// NewExecutor creates an executor over the given collaborators.
func NewExecutor(transport Transport, zones *multizone.Manager, parser *Parser, flags FlagProvider, collector *ResponseCollector, acks *AckClassifier, cfg ExecutorConfig) *Executor {
	if cfg.WaitSlice <= 0 {
		cfg.WaitSlice = DefaultWaitSlice
	}
	if cfg.AckTimeout <= 0 {
		cfg.AckTimeout = DefaultAckTimeout
	}
	if cfg.ZoneAckTimeout <= 0 {
		cfg.ZoneAckTimeout = DefaultZoneAckTimeout
	}
	return &Executor{
		transport: transport,
		zones:     zones,
		parser:    parser,
		flags:     flags,
		collector: collector,
		acks:      acks,
		cfg:       cfg,
		logger:    noopLogger{},
	}
}

// SetLogger sets the logger for command dispatch events.
func (e *Executor) SetLogger(logger Logger) {
	if logger != nil {
		e.logger = logger
	}
}

// SetPreCommand sets the hook run before each command. Must be set
// before Execute starts.
func (e *Executor) SetPreCommand(hook func(index, total int) error) {
	e.preCommand = hook
}

// SetOnCommandExecuted sets the hook run after each command resolves.
// Must be set before Execute starts.
func (e *Executor) SetOnCommandExecuted(hook func(result CommandResult)) {
	e.onCommandExecuted = hook
}

// Execute runs the command list to completion, abort or cancellation.
//
// Parameters:
//   - ctx: Bounds the whole run
//   - commands: Flat, pre-expanded command list
//   - token: Cancellation token for this run
//
// Returns:
//   - []CommandResult: One entry per processed command
//   - error: Nil on success; ErrCancelled, ErrGated or a failure cause
func (e *Executor) Execute(ctx context.Context, commands []string, token *CancellationToken) ([]CommandResult, error) {
	if len(commands) == 0 {
		return nil, ErrEmptySequence
	}

	cancelled := token.Done()
	cond := NewConditionalContext(e.flags)
	results := make([]CommandResult, 0, len(commands))

	record := func(result CommandResult) {
		results = append(results, result)
		if e.onCommandExecuted != nil {
			e.onCommandExecuted(result)
		}
	}

	for i, command := range commands {
		if err := runAborted(ctx, token); err != nil {
			return results, err
		}
		if e.preCommand != nil {
			if err := e.preCommand(i, len(commands)); err != nil {
				return results, err
			}
		}

		started := time.Now()
		outcome := e.parser.Classify(command)
		if !outcome.Valid {
			record(failure(command, outcome.Err, started))
			return results, fmt.Errorf("%w: command %d: %s", ErrSyntax, i+1, outcome.Err)
		}

		// Conditional keywords are always processed, even while
		// suppressed, so nesting stays balanced.
		switch outcome.Kind {
		case KindIf:
			cond.ProcessIf(payloadString(outcome, PayloadCondition))
			record(note(command, "conditional opened", started))
			continue
		case KindElse:
			if err := cond.ProcessElse(); err != nil {
				record(failure(command, "'else' without matching 'if'", started))
				return results, fmt.Errorf("%w: command %d: 'else' without matching 'if'", ErrStructural, i+1)
			}
			record(note(command, "conditional flipped", started))
			continue
		case KindEndIf:
			if err := cond.ProcessEndIf(); err != nil {
				record(failure(command, "'endif' without matching 'if'", started))
				return results, fmt.Errorf("%w: command %d: 'endif' without matching 'if'", ErrStructural, i+1)
			}
			record(note(command, "conditional closed", started))
			continue
		}

		if cond.Suppressed() {
			record(note(command, "suppressed by conditional", started))
			continue
		}

		switch outcome.Kind {
		case KindStopIfNot:
			if !cond.Evaluate(payloadString(outcome, PayloadCondition)) {
				record(note(command, "gate condition false, run stopped", started))
				e.logger.Info("run stopped by gate", "command", command)
				return results, ErrGated
			}
			record(note(command, "gate condition true", started))

		case KindWait:
			seconds, _ := outcome.Payload[PayloadWaitTime].(float64)
			if err := e.wait(ctx, cancelled, seconds); err != nil {
				record(failure(command, "wait interrupted", started))
				return results, err
			}
			record(success(command, "", started))

		case KindMultizone:
			if base := payloadString(outcome, PayloadBaseCommand); base != "" {
				if err := e.fanOut(ctx, cancelled, base); err != nil {
					record(failure(command, err.Error(), started))
					return results, err
				}
				record(success(command, "all zones completed", started))
				break
			}
			// Mask form: a literal zone selection command for the device.
			line, err := e.sendAndAwait(ctx, cancelled, command, e.cfg.ZoneAckTimeout)
			if err != nil {
				record(failure(command, err.Error(), started))
				return results, err
			}
			record(success(command, line, started))

		default:
			// Regular, tagged and unexpanded references dispatch verbatim.
			line, err := e.sendAndAwait(ctx, cancelled, command, e.cfg.AckTimeout)
			if err != nil {
				record(failure(command, err.Error(), started))
				return results, err
			}
			record(success(command, line, started))
		}
	}

	if cond.Depth() != 0 {
		return results, fmt.Errorf("%w: %d unclosed conditional block(s)", ErrStructural, cond.Depth())
	}
	return results, nil
}

// wait sleeps for the given seconds in slices, aborting promptly on
// cancellation or context end.
func (e *Executor) wait(ctx context.Context, cancelled <-chan struct{}, seconds float64) error {
	remaining := time.Duration(seconds * float64(time.Second))
	for remaining > 0 {
		slice := e.cfg.WaitSlice
		if remaining < slice {
			slice = remaining
		}
		timer := time.NewTimer(slice)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-cancelled:
			timer.Stop()
			return ErrCancelled
		case <-timer.C:
		}
		remaining -= slice
	}
	return nil
}

// sendAndAwait clears the response buffer, dispatches one command and
// waits for an acknowledgement.
func (e *Executor) sendAndAwait(ctx context.Context, cancelled <-chan struct{}, command string, timeout time.Duration) (string, error) {
	e.collector.Clear()

	e.logger.Debug("dispatching command", "command", command)
	if err := e.transport.Send(command); err != nil {
		return "", fmt.Errorf("%w: %v", ErrTransport, err)
	}

	result, line, err := e.collector.AwaitAck(ctx, cancelled, e.acks, timeout)
	if err != nil {
		return "", err
	}
	switch result {
	case AckSuccess:
		return line, nil
	case AckError:
		return "", fmt.Errorf("%w: device reported %q", ErrTransport, line)
	default:
		return "", fmt.Errorf("%w: no acknowledgement within %s", ErrTimeout, timeout)
	}
}

// fanOut runs the base command once per active zone in ascending order.
//
// Each zone gets a mask command selecting it alone, then the base
// command, each awaiting its acknowledgement. The first failure aborts
// the whole fan-out; the failing zone is marked errored and later zones
// are never started, so no zone is left in the executing state.
func (e *Executor) fanOut(ctx context.Context, cancelled <-chan struct{}, base string) error {
	zoneIDs := e.zones.ActiveZones()
	if len(zoneIDs) == 0 {
		return fmt.Errorf("%w: fan-out with no zone selection", multizone.ErrNoZones)
	}

	for _, zoneID := range zoneIDs {
		if err := runAbortedCh(ctx, cancelled); err != nil {
			return err
		}

		mask, err := e.zones.MaskCommand(zoneID)
		if err != nil {
			return err
		}

		_ = e.zones.SetStatus(zoneID, multizone.StatusExecuting)

		if _, err := e.sendAndAwait(ctx, cancelled, mask, e.cfg.ZoneAckTimeout); err != nil {
			_ = e.zones.SetError(zoneID, fmt.Sprintf("mask send failed: %v", err))
			return fmt.Errorf("zone %d: %w", zoneID, err)
		}
		if _, err := e.sendAndAwait(ctx, cancelled, base, e.cfg.AckTimeout); err != nil {
			_ = e.zones.SetError(zoneID, fmt.Sprintf("base command failed: %v", err))
			return fmt.Errorf("zone %d: %w", zoneID, err)
		}

		_ = e.zones.SetStatus(zoneID, multizone.StatusCompleted)
		e.logger.Debug("zone completed", "zone", zoneID, "command", base)
	}
	return nil
}

func runAborted(ctx context.Context, token *CancellationToken) error {
	if err := token.Check(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return nil
}

func runAbortedCh(ctx context.Context, cancelled <-chan struct{}) error {
	select {
	case <-cancelled:
		return ErrCancelled
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}

func payloadString(outcome ValidationOutcome, key string) string {
	value, _ := outcome.Payload[key].(string)
	return value
}

func success(command, message string, started time.Time) CommandResult {
	return CommandResult{
		Command:    command,
		Success:    true,
		Message:    message,
		DurationMS: float64(time.Since(started)) / float64(time.Millisecond),
	}
}

func note(command, message string, started time.Time) CommandResult {
	return CommandResult{
		Command:    command,
		Success:    true,
		Message:    message,
		DurationMS: float64(time.Since(started)) / float64(time.Millisecond),
	}
}

func failure(command, message string, started time.Time) CommandResult {
	return CommandResult{
		Command:    command,
		Success:    false,
		Message:    message,
		DurationMS: float64(time.Since(started)) / float64(time.Millisecond),
		Critical:   true,
	}
}
