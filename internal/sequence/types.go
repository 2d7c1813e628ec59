package sequence

import "time"

// CommandKind classifies a raw command string into one of the forms the
// engine understands. The set is closed: execution dispatches on kind
// with an exhaustive switch, and anything unrecognised is KindUnknown.
type CommandKind string

// Command kinds, in classification order.
const (
	// KindRegular is a plain device command passed through verbatim.
	KindRegular CommandKind = "regular"

	// KindWait pauses execution for a number of seconds.
	KindWait CommandKind = "wait"

	// KindSequenceRef references another named sequence.
	KindSequenceRef CommandKind = "sequence"

	// KindButtonRef references a named button definition.
	KindButtonRef CommandKind = "button"

	// KindIf opens a conditional block.
	KindIf CommandKind = "if"

	// KindElse flips the innermost conditional block.
	KindElse CommandKind = "else"

	// KindEndIf closes the innermost conditional block.
	KindEndIf CommandKind = "endif"

	// KindStopIfNot gates the remainder of the run on a condition.
	KindStopIfNot CommandKind = "stop_if_not"

	// KindMultizone is a zone mask command or a fan-out base command.
	KindMultizone CommandKind = "multizone"

	// KindTagged is a command carrying a routing tag.
	KindTagged CommandKind = "tagged"

	// KindUnknown marks commands that failed classification.
	KindUnknown CommandKind = "unknown"
)

// Payload keys set by the classifier. Each kind populates the keys that
// carry its arguments; regular commands carry the trimmed text.
const (
	PayloadWaitTime     = "wait_time"     // float64 seconds (KindWait)
	PayloadCondition    = "condition"     // expression text (KindIf, KindStopIfNot)
	PayloadParams       = "params"        // raw parameter text (KindMultizone mask form)
	PayloadBaseCommand  = "base_command"  // base command to fan out (KindMultizone og_ form)
	PayloadSequenceName = "sequence_name" // referenced sequence (KindSequenceRef)
	PayloadButtonParams = "button_params" // referenced button (KindButtonRef)
	PayloadTag          = "tag"           // routing tag (KindTagged)
	PayloadCommand      = "command"       // trimmed text (KindRegular)
)

// ValidationOutcome is the result of classifying a single command.
type ValidationOutcome struct {
	// Valid reports whether the command can be executed.
	Valid bool `json:"valid"`

	// Err describes why the command is invalid. Empty when Valid.
	Err string `json:"error,omitempty"`

	// Kind is the classified command kind. Set on invalid outcomes too
	// when the keyword was recognised but its arguments were not.
	Kind CommandKind `json:"kind"`

	// Payload carries the extracted arguments, keyed by the Payload*
	// constants. Nil for invalid outcomes.
	Payload map[string]any `json:"payload,omitempty"`
}

// CommandResult records the outcome of one executed command.
type CommandResult struct {
	// Command is the raw command text as it appeared in the run.
	Command string `json:"command"`

	// Success reports whether the command completed without error.
	Success bool `json:"success"`

	// Message describes the outcome: an acknowledgement line, a
	// suppression note, or a failure reason.
	Message string `json:"message,omitempty"`

	// DurationMS is how long the command took, including ack waits.
	DurationMS float64 `json:"duration_ms"`

	// Critical marks failures that aborted the run.
	Critical bool `json:"critical,omitempty"`
}

// WorkerState is the lifecycle state of an asynchronous run.
type WorkerState string

// Worker lifecycle states. Completed, Failed and Cancelled are terminal.
const (
	WorkerIdle      WorkerState = "idle"
	WorkerRunning   WorkerState = "running"
	WorkerPaused    WorkerState = "paused"
	WorkerCompleted WorkerState = "completed"
	WorkerFailed    WorkerState = "failed"
	WorkerCancelled WorkerState = "cancelled"
)

// Terminal reports whether the state is an end state.
func (s WorkerState) Terminal() bool {
	return s == WorkerCompleted || s == WorkerFailed || s == WorkerCancelled
}

// Progress is a snapshot of a run's position.
type Progress struct {
	// Current is the index of the command being executed, 0-based.
	Current int `json:"current"`

	// Total is the number of commands in the run.
	Total int `json:"total"`

	// State is the worker state at snapshot time.
	State WorkerState `json:"state"`
}

// CacheStats is a snapshot of one cache's counters.
type CacheStats struct {
	Hits     int `json:"hits"`
	Misses   int `json:"misses"`
	Size     int `json:"size"`
	Capacity int `json:"capacity"`
}

// ExecutionStats aggregates run outcomes since startup.
type ExecutionStats struct {
	Started      int           `json:"started"`
	Completed    int           `json:"completed"`
	Failed       int           `json:"failed"`
	Cancelled    int           `json:"cancelled"`
	LastDuration time.Duration `json:"last_duration_ms"`
}

// Statistics is the manager's aggregate view of its tables, caches and runs.
type Statistics struct {
	Sequences  int                   `json:"sequences"`
	Buttons    int                   `json:"buttons"`
	Flags      int                   `json:"flags"`
	Executions ExecutionStats        `json:"executions"`
	Caches     map[string]CacheStats `json:"caches"`
}

// Transport dispatches command lines to the device. The production
// implementation publishes over MQTT to the serial bridge; tests use an
// in-memory fake.
type Transport interface {
	// Send dispatches one command line to the device.
	Send(command string) error

	// IsConnected reports whether the transport can currently send.
	IsConnected() bool
}

// Logger is the minimal logging interface the engine needs.
// Compatible with logging.Logger and slog.Logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger discards all log output. Used when no logger is set.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}
