package sequence

import "errors"

// Domain errors for the sequence package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, sequence.ErrCancelled) {
//	    // run was cancelled, not failed
//	}
var (
	// ErrSyntax is returned when a command is malformed or unrecognised
	// at a point where it must be valid.
	ErrSyntax = errors.New("sequence: syntax error")

	// ErrRange is returned when a numeric argument is out of bounds.
	ErrRange = errors.New("sequence: value out of range")

	// ErrTimeout is returned when a device acknowledgement wait expires.
	ErrTimeout = errors.New("sequence: timeout")

	// ErrStructural is returned for unbalanced conditionals and unknown references.
	ErrStructural = errors.New("sequence: structural error")

	// ErrTransport is returned when a send fails or the device reports an error.
	ErrTransport = errors.New("sequence: transport failure")

	// ErrCancelled is returned when a run stops because cancellation was requested.
	// It is a distinct terminal outcome, not a failure.
	ErrCancelled = errors.New("sequence: cancelled")

	// ErrGated is returned when a stop_if_not gate evaluates false.
	// The run ends cleanly without dispatching further commands.
	ErrGated = errors.New("sequence: stopped by gate")

	// ErrSequenceNotFound is returned when a sequence name does not exist.
	ErrSequenceNotFound = errors.New("sequence: not found")

	// ErrSequenceExists is returned when adding a sequence whose name is taken.
	ErrSequenceExists = errors.New("sequence: already exists")

	// ErrButtonNotFound is returned when a button name does not exist.
	ErrButtonNotFound = errors.New("sequence: button not found")

	// ErrButtonExists is returned when adding a button whose name is taken.
	ErrButtonExists = errors.New("sequence: button already exists")

	// ErrInvalidName is returned when a sequence or button name is empty.
	ErrInvalidName = errors.New("sequence: invalid name")

	// ErrEmptySequence is returned when a command list is empty.
	ErrEmptySequence = errors.New("sequence: empty command list")

	// ErrBusy is returned when starting a run while another is in progress.
	ErrBusy = errors.New("sequence: execution already in progress")

	// ErrNoExecution is returned by run control when nothing is running.
	ErrNoExecution = errors.New("sequence: no execution in progress")

	// ErrExecutionNotFound is returned when an execution record does not exist.
	ErrExecutionNotFound = errors.New("sequence: execution not found")
)
