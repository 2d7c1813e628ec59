package multizone

// ZoneStatus describes where a zone is in the fan-out lifecycle.
type ZoneStatus string

// Zone lifecycle states.
const (
	// StatusInactive means the zone is not part of the current selection.
	StatusInactive ZoneStatus = "inactive"

	// StatusActive means the zone is selected but not yet executing.
	StatusActive ZoneStatus = "active"

	// StatusExecuting means the zone's mask or base command is in flight.
	StatusExecuting ZoneStatus = "executing"

	// StatusCompleted means the zone finished its command successfully.
	StatusCompleted ZoneStatus = "completed"

	// StatusError means a send or acknowledgement failed for this zone.
	StatusError ZoneStatus = "error"
)

// ZoneInfo is a snapshot of one zone's state.
type ZoneInfo struct {
	// ID is the zone number, 1-based.
	ID int `json:"id"`

	// Status is the zone's current lifecycle state.
	Status ZoneStatus `json:"status"`

	// Error holds the failure message when Status is StatusError.
	Error string `json:"error,omitempty"`
}
