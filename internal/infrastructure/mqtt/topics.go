package mqtt

import "fmt"

// Topic prefixes for the sequencer MQTT namespace.
//
// The daemon does not own a serial port. A serial bridge process relays raw
// command lines to the device and publishes each response line back, so every
// device interaction travels through the broker:
//
//	ogsequence/device/command   <- raw command lines (daemon publishes)
//	ogsequence/device/response  -> raw response lines (bridge publishes)
const (
	// TopicPrefix is the base for all sequencer topics.
	TopicPrefix = "ogsequence"

	// TopicPrefixDevice is the base for the serial-bridge relay topics.
	TopicPrefixDevice = "ogsequence/device"

	// TopicPrefixExecution is the base for execution lifecycle events.
	TopicPrefixExecution = "ogsequence/execution"

	// TopicPrefixZone is the base for zone status topics.
	TopicPrefixZone = "ogsequence/zone"

	// TopicPrefixControl is the base for run control topics.
	TopicPrefixControl = "ogsequence/control"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = "ogsequence/system"
)

// Topics provides builders for sequencer MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
//
//	topics := mqtt.Topics{}
//	cmdTopic := topics.DeviceCommand()
//	// Returns: "ogsequence/device/command"
type Topics struct{}

// =============================================================================
// Device Relay Topics
// =============================================================================

// DeviceCommand returns the topic raw command lines are published to.
//
// Example: ogsequence/device/command
func (Topics) DeviceCommand() string {
	return fmt.Sprintf("%s/command", TopicPrefixDevice)
}

// DeviceResponse returns the topic the serial bridge publishes device
// response lines on.
//
// Example: ogsequence/device/response
func (Topics) DeviceResponse() string {
	return fmt.Sprintf("%s/response", TopicPrefixDevice)
}

// =============================================================================
// Execution Event Topics
// =============================================================================

// ExecutionStarted returns the topic for run-start events.
//
// Example: ogsequence/execution/exec-abc123/started
func (Topics) ExecutionStarted(executionID string) string {
	return fmt.Sprintf("%s/%s/started", TopicPrefixExecution, executionID)
}

// ExecutionProgress returns the topic for per-run progress updates.
//
// Example: ogsequence/execution/exec-abc123/progress
func (Topics) ExecutionProgress(executionID string) string {
	return fmt.Sprintf("%s/%s/progress", TopicPrefixExecution, executionID)
}

// ExecutionCommand returns the topic for per-command result events.
//
// Example: ogsequence/execution/exec-abc123/command
func (Topics) ExecutionCommand(executionID string) string {
	return fmt.Sprintf("%s/%s/command", TopicPrefixExecution, executionID)
}

// ExecutionFinished returns the topic for run completion events.
//
// Example: ogsequence/execution/exec-abc123/finished
func (Topics) ExecutionFinished(executionID string) string {
	return fmt.Sprintf("%s/%s/finished", TopicPrefixExecution, executionID)
}

// =============================================================================
// Zone Topics
// =============================================================================

// ZoneStatus returns the status topic for one zone.
//
// Example: ogsequence/zone/3/status
func (Topics) ZoneStatus(zoneID int) string {
	return fmt.Sprintf("%s/%d/status", TopicPrefixZone, zoneID)
}

// =============================================================================
// Run Control Topics
// =============================================================================

// ControlCancel returns the topic a UI publishes to cancel the running execution.
//
// Example: ogsequence/control/cancel
func (Topics) ControlCancel() string {
	return fmt.Sprintf("%s/cancel", TopicPrefixControl)
}

// ControlPause returns the topic a UI publishes to pause the running execution.
//
// Example: ogsequence/control/pause
func (Topics) ControlPause() string {
	return fmt.Sprintf("%s/pause", TopicPrefixControl)
}

// ControlResume returns the topic a UI publishes to resume a paused execution.
//
// Example: ogsequence/control/resume
func (Topics) ControlResume() string {
	return fmt.Sprintf("%s/resume", TopicPrefixControl)
}

// =============================================================================
// System Topics
// =============================================================================

// SystemStatus returns the daemon status topic (retained online/offline).
//
// Example: ogsequence/system/status
func (Topics) SystemStatus() string {
	return fmt.Sprintf("%s/status", TopicPrefixSystem)
}

// =============================================================================
// Wildcard Patterns for Subscriptions
// =============================================================================

// AllExecutionEvents returns a pattern matching every execution event.
//
// Pattern: ogsequence/execution/+/+
func (Topics) AllExecutionEvents() string {
	return fmt.Sprintf("%s/+/+", TopicPrefixExecution)
}

// AllZoneStatus returns a pattern matching every zone status topic.
//
// Pattern: ogsequence/zone/+/status
func (Topics) AllZoneStatus() string {
	return fmt.Sprintf("%s/+/status", TopicPrefixZone)
}

// AllControl returns a pattern matching every run control topic.
//
// Pattern: ogsequence/control/+
func (Topics) AllControl() string {
	return fmt.Sprintf("%s/+", TopicPrefixControl)
}

// AllTopics returns a pattern matching all sequencer topics.
// Use with caution - this receives ALL traffic.
//
// Pattern: ogsequence/#
func (Topics) AllTopics() string {
	return TopicPrefix + "/#"
}
