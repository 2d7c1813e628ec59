// Package multizone tracks zone selection and status for fan-out execution.
//
// The device addresses up to four independent zones through a 4-bit mask
// protocol: before a zone receives a command, the engine sends a mask
// command selecting exactly that zone, then the base command itself.
//
//	┌─────────────────────────────────────────────┐
//	│              Manager (manager.go)            │
//	│  Zone selection, mask building, status map   │
//	│                                              │
//	│  SetZones({1,3})  -> mask 0101               │
//	│  MaskCommand(3)   -> "multizone 0100"        │
//	│  per-zone Status: inactive/active/executing/ │
//	│                   completed/error            │
//	└─────────────────────────────────────────────┘
//
// # Key Types
//
//   - Manager: Thread-safe zone registry and mask builder
//   - ZoneInfo: One zone's status, progress and error text
//   - ZoneStatus: Lifecycle state of a zone during fan-out
//
// # Thread Safety
//
// Manager is safe for concurrent use from multiple goroutines.
// Fan-out itself executes zones strictly in ascending order; this package
// only tracks state, it never dispatches commands.
package multizone
