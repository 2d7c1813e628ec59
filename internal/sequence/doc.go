// Package sequence implements the command sequence engine: named
// command lists are stored, validated, expanded and executed against a
// serial-attached device reached through a transport.
//
// # Architecture
//
//	                 ┌─────────────────────────────────────────┐
//	                 │                 Manager                  │
//	                 │  sequence/button tables · flags · stats  │
//	                 └──────┬───────────┬───────────┬──────────┘
//	                        │           │           │
//	                  ┌─────▼────┐ ┌────▼─────┐ ┌───▼────┐
//	                  │ Validator│ │ Expander │ │Searcher│
//	                  │ (Parser) │ │ (cache)  │ │(index) │
//	                  └──────────┘ └──────────┘ └────────┘
//	                        │
//	                  ┌─────▼─────┐   pause/resume/cancel
//	                  │  Worker   │◄──────────────────────
//	                  └─────┬─────┘
//	                  ┌─────▼─────┐   send        ┌───────────┐
//	                  │ Executor  │──────────────►│ Transport │
//	                  │           │◄──────────────│  (MQTT)   │
//	                  └───────────┘   responses   └───────────┘
//
// Commands are classified into a closed set of kinds by a hand-written,
// bounded parser. Execution walks the flat list in order: waits are
// sliced for prompt cancellation, if/else/endif blocks gate dispatch,
// stop_if_not gates the rest of the run, and multizone commands fan a
// base command out across the active zones. Every dispatched command
// waits for a keyword-classified acknowledgement before the next one.
//
// # Key Types
//
//   - Manager: Engine facade owning tables, flags, caches and run control
//   - Parser: Classifies raw commands into kinds with payloads
//   - Expander: Flattens nested sequence and button references
//   - Validator: Per-command and structural sequence checks
//   - Executor: Drives one run against the transport
//   - Worker: Background run with pause, resume and cancel
//   - CancellationToken: Generation-counted stop signal shared per run
//
// # Thread Safety
//
//   - Manager, FlagStore, Searcher and the caches are safe for
//     concurrent use
//   - ConditionalContext and Executor belong to a single run and are
//     not shared
//   - At most one execution runs at a time; starting another returns
//     ErrBusy
package sequence
