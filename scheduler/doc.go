// Package scheduler provides the pluggable execution substrate for logical
// threads: an abstraction over how a logical thread's body is actually run,
// plus a condition-variable analog ([Condition]) that suspends correctly
// under whichever implementation is installed.
//
// Two reference implementations are provided:
//
//   - [KernelScheduler] spawns one goroutine per logical thread and lets the
//     Go runtime schedule them preemptively across OS threads.
//   - [FiberScheduler] runs every logical thread's body on its own goroutine
//     too, but serializes them behind a single baton: only the fiber
//     holding the baton ever executes application code, so the whole
//     scheduler behaves like a single-OS-thread cooperative coroutine
//     runtime even though Go itself is multiplexing real goroutines
//     underneath.
//
// Grounded on eventloop/state.go's CAS-driven lifecycle state machine
// (FastState) for fiber run/sleep/terminal bookkeeping, and on
// eventloop/loop.go's single-active-goroutine execution discipline for why
// only one fiber may hold the baton at a time.
package scheduler
