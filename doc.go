// Package lthread provides a typed message-passing concurrency core for
// in-process logical threads.
//
// # Architecture
//
// A logical thread is an independent execution context with its own stack,
// addressed only by an opaque [Tid] handle. Logical threads never share
// mutable state directly; they communicate exclusively by sending typed
// messages into each other's [Mailbox]. The runtime multiplexes logical
// threads onto one of two pluggable execution substrates, selected via
// [SetScheduler]:
//
//   - a kernel-thread scheduler, spawning one goroutine per logical thread
//     ([scheduler.NewKernelScheduler]);
//   - a cooperative fiber scheduler, running each logical thread on its own
//     goroutine but letting only one of them execute at a time, with
//     explicit baton hand-off ([scheduler.NewFiberScheduler]).
//
// # Core pieces
//
//   - [Mailbox]: a per-recipient bounded dual-lane (standard + priority)
//     queue with configurable overflow policy.
//   - [Receive], [ReceiveTimeout], [ReceiveOnly]: pattern-matching dispatch
//     over an ordered list of typed handlers.
//   - [Spawn], [SpawnLinked]: logical thread creation with owner/link
//     bookkeeping and guaranteed termination notification.
//   - [Register], [Unregister], [Locate]: a process-wide name registry.
//
// # Usage
//
//	child, _ := lthread.Spawn(func(args ...any) {
//	    owner, _ := lthread.OwnerTid()
//	    lthread.Receive(
//	        func(i int) { lthread.Send(owner, i*2) },
//	        func(s string) { lthread.Send(owner, s+s) },
//	    )
//	})
//	lthread.Send(child, 42)
//	n, _ := lthread.ReceiveOnly[int]()
//
// # Error types
//
// Dispatch and lifecycle failures are reported through typed errors:
// [MessageMismatchError], [OwnerTerminatedError], [LinkTerminatedError],
// [PriorityMessageError], [MailboxFullError], and [TidMissingError]. All
// wrap an underlying cause where one exists and support [errors.Is] /
// [errors.As].
package lthread
