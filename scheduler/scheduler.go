package scheduler

import (
	"sync"
	"time"
)

// Scheduler abstracts how logical thread bodies are actually executed.
// Implementations must guarantee that any per-thread state a caller
// installs into op's closure before calling Spawn is visible to op once it
// starts running (ordinary Go happens-before via goroutine creation is
// sufficient and is what both reference implementations rely on).
type Scheduler interface {
	// Start enters the scheduler's main loop: it creates a logical thread
	// running body and returns only after every logical thread created
	// under this scheduler (including ones spawned transitively) has
	// terminated.
	Start(body func()) error

	// Spawn creates a new logical thread running op. For schedulers that
	// require a driving loop (FiberScheduler), Spawn must not be called
	// before Start.
	Spawn(op func()) error

	// YieldNow cooperatively hands off control. It is a no-op for
	// preemptive schedulers.
	YieldNow()

	// NewCondition produces a condition-variable analog associated with
	// mu, the external lock the caller already holds whenever it calls
	// Wait/WaitTimeout/Signal/Broadcast on the result.
	NewCondition(mu sync.Locker) Condition
}

// Condition is a condition-variable analog. Wait and WaitTimeout must be
// called with the associated mutex held; they unlock it for the duration
// of the wait and relock it before returning, matching sync.Cond's
// contract so mailbox code can be written the same way regardless of which
// Scheduler is installed.
type Condition interface {
	// Wait blocks until Signal or Broadcast is observed.
	Wait()
	// WaitTimeout blocks until Signal/Broadcast is observed or d elapses,
	// returning false on expiry.
	WaitTimeout(d time.Duration) bool
	// Signal wakes at least one waiter, if any are waiting.
	Signal()
	// Broadcast wakes all current waiters.
	Broadcast()
}
