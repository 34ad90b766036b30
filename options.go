// options.go provides the functional-options configuration surfaces for
// mailbox overflow policy and scheduler selection, structurally mirroring
// eventloop/options.go's LoopOption/resolveLoopOptions pattern.
package lthread

import (
	"sync"

	"github.com/joeholt/lthread/scheduler"
)

// OverflowPolicy selects what Mailbox.Put does when a standard message
// would exceed the configured crowding threshold (spec.md §4.1).
type OverflowPolicy int

const (
	// PolicyBlock makes the sender wait until a slot frees up.
	PolicyBlock OverflowPolicy = iota
	// PolicyThrowFull fails the send with MailboxFullError.
	PolicyThrowFull
	// PolicyDrop silently discards the message.
	PolicyDrop
)

func (p OverflowPolicy) String() string {
	switch p {
	case PolicyBlock:
		return "block"
	case PolicyThrowFull:
		return "throw-full"
	case PolicyDrop:
		return "drop"
	default:
		return "unknown"
	}
}

// mailboxConfig holds the resolved crowding configuration for a Mailbox.
type mailboxConfig struct {
	maxMsgs   int
	policy    OverflowPolicy
	predicate func(Tid) bool // non-nil overrides policy: true=>Block, false=>Drop
}

// MailboxOption configures a Mailbox's overflow behavior.
type MailboxOption interface {
	applyMailbox(*mailboxConfig)
}

type mailboxOptionFunc func(*mailboxConfig)

func (f mailboxOptionFunc) applyMailbox(cfg *mailboxConfig) { f(cfg) }

// WithMaxMessages sets the crowding threshold for standard messages. n==0
// (the default) means unbounded.
func WithMaxMessages(n int) MailboxOption {
	return mailboxOptionFunc(func(cfg *mailboxConfig) { cfg.maxMsgs = n })
}

// WithOverflowPolicy sets the fixed policy applied once the crowding
// threshold is reached.
func WithOverflowPolicy(policy OverflowPolicy) MailboxOption {
	return mailboxOptionFunc(func(cfg *mailboxConfig) {
		cfg.policy = policy
		cfg.predicate = nil
	})
}

// WithOverflowPredicate installs a per-send predicate: true blocks the
// sender, false drops the message, overriding any fixed policy.
func WithOverflowPredicate(predicate func(Tid) bool) MailboxOption {
	return mailboxOptionFunc(func(cfg *mailboxConfig) { cfg.predicate = predicate })
}

func resolveMailboxOptions(opts []MailboxOption) *mailboxConfig {
	cfg := &mailboxConfig{policy: PolicyBlock}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt.applyMailbox(cfg)
	}
	return cfg
}

// --- Scheduler selection ---
//
// Installation is a process-wide side-effectful selection that must occur
// before the first Spawn (spec.md §5 "Scheduling model"). It is held in a
// package-level mutex-guarded slot, in the spirit of eventloop/logging.go's
// globalLogger: infrastructure-wide, shared by every logical thread.

var schedulerState struct {
	mu        sync.Mutex
	sched     scheduler.Scheduler
	spawnedAt bool // true once the first Spawn has happened
}

func init() {
	schedulerState.sched = scheduler.NewKernelScheduler()
}

// SetScheduler installs s as the process-wide scheduler. It fails with
// ErrSchedulerAlreadySet if a logical thread has already been spawned
// under the previous scheduler.
func SetScheduler(s scheduler.Scheduler) error {
	schedulerState.mu.Lock()
	defer schedulerState.mu.Unlock()
	if schedulerState.spawnedAt {
		return ErrSchedulerAlreadySet
	}
	schedulerState.sched = s
	return nil
}

func currentScheduler() scheduler.Scheduler {
	schedulerState.mu.Lock()
	defer schedulerState.mu.Unlock()
	return schedulerState.sched
}

func markSpawned() {
	schedulerState.mu.Lock()
	schedulerState.spawnedAt = true
	schedulerState.mu.Unlock()
}

// Run hands control to the installed scheduler's driving loop, running
// main as the first logical thread. It returns once every logical thread
// spawned under the installed scheduler has terminated. Schedulers that
// require a driving loop before any Spawn call (scheduler.FiberScheduler)
// must be started this way; scheduler.KernelScheduler works without it
// too, since Spawn alone is sufficient for per-goroutine execution.
func Run(main func()) error {
	markSpawned()
	return currentScheduler().Start(rootEntryWrapper(main))
}
