// api.go assembles the primary public surface (spec.md §6) from the
// mailbox, dispatch, and scheduler pieces: Send/PrioritySend enqueue
// through Mailbox.Put, Receive/ReceiveTimeout/ReceiveOnly drive
// dispatch.go's receive engine against the calling logical thread's own
// mailbox.
package lthread

import "time"

// Send enqueues vals as a standard message addressed to to. Sending to the
// null Tid, or to a Tid whose mailbox has already closed, is a silent
// no-op (spec.md §3 invariant 5, §9 open question iii).
func Send(to Tid, vals ...any) error {
	if err := isolationCheck(vals); err != nil {
		return err
	}
	if to.IsNull() {
		return nil
	}
	return to.mailbox().Put(newMessage(KindStandard, vals...))
}

// PrioritySend enqueues vals as a priority message, which the receiver
// observes before any standard message still waiting at drain time
// (spec.md §3 invariant 3).
func PrioritySend(to Tid, vals ...any) error {
	if err := isolationCheck(vals); err != nil {
		return err
	}
	if to.IsNull() {
		return nil
	}
	return to.mailbox().Put(newMessage(KindPriority, vals...))
}

// Receive blocks until one of handlers matches a message in the calling
// logical thread's mailbox, dispatching it, or a LinkDead control message
// resolves to an unhandled OwnerTerminatedError/LinkTerminatedError.
func Receive(handlers ...Handler) error {
	specs, err := buildHandlerSpecs(handlers)
	if err != nil {
		return err
	}
	info := currentThreadInfo()
	_, err = receiveCore(info, specs, modeBlocking, 0)
	return err
}

// ReceiveTimeout behaves like Receive but bounds the wait to d: a zero or
// negative d never waits (it scans the local buffer and whatever has
// already arrived in the shared lists, then gives up); a positive d bounds
// the total wait against a deadline fixed on entry (spec.md §4.3
// "Timeout"). It reports whether a message was matched.
func ReceiveTimeout(d time.Duration, handlers ...Handler) (bool, error) {
	specs, err := buildHandlerSpecs(handlers)
	if err != nil {
		return false, err
	}
	info := currentThreadInfo()
	return receiveCore(info, specs, modeTimed, d)
}

// ReceiveOnly takes the next message unconditionally (priority lane
// first) and extracts it as T, or reports MessageMismatchError if its
// payload does not convert — unlike Receive, it never skips a
// non-matching message to look further ahead.
func ReceiveOnly[T any]() (T, error) {
	info := currentThreadInfo()
	return receiveOnlyCore[T](info)
}

// SetMaxMailboxSize configures tid's mailbox to apply policy once n
// standard messages are visible to the consumer (see spec.md §4.1
// "crowding check"). n==0 means unbounded.
func SetMaxMailboxSize(tid Tid, n int, policy OverflowPolicy) error {
	if tid.IsNull() {
		return &TidMissingError{Reason: "cannot configure the null tid"}
	}
	tid.mailbox().SetMax(n, policy, nil)
	return nil
}

// SetMaxMailboxPredicate configures tid's mailbox with a per-send
// predicate overriding any fixed policy: true blocks the sender, false
// drops the message (spec.md §6).
func SetMaxMailboxPredicate(tid Tid, n int, predicate func(Tid) bool) error {
	if tid.IsNull() {
		return &TidMissingError{Reason: "cannot configure the null tid"}
	}
	tid.mailbox().SetMax(n, PolicyBlock, predicate)
	return nil
}
