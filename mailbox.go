// mailbox.go implements the per-recipient dual-lane bounded queue (spec.md
// component B): Put/Close/SetMax and the shared/local split. The blocking
// receive-side drain loop lives in dispatch.go, since it is inseparable
// from the matching algorithm it drives.
//
// Grounded on eventloop/ingress.go's ChunkedIngress (mutex-protected shared
// side, "caller must hold external mutex" contract for the local side) and
// eventloop/loop.go's condition-variable-driven sleep/wake transition.
package lthread

import (
	"sync"

	"github.com/joeholt/lthread/scheduler"
)

// Mailbox is a per-recipient bounded dual-lane message queue. The zero
// value is not usable; construct one via newMailbox.
type Mailbox struct {
	mu sync.Mutex

	putCond     scheduler.Condition // put_cv: signaled whenever shared_* gains a message
	notFullCond scheduler.Condition // not_full_cv: signaled when crowding may have eased

	sharedStd *ilist[Message]
	sharedPty *ilist[Message]
	localStd  *ilist[Message]
	localPty  *ilist[Message]

	localMsgs int // cache of local_std length, refreshed by the receive loop in dispatch.go
	putQueue  int // count of producers parked in notFullCond

	closed bool
	cfg    mailboxConfig
}

func newMailbox(opts ...MailboxOption) *Mailbox {
	cfg := resolveMailboxOptions(opts)
	m := &Mailbox{
		sharedStd: newIlist(messageNodePool),
		sharedPty: newIlist(messageNodePool),
		localStd:  newIlist(messageNodePool),
		localPty:  newIlist(messageNodePool),
		cfg:       *cfg,
	}
	sched := currentScheduler()
	m.putCond = sched.NewCondition(&m.mu)
	m.notFullCond = sched.NewCondition(&m.mu)
	return m
}

// isCrowded implements spec.md §4.1's crowding check: max_msgs != 0 AND
// max_msgs <= local_msgs + shared_std.length. Must be called with mu held.
func (m *Mailbox) isCrowded() bool {
	if m.cfg.maxMsgs == 0 {
		return false
	}
	return m.cfg.maxMsgs <= clampMin0(m.localMsgs+m.sharedStd.Len())
}

// Put enqueues msg, applying the crowding check and configured overflow
// policy to standard messages; priority and control (LinkDead) messages
// always bypass crowding (spec.md §4.1, invariant 4).
func (m *Mailbox) Put(msg Message) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		logf(LevelDebug, "mailbox", tidOf(m).String(), nil, "put on closed mailbox discarded", nil)
		return nil
	}

	if msg.Kind == KindPriority {
		m.sharedPty.PushBack(msg)
		m.putCond.Broadcast()
		m.mu.Unlock()
		return nil
	}

	for {
		if msg.Kind == KindLinkDead || !m.isCrowded() {
			m.sharedStd.PushBack(msg)
			m.putCond.Broadcast()
			m.mu.Unlock()
			return nil
		}

		shouldBlock := m.cfg.policy == PolicyBlock
		if m.cfg.predicate != nil {
			shouldBlock = m.cfg.predicate(tidOf(m))
		}

		switch {
		case shouldBlock:
			m.putQueue++
			m.notFullCond.Wait()
			m.putQueue--
			if m.closed {
				m.mu.Unlock()
				return nil
			}
			// retry: crowding may have eased, or not; loop re-checks.
		case m.cfg.predicate != nil:
			// predicate said "don't block" => Drop.
			m.mu.Unlock()
			return nil
		case m.cfg.policy == PolicyThrowFull:
			m.mu.Unlock()
			logf(LevelWarn, "mailbox", tidOf(m).String(), nil, "mailbox full, throwing", nil)
			return &MailboxFullError{Tid: tidOf(m)}
		default: // PolicyDrop
			m.mu.Unlock()
			logf(LevelWarn, "mailbox", tidOf(m).String(), nil, "mailbox full, dropping message", nil)
			return nil
		}
	}
}

// Close drains the shared side into the local side, marks the mailbox
// closed, then discards every buffered message, sweeping local_std for
// LinkDead control messages on the way (clearing the corresponding entries
// from info so a subsequent self-cleanup fan-out does not try to notify an
// already-dead peer). info may be
// nil if the caller has no ThreadInfo to reconcile (e.g. closing a
// mailbox that was never bound to a spawned logical thread).
func (m *Mailbox) Close(info *ThreadInfo) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.localPty.SpliceBack(m.sharedPty)
	m.localStd.SpliceBack(m.sharedStd)
	m.closed = true
	m.putCond.Broadcast()
	m.notFullCond.Broadcast()
	m.mu.Unlock()

	for {
		msg, ok := m.localStd.PopFront()
		if !ok {
			break
		}
		if info != nil && msg.Kind == KindLinkDead {
			if tid, ok2 := linkDeadTid(msg); ok2 {
				info.clearPeer(tid)
			}
		}
	}
	for {
		if _, ok := m.localPty.PopFront(); !ok {
			break
		}
	}
	logf(LevelInfo, "lifecycle", tidOf(m).String(), nil, "mailbox closed", nil)
}

// SetMax updates the crowding threshold and overflow policy, waking any
// producers parked in notFullCond so they can reevaluate against the new
// configuration.
func (m *Mailbox) SetMax(n int, policy OverflowPolicy, predicate func(Tid) bool) {
	m.mu.Lock()
	m.cfg.maxMsgs = n
	m.cfg.policy = policy
	m.cfg.predicate = predicate
	m.notFullCond.Broadcast()
	m.mu.Unlock()
}

func linkDeadTid(msg Message) (Tid, bool) {
	if msg.Payload.Arity() != 1 {
		return NullTid, false
	}
	tid, ok := msg.Payload.Values()[0].(Tid)
	return tid, ok
}
