// spawn.go implements spec.md component F (spawn/link/lifecycle): the
// entry-wrapper sequence spec.md §4.5 describes, the isolation check
// spec.md §6 requires of spawn/send argument lists, and the
// cleanup-on-every-exit-path fan-out of LinkDead control messages.
//
// Grounded on spec.md §4.5 directly; the "install state, run body, tear
// down on every exit" shape mirrors the defer-based cleanup idiom used
// throughout eventloop/loop.go's Run/Shutdown.
package lthread

import (
	"fmt"
	"reflect"

	"github.com/joeycumines/goroutineid"
)

var tidType = reflect.TypeOf(Tid{})

// isolationCheck rejects any argument whose value graph could alias
// mutable state held by another logical thread, per spec.md §6's
// "Isolation check". Tid is explicitly exempted: a mailbox handle is
// intrinsically shareable. Everything else must be built entirely from
// value types with no reference indirection (no pointer, channel, func,
// map, slice, or interface anywhere in its structure); strings and arrays
// of permitted element types are fine since Go strings are immutable and
// arrays are copied by value.
func isolationCheck(args []any) error {
	for i, a := range args {
		if a == nil {
			continue
		}
		if err := checkIsolatedType(reflect.TypeOf(a), make(map[reflect.Type]bool)); err != nil {
			return fmt.Errorf("lthread: argument %d is not isolation-safe: %w", i, err)
		}
	}
	return nil
}

func checkIsolatedType(t reflect.Type, seen map[reflect.Type]bool) error {
	if t == tidType {
		return nil
	}
	if seen[t] {
		// already being validated higher up a recursive type; assume ok
		// rather than looping forever.
		return nil
	}
	seen[t] = true
	switch t.Kind() {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64, reflect.Complex64, reflect.Complex128,
		reflect.String:
		return nil
	case reflect.Array:
		return checkIsolatedType(t.Elem(), seen)
	case reflect.Struct:
		for i := 0; i < t.NumField(); i++ {
			if err := checkIsolatedType(t.Field(i).Type, seen); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("type %s may alias mutable state across logical threads", t)
	}
}

// Spawn creates a new logical thread running fn(args...), owned by the
// calling logical thread, and returns its handle. args must pass
// isolationCheck.
func Spawn(fn func(args ...any), args ...any) (Tid, error) {
	return spawn(false, fn, args)
}

// SpawnLinked behaves like Spawn but records the child in the parent's link
// set with link_back set, so the child's termination surfaces in the
// parent's receive as a LinkTerminated event instead of being consumed
// silently. As with Spawn, the parent's own exit notifies the child, which
// observes it as owner termination.
func SpawnLinked(fn func(args ...any), args ...any) (Tid, error) {
	return spawn(true, fn, args)
}

func spawn(linked bool, fn func(args ...any), args []any) (Tid, error) {
	if err := isolationCheck(args); err != nil {
		return NullTid, err
	}

	parent := currentThreadInfo()
	child := tidOf(newMailbox())
	info := newThreadInfo(child)
	info.Owner = parent.Ident

	entry := func() {
		gid := goroutineid.Get()
		bindThreadInfo(gid, info)
		defer unbindThreadInfo(gid)
		defer cleanup(info)
		fn(args...)
	}

	markSpawned()
	parent.addLink(child, linked)

	if err := currentScheduler().Spawn(entry); err != nil {
		return NullTid, err
	}
	logf(LevelInfo, "lifecycle", child.String(), nil, "spawned", map[string]any{
		"linked": linked,
		"owner":  parent.Ident.String(),
	})
	return child, nil
}

// sendLinkDead enqueues a LinkDead control message carrying self, bypassing
// isolationCheck and the public Send wrapper: it is infrastructure, not a
// user-level send.
func sendLinkDead(to, self Tid) {
	if to.IsNull() {
		return
	}
	_ = to.mailbox().Put(newMessage(KindLinkDead, self))
}

// cleanup runs on every exit path of a spawned logical thread's body
// (spec.md §4.5 "Cleanup"): close its own mailbox, unregister any bound
// names, and notify its owner and every linked peer with LinkDead(self).
// Errors during teardown are swallowed (spec.md §7 "Propagation policy")
// so a failure notifying one peer never prevents notifying the rest.
func cleanup(info *ThreadInfo) {
	self := info.Ident

	safely(func() { self.mailbox().Close(info) })
	safely(func() { unregisterAll(self) })

	owner, links := info.snapshotPeers()
	for peer := range links {
		p := peer
		safely(func() { sendLinkDead(p, self) })
	}
	if !owner.IsNull() {
		safely(func() { sendLinkDead(owner, self) })
	}
	logf(LevelInfo, "lifecycle", self.String(), nil, "terminated", nil)
}

func safely(f func()) {
	defer func() { recover() }()
	f()
}

// rootEntryWrapper installs a fresh ThreadInfo for the scheduler-driven
// root logical thread that Run starts, matching spawn's entry wrapper
// except that the root has no owner and no parent ThreadInfo to link
// from.
func rootEntryWrapper(main func()) func() {
	return func() {
		info := newThreadInfo(tidOf(newMailbox()))
		gid := goroutineid.Get()
		bindThreadInfo(gid, info)
		defer unbindThreadInfo(gid)
		defer cleanup(info)
		main()
	}
}
