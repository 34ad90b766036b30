// thread.go implements ThreadInfo (spec.md §3 "Per-thread state") and its
// binding to the goroutine that is actually executing a given logical
// thread's body, via the goroutine-id package the rest of this corpus
// already depends on (no native Go TLS exists).
package lthread

import (
	"sync"

	"github.com/joeycumines/goroutineid"
)

// ThreadInfo holds the per-logical-thread bookkeeping spec.md §3
// describes: its own identity, its owner (or the null Tid), and its link
// set, where each entry's boolean records whether the owning side wants a
// LinkTerminated propagated (link_back).
type ThreadInfo struct {
	mu    sync.Mutex
	Ident Tid
	Owner Tid
	Links map[Tid]bool
}

func newThreadInfo(ident Tid) *ThreadInfo {
	return &ThreadInfo{Ident: ident, Owner: NullTid, Links: make(map[Tid]bool)}
}

func (t *ThreadInfo) addLink(peer Tid, linkBack bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Links[peer] = linkBack
}

// linkFlag reports the link_back flag recorded for peer, and whether peer
// was linked at all.
func (t *ThreadInfo) linkFlag(peer Tid) (linkBack, exists bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	lb, ok := t.Links[peer]
	return lb, ok
}

// clearPeer removes peer from the link set and, if peer was the owner,
// clears Owner to NullTid. It is called when a LinkDead control message
// for peer is processed (spec.md §4.3 step 1).
func (t *ThreadInfo) clearPeer(peer Tid) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.Links, peer)
	if t.Owner == peer {
		t.Owner = NullTid
	}
}

// snapshotPeers returns the owner and a copy of the link set, used by
// cleanup to fan out LinkDead without holding the lock across sends.
func (t *ThreadInfo) snapshotPeers() (owner Tid, links map[Tid]bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	cp := make(map[Tid]bool, len(t.Links))
	for k, v := range t.Links {
		cp[k] = v
	}
	return t.Owner, cp
}

// threadRegistry maps a goroutine id to the ThreadInfo of the logical
// thread currently running on it.
var threadRegistry sync.Map // int64 -> *ThreadInfo

func bindThreadInfo(gid int64, info *ThreadInfo) {
	threadRegistry.Store(gid, info)
}

func unbindThreadInfo(gid int64) {
	threadRegistry.Delete(gid)
}

// currentThreadInfo returns the ThreadInfo bound to the calling goroutine,
// lazily creating one (with a fresh mailbox, no owner) if this goroutine
// has never participated before — spec.md §4.4 this_info()'s "falling
// back to a thread-local default".
func currentThreadInfo() *ThreadInfo {
	gid := goroutineid.Get()
	if v, ok := threadRegistry.Load(gid); ok {
		return v.(*ThreadInfo)
	}
	info := newThreadInfo(tidOf(newMailbox()))
	actual, _ := threadRegistry.LoadOrStore(gid, info)
	return actual.(*ThreadInfo)
}

// ThisTid returns the calling logical thread's handle, lazy-initializing
// its mailbox if this is the first call made by this goroutine.
func ThisTid() Tid {
	return currentThreadInfo().Ident
}

// OwnerTid returns the calling logical thread's owner, or a TidMissingError
// if it has none.
func OwnerTid() (Tid, error) {
	info := currentThreadInfo()
	info.mu.Lock()
	owner := info.Owner
	info.mu.Unlock()
	if owner.IsNull() {
		return NullTid, &TidMissingError{Reason: "no owner tid"}
	}
	return owner, nil
}
