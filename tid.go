package lthread

import "fmt"

// Tid is an opaque handle to exactly one Mailbox. It is cheap to copy,
// freely embeddable in messages, and remains valid after the referenced
// logical thread has terminated: sends into a dead Tid silently become
// no-ops (see Mailbox.Put). Tid equality and hashing are identity of the
// referenced mailbox, which Go gives for free via pointer comparison.
type Tid struct {
	mbox *Mailbox
}

// NullTid is the distinguished "no owner" / "no target" handle.
var NullTid = Tid{}

// IsNull reports whether t is the null handle.
func (t Tid) IsNull() bool {
	return t.mbox == nil
}

// String returns a debug-friendly representation of the handle.
func (t Tid) String() string {
	if t.IsNull() {
		return "tid<nil>"
	}
	return fmt.Sprintf("tid<%p>", t.mbox)
}

// mailbox returns the referenced Mailbox, or nil for the null handle.
func (t Tid) mailbox() *Mailbox {
	return t.mbox
}

// tidOf constructs the Tid referencing mb.
func tidOf(mb *Mailbox) Tid {
	return Tid{mbox: mb}
}
