// dispatch.go implements the receive engine (spec.md component E): static
// handler-list validation, the per-message first-match/bool-continuation/
// any-fallback algorithm, LinkDead control-message handling, and the
// blocking drain loop described in spec.md §4.1's get() pseudo-code. The
// drain loop lives here rather than in mailbox.go because it is
// inseparable from the matching algorithm it drives (see mailbox.go's
// package comment).
//
// Grounded on eventloop's staged, ordered dispatch within a tick
// (doc.go "Task priority ordering") for the general shape of walking an
// ordered list to find the next thing to run, and on options.go's
// validate-before-run discipline (resolveLoopOptions) for validating the
// handler list before any message is examined.
package lthread

import (
	"fmt"
	"reflect"
	"time"
)

// Handler is any function accepted by Receive/ReceiveTimeout. Its
// parameter list is matched against an arriving message's payload by arity
// and structural type compatibility (spec.md §4.2 ConvertsTo); its result
// is either nothing (accepts unconditionally once matched) or a single
// bool (false means "keep scanning as if I hadn't matched").
type Handler any

type handlerSpec struct {
	fn          reflect.Value
	paramTypes  []reflect.Type
	returnsBool bool
}

// buildHandlerSpecs reflects over handlers and runs the static validation
// spec.md §4.3 requires before dispatch begins: no ambiguous handlers
// (identical parameter lists) and no occluding wildcard (a void handler
// whose sole parameter is the universal "any" type must be last).
func buildHandlerSpecs(handlers []Handler) ([]handlerSpec, error) {
	specs := make([]handlerSpec, len(handlers))
	for i, h := range handlers {
		fv := reflect.ValueOf(h)
		if !fv.IsValid() || fv.Kind() != reflect.Func {
			return nil, fmt.Errorf("%w: handler %d is not a function", ErrBadHandlerList, i)
		}
		ft := fv.Type()
		pts := make([]reflect.Type, ft.NumIn())
		for j := range pts {
			pts[j] = ft.In(j)
		}
		returnsBool := false
		switch ft.NumOut() {
		case 0:
		case 1:
			if ft.Out(0).Kind() != reflect.Bool {
				return nil, fmt.Errorf("%w: handler %d must return nothing or bool", ErrBadHandlerList, i)
			}
			returnsBool = true
		default:
			return nil, fmt.Errorf("%w: handler %d returns more than one value", ErrBadHandlerList, i)
		}
		specs[i] = handlerSpec{fn: fv, paramTypes: pts, returnsBool: returnsBool}
	}
	if err := validateHandlerSpecs(specs); err != nil {
		return nil, err
	}
	return specs, nil
}

func validateHandlerSpecs(specs []handlerSpec) error {
	for i, s := range specs {
		if !s.returnsBool && len(s.paramTypes) == 1 && isAnyType(s.paramTypes[0]) && i != len(specs)-1 {
			return fmt.Errorf("%w: wildcard handler at position %d occludes %d subsequent handler(s)", ErrBadHandlerList, i, len(specs)-i-1)
		}
	}
	for i := 0; i < len(specs); i++ {
		for j := i + 1; j < len(specs); j++ {
			if sameParamTypes(specs[i].paramTypes, specs[j].paramTypes) {
				return fmt.Errorf("%w: handlers %d and %d share an identical parameter list", ErrBadHandlerList, i, j)
			}
		}
	}
	return nil
}

func sameParamTypes(a, b []reflect.Type) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// matchAndCall walks specs in order against payload (spec.md §4.3 step 2):
// the first handler whose parameter list payload converts to is invoked;
// a bool-returning handler that returns false is treated as a non-match
// and the walk continues to the next handler. It reports whether some
// handler accepted the message (and, by virtue of having been called,
// already ran).
func matchAndCall(specs []handlerSpec, payload Variant) bool {
	for _, s := range specs {
		if !payload.ConvertsTo(s.paramTypes) {
			continue
		}
		args := payload.reflectArgs(s.paramTypes)
		out := s.fn.Call(args)
		if s.returnsBool && !out[0].Bool() {
			continue
		}
		return true
	}
	return false
}

// receiveMode distinguishes the plain, wait-forever Receive from
// ReceiveTimeout's bounded-wait semantics (spec.md §4.3 "Timeout").
type receiveMode int

const (
	modeBlocking receiveMode = iota
	modeTimed
)

// processLinkDead implements spec.md §4.3 step 1 for one LinkDead payload:
// it updates info's owner/link bookkeeping, and if the dying peer was this
// thread's owner or a link flagged link_back=true, synthesizes the
// corresponding typed event and re-dispatches it through the handler list.
// done reports whether this LinkDead should end the current receive call
// (true for owner/flagged-link deaths); err is non-nil only when the
// synthesized event found no accepting handler.
func (info *ThreadInfo) processLinkDead(specs []handlerSpec, tid Tid) (done bool, err error) {
	info.mu.Lock()
	isOwner := info.Owner == tid
	linkBack, wasLinked := info.Links[tid]
	info.mu.Unlock()
	info.clearPeer(tid)

	switch {
	case isOwner:
		payload := newVariant(error(&OwnerTerminatedError{Tid: tid}))
		if matchAndCall(specs, payload) {
			return true, nil
		}
		return true, &OwnerTerminatedError{Tid: tid}
	case wasLinked && linkBack:
		payload := newVariant(error(&LinkTerminatedError{Tid: tid}))
		if matchAndCall(specs, payload) {
			return true, nil
		}
		return true, &LinkTerminatedError{Tid: tid}
	default:
		// link_back=false (or an already-cleared peer): pure bookkeeping,
		// no event surfaces to the receiver.
		return false, nil
	}
}

// tryDispatchPty inspects the front of local_pty (spec.md §4.1 get() step
// 1). found reports whether a priority message was present at all; when
// found, matched/err report the outcome (a priority message with no
// accepting handler is never silently dropped — it is consumed and
// reported as PriorityMessageError, per spec.md §4.3/§7).
func tryDispatchPty(specs []handlerSpec, mb *Mailbox) (matched bool, err error, found bool) {
	msg, ok := mb.localPty.PopFront()
	if !ok {
		return false, nil, false
	}
	if matchAndCall(specs, msg.Payload) {
		return true, nil, true
	}
	return false, &PriorityMessageError{Payload: msg.Payload}, true
}

// scanStd walks list once (spec.md §4.1 get() step 2 / step 6's "scan
// arrived"), handling LinkDead control messages inline and otherwise
// applying the per-message matching algorithm. It leaves every
// non-matching, non-control message in place, in order, for a future scan.
func scanStd(info *ThreadInfo, specs []handlerSpec, list *ilist[Message]) (matched bool, err error, found bool) {
	c := list.Cursor()
	ok := c.Next()
	for ok {
		msg := c.Value()
		if msg.Kind == KindLinkDead {
			tid, valid := linkDeadTid(msg)
			c.Remove()
			ok = c.More()
			if !valid {
				continue
			}
			done, herr := info.processLinkDead(specs, tid)
			if done {
				return herr == nil, herr, true
			}
			continue
		}
		if matchAndCall(specs, msg.Payload) {
			c.Remove()
			return true, nil, true
		}
		ok = c.Next()
	}
	return false, nil, false
}

// receiveCore implements the full get() algorithm of spec.md §4.1 for a
// handler-list receive: local-buffer scans, a scheduler yield, the
// mutex-guarded wait-and-splice cycle, and the re-scan of newly arrived
// messages, repeating until a message is matched or (ReceiveTimeout) the
// deadline expires.
func receiveCore(info *ThreadInfo, specs []handlerSpec, mode receiveMode, d time.Duration) (bool, error) {
	mb := info.Ident.mailbox()
	var deadline time.Time
	if mode == modeTimed && d > 0 {
		deadline = time.Now().Add(d)
	}

	for {
		if matched, err, found := tryDispatchPty(specs, mb); found {
			return matched, err
		}
		if matched, err, found := scanStd(info, specs, mb.localStd); found {
			return matched, err
		}

		currentScheduler().YieldNow()

		mb.mu.Lock()
		mb.localMsgs = mb.localStd.Len()
		for mb.sharedStd.Len() == 0 && mb.sharedPty.Len() == 0 {
			if mb.putQueue > 0 && !mb.isCrowded() {
				mb.notFullCond.Broadcast()
			}
			if mb.closed {
				mb.mu.Unlock()
				return false, nil
			}
			switch {
			case mode == modeBlocking:
				mb.putCond.Wait()
			case d <= 0:
				mb.mu.Unlock()
				return false, nil
			default:
				remaining := time.Until(deadline)
				if remaining <= 0 {
					mb.mu.Unlock()
					return false, nil
				}
				if !mb.putCond.WaitTimeout(remaining) {
					mb.mu.Unlock()
					return false, nil
				}
			}
		}

		arrived := newIlist(messageNodePool)
		arrived.SpliceBack(mb.sharedStd)
		mb.localPty.SpliceBack(mb.sharedPty)
		mb.mu.Unlock()

		if mb.localPty.Len() > 0 {
			mb.localStd.SpliceBack(arrived)
			if matched, err, found := tryDispatchPty(specs, mb); found {
				return matched, err
			}
			continue
		}

		if matched, err, found := scanStd(info, specs, arrived); found {
			mb.localStd.SpliceBack(arrived)
			return matched, err
		}
		mb.localStd.SpliceBack(arrived)
	}
}

// typeOfT reports the reflect.Type of a generic type parameter, including
// interface types (for which reflect.TypeOf(zero) would otherwise report
// nothing, since a nil interface value carries no dynamic type).
func typeOfT[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

// popFrontSkippingLinkDead removes and returns the first non-control
// message from list, transparently processing any LinkDead entries ahead
// of it exactly as scanStd would (spec.md §4.3 step 1), but without
// consulting a handler list (ReceiveOnly takes whatever message is next
// unconditionally, so a synthesized owner/link-termination event with no
// handlers is always unhandled and always raised).
func popFrontSkippingLinkDead(info *ThreadInfo, list *ilist[Message]) (msg Message, ok bool, err error) {
	for {
		m, present := list.Front()
		if !present {
			return Message{}, false, nil
		}
		list.PopFront()
		if m.Kind != KindLinkDead {
			return m, true, nil
		}
		tid, valid := linkDeadTid(m)
		if !valid {
			continue
		}
		done, herr := info.processLinkDead(nil, tid)
		if done {
			return Message{}, false, herr
		}
	}
}

// extractOrMismatch converts msg's payload to T, or reports
// MessageMismatchError with the exact wording spec.md's seed test #2
// requires ("Unexpected message type: expected '%s', got '%s'").
func extractOrMismatch[T any](msg Message) (T, error) {
	var zero T
	pt := typeOfT[T]()
	if !msg.Payload.ConvertsTo([]reflect.Type{pt}) {
		return zero, &MessageMismatchError{Expected: pt.String(), Got: msg.Payload.TypeName()}
	}
	return Get[T](msg.Payload), nil
}

// receiveOnlyCore implements ReceiveOnly[T]'s unconditional next-message
// semantics: unlike handler-based receive, it never skips a message that
// fails to match — it takes whatever is next (priority lane first, per
// spec.md invariant 3) and either extracts T or reports MessageMismatch.
func receiveOnlyCore[T any](info *ThreadInfo) (T, error) {
	var zero T
	mb := info.Ident.mailbox()

	for {
		if msg, ok := mb.localPty.PopFront(); ok {
			return extractOrMismatch[T](msg)
		}
		if msg, ok, err := popFrontSkippingLinkDead(info, mb.localStd); err != nil {
			return zero, err
		} else if ok {
			return extractOrMismatch[T](msg)
		}

		currentScheduler().YieldNow()

		mb.mu.Lock()
		mb.localMsgs = mb.localStd.Len()
		for mb.sharedStd.Len() == 0 && mb.sharedPty.Len() == 0 {
			if mb.putQueue > 0 && !mb.isCrowded() {
				mb.notFullCond.Broadcast()
			}
			if mb.closed {
				mb.mu.Unlock()
				return zero, nil
			}
			mb.putCond.Wait()
		}
		arrived := newIlist(messageNodePool)
		arrived.SpliceBack(mb.sharedStd)
		mb.localPty.SpliceBack(mb.sharedPty)
		mb.mu.Unlock()
		mb.localStd.SpliceBack(arrived)
	}
}
