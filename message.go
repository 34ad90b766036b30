package lthread

import (
	"reflect"
	"strings"
)

// MessageKind distinguishes the three message shapes the mailbox ever
// stores: user-sent standard and priority messages, and the runtime's own
// LinkDead control message.
type MessageKind int

const (
	// KindStandard is an ordinary user message, subject to crowding.
	KindStandard MessageKind = iota
	// KindPriority is a priority-lane message; once drained to the
	// receiver, it is dispatched before any standard message.
	KindPriority
	// KindLinkDead is a control message carrying the Tid of a thread that
	// just terminated; it bypasses crowding and drives lifecycle
	// transitions in the receive dispatcher.
	KindLinkDead
)

func (k MessageKind) String() string {
	switch k {
	case KindStandard:
		return "standard"
	case KindPriority:
		return "priority"
	case KindLinkDead:
		return "link-dead"
	default:
		return "unknown"
	}
}

// Message is the unit of mailbox storage: a kind tag plus a dynamically
// typed payload.
type Message struct {
	Kind    MessageKind
	Payload Variant
}

func newMessage(kind MessageKind, vals ...any) Message {
	return Message{Kind: kind, Payload: newVariant(vals...)}
}

// Variant is a type-erased payload carrying a runtime type tag plus stored
// tuple arity. If the source call had N values, the payload is a 1-value
// if N==1 else an N-tuple; ConvertsTo and Get test and extract against a
// handler's parameter list by that arity.
type Variant struct {
	values []any
}

func newVariant(vals ...any) Variant {
	cp := make([]any, len(vals))
	copy(cp, vals)
	return Variant{values: cp}
}

// Arity returns the number of stored values.
func (v Variant) Arity() int { return len(v.values) }

// Values returns the stored values. Callers must not mutate the result.
func (v Variant) Values() []any { return v.values }

// TypeName renders the dynamic type tag, e.g. "int" for a single value or
// "(int, string)" for a tuple, used in MessageMismatchError and
// PriorityMessageError messages.
func (v Variant) TypeName() string {
	if len(v.values) == 1 {
		return typeNameOf(v.values[0])
	}
	names := make([]string, len(v.values))
	for i, val := range v.values {
		names[i] = typeNameOf(val)
	}
	return "(" + strings.Join(names, ", ") + ")"
}

func typeNameOf(val any) string {
	if val == nil {
		return "nil"
	}
	return reflect.TypeOf(val).String()
}

// ConvertsTo reports whether v's stored values structurally match paramTypes:
// same arity, and each value either assignable to the corresponding
// parameter type, or the parameter type is the universal "any"
// (interface{} with no methods), which always matches.
func (v Variant) ConvertsTo(paramTypes []reflect.Type) bool {
	if len(v.values) != len(paramTypes) {
		return false
	}
	for i, pt := range paramTypes {
		if isAnyType(pt) {
			continue
		}
		val := v.values[i]
		if val == nil {
			// only the wildcard "any" matches an explicit nil payload.
			return false
		}
		vt := reflect.TypeOf(val)
		if !vt.AssignableTo(pt) {
			return false
		}
	}
	return true
}

func isAnyType(t reflect.Type) bool {
	return t.Kind() == reflect.Interface && t.NumMethod() == 0
}

// reflectArgs builds the reflect.Value argument list for calling fn (whose
// parameter types are paramTypes) with v's stored values. Callers must have
// already gated on ConvertsTo.
func (v Variant) reflectArgs(paramTypes []reflect.Type) []reflect.Value {
	args := make([]reflect.Value, len(v.values))
	for i, val := range v.values {
		if val == nil {
			args[i] = reflect.Zero(paramTypes[i])
			continue
		}
		args[i] = reflect.ValueOf(val)
	}
	return args
}

// Map invokes op, a function whose parameter list matches v's arity and
// types, with v's destructured values. It panics if v does not convert to
// op's signature; callers always gate on ConvertsTo first.
func (v Variant) Map(op any) []any {
	fn := reflect.ValueOf(op)
	ft := fn.Type()
	paramTypes := make([]reflect.Type, ft.NumIn())
	for i := range paramTypes {
		paramTypes[i] = ft.In(i)
	}
	if !v.ConvertsTo(paramTypes) {
		panic("lthread: Variant.Map: value does not convert to op's parameter list")
	}
	out := fn.Call(v.reflectArgs(paramTypes))
	res := make([]any, len(out))
	for i, o := range out {
		res[i] = o.Interface()
	}
	return res
}

// Get extracts the stored value(s) as T, failing catastrophically (panic)
// if the arity/type does not match; callers must gate on a prior type
// check. It supports the common case of extracting a single value of type
// T.
func Get[T any](v Variant) T {
	if len(v.values) != 1 {
		panic("lthread: Variant.Get: arity mismatch")
	}
	val, ok := v.values[0].(T)
	if !ok {
		panic("lthread: Variant.Get: type mismatch")
	}
	return val
}
