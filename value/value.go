// Package value implements the tagged uniform value model described in
// spec §3.1/§4.1: a small fixed-size Value that is either a primitive
// payload or a handle to a heap-allocated Object, plus the property
// lookup/assignment policy that makes prototype-chained, dual-natured
// (dense + string-keyed) objects behave consistently.
//
// Value is deliberately a flat struct rather than an interface the way the
// teacher's object.Object is: an operand stack of Values must let a JIT
// hook (jit.Hooks.CanJIT) decide "are all these arguments Numbers" without
// an interface type switch, and a flat tag field is what makes that check
// one comparison instead of a dynamic dispatch.
package value

import "fmt"

// Kind tags a Value's payload. These are the variants of spec §3.1's
// table, plus one unexported call-protocol tag (withThis, see WithThis)
// that is plumbing between GetMember and the next Call, not part of the
// observable value space. NeedThis is a BuiltinInfo flag, not a Kind.
type Kind uint8

const (
	// Empty is the sentinel for unwritten array slots; distinct from Undefined.
	Empty Kind = iota
	// Undefined is produced by missing lookups and explicit use.
	Undefined
	// Null is distinct from Undefined in equality and printing.
	Null
	// Bool is a boolean.
	Bool
	// Number is a 64-bit IEEE-754 float.
	Number
	// String is an immutable, byte-compared string.
	String
	// ObjectRef is a handle to an Object record: any non-primitive.
	ObjectRef
	// Arguments is a marker whose operations resolve against the current activation.
	Arguments

	// withThis is produced by GetMember when the resolved property was
	// NeedThis-marked; it carries (callee, receiver) to the next Call.
	withThis
)

// Value is the VM's uniform operand type.
type Value struct {
	kind Kind
	b    bool
	n    float64
	s    string
	obj  *Object

	// populated only when kind == withThis
	callee *Value
	recv   *Value
}

// Kind reports the value's tag.
func (v Value) Kind() Kind { return v.kind }

// IsEmpty, IsUndefined, IsNull, IsObject report the obvious.
func (v Value) IsEmpty() bool     { return v.kind == Empty }
func (v Value) IsUndefined() bool { return v.kind == Undefined }
func (v Value) IsNull() bool      { return v.kind == Null }
func (v Value) IsObject() bool    { return v.kind == ObjectRef }
func (v Value) IsNumber() bool    { return v.kind == Number }
func (v Value) IsString() bool    { return v.kind == String }
func (v Value) IsCallable() bool {
	return v.kind == ObjectRef && (v.obj.Kind == FunctionObj || v.obj.Kind == BuiltinObj)
}

// Bool, Num, Str, Obj extract a Value's payload; callers must check Kind first.
func (v Value) Bool() bool    { return v.b }
func (v Value) Num() float64  { return v.n }
func (v Value) Str() string   { return v.s }
func (v Value) Obj() *Object  { return v.obj }

var (
	empty     = Value{kind: Empty}
	undefined = Value{kind: Undefined}
	null      = Value{kind: Null}
	trueVal   = Value{kind: Bool, b: true}
	falseVal  = Value{kind: Bool, b: false}
)

// EmptyValue, UndefinedValue, and NullValue are the shared sentinel values.
func EmptyValue() Value     { return empty }
func UndefinedValue() Value { return undefined }
func NullValue() Value      { return null }

// NewBool returns Bool(b).
func NewBool(b bool) Value {
	if b {
		return trueVal
	}
	return falseVal
}

// NewNumber returns Number(n).
func NewNumber(n float64) Value { return Value{kind: Number, n: n} }

// NewString returns String(s).
func NewString(s string) Value { return Value{kind: String, s: s} }

// NewObject returns ObjectRef(obj).
func NewObject(obj *Object) Value { return Value{kind: ObjectRef, obj: obj} }

// ArgumentsMarker returns the Arguments marker value.
func ArgumentsMarker() Value { return Value{kind: Arguments} }

// NeedThis reports whether obj is a builtin method that must be rebound to
// its receiver at the next Call (spec §9). It's a property of the
// BuiltinFunction payload, not a distinct Kind, because only a minority of
// builtins need it (e.g. Array.prototype.push) and it travels with the
// value wherever it's stored, not just at GetMember time.
func (v Value) NeedThis() bool {
	return v.kind == ObjectRef && v.obj.Kind == BuiltinObj && v.obj.Builtin != nil && v.obj.Builtin.NeedThis
}

// WithThis wraps callee so the next Call instruction uses recv as `this`
// instead of resolving it from the WithThis/NeedThis/ordinary ladder in
// §4.3.2 step 3.
func WithThis(callee, recv Value) Value {
	c, r := callee, recv
	return Value{kind: withThis, callee: &c, recv: &r}
}

// IsWithThis reports whether v is a WithThis wrapper, and if so returns the
// wrapped callee and receiver.
func (v Value) IsWithThis() (callee, recv Value, ok bool) {
	if v.kind != withThis {
		return Value{}, Value{}, false
	}
	return *v.callee, *v.recv, true
}

// String implements fmt.Stringer for debug printing; Inspect is the
// language-level rendering used by console.log and friends.
func (v Value) String() string { return v.Inspect() }

// Inspect renders a Value the way the host's console built-in prints it.
func (v Value) Inspect() string {
	switch v.kind {
	case Empty:
		return "<empty>"
	case Undefined:
		return "undefined"
	case Null:
		return "null"
	case Bool:
		return fmt.Sprintf("%t", v.b)
	case Number:
		return formatNumber(v.n)
	case String:
		return v.s
	case Arguments:
		return "[arguments]"
	case ObjectRef:
		return v.obj.Inspect()
	default:
		return "<internal>"
	}
}

func formatNumber(n float64) string {
	if n != n {
		return "NaN"
	}
	if n == float64(int64(n)) && n < 1e15 && n > -1e15 {
		return fmt.Sprintf("%d", int64(n))
	}
	return fmt.Sprintf("%g", n)
}
