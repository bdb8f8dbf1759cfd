// Package errz defines the error taxonomy the dusk core surfaces to its
// host: every error that crosses the vm.Run boundary carries one of a
// small, fixed set of kinds so a host can tell a missing binding from a
// type mismatch without string-matching messages.
package errz

import "fmt"

// Kind classifies a runtime or compile-time failure.
type Kind int

const (
	// General covers internal invariant violations, such as a local
	// lookup by a name that was never declared in the current scope.
	General Kind = iota

	// Reference is raised when a name lookup walks the whole scope
	// chain and finds no binding.
	Reference

	// Type is raised when an operand's kind doesn't support the
	// operation being attempted (Call/Construct/arithmetic/member
	// access on an unsupporting primitive).
	Type

	// Unimplemented marks an operator combination that isn't modeled
	// yet, rather than a semantic error — see spec §7 on Eq/Ne across
	// differing primitive types.
	Unimplemented
)

// String renders the kind the way error messages quote it.
func (k Kind) String() string {
	switch k {
	case Reference:
		return "ReferenceError"
	case Type:
		return "TypeError"
	case Unimplemented:
		return "UnimplementedError"
	default:
		return "Error"
	}
}

// Error is the concrete error type returned across the core's public
// boundary. It wraps an optional underlying cause so callers can still
// errors.Is/errors.As through it.
type Error struct {
	Kind    Kind
	Message string
	PC      int // instruction pointer at the point of failure, -1 if n/a
	cause   error
}

func (e *Error) Error() string {
	if e.PC >= 0 {
		return fmt.Sprintf("%s: %s (pc=%d)", e.Kind, e.Message, e.PC)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap exposes the wrapped cause, if any, to errors.Is/errors.As.
func (e *Error) Unwrap() error { return e.cause }

// New builds an *Error with no pc context and no wrapped cause.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), PC: -1}
}

// At attaches the instruction pointer active when the error occurred.
func At(pc int, kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), PC: pc}
}

// Wrap annotates err with a kind and message while keeping it unwrappable.
func Wrap(err error, kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), PC: -1, cause: err}
}
