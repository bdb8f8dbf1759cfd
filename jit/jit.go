// Package jit defines the three hook points spec §4.4 describes between
// the interpreter and a tracing JIT: loop retirement, call entry, and call
// return. The core never assumes a JIT is present — vm.VM always holds a
// Hooks value, defaulting to Noop, so the dispatch loop's call sites are
// unconditional and the JIT is free to decline every time.
package jit

import (
	"github.com/duskvm/dusk/bytecode"
	"github.com/duskvm/dusk/callobj"
	"github.com/duskvm/dusk/value"
)

// ConstTable is the constant pool shape vm threads through to the hooks.
type ConstTable = bytecode.ConstTable[value.Value]

// NativeFunc is a JIT-compiled specialization of a whole function body,
// consuming its Number-tagged actuals and producing a single Value.
type NativeFunc func(args []value.Value) value.Value

// Hooks is consulted by vm at the three points spec §4.4 names. A non-nil
// result from CanJIT, or a non-negative target pc from CanLoopJIT, tells
// the interpreter the JIT already produced the observable effect of
// running that code and execution should skip ahead rather than
// interpret it.
type Hooks interface {
	// CanLoopJIT is consulted each time a LoopStart instruction
	// retires. loopStart/loopEnd bound the loop body as absolute
	// offsets into iseq. A return value >= 0 is the pc the interpreter
	// should jump to, having executed the loop's effect natively; a
	// negative return means "run it normally".
	CanLoopJIT(funcID int, iseq bytecode.Instructions, consts *ConstTable, co *callobj.CallObject, loopStart, loopEnd int) int

	// CanJIT is consulted on Call entry when every actual argument is a
	// Number. A non-nil result means the JIT supplied a native
	// specialization: it is invoked with the actuals (which the caller
	// must treat as consumed) and its return Value is pushed in place
	// of a normal activation — no history push, no interpretation of
	// the callee's body.
	CanJIT(funcID int, fn *value.FunctionInfo, consts *ConstTable, args []value.Value) NativeFunc

	// RecordFunctionReturnType is invoked after every Function return
	// (interpreted or natively specialized) to refine funcID's type
	// profile for future CanJIT/CanLoopJIT decisions.
	RecordFunctionReturnType(funcID int, ret value.Value)
}

// Noop always declines; it's the zero-configuration default and the
// correctness baseline every other Hooks implementation must agree with.
type Noop struct{}

func (Noop) CanLoopJIT(int, bytecode.Instructions, *ConstTable, *callobj.CallObject, int, int) int {
	return -1
}
func (Noop) CanJIT(int, *value.FunctionInfo, *ConstTable, []value.Value) NativeFunc { return nil }
func (Noop) RecordFunctionReturnType(int, value.Value)                              {}

var _ Hooks = Noop{}
