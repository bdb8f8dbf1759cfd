// Package vm implements the Interpreter component of spec §3.3/§4.3: a
// bytecode dispatch loop over an instruction stream, owning an operand
// stack, a scope stack, and a return-history stack, with the Call/Construct
// protocols of §4.3.2/§4.3.3, the binary operator rules of §4.3.4, and the
// JIT and Memory Manager hook points of §4.4/§4.5 wired through.
package vm

import (
	"context"

	"github.com/duskvm/dusk/bytecode"
	"github.com/duskvm/dusk/callobj"
	"github.com/duskvm/dusk/gc"
	"github.com/duskvm/dusk/internal/errz"
	"github.com/duskvm/dusk/jit"
	"github.com/duskvm/dusk/value"
)

// HistoryEntry is one (saved_stack_height, return_pc) pair, pushed on
// Call/Construct and popped on Return (spec §3.3).
type HistoryEntry struct {
	StackHeight int
	ReturnPC    int
}

// frame bundles one activation's call object with the instruction stream
// it's executing. The interpreter state described in spec §3.3 names
// "scope" as a stack of call-object handles; frame additionally carries
// the executing instruction stream and function id because each
// activation runs a different function body, and whether it is a
// Construct activation (so Return can apply the "object or fall back to
// `this`" substitution rule of §4.3.3 step 3).
type frame struct {
	co          *callobj.CallObject
	closure     *value.Object // the Function object being executed; nil at top level
	instrs      bytecode.Instructions
	funcID      int
	isConstruct bool
	ctorThis    value.Value
}

// VM is the bytecode interpreter.
type VM struct {
	Stack   []value.Value
	History []HistoryEntry
	Consts  *bytecode.ConstTable[value.Value]
	Arena   *gc.Arena
	JIT     jit.Hooks

	// Debug enables opcode tracing to stderr, mirroring the teacher
	// CLI's -d/--debug flag.
	Debug bool

	frames     []*frame
	pc         int
	nextFuncID int
	lastPopped value.Value
	terminated bool
}

// New returns a VM ready to execute program (the top-level instruction
// stream) against consts, starting with a fresh global call object.
func New(program bytecode.Instructions, consts *bytecode.ConstTable[value.Value]) *VM {
	global := callobj.NewGlobal()
	v := &VM{
		Consts: consts,
		Arena:  gc.NewArena(),
		JIT:    jit.Noop{},
	}
	v.frames = []*frame{{co: global, instrs: program, funcID: 0}}
	return v
}

// Global returns the root call object, so a host can install builtins
// into it before Run.
func (v *VM) Global() *callobj.CallObject { return v.frames[0].co }

// NextFuncID hands out sequentially increasing ids for compiled function
// literals, keyed the same way spec §3.3's cur_func_id is: 0 is reserved
// for the top level.
func (v *VM) NextFuncID() int {
	v.nextFuncID++
	return v.nextFuncID
}

// LastPoppedStackItem returns the value most recently removed by a Pop
// instruction — the conventional way a host inspects "the value of the
// last top-level expression" after Run returns. A top-level Return does
// not pop: it ends the run and leaves its value on Stack.
func (v *VM) LastPoppedStackItem() value.Value { return v.lastPopped }

func (v *VM) cur() *frame { return v.frames[len(v.frames)-1] }

func (v *VM) push(val value.Value) { v.Stack = append(v.Stack, val) }

func (v *VM) pop() value.Value {
	n := len(v.Stack)
	val := v.Stack[n-1]
	v.Stack = v.Stack[:n-1]
	return val
}

func (v *VM) peek() value.Value { return v.Stack[len(v.Stack)-1] }

// popArgs pops n values off the stack, restoring their original
// left-to-right push order.
func (v *VM) popArgs(n int) []value.Value {
	args := make([]value.Value, n)
	for i := n - 1; i >= 0; i-- {
		args[i] = v.pop()
	}
	return args
}

// scopeList returns every live activation's call object, outermost first —
// the Memory Manager's Scope root (spec §4.5: "the scope stack entries
// below any activation's sp are reachable").
func (v *VM) scopeList() []*callobj.CallObject {
	list := make([]*callobj.CallObject, len(v.frames))
	for i, f := range v.frames {
		list[i] = f.co
	}
	return list
}

func (v *VM) collect() {
	v.Arena.Collect(gc.Roots{
		Stack:  v.Stack,
		Scope:  v.scopeList(),
		Consts: v.Consts.Value,
	})
}

// Run dispatches instructions until an End instruction retires (at any
// call depth), the top-level body runs off its end, a Return executes with
// an empty history stack, or an error occurs. A Go panic raised while an
// instruction executes is returned as a General error. ctx is checked once
// per loop iteration purely so a host can interrupt between opcodes
// (spec §5); no opcode itself blocks.
func (v *VM) Run(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errz.At(v.pc, errz.General, "internal error: %v", r)
		}
	}()
	if ctx == nil {
		ctx = context.Background()
	}
	for {
		select {
		case <-ctx.Done():
			return errz.Wrap(ctx.Err(), errz.General, "execution interrupted")
		default:
		}

		if err := v.step(); err != nil {
			return err
		}
		if v.terminated {
			return nil
		}
	}
}

// step executes exactly one instruction.
func (v *VM) step() error {
	f := v.cur()
	if v.pc >= len(f.instrs) {
		if len(v.frames) == 1 {
			v.terminated = true
			return nil
		}
		return errz.At(v.pc, errz.General, "pc ran past the end of a function body without a Return")
	}

	op := bytecode.Op(f.instrs[v.pc])
	def, err := bytecode.Lookup(byte(op))
	if err != nil {
		return errz.At(v.pc, errz.General, "%s", err)
	}
	operands, read := bytecode.ReadOperands(def, f.instrs[v.pc+1:])
	nextPC := v.pc + 1 + read

	if v.Debug {
		v.trace(op, operands)
	}

	switch op {
	case bytecode.End:
		v.terminated = true
		return nil

	case bytecode.CreateContext:
		v.pc = nextPC

	case bytecode.Construct:
		v.pc = nextPC
		return v.doConstruct(operands[0])

	case bytecode.CreateObject:
		v.pc = nextPC
		v.doCreateObject(operands[0])
		v.collect()

	case bytecode.CreateArray:
		v.pc = nextPC
		v.doCreateArray(operands[0])
		v.collect()

	case bytecode.PushInt8, bytecode.PushInt32:
		v.push(value.NewNumber(float64(operands[0])))
		v.pc = nextPC

	case bytecode.PushFalse:
		v.push(value.NewBool(false))
		v.pc = nextPC

	case bytecode.PushTrue:
		v.push(value.NewBool(true))
		v.pc = nextPC

	case bytecode.PushUndefined:
		v.push(value.UndefinedValue())
		v.pc = nextPC

	case bytecode.PushConst:
		v.push(v.Consts.Value[operands[0]])
		v.pc = nextPC

	case bytecode.PushThis:
		v.push(f.co.This())
		v.pc = nextPC

	case bytecode.PushArguments:
		v.push(value.ArgumentsMarker())
		v.pc = nextPC

	case bytecode.Lnot:
		v.push(value.NewBool(!value.ToBoolean(v.pop())))
		v.pc = nextPC

	case bytecode.Posi:
		v.push(value.NewNumber(value.ToNumber(v.pop())))
		v.pc = nextPC

	case bytecode.Neg:
		v.push(value.NewNumber(-value.ToNumber(v.pop())))
		v.pc = nextPC

	case bytecode.Add, bytecode.Sub, bytecode.Mul, bytecode.Div, bytecode.Rem,
		bytecode.Lt, bytecode.Gt, bytecode.Le, bytecode.Ge, bytecode.Eq, bytecode.Ne,
		bytecode.BAnd, bytecode.BOr, bytecode.BXor, bytecode.Shl, bytecode.Shr, bytecode.ZFShr:
		v.pc = nextPC
		if err := v.doBinary(op); err != nil {
			return err
		}

	case bytecode.GetMember:
		v.pc = nextPC
		if err := v.doGetMember(); err != nil {
			return err
		}

	case bytecode.SetMember:
		v.pc = nextPC
		if err := v.doSetMember(); err != nil {
			return err
		}

	case bytecode.JmpIfFalse:
		cond := v.pop()
		if !value.ToBoolean(cond) {
			v.pc = nextPC + operands[0]
		} else {
			v.pc = nextPC
		}

	case bytecode.Jmp:
		v.pc = nextPC + operands[0]

	case bytecode.Call:
		v.pc = nextPC
		return v.doCall(operands[0])

	case bytecode.Return:
		return v.doReturn()

	case bytecode.Double:
		v.push(v.peek())
		v.pc = nextPC

	case bytecode.Pop:
		v.lastPopped = v.pop()
		v.pc = nextPC

	case bytecode.Land, bytecode.Lor, bytecode.CondOp:
		// Reserved for JIT short-circuit/ternary profiling (spec §4.4);
		// the interpreter only ever sees these opcodes' pre-lowered
		// Jmp/JmpIfFalse form, so encountering one directly is a no-op.
		v.pc = nextPC

	case bytecode.SetCurCallobj:
		v.doSetCurCallobj()
		v.pc = nextPC

	case bytecode.GetName:
		v.pc = nextPC
		if err := v.doGetName(operands[0]); err != nil {
			return err
		}

	case bytecode.SetName:
		v.pc = nextPC
		if err := v.doSetName(operands[0]); err != nil {
			return err
		}

	case bytecode.DeclVar:
		v.pc = nextPC
		if err := v.doDeclVar(operands[0]); err != nil {
			return err
		}

	case bytecode.LoopStart:
		loopStart := nextPC
		loopEnd := operands[0]
		if target := v.JIT.CanLoopJIT(f.funcID, f.instrs, v.Consts, f.co, loopStart, loopEnd); target >= 0 {
			v.pc = target
		} else {
			v.pc = nextPC
		}

	default:
		return errz.At(v.pc, errz.General, "unhandled opcode %d", op)
	}

	return nil
}
