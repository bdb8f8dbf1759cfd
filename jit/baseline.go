package jit

import (
	"github.com/duskvm/dusk/bytecode"
	"github.com/duskvm/dusk/callobj"
	"github.com/duskvm/dusk/value"
)

// DefaultWarmupThreshold is how many Number-only calls a function takes
// before Baseline attempts to specialize it.
const DefaultWarmupThreshold = 3

// Baseline is a minimal tracing JIT: it watches call counts per function
// id and, once a function has been called enough times with only Number
// actuals, checks whether its body is "straight-line numeric" — built
// entirely from the opcode subset numericAllowed permits, with no Call,
// Construct, GetMember, or control flow. If so it compiles a NativeFunc
// that re-executes that subset directly against a flat Value slice
// instead of going through vm's full dispatch loop, callobj allocation,
// and GC safe-points — the "specializes monomorphic numeric calls" case
// spec §4.4/§9 describes. Anything it can't prove safe it declines,
// falling back to ordinary interpretation.
type Baseline struct {
	threshold int
	calls     map[int]int
	compiled  map[int]NativeFunc
	declined  map[int]bool
	lastTypes map[int]value.Kind
	loopTrips map[loopKey]int
}

type loopKey struct {
	funcID             int
	start, end         int
}

// NewBaseline returns a Baseline with the given warmup threshold.
func NewBaseline(threshold int) *Baseline {
	if threshold <= 0 {
		threshold = DefaultWarmupThreshold
	}
	return &Baseline{
		threshold: threshold,
		calls:     map[int]int{},
		compiled:  map[int]NativeFunc{},
		declined:  map[int]bool{},
		lastTypes: map[int]value.Kind{},
		loopTrips: map[loopKey]int{},
	}
}

// CanJIT implements Hooks.
func (b *Baseline) CanJIT(funcID int, fn *value.FunctionInfo, consts *ConstTable, args []value.Value) NativeFunc {
	if nf, ok := b.compiled[funcID]; ok {
		return nf
	}
	if b.declined[funcID] {
		return nil
	}

	b.calls[funcID]++
	if b.calls[funcID] < b.threshold {
		return nil
	}

	nf := compileNumeric(fn, consts)
	if nf == nil {
		b.declined[funcID] = true
		return nil
	}
	b.compiled[funcID] = nf
	return nf
}

// CanLoopJIT implements Hooks. Baseline tracks trip counts for
// diagnostics but never takes over a loop body natively — loop bodies can
// mutate arbitrary scope state (closures, arrays, objects) that a
// register-only specialization like compileNumeric can't safely model,
// so Baseline always declines and lets the interpreter run the loop.
func (b *Baseline) CanLoopJIT(funcID int, _ bytecode.Instructions, _ *ConstTable, _ *callobj.CallObject, start, end int) int {
	b.loopTrips[loopKey{funcID, start, end}]++
	return -1
}

// RecordFunctionReturnType implements Hooks.
func (b *Baseline) RecordFunctionReturnType(funcID int, ret value.Value) {
	b.lastTypes[funcID] = ret.Kind()
}

// Stats exposes warm-up counters for host diagnostics (e.g. the CLI's
// -gc-stats-style reporting).
func (b *Baseline) Stats() (compiledFuncs, declinedFuncs int) {
	return len(b.compiled), len(b.declined)
}

// numericAllowed is the opcode whitelist compileNumeric requires a
// function body to stay within to be eligible for specialization.
var numericAllowed = map[bytecode.Op]bool{
	bytecode.PushInt8:  true,
	bytecode.PushInt32: true,
	bytecode.PushConst: true,
	bytecode.GetName:   true,
	bytecode.Posi:      true,
	bytecode.Neg:       true,
	bytecode.Add:       true,
	bytecode.Sub:       true,
	bytecode.Mul:       true,
	bytecode.Div:       true,
	bytecode.Rem:       true,
	bytecode.Lt:        true,
	bytecode.Gt:        true,
	bytecode.Le:        true,
	bytecode.Ge:        true,
	bytecode.Eq:        true,
	bytecode.Ne:        true,
	bytecode.Pop:       true,
	bytecode.Return:    true,
	bytecode.CreateContext: true,
	bytecode.End:       true,
}

// compileNumeric validates fn.Code against numericAllowed and, if every
// GetName resolves to a declared (non-rest) parameter, returns a
// NativeFunc that evaluates the body with a flat register stack keyed by
// parameter position instead of a CallObject lookup.
func compileNumeric(fn *value.FunctionInfo, consts *ConstTable) NativeFunc {
	paramIndex := map[string]int{}
	for i, p := range fn.Params {
		if p.IsRest {
			return nil
		}
		paramIndex[p.Name] = i
	}

	code := fn.Code
	i := 0
	for i < len(code) {
		def, err := bytecode.Lookup(code[i])
		if err != nil || !numericAllowed[bytecode.Op(code[i])] {
			return nil
		}
		operands, read := bytecode.ReadOperands(def, code[i+1:])
		if bytecode.Op(code[i]) == bytecode.GetName {
			name := ""
			if len(consts.String) > operands[0] {
				name = consts.String[operands[0]]
			}
			if _, ok := paramIndex[name]; !ok {
				return nil // reads something outside its own parameters: not specializable
			}
		}
		i += 1 + read
	}

	return func(args []value.Value) value.Value {
		regs := make([]float64, len(fn.Params))
		for idx := range regs {
			if idx < len(args) {
				regs[idx] = value.ToNumber(args[idx])
			}
		}
		return evalNumeric(code, consts, regs, paramIndex)
	}
}

// evalNumeric is a tiny stack machine over the opcode subset compileNumeric
// validated, reading parameter values from regs instead of a CallObject.
func evalNumeric(code bytecode.Instructions, consts *ConstTable, regs []float64, paramIndex map[string]int) value.Value {
	var stack []float64
	push := func(v float64) { stack = append(stack, v) }
	pop := func() float64 {
		v := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		return v
	}

	i := 0
	for i < len(code) {
		op := bytecode.Op(code[i])
		def, _ := bytecode.Lookup(code[i])
		operands, read := bytecode.ReadOperands(def, code[i+1:])
		i += 1 + read

		switch op {
		case bytecode.PushInt8, bytecode.PushInt32:
			push(float64(operands[0]))
		case bytecode.PushConst:
			push(value.ToNumber(consts.Value[operands[0]]))
		case bytecode.GetName:
			name := consts.String[operands[0]]
			push(regs[paramIndex[name]])
		case bytecode.Posi:
			// no-op on the value itself
		case bytecode.Neg:
			push(-pop())
		case bytecode.Add:
			b, a := pop(), pop()
			push(a + b)
		case bytecode.Sub:
			b, a := pop(), pop()
			push(a - b)
		case bytecode.Mul:
			b, a := pop(), pop()
			push(a * b)
		case bytecode.Div:
			b, a := pop(), pop()
			push(a / b)
		case bytecode.Rem:
			b, a := pop(), pop()
			push(float64(int64(a) % int64(b)))
		case bytecode.Lt, bytecode.Gt, bytecode.Le, bytecode.Ge, bytecode.Eq, bytecode.Ne:
			b, a := pop(), pop()
			push(boolToF(compareNumeric(op, a, b)))
		case bytecode.Pop:
			if len(stack) > 0 {
				pop()
			}
		case bytecode.Return, bytecode.End, bytecode.CreateContext:
			// fall through to final result below
		}
	}

	if len(stack) == 0 {
		return value.UndefinedValue()
	}
	return value.NewNumber(stack[len(stack)-1])
}

func compareNumeric(op bytecode.Op, a, b float64) bool {
	switch op {
	case bytecode.Lt:
		return a < b
	case bytecode.Gt:
		return a > b
	case bytecode.Le:
		return a <= b
	case bytecode.Ge:
		return a >= b
	case bytecode.Eq:
		return a == b
	case bytecode.Ne:
		return a != b
	default:
		return false
	}
}

func boolToF(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

var _ Hooks = (*Baseline)(nil)
