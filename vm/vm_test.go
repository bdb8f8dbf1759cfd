package vm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/duskvm/dusk/bytecode"
	"github.com/duskvm/dusk/value"
)

func concat(chunks ...[]byte) bytecode.Instructions {
	var out []byte
	for _, c := range chunks {
		out = append(out, c...)
	}
	return out
}

func runProgram(t *testing.T, instrs bytecode.Instructions, consts *bytecode.ConstTable[value.Value]) *VM {
	t.Helper()
	v := New(instrs, consts)
	require.NoError(t, v.Run(context.Background()))
	return v
}

func TestArithmetic(t *testing.T) {
	consts := bytecode.NewConstTable[value.Value]()
	instrs := concat(
		bytecode.Make(bytecode.PushInt8, 1),
		bytecode.Make(bytecode.PushInt8, 2),
		bytecode.Make(bytecode.Add),
		bytecode.Make(bytecode.Pop),
		bytecode.Make(bytecode.End),
	)

	v := runProgram(t, instrs, consts)
	require.True(t, v.LastPoppedStackItem().IsNumber())
	require.Equal(t, float64(3), v.LastPoppedStackItem().Num())
}

func TestStringConcat(t *testing.T) {
	consts := bytecode.NewConstTable[value.Value]()
	foo := consts.AddValue(value.NewString("foo"))
	bar := consts.AddValue(value.NewString("bar"))
	instrs := concat(
		bytecode.Make(bytecode.PushConst, foo),
		bytecode.Make(bytecode.PushConst, bar),
		bytecode.Make(bytecode.Add),
		bytecode.Make(bytecode.Pop),
		bytecode.Make(bytecode.End),
	)

	v := runProgram(t, instrs, consts)
	require.Equal(t, "foobar", v.LastPoppedStackItem().Str())
}

func TestCrossTypeEqualityIsUnimplemented(t *testing.T) {
	consts := bytecode.NewConstTable[value.Value]()
	instrs := concat(
		bytecode.Make(bytecode.PushInt8, 1),
		bytecode.Make(bytecode.PushTrue),
		bytecode.Make(bytecode.Eq),
		bytecode.Make(bytecode.Pop),
		bytecode.Make(bytecode.End),
	)

	v := New(instrs, consts)
	err := v.Run(context.Background())
	require.Error(t, err)
}

func TestDeclVarAndGetName(t *testing.T) {
	consts := bytecode.NewConstTable[value.Value]()
	x := consts.AddString("x")
	instrs := concat(
		bytecode.Make(bytecode.PushInt8, 5),
		bytecode.Make(bytecode.DeclVar, x),
		bytecode.Make(bytecode.GetName, x),
		bytecode.Make(bytecode.Pop),
		bytecode.Make(bytecode.End),
	)

	v := runProgram(t, instrs, consts)
	require.Equal(t, float64(5), v.LastPoppedStackItem().Num())
}

// TestFunctionCall builds `function inc(a) { return a + 1; }; inc(41);`
// directly in bytecode, exercising SetCurCallobj closure binding, the Call
// protocol's activation fork, and Return's history-stack unwind.
func TestFunctionCall(t *testing.T) {
	consts := bytecode.NewConstTable[value.Value]()
	a := consts.AddString("a")
	incName := consts.AddString("inc")

	fnCode := concat(
		bytecode.Make(bytecode.GetName, a),
		bytecode.Make(bytecode.PushInt8, 1),
		bytecode.Make(bytecode.Add),
		bytecode.Make(bytecode.Return),
	)
	fn := value.NewFunction(&value.FunctionInfo{
		ID:     1,
		Name:   "inc",
		Params: []value.Param{{Name: "a"}},
		Code:   fnCode,
	})
	fnConst := consts.AddValue(value.NewObject(fn))

	instrs := concat(
		bytecode.Make(bytecode.PushConst, fnConst),
		bytecode.Make(bytecode.SetCurCallobj),
		bytecode.Make(bytecode.DeclVar, incName),
		bytecode.Make(bytecode.GetName, incName),
		bytecode.Make(bytecode.PushInt8, 41),
		bytecode.Make(bytecode.Call, 1),
		bytecode.Make(bytecode.Pop),
		bytecode.Make(bytecode.End),
	)

	v := runProgram(t, instrs, consts)
	require.Equal(t, float64(42), v.LastPoppedStackItem().Num())
}

// TestConstructFallsBackToAllocatedThis builds a constructor that sets
// `this.x = a` and returns nothing, checking that `new C(7).x === 7`.
func TestConstructFallsBackToAllocatedThis(t *testing.T) {
	consts := bytecode.NewConstTable[value.Value]()
	a := consts.AddString("a")
	ctorName := consts.AddString("C")
	objName := consts.AddString("obj")
	xKey := consts.AddValue(value.NewString("x"))

	ctorCode := concat(
		bytecode.Make(bytecode.PushThis),
		bytecode.Make(bytecode.PushConst, xKey),
		bytecode.Make(bytecode.GetName, a),
		bytecode.Make(bytecode.SetMember),
		bytecode.Make(bytecode.Pop),
		bytecode.Make(bytecode.Return),
	)
	ctor := value.NewFunction(&value.FunctionInfo{
		ID:     1,
		Name:   "C",
		Params: []value.Param{{Name: "a"}},
		Code:   ctorCode,
	})
	ctorConst := consts.AddValue(value.NewObject(ctor))

	instrs := concat(
		bytecode.Make(bytecode.PushConst, ctorConst),
		bytecode.Make(bytecode.SetCurCallobj),
		bytecode.Make(bytecode.DeclVar, ctorName),
		bytecode.Make(bytecode.GetName, ctorName),
		bytecode.Make(bytecode.PushInt8, 7),
		bytecode.Make(bytecode.Construct, 1),
		bytecode.Make(bytecode.DeclVar, objName),
		bytecode.Make(bytecode.GetName, objName),
		bytecode.Make(bytecode.PushConst, xKey),
		bytecode.Make(bytecode.GetMember),
		bytecode.Make(bytecode.Pop),
		bytecode.Make(bytecode.End),
	)

	v := runProgram(t, instrs, consts)
	require.Equal(t, float64(7), v.LastPoppedStackItem().Num())
}

// TestArgumentsLength calls a variadic-style function with more actuals
// than declared parameters and checks `arguments.length`.
func TestArgumentsLength(t *testing.T) {
	consts := bytecode.NewConstTable[value.Value]()
	fnName := consts.AddString("count")
	length := consts.AddValue(value.NewString("length"))

	fnCode := concat(
		bytecode.Make(bytecode.PushArguments),
		bytecode.Make(bytecode.PushConst, length),
		bytecode.Make(bytecode.GetMember),
		bytecode.Make(bytecode.Return),
	)
	fn := value.NewFunction(&value.FunctionInfo{ID: 1, Name: "count", Code: fnCode})
	fnConst := consts.AddValue(value.NewObject(fn))

	instrs := concat(
		bytecode.Make(bytecode.PushConst, fnConst),
		bytecode.Make(bytecode.SetCurCallobj),
		bytecode.Make(bytecode.DeclVar, fnName),
		bytecode.Make(bytecode.GetName, fnName),
		bytecode.Make(bytecode.PushInt8, 1),
		bytecode.Make(bytecode.PushInt8, 2),
		bytecode.Make(bytecode.PushInt8, 3),
		bytecode.Make(bytecode.Call, 3),
		bytecode.Make(bytecode.Pop),
		bytecode.Make(bytecode.End),
	)

	v := runProgram(t, instrs, consts)
	require.Equal(t, float64(3), v.LastPoppedStackItem().Num())
}

// TestRecursiveFib builds a recursive fibonacci function entirely in
// bytecode to exercise nested activations and the history stack beyond
// depth one.
func TestRecursiveFib(t *testing.T) {
	consts := bytecode.NewConstTable[value.Value]()
	n := consts.AddString("n")
	fibName := consts.AddString("fib")

	// if (n < 2) return n; return fib(n-1) + fib(n-2);
	// condition + branch
	cond := concat(
		bytecode.Make(bytecode.GetName, n),
		bytecode.Make(bytecode.PushInt8, 2),
		bytecode.Make(bytecode.Lt),
	)
	thenBranch := concat(
		bytecode.Make(bytecode.GetName, n),
		bytecode.Make(bytecode.Return),
	)
	elseBranch := concat(
		bytecode.Make(bytecode.GetName, fibName),
		bytecode.Make(bytecode.GetName, n),
		bytecode.Make(bytecode.PushInt8, 1),
		bytecode.Make(bytecode.Sub),
		bytecode.Make(bytecode.Call, 1),
		bytecode.Make(bytecode.GetName, fibName),
		bytecode.Make(bytecode.GetName, n),
		bytecode.Make(bytecode.PushInt8, 2),
		bytecode.Make(bytecode.Sub),
		bytecode.Make(bytecode.Call, 1),
		bytecode.Make(bytecode.Add),
		bytecode.Make(bytecode.Return),
	)
	// thenBranch unconditionally Returns, so no jump over it is needed:
	// elseBranch is only ever reached by falling through when the branch
	// wasn't taken.
	fnCode := concat(
		cond,
		bytecode.Make(bytecode.JmpIfFalse, len(thenBranch)),
		thenBranch,
		elseBranch,
	)

	fn := value.NewFunction(&value.FunctionInfo{
		ID:     1,
		Name:   "fib",
		Params: []value.Param{{Name: "n"}},
		Code:   fnCode,
	})
	fnConst := consts.AddValue(value.NewObject(fn))

	instrs := concat(
		bytecode.Make(bytecode.PushConst, fnConst),
		bytecode.Make(bytecode.SetCurCallobj),
		bytecode.Make(bytecode.DeclVar, fibName),
		bytecode.Make(bytecode.GetName, fibName),
		bytecode.Make(bytecode.PushInt8, 10),
		bytecode.Make(bytecode.Call, 1),
		bytecode.Make(bytecode.Pop),
		bytecode.Make(bytecode.End),
	)

	v := runProgram(t, instrs, consts)
	require.Equal(t, float64(55), v.LastPoppedStackItem().Num())
}
