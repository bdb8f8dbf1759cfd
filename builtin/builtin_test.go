package builtin

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/duskvm/dusk/callobj"
	"github.com/duskvm/dusk/value"
)

func globalWithBuiltins(t *testing.T) *callobj.CallObject {
	t.Helper()
	global := callobj.NewGlobal()
	Install(global)
	return global
}

func getProp(t *testing.T, obj *value.Object, name string) value.Value {
	t.Helper()
	p, ok := obj.Properties[name]
	require.True(t, ok, "missing property %q", name)
	return p.Value
}

func TestInstallPopulatesGlobals(t *testing.T) {
	global := globalWithBuiltins(t)
	for _, name := range []string{"console", "process", "Math", "Array", "module", "exports", "require"} {
		v, err := global.GetValue(name)
		require.NoError(t, err)
		require.True(t, v.IsObject() || v.IsCallable(), "%s should be bound", name)
	}
}

func TestMathMethods(t *testing.T) {
	global := globalWithBuiltins(t)
	mathVal, err := global.GetValue("Math")
	require.NoError(t, err)
	math := mathVal.Obj()

	floor := getProp(t, math, "floor").Obj().Builtin.Fn
	ret, err := floor(nil, []value.Value{value.NewNumber(3.7)}, nil)
	require.NoError(t, err)
	require.Equal(t, float64(3), ret.Num())

	maxFn := getProp(t, math, "max").Obj().Builtin.Fn
	ret, err = maxFn(nil, []value.Value{value.NewNumber(1), value.NewNumber(9), value.NewNumber(4)}, nil)
	require.NoError(t, err)
	require.Equal(t, float64(9), ret.Num())

	minFn := getProp(t, math, "min").Obj().Builtin.Fn
	ret, err = minFn(nil, []value.Value{value.NewNumber(1), value.NewNumber(9), value.NewNumber(4)}, nil)
	require.NoError(t, err)
	require.Equal(t, float64(1), ret.Num())

	powFn := getProp(t, math, "pow").Obj().Builtin.Fn
	ret, err = powFn(nil, []value.Value{value.NewNumber(2), value.NewNumber(10)}, nil)
	require.NoError(t, err)
	require.Equal(t, float64(1024), ret.Num())
}

func TestArrayConstructorAndPush(t *testing.T) {
	global := globalWithBuiltins(t)
	arrVal, err := global.GetValue("Array")
	require.NoError(t, err)
	arr := arrVal.Obj()

	built, err := arr.Builtin.Fn(nil, []value.Value{value.NewNumber(1), value.NewNumber(2)}, nil)
	require.NoError(t, err)
	require.True(t, built.IsObject())
	require.Equal(t, value.ArrayObj, built.Obj().Kind)
	require.Len(t, built.Obj().Elems, 2)

	isArrayFn := getProp(t, arr, "isArray").Obj().Builtin.Fn
	ret, err := isArrayFn(nil, []value.Value{built}, nil)
	require.NoError(t, err)
	require.True(t, ret.Bool())

	proto := built.Obj().Properties["__proto__"].Value.Obj()
	pushFn := proto.Properties["push"].Value.Obj().Builtin.Fn

	// NeedThis builtins receive the receiver prepended to args.
	ret, err = pushFn(nil, []value.Value{built, value.NewNumber(3)}, nil)
	require.NoError(t, err)
	require.Equal(t, float64(3), ret.Num())
	require.Len(t, built.Obj().Elems, 3)
}

func TestConsoleLogReturnsUndefined(t *testing.T) {
	ret, err := consoleLog(nil, []value.Value{value.NewString("hi"), value.NewNumber(1)}, nil)
	require.NoError(t, err)
	require.True(t, ret.IsUndefined())
}
