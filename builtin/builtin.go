// Package builtin implements the Built-in function ABI of spec §6: native
// Go functions reachable from dusk source as `console.log`, `process.stdout
// .write`, `Math.*`, the `Array` constructor and its prototype methods, and
// a CommonJS-shaped `require`/`module`/`exports` surface. None of this
// resolves real modules or implements a real numeric tower beyond float64 —
// per SPEC_FULL.md §9 the built-in library is scope-limited to the ABI
// itself, grounded on original_source/src/builtins/console.rs for the
// console surface and on spec §6's named Math methods for the rest.
package builtin

import (
	"fmt"
	"math"
	"math/rand"
	"strings"

	"github.com/duskvm/dusk/callobj"
	"github.com/duskvm/dusk/value"
)

// Install wires every built-in global into global's binding map, the way a
// host program does with vm.VM.Global() before calling Run.
func Install(global *callobj.CallObject) {
	global.DeclVar("console", value.NewObject(consoleObject()))
	global.DeclVar("process", value.NewObject(processObject()))
	global.DeclVar("Math", value.NewObject(mathObject()))
	global.DeclVar("Array", value.NewObject(arrayConstructor()))

	module := value.NewOrdinary()
	exports := value.NewOrdinary()
	module.Properties["exports"] = value.NewDataProperty(value.NewObject(exports))
	global.DeclVar("module", value.NewObject(module))
	global.DeclVar("exports", value.NewObject(exports))
	global.DeclVar("require", value.NewObject(requireStub()))
}

func builtinFn(id string, fn value.BuiltinFunc) *value.Object {
	return value.NewBuiltin(&value.BuiltinInfo{ID: id, Fn: fn})
}

// --- console -----------------------------------------------------------

func consoleObject() *value.Object {
	obj := value.NewOrdinary()
	obj.Properties["log"] = value.NewDataProperty(value.NewObject(builtinFn("console.log", consoleLog)))
	return obj
}

// consoleLog renders every argument with Value.Inspect, space-joined, with
// a trailing newline, matching original_source's console_log.
func consoleLog(_ any, args []value.Value, _ value.Environment) (value.Value, error) {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = a.Inspect()
	}
	fmt.Println(strings.Join(parts, " "))
	return value.UndefinedValue(), nil
}

// --- process -------------------------------------------------------------

func processObject() *value.Object {
	stdout := value.NewOrdinary()
	stdout.Properties["write"] = value.NewDataProperty(value.NewObject(builtinFn("process.stdout.write", stdoutWrite)))

	obj := value.NewOrdinary()
	obj.Properties["stdout"] = value.NewDataProperty(value.NewObject(stdout))
	return obj
}

func stdoutWrite(_ any, args []value.Value, _ value.Environment) (value.Value, error) {
	if len(args) > 0 {
		fmt.Print(value.ToString(args[0]))
	}
	return value.NewBool(true), nil
}

// --- Math ------------------------------------------------------------

func mathObject() *value.Object {
	obj := value.NewOrdinary()
	methods := map[string]value.BuiltinFunc{
		"floor":  mathFloor,
		"abs":    mathAbs,
		"pow":    mathPow,
		"max":    mathMax,
		"min":    mathMin,
		"random": mathRandom,
	}
	for name, fn := range methods {
		obj.Properties[name] = value.NewDataProperty(value.NewObject(builtinFn("Math."+name, fn)))
	}
	return obj
}

func arg(args []value.Value, i int) value.Value {
	if i < len(args) {
		return args[i]
	}
	return value.UndefinedValue()
}

func mathFloor(_ any, args []value.Value, _ value.Environment) (value.Value, error) {
	return value.NewNumber(math.Floor(value.ToNumber(arg(args, 0)))), nil
}

func mathAbs(_ any, args []value.Value, _ value.Environment) (value.Value, error) {
	return value.NewNumber(math.Abs(value.ToNumber(arg(args, 0)))), nil
}

func mathPow(_ any, args []value.Value, _ value.Environment) (value.Value, error) {
	return value.NewNumber(math.Pow(value.ToNumber(arg(args, 0)), value.ToNumber(arg(args, 1)))), nil
}

func mathMax(_ any, args []value.Value, _ value.Environment) (value.Value, error) {
	if len(args) == 0 {
		return value.NewNumber(math.Inf(-1)), nil
	}
	best := value.ToNumber(args[0])
	for _, a := range args[1:] {
		if n := value.ToNumber(a); n > best {
			best = n
		}
	}
	return value.NewNumber(best), nil
}

func mathMin(_ any, args []value.Value, _ value.Environment) (value.Value, error) {
	if len(args) == 0 {
		return value.NewNumber(math.Inf(1)), nil
	}
	best := value.ToNumber(args[0])
	for _, a := range args[1:] {
		if n := value.ToNumber(a); n < best {
			best = n
		}
	}
	return value.NewNumber(best), nil
}

func mathRandom(_ any, _ []value.Value, _ value.Environment) (value.Value, error) {
	return value.NewNumber(rand.Float64()), nil
}

// --- Array -----------------------------------------------------------

// arrayConstructor returns a BuiltinFunction callable both as `Array(...)`
// and as `new Array(...)` (doConstruct only substitutes the allocated
// `this` when a constructor *doesn't* return an object, so returning the
// freshly built array here wins either way). A lone Number actual is
// treated as a length, matching the conventional Array(n) overload;
// otherwise every actual becomes an element.
func arrayConstructor() *value.Object {
	ctor := builtinFn("Array", arrayCall)
	ctor.Properties["isArray"] = value.NewDataProperty(value.NewObject(builtinFn("Array.isArray", arrayIsArray)))
	ctor.Properties["prototype"] = value.NewDataProperty(value.NewObject(sharedArrayProto))
	return ctor
}

func arrayCall(_ any, args []value.Value, _ value.Environment) (value.Value, error) {
	if len(args) == 1 && args[0].IsNumber() {
		n := int(value.ToNumber(args[0]))
		elems := make([]value.Value, n)
		for i := range elems {
			elems[i] = value.EmptyValue()
		}
		return value.NewObject(withArrayProto(value.NewArray(elems))), nil
	}
	return value.NewObject(withArrayProto(value.NewArray(append([]value.Value{}, args...)))), nil
}

func arrayIsArray(_ any, args []value.Value, _ value.Environment) (value.Value, error) {
	v := arg(args, 0)
	return value.NewBool(v.IsObject() && v.Obj().Kind == value.ArrayObj), nil
}

// sharedArrayProto holds the NeedThis methods every array built through
// this package's constructor shares via `__proto__` — one prototype
// object, not one per array, so `a.__proto__ === b.__proto__` for any two
// arrays the way a real prototype chain requires.
var sharedArrayProto = newArrayProto()

func newArrayProto() *value.Object {
	proto := value.NewOrdinary()
	proto.Properties["push"] = value.NewDataProperty(value.NewObject(
		&value.Object{Kind: value.BuiltinObj, Properties: map[string]*value.Property{}, Builtin: &value.BuiltinInfo{
			ID: "Array.prototype.push", Fn: arrayPush, NeedThis: true,
		}},
	))
	return proto
}

func withArrayProto(arr *value.Object) *value.Object {
	arr.Properties["__proto__"] = value.NewDataProperty(value.NewObject(sharedArrayProto))
	return arr
}

// arrayPush receives its receiver prepended to args (see vm.doCall's
// NeedThis convention) followed by the values to push.
func arrayPush(_ any, args []value.Value, _ value.Environment) (value.Value, error) {
	if len(args) == 0 || !args[0].IsObject() || args[0].Obj().Kind != value.ArrayObj {
		return value.UndefinedValue(), nil
	}
	receiver := args[0].Obj()
	receiver.Elems = append(receiver.Elems, args[1:]...)
	receiver.Length = len(receiver.Elems)
	return value.NewNumber(float64(receiver.Length)), nil
}

// --- require -----------------------------------------------------------

// requireStub always returns an empty object: no module resolution is
// implemented, only the call shape a script can invoke without failing.
func requireStub() *value.Object {
	return builtinFn("require", func(_ any, _ []value.Value, _ value.Environment) (value.Value, error) {
		return value.NewObject(value.NewOrdinary()), nil
	})
}
