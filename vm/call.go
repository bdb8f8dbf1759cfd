package vm

import (
	"github.com/duskvm/dusk/callobj"
	"github.com/duskvm/dusk/internal/errz"
	"github.com/duskvm/dusk/value"
)

// doCall implements the Call protocol of spec §4.3.2.
//
//  1. Pop argc actuals, then the callee, off the stack (the compiler pushes
//     callee before its arguments, so the stack-effect table's "[…, callee,
//     arg₀…argₙ]" lists push order, not pop order).
//  2. Resolve `this`: a WithThis-wrapped callee supplies its own receiver
//     (GetMember on a method); otherwise a NeedThis-marked builtin binds to
//     the global object; otherwise the receiver is the caller's own `this`.
//  3. Dispatch: a BuiltinFunction runs synchronously and pushes its single
//     result; a Function either gets JIT-specialized (CanJIT, when every
//     actual is a Number) or forks a new CallObject and a new activation
//     for the interpreter to continue into.
func (v *VM) doCall(argc int) error {
	args := v.popArgs(argc)
	calleeVal := v.pop()

	var receiver value.Value
	callee := calleeVal
	if c, r, ok := calleeVal.IsWithThis(); ok {
		callee, receiver = c, r
	} else if calleeVal.NeedThis() {
		receiver = v.Global().This()
	} else {
		receiver = v.cur().co.This()
	}

	if !callee.IsCallable() {
		return errz.At(v.pc, errz.Type, "value is not callable")
	}
	obj := callee.Obj()

	if obj.Kind == value.BuiltinObj {
		callArgs := args
		if obj.Builtin.NeedThis {
			// A NeedThis builtin (e.g. Array.prototype.push) needs its
			// receiver, which isn't a CallObject and so can't travel
			// through the BuiltinFunc `caller Environment` parameter;
			// it's prepended to args instead, the same convention
			// Function.prototype.call/apply use to pass a receiver
			// alongside ordinary arguments.
			callArgs = append([]value.Value{receiver}, args...)
		}
		ret, err := obj.Builtin.Fn(v, callArgs, v.cur().co)
		if err != nil {
			return err
		}
		v.push(ret)
		return nil
	}

	fn := obj.Func
	if allNumbers(args) {
		if nf := v.JIT.CanJIT(fn.ID, fn, v.Consts, args); nf != nil {
			ret := nf(args)
			v.JIT.RecordFunctionReturnType(fn.ID, ret)
			v.push(ret)
			return nil
		}
	}

	outer, _ := fn.Outer.(*callobj.CallObject)
	newCO := callobj.NewChild(outer, receiver)
	newCO.ApplyArguments(fn.Params, args)

	v.History = append(v.History, HistoryEntry{StackHeight: len(v.Stack), ReturnPC: v.pc})
	v.frames = append(v.frames, &frame{co: newCO, closure: obj, instrs: fn.Code, funcID: fn.ID})
	v.pc = 0
	return nil
}

// doConstruct implements the new-operator protocol of spec §4.3.3: allocate
// a fresh Ordinary object whose `__proto__` is callee.prototype, then run
// the constructor with that object as `this`. If the constructor returns an
// Object-kinded value, that supersedes the freshly allocated `this`;
// otherwise the allocated object is the construction result.
func (v *VM) doConstruct(argc int) error {
	args := v.popArgs(argc)
	calleeVal := v.pop()

	if !calleeVal.IsObject() {
		return errz.At(v.pc, errz.Type, "new requires a constructible value")
	}
	obj := calleeVal.Obj()
	if obj.Kind != value.FunctionObj && obj.Kind != value.BuiltinObj {
		return errz.At(v.pc, errz.Type, "value is not a constructor")
	}

	proto := value.UndefinedValue()
	if p, ok := obj.Properties["prototype"]; ok && !p.IsAccessor {
		proto = p.Value
	}
	newObj := value.NewOrdinary()
	newObj.Properties["__proto__"] = value.NewDataProperty(proto)
	v.Arena.NewObject(newObj)
	newThis := value.NewObject(newObj)

	if obj.Kind == value.BuiltinObj {
		ret, err := obj.Builtin.Fn(v, args, callobj.NewChild(v.cur().co, newThis))
		if err != nil {
			return err
		}
		if isConstructResult(ret) {
			v.push(ret)
		} else {
			v.push(newThis)
		}
		return nil
	}

	fn := obj.Func
	outer, _ := fn.Outer.(*callobj.CallObject)
	newCO := callobj.NewChild(outer, newThis)
	newCO.ApplyArguments(fn.Params, args)

	v.History = append(v.History, HistoryEntry{StackHeight: len(v.Stack), ReturnPC: v.pc})
	v.frames = append(v.frames, &frame{
		co: newCO, closure: obj, instrs: fn.Code, funcID: fn.ID,
		isConstruct: true, ctorThis: newThis,
	})
	v.pc = 0
	return nil
}

// doReturn implements the Return side of §4.3.2/§4.3.3: pop the history
// frame, truncate the stack back to the saved height, and keep the return
// value (substituting the constructor's allocated `this` when the callee
// was a Construct activation that didn't return an object). An empty
// history means the top-level program itself executed a Return, which
// terminates the run.
func (v *VM) doReturn() error {
	if len(v.History) == 0 {
		v.terminated = true
		return nil
	}

	entry := v.History[len(v.History)-1]
	v.History = v.History[:len(v.History)-1]

	retVal := value.UndefinedValue()
	if n := len(v.Stack); n > 0 {
		retVal = v.Stack[n-1]
	}

	returning := v.frames[len(v.frames)-1]
	v.frames = v.frames[:len(v.frames)-1]

	if returning.isConstruct && !isConstructResult(retVal) {
		retVal = returning.ctorThis
	}

	height := entry.StackHeight
	if height > len(v.Stack) {
		height = len(v.Stack)
	}
	v.Stack = append(v.Stack[:height], retVal)
	v.pc = entry.ReturnPC

	v.JIT.RecordFunctionReturnType(returning.funcID, retVal)
	return nil
}

func isConstructResult(v value.Value) bool { return v.IsObject() }

func allNumbers(args []value.Value) bool {
	for _, a := range args {
		if !a.IsNumber() {
			return false
		}
	}
	return true
}
