package vm

import (
	"fmt"
	"os"

	"github.com/duskvm/dusk/bytecode"
	"github.com/duskvm/dusk/internal/errz"
	"github.com/duskvm/dusk/value"
)

// doCreateObject implements CreateObject(n): pop 2n values (key₀, val₀, …,
// keyₙ₋₁, valₙ₋₁ in original push order, recovered via popArgs), build an
// Ordinary object from them, and push it. A later pair with a repeated key
// overwrites an earlier one, matching source object-literal order.
func (v *VM) doCreateObject(n int) {
	flat := v.popArgs(2 * n)
	obj := value.NewOrdinary()
	for i := 0; i < n; i++ {
		key, val := flat[2*i], flat[2*i+1]
		obj.Properties[value.ToString(key)] = value.NewDataProperty(val)
	}
	v.Arena.NewObject(obj)
	v.push(value.NewObject(obj))
}

// doCreateArray implements CreateArray(n): pop n values in their original
// push order and push an Array built from them.
func (v *VM) doCreateArray(n int) {
	elems := v.popArgs(n)
	obj := value.NewArray(elems)
	v.Arena.NewObject(obj)
	v.push(value.NewObject(obj))
}

// doBinary implements the binary operator rules of spec §4.3.4: a pops
// right, then left, consistent with the compiler pushing left before right.
func (v *VM) doBinary(op bytecode.Op) error {
	b := v.pop()
	a := v.pop()

	switch op {
	case bytecode.Add:
		if a.IsString() || b.IsString() {
			v.push(value.NewString(value.ToString(a) + value.ToString(b)))
			return nil
		}
		v.push(value.NewNumber(value.ToNumber(a) + value.ToNumber(b)))
		return nil
	case bytecode.Sub:
		v.push(value.NewNumber(value.ToNumber(a) - value.ToNumber(b)))
		return nil
	case bytecode.Mul:
		v.push(value.NewNumber(value.ToNumber(a) * value.ToNumber(b)))
		return nil
	case bytecode.Div:
		v.push(value.NewNumber(value.ToNumber(a) / value.ToNumber(b)))
		return nil
	case bytecode.Rem:
		// Truncating int64 remainder, not fmod — a defect of the engine
		// this was distilled from (spec §9), kept for compatibility.
		v.push(value.NewNumber(float64(int64(value.ToNumber(a)) % int64(value.ToNumber(b)))))
		return nil
	case bytecode.Lt:
		v.push(value.NewBool(value.ToNumber(a) < value.ToNumber(b)))
		return nil
	case bytecode.Gt:
		v.push(value.NewBool(value.ToNumber(a) > value.ToNumber(b)))
		return nil
	case bytecode.Le:
		v.push(value.NewBool(value.ToNumber(a) <= value.ToNumber(b)))
		return nil
	case bytecode.Ge:
		v.push(value.NewBool(value.ToNumber(a) >= value.ToNumber(b)))
		return nil
	case bytecode.Eq:
		eq, err := v.looseEqual(a, b)
		if err != nil {
			return err
		}
		v.push(value.NewBool(eq))
		return nil
	case bytecode.Ne:
		eq, err := v.looseEqual(a, b)
		if err != nil {
			return err
		}
		v.push(value.NewBool(!eq))
		return nil
	case bytecode.BAnd:
		v.push(value.NewNumber(float64(value.ToInt32(a) & value.ToInt32(b))))
		return nil
	case bytecode.BOr:
		v.push(value.NewNumber(float64(value.ToInt32(a) | value.ToInt32(b))))
		return nil
	case bytecode.BXor:
		v.push(value.NewNumber(float64(value.ToInt32(a) ^ value.ToInt32(b))))
		return nil
	case bytecode.Shl:
		v.push(value.NewNumber(float64(value.ToInt32(a) << (uint32(value.ToInt32(b)) & 31))))
		return nil
	case bytecode.Shr:
		v.push(value.NewNumber(float64(value.ToInt32(a) >> (uint32(value.ToInt32(b)) & 31))))
		return nil
	case bytecode.ZFShr:
		v.push(value.NewNumber(float64(value.ToUint32(a) >> (value.ToUint32(b) & 31))))
		return nil
	default:
		return errz.At(v.pc, errz.General, "unhandled binary opcode %d", op)
	}
}

// looseEqual implements spec §7's restriction: same-kind comparisons are
// defined; a cross-type Eq/Ne raises Unimplemented rather than silently
// coercing, since the engine this was distilled from never specified a
// cross-type equality table.
func (v *VM) looseEqual(a, b value.Value) (bool, error) {
	if a.Kind() != b.Kind() {
		return false, errz.At(v.pc, errz.Unimplemented, "cannot compare %s to %s", vmKindName(a.Kind()), vmKindName(b.Kind()))
	}
	switch a.Kind() {
	case value.Number:
		return a.Num() == b.Num(), nil
	case value.String:
		return a.Str() == b.Str(), nil
	case value.Bool:
		return a.Bool() == b.Bool(), nil
	case value.ObjectRef:
		return a.Obj() == b.Obj(), nil
	default:
		return true, nil // Empty/Undefined/Null/Arguments are single-valued per kind
	}
}

func vmKindName(k value.Kind) string {
	switch k {
	case value.Empty:
		return "empty"
	case value.Undefined:
		return "undefined"
	case value.Null:
		return "null"
	case value.Bool:
		return "boolean"
	case value.Number:
		return "number"
	case value.String:
		return "string"
	case value.ObjectRef:
		return "object"
	case value.Arguments:
		return "arguments"
	default:
		return "internal"
	}
}

func (v *VM) doGetMember() error {
	member := v.pop()
	parent := v.pop()
	result, err := value.GetProperty(parent, member, v.cur().co)
	if err != nil {
		return err
	}
	v.push(result)
	return nil
}

func (v *VM) doSetMember() error {
	val := v.pop()
	member := v.pop()
	parent := v.pop()
	if err := value.SetProperty(parent, member, val, v.cur().co); err != nil {
		return err
	}
	v.push(val)
	return nil
}

func (v *VM) doGetName(i int) error {
	name := v.Consts.String[i]
	val, err := v.cur().co.GetValue(name)
	if err != nil {
		return err
	}
	v.push(val)
	return nil
}

func (v *VM) doSetName(i int) error {
	name := v.Consts.String[i]
	val := v.pop()
	v.cur().co.SetValueIfExist(name, val)
	return nil
}

func (v *VM) doDeclVar(i int) error {
	name := v.Consts.String[i]
	val := v.pop()
	v.cur().co.DeclVar(name, val)
	return nil
}

// doSetCurCallobj binds the top-of-stack Function's closure environment to
// the current activation without disturbing the stack, so the function
// literal that was just pushed closes over whatever scope is live right now.
func (v *VM) doSetCurCallobj() {
	top := v.peek()
	if top.IsObject() && top.Obj().Kind == value.FunctionObj {
		top.Obj().Func.Outer = v.cur().co
	}
}

func (v *VM) trace(op bytecode.Op, operands []int) {
	name := fmt.Sprintf("op(%d)", op)
	if def, err := bytecode.Lookup(byte(op)); err == nil {
		name = def.Name
	}
	fmt.Fprintf(os.Stderr, "%04d %-16s %v\n", v.pc, name, operands)
}
