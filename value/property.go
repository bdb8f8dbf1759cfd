package value

import (
	"unicode/utf16"

	"github.com/duskvm/dusk/internal/errz"
)

// maxPrototypeDepth bounds obj_find_val's prototype walk. The engine this
// spec was distilled from did not check for prototype cycles at all
// (§9); a bounded walk is the minimal fix that keeps a deliberately
// constructed `__proto__` cycle from hanging the interpreter.
const maxPrototypeDepth = 4096

// ArgsScope is the minimal surface GetProperty/SetProperty need from the
// current activation to resolve the Arguments marker's indexed access.
// *callobj.CallObject satisfies this structurally; value doesn't import
// callobj to avoid the import cycle described in object.go's Environment doc.
type ArgsScope interface {
	GetArgumentsNthValue(n int) (Value, error)
	SetArgumentsNthValue(n int, v Value)
	ArgumentsLength() int
}

// findOwnOrProto looks up key in obj.Properties, following __proto__
// (a regular property whose value must itself be an Object) when absent,
// bounded to avoid looping on a cyclic prototype chain.
func findOwnOrProto(obj *Object, key string) (*Property, bool) {
	seen := 0
	for obj != nil && seen < maxPrototypeDepth {
		if p, ok := obj.Properties[key]; ok {
			return p, true
		}
		proto, ok := obj.Properties["__proto__"]
		if !ok || proto.IsAccessor || !proto.Value.IsObject() {
			return nil, false
		}
		obj = proto.Value.Obj()
		seen++
	}
	return nil, false
}

// GetProperty implements spec §4.1's get_property: the lookup policy
// varies by parent kind (String/Object/Array/Arguments). If the resolved
// value is NeedThis-marked, it is rewrapped as WithThis(callee, parent) so
// the following Call instruction dispatches with parent as `this`.
func GetProperty(parent Value, member Value, scope ArgsScope) (Value, error) {
	switch parent.kind {
	case String:
		return getStringMember(parent.s, member), nil

	case Arguments:
		return getArgumentsMember(member, scope)

	case ObjectRef:
		obj := parent.obj
		if obj.Kind == ArrayObj {
			if v, ok := getArrayMember(obj, member); ok {
				return v, nil
			}
		}
		key := ToString(member)
		p, ok := findOwnOrProto(obj, key)
		if !ok {
			return UndefinedValue(), nil
		}
		resolved := p.Value
		if p.IsAccessor {
			return resolved, nil // getters require a Call; core leaves invocation to the compiler/runtime wiring
		}
		if resolved.NeedThis() {
			return WithThis(resolved, parent), nil
		}
		return resolved, nil

	default:
		return UndefinedValue(), nil
	}
}

func getStringMember(s string, member Value) Value {
	units := utf16.Encode([]rune(s))
	if key := ToString(member); key == "length" {
		return NewNumber(float64(len(units)))
	}
	if idx, ok := AsArrayIndex(member); ok {
		if idx >= 0 && idx < len(units) {
			return NewString(string(utf16.Decode(units[idx : idx+1])))
		}
		return UndefinedValue()
	}
	return UndefinedValue()
}

func getArrayMember(obj *Object, member Value) (Value, bool) {
	key := ToString(member)
	if key == "length" {
		return NewNumber(float64(obj.Length)), true
	}
	if idx, ok := AsArrayIndex(member); ok {
		if idx >= 0 && idx < len(obj.Elems) {
			return obj.Elems[idx], true
		}
		return UndefinedValue(), true
	}
	return Value{}, false
}

func getArgumentsMember(member Value, scope ArgsScope) (Value, error) {
	if scope == nil {
		return UndefinedValue(), errz.New(errz.General, "arguments accessed outside an activation")
	}
	if key := ToString(member); key == "length" {
		return NewNumber(float64(scope.ArgumentsLength())), nil
	}
	if idx, ok := AsArrayIndex(member); ok {
		return scope.GetArgumentsNthValue(idx)
	}
	return UndefinedValue(), nil
}

// SetProperty implements spec §4.1's set_property.
func SetProperty(parent Value, member Value, v Value, scope ArgsScope) error {
	switch parent.kind {
	case ObjectRef:
		obj := parent.obj
		if obj.Kind == ArrayObj {
			return setArrayMember(obj, member, v)
		}
		key := ToString(member)
		if p, ok := obj.Properties[key]; ok && p.IsAccessor {
			// setter invocation is left to the compiler/vm, which must
			// Call p.Set with v; the core records the intent here by
			// leaving the accessor untouched rather than silently
			// overwriting it with a data property.
			return nil
		}
		obj.Properties[key] = NewDataProperty(v)
		return nil

	case Arguments:
		if scope == nil {
			return errz.New(errz.General, "arguments accessed outside an activation")
		}
		if idx, ok := AsArrayIndex(member); ok {
			scope.SetArgumentsNthValue(idx, v)
			return nil
		}
		return errz.New(errz.Type, "cannot set non-index property on arguments")

	default:
		return errz.At(-1, errz.Type, "cannot set property %q on %s", ToString(member), kindName(parent.kind))
	}
}

func setArrayMember(obj *Object, member Value, v Value) error {
	key := ToString(member)
	if key == "length" {
		n, ok := AsArrayIndex(v)
		if !ok {
			return errz.New(errz.Type, "array length must be a non-negative integer")
		}
		resizeElems(obj, n)
		obj.Length = n
		return nil
	}
	if idx, ok := AsArrayIndex(member); ok {
		if idx+1 > len(obj.Elems) {
			resizeElems(obj, idx+1)
		}
		obj.Elems[idx] = v
		if idx+1 > obj.Length {
			obj.Length = idx + 1
		}
		return nil
	}
	obj.Properties[key] = NewDataProperty(v)
	return nil
}

// resizeElems grows or truncates obj.Elems to exactly n entries, padding
// new slots with Empty (spec §3.1's indexed-write/length-write invariant).
func resizeElems(obj *Object, n int) {
	if n <= len(obj.Elems) {
		obj.Elems = obj.Elems[:n]
		return
	}
	grown := make([]Value, n)
	copy(grown, obj.Elems)
	for i := len(obj.Elems); i < n; i++ {
		grown[i] = EmptyValue()
	}
	obj.Elems = grown
}

func kindName(k Kind) string {
	switch k {
	case Empty:
		return "empty"
	case Undefined:
		return "undefined"
	case Null:
		return "null"
	case Bool:
		return "boolean"
	case Number:
		return "number"
	case String:
		return "string"
	case ObjectRef:
		return "object"
	case Arguments:
		return "arguments"
	default:
		return "internal"
	}
}
