// Package callobj implements the Call Object / Lexical Environment Record
// described in spec §3.2/§4.2: a per-activation record holding locals,
// parameters, the rest-parameter binding, `this`, recorded arguments, and a
// parent pointer forming the lexical scope chain.
//
// It is grounded directly on original_source/src/vm/callobj.rs (the
// engine this spec was distilled from); the method names below
// (ApplyArguments, GetValue, SetValueIfExist, DeclVar, ...) mirror that
// file's apply_arguments/get_value/set_value_if_exist/decl_var one for one.
package callobj

import (
	"github.com/duskvm/dusk/internal/errz"
	"github.com/duskvm/dusk/value"
)

// argSlot records one actual argument: the name of the declared parameter
// it aliases (Some(p) for a positional non-rest parameter, None for a rest
// or excess actual), and the value passed.
type argSlot struct {
	name  string
	named bool
	val   value.Value
}

// CallObject is one activation's lexical environment record.
type CallObject struct {
	vals       map[string]*value.Property
	restParams string
	hasRest    bool
	arguments  []argSlot
	this       value.Value
	Parent     *CallObject
}

// New creates a call object bound to this, with no parent (suitable for
// the root/global activation once its vals map is installed as the global
// object's own property map — see NewGlobal).
func New(this value.Value) *CallObject {
	return &CallObject{vals: map[string]*value.Property{}, this: this}
}

// NewChild creates a call object whose parent is outer, forming one more
// link in the lexical scope chain.
func NewChild(outer *CallObject, this value.Value) *CallObject {
	co := New(this)
	co.Parent = outer
	return co
}

// NewGlobal creates the root call object for a program, whose `this` is an
// Ordinary object sharing the very same property map as co.vals — a write
// of an implicit global (SetValueIfExist falling through to the root) and
// a write of a global-object property are therefore the same operation,
// matching callobj.rs's new_global.
func NewGlobal() *CallObject {
	co := New(value.UndefinedValue())
	globalObj := &value.Object{Kind: value.OrdinaryObj, Properties: co.vals}
	co.this = value.NewObject(globalObj)
	return co
}

// Vals exposes the activation's binding map so the host/builtin layer can
// install globals (console, Math, ...) directly into the root call object.
func (c *CallObject) Vals() map[string]*value.Property { return c.vals }

// Equal reports whether two call objects are the identical activation.
// Spec §3.2 defines equality as identity on the (vals, parent) handles;
// since this package never aliases one CallObject's vals map into
// another's, that reduces to pointer identity on the CallObject itself.
func (c *CallObject) Equal(other *CallObject) bool {
	return c == other
}

// This returns the activation's receiver.
func (c *CallObject) This() value.Value { return c.this }

// SetThis mutates the receiver — constructors install a freshly-allocated
// object here before running the function body.
func (c *CallObject) SetThis(v value.Value) { c.this = v }

// DeclVar always installs name in the current call object, shadowing any
// ancestor binding of the same name.
func (c *CallObject) DeclVar(name string, v value.Value) {
	c.vals[name] = value.NewDataProperty(v)
}

// SetValue is an unconditional local write, used internally by
// ApplyArguments to seed parameter bindings.
func (c *CallObject) SetValue(name string, v value.Value) {
	c.vals[name] = value.NewDataProperty(v)
}

// SetValueIfExist mutates the nearest ancestor that binds name; if no
// ancestor binds it, the write installs it at the root call object —
// implicit-global assignment, a footgun preserved per spec §9.
func (c *CallObject) SetValueIfExist(name string, v value.Value) {
	for co := c; co != nil; co = co.Parent {
		if _, ok := co.vals[name]; ok {
			co.vals[name] = value.NewDataProperty(v)
			return
		}
		if co.Parent == nil {
			co.vals[name] = value.NewDataProperty(v)
			return
		}
	}
}

// GetValue walks the chain through Parent until name is found, returning a
// Reference error if no activation binds it.
func (c *CallObject) GetValue(name string) (value.Value, error) {
	for co := c; co != nil; co = co.Parent {
		if p, ok := co.vals[name]; ok {
			return p.Value, nil
		}
	}
	return value.UndefinedValue(), errz.New(errz.Reference, "'%s' is not defined", name)
}

// GetLocalValue looks up name only in this activation, failing with a
// General error (not Reference) if absent — this is an internal-invariant
// check, not a script-observable lookup failure.
func (c *CallObject) GetLocalValue(name string) (value.Value, error) {
	if p, ok := c.vals[name]; ok {
		return p.Value, nil
	}
	return value.UndefinedValue(), errz.New(errz.General, "get_local_value: %q not found in local scope", name)
}

// ApplyArguments seeds every declared parameter to Undefined, then for
// each actual records it in Arguments (aliasing positional non-rest
// parameters) and binds it under the matching parameter name. A trailing
// is_rest parameter collects itself and every subsequent actual into an
// Array bound under its own name.
func (c *CallObject) ApplyArguments(params []value.Param, actuals []value.Value) {
	for _, p := range params {
		c.SetValue(p.Name, value.UndefinedValue())
	}

	c.arguments = c.arguments[:0]
	var restArgs []value.Value

	for i, actual := range actuals {
		if i < len(params) {
			p := params[i]
			if p.IsRest {
				c.arguments = append(c.arguments, argSlot{val: actual})
				restArgs = append(restArgs, actual)
				c.restParams = p.Name
				c.hasRest = true
				continue
			}
			c.arguments = append(c.arguments, argSlot{name: p.Name, named: true, val: actual})
			c.SetValue(p.Name, actual)
			continue
		}
		c.arguments = append(c.arguments, argSlot{val: actual})
		if c.hasRest {
			restArgs = append(restArgs, actual)
		}
	}

	if c.hasRest {
		c.SetValue(c.restParams, value.NewObject(value.NewArray(restArgs)))
	}
}

// GetArgumentsNthValue returns the nth recorded actual. If that slot has
// an associated parameter name, the live binding wins (it may have been
// reassigned since the call), matching callobj.rs's get_arguments_nth_value.
func (c *CallObject) GetArgumentsNthValue(n int) (value.Value, error) {
	if n < 0 || n >= len(c.arguments) {
		return value.UndefinedValue(), nil
	}
	slot := c.arguments[n]
	if slot.named {
		return c.GetLocalValue(slot.name)
	}
	return slot.val, nil
}

// SetArgumentsNthValue writes to the nth recorded actual, aliasing into
// the declared-parameter binding when the slot has one — rewriting
// arguments[i] for a named parameter updates the parameter binding, and
// vice versa (the mutual-aliasing invariant spec §9 calls out).
func (c *CallObject) SetArgumentsNthValue(n int, v value.Value) {
	if n < 0 || n >= len(c.arguments) {
		return
	}
	slot := &c.arguments[n]
	if slot.named {
		c.SetValue(slot.name, v)
		return
	}
	slot.val = v
}

// ArgumentsLength returns the count of recorded actuals (which may exceed
// the declared parameter count).
func (c *CallObject) ArgumentsLength() int { return len(c.arguments) }
