package value

import (
	"fmt"
	"sort"
	"strings"

	"github.com/duskvm/dusk/bytecode"
)

// ObjectKind distinguishes the payload an Object record carries.
type ObjectKind uint8

const (
	// OrdinaryObj is a plain string-keyed property map.
	OrdinaryObj ObjectKind = iota
	// ArrayObj additionally carries dense indexed storage and a length.
	ArrayObj
	// FunctionObj carries compiled bytecode and closure metadata.
	FunctionObj
	// BuiltinObj carries a native Go implementation.
	BuiltinObj
	// SymbolObj carries a unique id and optional description.
	SymbolObj
)

// Environment is an opaque reference to a lexical environment (concretely
// a *callobj.CallObject). It's declared here, rather than importing
// callobj directly, because callobj.CallObject itself holds Values —
// importing callobj from value would form an import cycle. Consumers that
// need the concrete type (vm, compiler, builtin) type-assert it back.
type Environment any

// Property is a property descriptor: either a Data property (a value plus
// its attribute bits) or an Accessor property (get/set callables).
type Property struct {
	IsAccessor bool

	// Data property fields.
	Value Value

	// Accessor property fields; Get/Set are Undefined when absent.
	Get, Set Value

	Writable     bool
	Enumerable   bool
	Configurable bool
}

// NewDataProperty builds a writable, enumerable, configurable data
// property — the default shape for ordinary assignment.
func NewDataProperty(v Value) *Property {
	return &Property{Value: v, Writable: true, Enumerable: true, Configurable: true}
}

// Param is a formal parameter descriptor: a name plus whether it's the
// rest parameter collecting all remaining actuals.
type Param struct {
	Name   string
	IsRest bool
}

// FunctionInfo is the Function payload (spec §3.1).
type FunctionInfo struct {
	ID         int
	Name       string
	Params     []Param
	VarNames   []string // hoisted `var` bindings
	LexNames   []string // block-scoped bindings
	FuncDecls  []Value  // nested function declarations to hoist
	Code       bytecode.Instructions
	NumLocals  int
	Outer      Environment // captured lexical environment, nil until SetCurCallobj runs
}

// BuiltinFunc is the native Go implementation of a built-in. The
// CallObject parameter is the caller's activation (for builtins that need
// `this`/`arguments`); under Construct it is a child of the caller's
// activation whose `this` is the newly allocated object. It is typed as
// Environment for the same reason FunctionInfo.Outer is.
type BuiltinFunc func(vm any, args []Value, caller Environment) (Value, error)

// BuiltinInfo is the BuiltinFunction payload (spec §3.1).
type BuiltinInfo struct {
	ID   string
	Fn   BuiltinFunc
	// NeedThis marks a builtin that must be rebound to its receiver at
	// the next Call (e.g. Array.prototype.push); see Value.NeedThis.
	NeedThis bool
	// Captured is the call object bound at construction time for
	// builtins that close over a fixed `this`/`arguments` rather than
	// resolving them per-call.
	Captured Environment
}

// SymbolInfo is the Symbol payload (spec §3.1).
type SymbolInfo struct {
	ID          uint64
	Description string
}

// Object is a heap-allocated object record. Handle is assigned by
// gc.Arena.NewObject and is otherwise unused by this package; it records
// the object's arena slot without this package importing gc (gc imports
// value, not the reverse). gc's mark tables are keyed by pointer, not by
// Handle.
type Object struct {
	Kind   ObjectKind
	Handle uint32

	Properties map[string]*Property

	// Array payload.
	Elems  []Value
	Length int

	Func    *FunctionInfo
	Builtin *BuiltinInfo
	Symbol  *SymbolInfo
}

// NewOrdinary returns an empty Ordinary object.
func NewOrdinary() *Object {
	return &Object{Kind: OrdinaryObj, Properties: map[string]*Property{}}
}

// NewArray returns an Array object seeded with elems.
func NewArray(elems []Value) *Object {
	return &Object{
		Kind:       ArrayObj,
		Properties: map[string]*Property{},
		Elems:      elems,
		Length:     len(elems),
	}
}

// NewFunction returns a Function object. Its prototype object is
// pre-populated with a self-referential constructor property (the
// new_value_function pattern from the engine this spec was distilled
// from), so `f.prototype.constructor === f` holds without extra bytecode —
// the canonical cyclic structure the Memory Manager must collect correctly.
func NewFunction(info *FunctionInfo) *Object {
	fn := &Object{Kind: FunctionObj, Properties: map[string]*Property{}, Func: info}
	proto := NewOrdinary()
	proto.Properties["constructor"] = NewDataProperty(NewObject(fn))
	fn.Properties["prototype"] = NewDataProperty(NewObject(proto))
	return fn
}

// NewBuiltin returns a BuiltinFunction object.
func NewBuiltin(info *BuiltinInfo) *Object {
	return &Object{Kind: BuiltinObj, Properties: map[string]*Property{}, Builtin: info}
}

// NewSymbol returns a Symbol object.
func NewSymbol(info *SymbolInfo) *Object {
	return &Object{Kind: SymbolObj, Properties: map[string]*Property{}, Symbol: info}
}

// Inspect renders an Object the way console.log would print it.
func (o *Object) Inspect() string {
	switch o.Kind {
	case ArrayObj:
		parts := make([]string, len(o.Elems))
		for i, e := range o.Elems {
			if e.IsEmpty() {
				parts[i] = "<empty>"
			} else {
				parts[i] = e.Inspect()
			}
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case FunctionObj:
		name := o.Func.Name
		if name == "" {
			name = "anonymous"
		}
		return fmt.Sprintf("[Function: %s]", name)
	case BuiltinObj:
		return fmt.Sprintf("[Builtin: %s]", o.Builtin.ID)
	case SymbolObj:
		return fmt.Sprintf("Symbol(%s)", o.Symbol.Description)
	default:
		keys := make([]string, 0, len(o.Properties))
		for k := range o.Properties {
			if k == "__proto__" {
				continue
			}
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, len(keys))
		for i, k := range keys {
			p := o.Properties[k]
			if p.IsAccessor {
				parts[i] = fmt.Sprintf("%s: [accessor]", k)
			} else {
				parts[i] = fmt.Sprintf("%s: %s", k, p.Value.Inspect())
			}
		}
		return "{" + strings.Join(parts, ", ") + "}"
	}
}
