package gc

import (
	"github.com/duskvm/dusk/callobj"
	"github.com/duskvm/dusk/value"
)

// Roots is the interpreter state spec §4.5 names as the root set: the
// operand stack, the scope stack (top = current activation; every
// ancestor below it is reachable too, since closures may have captured
// any of them), the history stack (contributes no roots of its own — its
// entries are stack-height/pc pairs — but the scope entries it implicitly
// keeps alive are already covered by Scope), and the constant table's
// value pool (function literals, string literals used as property keys).
type Roots struct {
	Stack   []value.Value
	Scope   []*callobj.CallObject
	Consts  []value.Value
}

// Collect runs one mark-and-sweep pass rooted at roots, reclaiming every
// arena-registered Object/CallObject handle that isn't transitively
// reachable. Cycles (a function whose .prototype.constructor points back
// to itself, `__proto__` chains that loop) are handled correctly because
// marking tracks visited pointers rather than recursing unconditionally.
func (a *Arena) Collect(roots Roots) {
	markedObjs := map[*value.Object]bool{}
	markedCalls := map[*callobj.CallObject]bool{}

	for _, v := range roots.Stack {
		markValue(v, markedObjs, markedCalls)
	}
	for _, co := range roots.Scope {
		markCallObject(co, markedObjs, markedCalls)
	}
	for _, v := range roots.Consts {
		markValue(v, markedObjs, markedCalls)
	}

	freed := 0
	for h := range a.slab {
		e := &a.slab[h]
		if !e.alive {
			continue
		}
		switch {
		case e.obj != nil && !markedObjs[e.obj]:
			*e = entry{}
			a.free = append(a.free, Handle(h))
			freed++
		case e.call != nil && !markedCalls[e.call]:
			*e = entry{}
			a.free = append(a.free, Handle(h))
			freed++
		}
	}

	a.Collections++
	a.LastFreed = freed
}

func markValue(v value.Value, objs map[*value.Object]bool, calls map[*callobj.CallObject]bool) {
	if !v.IsObject() {
		return
	}
	markObject(v.Obj(), objs, calls)
}

func markObject(obj *value.Object, objs map[*value.Object]bool, calls map[*callobj.CallObject]bool) {
	if obj == nil || objs[obj] {
		return
	}
	objs[obj] = true

	for _, p := range obj.Properties {
		markProperty(p, objs, calls)
	}
	for _, e := range obj.Elems {
		markValue(e, objs, calls)
	}
	if obj.Func != nil {
		for _, fd := range obj.Func.FuncDecls {
			markValue(fd, objs, calls)
		}
		if outer, ok := obj.Func.Outer.(*callobj.CallObject); ok {
			markCallObject(outer, objs, calls)
		}
	}
	if obj.Builtin != nil {
		if captured, ok := obj.Builtin.Captured.(*callobj.CallObject); ok {
			markCallObject(captured, objs, calls)
		}
	}
}

func markProperty(p *value.Property, objs map[*value.Object]bool, calls map[*callobj.CallObject]bool) {
	if p == nil {
		return
	}
	if p.IsAccessor {
		markValue(p.Get, objs, calls)
		markValue(p.Set, objs, calls)
		return
	}
	markValue(p.Value, objs, calls)
}

func markCallObject(co *callobj.CallObject, objs map[*value.Object]bool, calls map[*callobj.CallObject]bool) {
	if co == nil || calls[co] {
		return
	}
	calls[co] = true

	for _, p := range co.Vals() {
		markProperty(p, objs, calls)
	}
	markValue(co.This(), objs, calls)
	markCallObject(co.Parent, objs, calls)
}
