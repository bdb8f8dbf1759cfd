// Package bytecode defines the instruction set the compiler emits and the
// vm package consumes: a flat byte stream of one-byte opcodes with
// little-endian fixed-width immediates, plus the constant pool format that
// accompanies it.
//
// The catalog here is the authoritative instruction set: every opcode the
// interpreter dispatches on is defined exactly once, in this file, with its
// operand widths declared alongside it so encoding, decoding, and
// disassembly all derive from the same table.
package bytecode

import (
	"encoding/binary"
	"fmt"
	"strings"
)

// Instructions is a flat byte sequence: one-byte opcodes followed by their
// little-endian immediates, with no alignment padding between instructions.
type Instructions []byte

// Op is a single bytecode instruction opcode.
type Op byte

//nolint:revive
const (
	// End halts the outer dispatch loop.
	End Op = iota

	// CreateContext is a no-op placeholder; frame setup already happened
	// in the preceding Call/Construct handler.
	CreateContext

	// Construct pops callee and argc actuals and runs the new-operator
	// protocol (§4.3.3).
	//
	// Operands: [argc:4]
	Construct

	// CreateObject pops n (key, value) pairs and pushes an Ordinary
	// object built from them. A Memory Manager safe-point.
	//
	// Operands: [n:4]
	CreateObject

	// CreateArray pops n values and pushes an Array built from them in
	// reverse-pop order. A Memory Manager safe-point.
	//
	// Operands: [n:4]
	CreateArray

	// PushInt8 pushes Number(k) for a small integer immediate.
	//
	// Operands: [k:1, signed]
	PushInt8

	// PushInt32 pushes Number(k) for a wider integer immediate.
	//
	// Operands: [k:4, signed]
	PushInt32

	// PushFalse pushes Bool(false).
	PushFalse

	// PushTrue pushes Bool(true).
	PushTrue

	// PushUndefined pushes Undefined.
	PushUndefined

	// PushConst copies const_table.value[i] onto the stack.
	//
	// Operands: [i:4]
	PushConst

	// PushThis copies the current activation's this value.
	PushThis

	// PushArguments pushes the Arguments marker.
	PushArguments

	// Lnot pops a value, coerces to bool, and pushes its logical negation.
	Lnot

	// Posi pops a value, coerces to Number, and pushes it unchanged in sign.
	Posi

	// Neg pops a value, coerces to Number, and pushes its negation.
	Neg

	// Add pops two values and pushes their sum, or their concatenation
	// if either operand is a String.
	Add
	// Sub pops two Numbers and pushes their difference.
	Sub
	// Mul pops two Numbers and pushes their product.
	Mul
	// Div pops two Numbers and pushes their quotient.
	Div
	// Rem pops two Numbers and pushes the truncating remainder of the
	// signed 64-bit cast of each (§4.3.4, §9: a known source defect
	// preserved for compatibility).
	Rem
	// Lt pops two Numbers and pushes Bool(a < b).
	Lt
	// Gt pops two Numbers and pushes Bool(a > b).
	Gt
	// Le pops two Numbers and pushes Bool(a <= b).
	Le
	// Ge pops two Numbers and pushes Bool(a >= b).
	Ge
	// Eq pops two like-typed operands and pushes Bool(a == b); cross-type
	// operands raise Unimplemented (§7).
	Eq
	// Ne is the negation of Eq under the same cross-type restriction.
	Ne
	// BAnd pops two values, casts via to_int32, and pushes the bitwise AND.
	BAnd
	// BOr pops two values, casts via to_int32, and pushes the bitwise OR.
	BOr
	// BXor pops two values, casts via to_int32, and pushes the bitwise XOR.
	BXor
	// Shl pops two values, casts via to_int32, and pushes the left shift.
	Shl
	// Shr pops two values, casts via to_int32, and pushes the signed
	// (arithmetic) right shift.
	Shr
	// ZFShr pops two values, casts via to_uint32, and pushes the
	// zero-fill right shift.
	ZFShr

	// GetMember pops (parent, member) and pushes parent[member] per the
	// §4.1 policy table.
	GetMember
	// SetMember pops (parent, member, value), writes value into
	// parent[member], and pushes value back.
	SetMember

	// JmpIfFalse pops a value and, if it coerces to false, adds the
	// signed offset to pc (offset is relative to the position right
	// after this instruction's immediate).
	//
	// Operands: [offset:4, signed]
	JmpIfFalse

	// Jmp unconditionally adds the signed offset to pc.
	//
	// Operands: [offset:4, signed]
	Jmp

	// Call pops callee and argc actuals and runs the call protocol
	// (§4.3.2).
	//
	// Operands: [argc:4]
	Call

	// Return pops the call history frame and returns to the caller,
	// keeping the top-of-stack value as the return value (§4.3.2).
	Return

	// Double duplicates the top-of-stack value.
	Double

	// Pop discards the top-of-stack value.
	Pop

	// Land is reserved for JIT short-circuit profiling; the interpreter
	// only ever sees its pre-lowered Jmp/JmpIfFalse form and treats it
	// as a no-op if it appears directly.
	Land
	// Lor is the Or counterpart to Land.
	Lor
	// CondOp is reserved for JIT ternary-operator profiling; no effect
	// in the interpreter.
	CondOp

	// SetCurCallobj binds the top-of-stack Function value's parent
	// lexical environment to the current scope, capturing the closure
	// environment at the moment the function literal is evaluated.
	SetCurCallobj

	// GetName resolves const_table.string[i] through the scope chain
	// and pushes its value.
	//
	// Operands: [i:4]
	GetName
	// SetName resolves const_table.string[i] through the scope chain
	// (installing at the root if unbound — implicit globals, §9) and
	// pops a value to store there.
	//
	// Operands: [i:4]
	SetName
	// DeclVar declares const_table.string[i] in the current call object,
	// shadowing any ancestor, and pops a value to store there.
	//
	// Operands: [i:4]
	DeclVar

	// LoopStart is a JIT hook point consulted once per retirement; see
	// §4.4. end_offset points just past the loop body.
	//
	// Operands: [end_offset:4]
	LoopStart
)

// Definition describes an opcode's mnemonic and the byte width of each of
// its immediates, in order.
type Definition struct {
	Name          string
	OperandWidths []int
}

var definitions = map[Op]*Definition{
	End:           {"End", nil},
	CreateContext: {"CreateContext", nil},
	Construct:     {"Construct", []int{4}},
	CreateObject:  {"CreateObject", []int{4}},
	CreateArray:   {"CreateArray", []int{4}},
	PushInt8:      {"PushInt8", []int{1}},
	PushInt32:     {"PushInt32", []int{4}},
	PushFalse:     {"PushFalse", nil},
	PushTrue:      {"PushTrue", nil},
	PushUndefined: {"PushUndefined", nil},
	PushConst:     {"PushConst", []int{4}},
	PushThis:      {"PushThis", nil},
	PushArguments: {"PushArguments", nil},
	Lnot:          {"Lnot", nil},
	Posi:          {"Posi", nil},
	Neg:           {"Neg", nil},
	Add:           {"Add", nil},
	Sub:           {"Sub", nil},
	Mul:           {"Mul", nil},
	Div:           {"Div", nil},
	Rem:           {"Rem", nil},
	Lt:            {"Lt", nil},
	Gt:            {"Gt", nil},
	Le:            {"Le", nil},
	Ge:            {"Ge", nil},
	Eq:            {"Eq", nil},
	Ne:            {"Ne", nil},
	BAnd:          {"BAnd", nil},
	BOr:           {"BOr", nil},
	BXor:          {"BXor", nil},
	Shl:           {"Shl", nil},
	Shr:           {"Shr", nil},
	ZFShr:         {"ZFShr", nil},
	GetMember:     {"GetMember", nil},
	SetMember:     {"SetMember", nil},
	JmpIfFalse:    {"JmpIfFalse", []int{4}},
	Jmp:           {"Jmp", []int{4}},
	Call:          {"Call", []int{4}},
	Return:        {"Return", nil},
	Double:        {"Double", nil},
	Pop:           {"Pop", nil},
	Land:          {"Land", nil},
	Lor:           {"Lor", nil},
	CondOp:        {"CondOp", nil},
	SetCurCallobj: {"SetCurCallobj", nil},
	GetName:       {"GetName", []int{4}},
	SetName:       {"SetName", []int{4}},
	DeclVar:       {"DeclVar", []int{4}},
	LoopStart:     {"LoopStart", []int{4}},
}

// Lookup returns the Definition for the given opcode byte.
func Lookup(op byte) (*Definition, error) {
	def, ok := definitions[Op(op)]
	if !ok {
		return nil, fmt.Errorf("bytecode: opcode %d undefined", op)
	}
	return def, nil
}

// Make encodes op and its operands into a byte sequence using the
// little-endian fixed widths declared in that opcode's Definition.
// Operands wider than their declared width are truncated; signed operands
// must already be passed as their two's-complement int value.
func Make(op Op, operands ...int) []byte {
	def, ok := definitions[op]
	if !ok {
		return []byte{}
	}

	length := 1
	for _, w := range def.OperandWidths {
		length += w
	}

	ins := make([]byte, length)
	ins[0] = byte(op)

	offset := 1
	for i, operand := range operands {
		width := def.OperandWidths[i]
		switch width {
		case 1:
			ins[offset] = byte(int8(operand))
		case 4:
			binary.LittleEndian.PutUint32(ins[offset:], uint32(int32(operand)))
		}
		offset += width
	}
	return ins
}

// ReadOperands decodes the operands of an instruction whose opcode has
// already been consumed, returning the decoded values and the number of
// bytes read.
func ReadOperands(def *Definition, ins Instructions) ([]int, int) {
	operands := make([]int, len(def.OperandWidths))
	offset := 0

	for i, width := range def.OperandWidths {
		switch width {
		case 1:
			operands[i] = int(int8(ins[offset]))
		case 4:
			operands[i] = int(int32(binary.LittleEndian.Uint32(ins[offset:])))
		}
		offset += width
	}
	return operands, offset
}

// ReadUint32 decodes a little-endian uint32 immediate (used for the
// unsigned index/count operands: PushConst, CreateObject/Array, Call,
// Construct, GetName/SetName/DeclVar, LoopStart).
func ReadUint32(ins Instructions) uint32 {
	return binary.LittleEndian.Uint32(ins)
}

// String renders the instruction stream as a human-readable disassembly,
// one "%04d MNEMONIC operands" line per instruction.
func (ins Instructions) String() string {
	var out strings.Builder

	i := 0
	for i < len(ins) {
		def, err := Lookup(ins[i])
		if err != nil {
			fmt.Fprintf(&out, "ERROR: %s\n", err)
			i++
			continue
		}
		operands, read := ReadOperands(def, ins[i+1:])
		fmt.Fprintf(&out, "%04d %s\n", i, ins.fmtInstruction(def, operands))
		i += 1 + read
	}

	return out.String()
}

func (ins Instructions) fmtInstruction(def *Definition, operands []int) string {
	if len(operands) != len(def.OperandWidths) {
		return fmt.Sprintf("ERROR: operand len %d does not match defined %d", len(operands), len(def.OperandWidths))
	}

	switch len(operands) {
	case 0:
		return def.Name
	case 1:
		return fmt.Sprintf("%s %d", def.Name, operands[0])
	default:
		parts := make([]string, len(operands))
		for i, o := range operands {
			parts[i] = fmt.Sprintf("%d", o)
		}
		return fmt.Sprintf("%s %s", def.Name, strings.Join(parts, " "))
	}
}
