package value

import (
	"math"
	"strconv"
	"strings"
)

// ToBoolean implements the conventional truthiness coercion.
func ToBoolean(v Value) bool {
	switch v.kind {
	case Empty, Undefined, Null:
		return false
	case Bool:
		return v.b
	case Number:
		return v.n != 0 && v.n == v.n // false for 0, -0, NaN
	case String:
		return v.s != ""
	case ObjectRef, Arguments:
		return true
	default:
		return false
	}
}

// ToNumber implements the conventional numeric coercion: Empty and
// Undefined produce NaN, Null produces 0, true produces 1, strings are
// trimmed and parsed as a float (an empty or all-blank string produces 0,
// anything unparsable NaN), and objects produce NaN unless a
// caller has already unwrapped a primitive (spec §4.1).
func ToNumber(v Value) float64 {
	switch v.kind {
	case Empty, Undefined:
		return math.NaN()
	case Null:
		return 0
	case Bool:
		if v.b {
			return 1
		}
		return 0
	case Number:
		return v.n
	case String:
		s := strings.TrimSpace(v.s)
		if s == "" {
			return 0
		}
		n, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return math.NaN()
		}
		return n
	default:
		return math.NaN()
	}
}

// ToString implements the conventional string coercion.
func ToString(v Value) string {
	switch v.kind {
	case Empty:
		return ""
	case Undefined:
		return "undefined"
	case Null:
		return "null"
	case Bool:
		return strconv.FormatBool(v.b)
	case Number:
		return formatNumber(v.n)
	case String:
		return v.s
	case ObjectRef:
		return v.obj.Inspect()
	default:
		return ""
	}
}

// ToInt32 casts a Value to a 32-bit two's-complement integer, the way
// bitwise operators do (spec §4.3.4).
func ToInt32(v Value) int32 {
	n := ToNumber(v)
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0
	}
	return int32(uint32(int64(n)))
}

// ToUint32 casts a Value to a 32-bit unsigned integer, used by the
// zero-fill right shift and by Array index canonicalization.
func ToUint32(v Value) uint32 {
	n := ToNumber(v)
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0
	}
	return uint32(int64(n))
}

// AsArrayIndex reports whether v canonicalizes to a non-negative array
// index (an integer Number, or a String that parses as one), returning
// that index.
func AsArrayIndex(v Value) (int, bool) {
	switch v.kind {
	case Number:
		if v.n >= 0 && v.n == math.Trunc(v.n) {
			return int(v.n), true
		}
		return 0, false
	case String:
		n, err := strconv.ParseUint(v.s, 10, 32)
		if err != nil {
			return 0, false
		}
		return int(n), true
	default:
		return 0, false
	}
}
