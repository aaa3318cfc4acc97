package querysync

import (
	"math"
	"strconv"
	"strings"
)

// Kind is the dynamic type of a Value.
type Kind uint8

const (
	// KindAbsent means the store has nothing to show in the URL.
	KindAbsent Kind = iota
	KindString
	KindNumber
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindAbsent:
		return "absent"
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	default:
		return "unknown"
	}
}

// Value is a store value: a string, a number, or absent.
// The zero Value is absent.
type Value struct {
	kind Kind
	str  string
	num  float64
}

// Absent returns the absent value.
func Absent() Value {
	return Value{}
}

// String returns a string value. The empty string is present, not absent.
func String(s string) Value {
	return Value{kind: KindString, str: s}
}

// Number returns a numeric value.
func Number(f float64) Value {
	return Value{kind: KindNumber, num: f}
}

// Int returns a numeric value from an int.
func Int(i int) Value {
	return Number(float64(i))
}

// Kind returns the value's kind.
func (v Value) Kind() Kind {
	return v.kind
}

// IsAbsent reports whether v is absent.
func (v Value) IsAbsent() bool {
	return v.kind == KindAbsent
}

// Str returns the string payload and whether v is a string.
func (v Value) Str() (string, bool) {
	return v.str, v.kind == KindString
}

// Num returns the numeric payload and whether v is a number.
func (v Value) Num() (float64, bool) {
	return v.num, v.kind == KindNumber
}

// Int returns v as an int when it is a finite integral number.
func (v Value) Int() (int, bool) {
	if v.kind != KindNumber || math.IsInf(v.num, 0) || math.IsNaN(v.num) || v.num != math.Trunc(v.num) {
		return 0, false
	}
	return int(v.num), true
}

// Equal reports whether v and other have the same kind and payload.
// A string never equals a number, even when their URL forms match.
// NaN equals NaN so that watchers settle.
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindString:
		return v.str == other.str
	case KindNumber:
		return v.num == other.num || (math.IsNaN(v.num) && math.IsNaN(other.num))
	default:
		return true
	}
}

// String returns the URL form of v. Absent values format as "".
// Numbers use the shortest round-tripping representation, switching to
// exponent notation outside [1e-6, 1e21) as browsers do.
func (v Value) String() string {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		return formatNumber(v.num)
	default:
		return ""
	}
}

// GoString makes %#v output readable in test failures.
func (v Value) GoString() string {
	switch v.kind {
	case KindString:
		return "querysync.String(" + strconv.Quote(v.str) + ")"
	case KindNumber:
		return "querysync.Number(" + formatNumber(v.num) + ")"
	default:
		return "querysync.Absent()"
	}
}

func formatNumber(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case f == 0:
		return "0"
	}

	abs := math.Abs(f)
	if abs >= 1e21 || abs < 1e-6 {
		s := strconv.FormatFloat(f, 'e', -1, 64)
		mant, exp, _ := strings.Cut(s, "e")
		sign, digits := exp[:1], strings.TrimLeft(exp[1:], "0")
		if digits == "" {
			digits = "0"
		}
		return mant + "e" + sign + digits
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}
