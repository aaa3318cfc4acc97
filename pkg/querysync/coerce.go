package querysync

import (
	"errors"
	"math"
	"math/big"
	"strconv"
	"strings"
)

// ParseQueryValue coerces a raw query value into a store value.
// The empty string stays the empty string. A string that parses as a
// number becomes that number. Anything else, including malformed
// numeric-looking strings such as "5abc", stays a string.
func ParseQueryValue(raw string) Value {
	if raw == "" {
		return String(raw)
	}
	if f, ok := parseNumber(raw); ok {
		return Number(f)
	}
	return String(raw)
}

// parseNumber accepts the numeric literal forms a browser's Number() does:
// optional surrounding whitespace, decimal with optional sign, fraction and
// exponent, 0x/0o/0b integers, and signed "Infinity". Whitespace-only input
// is rejected.
func parseNumber(raw string) (float64, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, false
	}

	switch s {
	case "Infinity", "+Infinity":
		return math.Inf(1), true
	case "-Infinity":
		return math.Inf(-1), true
	}

	if len(s) > 2 && s[0] == '0' {
		base := 0
		switch s[1] {
		case 'x', 'X':
			base = 16
		case 'o', 'O':
			base = 8
		case 'b', 'B':
			base = 2
		}
		if base != 0 {
			return parseRadix(s[2:], base)
		}
	}

	// strconv accepts spellings a browser rejects.
	lower := strings.ToLower(s)
	if strings.Contains(lower, "inf") || strings.Contains(lower, "nan") || strings.Contains(s, "_") {
		return 0, false
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		if errors.Is(err, strconv.ErrRange) {
			// Overflow to ±Inf and underflow to 0 are valid numbers.
			return f, true
		}
		return 0, false
	}
	return f, true
}

func parseRadix(digits string, base int) (float64, bool) {
	n, err := strconv.ParseUint(digits, base, 64)
	if err == nil {
		return float64(n), true
	}
	if !errors.Is(err, strconv.ErrRange) {
		return 0, false
	}
	b, ok := new(big.Int).SetString(digits, base)
	if !ok {
		return 0, false
	}
	f, _ := new(big.Float).SetInt(b).Float64()
	return f, true
}
