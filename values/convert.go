package values

import (
	"math"
	"strconv"
	"strings"
)

// parseNumericString implements PHP's "is this string numeric" scan,
// returning the parsed value as a float64 (isFloat reports whether the
// text was float-shaped rather than an integer literal) and whether the
// string is numeric at all. Leading whitespace
// is skipped; trailing whitespace is permitted (PHP 8 numeric-string
// rules); anything else trailing the numeric run makes it non-numeric.
func parseNumericString(s string) (asFloat float64, isFloat bool, ok bool) {
	i, n := 0, len(s)
	for i < n && isSpace(s[i]) {
		i++
	}
	start := i
	if i < n && (s[i] == '+' || s[i] == '-') {
		i++
	}
	digitsStart := i
	for i < n && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	intDigits := i - digitsStart
	sawDot := false
	fracDigits := 0
	if i < n && s[i] == '.' {
		sawDot = true
		i++
		fracStart := i
		for i < n && s[i] >= '0' && s[i] <= '9' {
			i++
		}
		fracDigits = i - fracStart
	}
	if intDigits == 0 && fracDigits == 0 {
		return 0, false, false
	}
	sawExp := false
	if i < n && (s[i] == 'e' || s[i] == 'E') {
		j := i + 1
		if j < n && (s[j] == '+' || s[j] == '-') {
			j++
		}
		expStart := j
		for j < n && s[j] >= '0' && s[j] <= '9' {
			j++
		}
		if j > expStart {
			sawExp = true
			i = j
		}
	}
	numEnd := i
	for i < n && isSpace(s[i]) {
		i++
	}
	if i != n {
		return 0, false, false
	}
	text := s[start:numEnd]
	if sawDot || sawExp {
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return 0, false, false
		}
		return f, true, true
	}
	iv, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		f, ferr := strconv.ParseFloat(text, 64)
		if ferr != nil {
			return 0, false, false
		}
		return f, true, true
	}
	return float64(iv), false, true
}

func isSpace(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\r', '\v', '\f':
		return true
	default:
		return false
	}
}

// ToBool implements PHP's boolean coercion (§4.E): false, 0, 0.0, "", "0",
// empty array, and null are falsy; everything else is truthy.
func (v *Value) ToBool() bool {
	switch v.Type {
	case Null, Uninitialized:
		return false
	case Bool:
		return v.AsBool()
	case Int:
		return v.AsInt() != 0
	case Float:
		return v.AsFloat() != 0
	case String:
		s := v.AsString()
		return s != "" && s != "0"
	case Array:
		return v.AsArray().Len() > 0
	case Object, Resource:
		return true
	default:
		return false
	}
}

// ToInt implements PHP's integer coercion, including numeric-string
// leading-digit-run extraction for non-numeric strings (e.g. "12abc" ->
// 12, "abc" -> 0).
func (v *Value) ToInt() int64 {
	switch v.Type {
	case Null, Uninitialized:
		return 0
	case Bool:
		if v.AsBool() {
			return 1
		}
		return 0
	case Int:
		return v.AsInt()
	case Float:
		f := v.AsFloat()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return 0
		}
		return int64(f)
	case String:
		if f, isFloat, ok := parseNumericString(v.AsString()); ok {
			if isFloat {
				return int64(f)
			}
			return int64(f)
		}
		return int64(leadingIntDigits(v.AsString()))
	case Array:
		if v.AsArray().Len() == 0 {
			return 0
		}
		return 1
	default:
		return 0
	}
}

// leadingIntDigits parses the leading optional-sign digit run of a
// non-strictly-numeric string the way PHP's int cast does ("12abc" -> 12).
func leadingIntDigits(s string) float64 {
	i, n := 0, len(s)
	for i < n && isSpace(s[i]) {
		i++
	}
	start := i
	if i < n && (s[i] == '+' || s[i] == '-') {
		i++
	}
	digitsStart := i
	for i < n && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i == digitsStart {
		return 0
	}
	iv, err := strconv.ParseInt(s[start:i], 10, 64)
	if err != nil {
		return 0
	}
	return float64(iv)
}

// ToFloat implements PHP's float coercion.
func (v *Value) ToFloat() float64 {
	switch v.Type {
	case Null, Uninitialized:
		return 0
	case Bool:
		if v.AsBool() {
			return 1
		}
		return 0
	case Int:
		return float64(v.AsInt())
	case Float:
		return v.AsFloat()
	case String:
		if f, _, ok := parseNumericString(v.AsString()); ok {
			return f
		}
		return leadingIntDigits(v.AsString())
	case Array:
		if v.AsArray().Len() == 0 {
			return 0
		}
		return 1
	default:
		return 0
	}
}

// ToString implements PHP's string coercion. Objects require a __toString
// method resolved by the caller (runtime/vm layer); this function renders
// only value-representable types and falls back to the class name in
// angle brackets for objects, matching the engine's error-path behavior
// for uncastable objects.
func (v *Value) ToString() string {
	switch v.Type {
	case Null, Uninitialized:
		return ""
	case Bool:
		if v.AsBool() {
			return "1"
		}
		return ""
	case Int:
		return strconv.FormatInt(v.AsInt(), 10)
	case Float:
		return formatPHPFloat(v.AsFloat())
	case String:
		return v.AsString()
	case Array:
		return "Array"
	case Object:
		if p, ok := v.Data.(*ObjPayload); ok {
			return "<" + p.ClassName + ">"
		}
		return "<object>"
	default:
		return ""
	}
}

// formatPHPFloat renders a float the way PHP's default precision=14
// serialization does: shortest representation that round-trips at 14
// significant digits, with "INF"/"-INF"/"NAN" for the non-finite cases
// and no trailing ".0" for integral values outside exponent form. In
// exponent form the mantissa keeps at least one decimal and the exponent
// has no leading zeros ("1.0E+20", "1.5E-7").
func formatPHPFloat(f float64) string {
	if math.IsNaN(f) {
		return "NAN"
	}
	if math.IsInf(f, 1) {
		return "INF"
	}
	if math.IsInf(f, -1) {
		return "-INF"
	}
	s := strconv.FormatFloat(f, 'G', 14, 64)
	if i := strings.IndexByte(s, 'E'); i >= 0 {
		mant, sign, digits := s[:i], s[i+1:i+2], strings.TrimLeft(s[i+2:], "0")
		if !strings.Contains(mant, ".") {
			mant += ".0"
		}
		s = mant + "E" + sign + digits
	}
	return s
}
