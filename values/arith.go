package values

import (
	"errors"
	"math"
	"strings"
)

// ErrDivisionByZero is returned by Div/Mod for integer division by zero;
// the vm layer turns it into a thrown DivisionByZeroError. Float division
// by zero does not error: it yields +Inf/-Inf/NaN per IEEE 754, matching
// PHP 8's `1.0/0` -> INF semantics.
var ErrDivisionByZero = errors.New("division by zero")

// numericOperands coerces two operands to the arithmetic domain PHP uses
// for `+ - * / % **`: strings are parsed as numeric, bool/null coerce
// through ToInt/ToFloat, and the result is float if either side is.
func numericOperands(a, b *Value) (af, bf float64, isFloat bool) {
	isFloat = a.Type == Float || b.Type == Float
	if !isFloat {
		if a.Type == String {
			if _, fl, _ := parseNumericString(a.AsString()); fl {
				isFloat = true
			}
		}
		if b.Type == String {
			if _, fl, _ := parseNumericString(b.AsString()); fl {
				isFloat = true
			}
		}
	}
	return a.ToFloat(), b.ToFloat(), isFloat
}

// Add implements `+`, including PHP's array-union semantics when both
// operands are arrays (left array wins on key collision).
func Add(a, b *Value) (*Value, error) {
	if a.Type == Array && b.Type == Array {
		result := a.AsArray().Clone()
		bb := b.AsArray()
		for i, k := range bb.Keys() {
			if _, exists := result.Get(k); !exists {
				result.Set(k, bb.Values()[i])
			}
		}
		return NewArrayFrom(result), nil
	}
	af, bf, isFloat := numericOperands(a, b)
	if !isFloat {
		ai, bi := a.ToInt(), b.ToInt()
		sum := ai + bi
		if (bi > 0 && sum < ai) || (bi < 0 && sum > ai) {
			return NewFloat(af + bf), nil
		}
		return NewInt(sum), nil
	}
	return NewFloat(af + bf), nil
}

// Sub implements `-`.
func Sub(a, b *Value) (*Value, error) {
	af, bf, isFloat := numericOperands(a, b)
	if !isFloat {
		ai, bi := a.ToInt(), b.ToInt()
		diff := ai - bi
		if (bi < 0 && diff < ai) || (bi > 0 && diff > ai) {
			return NewFloat(af - bf), nil
		}
		return NewInt(diff), nil
	}
	return NewFloat(af - bf), nil
}

// Mul implements `*`, promoting to float on int64 overflow.
func Mul(a, b *Value) (*Value, error) {
	af, bf, isFloat := numericOperands(a, b)
	if !isFloat {
		ai, bi := a.ToInt(), b.ToInt()
		if ai == 0 || bi == 0 {
			return NewInt(0), nil
		}
		prod := ai * bi
		if prod/bi != ai {
			return NewFloat(af * bf), nil
		}
		return NewInt(prod), nil
	}
	return NewFloat(af * bf), nil
}

// Div implements `/`. Integer division by zero throws; float division by
// zero produces INF/-INF/NAN. Evenly-dividing int operands yield an int
// result; anything else (including float operands) yields a float.
func Div(a, b *Value) (*Value, error) {
	af, bf, isFloat := numericOperands(a, b)
	if isFloat {
		return NewFloat(af / bf), nil
	}
	ai, bi := a.ToInt(), b.ToInt()
	if bi == 0 {
		return nil, ErrDivisionByZero
	}
	if ai%bi == 0 {
		return NewInt(ai / bi), nil
	}
	return NewFloat(af / bf), nil
}

// Mod implements `%`, always integer, per PHP semantics (operands are
// truncated to int before the operation).
func Mod(a, b *Value) (*Value, error) {
	bi := b.ToInt()
	if bi == 0 {
		return nil, ErrDivisionByZero
	}
	return NewInt(a.ToInt() % bi), nil
}

// Pow implements `**`, promoting to float whenever the exponent is
// negative or the result would overflow int64.
func Pow(a, b *Value) (*Value, error) {
	af, bf, isFloat := numericOperands(a, b)
	if !isFloat && b.ToInt() >= 0 {
		ai, bi := a.ToInt(), b.ToInt()
		result, overflow := intPow(ai, bi)
		if !overflow {
			return NewInt(result), nil
		}
	}
	return NewFloat(math.Pow(af, bf)), nil
}

func intPow(base, exp int64) (int64, bool) {
	var result int64 = 1
	for i := int64(0); i < exp; i++ {
		next := result * base
		if base != 0 && next/base != result {
			return 0, true
		}
		result = next
	}
	return result, false
}

// Concat implements `.`.
func Concat(a, b *Value) *Value {
	var sb strings.Builder
	sb.WriteString(a.ToString())
	sb.WriteString(b.ToString())
	return NewString(sb.String())
}

// Neg implements unary `-`.
func Neg(a *Value) *Value {
	if a.Type == Float {
		return NewFloat(-a.AsFloat())
	}
	i := a.ToInt()
	if i == math.MinInt64 {
		return NewFloat(-float64(i))
	}
	return NewInt(-i)
}

// BitAnd, BitOr, BitXor, BitNot, Shl, Shr implement the integer bitwise
// operators; string operands are intentionally not given PHP's
// byte-string bitwise semantics (no script in scope exercises it), so
// both sides are coerced through ToInt.

func BitAnd(a, b *Value) *Value { return NewInt(a.ToInt() & b.ToInt()) }
func BitOr(a, b *Value) *Value  { return NewInt(a.ToInt() | b.ToInt()) }
func BitXor(a, b *Value) *Value { return NewInt(a.ToInt() ^ b.ToInt()) }
func BitNot(a *Value) *Value    { return NewInt(^a.ToInt()) }
func Shl(a, b *Value) *Value    { return NewInt(a.ToInt() << uint64(b.ToInt())) }
func Shr(a, b *Value) *Value    { return NewInt(a.ToInt() >> uint64(b.ToInt())) }
