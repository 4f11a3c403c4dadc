package values

import "math"

// Identical implements `===`: types must match exactly, and for arrays,
// keys/values must match in order with each element also identical.
func Identical(a, b *Value) bool {
	if a.Type != b.Type {
		return false
	}
	switch a.Type {
	case Null, Uninitialized:
		return true
	case Bool:
		return a.AsBool() == b.AsBool()
	case Int:
		return a.AsInt() == b.AsInt()
	case Float:
		return a.AsFloat() == b.AsFloat()
	case String:
		return a.AsString() == b.AsString()
	case Array:
		aa, ba := a.AsArray(), b.AsArray()
		if aa.Len() != ba.Len() {
			return false
		}
		for i, k := range aa.Keys() {
			bk := ba.Keys()[i]
			if k != bk {
				return false
			}
			if !Identical(aa.Values()[i], ba.Values()[i]) {
				return false
			}
		}
		return true
	case Object:
		return a.Data.(*ObjPayload) == b.Data.(*ObjPayload)
	case Resource:
		return a.Data == b.Data
	default:
		return false
	}
}

// Equal implements `==` loose comparison per PHP 8's type-juggling table:
// numeric strings compare numerically against numbers, non-numeric
// strings compare as strings against numbers (PHP 8 behavior, replacing
// PHP 7's cast-to-number-of-anything rule), bool/null operands coerce the
// other side to bool.
func Equal(a, b *Value) bool {
	if a.Type == b.Type {
		switch a.Type {
		case Array:
			aa, ba := a.AsArray(), b.AsArray()
			if aa.Len() != ba.Len() {
				return false
			}
			for i, k := range aa.Keys() {
				bv, ok := ba.Get(k)
				if !ok {
					return false
				}
				_ = i
				if !Equal(aa.Values()[i], bv) {
					return false
				}
			}
			return true
		case Object:
			ap, bp := a.Data.(*ObjPayload), b.Data.(*ObjPayload)
			if ap == bp {
				return true
			}
			if ap.ClassName != bp.ClassName || len(ap.Properties) != len(bp.Properties) {
				return false
			}
			for k, v := range ap.Properties {
				bv, ok := bp.Properties[k]
				if !ok || !Equal(v, bv) {
					return false
				}
			}
			return true
		default:
			return Compare(a, b) == 0
		}
	}
	if a.Type == Null || b.Type == Null {
		if a.Type == Null && b.Type == Null {
			return true
		}
		var other *Value
		if a.Type == Null {
			other = b
		} else {
			other = a
		}
		return !other.ToBool()
	}
	if a.Type == Bool || b.Type == Bool {
		return a.ToBool() == b.ToBool()
	}
	return Compare(a, b) == 0
}

// Compare implements PHP's three-way comparison used by `<=>`, `<`, `>`,
// and (after a type-equality short-circuit in Equal) by `==`.
func Compare(a, b *Value) int {
	if a.Type == Array && b.Type == Array {
		aa, ba := a.AsArray(), b.AsArray()
		if aa.Len() != ba.Len() {
			if aa.Len() < ba.Len() {
				return -1
			}
			return 1
		}
		for i, k := range aa.Keys() {
			bv, ok := ba.Get(k)
			if !ok {
				return 1
			}
			if c := Compare(aa.Values()[i], bv); c != 0 {
				return c
			}
		}
		return 0
	}
	if a.Type == String && b.Type == String {
		as, bs := a.AsString(), b.AsString()
		afn, aIsFloat, aok := parseNumericString(as)
		bfn, bIsFloat, bok := parseNumericString(bs)
		if aok && bok {
			_ = aIsFloat
			_ = bIsFloat
			return cmpFloat(afn, bfn)
		}
		if as == bs {
			return 0
		}
		if as < bs {
			return -1
		}
		return 1
	}
	if (a.Type == Int || a.Type == Float) && b.Type == String {
		if bf, _, ok := parseNumericString(b.AsString()); ok {
			return cmpFloat(a.ToFloat(), bf)
		}
		return Compare(NewString(a.ToString()), b)
	}
	if a.Type == String && (b.Type == Int || b.Type == Float) {
		return -Compare(b, a)
	}
	if a.Type == Bool || b.Type == Bool || a.Type == Null || b.Type == Null {
		ab, bb := a.ToBool(), b.ToBool()
		if ab == bb {
			return 0
		}
		if !ab {
			return -1
		}
		return 1
	}
	return cmpFloat(a.ToFloat(), b.ToFloat())
}

func cmpFloat(a, b float64) int {
	if math.IsNaN(a) || math.IsNaN(b) {
		return 1
	}
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
