package stdlib

import (
	"encoding/json"
	"sort"

	"github.com/loomphp/loom/registry"
	"github.com/loomphp/loom/values"
)

// JSONExtension is the `json` extension: json_encode/json_decode built
// on encoding/json, grounded on the Rust predecessor's
// runtime/json_extension.rs (_examples/original_source) which registers
// exactly this pair through the same module-init protocol.
type JSONExtension struct{ baseExtension }

func (*JSONExtension) Name() string    { return "json" }
func (*JSONExtension) Version() string { return "1.0.0" }

func (e *JSONExtension) ModuleInit(reg *registry.Registry) error {
	register(reg, "json_encode", jsonEncode)
	register(reg, "json_decode", jsonDecode)
	return nil
}

func jsonEncode(ctx registry.CallContext, args []*values.Value) (*values.Value, error) {
	if ctx.ArgCount() == 0 {
		return values.NewBool(false), nil
	}
	data := valueToJSONable(ctx.Arg(0))
	out, err := json.Marshal(data)
	if err != nil {
		return values.NewBool(false), nil
	}
	return values.NewString(string(out)), nil
}

func jsonDecode(ctx registry.CallContext, args []*values.Value) (*values.Value, error) {
	if ctx.ArgCount() == 0 {
		return values.NewNull(), nil
	}
	assoc := ctx.ArgCount() > 1 && ctx.Arg(1).ToBool()
	var data interface{}
	if err := json.Unmarshal([]byte(ctx.Arg(0).ToString()), &data); err != nil {
		return values.NewNull(), nil
	}
	return jsonableToValue(data, assoc), nil
}

// valueToJSONable converts an engine Value into the plain Go shape
// encoding/json can marshal: a PHP list-shaped array becomes a JSON
// array, anything else (associative array or object) becomes one of the
// ordered key/value types below, so key order is preserved. Scalars pass
// through directly.
func valueToJSONable(v *values.Value) interface{} {
	switch v.Type {
	case values.Null, values.Uninitialized:
		return nil
	case values.Bool:
		return v.AsBool()
	case values.Int:
		return v.AsInt()
	case values.Float:
		return v.AsFloat()
	case values.String:
		return v.AsString()
	case values.Array:
		arr := v.AsArray()
		if arr.IsList() {
			out := make([]interface{}, 0, arr.Len())
			for _, elem := range arr.Values() {
				out = append(out, valueToJSONable(elem))
			}
			return out
		}
		return orderedObject{keys: keyStrings(arr), arr: arr}
	case values.Object:
		payload := v.Data.(*values.ObjPayload)
		keys := append([]string(nil), payload.PropOrder...)
		return orderedProps{keys: keys, props: payload.Properties}
	default:
		return nil
	}
}

func keyStrings(arr *values.ArrayData) []string {
	keys := arr.Keys()
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = k.String()
	}
	return out
}

// orderedObject/orderedProps implement json.Marshaler directly so
// associative-array and object key order survives encoding, rather than
// going through a map[string]interface{} (whose iteration order
// encoding/json does not guarantee matches insertion).
type orderedObject struct {
	keys []string
	arr  *values.ArrayData
}

func (o orderedObject) MarshalJSON() ([]byte, error) {
	buf := []byte{'{'}
	for i, k := range o.keys {
		if i > 0 {
			buf = append(buf, ',')
		}
		kb, _ := json.Marshal(k)
		buf = append(buf, kb...)
		buf = append(buf, ':')
		key := values.StrKey(k)
		if numKey, err := parseIntKey(k); err == nil {
			key = values.IntKey(numKey)
		}
		v, _ := o.arr.Get(key)
		vb, err := json.Marshal(valueToJSONable(v))
		if err != nil {
			return nil, err
		}
		buf = append(buf, vb...)
	}
	buf = append(buf, '}')
	return buf, nil
}

type orderedProps struct {
	keys  []string
	props map[string]*values.Value
}

func (o orderedProps) MarshalJSON() ([]byte, error) {
	buf := []byte{'{'}
	for i, k := range o.keys {
		if i > 0 {
			buf = append(buf, ',')
		}
		kb, _ := json.Marshal(k)
		buf = append(buf, kb...)
		buf = append(buf, ':')
		vb, err := json.Marshal(valueToJSONable(o.props[k]))
		if err != nil {
			return nil, err
		}
		buf = append(buf, vb...)
	}
	buf = append(buf, '}')
	return buf, nil
}

func parseIntKey(s string) (int64, error) {
	var n int64
	var neg bool
	rest := s
	if len(rest) > 0 && rest[0] == '-' {
		neg = true
		rest = rest[1:]
	}
	if rest == "" {
		return 0, errNotInt
	}
	for _, c := range rest {
		if c < '0' || c > '9' {
			return 0, errNotInt
		}
		n = n*10 + int64(c-'0')
	}
	if neg {
		n = -n
	}
	return n, nil
}

var errNotInt = jsonKeyError("not an integer key")

type jsonKeyError string

func (e jsonKeyError) Error() string { return string(e) }

// jsonableToValue converts decoded JSON back into an engine Value.
// assoc mirrors json_decode's second argument: true turns JSON objects
// into PHP associative arrays instead of stdClass-shaped objects.
func jsonableToValue(data interface{}, assoc bool) *values.Value {
	switch d := data.(type) {
	case nil:
		return values.NewNull()
	case bool:
		return values.NewBool(d)
	case float64:
		if d == float64(int64(d)) {
			return values.NewInt(int64(d))
		}
		return values.NewFloat(d)
	case string:
		return values.NewString(d)
	case []interface{}:
		arr := values.NewArrayData()
		for _, elem := range d {
			arr.Append(jsonableToValue(elem, assoc))
		}
		return values.NewArrayFrom(arr)
	case map[string]interface{}:
		keys := make([]string, 0, len(d))
		for k := range d {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		if assoc {
			arr := values.NewArrayData()
			for _, k := range keys {
				arr.Set(values.StrKey(k), jsonableToValue(d[k], assoc))
			}
			return values.NewArrayFrom(arr)
		}
		obj := values.NewObjPayload("stdClass")
		for _, k := range keys {
			obj.Set(k, jsonableToValue(d[k], assoc))
		}
		return &values.Value{Type: values.Object, Data: obj}
	default:
		return values.NewNull()
	}
}
