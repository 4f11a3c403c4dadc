package stdlib

import (
	"strings"
	"unicode/utf8"

	"github.com/loomphp/loom/registry"
	"github.com/loomphp/loom/values"
)

// MBStringExtension is the `mbstring` extension: rune-aware string
// functions, grounded on the Rust predecessor's runtime/mb_extension.rs
// (_examples/original_source) which wraps the same handful of
// multibyte-safe operations over an otherwise byte-oriented string
// type. Go's unicode/utf8 already gives exact rune counting/indexing,
// so no third-party UTF-8 library is pulled in — none of the example
// repos carry one, and the standard library covers this precisely.
type MBStringExtension struct{ baseExtension }

func (*MBStringExtension) Name() string    { return "mbstring" }
func (*MBStringExtension) Version() string { return "1.0.0" }

func (e *MBStringExtension) ModuleInit(reg *registry.Registry) error {
	register(reg, "mb_strlen", mbStrlen)
	register(reg, "mb_substr", mbSubstr)
	register(reg, "mb_strtoupper", mbStrtoupper)
	register(reg, "mb_strtolower", mbStrtolower)
	register(reg, "mb_str_split", mbStrSplit)
	return nil
}

func mbStrlen(ctx registry.CallContext, args []*values.Value) (*values.Value, error) {
	return values.NewInt(int64(utf8.RuneCountInString(ctx.Arg(0).ToString()))), nil
}

func mbSubstr(ctx registry.CallContext, args []*values.Value) (*values.Value, error) {
	runes := []rune(ctx.Arg(0).ToString())
	n := len(runes)
	start := int(ctx.Arg(1).ToInt())
	if start < 0 {
		start += n
	}
	if start < 0 {
		start = 0
	}
	if start > n {
		start = n
	}
	end := n
	if ctx.ArgCount() > 2 && !ctx.Arg(2).IsNull() {
		length := int(ctx.Arg(2).ToInt())
		if length < 0 {
			end = n + length
		} else {
			end = start + length
		}
	}
	if end > n {
		end = n
	}
	if end < start {
		end = start
	}
	return values.NewString(string(runes[start:end])), nil
}

func mbStrtoupper(ctx registry.CallContext, args []*values.Value) (*values.Value, error) {
	return values.NewString(strings.ToUpper(ctx.Arg(0).ToString())), nil
}

func mbStrtolower(ctx registry.CallContext, args []*values.Value) (*values.Value, error) {
	return values.NewString(strings.ToLower(ctx.Arg(0).ToString())), nil
}

func mbStrSplit(ctx registry.CallContext, args []*values.Value) (*values.Value, error) {
	size := 1
	if ctx.ArgCount() > 1 {
		if n := int(ctx.Arg(1).ToInt()); n > 0 {
			size = n
		}
	}
	runes := []rune(ctx.Arg(0).ToString())
	arr := values.NewArrayData()
	for i := 0; i < len(runes); i += size {
		end := i + size
		if end > len(runes) {
			end = len(runes)
		}
		arr.Append(values.NewString(string(runes[i:end])))
	}
	return values.NewArrayFrom(arr), nil
}
