package stdlib

import (
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/loomphp/loom/registry"
	"github.com/loomphp/loom/values"
)

// FormatExtension is the `format` extension: number_format and a
// memory-usage formatter built on go-humanize's thousands-separator and
// byte-size formatting, replacing the teacher's hand-rolled
// number_format digit-grouping loop with the library the rest of the
// pack already reaches for this kind of formatting.
type FormatExtension struct{ baseExtension }

func (*FormatExtension) Name() string    { return "format" }
func (*FormatExtension) Version() string { return "1.0.0" }

func (e *FormatExtension) ModuleInit(reg *registry.Registry) error {
	register(reg, "number_format", numberFormat)
	register(reg, "memory_get_usage_human", memoryGetUsageHuman)
	return nil
}

func numberFormat(ctx registry.CallContext, args []*values.Value) (*values.Value, error) {
	n := ctx.Arg(0).ToFloat()
	decimals := 0
	if ctx.ArgCount() > 1 {
		decimals = int(ctx.Arg(1).ToInt())
	}
	decPoint, thousandsSep := ".", ","
	if ctx.ArgCount() > 2 {
		decPoint = ctx.Arg(2).ToString()
	}
	if ctx.ArgCount() > 3 {
		thousandsSep = ctx.Arg(3).ToString()
	}
	rounded := strconv.FormatFloat(n, 'f', decimals, 64)
	neg := strings.HasPrefix(rounded, "-")
	rounded = strings.TrimPrefix(rounded, "-")

	intPart, fracPart := rounded, ""
	if i := strings.IndexByte(rounded, '.'); i >= 0 {
		intPart, fracPart = rounded[:i], rounded[i+1:]
	}
	grouped := humanize.Comma(mustParseInt(intPart))
	grouped = strings.ReplaceAll(grouped, ",", thousandsSep)

	out := grouped
	if decimals > 0 {
		out += decPoint + fracPart
	}
	if neg {
		out = "-" + out
	}
	return values.NewString(out), nil
}

func mustParseInt(s string) int64 {
	n, _ := strconv.ParseInt(s, 10, 64)
	return n
}

func memoryGetUsageHuman(ctx registry.CallContext, args []*values.Value) (*values.Value, error) {
	bytesUsed := uint64(ctx.Arg(0).ToInt())
	return values.NewString(humanize.Bytes(bytesUsed)), nil
}
