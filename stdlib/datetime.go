package stdlib

import (
	"fmt"
	"time"

	"github.com/ncruces/go-strftime"

	"github.com/loomphp/loom/registry"
	"github.com/loomphp/loom/values"
)

// DateTimeExtension is the `datetime` extension: time()/date() built on
// the standard library's time package plus go-strftime for the
// strftime-compatible format-string translation PHP's date() format
// codes need but Go's reference-time layout cannot express directly.
type DateTimeExtension struct{ baseExtension }

func (*DateTimeExtension) Name() string    { return "datetime" }
func (*DateTimeExtension) Version() string { return "1.0.0" }

func (e *DateTimeExtension) ModuleInit(reg *registry.Registry) error {
	register(reg, "time", timeFn)
	register(reg, "microtime", microtimeFn)
	register(reg, "date", dateFn)
	register(reg, "strftime", strftimeFn)
	return nil
}

func timeFn(ctx registry.CallContext, args []*values.Value) (*values.Value, error) {
	return values.NewInt(time.Now().Unix()), nil
}

func microtimeFn(ctx registry.CallContext, args []*values.Value) (*values.Value, error) {
	now := time.Now()
	asFloat := ctx.ArgCount() > 0 && ctx.Arg(0).ToBool()
	sec := float64(now.UnixNano()) / 1e9
	if asFloat {
		return values.NewFloat(sec), nil
	}
	return values.NewString(formatMicrotime(now)), nil
}

func formatMicrotime(t time.Time) string {
	frac := float64(t.Nanosecond()) / 1e9
	return fmt.Sprintf("%.8f %d", frac, t.Unix())
}

// dateFn maps a handful of the most common PHP date() format codes
// (Y-m-d H:i:s and friends) onto strftime's %-codes, then delegates to
// go-strftime for the actual formatting.
func dateFn(ctx registry.CallContext, args []*values.Value) (*values.Value, error) {
	format := ctx.Arg(0).ToString()
	t := time.Now()
	if ctx.ArgCount() > 1 {
		t = time.Unix(ctx.Arg(1).ToInt(), 0).UTC()
	}
	return values.NewString(strftime.Format(phpFormatToStrftime(format), t)), nil
}

func strftimeFn(ctx registry.CallContext, args []*values.Value) (*values.Value, error) {
	format := ctx.Arg(0).ToString()
	t := time.Now()
	if ctx.ArgCount() > 1 {
		t = time.Unix(ctx.Arg(1).ToInt(), 0).UTC()
	}
	return values.NewString(strftime.Format(format, t)), nil
}

var phpToStrftimeCode = map[byte]string{
	'Y': "%Y", 'y': "%y", 'm': "%m", 'n': "%-m",
	'd': "%d", 'j': "%-d", 'H': "%H", 'G': "%-H",
	'i': "%M", 's': "%S", 'D': "%a", 'l': "%A",
	'M': "%b", 'F': "%B",
}

func phpFormatToStrftime(format string) string {
	out := make([]byte, 0, len(format)*2)
	for i := 0; i < len(format); i++ {
		c := format[i]
		if c == '\\' && i+1 < len(format) {
			out = append(out, format[i+1])
			i++
			continue
		}
		if code, ok := phpToStrftimeCode[c]; ok {
			out = append(out, code...)
			continue
		}
		out = append(out, c)
	}
	return string(out)
}
