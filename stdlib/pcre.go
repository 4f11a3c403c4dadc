package stdlib

import (
	"strings"

	"github.com/dlclark/regexp2"

	"github.com/loomphp/loom/registry"
	"github.com/loomphp/loom/values"
)

// PCREExtension is the `pcre` extension: preg_match/preg_replace/
// preg_split built on regexp2, which (unlike the standard library's
// RE2-based regexp) supports the backreferences and lookaround PHP
// scripts' `/pattern/flags` delimited strings commonly rely on.
type PCREExtension struct{ baseExtension }

func (*PCREExtension) Name() string    { return "pcre" }
func (*PCREExtension) Version() string { return "1.0.0" }

func (e *PCREExtension) ModuleInit(reg *registry.Registry) error {
	register(reg, "preg_match", pregMatch)
	register(reg, "preg_replace", pregReplace)
	register(reg, "preg_split", pregSplit)
	return nil
}

// splitDelimited parses a PHP `/pattern/flags`-style delimited pattern
// string into its body and regexp2 option set.
func splitDelimited(pattern string) (string, regexp2.RegexOptions) {
	if len(pattern) < 2 {
		return pattern, regexp2.None
	}
	delim := pattern[0]
	end := strings.LastIndexByte(pattern, delim)
	if end <= 0 {
		return pattern, regexp2.None
	}
	body := pattern[1:end]
	flags := pattern[end+1:]
	opts := regexp2.None
	for _, f := range flags {
		switch f {
		case 'i':
			opts |= regexp2.IgnoreCase
		case 'm':
			opts |= regexp2.Multiline
		case 's':
			opts |= regexp2.Singleline
		case 'x':
			opts |= regexp2.IgnorePatternWhitespace
		}
	}
	return body, opts
}

func compile(ctx registry.CallContext, pattern string) *regexp2.Regexp {
	body, opts := splitDelimited(pattern)
	re, err := regexp2.Compile(body, opts)
	if err != nil {
		ctx.Throw("Error", "preg: invalid pattern: "+err.Error())
	}
	return re
}

func pregMatch(ctx registry.CallContext, args []*values.Value) (*values.Value, error) {
	re := compile(ctx, ctx.Arg(0).ToString())
	subject := ctx.Arg(1).ToString()
	m, err := re.FindStringMatch(subject)
	if err != nil || m == nil {
		return values.NewInt(0), nil
	}
	return values.NewInt(1), nil
}

func pregReplace(ctx registry.CallContext, args []*values.Value) (*values.Value, error) {
	re := compile(ctx, ctx.Arg(0).ToString())
	replacement := ctx.Arg(1).ToString()
	subject := ctx.Arg(2).ToString()
	out, err := re.Replace(subject, phpReplacementToGo(replacement), -1, -1)
	if err != nil {
		return values.NewNull(), nil
	}
	return values.NewString(out), nil
}

func pregSplit(ctx registry.CallContext, args []*values.Value) (*values.Value, error) {
	re := compile(ctx, ctx.Arg(0).ToString())
	subject := ctx.Arg(1).ToString()
	arr := values.NewArrayData()
	last := 0
	m, err := re.FindStringMatch(subject)
	for err == nil && m != nil {
		idx := m.Index
		arr.Append(values.NewString(subject[last:idx]))
		last = idx + m.Length
		m, err = re.FindNextMatch(m)
	}
	arr.Append(values.NewString(subject[last:]))
	return values.NewArrayFrom(arr), nil
}

// phpReplacementToGo rewrites PHP's `$1`/`\1` backreference spellings
// into regexp2's `$1` syntax, which is already PHP's common case; `\1`
// is the only divergence worth translating here.
func phpReplacementToGo(repl string) string {
	var sb strings.Builder
	for i := 0; i < len(repl); i++ {
		if repl[i] == '\\' && i+1 < len(repl) && repl[i+1] >= '0' && repl[i+1] <= '9' {
			sb.WriteByte('$')
			continue
		}
		sb.WriteByte(repl[i])
	}
	return sb.String()
}
