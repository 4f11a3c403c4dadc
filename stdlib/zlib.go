package stdlib

import (
	"bytes"
	"compress/gzip"
	"compress/zlib"
	"io"

	"github.com/loomphp/loom/registry"
	"github.com/loomphp/loom/values"
)

// ZlibExtension is the `zlib` extension: gzencode/gzdecode and
// gzcompress/gzuncompress built on the standard library's compress/gzip
// and compress/zlib, grounded on the Rust predecessor's
// runtime/zlib_extension.rs (_examples/original_source) which exposes
// the same four-function pair split between the gzip container format
// and the raw zlib stream format.
type ZlibExtension struct{ baseExtension }

func (*ZlibExtension) Name() string    { return "zlib" }
func (*ZlibExtension) Version() string { return "1.0.0" }

func (e *ZlibExtension) ModuleInit(reg *registry.Registry) error {
	register(reg, "gzencode", gzEncode)
	register(reg, "gzdecode", gzDecode)
	register(reg, "gzcompress", zlibCompress)
	register(reg, "gzuncompress", zlibUncompress)
	return nil
}

func gzEncode(ctx registry.CallContext, args []*values.Value) (*values.Value, error) {
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	if _, err := w.Write([]byte(ctx.Arg(0).ToString())); err != nil {
		return values.NewBool(false), nil
	}
	if err := w.Close(); err != nil {
		return values.NewBool(false), nil
	}
	return values.NewString(buf.String()), nil
}

func gzDecode(ctx registry.CallContext, args []*values.Value) (*values.Value, error) {
	r, err := gzip.NewReader(strReader(ctx.Arg(0).ToString()))
	if err != nil {
		return values.NewBool(false), nil
	}
	defer r.Close()
	out, err := io.ReadAll(r)
	if err != nil {
		return values.NewBool(false), nil
	}
	return values.NewString(string(out)), nil
}

func zlibCompress(ctx registry.CallContext, args []*values.Value) (*values.Value, error) {
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	if _, err := w.Write([]byte(ctx.Arg(0).ToString())); err != nil {
		return values.NewBool(false), nil
	}
	if err := w.Close(); err != nil {
		return values.NewBool(false), nil
	}
	return values.NewString(buf.String()), nil
}

func zlibUncompress(ctx registry.CallContext, args []*values.Value) (*values.Value, error) {
	r, err := zlib.NewReader(strReader(ctx.Arg(0).ToString()))
	if err != nil {
		return values.NewBool(false), nil
	}
	defer r.Close()
	out, err := io.ReadAll(r)
	if err != nil {
		return values.NewBool(false), nil
	}
	return values.NewString(string(out)), nil
}

func strReader(s string) *bytes.Reader { return bytes.NewReader([]byte(s)) }
