package car

import (
	"github.com/ipld/go-car-sio/carv1"
	"github.com/multiformats/go-multicodec"
)

// Options holds the configured options for a v2 Reader or Writer. It mostly
// threads through to the embedded carv1 engine; mirrors the teacher's
// functional-options convention (carv1.Options, root options.go).
type Options struct {
	MaxSectionSize         uint64
	MaxHeaderSize          uint64
	ZeroLengthSectionAsEOF bool

	// IndexCodec selects the trailing index format a Writer emits; zero
	// value means "no index" (§5).
	IndexCodec multicodec.Code
}

// Option describes an option affecting v2 reading or writing.
type Option func(*Options)

// ApplyOptions applies the given opts over the zero value.
func ApplyOptions(opts ...Option) Options {
	var o Options
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// V1Options projects the subset of Options that the embedded carv1.Reader
// understands, so the v2 layer never needs its own copy of v1's validation
// logic (§9 "pure offset-translation shim").
func (o Options) V1Options() []carv1.Option {
	var out []carv1.Option
	if o.MaxSectionSize != 0 {
		out = append(out, carv1.WithMaxSectionSize(o.MaxSectionSize))
	}
	if o.MaxHeaderSize != 0 {
		out = append(out, carv1.WithMaxHeaderSize(o.MaxHeaderSize))
	}
	if o.ZeroLengthSectionAsEOF {
		out = append(out, carv1.ZeroLengthSectionAsEOF(true))
	}
	return out
}

// WithMaxSectionSize overrides the default section-length ceiling passed
// through to the embedded CARv1 engine.
func WithMaxSectionSize(n uint64) Option {
	return func(o *Options) { o.MaxSectionSize = n }
}

// WithMaxHeaderSize overrides the default header-length ceiling passed
// through to the embedded CARv1 engine.
func WithMaxHeaderSize(n uint64) Option {
	return func(o *Options) { o.MaxHeaderSize = n }
}

// WithIndexCodec selects the trailing index format a Writer emits.
func WithIndexCodec(c multicodec.Code) Option {
	return func(o *Options) { o.IndexCodec = c }
}
