package car

import (
	"github.com/ipld/go-car-sio/carv1"
	carv2 "github.com/ipld/go-car-sio/v2"
)

// Options holds the configured options for a unified Reader, covering both
// the v1 and v2 branches it might commit to.
type Options struct {
	MaxSectionSize         uint64
	MaxHeaderSize          uint64
	ZeroLengthSectionAsEOF bool
}

// Option describes an option affecting unified-reader behavior.
type Option func(*Options)

// ApplyOptions applies the given opts over the zero value.
func ApplyOptions(opts ...Option) Options {
	var o Options
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// V1Options projects Options onto the carv1.Option set.
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

// V2Options projects Options onto the carv2.Option set.
func (o Options) V2Options() []carv2.Option {
	var out []carv2.Option
	if o.MaxSectionSize != 0 {
		out = append(out, carv2.WithMaxSectionSize(o.MaxSectionSize))
	}
	if o.MaxHeaderSize != 0 {
		out = append(out, carv2.WithMaxHeaderSize(o.MaxHeaderSize))
	}
	return out
}

// WithMaxSectionSize overrides the default section-length ceiling.
func WithMaxSectionSize(n uint64) Option {
	return func(o *Options) { o.MaxSectionSize = n }
}

// WithMaxHeaderSize overrides the default header-length ceiling.
func WithMaxHeaderSize(n uint64) Option {
	return func(o *Options) { o.MaxHeaderSize = n }
}

// ZeroLengthSectionAsEOF treats a zero-length section as end of payload
// rather than a malformed record, threaded through to the v1 branch.
func ZeroLengthSectionAsEOF(enable bool) Option {
	return func(o *Options) { o.ZeroLengthSectionAsEOF = enable }
}
