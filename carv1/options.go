package carv1

// Options holds the configured options after applying a number of Option
// funcs. Mirrors the teacher's root options.go / vendored v2/options.go
// functional-options convention.
type Options struct {
	MaxSectionSize         uint64
	MaxHeaderSize          uint64
	ZeroLengthSectionAsEOF bool
}

// Option describes an option which affects behavior when reading or writing
// CARv1 data.
type Option func(*Options)

// ApplyOptions applies the given opts and fills in defaults for anything
// left unset.
func ApplyOptions(opts ...Option) Options {
	var o Options
	for _, opt := range opts {
		opt(&o)
	}
	if o.MaxSectionSize == 0 {
		o.MaxSectionSize = MaxSectionSize
	}
	if o.MaxHeaderSize == 0 {
		o.MaxHeaderSize = DefaultMaxHeaderSize
	}
	return o
}

// WithMaxSectionSize overrides the default section-length ceiling
// (MaxSectionSize).
func WithMaxSectionSize(n uint64) Option {
	return func(o *Options) { o.MaxSectionSize = n }
}

// WithMaxHeaderSize overrides the default header-length ceiling
// (DefaultMaxHeaderSize).
func WithMaxHeaderSize(n uint64) Option {
	return func(o *Options) { o.MaxHeaderSize = n }
}

// ZeroLengthSectionAsEOF treats a zero-length section as a clean end of the
// payload rather than a zero-byte CID-and-block record, matching the
// teacher's ZeroLengthSectionAsEOF option for tolerating null padding after
// a CARv1 stream.
func ZeroLengthSectionAsEOF(enable bool) Option {
	return func(o *Options) { o.ZeroLengthSectionAsEOF = enable }
}
