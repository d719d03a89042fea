package car

import (
	"bytes"

	"github.com/ipld/go-car-sio/carv1"
	"github.com/ipld/go-car-sio/rawcid"
	carv2 "github.com/ipld/go-car-sio/v2"
)

// unifiedState discriminates the Reader's version-autodetection phase from
// its decided v1/v2 phases (§4.5). It is a plain enum: the per-phase data
// lives in Reader's own fields (pending while unclear, then v1 or v2), and
// only the state value records which of those fields is meaningful.
type unifiedState int

const (
	stateUnclear unifiedState = iota
	stateV1
	stateV2
)

// discriminationScan is the number of leading bytes Reader buffers before
// it can tell a v1 stream from a v2 one by comparing against the pragma.
const discriminationScan = carv2.PragmaSize

// Reader is the version-autodetecting CAR reader (§4.5). It buffers the
// first discriminationScan bytes, compares them against the CARv2 pragma,
// and from then on delegates every operation wholesale to the v1 or v2
// Reader it has decided on.
type Reader struct {
	opts Options

	state   unifiedState
	pending []byte

	v1 *carv1.Reader
	v2 *carv2.Reader
}

// NewReader constructs a Reader undecided between CARv1 and CARv2.
func NewReader(opts ...Option) *Reader {
	return &Reader{opts: ApplyOptions(opts...)}
}

// ReceiveData feeds buf into the Reader at absolute stream position pos.
func (r *Reader) ReceiveData(buf []byte, pos uint64) {
	r.ReceiveDataObserved(buf, pos)
}

// ReceiveDataObserved is like ReceiveData but reports whether buf was
// accepted in order, per the diagnostic §9 Open Question 4 recommends.
func (r *Reader) ReceiveDataObserved(buf []byte, pos uint64) bool {
	switch r.state {
	case stateUnclear:
		if pos != uint64(len(r.pending)) {
			return false
		}
		r.pending = append(r.pending, buf...)
		return true
	case stateV1:
		return r.v1.ReceiveDataObserved(buf, pos)
	default:
		return r.v2.ReceiveDataObserved(buf, pos)
	}
}

// decide examines r.pending once it holds at least discriminationScan
// bytes, committing to the v1 or v2 branch and handing the accumulated
// bytes wholesale to the chosen inner reader at offset 0 (§4.5).
func (r *Reader) decide() {
	if len(r.pending) < discriminationScan {
		return
	}
	if bytes.Equal(r.pending[:carv2.PragmaSize], carv2.Pragma[:]) {
		r.state = stateV2
		r.v2 = carv2.NewReader(r.opts.V2Options()...)
		r.v2.ReceiveData(r.pending, 0)
	} else {
		r.state = stateV1
		r.v1 = carv1.NewReaderWithOptions(r.opts.V1Options()...)
		r.v1.ReceiveData(r.pending, 0)
	}
	r.pending = nil
}

// ReadHeader returns the CARv1 header, decoding the CARv2 preamble first
// if this turns out to be a v2 stream. It returns *carv1.InsufficientData
// while the Reader hasn't yet buffered enough bytes to decide the version
// or to complete whichever header it commits to.
func (r *Reader) ReadHeader() (carv1.Header, error) {
	if r.state == stateUnclear {
		r.decide()
		if r.state == stateUnclear {
			return carv1.Header{}, &carv1.InsufficientData{
				Offset: uint64(len(r.pending)),
				Hint:   uint64(discriminationScan - len(r.pending)),
			}
		}
	}
	if r.state == stateV1 {
		return r.v1.ReadHeader()
	}
	return r.v2.ReadHeader()
}

// Header returns the decoded v1 header and, if this Reader committed to a
// CARv2 stream, the v2 header as well (§4.5).
func (r *Reader) Header() (carv1.Header, *carv2.Header) {
	switch r.state {
	case stateV1:
		h, _ := r.v1.ReadHeader()
		return h, nil
	case stateV2:
		h, _ := r.v2.ReadHeader()
		return h, &r.v2.Header
	default:
		return carv1.Header{}, nil
	}
}

// ReadSection reads the next section, delegating to whichever version this
// Reader has committed to.
func (r *Reader) ReadSection() (carv1.LocatableSection, error) {
	switch r.state {
	case stateUnclear:
		return carv1.LocatableSection{}, carv1.ErrPreconditionNotMet
	case stateV1:
		return r.v1.ReadSection()
	default:
		return r.v2.ReadSection()
	}
}

// FindSection linearly scans for a section whose CID equals target,
// delegating to whichever version this Reader has committed to.
func (r *Reader) FindSection(target rawcid.RawCid) (carv1.LocatableSection, error) {
	switch r.state {
	case stateUnclear:
		return carv1.LocatableSection{}, carv1.ErrPreconditionNotMet
	case stateV1:
		return r.v1.FindSection(target)
	default:
		return r.v2.FindSection(target)
	}
}

// SeekFirstSection repositions at the first section following the header,
// delegating to whichever version this Reader has committed to.
func (r *Reader) SeekFirstSection() error {
	switch r.state {
	case stateUnclear:
		return carv1.ErrPreconditionNotMet
	case stateV1:
		return r.v1.SeekFirstSection()
	default:
		return r.v2.SeekFirstSection()
	}
}
