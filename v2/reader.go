package car

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/ipld/go-car-sio/carv1"
	"github.com/ipld/go-car-sio/rawcid"
)

// readerState discriminates the v2 Reader's three phases (§4.4). It is a
// plain enum: the per-phase data lives in Reader's own fields (pending in
// stateNoHeader; Header and v1 from stateHeaderV2 on), and only the state
// value records which of those fields are meaningful.
type readerState int

const (
	stateNoHeader readerState = iota
	stateHeaderV2
	stateHeaderV1
)

// Reader is the CARv2 streaming reader state machine. It performs no I/O:
// bytes arrive via ReceiveData at their absolute offset in the v2 stream,
// and the caller drives ReadHeader / ReadSection / FindSection exactly as
// with carv1.Reader, resuming on *carv1.InsufficientData.
//
// Internally, once the v2 header is parsed, Reader delegates all section
// parsing to an embedded carv1.Reader whose "stream offset zero" is this
// Reader's Header.DataOffset (§4.4, §9 "the v2 layer is a pure
// offset-translation shim over v1" — section parsing is never duplicated).
type Reader struct {
	opts Options

	state readerState

	// stateNoHeader
	pending []byte

	// populated once state >= stateHeaderV2
	Header Header

	// the embedded v1 engine; its offset space starts at Header.DataOffset
	v1 *carv1.Reader
}

// NewReader constructs a Reader ready to receive data at offset 0.
func NewReader(opts ...Option) *Reader {
	return &Reader{opts: ApplyOptions(opts...)}
}

// ReceiveData feeds buf into the Reader at absolute stream position pos.
func (r *Reader) ReceiveData(buf []byte, pos uint64) {
	switch r.state {
	case stateNoHeader:
		if pos != uint64(len(r.pending)) {
			// Out of order relative to the pragma/header we're still
			// buffering: discarded per §9's documented (if regrettable)
			// silent-reset behaviour. Use ReceiveDataObserved to detect this.
			return
		}
		r.pending = append(r.pending, buf...)
	default:
		lo, hi := r.Header.DataOffset, r.Header.DataOffset+r.Header.DataSize
		start, end := pos, pos+uint64(len(buf))
		if end <= lo || start >= hi {
			return // entirely outside the v1 payload window
		}
		if start < lo {
			buf = buf[lo-start:]
			start = lo
		}
		if end > hi {
			buf = buf[:hi-start]
		}
		r.v1.ReceiveData(buf, start-r.Header.DataOffset)
	}
}

// ReceiveDataObserved is like ReceiveData but reports whether the bytes were
// accepted in-order (true) or dropped/clamped as out-of-range (false),
// giving callers the diagnostic §9 Open Question 4 recommends in place of a
// silent discard.
func (r *Reader) ReceiveDataObserved(buf []byte, pos uint64) bool {
	next := uint64(len(r.pending))
	if r.v1 != nil {
		next = r.Header.DataOffset + r.v1.Start() + uint64(r.v1.Buffered())
	}
	before := r.bufferedExtent()
	r.ReceiveData(buf, pos)
	return len(buf) == 0 || (pos == next && r.bufferedExtent() != before)
}

func (r *Reader) bufferedExtent() uint64 {
	if r.v1 != nil {
		return r.v1.Start() + uint64(r.v1.Buffered())
	}
	return uint64(len(r.pending))
}

// ReadHeader parses the 11-byte pragma and 40-byte v2 header, then (having
// primed the embedded v1 engine at Header.DataOffset) the embedded CARv1
// header, returning it. It returns *carv1.InsufficientData while more bytes
// are needed, and an error if the pragma doesn't match (the unified Reader
// in the root package is what decides v1-vs-v2; by the time bytes reach
// here, the caller has already committed to the v2 branch).
func (r *Reader) ReadHeader() (carv1.Header, error) {
	if r.state == stateNoHeader {
		if len(r.pending) < PragmaSize+HeaderSize {
			need := uint64(PragmaSize + HeaderSize - len(r.pending))
			return carv1.Header{}, insufficientAt(uint64(len(r.pending)), need)
		}
		if !bytes.Equal(r.pending[:PragmaSize], Pragma[:]) {
			return carv1.Header{}, fmt.Errorf("%w: pragma mismatch", ErrInvalidFormat)
		}
		h, err := DecodeHeader(r.pending[PragmaSize : PragmaSize+HeaderSize])
		if err != nil {
			return carv1.Header{}, err
		}
		r.Header = h
		r.v1 = carv1.NewReaderWithOptions(r.opts.V1Options()...)

		rest := r.pending[PragmaSize+HeaderSize:]
		r.pending = nil
		r.state = stateHeaderV2

		// rest starts right after the fixed header, but the v1 payload may
		// not: WithDataPadding (§4.4) can put DataOffset past PragmaSize+
		// HeaderSize. Drop the padding bytes rather than mis-feeding them to
		// the embedded v1 engine as if they were its offset zero, and drop
		// anything past DataOffset+DataSize (e.g. the index): the same clamp
		// ReceiveData applies to every later call.
		padding := h.DataOffset - uint64(PragmaSize+HeaderSize)
		if uint64(len(rest)) > padding {
			rest = rest[padding:]
			if uint64(len(rest)) > h.DataSize {
				rest = rest[:h.DataSize]
			}
			r.v1.ReceiveData(rest, 0)
		}
	}

	v1h, err := r.v1.ReadHeader()
	if err != nil {
		var insuf *carv1.InsufficientData
		if errors.As(err, &insuf) {
			return carv1.Header{}, insufficientAt(insuf.Offset+r.Header.DataOffset, insuf.Hint)
		}
		return carv1.Header{}, err
	}
	r.state = stateHeaderV1
	return v1h, nil
}

// ReadSection reads the next section from the embedded v1 payload,
// translating its Location back into absolute v2-stream offsets. It returns
// ErrEndOfSections once the read would require bytes beyond
// Header.DataOffset+Header.DataSize (§4.4 "End of payload").
func (r *Reader) ReadSection() (carv1.LocatableSection, error) {
	if r.state != stateHeaderV1 {
		return carv1.LocatableSection{}, carv1.ErrPreconditionNotMet
	}
	ls, err := r.v1.ReadSection()
	if err != nil {
		return carv1.LocatableSection{}, r.translateReadErr(err)
	}
	ls.Location.Offset += r.Header.DataOffset
	return ls, nil
}

// FindSection linearly scans the embedded v1 payload for a section whose
// CID equals target, exactly as carv1.Reader.FindSection, with offsets
// translated back to the v2 stream.
func (r *Reader) FindSection(target rawcid.RawCid) (carv1.LocatableSection, error) {
	if r.state != stateHeaderV1 {
		return carv1.LocatableSection{}, carv1.ErrPreconditionNotMet
	}
	ls, err := r.v1.FindSection(target)
	if err != nil {
		return carv1.LocatableSection{}, r.translateReadErr(err)
	}
	ls.Location.Offset += r.Header.DataOffset
	return ls, nil
}

// SeekFirstSection repositions the embedded v1 engine at the first section
// following the v1 header, exactly as carv1.Reader.SeekFirstSection.
func (r *Reader) SeekFirstSection() error {
	if r.state != stateHeaderV1 {
		return carv1.ErrPreconditionNotMet
	}
	return r.v1.SeekFirstSection()
}

func (r *Reader) translateReadErr(err error) error {
	var insuf *carv1.InsufficientData
	if errors.As(err, &insuf) {
		absOffset := insuf.Offset + r.Header.DataOffset
		if absOffset >= r.Header.DataOffset+r.Header.DataSize {
			return ErrEndOfSections
		}
		return insufficientAt(absOffset, insuf.Hint)
	}
	return err
}

func insufficientAt(offset, hint uint64) *carv1.InsufficientData {
	return &carv1.InsufficientData{Offset: offset, Hint: hint}
}
