package carv1

import (
	"errors"
	"fmt"

	"github.com/ipld/go-car-sio/rawcid"
	"github.com/ipld/go-car-sio/varint"
)

// headerVarintScan bounds how many leading bytes ReadHeader will scan
// looking for the header-length varint before giving up with
// ErrInvalidFormat (§4.3).
const headerVarintScan = 8

// Reader is the CARv1 streaming reader state machine (§4.3, §9). It performs
// no I/O: the caller feeds it bytes via ReceiveData and drives ReadHeader /
// ReadSection / FindSection, resuming on InsufficientData.
//
// A Reader owns an internal contiguous buffer plus Start, the absolute
// stream offset of that buffer's first byte.
type Reader struct {
	opts   Options
	buffer []byte
	start  uint64

	header     Header
	headerSize int
	haveHeader bool
}

// NewReader constructs a Reader ready to receive data at offset 0, using
// default Options.
func NewReader() *Reader {
	return NewReaderWithOptions()
}

// NewReaderWithOptions is like NewReader but applies the given Options
// (e.g. WithMaxHeaderSize) instead of the defaults.
func NewReaderWithOptions(opts ...Option) *Reader {
	return &Reader{opts: ApplyOptions(opts...)}
}

// Start returns the absolute stream offset of the first byte in the
// Reader's internal buffer.
func (r *Reader) Start() uint64 { return r.start }

// Buffered returns the number of bytes currently held in the Reader's
// internal buffer.
func (r *Reader) Buffered() int { return len(r.buffer) }

// ReceiveData feeds buf into the Reader at absolute stream position pos. If
// pos is exactly where the Reader's buffer ends, buf is appended. Otherwise
// this is treated as a seek: the existing buffer is discarded and replaced
// with buf at the new position (§9 "buffer reset semantics"). This silent
// reset is also how ReceiveDataObserved reports an out-of-order call to
// callers that want a diagnostic instead (§9 Open Question 4).
func (r *Reader) ReceiveData(buf []byte, pos uint64) {
	r.receiveData(buf, pos)
}

// ReceiveDataObserved behaves like ReceiveData but additionally reports
// whether the incoming bytes were appended in order (true) or forced a seek
// reset (false), so callers can log or surface a diagnostic per §9's
// suggestion rather than have the reset happen silently.
func (r *Reader) ReceiveDataObserved(buf []byte, pos uint64) (inOrder bool) {
	return r.receiveData(buf, pos)
}

func (r *Reader) receiveData(buf []byte, pos uint64) bool {
	if pos == r.start+uint64(len(r.buffer)) {
		r.buffer = append(r.buffer, buf...)
		return true
	}
	r.buffer = append([]byte(nil), buf...)
	r.start = pos
	return false
}

// ReadHeader decodes the CARv1 header once enough bytes are available.
//
// It requires Start() == 0; if the Reader's buffer has already moved past
// the start of the stream, it returns ErrSeekRequired (the clearer signal
// spec's §9 Open Question 3 recommends in place of overloading
// InsufficientData(0, 8)) so the caller knows to ReceiveData at offset 0.
func (r *Reader) ReadHeader() (Header, error) {
	if r.haveHeader {
		return r.header, nil
	}
	if r.start != 0 {
		return Header{}, ErrSeekRequired
	}

	scan := r.buffer
	if len(scan) > headerVarintScan {
		scan = scan[:headerVarintScan]
	}
	length, vn, ok := varint.DecodeUvarint(scan)
	if !ok {
		if len(r.buffer) > headerVarintScan {
			return Header{}, fmt.Errorf("%w: header length varint not found within %d bytes", ErrInvalidFormat, headerVarintScan)
		}
		return Header{}, errInsufficientAt(uint64(len(r.buffer)), uint64(headerVarintScan-len(r.buffer)))
	}

	if length > r.opts.MaxHeaderSize {
		return Header{}, fmt.Errorf("%w: header length %d exceeds maximum %d", ErrInvalidFormat, length, r.opts.MaxHeaderSize)
	}

	total := vn + int(length)
	if len(r.buffer) < total {
		return Header{}, errInsufficientAt(r.start+uint64(len(r.buffer)), uint64(total-len(r.buffer)))
	}

	h, err := DecodeHeader(r.buffer[vn:total])
	if err != nil {
		return Header{}, err
	}

	r.header = h
	r.headerSize = total
	r.haveHeader = true
	r.drain(total)
	return h, nil
}

// ReadSection reads the next section from the buffered bytes, advancing
// Start past it. On success it returns the section together with its
// Location in the overall stream. If the buffer doesn't yet hold a complete
// section, it returns InsufficientData(Start()+Buffered(), 0). If the next
// section is zero-length and ZeroLengthSectionAsEOF is set, it returns
// ErrEndOfSections instead of attempting to parse an empty CID.
func (r *Reader) ReadSection() (LocatableSection, error) {
	if !r.haveHeader {
		return LocatableSection{}, ErrPreconditionNotMet
	}

	sec, total, err := TryRead(r.buffer, r.opts)
	if err != nil {
		var insuf *InsufficientData
		if errors.As(err, &insuf) {
			return LocatableSection{}, errInsufficientAt(r.start+uint64(len(r.buffer)), 0)
		}
		return LocatableSection{}, err
	}

	offset := r.start
	r.drain(total)
	return LocatableSection{
		Section:  sec,
		Location: Location{Offset: offset, Length: uint64(total)},
	}, nil
}

// FindSection linearly scans forward from the current position, draining
// sections that don't match cid and returning the first one that does (with
// its payload). If the caller hasn't consumed any sections since ReadHeader,
// this starts at the first section; otherwise call SeekFirstSection first to
// restart the scan (§4.3).
func (r *Reader) FindSection(target rawcid.RawCid) (LocatableSection, error) {
	if !r.haveHeader {
		return LocatableSection{}, ErrPreconditionNotMet
	}
	for {
		hdr, total, err := TryReadHeader(r.buffer, r.opts)
		if err != nil {
			var insuf *InsufficientData
			if errors.As(err, &insuf) {
				return LocatableSection{}, errInsufficientAt(r.start+uint64(len(r.buffer)), 0)
			}
			return LocatableSection{}, err
		}
		if target.Equal(hdr.CID) {
			return r.ReadSection()
		}
		r.drain(total)
	}
}

// SeekFirstSection discards the buffer and repositions Start at the first
// byte following the header, priming the Reader for a fresh ReadSection or
// FindSection scan. Calling it twice in a row is idempotent.
func (r *Reader) SeekFirstSection() error {
	if !r.haveHeader {
		return ErrPreconditionNotMet
	}
	r.buffer = nil
	r.start = uint64(r.headerSize)
	return nil
}

func (r *Reader) drain(n int) {
	r.buffer = r.buffer[n:]
	r.start += uint64(n)
}
