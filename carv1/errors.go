package carv1

import "errors"

// MaxBlockSize is the ceiling on a single block's payload size (§3, §9).
const MaxBlockSize = 2 << 20 // 2 MiB

// MaxSectionSize is the ceiling on a section's declared length, which covers
// the CID plus the block but not the length-prefix varint itself (§3, §9).
const MaxSectionSize = MaxBlockSize + 128

// DefaultMaxHeaderSize bounds how large a CARv1 header's CBOR body may be
// before ReadHeader gives up and reports ErrInvalidFormat instead of
// continuing to wait for more data. 32 KiB comfortably fits any realistic
// root list.
const DefaultMaxHeaderSize = 32 << 10

var (
	// ErrInvalidFormat signals framing bytes that are present but
	// incoherent: an over-long varint, or a header length beyond the
	// configured maximum.
	ErrInvalidFormat = errors.New("carv1: invalid format")

	// ErrInvalidHeader signals a CBOR decode failure on the header.
	ErrInvalidHeader = errors.New("carv1: invalid header")

	// ErrInvalidSection signals a section whose declared length exceeds
	// MaxSectionSize, or whose CID is malformed.
	ErrInvalidSection = errors.New("carv1: invalid section")

	// ErrPreconditionNotMet is returned when an operation is called before
	// its precondition holds — typically reading a section before the
	// header has been read.
	ErrPreconditionNotMet = errors.New("carv1: precondition not met")

	// ErrSeekRequired is the cleaner alternative to overloading
	// InsufficientData(0, 8) to mean "rewind to the start of the stream"
	// (§9 Open Question 3). ReadHeader returns it when start != 0.
	ErrSeekRequired = errors.New("carv1: seek to offset required")

	// ErrBufferFull is returned by the writer when a section would not fit
	// in the remaining output buffer capacity.
	ErrBufferFull = errors.New("carv1: output buffer full")

	// ErrBufferNotFlushed is returned when finalization is attempted while
	// bytes remain unflushed in the writer's buffer.
	ErrBufferNotFlushed = errors.New("carv1: buffer not flushed")
)

// InsufficientData is the "soft" error driving the pull protocol (§7). It is
// routine, not terminal: the caller supplies at least Hint bytes starting at
// Offset (or as many as it has) and retries the call that returned this.
type InsufficientData struct {
	// Offset is the absolute stream offset the caller should supply data from.
	Offset uint64
	// Hint is a lower-bound byte count, or 0 if unknown.
	Hint uint64
}

func (e *InsufficientData) Error() string {
	return "carv1: insufficient data"
}

// ErrEndOfSections is returned by ReadSection/FindSection when a
// zero-length section is encountered with ZeroLengthSectionAsEOF enabled
// (a clean end of payload, not a malformed record), and by the CARv2
// reader when a section read would require bytes beyond the end of the
// embedded v1 payload (§4.4).
var ErrEndOfSections = errors.New("carv1: end of sections")
