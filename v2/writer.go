package car

import (
	"github.com/ipld/go-car-sio/carv1"
	"github.com/ipld/go-car-sio/v2/index"
)

// writerState discriminates the v2 Writer's three phases (§4.4): sections
// are written, then the index, then the fixed header is finally known and
// can be emitted.
type writerState int

const (
	stateSectionWriting writerState = iota
	stateIndexWriting
	stateFinalized
)

// Writer is the CARv2 writer pipeline. It performs no I/O: WriteSection and
// SendData mirror carv1.Writer, translating offsets by +DataOffset, and
// FinalizeSections / FinalizeIndex / FinalizeFullIndex drive the phase
// transitions that let the writer learn its own header fields (data_end and
// index_start) before emitting them (§9 Open Question 1 — the header is
// back-patched from offsets captured at each transition, rather than left
// as a zero index_offset).
type Writer struct {
	opts  Options
	state writerState

	v1 *carv1.Writer

	dataOffset uint64
	dataEnd    uint64 // captured at SectionWriting -> IndexWriting
	indexStart uint64 // captured at IndexWriting -> Finalized
	indexBuf   []byte
	indexSent  int
	headerBuf  []byte
	headerSent int

	header         Header
	headerSaved    bool
	pendingRecords []index.Record
}

// NewWriter constructs a Writer for a CARv1 header h, with the v1 payload
// beginning immediately after the pragma and v2 header (no padding).
func NewWriter(h carv1.Header, opts ...Option) *Writer {
	o := ApplyOptions(opts...)
	dataOffset := uint64(PragmaSize + HeaderSize)
	return &Writer{
		opts:       o,
		v1:         carv1.NewWriter(h, 0),
		dataOffset: dataOffset,
	}
}

// Offset returns the absolute v2-stream offset of the next byte this Writer
// will produce from its v1 payload.
func (w *Writer) Offset() uint64 { return w.dataOffset + w.v1.Offset() }

// HasDataToSend reports whether SendData would have anything to drain in
// the writer's current phase.
func (w *Writer) HasDataToSend() bool {
	switch w.state {
	case stateSectionWriting:
		return w.v1.HasDataToSend()
	case stateIndexWriting:
		return w.indexSent < len(w.indexBuf)
	default:
		return w.headerSent < len(w.headerBuf)
	}
}

// WriteSection appends a section to the v1 payload. Valid only in the
// SectionWriting phase.
func (w *Writer) WriteSection(s carv1.Section) (carv1.Location, error) {
	if w.state != stateSectionWriting {
		return carv1.Location{}, carv1.ErrPreconditionNotMet
	}
	loc, err := w.v1.WriteSection(s)
	if err != nil {
		return carv1.Location{}, err
	}
	loc.Offset += w.dataOffset
	return loc, nil
}

// SendData drains up to len(sink) bytes of whatever the current phase is
// producing (v1 payload, then index, then the final pragma+header).
func (w *Writer) SendData(sink []byte) int {
	switch w.state {
	case stateSectionWriting:
		return w.v1.SendData(sink)
	case stateIndexWriting:
		n := copy(sink, w.indexBuf[w.indexSent:])
		w.indexSent += n
		return n
	default:
		n := copy(sink, w.headerBuf[w.headerSent:])
		w.headerSent += n
		if w.headerSent == len(w.headerBuf) {
			w.headerSaved = true
		}
		return n
	}
}

// FinalizeSections transitions from SectionWriting to IndexWriting. It
// requires the v1 writer's buffer to be fully flushed (ErrBufferNotFlushed
// otherwise), captures the current stream offset as data_end, and encodes
// and queues the trailing index built from records, using the codec
// selected by WithIndexCodec (or queuing no index if none was configured).
func (w *Writer) FinalizeSections(records []index.Record) error {
	if w.state != stateSectionWriting {
		return carv1.ErrPreconditionNotMet
	}
	if w.v1.HasDataToSend() {
		return carv1.ErrBufferNotFlushed
	}
	w.dataEnd = w.Offset()
	w.state = stateIndexWriting
	w.pendingRecords = records
	return w.queueIndex()
}

// FinalizeIndex transitions from IndexWriting to Finalized, placing the
// index immediately after the payload. It must be called once SendData has
// drained the index bytes FinalizeSections queued (ErrBufferNotFlushed
// otherwise).
func (w *Writer) FinalizeIndex() error {
	if w.state != stateIndexWriting {
		return carv1.ErrPreconditionNotMet
	}
	if w.indexSent < len(w.indexBuf) {
		return carv1.ErrBufferNotFlushed
	}
	w.indexStart = w.dataEnd
	return w.finalize()
}

func (w *Writer) queueIndex() error {
	if w.opts.IndexCodec != 0 {
		idx, err := index.New(w.opts.IndexCodec)
		if err != nil {
			return err
		}
		if err := idx.Load(w.pendingRecords); err != nil {
			return err
		}
		w.indexBuf = index.WriteTo(idx, nil)
		w.indexSent = 0
	} else {
		w.indexBuf = nil
		w.indexSent = 0
	}
	return nil
}

// FinalizeFullIndex is FinalizeIndex's counterpart when the caller wants
// the Characteristics fully-indexed bit set, signalling the index is a
// complete catalog of the payload's sections rather than a partial one.
func (w *Writer) FinalizeFullIndex() error {
	if err := w.FinalizeIndex(); err != nil {
		return err
	}
	w.header.Characteristics.SetFullyIndexed(true)
	w.headerBuf = headerBytes(w.header)
	return nil
}

func (w *Writer) finalize() error {
	h := Header{
		DataOffset:  w.dataOffset,
		DataSize:    w.dataEnd - w.dataOffset,
		IndexOffset: 0,
	}
	if w.indexBuf != nil {
		h.IndexOffset = w.indexStart
	}
	w.header = h
	w.headerBuf = headerBytes(h)
	w.state = stateFinalized
	return nil
}

// HeaderSaved reports whether the caller has drained the final pragma and
// header via SendData, completing the write.
func (w *Writer) HeaderSaved() bool { return w.headerSaved }

func headerBytes(h Header) []byte {
	buf := make([]byte, 0, PragmaSize+HeaderSize)
	buf = append(buf, Pragma[:]...)
	enc := h.Encode()
	return append(buf, enc[:]...)
}
