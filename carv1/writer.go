package carv1

// DefaultWriterCapacity is the writer's default output buffer capacity
// (§5: "Writers ... carry a bounded-capacity buffer (default 16 MiB)").
const DefaultWriterCapacity = 16 << 20

// Writer is the CARv1 streaming writer state machine (§4.3, §5). It performs
// no I/O: WriteSection appends to a bounded-capacity internal buffer, and
// SendData drains that buffer into a caller-supplied slice, which is the
// sole backpressure mechanism — WriteSection fails with ErrBufferFull once
// the buffer is full, forcing the caller to SendData first.
type Writer struct {
	capacity int
	buffer   []byte
	sent     int // bytes already handed out of buffer via SendData
	offset   uint64
}

// NewWriter constructs a Writer that immediately encodes h as the first
// bytes of output (the "one-time header-write performed at construction"
// from §4.3). capacity <= 0 selects DefaultWriterCapacity.
func NewWriter(h Header, capacity int) *Writer {
	if capacity <= 0 {
		capacity = DefaultWriterCapacity
	}
	w := &Writer{capacity: capacity}
	w.buffer = append(w.buffer, EncodeSection(h)...)
	return w
}

// Offset returns the absolute stream offset of the next byte this Writer
// will produce (i.e. the total size of everything SendData has emitted so
// far, plus whatever remains buffered counts against future offsets once
// sent).
func (w *Writer) Offset() uint64 { return w.offset }

// HasDataToSend reports whether SendData would have anything to drain.
func (w *Writer) HasDataToSend() bool { return w.sent < len(w.buffer) }

// WriteSection appends s to the output buffer if capacity allows, returning
// the Location the section will occupy once flushed. It returns
// ErrBufferFull if s would overflow the buffer's capacity; the caller must
// SendData to make room and retry.
func (w *Writer) WriteSection(s Section) (Location, error) {
	if w.sent > 0 {
		w.buffer = append(w.buffer[:0], w.buffer[w.sent:]...)
		w.sent = 0
	}
	size := s.Size()
	if len(w.buffer)+size > w.capacity {
		return Location{}, ErrBufferFull
	}
	loc := Location{Offset: w.offset + uint64(len(w.buffer)), Length: uint64(size)}
	w.buffer = append(w.buffer, s.ToBytes()...)
	return loc, nil
}

// SendData drains up to len(sink) bytes into sink, returning how many bytes
// were written and advancing the Writer's stream offset by that amount.
func (w *Writer) SendData(sink []byte) int {
	pending := w.buffer[w.sent:]
	n := copy(sink, pending)
	w.sent += n
	w.offset += uint64(n)
	if w.sent == len(w.buffer) {
		w.buffer = w.buffer[:0]
		w.sent = 0
	}
	return n
}
