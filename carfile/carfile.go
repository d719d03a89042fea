// Package carfile adapts the sans-I/O car.Reader to a real file on disk,
// demonstrating the pull protocol described by package car: it owns the
// actual I/O (via golang.org/x/exp/mmap), while all parsing logic still
// lives in car/carv1/v2 untouched.
package carfile

import (
	"errors"
	"fmt"

	"github.com/ipfs/go-cid"
	logging "github.com/ipfs/go-log/v2"
	"github.com/multiformats/go-varint"
	"golang.org/x/exp/mmap"

	car "github.com/ipld/go-car-sio"
	"github.com/ipld/go-car-sio/carv1"
	"github.com/ipld/go-car-sio/rawcid"
)

var logger = logging.Logger("carfile")

// chunkSize caps how much of the underlying file Reader pulls per retry,
// however large the codec's InsufficientData Hint is.
const chunkSize = 1 << 20

// Reader opens a CAR file (v1 or v2) for reading, driving a car.Reader
// against the file's contents via mmap.ReaderAt rather than loading the
// whole file into memory up front.
type Reader struct {
	file *mmap.ReaderAt
	cr   *car.Reader
}

// Open mmaps the file at path and primes a car.Reader far enough to decode
// its header.
func Open(path string, opts ...car.Option) (*Reader, error) {
	f, err := mmap.Open(path)
	if err != nil {
		return nil, fmt.Errorf("carfile: opening %s: %w", path, err)
	}

	r := &Reader{
		file: f,
		cr:   car.NewReader(opts...),
	}

	if _, err := r.ReadHeader(); err != nil {
		f.Close()
		return nil, err
	}
	return r, nil
}

// Close unmaps the underlying file.
func (r *Reader) Close() error { return r.file.Close() }

// ReadHeader returns the CARv1 header, feeding the reader from the mmapped
// file as needed until it's available.
func (r *Reader) ReadHeader() (carv1.Header, error) {
	for {
		h, err := r.cr.ReadHeader()
		if err == nil {
			return h, nil
		}
		if !r.pull(err) {
			return carv1.Header{}, err
		}
	}
}

// ReadSection reads the next section, pulling more file contents as needed.
// At the end of a CARv2 payload it returns the v2 package's
// ErrEndOfSections (which wraps carv1.ErrEndOfSections); once a CARv1 file
// has no more bytes it returns the last *carv1.InsufficientData.
func (r *Reader) ReadSection() (carv1.LocatableSection, error) {
	for {
		ls, err := r.cr.ReadSection()
		if err == nil {
			return ls, nil
		}
		if !r.pull(err) {
			return carv1.LocatableSection{}, err
		}
	}
}

// FindSectionByCID is FindSection's counterpart for callers holding a fully
// resolved github.com/ipfs/go-cid CID rather than a raw byte span — the
// shape any real blockstore-backed caller already has in hand.
func (r *Reader) FindSectionByCID(target cid.Cid) (carv1.LocatableSection, error) {
	return r.FindSection(rawcid.New(target.Bytes()))
}

// FindSection scans for a section whose CID equals target, logging a
// diagnostic if the scan runs off the end of the file without a match.
func (r *Reader) FindSection(target rawcid.RawCid) (carv1.LocatableSection, error) {
	for {
		ls, err := r.cr.FindSection(target)
		if err == nil {
			return ls, nil
		}
		if !r.pull(err) {
			logger.Infow("find_section exhausted file without a match", "cid_len", target.Len())
			return carv1.LocatableSection{}, err
		}
	}
}

// pull services one InsufficientData signal by reading the requested range
// from the mmapped file and feeding it to the inner Reader. It returns
// false once the file has no more bytes to offer at the requested offset.
func (r *Reader) pull(err error) bool {
	var insuf *carv1.InsufficientData
	if !errors.As(err, &insuf) {
		return false
	}

	want := insuf.Hint
	if want == 0 {
		// No hint: ask for enough to decode one more varint, rather than
		// guessing a single byte at a time.
		want = varint.MaxLenUvarint63
	}
	if want > chunkSize {
		want = chunkSize
	}

	buf := make([]byte, want)
	n, readErr := r.file.ReadAt(buf, int64(insuf.Offset))
	if n == 0 {
		return false
	}
	if !r.cr.ReceiveDataObserved(buf[:n], insuf.Offset) {
		logger.Warnw("car reader reset its buffer on out-of-order data", "offset", insuf.Offset)
	}
	return readErr == nil || n > 0
}
