// Package index implements the CARv2 trailing index formats: IndexSorted
// and MultihashIndexSorted (§4.4). Like the rest of this module, encoding
// and decoding operate directly on in-memory byte slices rather than
// io.Reader/io.Writer, so an index can be assembled or consulted without
// ever touching a file handle.
package index

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"sort"

	"github.com/ipld/go-car-sio/rawcid"
	"github.com/ipld/go-car-sio/varint"
	"github.com/multiformats/go-multicodec"
	"github.com/multiformats/go-multihash"
)

// ErrNotFound is returned by GetAll/GetFirst when the queried CID has no
// entry in the index.
var ErrNotFound = errors.New("carv2/index: not found")

// Record pairs a CID with the offset (relative to the start of the v1
// payload) of the section it names.
type Record struct {
	CID    rawcid.RawCid
	Offset uint64
}

// Index looks up the byte offset of sections by CID.
type Index interface {
	// Codec is the multicodec identifying this index's wire format.
	Codec() multicodec.Code

	// Marshal appends the index's serial encoding (not including the
	// leading codec varint, which callers write via WriteTo below).
	Marshal(dst []byte) []byte

	// Unmarshal decodes an index body (following the codec varint) from buf.
	Unmarshal(buf []byte) error

	// Load inserts records into the index, replacing any prior contents.
	Load(records []Record) error

	// GetAll invokes fn with the offset recorded for key, stopping early if
	// fn returns false. Returns ErrNotFound if key has no entries. Each
	// bucket reports at most one offset per key: if key was loaded more than
	// once, only one of its offsets is reported, and which one is not
	// defined.
	GetAll(key rawcid.RawCid, fn func(uint64) bool) error
}

// IterableIndex extends Index with the ability to walk every entry.
type IterableIndex interface {
	Index

	// ForEach calls fn once per (multihash digest, offset) entry. Order is
	// deterministic but index-specific. Stops and returns fn's error if
	// non-nil.
	ForEach(fn func(multihash.Multihash, uint64) error) error
}

// GetFirst returns the first offset GetAll reports for key.
func GetFirst(idx Index, key rawcid.RawCid) (uint64, error) {
	var first uint64
	found := false
	err := idx.GetAll(key, func(off uint64) bool {
		first = off
		found = true
		return false
	})
	if err != nil {
		return 0, err
	}
	if !found {
		return 0, ErrNotFound
	}
	return first, nil
}

// New constructs an empty Index for the given codec.
func New(codec multicodec.Code) (Index, error) {
	switch codec {
	case multicodec.CarIndexSorted:
		return newSorted(), nil
	case multicodec.CarMultihashIndexSorted:
		return newMultihashSorted(), nil
	default:
		return nil, fmt.Errorf("carv2/index: unknown index codec %v", codec)
	}
}

// WriteTo appends codec-tagged idx to dst and returns the result.
func WriteTo(idx Index, dst []byte) []byte {
	dst = varint.AppendUvarint(dst, uint64(idx.Codec()))
	return idx.Marshal(dst)
}

// ReadFrom decodes a codec-tagged index from the front of buf.
func ReadFrom(buf []byte) (Index, error) {
	code, n, ok := varint.DecodeUvarint(buf)
	if !ok {
		return nil, fmt.Errorf("carv2/index: truncated index codec tag")
	}
	idx, err := New(multicodec.Code(code))
	if err != nil {
		return nil, err
	}
	if err := idx.Unmarshal(buf[n:]); err != nil {
		return nil, err
	}
	return idx, nil
}

// Lookup is the binary-search counterpart to Index.GetAll, available on
// IndexSorted and MultihashIndexSorted because their entries are sorted by
// digest. It resolves a query in O(log n) instead of FindSection's linear
// scan, for callers willing to parse the trailing index up front.
type Lookup interface {
	Lookup(key rawcid.RawCid) (uint64, bool)
}

func digestOf(c rawcid.RawCid) []byte {
	b := c.Bytes()
	// Both recognised CID shapes end in the raw multihash digest; the
	// multihash's own length prefix tells us where the digest begins.
	// CIDv0: 0x12 0x20 || 32-byte digest.
	if len(b) == 34 && b[0] == 0x12 && b[1] == 0x20 {
		return b[2:]
	}
	// CIDv1: 0x01 || multicodec || mh-code || mh-length || digest.
	rest := b[1:]
	for i := 0; i < 2; i++ {
		_, n, ok := varint.DecodeUvarint(rest)
		if !ok {
			return nil
		}
		rest = rest[n:]
	}
	_, n, ok := varint.DecodeUvarint(rest)
	if !ok {
		return nil
	}
	return rest[n:]
}

func sortRecordsByDigest(recs []Record) {
	sort.Slice(recs, func(i, j int) bool {
		return bytes.Compare(digestOf(recs[i].CID), digestOf(recs[j].CID)) < 0
	})
}

func putUint32(dst []byte, v uint32) []byte {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	return append(dst, b[:]...)
}

func putUint64(dst []byte, v uint64) []byte {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	return append(dst, b[:]...)
}
