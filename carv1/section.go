package carv1

import (
	"fmt"

	"github.com/ipld/go-car-sio/rawcid"
	"github.com/ipld/go-car-sio/varint"
)

// maxVarintScan bounds how many leading bytes we'll scan for a length
// varint before concluding the stream is corrupt rather than merely short
// (§4.3: "more than 16 leading bytes fail to yield a varint").
const maxVarintScan = 16

// Block is a section's opaque payload. It carries no semantic meaning; the
// codec never interprets or validates it against the section's CID.
type Block []byte

// Section is a single (CID, Block) record from a CARv1 payload. Block is
// empty for a "header-only" section produced by TryReadHeader.
type Section struct {
	CID   rawcid.RawCid
	Block Block
}

// Location describes where a section sits in the overall byte stream:
// Offset is the absolute position of its length-prefix varint, and Length
// is the total size including that varint.
type Location struct {
	Offset uint64
	Length uint64
}

// LocatableSection pairs a decoded Section with its Location.
type LocatableSection struct {
	Section  Section
	Location Location
}

// TryReadHeader decodes the length prefix and CID of a section without
// copying its payload bytes, returning a Section with an empty Block and the
// section's total on-wire size (length-prefix varint + declared length).
// This is used to scan past sections without allocating their payloads,
// e.g. in FindSection's linear scan.
//
// opts.MaxSectionSize, if non-zero, overrides the package's MaxSectionSize
// ceiling. If opts.ZeroLengthSectionAsEOF is set, a zero-length section is
// reported as ErrEndOfSections rather than an attempt to parse a CID from
// no bytes, matching the teacher's ZeroLengthSectionAsEOF convention for
// tolerating null padding after a CARv1 stream.
func TryReadHeader(buf []byte, opts Options) (Section, int, error) {
	scan := buf
	if len(scan) > maxVarintScan {
		scan = scan[:maxVarintScan]
	}
	length, vn, ok := varint.DecodeUvarint(scan)
	if !ok {
		if len(buf) > maxVarintScan {
			return Section{}, 0, fmt.Errorf("%w: no varint within %d bytes", ErrInvalidFormat, maxVarintScan)
		}
		return Section{}, 0, errInsufficientAt(0, varint.MaxLen)
	}

	if length == 0 && opts.ZeroLengthSectionAsEOF {
		return Section{}, 0, ErrEndOfSections
	}

	maxSectionSize := opts.MaxSectionSize
	if maxSectionSize == 0 {
		maxSectionSize = MaxSectionSize
	}
	if length > maxSectionSize {
		return Section{}, 0, fmt.Errorf("%w: length %d exceeds maximum %d", ErrInvalidSection, length, maxSectionSize)
	}

	if uint64(len(buf)-vn) < length {
		return Section{}, 0, errInsufficientAt(uint64(len(buf)), length-uint64(len(buf)-vn))
	}

	c, cn, err := rawcid.TryRead(buf[vn : vn+int(length)])
	if err != nil {
		return Section{}, 0, fmt.Errorf("%w: %w", ErrInvalidSection, err)
	}
	_ = cn

	return Section{CID: c}, vn + int(length), nil
}

// TryRead decodes a full section, including its payload, from the head of
// buf. It returns the same total size TryReadHeader would.
func TryRead(buf []byte, opts Options) (Section, int, error) {
	hdr, total, err := TryReadHeader(buf, opts)
	if err != nil {
		return Section{}, 0, err
	}
	// TryReadHeader already validated that buf has at least `total` bytes
	// and that the leading varint plus CID parse cleanly; reuse its work
	// rather than re-validating.
	_, ln, _ := varint.DecodeUvarint(buf)
	blockStart := ln + hdr.CID.Len()
	block := make(Block, total-blockStart)
	copy(block, buf[blockStart:total])
	return Section{CID: hdr.CID, Block: block}, total, nil
}

// ToBytes serialises a section back to its wire form:
// uvarint(len(cid)+len(block)) || cid || block.
func (s Section) ToBytes() []byte {
	length := uint64(s.CID.Len() + len(s.Block))
	buf := make([]byte, 0, varint.MaxLen+int(length))
	buf = varint.EncodeUvarint(buf, length)
	buf = append(buf, s.CID.Bytes()...)
	buf = append(buf, s.Block...)
	return buf
}

// Size returns the total on-wire size of s, including its length-prefix
// varint.
func (s Section) Size() int {
	length := s.CID.Len() + len(s.Block)
	return varint.SizeUvarint(uint64(length)) + length
}

func errInsufficientAt(offset, hint uint64) error {
	return &InsufficientData{Offset: offset, Hint: hint}
}
