// Package car implements the CARv2 preamble, reader, writer, and index
// framing layered over the CARv1 engine in package carv1. It mirrors the
// teacher's v2 package name and convention of wrapping the v1 payload with a
// fixed-size header and an optional trailing index.
package car

import (
	"encoding/binary"
	"fmt"
)

// PragmaSize is the size in bytes of the CARv2 pragma.
const PragmaSize = 11

// HeaderSize is the fixed size in bytes of the CARv2 header.
const HeaderSize = 40

// CharacteristicsSize is the size in bytes of the Characteristics bitfield
// within the CARv2 header.
const CharacteristicsSize = 16

// Pragma is the fixed byte sequence identifying a CARv2 stream: a valid
// CARv1-framed CBOR map {"version": 2} (§3, §4.4).
var Pragma = [PragmaSize]byte{
	0x0a, 0xa1, 0x67, 0x76, 0x65, 0x72, 0x73, 0x69, 0x6f, 0x6e, 0x02,
}

// Characteristics is the 128-bit reserved bitfield in the CARv2 header. Bit
// 0 (the high-order bit of Hi, per §3) records whether the trailing index
// is a full catalog of every section rather than a partial/sampled index.

type Characteristics struct {
	Hi uint64
	Lo uint64
}

// IsFullyIndexed reports whether the index catalogs every section in the
// payload (as opposed to a partial/sampled index).
func (c Characteristics) IsFullyIndexed() bool {
	return c.Hi&(1<<63) != 0
}

// SetFullyIndexed sets or clears the fully-indexed characteristic.
func (c *Characteristics) SetFullyIndexed(b bool) {
	if b {
		c.Hi |= 1 << 63
	} else {
		c.Hi &^= 1 << 63
	}
}

func (c Characteristics) encode(buf []byte) {
	binary.LittleEndian.PutUint64(buf[0:8], c.Hi)
	binary.LittleEndian.PutUint64(buf[8:16], c.Lo)
}

func decodeCharacteristics(buf []byte) Characteristics {
	return Characteristics{
		Hi: binary.LittleEndian.Uint64(buf[0:8]),
		Lo: binary.LittleEndian.Uint64(buf[8:16]),
	}
}

// Header is the fixed 40-byte CARv2 header (§3, §4.4).
type Header struct {
	Characteristics Characteristics
	DataOffset      uint64
	DataSize        uint64
	IndexOffset     uint64
}

// HasIndex reports whether IndexOffset names a trailing index.
func (h Header) HasIndex() bool { return h.IndexOffset != 0 }

// Encode serialises h as its 40 little-endian bytes.
func (h Header) Encode() [HeaderSize]byte {
	var buf [HeaderSize]byte
	h.Characteristics.encode(buf[0:16])
	binary.LittleEndian.PutUint64(buf[16:24], h.DataOffset)
	binary.LittleEndian.PutUint64(buf[24:32], h.DataSize)
	binary.LittleEndian.PutUint64(buf[32:40], h.IndexOffset)
	return buf
}

// DecodeHeader parses exactly HeaderSize bytes into a Header, validating
// that DataOffset sits after the pragma+header (§3: "data_offset >= 51").
func DecodeHeader(buf []byte) (Header, error) {
	if len(buf) < HeaderSize {
		return Header{}, fmt.Errorf("%w: header requires %d bytes, got %d", ErrInvalidFormat, HeaderSize, len(buf))
	}
	h := Header{
		Characteristics: decodeCharacteristics(buf[0:16]),
		DataOffset:      binary.LittleEndian.Uint64(buf[16:24]),
		DataSize:        binary.LittleEndian.Uint64(buf[24:32]),
		IndexOffset:     binary.LittleEndian.Uint64(buf[32:40]),
	}
	if h.DataOffset < PragmaSize+HeaderSize {
		return Header{}, fmt.Errorf("%w: data offset %d must be at least %d", ErrInvalidFormat, h.DataOffset, PragmaSize+HeaderSize)
	}
	return h, nil
}

// NewHeader builds a Header for a payload of dataSize bytes placed
// immediately after the pragma and header, with no padding and no index.
func NewHeader(dataSize uint64) Header {
	return Header{
		DataOffset: PragmaSize + HeaderSize,
		DataSize:   dataSize,
	}
}

// WithDataPadding shifts DataOffset (and IndexOffset along with it) forward
// by padding bytes beyond the pragma+header.
func (h Header) WithDataPadding(padding uint64) Header {
	shifted := PragmaSize + HeaderSize + padding
	if h.IndexOffset != 0 {
		h.IndexOffset += shifted - h.DataOffset
	}
	h.DataOffset = shifted
	return h
}

// WithIndexOffset sets IndexOffset explicitly, e.g. once a writer has
// finished flushing its payload and knows where the index will begin.
func (h Header) WithIndexOffset(off uint64) Header {
	h.IndexOffset = off
	return h
}
