// Package rawcid provides an opaque, length-only view of a content
// identifier (CID). It recognises CIDv0 and CIDv1 just far enough to know
// how many bytes to advance a cursor by; it never resolves a CID's
// multicodec, multihash digest, or semantic meaning. Callers that need the
// full CID machinery (github.com/ipfs/go-cid) own their own conversion at
// the boundary — the codec only needs byte-accurate framing.
package rawcid

import (
	"bytes"
	"errors"

	"github.com/ipld/go-car-sio/varint"
)

// ErrInsufficient is returned when buf does not yet contain enough bytes to
// determine the CID's length. The caller should supply more data and retry.
var ErrInsufficient = errors.New("rawcid: insufficient data")

// ErrUnsupportedVersion is returned when the leading bytes of buf do not
// match either the CIDv0 or CIDv1 framing this package understands.
var ErrUnsupportedVersion = errors.New("rawcid: unsupported cid version")

// cidV0Prefix is the fixed two-byte prefix ("sha2-256" multihash code 0x12,
// digest length 0x20) that identifies a CIDv0.
var cidV0Prefix = [2]byte{0x12, 0x20}

// cidV0Len is the fixed total length of a CIDv0: the 2-byte prefix plus a
// 32-byte sha2-256 digest.
const cidV0Len = 34

// RawCid is an immutable, opaque byte sequence identifying a content
// block. Equality is byte equality.
type RawCid struct {
	bytes []byte
}

// New wraps raw bytes as a RawCid without validating them. Used by writers
// that already have a well-formed CID in hand (e.g. from github.com/ipfs/go-cid).
func New(b []byte) RawCid {
	return RawCid{bytes: append([]byte(nil), b...)}
}

// Bytes returns the raw CID bytes. The returned slice must not be mutated.
func (c RawCid) Bytes() []byte { return c.bytes }

// Len returns the number of bytes in the CID.
func (c RawCid) Len() int { return len(c.bytes) }

// Equal reports whether two RawCids hold identical bytes.
func (c RawCid) Equal(o RawCid) bool { return bytes.Equal(c.bytes, o.bytes) }

// IsZero reports whether c holds no bytes.
func (c RawCid) IsZero() bool { return len(c.bytes) == 0 }

// TryRead parses a RawCid from the head of buf, returning the CID and the
// number of bytes it occupies. It returns ErrInsufficient if buf might be a
// valid CID prefix but doesn't yet contain enough bytes, and
// ErrUnsupportedVersion if the leading byte(s) don't match CIDv0 or CIDv1
// framing at all.
func TryRead(buf []byte) (RawCid, int, error) {
	if len(buf) >= 1 && buf[0] == cidV0Prefix[0] {
		if len(buf) < 2 {
			return RawCid{}, 0, ErrInsufficient
		}
		if buf[1] != cidV0Prefix[1] {
			return RawCid{}, 0, ErrUnsupportedVersion
		}
		if len(buf) < cidV0Len {
			return RawCid{}, 0, ErrInsufficient
		}
		return New(buf[:cidV0Len]), cidV0Len, nil
	}

	if len(buf) < 1 {
		return RawCid{}, 0, ErrInsufficient
	}
	if buf[0] != 0x01 {
		return RawCid{}, 0, ErrUnsupportedVersion
	}

	off := 1
	// multicodec, multihash code, multihash length: three consecutive
	// unsigned varints.
	var mhLen uint64
	for i := 0; i < 3; i++ {
		v, n, ok := varint.DecodeUvarint(buf[off:])
		if !ok {
			return RawCid{}, 0, ErrInsufficient
		}
		if i == 2 {
			mhLen = v
		}
		off += n
	}

	total := off + int(mhLen)
	if len(buf) < total {
		return RawCid{}, 0, ErrInsufficient
	}
	return New(buf[:total]), total, nil
}
