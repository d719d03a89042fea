package carv1

// This file hand-rolls just enough of CBOR (RFC 7049) to encode and decode
// the CARv1 header: a two-key map whose "roots" value is an array of
// tag-42-wrapped CIDs and whose "version" value is a small unsigned int.
//
// A full generic CBOR library (as the teacher's v3 package reaches for, via
// go-ipld-prime's schema compiler and bindnode) is built around a concrete
// cid.Cid field type; rawcid.RawCid is deliberately not that type (it's an
// opaque, unvalidated byte span — see package rawcid), so the tag-42
// special-casing those libraries perform for cid.Cid wouldn't fire for it.
// The header's wire shape is also exactly the "hard, interesting part" this
// codec exists to implement (§4.3), so a small, precise decoder here is in
// keeping with the rest of the package rather than a workaround.

import (
	"errors"

	"github.com/ipld/go-car-sio/rawcid"
)

const (
	majUint  = 0
	majBytes = 2
	majText  = 3
	majArray = 4
	majMap   = 5
	majTag   = 6
)

// cidTag is the CBOR tag (42) used by the IPLD ecosystem to mark a byte
// string as containing a binary CID.
const cidTag = 42

// cidMultibaseIdentity is the leading byte prepended to a CID's bytes when
// framed as CBOR tag 42, signalling the identity ("binary", no base
// encoding) multibase per the multiformats convention this ecosystem uses.
const cidMultibaseIdentity = 0x00

var (
	errCBORTruncated = errors.New("carv1: truncated cbor value")
	errCBORShape     = errors.New("carv1: unexpected cbor shape in header")
)

func encodeHead(buf []byte, major byte, arg uint64) []byte {
	m := major << 5
	switch {
	case arg < 24:
		return append(buf, m|byte(arg))
	case arg <= 0xff:
		return append(buf, m|24, byte(arg))
	case arg <= 0xffff:
		return append(buf, m|25, byte(arg>>8), byte(arg))
	case arg <= 0xffffffff:
		return append(buf, m|26, byte(arg>>24), byte(arg>>16), byte(arg>>8), byte(arg))
	default:
		return append(buf, m|27,
			byte(arg>>56), byte(arg>>48), byte(arg>>40), byte(arg>>32),
			byte(arg>>24), byte(arg>>16), byte(arg>>8), byte(arg))
	}
}

func decodeHead(buf []byte) (major byte, arg uint64, n int, ok bool) {
	if len(buf) < 1 {
		return 0, 0, 0, false
	}
	major = buf[0] >> 5
	ai := buf[0] & 0x1f
	switch {
	case ai < 24:
		return major, uint64(ai), 1, true
	case ai == 24:
		if len(buf) < 2 {
			return 0, 0, 0, false
		}
		return major, uint64(buf[1]), 2, true
	case ai == 25:
		if len(buf) < 3 {
			return 0, 0, 0, false
		}
		return major, uint64(buf[1])<<8 | uint64(buf[2]), 3, true
	case ai == 26:
		if len(buf) < 5 {
			return 0, 0, 0, false
		}
		return major, uint64(buf[1])<<24 | uint64(buf[2])<<16 | uint64(buf[3])<<8 | uint64(buf[4]), 5, true
	case ai == 27:
		if len(buf) < 9 {
			return 0, 0, 0, false
		}
		v := uint64(0)
		for i := 1; i <= 8; i++ {
			v = v<<8 | uint64(buf[i])
		}
		return major, v, 9, true
	default:
		return 0, 0, 0, false // indefinite-length items are not used by this header
	}
}

func encodeTextKey(buf []byte, s string) []byte {
	buf = encodeHead(buf, majText, uint64(len(s)))
	return append(buf, s...)
}

func encodeCID(buf []byte, c rawcid.RawCid) []byte {
	buf = encodeHead(buf, majTag, cidTag)
	buf = encodeHead(buf, majBytes, uint64(c.Len()+1))
	buf = append(buf, cidMultibaseIdentity)
	return append(buf, c.Bytes()...)
}

// cborValue is the minimal set of shapes decodeValue can produce; the header
// decoder only ever needs text, uint, array, and tagged-CID.
type cborValue struct {
	kind  byte // matches majXxx
	uint  uint64
	text  string
	cid   rawcid.RawCid
	array []cborValue
}

func decodeValue(buf []byte) (cborValue, int, error) {
	major, arg, n, ok := decodeHead(buf)
	if !ok {
		return cborValue{}, 0, errCBORTruncated
	}
	switch major {
	case majUint:
		return cborValue{kind: majUint, uint: arg}, n, nil
	case majText:
		if uint64(len(buf)-n) < arg {
			return cborValue{}, 0, errCBORTruncated
		}
		return cborValue{kind: majText, text: string(buf[n : n+int(arg)])}, n + int(arg), nil
	case majBytes:
		if uint64(len(buf)-n) < arg {
			return cborValue{}, 0, errCBORTruncated
		}
		return cborValue{kind: majBytes, text: string(buf[n : n+int(arg)])}, n + int(arg), nil
	case majArray:
		items := make([]cborValue, 0, arg)
		off := n
		for i := uint64(0); i < arg; i++ {
			v, vn, err := decodeValue(buf[off:])
			if err != nil {
				return cborValue{}, 0, err
			}
			items = append(items, v)
			off += vn
		}
		return cborValue{kind: majArray, array: items}, off, nil
	case majMap:
		// Represented as an array alternating key/value; the only map the
		// header decoder looks at is unwrapped directly in decodeHeaderMap.
		items := make([]cborValue, 0, arg*2)
		off := n
		for i := uint64(0); i < arg*2; i++ {
			v, vn, err := decodeValue(buf[off:])
			if err != nil {
				return cborValue{}, 0, err
			}
			items = append(items, v)
			off += vn
		}
		return cborValue{kind: majMap, array: items}, off, nil
	case majTag:
		if arg != cidTag {
			// Skip unrecognised tags by decoding and discarding their payload.
			_, vn, err := decodeValue(buf[n:])
			if err != nil {
				return cborValue{}, 0, err
			}
			return cborValue{kind: majTag}, n + vn, nil
		}
		inner, vn, err := decodeValue(buf[n:])
		if err != nil {
			return cborValue{}, 0, err
		}
		if inner.kind != majBytes || len(inner.text) < 1 || inner.text[0] != cidMultibaseIdentity {
			return cborValue{}, 0, errCBORShape
		}
		return cborValue{kind: majTag, cid: rawcid.New([]byte(inner.text[1:]))}, n + vn, nil
	default:
		return cborValue{}, 0, errCBORShape
	}
}
