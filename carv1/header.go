package carv1

import (
	"fmt"

	"github.com/ipld/go-car-sio/rawcid"
	"github.com/ipld/go-car-sio/varint"
)

// Header is a parsed CARv1 header: an ordered list of root CIDs and a
// version number. It is CBOR-encoded on the wire as a map
// {"roots": [tag42(cid)...], "version": N}.
type Header struct {
	Roots   []rawcid.RawCid
	Version uint64
}

// Matches reports whether two headers have the same version and contain the
// same root CIDs, ignoring root order. Use reflect.DeepEqual if order
// matters.
func (h Header) Matches(other Header) bool {
	if h.Version != other.Version || len(h.Roots) != len(other.Roots) {
		return false
	}
	if len(h.Roots) == 1 {
		return h.Roots[0].Equal(other.Roots[0])
	}
	used := make([]bool, len(other.Roots))
	for _, r := range h.Roots {
		found := false
		for i, o := range other.Roots {
			if !used[i] && r.Equal(o) {
				used[i] = true
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// Encode serialises h as the CBOR map body described above (not including
// the length-prefix varint; see EncodeSection for the full section).
func (h Header) Encode() []byte {
	buf := make([]byte, 0, 32+34*len(h.Roots))
	buf = encodeHead(buf, majMap, 2)
	buf = encodeTextKey(buf, "roots")
	buf = encodeHead(buf, majArray, uint64(len(h.Roots)))
	for _, r := range h.Roots {
		buf = encodeCID(buf, r)
	}
	buf = encodeTextKey(buf, "version")
	buf = encodeHead(buf, majUint, h.Version)
	return buf
}

// DecodeHeader parses a Header from exactly the CBOR bytes of its map body
// (i.e. buf must not include the length-prefix varint). It tolerates key
// order and ignores unrecognised keys, consistent with §4.3.
func DecodeHeader(buf []byte) (Header, error) {
	val, n, err := decodeValue(buf)
	if err != nil {
		return Header{}, fmt.Errorf("%w: %w", ErrInvalidHeader, err)
	}
	if val.kind != majMap || n != len(buf) {
		return Header{}, fmt.Errorf("%w: header is not a bare cbor map", ErrInvalidHeader)
	}

	var h Header
	var sawVersion bool
	for i := 0; i+1 < len(val.array); i += 2 {
		key := val.array[i]
		value := val.array[i+1]
		if key.kind != majText {
			continue
		}
		switch key.text {
		case "version":
			if value.kind != majUint {
				return Header{}, fmt.Errorf("%w: version is not an integer", ErrInvalidHeader)
			}
			h.Version = value.uint
			sawVersion = true
		case "roots":
			if value.kind != majArray {
				return Header{}, fmt.Errorf("%w: roots is not an array", ErrInvalidHeader)
			}
			h.Roots = make([]rawcid.RawCid, 0, len(value.array))
			for _, item := range value.array {
				if item.kind != majTag || item.cid.IsZero() {
					return Header{}, fmt.Errorf("%w: root is not a tagged cid", ErrInvalidHeader)
				}
				h.Roots = append(h.Roots, item.cid)
			}
		}
	}
	if !sawVersion {
		return Header{}, fmt.Errorf("%w: missing version", ErrInvalidHeader)
	}
	return h, nil
}

// HeaderSize returns the total on-wire size of h, including its
// length-prefix varint, without allocating the encoded bytes twice.
func HeaderSize(h Header) int {
	body := len(h.Encode())
	return varint.SizeUvarint(uint64(body)) + body
}

// EncodeSection writes h as a full length-prefixed CARv1 header section.
func EncodeSection(h Header) []byte {
	body := h.Encode()
	buf := make([]byte, 0, varint.MaxLen+len(body))
	buf = varint.EncodeUvarint(buf, uint64(len(body)))
	return append(buf, body...)
}
