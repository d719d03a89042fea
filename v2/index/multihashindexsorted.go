package index

import (
	"fmt"
	"sort"

	"github.com/ipld/go-car-sio/rawcid"
	"github.com/ipld/go-car-sio/varint"
	"github.com/multiformats/go-multicodec"
	"github.com/multiformats/go-multihash"
)

// multihashGroup is one (multihash code, inner IndexSorted-like bucket set)
// entry of a MultihashIndexSorted index.
type multihashGroup struct {
	code    uint64
	buckets []*bucket
}

// multihashSorted implements the MultihashIndexSorted (0x0401) codec: groups
// keyed by multihash code, ordered ascending, each holding an IndexSorted
// bucket set over just that code's digests (§4.4).
type multihashSorted struct {
	groups []*multihashGroup
}

func newMultihashSorted() *multihashSorted { return &multihashSorted{} }

func (m *multihashSorted) Codec() multicodec.Code { return multicodec.CarMultihashIndexSorted }

func multihashCodeOf(c rawcid.RawCid) uint64 {
	b := c.Bytes()
	if len(b) == 34 && b[0] == 0x12 && b[1] == 0x20 {
		return uint64(multihash.SHA2_256)
	}
	rest := b[1:]
	_, n, ok := varint.DecodeUvarint(rest) // multicodec
	if !ok {
		return 0
	}
	rest = rest[n:]
	code, _, ok := varint.DecodeUvarint(rest)
	if !ok {
		return 0
	}
	return code
}

func (m *multihashSorted) Load(records []Record) error {
	byCode := map[uint64][]Record{}
	for _, r := range records {
		code := multihashCodeOf(r.CID)
		byCode[code] = append(byCode[code], r)
	}
	m.groups = nil
	for code, recs := range byCode {
		m.groups = append(m.groups, &multihashGroup{code: code, buckets: bucketFromRecords(recs)})
	}
	sort.Slice(m.groups, func(i, j int) bool { return m.groups[i].code < m.groups[j].code })
	return nil
}

func (m *multihashSorted) Marshal(dst []byte) []byte {
	for _, g := range m.groups {
		var inner []byte
		for _, b := range g.buckets {
			inner = b.marshal(inner)
		}
		dst = varint.AppendUvarint(dst, g.code)
		dst = putUint64(dst, uint64(len(inner)))
		dst = append(dst, inner...)
	}
	return dst
}

func (m *multihashSorted) Unmarshal(buf []byte) error {
	m.groups = nil
	for len(buf) > 0 {
		code, n, ok := varint.DecodeUvarint(buf)
		if !ok {
			return fmt.Errorf("carv2/index: truncated multihash group code")
		}
		buf = buf[n:]
		if len(buf) < 8 {
			return fmt.Errorf("carv2/index: truncated multihash group length")
		}
		innerLen := leUint64(buf[:8])
		buf = buf[8:]
		if uint64(len(buf)) < innerLen {
			return fmt.Errorf("carv2/index: truncated multihash group body")
		}
		inner := buf[:innerLen]
		buf = buf[innerLen:]

		g := &multihashGroup{code: code}
		for len(inner) > 0 {
			b, bn, err := unmarshalBucket(inner)
			if err != nil {
				return err
			}
			g.buckets = append(g.buckets, b)
			inner = inner[bn:]
		}
		m.groups = append(m.groups, g)
	}
	return nil
}

func (m *multihashSorted) group(code uint64) *multihashGroup {
	for _, g := range m.groups {
		if g.code == code {
			return g
		}
	}
	return nil
}

func (m *multihashSorted) GetAll(key rawcid.RawCid, fn func(uint64) bool) error {
	g := m.group(multihashCodeOf(key))
	if g == nil {
		return ErrNotFound
	}
	digest := digestOf(key)
	found := false
	for _, b := range g.buckets {
		if b.width != len(digest)+8 {
			continue
		}
		if off, ok := b.find(digest); ok {
			found = true
			if !fn(off) {
				return nil
			}
		}
	}
	if !found {
		return ErrNotFound
	}
	return nil
}

func (m *multihashSorted) Lookup(key rawcid.RawCid) (uint64, bool) {
	g := m.group(multihashCodeOf(key))
	if g == nil {
		return 0, false
	}
	digest := digestOf(key)
	for _, b := range g.buckets {
		if b.width == len(digest)+8 {
			return b.find(digest)
		}
	}
	return 0, false
}

func (m *multihashSorted) ForEach(fn func(multihash.Multihash, uint64) error) error {
	for _, g := range m.groups {
		for _, b := range g.buckets {
			for i, d := range b.digests {
				mh, err := multihash.Encode(d, g.code)
				if err != nil {
					return err
				}
				if err := fn(multihash.Multihash(mh), b.offsets[i]); err != nil {
					return err
				}
			}
		}
	}
	return nil
}
