package index

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/ipld/go-car-sio/rawcid"
	"github.com/multiformats/go-multicodec"
	"github.com/multiformats/go-multihash"
)

// bucket holds every record whose digest length plus 8 equals width.
type bucket struct {
	width   int // entry_width: 8 (offset) + digest length
	digests [][]byte
	offsets []uint64
}

func (b *bucket) entryCount() int { return len(b.digests) }

func (b *bucket) find(digest []byte) (uint64, bool) {
	i := sort.Search(len(b.digests), func(i int) bool {
		return bytes.Compare(b.digests[i], digest) >= 0
	})
	if i < len(b.digests) && bytes.Equal(b.digests[i], digest) {
		return b.offsets[i], true
	}
	return 0, false
}

func bucketFromRecords(recs []Record) []*bucket {
	byWidth := map[int]*bucket{}
	for _, r := range recs {
		d := digestOf(r.CID)
		w := len(d) + 8
		b, ok := byWidth[w]
		if !ok {
			b = &bucket{width: w}
			byWidth[w] = b
		}
		b.digests = append(b.digests, d)
		b.offsets = append(b.offsets, r.Offset)
	}
	out := make([]*bucket, 0, len(byWidth))
	for _, b := range byWidth {
		sortBucket(b)
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].width < out[j].width })
	return out
}

func sortBucket(b *bucket) {
	idx := make([]int, len(b.digests))
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(i, j int) bool { return bytes.Compare(b.digests[idx[i]], b.digests[idx[j]]) < 0 })
	digests := make([][]byte, len(idx))
	offsets := make([]uint64, len(idx))
	for i, j := range idx {
		digests[i] = b.digests[j]
		offsets[i] = b.offsets[j]
	}
	b.digests, b.offsets = digests, offsets
}

func (b *bucket) marshal(dst []byte) []byte {
	dst = putUint32(dst, uint32(b.width))
	dst = putUint64(dst, uint64(b.entryCount()))
	for i, d := range b.digests {
		dst = append(dst, d...)
		dst = putUint64(dst, b.offsets[i])
	}
	return dst
}

func unmarshalBucket(buf []byte) (*bucket, int, error) {
	if len(buf) < 12 {
		return nil, 0, fmt.Errorf("carv2/index: truncated bucket header")
	}
	width := int(leUint32(buf[0:4]))
	count := leUint64(buf[4:12])
	digestLen := width - 8
	if digestLen <= 0 {
		return nil, 0, fmt.Errorf("carv2/index: invalid entry_width %d", width)
	}
	off := 12
	b := &bucket{width: width}
	for i := uint64(0); i < count; i++ {
		if len(buf) < off+width {
			return nil, 0, fmt.Errorf("carv2/index: truncated bucket entry")
		}
		digest := append([]byte(nil), buf[off:off+digestLen]...)
		offset := leUint64(buf[off+digestLen : off+width])
		b.digests = append(b.digests, digest)
		b.offsets = append(b.offsets, offset)
		off += width
	}
	return b, off, nil
}

// sorted implements the IndexSorted (0x0400) codec: a sequence of buckets
// ordered by ascending entry_width, each holding digest/offset entries
// sorted lexicographically by digest (§4.4).
type sorted struct {
	buckets []*bucket
}

func newSorted() *sorted { return &sorted{} }

func (s *sorted) Codec() multicodec.Code { return multicodec.CarIndexSorted }

func (s *sorted) Load(records []Record) error {
	s.buckets = bucketFromRecords(records)
	return nil
}

func (s *sorted) Marshal(dst []byte) []byte {
	for _, b := range s.buckets {
		dst = b.marshal(dst)
	}
	return dst
}

func (s *sorted) Unmarshal(buf []byte) error {
	s.buckets = nil
	for len(buf) > 0 {
		b, n, err := unmarshalBucket(buf)
		if err != nil {
			return err
		}
		s.buckets = append(s.buckets, b)
		buf = buf[n:]
	}
	return nil
}

func (s *sorted) GetAll(key rawcid.RawCid, fn func(uint64) bool) error {
	digest := digestOf(key)
	found := false
	for _, b := range s.buckets {
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

func (s *sorted) Lookup(key rawcid.RawCid) (uint64, bool) {
	digest := digestOf(key)
	for _, b := range s.buckets {
		if b.width == len(digest)+8 {
			return b.find(digest)
		}
	}
	return 0, false
}

func (s *sorted) ForEach(fn func(multihash.Multihash, uint64) error) error {
	for _, b := range s.buckets {
		for i, d := range b.digests {
			if err := fn(multihash.Multihash(d), b.offsets[i]); err != nil {
				return err
			}
		}
	}
	return nil
}

func leUint32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

func leUint64(b []byte) uint64 {
	var v uint64
	for i := 7; i >= 0; i-- {
		v = v<<8 | uint64(b[i])
	}
	return v
}
