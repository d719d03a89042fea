package index_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/multiformats/go-multicodec"
	"github.com/multiformats/go-multihash"

	"github.com/ipld/go-car-sio/rawcid"
	"github.com/ipld/go-car-sio/v2/index"
)

func mkCIDv1(codec uint64, digest []byte) rawcid.RawCid {
	b := []byte{0x01}
	b = appendUvarint(b, codec)
	b = appendUvarint(b, multihash.SHA2_256)
	b = appendUvarint(b, uint64(len(digest)))
	b = append(b, digest...)
	return rawcid.New(b)
}

func appendUvarint(buf []byte, v uint64) []byte {
	for v >= 0x80 {
		buf = append(buf, byte(v)|0x80)
		v >>= 7
	}
	return append(buf, byte(v))
}

func digest(b byte, n int) []byte {
	d := make([]byte, n)
	for i := range d {
		d[i] = b
	}
	return d
}

func TestSortedIndexRoundTrip(t *testing.T) {
	c1 := mkCIDv1(0x71, digest(0x01, 32))
	c2 := mkCIDv1(0x71, digest(0x02, 32))
	c3 := mkCIDv1(0x71, digest(0x03, 16))

	idx, err := index.New(multicodec.CarIndexSorted)
	require.NoError(t, err)
	require.NoError(t, idx.Load([]index.Record{
		{CID: c1, Offset: 100},
		{CID: c2, Offset: 200},
		{CID: c3, Offset: 300},
	}))

	buf := index.WriteTo(idx, nil)
	got, err := index.ReadFrom(buf)
	require.NoError(t, err)
	require.Equal(t, multicodec.CarIndexSorted, got.Codec())

	off, err := index.GetFirst(got, c1)
	require.NoError(t, err)
	require.Equal(t, uint64(100), off)

	off, err = index.GetFirst(got, c2)
	require.NoError(t, err)
	require.Equal(t, uint64(200), off)

	off, err = index.GetFirst(got, c3)
	require.NoError(t, err)
	require.Equal(t, uint64(300), off)

	lookup, ok := got.(index.Lookup)
	require.True(t, ok)
	off, ok = lookup.Lookup(c1)
	require.True(t, ok)
	require.Equal(t, uint64(100), off)
}

func TestSortedIndexNotFound(t *testing.T) {
	idx, err := index.New(multicodec.CarIndexSorted)
	require.NoError(t, err)
	require.NoError(t, idx.Load(nil))

	missing := mkCIDv1(0x71, digest(0xff, 32))
	_, err = index.GetFirst(idx, missing)
	require.ErrorIs(t, err, index.ErrNotFound)
}

func TestMultihashIndexSortedRoundTrip(t *testing.T) {
	c1 := mkCIDv1(0x71, digest(0x10, 32))
	c2 := mkCIDv1(0x55, digest(0x20, 20))

	idx, err := index.New(multicodec.CarMultihashIndexSorted)
	require.NoError(t, err)
	require.NoError(t, idx.Load([]index.Record{
		{CID: c1, Offset: 11},
		{CID: c2, Offset: 22},
	}))

	buf := index.WriteTo(idx, nil)
	got, err := index.ReadFrom(buf)
	require.NoError(t, err)
	require.Equal(t, multicodec.CarMultihashIndexSorted, got.Codec())

	off, err := index.GetFirst(got, c1)
	require.NoError(t, err)
	require.Equal(t, uint64(11), off)

	off, err = index.GetFirst(got, c2)
	require.NoError(t, err)
	require.Equal(t, uint64(22), off)

	count := 0
	iter, ok := got.(index.IterableIndex)
	require.True(t, ok)
	require.NoError(t, iter.ForEach(func(mh multihash.Multihash, offset uint64) error {
		count++
		return nil
	}))
	require.Equal(t, 2, count)
}
