package carv1_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ipld/go-car-sio/carv1"
	"github.com/ipld/go-car-sio/rawcid"
)

func mkCID(tag byte) rawcid.RawCid {
	b := make([]byte, 34)
	b[0], b[1] = 0x12, 0x20
	b[2] = tag
	return rawcid.New(b)
}

// buildFixture constructs a self-contained CARv1 byte stream with the given
// roots and (cid, block) sections, returning the raw bytes.
func buildFixture(t *testing.T, roots []rawcid.RawCid, blocks map[string][]byte, order []rawcid.RawCid) []byte {
	t.Helper()
	w := carv1.NewWriter(carv1.Header{Roots: roots, Version: 1}, 0)
	for _, c := range order {
		loc, err := w.WriteSection(carv1.Section{CID: c, Block: blocks[string(c.Bytes())]})
		require.NoError(t, err)
		require.Greater(t, loc.Length, uint64(0))
	}
	var out []byte
	buf := make([]byte, 4096)
	for w.HasDataToSend() {
		n := w.SendData(buf)
		out = append(out, buf[:n]...)
	}
	return out
}

func TestHeaderAndSectionRoundTrip(t *testing.T) {
	root := mkCID(0x01)
	cids := []rawcid.RawCid{mkCID(0x10), mkCID(0x11), mkCID(0x12)}
	blocks := map[string][]byte{
		string(cids[0].Bytes()): []byte("alpha"),
		string(cids[1].Bytes()): []byte("beta"),
		string(cids[2].Bytes()): []byte("bear"),
	}
	data := buildFixture(t, []rawcid.RawCid{root}, blocks, cids)

	r := carv1.NewReader()
	r.ReceiveData(data, 0)

	h, err := r.ReadHeader()
	require.NoError(t, err)
	require.Equal(t, uint64(1), h.Version)
	require.Len(t, h.Roots, 1)
	require.True(t, h.Roots[0].Equal(root))

	var total int
	for i := 0; i < len(cids); i++ {
		ls, err := r.ReadSection()
		require.NoError(t, err)
		require.True(t, ls.Section.CID.Equal(cids[i]))
		total += len(ls.Section.Block)
	}
	require.Equal(t, len("alpha")+len("beta")+len("bear"), total)

	_, err = r.ReadSection()
	require.Error(t, err)
	var insuf *carv1.InsufficientData
	require.ErrorAs(t, err, &insuf)
}

func TestFindSection(t *testing.T) {
	root := mkCID(0x01)
	cids := []rawcid.RawCid{mkCID(0x20), mkCID(0x21), mkCID(0x22)}
	blocks := map[string][]byte{
		string(cids[0].Bytes()): []byte("one"),
		string(cids[1].Bytes()): []byte("bear"),
		string(cids[2].Bytes()): []byte("three"),
	}
	data := buildFixture(t, []rawcid.RawCid{root}, blocks, cids)

	r := carv1.NewReader()
	r.ReceiveData(data, 0)
	_, err := r.ReadHeader()
	require.NoError(t, err)

	ls, err := r.FindSection(cids[1])
	require.NoError(t, err)
	require.Equal(t, []byte("bear"), []byte(ls.Section.Block))
}

func TestChunkedParsingEquivalence(t *testing.T) {
	root := mkCID(0x01)
	cids := []rawcid.RawCid{mkCID(0x30), mkCID(0x31), mkCID(0x32), mkCID(0x33)}
	blocks := map[string][]byte{
		string(cids[0].Bytes()): []byte("aaaaaaaaaa"),
		string(cids[1].Bytes()): []byte("bb"),
		string(cids[2].Bytes()): []byte("ccccccc"),
		string(cids[3].Bytes()): []byte("dddd"),
	}
	data := buildFixture(t, []rawcid.RawCid{root}, blocks, cids)

	for _, chunkSize := range []int{1, 7, 50, 4096} {
		r := carv1.NewReader()
		pos := 0
		feed := func() {
			end := pos + chunkSize
			if end > len(data) {
				end = len(data)
			}
			if end > pos {
				r.ReceiveData(data[pos:end], uint64(pos))
				pos = end
			}
		}

		var header carv1.Header
		for {
			h, err := r.ReadHeader()
			if err == nil {
				header = h
				break
			}
			var insuf *carv1.InsufficientData
			require.ErrorAs(t, err, &insuf)
			feed()
		}
		require.Equal(t, uint64(1), header.Version)

		var blockLens []int
		for {
			ls, err := r.ReadSection()
			if err == nil {
				blockLens = append(blockLens, len(ls.Section.Block))
				continue
			}
			var insuf *carv1.InsufficientData
			require.ErrorAs(t, err, &insuf)
			if pos >= len(data) {
				break
			}
			feed()
		}
		require.Equal(t, []int{10, 2, 7, 4}, blockLens, "chunk size %d", chunkSize)
	}
}

func TestReadHeaderRequiresSeekToZero(t *testing.T) {
	r := carv1.NewReader()
	r.ReceiveData([]byte{0x00}, 5)
	_, err := r.ReadHeader()
	require.ErrorIs(t, err, carv1.ErrSeekRequired)
}

func TestScan(t *testing.T) {
	root := mkCID(0x01)
	cids := []rawcid.RawCid{mkCID(0x40), mkCID(0x41)}
	blocks := map[string][]byte{
		string(cids[0].Bytes()): []byte("hello"),
		string(cids[1].Bytes()): []byte("world!"),
	}
	data := buildFixture(t, []rawcid.RawCid{root}, blocks, cids)

	h, stats, err := carv1.Scan(data)
	require.NoError(t, err)
	require.Equal(t, uint64(1), h.Version)
	require.Equal(t, uint64(2), stats.BlockCount)
	require.Equal(t, uint64(len("hello")), stats.MinBlockLength)
	require.Equal(t, uint64(len("world!")), stats.MaxBlockLength)
}
