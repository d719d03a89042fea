package carfile_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ipld/go-car-sio/carfile"
	"github.com/ipld/go-car-sio/carv1"
	"github.com/ipld/go-car-sio/rawcid"
)

func mkCID(tag byte) rawcid.RawCid {
	b := make([]byte, 34)
	b[0], b[1] = 0x12, 0x20
	b[2] = tag
	return rawcid.New(b)
}

func writeFixtureFile(t *testing.T) string {
	t.Helper()
	root := mkCID(0x01)
	w := carv1.NewWriter(carv1.Header{Roots: []rawcid.RawCid{root}, Version: 1}, 0)
	cids := []rawcid.RawCid{mkCID(0x02), mkCID(0x03)}
	blocks := [][]byte{[]byte("first-block"), []byte("second-block")}
	for i, c := range cids {
		_, err := w.WriteSection(carv1.Section{CID: c, Block: blocks[i]})
		require.NoError(t, err)
	}

	var out []byte
	buf := make([]byte, 4096)
	for w.HasDataToSend() {
		n := w.SendData(buf)
		out = append(out, buf[:n]...)
	}

	path := filepath.Join(t.TempDir(), "fixture.car")
	require.NoError(t, os.WriteFile(path, out, 0o644))
	return path
}

func TestOpenAndReadSections(t *testing.T) {
	path := writeFixtureFile(t)

	r, err := carfile.Open(path)
	require.NoError(t, err)
	defer r.Close()

	h, err := r.ReadHeader()
	require.NoError(t, err)
	require.Equal(t, uint64(1), h.Version)

	var blocks [][]byte
	for i := 0; i < 2; i++ {
		ls, err := r.ReadSection()
		require.NoError(t, err)
		blocks = append(blocks, []byte(ls.Section.Block))
	}
	require.Equal(t, [][]byte{[]byte("first-block"), []byte("second-block")}, blocks)
}

func TestFindSectionByCID(t *testing.T) {
	path := writeFixtureFile(t)

	r, err := carfile.Open(path)
	require.NoError(t, err)
	defer r.Close()

	_, err = r.ReadHeader()
	require.NoError(t, err)

	target := mkCID(0x03)
	ls, err := r.FindSection(target)
	require.NoError(t, err)
	require.Equal(t, []byte("second-block"), []byte(ls.Section.Block))
}
