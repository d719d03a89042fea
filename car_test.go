package car_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	car "github.com/ipld/go-car-sio"
	"github.com/ipld/go-car-sio/carv1"
	"github.com/ipld/go-car-sio/rawcid"
	carv2 "github.com/ipld/go-car-sio/v2"
)

func mkCID(tag byte) rawcid.RawCid {
	b := make([]byte, 34)
	b[0], b[1] = 0x12, 0x20
	b[2] = tag
	return rawcid.New(b)
}

func buildV1(t *testing.T) []byte {
	t.Helper()
	root := mkCID(0x01)
	w := carv1.NewWriter(carv1.Header{Roots: []rawcid.RawCid{root}, Version: 1}, 0)
	cid := mkCID(0x02)
	_, err := w.WriteSection(carv1.Section{CID: cid, Block: []byte("payload")})
	require.NoError(t, err)
	var out []byte
	buf := make([]byte, 256)
	for w.HasDataToSend() {
		n := w.SendData(buf)
		out = append(out, buf[:n]...)
	}
	return out
}

func buildV2(t *testing.T) []byte {
	t.Helper()
	root := mkCID(0x01)
	w := carv2.NewWriter(carv1.Header{Roots: []rawcid.RawCid{root}, Version: 1})
	cid := mkCID(0x03)
	_, err := w.WriteSection(carv1.Section{CID: cid, Block: []byte("v2payload")})
	require.NoError(t, err)

	drain := func() []byte {
		var out []byte
		buf := make([]byte, 256)
		for w.HasDataToSend() {
			n := w.SendData(buf)
			out = append(out, buf[:n]...)
		}
		return out
	}
	payload := drain()
	require.NoError(t, w.FinalizeSections(nil))
	idx := drain()
	require.NoError(t, w.FinalizeIndex())
	header := drain()

	// See v2/v2_test.go's buildV2Fixture: the writer emits header bytes
	// last, so reassemble pragma+header, payload, index in stream order.
	return append(append(header, payload...), idx...)
}

func TestUnifiedReaderDetectsV1(t *testing.T) {
	data := buildV1(t)
	r := car.NewReader()
	r.ReceiveData(data, 0)

	h, err := r.ReadHeader()
	require.NoError(t, err)
	require.Equal(t, uint64(1), h.Version)

	v1h, v2h := r.Header()
	require.Equal(t, h.Version, v1h.Version)
	require.Nil(t, v2h)

	ls, err := r.ReadSection()
	require.NoError(t, err)
	require.Equal(t, []byte("payload"), []byte(ls.Section.Block))
}

func TestUnifiedReaderDetectsV2(t *testing.T) {
	data := buildV2(t)
	r := car.NewReader()
	r.ReceiveData(data, 0)

	h, err := r.ReadHeader()
	require.NoError(t, err)
	require.Equal(t, uint64(1), h.Version)

	_, v2h := r.Header()
	require.NotNil(t, v2h)
	require.Equal(t, uint64(51), v2h.DataOffset)

	ls, err := r.ReadSection()
	require.NoError(t, err)
	require.Equal(t, []byte("v2payload"), []byte(ls.Section.Block))
}

func TestUnifiedReaderInsufficientBeforeDecision(t *testing.T) {
	r := car.NewReader()
	r.ReceiveData([]byte{0x01, 0x02}, 0)
	_, err := r.ReadHeader()
	var insuf *carv1.InsufficientData
	require.ErrorAs(t, err, &insuf)
}

func TestScanV1AndV2(t *testing.T) {
	v1data := buildV1(t)
	h, stats, v2h, err := car.Scan(v1data)
	require.NoError(t, err)
	require.Equal(t, uint64(1), h.Version)
	require.Nil(t, v2h)
	require.Equal(t, uint64(1), stats.BlockCount)

	v2data := buildV2(t)
	h, stats, v2h, err = car.Scan(v2data)
	require.NoError(t, err)
	require.Equal(t, uint64(1), h.Version)
	require.NotNil(t, v2h)
	require.Equal(t, uint64(1), stats.BlockCount)
}
