package rawcid_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ipld/go-car-sio/rawcid"
	"github.com/ipld/go-car-sio/varint"
)

func cidv0Bytes() []byte {
	buf := []byte{0x12, 0x20}
	for i := 0; i < 32; i++ {
		buf = append(buf, byte(i))
	}
	return buf
}

func cidv1Bytes(digestLen int) []byte {
	buf := []byte{0x01}
	buf = varint.AppendUvarint(buf, 0x71) // dag-cbor
	buf = varint.AppendUvarint(buf, 0x12) // sha2-256
	buf = varint.AppendUvarint(buf, uint64(digestLen))
	for i := 0; i < digestLen; i++ {
		buf = append(buf, byte(i))
	}
	return buf
}

func TestTryReadCIDv0(t *testing.T) {
	b := cidv0Bytes()
	c, n, err := rawcid.TryRead(append(b, 0xde, 0xad))
	require.NoError(t, err)
	require.Equal(t, 34, n)
	require.Equal(t, b, c.Bytes())
}

func TestTryReadCIDv0Insufficient(t *testing.T) {
	b := cidv0Bytes()
	_, _, err := rawcid.TryRead(b[:10])
	require.ErrorIs(t, err, rawcid.ErrInsufficient)
}

func TestTryReadCIDv1(t *testing.T) {
	b := cidv1Bytes(32)
	c, n, err := rawcid.TryRead(append(b, 0xff))
	require.NoError(t, err)
	require.Equal(t, len(b), n)
	require.Equal(t, b, c.Bytes())
}

func TestTryReadCIDv1Insufficient(t *testing.T) {
	b := cidv1Bytes(32)
	_, _, err := rawcid.TryRead(b[:len(b)-5])
	require.ErrorIs(t, err, rawcid.ErrInsufficient)
}

func TestTryReadUnsupportedVersion(t *testing.T) {
	_, _, err := rawcid.TryRead([]byte{0x02, 0x00})
	require.ErrorIs(t, err, rawcid.ErrUnsupportedVersion)
}

func TestEqualAndZero(t *testing.T) {
	a := rawcid.New(cidv0Bytes())
	b := rawcid.New(cidv0Bytes())
	require.True(t, a.Equal(b))
	require.False(t, a.IsZero())

	var zero rawcid.RawCid
	require.True(t, zero.IsZero())
}
