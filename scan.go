package car

import (
	"bytes"

	"github.com/ipld/go-car-sio/carv1"
	carv2 "github.com/ipld/go-car-sio/v2"
)

// Scan runs a version-autodetecting scan over data, which must already be
// fully available (unlike the general streaming Reader, §4.5). It reports
// the v1 header, basic block/section Stats, and, for a CARv2 stream, the
// v2 header as well.
func Scan(data []byte) (carv1.Header, carv1.Stats, *carv2.Header, error) {
	if len(data) >= carv2.PragmaSize && bytes.Equal(data[:carv2.PragmaSize], carv2.Pragma[:]) {
		if len(data) < carv2.PragmaSize+carv2.HeaderSize {
			return carv1.Header{}, carv1.Stats{}, nil, &carv1.InsufficientData{
				Offset: uint64(len(data)),
				Hint:   uint64(carv2.PragmaSize + carv2.HeaderSize - len(data)),
			}
		}
		v2h, err := carv2.DecodeHeader(data[carv2.PragmaSize : carv2.PragmaSize+carv2.HeaderSize])
		if err != nil {
			return carv1.Header{}, carv1.Stats{}, nil, err
		}
		end := v2h.DataOffset + v2h.DataSize
		if uint64(len(data)) < end {
			end = uint64(len(data))
		}
		h, stats, err := carv1.Scan(data[v2h.DataOffset:end])
		return h, stats, &v2h, err
	}
	h, stats, err := carv1.Scan(data)
	return h, stats, nil, err
}
