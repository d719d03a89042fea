package car

import (
	"errors"
	"fmt"

	"github.com/ipld/go-car-sio/carv1"
)

var (
	// ErrInvalidFormat signals a pragma mismatch or a header that fails to
	// decode (§4.4).
	ErrInvalidFormat = errors.New("carv2: invalid format")

	// ErrEndOfSections is returned by Reader.ReadSection/FindSection once the
	// read would require bytes beyond Header.DataOffset+Header.DataSize —
	// the translated form of carv1.ErrEndOfSections for the v2 payload
	// window (§4.4 "End of payload").
	ErrEndOfSections = fmt.Errorf("carv2: end of sections: %w", carv1.ErrEndOfSections)
)
