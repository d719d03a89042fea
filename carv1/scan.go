package carv1

// Stats summarises a scan over a CARv1 payload: block count and basic size
// extrema, without validating any multihash digest against block content
// (that's explicitly out of scope for this codec, §1). Grounded on the
// teacher's v3 Reader.Inspect, minus the hash-validation path.
type Stats struct {
	BlockCount     uint64
	MinCIDLength   uint64
	MaxCIDLength   uint64
	MinBlockLength uint64
	MaxBlockLength uint64
}

// Scan drives a fresh Reader over the entirety of data (already fully
// available, unlike the general streaming case) and reports Stats. It
// exists to exercise the pull protocol end-to-end and to give operators a
// cheap sanity check of a CARv1 payload; it is not part of the core codec
// surface.
func Scan(data []byte) (Header, Stats, error) {
	r := NewReader()
	r.ReceiveData(data, 0)
	header, err := r.ReadHeader()
	if err != nil {
		return Header{}, Stats{}, err
	}

	var stats Stats
	var minCID, minBlock uint64 = ^uint64(0), ^uint64(0)
	for {
		ls, err := r.ReadSection()
		if err != nil {
			if isInsufficient(err) {
				break // no more bytes available: end of the provided data
			}
			return header, Stats{}, err
		}
		cidLen := uint64(len(ls.Section.CID.Bytes()))
		blockLen := uint64(len(ls.Section.Block))
		stats.BlockCount++
		if cidLen < minCID {
			minCID = cidLen
		}
		if cidLen > stats.MaxCIDLength {
			stats.MaxCIDLength = cidLen
		}
		if blockLen < minBlock {
			minBlock = blockLen
		}
		if blockLen > stats.MaxBlockLength {
			stats.MaxBlockLength = blockLen
		}
	}
	if stats.BlockCount > 0 {
		stats.MinCIDLength = minCID
		stats.MinBlockLength = minBlock
	}
	return header, stats, nil
}

func isInsufficient(err error) bool {
	_, ok := err.(*InsufficientData)
	return ok
}
