package badgerstore

import (
	"encoding/binary"
	"fmt"
	"math"
)

// encodeInt encodes an int as a fixed-width big-endian int64, following
// the key_encoding.go ValueEncoder convention.
func encodeInt(v int) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(int64(v)))
	return buf
}

func decodeInt(b []byte) (int, error) {
	if len(b) != 8 {
		return 0, fmt.Errorf("badgerstore: int value has %d bytes, want 8", len(b))
	}
	return int(int64(binary.BigEndian.Uint64(b))), nil
}

// encodeFloats encodes a []float64 as a count-prefixed run of
// big-endian float64 bit patterns.
func encodeFloats(vals []float64) []byte {
	buf := make([]byte, 8+8*len(vals))
	binary.BigEndian.PutUint64(buf[:8], uint64(len(vals)))
	for i, v := range vals {
		binary.BigEndian.PutUint64(buf[8+8*i:16+8*i], math.Float64bits(v))
	}
	return buf
}

func decodeFloats(b []byte) ([]float64, error) {
	if len(b) < 8 {
		return nil, fmt.Errorf("badgerstore: float array value has %d bytes, want >= 8", len(b))
	}
	n := binary.BigEndian.Uint64(b[:8])
	want := 8 + 8*int(n)
	if len(b) != want {
		return nil, fmt.Errorf("badgerstore: float array value has %d bytes, want %d", len(b), want)
	}
	out := make([]float64, n)
	for i := range out {
		out[i] = math.Float64frombits(binary.BigEndian.Uint64(b[8+8*i : 16+8*i]))
	}
	return out, nil
}
