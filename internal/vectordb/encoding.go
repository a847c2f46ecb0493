package vectordb

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// ErrCorruptEmbedding is returned when a stored blob is not a whole number
// of float32 components.
var ErrCorruptEmbedding = errors.New("vectordb: corrupt embedding blob")

// EncodeEmbedding serialises vec as little-endian IEEE-754 float32 values
// with no length prefix.
func EncodeEmbedding(vec []float32) []byte {
	b := make([]byte, len(vec)*4)
	for i, v := range vec {
		binary.LittleEndian.PutUint32(b[i*4:], math.Float32bits(v))
	}
	return b
}

// DecodeEmbedding is the inverse of EncodeEmbedding.
func DecodeEmbedding(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("%w: length %d is not a multiple of 4", ErrCorruptEmbedding, len(b))
	}
	vec := make([]float32, len(b)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return vec, nil
}
