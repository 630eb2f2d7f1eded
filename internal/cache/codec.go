// Package cache persists answer chunks and embeddings in the shared cache store.
package cache

import (
	"encoding/binary"
	"fmt"
	"math"
)

// EncodeVector serializes a vector as a little-endian frame: a uint32 element
// count followed by the float32 values.
func EncodeVector(vec []float32) []byte {
	out := make([]byte, 4+len(vec)*4)
	binary.LittleEndian.PutUint32(out[:4], uint32(len(vec)))
	for i, v := range vec {
		binary.LittleEndian.PutUint32(out[4+i*4:8+i*4], math.Float32bits(v))
	}
	return out
}

// DecodeVector deserializes a vector frame produced by EncodeVector.
func DecodeVector(data []byte) ([]float32, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("vector frame too short: %d bytes", len(data))
	}
	n := binary.LittleEndian.Uint32(data[:4])
	if len(data) != int(4+n*4) {
		return nil, fmt.Errorf("vector frame length mismatch: header says %d elements, payload has %d bytes", n, len(data)-4)
	}
	vec := make([]float32, n)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[4+i*4 : 8+i*4]))
	}
	return vec, nil
}
