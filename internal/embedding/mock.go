package embedding

import (
	"context"
	"math"
	"strings"

	"github.com/hyperjump/kotae/pkg/utils"
)

// MockEncoder is a deterministic encoder for tests and development without a
// model. The vector is derived from a hash of the full prompt, so the same
// instruction and text always produce the same unit-norm embedding and
// different instructions produce different ones.
type MockEncoder struct {
	dimensions int
}

// NewMockEncoder returns an encoder producing deterministic embeddings of the
// given dimension.
func NewMockEncoder(dimensions int) *MockEncoder {
	if dimensions <= 0 {
		dimensions = 384
	}
	return &MockEncoder{dimensions: dimensions}
}

// Encode returns a deterministic unit-norm embedding for the prompt.
func (e *MockEncoder) Encode(ctx context.Context, instruction, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrUnencodable
	}
	seed := hashWord(prompt(instruction, text))
	vector := make([]float32, e.dimensions)
	for i := range vector {
		vector[i] = float32(math.Sin(float64(seed)*float64(i+1))*0.1 + 0.01)
	}
	if !utils.NormalizeL2(vector) {
		return nil, ErrUnencodable
	}
	return vector, nil
}

// Dimensions returns the embedding dimension.
func (e *MockEncoder) Dimensions() int {
	return e.dimensions
}

// Close is a no-op for MockEncoder.
func (e *MockEncoder) Close() error {
	return nil
}
