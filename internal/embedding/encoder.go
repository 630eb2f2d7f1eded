// Package embedding provides instruction-prefixed text encoding via ONNX and caching.
package embedding

import "context"

// Encoder produces unit-norm vector embeddings for text. The instruction
// prefix biases the encoding toward its role: ingestion passes the document
// instruction, retrieval passes the query instruction. Swapping them degrades
// match quality but is not an error. Implementations must never return a
// partial or zero vector; a text that cannot be encoded is a hard failure.
type Encoder interface {
	Encode(ctx context.Context, instruction, text string) ([]float32, error)
	Dimensions() int
	Close() error
}

// prompt joins the instruction prefix and the text the way the encoder model
// expects them, matching how documents were encoded at ingestion.
func prompt(instruction, text string) string {
	if instruction == "" {
		return text
	}
	return instruction + " " + text
}
