package cache

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/hyperjump/kotae/internal/models"
)

// Memory is an in-memory store with the same behavior as the Redis-backed
// Store. Suitable for tests and local development without a cache server.
type Memory struct {
	mu         sync.RWMutex
	chunks     map[string]string
	embeddings map[string][]float32
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		chunks:     make(map[string]string),
		embeddings: make(map[string][]float32),
	}
}

// PutChunk stores the chunk text under id.
func (m *Memory) PutChunk(ctx context.Context, id, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.chunks[id] = text
	return nil
}

// Chunk returns the text stored under id.
func (m *Memory) Chunk(ctx context.Context, id string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	text, ok := m.chunks[id]
	if !ok {
		return "", fmt.Errorf("chunk %s: %w", id, ErrNotFound)
	}
	return text, nil
}

// PutEmbedding stores a copy of the vector under id.
func (m *Memory) PutEmbedding(ctx context.Context, id string, vec []float32) error {
	cp := make([]float32, len(vec))
	copy(cp, vec)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.embeddings[id] = cp
	return nil
}

// Embeddings returns every stored embedding ordered by ascending id.
func (m *Memory) Embeddings(ctx context.Context) ([]models.Embedding, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Embedding, 0, len(m.embeddings))
	for id, vec := range m.embeddings {
		out = append(out, models.Embedding{ID: id, Vector: vec})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// CountChunks returns the number of stored chunks.
func (m *Memory) CountChunks(ctx context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.chunks)), nil
}

// CountEmbeddings returns the number of stored embeddings.
func (m *Memory) CountEmbeddings(ctx context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.embeddings)), nil
}
