package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/hyperjump/kotae/internal/models"
)

// Key layout in the shared store.
const (
	answerKeyPrefix    = "answer:"
	embeddingKeyPrefix = "embedding:"
	scanBatchSize      = 100
)

// ErrNotFound is returned when a chunk id has no stored text.
var ErrNotFound = errors.New("not found")

// Store persists answer chunks and embeddings in Redis. Writes are append-only
// by freshly generated id; nothing is updated in place or deleted.
type Store struct {
	rdb redis.Cmdable
}

// NewStore creates a store on the given Redis client.
func NewStore(rdb redis.Cmdable) *Store {
	return &Store{rdb: rdb}
}

// PutChunk stores the chunk text under answer:<id>.
func (s *Store) PutChunk(ctx context.Context, id, text string) error {
	data, err := json.Marshal(text)
	if err != nil {
		return fmt.Errorf("marshal chunk %s: %w", id, err)
	}
	if err := s.rdb.Set(ctx, answerKeyPrefix+id, data, 0).Err(); err != nil {
		return fmt.Errorf("store chunk %s: %w", id, err)
	}
	return nil
}

// Chunk returns the text stored under answer:<id>.
func (s *Store) Chunk(ctx context.Context, id string) (string, error) {
	data, err := s.rdb.Get(ctx, answerKeyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return "", fmt.Errorf("chunk %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("load chunk %s: %w", id, err)
	}
	var text string
	if err := json.Unmarshal(data, &text); err != nil {
		return "", fmt.Errorf("decode chunk %s: %w", id, err)
	}
	return text, nil
}

// PutEmbedding stores the vector under embedding:<id>.
func (s *Store) PutEmbedding(ctx context.Context, id string, vec []float32) error {
	if err := s.rdb.Set(ctx, embeddingKeyPrefix+id, EncodeVector(vec), 0).Err(); err != nil {
		return fmt.Errorf("store embedding %s: %w", id, err)
	}
	return nil
}

// Embeddings returns every stored embedding via an exhaustive scan, ordered by
// ascending id so downstream scoring is deterministic. A key that disappears
// between scan and read is skipped, matching the snapshot view of a store that
// is only ever appended to.
func (s *Store) Embeddings(ctx context.Context) ([]models.Embedding, error) {
	var out []models.Embedding
	iter := s.rdb.Scan(ctx, 0, embeddingKeyPrefix+"*", scanBatchSize).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		data, err := s.rdb.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", key, err)
		}
		vec, err := DecodeVector(data)
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", key, err)
		}
		out = append(out, models.Embedding{
			ID:     strings.TrimPrefix(key, embeddingKeyPrefix),
			Vector: vec,
		})
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("scan embeddings: %w", err)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// CountChunks returns the number of stored answer chunks.
func (s *Store) CountChunks(ctx context.Context) (int64, error) {
	return s.countKeys(ctx, answerKeyPrefix+"*")
}

// CountEmbeddings returns the number of stored embeddings.
func (s *Store) CountEmbeddings(ctx context.Context) (int64, error) {
	return s.countKeys(ctx, embeddingKeyPrefix+"*")
}

func (s *Store) countKeys(ctx context.Context, pattern string) (int64, error) {
	var n int64
	iter := s.rdb.Scan(ctx, 0, pattern, scanBatchSize).Iterator()
	for iter.Next(ctx) {
		n++
	}
	if err := iter.Err(); err != nil {
		return 0, fmt.Errorf("scan %s: %w", pattern, err)
	}
	return n, nil
}
