package cache

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	srv := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewStore(rdb)
}

func TestStore_ChunkRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.PutChunk(ctx, "id-1", "answer text with ~ and | inside"); err != nil {
		t.Fatalf("PutChunk error: %v", err)
	}
	text, err := s.Chunk(ctx, "id-1")
	if err != nil {
		t.Fatalf("Chunk error: %v", err)
	}
	if text != "answer text with ~ and | inside" {
		t.Errorf("text=%q", text)
	}
}

func TestStore_ChunkNotFound(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.Chunk(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestStore_EmbeddingsScan(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	vectors := map[string][]float32{
		"b": {0, 1, 0},
		"a": {1, 0, 0},
		"c": {0, 0, 1},
	}
	for id, vec := range vectors {
		if err := s.PutEmbedding(ctx, id, vec); err != nil {
			t.Fatal(err)
		}
	}

	embs, err := s.Embeddings(ctx)
	if err != nil {
		t.Fatalf("Embeddings error: %v", err)
	}
	if len(embs) != 3 {
		t.Fatalf("count=%d", len(embs))
	}
	if embs[0].ID != "a" || embs[1].ID != "b" || embs[2].ID != "c" {
		t.Errorf("scan not ordered by id: %s %s %s", embs[0].ID, embs[1].ID, embs[2].ID)
	}
	for _, e := range embs {
		want := vectors[e.ID]
		for i := range want {
			if e.Vector[i] != want[i] {
				t.Errorf("embedding %s element %d: %f != %f", e.ID, i, e.Vector[i], want[i])
			}
		}
	}
}

func TestStore_EmbeddingsEmpty(t *testing.T) {
	s := newTestStore(t)
	embs, err := s.Embeddings(context.Background())
	if err != nil {
		t.Fatalf("Embeddings error: %v", err)
	}
	if len(embs) != 0 {
		t.Errorf("count=%d", len(embs))
	}
}

func TestStore_Counts(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	for _, id := range []string{"x", "y"} {
		_ = s.PutChunk(ctx, id, "text "+id)
		_ = s.PutEmbedding(ctx, id, []float32{1})
	}
	if n, err := s.CountChunks(ctx); err != nil || n != 2 {
		t.Errorf("chunks=%d err=%v", n, err)
	}
	if n, err := s.CountEmbeddings(ctx); err != nil || n != 2 {
		t.Errorf("embeddings=%d err=%v", n, err)
	}
}
