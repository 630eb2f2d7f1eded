package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/cache"
	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/internal/embedding"
)

type mockBuilder struct {
	chunks int
	err    error
	calls  int
}

func (m *mockBuilder) Build(ctx context.Context) (int, error) {
	m.calls++
	return m.chunks, m.err
}

func newTestServer(t *testing.T, store *cache.Memory, builder Builder) *Server {
	t.Helper()
	encoder := embedding.NewMockEncoder(4)
	t.Cleanup(func() { _ = encoder.Close() })
	return NewServer(store, builder, encoder, &config.ServerConfig{Port: 8090}, zap.NewNop())
}

func TestHandleHealth(t *testing.T) {
	srv := newTestServer(t, cache.NewMemory(), &mockBuilder{})
	r := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	srv.handleHealth(w, r)
	if w.Code != http.StatusOK {
		t.Errorf("status: got %d", w.Code)
	}
}

func TestHandleStatus(t *testing.T) {
	store := cache.NewMemory()
	ctx := context.Background()
	for _, id := range []string{"a", "b", "c"} {
		_ = store.PutChunk(ctx, id, "text "+id)
		_ = store.PutEmbedding(ctx, id, []float32{1, 0, 0, 0})
	}
	srv := newTestServer(t, store, &mockBuilder{})

	r := httptest.NewRequest(http.MethodGet, "/api/v1/status", nil)
	w := httptest.NewRecorder()
	srv.handleStatus(w, r)
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d, body: %s", w.Code, w.Body.String())
	}
	var out struct {
		Chunks     int64 `json:"chunks"`
		Embeddings int64 `json:"embeddings"`
		Dimensions int   `json:"dimensions"`
	}
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if out.Chunks != 3 {
		t.Errorf("chunks: got %d, want 3", out.Chunks)
	}
	if out.Embeddings != 3 {
		t.Errorf("embeddings: got %d, want 3", out.Embeddings)
	}
	if out.Dimensions != 4 {
		t.Errorf("dimensions: got %d, want 4", out.Dimensions)
	}
}

func TestHandleRebuild(t *testing.T) {
	builder := &mockBuilder{chunks: 7}
	srv := newTestServer(t, cache.NewMemory(), builder)

	r := httptest.NewRequest(http.MethodPost, "/api/v1/rebuild", nil)
	w := httptest.NewRecorder()
	srv.handleRebuild(w, r)
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d, body: %s", w.Code, w.Body.String())
	}
	if builder.calls != 1 {
		t.Errorf("build calls: got %d, want 1", builder.calls)
	}
	var out struct {
		Status string `json:"status"`
		Chunks int    `json:"chunks"`
	}
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if out.Status != "rebuilt" || out.Chunks != 7 {
		t.Errorf("response: %+v", out)
	}
}

func TestHandleRebuild_Error(t *testing.T) {
	builder := &mockBuilder{err: errors.New("corpus missing")}
	srv := newTestServer(t, cache.NewMemory(), builder)

	r := httptest.NewRequest(http.MethodPost, "/api/v1/rebuild", nil)
	w := httptest.NewRecorder()
	srv.handleRebuild(w, r)
	if w.Code != http.StatusInternalServerError {
		t.Errorf("status: got %d, want 500", w.Code)
	}
}
