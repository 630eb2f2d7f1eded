// Package retrieval finds the best-matching answer chunk for a query.
package retrieval

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/embedding"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/pkg/utils"
)

// ErrEmptyIndex signals that no embeddings are stored; the caller may rebuild
// the knowledge base and retry.
var ErrEmptyIndex = errors.New("empty index")

// SnapshotReader reads the persisted knowledge base snapshot.
type SnapshotReader interface {
	Embeddings(ctx context.Context) ([]models.Embedding, error)
	Chunk(ctx context.Context, id string) (string, error)
}

// Match is the retrieval result for a query.
type Match struct {
	ID    string
	Text  string
	Score float64
}

// Engine scores a query against every stored embedding and returns the best
// match. Scoring is a brute-force dot product over unit-norm vectors; ties
// break toward the lowest id because embeddings arrive in ascending id order
// and only a strictly greater score displaces the current best.
type Engine struct {
	store       SnapshotReader
	encoder     embedding.Encoder
	instruction string
	accept      func(score float64) bool
	logger      *zap.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger sets a logger for retrieval debug output.
func WithLogger(l *zap.Logger) EngineOption {
	return func(e *Engine) { e.logger = l }
}

// WithMinScore installs a score gate: matches scoring below min are rejected
// with ErrEmptyIndex semantics replaced by a no-match error. The gate is NOT
// installed by default; the configured similarity threshold is carried in
// config but deliberately left unconsulted to match observed behavior.
func WithMinScore(min float64) EngineOption {
	return func(e *Engine) {
		e.accept = func(score float64) bool { return score >= min }
	}
}

// NewEngine creates a retrieval engine. queryInstruction is the encoder prefix
// used for queries; it must differ from the document instruction used at
// ingestion.
func NewEngine(store SnapshotReader, encoder embedding.Encoder, queryInstruction string, opts ...EngineOption) *Engine {
	e := &Engine{
		store:       store,
		encoder:     encoder,
		instruction: queryInstruction,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Retrieve returns the chunk whose embedding scores highest against the query.
// An empty snapshot yields ErrEmptyIndex.
func (e *Engine) Retrieve(ctx context.Context, query string) (Match, error) {
	snapshot, err := e.store.Embeddings(ctx)
	if err != nil {
		return Match{}, fmt.Errorf("load snapshot: %w", err)
	}
	if len(snapshot) == 0 {
		return Match{}, ErrEmptyIndex
	}

	queryVec, err := e.encoder.Encode(ctx, e.instruction, query)
	if err != nil {
		return Match{}, fmt.Errorf("encode query: %w", err)
	}

	bestID := ""
	bestScore := 0.0
	for i, emb := range snapshot {
		score := utils.Dot(queryVec, emb.Vector)
		if i == 0 || score > bestScore {
			bestID = emb.ID
			bestScore = score
		}
	}

	if e.accept != nil && !e.accept(bestScore) {
		return Match{}, fmt.Errorf("best score %.4f below threshold", bestScore)
	}

	text, err := e.store.Chunk(ctx, bestID)
	if err != nil {
		return Match{}, fmt.Errorf("load matched chunk: %w", err)
	}
	if e.logger != nil {
		e.logger.Debug("retrieved match",
			zap.String("chunk_id", bestID),
			zap.Float64("score", bestScore),
			zap.Int("scanned", len(snapshot)),
		)
	}
	return Match{ID: bestID, Text: text, Score: bestScore}, nil
}
