package kb

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/embedding"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/paginate"
)

// Source provides the raw answer corpus in order.
type Source interface {
	Load() ([]string, error)
}

// Writer persists chunk text and embedding pairs.
type Writer interface {
	PutChunk(ctx context.Context, id, text string) error
	PutEmbedding(ctx context.Context, id string, vec []float32) error
}

// Indexer performs a full, non-incremental rebuild of the knowledge base:
// load the corpus, paginate every answer, assign a fresh id to each chunk,
// encode it with the document instruction, and persist the text and vector
// pairs. Identifiers from a prior build are never reclaimed; a rebuild only
// adds new ones.
type Indexer struct {
	source      Source
	paginator   *paginate.Paginator
	encoder     embedding.Encoder
	instruction string
	writer      Writer
	logger      *zap.Logger
}

// IndexerOption configures an Indexer.
type IndexerOption func(*Indexer)

// WithLogger sets a logger for build progress output.
func WithLogger(l *zap.Logger) IndexerOption {
	return func(idx *Indexer) { idx.logger = l }
}

// NewIndexer creates an indexer. documentInstruction is the encoder prefix
// used for ingestion.
func NewIndexer(source Source, paginator *paginate.Paginator, encoder embedding.Encoder, documentInstruction string, writer Writer, opts ...IndexerOption) *Indexer {
	idx := &Indexer{
		source:      source,
		paginator:   paginator,
		encoder:     encoder,
		instruction: documentInstruction,
		writer:      writer,
	}
	for _, opt := range opts {
		opt(idx)
	}
	return idx
}

// Build rebuilds the index and returns the number of chunks persisted. The
// chunk text is written before its embedding so a concurrent scan, which is
// driven by embedding keys, never observes a vector without its text.
func (idx *Indexer) Build(ctx context.Context) (int, error) {
	answers, err := idx.source.Load()
	if err != nil {
		return 0, fmt.Errorf("load knowledge base: %w", err)
	}

	total := 0
	for _, answer := range answers {
		for seq, page := range idx.paginator.Split(answer) {
			chunk := models.AnswerChunk{ID: uuid.NewString(), Text: page, Sequence: seq}
			vec, err := idx.encoder.Encode(ctx, idx.instruction, chunk.Text)
			if err != nil {
				return total, fmt.Errorf("encode chunk %s: %w", chunk.ID, err)
			}
			if err := idx.writer.PutChunk(ctx, chunk.ID, chunk.Text); err != nil {
				return total, err
			}
			if err := idx.writer.PutEmbedding(ctx, chunk.ID, vec); err != nil {
				return total, err
			}
			total++
		}
	}
	if idx.logger != nil {
		idx.logger.Info("knowledge base built",
			zap.Int("answers", len(answers)),
			zap.Int("chunks", total),
		)
	}
	return total, nil
}
