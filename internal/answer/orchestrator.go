// Package answer coordinates retrieval, rebuild-on-miss, and answer publishing.
package answer

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/retrieval"
	"github.com/hyperjump/kotae/pkg/utils"
)

// Retriever finds the best answer for a question.
type Retriever interface {
	Retrieve(ctx context.Context, query string) (retrieval.Match, error)
}

// Builder rebuilds the knowledge base index.
type Builder interface {
	Build(ctx context.Context) (int, error)
}

// Publisher emits answer events tagged with the inbound correlation id.
type Publisher interface {
	PublishAnswer(ctx context.Context, ev models.AnswerEvent, correlationID string) error
}

// Orchestrator handles one question event end to end: retrieve, rebuild once
// on an empty index and retry exactly once, then publish either the answer or
// a failure envelope. No raw error ever crosses the broker boundary.
type Orchestrator struct {
	retriever Retriever
	builder   Builder
	publisher Publisher
	rebuild   singleflight.Group
	logger    *zap.Logger
}

// New creates an orchestrator.
func New(retriever Retriever, builder Builder, publisher Publisher, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		retriever: retriever,
		builder:   builder,
		publisher: publisher,
		logger:    logger,
	}
}

// Handle answers the question in ev and publishes the result under
// correlationID. The returned error reports publish failures only; retrieval
// and rebuild failures are already converted to failure envelopes.
func (o *Orchestrator) Handle(ctx context.Context, ev models.QuestionEvent, correlationID string) error {
	o.logger.Debug("question received",
		zap.String("user_id", ev.UserID),
		zap.String("correlation_id", correlationID),
		zap.String("question", utils.Truncate(ev.Question, 120)),
	)

	match, err := o.retriever.Retrieve(ctx, ev.Question)
	if errors.Is(err, retrieval.ErrEmptyIndex) {
		o.logger.Info("index empty, rebuilding", zap.String("correlation_id", correlationID))
		if buildErr := o.buildOnce(ctx); buildErr != nil {
			return o.fail(ctx, ev, correlationID, fmt.Errorf("rebuild failed: %w", buildErr))
		}
		// One retry after the rebuild; never more.
		match, err = o.retriever.Retrieve(ctx, ev.Question)
	}
	if err != nil {
		return o.fail(ctx, ev, correlationID, err)
	}

	o.logger.Info("question answered",
		zap.String("user_id", ev.UserID),
		zap.String("correlation_id", correlationID),
		zap.String("chunk_id", match.ID),
		zap.Float64("score", match.Score),
	)
	return o.publisher.PublishAnswer(ctx, models.AnswerEvent{
		UserID: ev.UserID,
		Status: models.StatusOK,
		Answer: match.Text,
	}, correlationID)
}

// buildOnce runs the rebuild under a single-flight guard so simultaneous
// cache misses share one execution instead of racing duplicate builds.
func (o *Orchestrator) buildOnce(ctx context.Context) error {
	_, err, _ := o.rebuild.Do("rebuild", func() (interface{}, error) {
		n, err := o.builder.Build(ctx)
		if err != nil {
			return nil, err
		}
		return n, nil
	})
	return err
}

// fail publishes a failure envelope for the request. Internal error text stays
// in the logs; the envelope carries a presentable message.
func (o *Orchestrator) fail(ctx context.Context, ev models.QuestionEvent, correlationID string, cause error) error {
	o.logger.Warn("question failed",
		zap.String("user_id", ev.UserID),
		zap.String("correlation_id", correlationID),
		zap.Error(cause),
	)
	return o.publisher.PublishAnswer(ctx, models.ErrorEvent(ev.UserID, "no answer available, escalating to support"), correlationID)
}
