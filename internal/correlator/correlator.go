// Package correlator tracks in-flight requests across the broker boundary by
// correlation id.
package correlator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/models"
)

// ErrTimeout is returned when no response arrives before the deadline.
var ErrTimeout = errors.New("response not received before deadline")

// ErrDraining is returned to waiters when the correlator shuts down.
var ErrDraining = errors.New("correlator draining")

// Publisher emits question events tagged with a correlation id.
type Publisher interface {
	PublishQuestion(ctx context.Context, ev models.QuestionEvent, correlationID string) error
}

type result struct {
	body []byte
	err  error
}

// Correlator owns the pending-request table: process-scoped state created at
// service start, one entry per in-flight request, drained on shutdown.
// Resolution is exactly-once; responses for unknown or already-resolved
// correlation ids are silently discarded. Entries for the same correlation id
// are mutually exclusive: inserts, resolutions, and timeout removals are
// serialized so a response can never race a firing timeout into a lost reply.
type Correlator struct {
	publisher Publisher
	logger    *zap.Logger

	mu      sync.Mutex
	pending map[string]chan result
	closed  bool
}

// New creates a correlator publishing questions via publisher.
func New(publisher Publisher, logger *zap.Logger) *Correlator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Correlator{
		publisher: publisher,
		logger:    logger,
		pending:   make(map[string]chan result),
	}
}

// Send publishes ev under correlationID and blocks until the matching
// response arrives, the timeout elapses (ErrTimeout), or ctx is cancelled.
// The correlation id must be unique per in-flight request; reusing a live one
// is an error. On every outcome the pending entry is removed.
func (c *Correlator) Send(ctx context.Context, ev models.QuestionEvent, correlationID string, timeout time.Duration) ([]byte, error) {
	ch, err := c.register(correlationID)
	if err != nil {
		return nil, err
	}

	if err := c.publisher.PublishQuestion(ctx, ev, correlationID); err != nil {
		c.remove(correlationID)
		return nil, fmt.Errorf("publish question: %w", err)
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case res := <-ch:
		if res.err != nil {
			return nil, res.err
		}
		return res.body, nil
	case <-timer.C:
		c.remove(correlationID)
		c.logger.Warn("request timed out", zap.String("correlation_id", correlationID))
		return nil, ErrTimeout
	case <-ctx.Done():
		c.remove(correlationID)
		return nil, ctx.Err()
	}
}

// Resolve delivers a response body to the waiter registered under
// correlationID and reports whether a waiter was resolved. Unknown or
// already-resolved ids are dropped without error; a late response after a
// timeout lands here and is discarded the same way.
func (c *Correlator) Resolve(correlationID string, body []byte) bool {
	c.mu.Lock()
	ch, ok := c.pending[correlationID]
	if ok {
		delete(c.pending, correlationID)
	}
	c.mu.Unlock()
	if !ok {
		c.logger.Debug("discarding unmatched response", zap.String("correlation_id", correlationID))
		return false
	}
	ch <- result{body: body}
	return true
}

// Pending returns the number of in-flight requests.
func (c *Correlator) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// Drain fails every waiter with ErrDraining and rejects new registrations.
// Called on shutdown so no goroutine is left blocked on a response that can
// no longer arrive.
func (c *Correlator) Drain() {
	c.mu.Lock()
	c.closed = true
	drained := c.pending
	c.pending = make(map[string]chan result)
	c.mu.Unlock()

	for id, ch := range drained {
		ch <- result{err: ErrDraining}
		c.logger.Debug("drained pending request", zap.String("correlation_id", id))
	}
}

func (c *Correlator) register(correlationID string) (chan result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, ErrDraining
	}
	if _, exists := c.pending[correlationID]; exists {
		return nil, fmt.Errorf("correlation id %s already in flight", correlationID)
	}
	// Buffered so Resolve never blocks even if the waiter has already left.
	ch := make(chan result, 1)
	c.pending[correlationID] = ch
	return ch, nil
}

func (c *Correlator) remove(correlationID string) {
	c.mu.Lock()
	delete(c.pending, correlationID)
	c.mu.Unlock()
}
