// Package broker carries question and answer events over RabbitMQ.
package broker

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/models"
)

// Broker publishes and consumes correlated events on the question and answer
// queues. Both queues are declared durable at dial time so either side can
// start first.
type Broker struct {
	conn          *amqp.Connection
	ch            *amqp.Channel
	questionQueue string
	answerQueue   string
	logger        *zap.Logger
}

// Dial connects to the broker at url and declares both queues.
func Dial(url, questionQueue, answerQueue string, logger *zap.Logger) (*Broker, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial broker: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	for _, queue := range []string{questionQueue, answerQueue} {
		if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
			ch.Close()
			conn.Close()
			return nil, fmt.Errorf("declare queue %s: %w", queue, err)
		}
	}
	return &Broker{
		conn:          conn,
		ch:            ch,
		questionQueue: questionQueue,
		answerQueue:   answerQueue,
		logger:        logger,
	}, nil
}

// PublishQuestion emits ev on the question queue under correlationID.
func (b *Broker) PublishQuestion(ctx context.Context, ev models.QuestionEvent, correlationID string) error {
	return b.publish(ctx, b.questionQueue, ev, correlationID)
}

// PublishAnswer emits ev on the answer queue, echoing correlationID.
func (b *Broker) PublishAnswer(ctx context.Context, ev models.AnswerEvent, correlationID string) error {
	return b.publish(ctx, b.answerQueue, ev, correlationID)
}

func (b *Broker) publish(ctx context.Context, queue string, event interface{}, correlationID string) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	err = b.ch.PublishWithContext(ctx, "", queue, false, false, amqp.Publishing{
		ContentType:   "application/json",
		DeliveryMode:  amqp.Persistent,
		CorrelationId: correlationID,
		Body:          body,
	})
	if err != nil {
		return fmt.Errorf("publish to %s: %w", queue, err)
	}
	b.logger.Debug("event published",
		zap.String("queue", queue),
		zap.String("correlation_id", correlationID),
	)
	return nil
}

// ConsumeQuestions delivers inbound question events to handle until ctx is
// cancelled. Deliveries that fail to decode are acknowledged and dropped with
// a warning; a handler is never invoked with a half-parsed event.
func (b *Broker) ConsumeQuestions(ctx context.Context, handle func(ctx context.Context, ev models.QuestionEvent, correlationID string)) error {
	deliveries, err := b.ch.Consume(b.questionQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %s: %w", b.questionQueue, err)
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("question channel closed")
			}
			var ev models.QuestionEvent
			if err := json.Unmarshal(d.Body, &ev); err != nil {
				b.logger.Warn("dropping malformed question event",
					zap.String("correlation_id", d.CorrelationId),
					zap.Error(err),
				)
				_ = d.Ack(false)
				continue
			}
			handle(ctx, ev, d.CorrelationId)
			_ = d.Ack(false)
		}
	}
}

// ConsumeAnswers delivers inbound answer bodies to resolve until ctx is
// cancelled. Matching against pending requests is the resolver's concern;
// the broker only hands over the correlation id and raw body.
func (b *Broker) ConsumeAnswers(ctx context.Context, resolve func(correlationID string, body []byte)) error {
	deliveries, err := b.ch.Consume(b.answerQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %s: %w", b.answerQueue, err)
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("answer channel closed")
			}
			resolve(d.CorrelationId, d.Body)
			_ = d.Ack(false)
		}
	}
}

// Close closes the channel and connection.
func (b *Broker) Close() error {
	if err := b.ch.Close(); err != nil {
		b.conn.Close()
		return err
	}
	return b.conn.Close()
}
