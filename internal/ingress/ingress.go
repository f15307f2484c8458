// Package ingress receives booking lifecycle events from the booking
// service's broker and hands them to the dispatcher. Reminder events do not
// pass through here; the scheduler emits those directly.
package ingress

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/kobbyadu/consulta/internal/notify"
	"github.com/kobbyadu/consulta/pkg/messaging"
	"github.com/kobbyadu/consulta/pkg/observability"
)

// Source streams decoded lifecycle events into a handler until the context
// ends.
type Source interface {
	Run(ctx context.Context, handle func(*notify.Event)) error
}

// decode parses and validates a broker payload. Malformed payloads are an
// error for the caller to log and drop, never to retry.
func decode(body []byte) (*notify.Event, error) {
	var e notify.Event
	if err := json.Unmarshal(body, &e); err != nil {
		return nil, fmt.Errorf("malformed event payload: %w", err)
	}
	if err := e.Validate(); err != nil {
		return nil, fmt.Errorf("invalid event payload: %w", err)
	}
	return &e, nil
}

// RabbitSource consumes lifecycle events from a durable queue. This is the
// default ingress; the booking service publishes one JSON event per
// state transition.
type RabbitSource struct {
	client *messaging.RabbitClient
	queue  string
	logger *observability.Logger
}

func NewRabbitSource(client *messaging.RabbitClient, queue string, logger *observability.Logger) (*RabbitSource, error) {
	if _, err := client.DeclareQueue(queue); err != nil {
		return nil, fmt.Errorf("failed to declare ingress queue: %w", err)
	}
	return &RabbitSource{client: client, queue: queue, logger: logger}, nil
}

func (s *RabbitSource) Run(ctx context.Context, handle func(*notify.Event)) error {
	return s.client.Consume(ctx, s.queue, func(body []byte) error {
		e, err := decode(body)
		if err != nil {
			s.logger.Warn("dropping broker message", "error", err)
			return nil // acked and forgotten; a bad payload cannot improve with retries
		}
		handle(e)
		return nil
	})
}

// KafkaSource consumes lifecycle events from a topic, for deployments that
// journal booking events on Kafka instead of RabbitMQ.
type KafkaSource struct {
	consumer *messaging.KafkaConsumer
	logger   *observability.Logger
}

func NewKafkaSource(consumer *messaging.KafkaConsumer, logger *observability.Logger) *KafkaSource {
	return &KafkaSource{consumer: consumer, logger: logger}
}

func (s *KafkaSource) Run(ctx context.Context, handle func(*notify.Event)) error {
	s.consumer.Consume(ctx, func(key string, value []byte) error {
		e, err := decode(value)
		if err != nil {
			s.logger.Warn("dropping broker message", "key", key, "error", err)
			return nil
		}
		handle(e)
		return nil
	})
	return ctx.Err()
}
