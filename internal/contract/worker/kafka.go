package worker

import (
	"context"
	"fmt"

	"ranchdesk/internal/platform/kafka/consumer"
	"ranchdesk/pkg/requestcontext"
)

const (
	headerTrigger   = "trigger"
	headerRequestID = "request_id"
)

// NewKafkaHandler adapts the worker to the Kafka consumer. Undecodable
// payloads are marked permanent so they go straight to the dead-letter topic.
func NewKafkaHandler(w *Worker) consumer.Handler {
	return consumer.HandlerFunc(func(ctx context.Context, msg *consumer.Message) error {
		m, err := Decode(msg.Value)
		if err != nil {
			return consumer.Permanent(err)
		}
		if rid := msg.Headers[headerRequestID]; rid != "" {
			ctx = requestcontext.WithRequestID(ctx, rid)
		}
		return w.Handle(ctx, m)
	})
}

// Publisher sends one record and returns once the broker acknowledged it.
type Publisher interface {
	Publish(ctx context.Context, topic string, key, value []byte, headers map[string]string) error
}

// KafkaRequester enqueues contract requests on a topic, keyed by booking so
// requests for one booking stay ordered within a partition.
type KafkaRequester struct {
	publisher Publisher
	topic     string
}

func NewKafkaRequester(publisher Publisher, topic string) *KafkaRequester {
	return &KafkaRequester{publisher: publisher, topic: topic}
}

func (r *KafkaRequester) Request(ctx context.Context, msg Message) error {
	value, err := Encode(msg)
	if err != nil {
		return err
	}
	headers := map[string]string{headerTrigger: msg.Trigger}
	if rid := requestcontext.RequestID(ctx); rid != "" {
		headers[headerRequestID] = rid
	}
	if err := r.publisher.Publish(ctx, r.topic, []byte(msg.BookingID.String()), value, headers); err != nil {
		return fmt.Errorf("enqueue contract request: %w", err)
	}
	return nil
}
