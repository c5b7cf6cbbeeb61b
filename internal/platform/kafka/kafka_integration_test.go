//go:build integration

package kafka_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"github.com/twmb/franz-go/pkg/kgo"

	"ranchdesk/internal/platform/kafka/admin"
	"ranchdesk/internal/platform/kafka/consumer"
	"ranchdesk/internal/platform/kafka/producer"
	"ranchdesk/pkg/testutil/containers"
)

type KafkaSuite struct {
	suite.Suite
	redpanda *containers.RedpandaContainer
	producer *producer.Producer
}

func TestKafkaSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(KafkaSuite))
}

func (s *KafkaSuite) SetupSuite() {
	s.redpanda = containers.GetManager().GetRedpanda(s.T())
	p, err := producer.New(s.redpanda.Brokers)
	s.Require().NoError(err)
	s.producer = p
}

func (s *KafkaSuite) TearDownSuite() {
	s.producer.Close()
}

func (s *KafkaSuite) TestFailingMessageLandsOnDeadLetterTopic() {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	topic := "it.contracts.requested"
	dlq := topic + ".dlq"
	s.Require().NoError(admin.EnsureTopics(ctx, s.producer.Client(), 1, 1, topic, dlq))
	s.Require().NoError(admin.EnsureTopics(ctx, s.producer.Client(), 1, 1, topic), "ensure is idempotent")

	var calls atomic.Int32
	handler := consumer.HandlerFunc(func(context.Context, *consumer.Message) error {
		calls.Add(1)
		return errors.New("always fails")
	})
	c, err := consumer.New(consumer.Config{
		Brokers:     s.redpanda.Brokers,
		GroupID:     "it-group",
		Topic:       topic,
		DLQTopic:    dlq,
		MaxAttempts: 2,
		Backoff:     10 * time.Millisecond,
	}, handler, slog.New(slog.NewTextHandler(io.Discard, nil)), consumer.WithDeadLetter(s.producer))
	s.Require().NoError(err)

	runCtx, stop := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() { done <- c.Run(runCtx) }()

	s.Require().NoError(s.producer.Publish(ctx, topic, []byte("b-1"), []byte(`{"bookingId":"x"}`), nil))

	reader, err := kgo.NewClient(
		kgo.SeedBrokers(s.redpanda.Brokers...),
		kgo.ConsumeTopics(dlq),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	s.Require().NoError(err)
	defer reader.Close()

	fetches := reader.PollRecords(ctx, 1)
	s.Require().NoError(fetches.Err())
	recs := fetches.Records()
	s.Require().Len(recs, 1)
	s.Equal([]byte("b-1"), recs[0].Key)

	headers := map[string]string{}
	for _, h := range recs[0].Headers {
		headers[h.Key] = string(h.Value)
	}
	s.Equal("always fails", headers[consumer.HeaderDLQError])
	s.Equal("2", headers[consumer.HeaderDLQAttempts])
	s.Equal(int32(2), calls.Load())

	stop()
	s.NoError(<-done)
}
