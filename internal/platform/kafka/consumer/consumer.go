// Package consumer runs a franz-go consumer group with manual commits.
//
// Each record is handed to the Handler. A failing record is redelivered to
// the handler in-process with exponential backoff up to MaxAttempts; after
// that it is published to the dead-letter topic and committed. Offsets are
// committed only after a record is either handled or dead-lettered, so a
// crash mid-record redelivers it (at-least-once).
package consumer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
)

// Message is the transport-neutral view of a consumed record.
type Message struct {
	Topic     string
	Partition int32
	Offset    int64
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Timestamp time.Time
	// Attempt is 1 on first delivery and increments on each redelivery.
	Attempt int
}

// Handler processes one message. A nil return acknowledges it.
type Handler interface {
	Handle(ctx context.Context, msg *Message) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, msg *Message) error

func (f HandlerFunc) Handle(ctx context.Context, msg *Message) error { return f(ctx, msg) }

// DeadLetterPublisher receives messages that exhausted their attempts.
type DeadLetterPublisher interface {
	Publish(ctx context.Context, topic string, key, value []byte, headers map[string]string) error
}

type permanentError struct{ err error }

func (e permanentError) Error() string { return e.err.Error() }
func (e permanentError) Unwrap() error { return e.err }

// Permanent marks a handler error that redelivery cannot fix, such as an
// undecodable payload. The message goes straight to the dead-letter topic.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return permanentError{err: err}
}

// IsPermanent reports whether err was marked with Permanent.
func IsPermanent(err error) bool {
	var p permanentError
	return errors.As(err, &p)
}

// Header names set on dead-lettered records.
const (
	HeaderDLQError       = "dlq-error"
	HeaderDLQAttempts    = "dlq-attempts"
	HeaderDLQSourceTopic = "dlq-source-topic"
	HeaderDLQSourceOff   = "dlq-source-offset"
)

type Config struct {
	Brokers     []string
	GroupID     string
	Topic       string
	DLQTopic    string
	MaxAttempts int
	// Backoff is the delay before the second attempt; it doubles per attempt
	// and is capped at MaxBackoff.
	Backoff    time.Duration
	MaxBackoff time.Duration
}

type Consumer struct {
	cfg     Config
	client  *kgo.Client
	handler Handler
	dlq     DeadLetterPublisher
	logger  *slog.Logger
	metrics *Metrics
	sleep   func(ctx context.Context, d time.Duration) error
}

type Option func(*Consumer)

func WithMetrics(m *Metrics) Option {
	return func(c *Consumer) { c.metrics = m }
}

func WithDeadLetter(p DeadLetterPublisher) Option {
	return func(c *Consumer) { c.dlq = p }
}

// New builds the consumer and its group client. The client is not polled
// until Run.
func New(cfg Config, handler Handler, logger *slog.Logger, opts ...Option) (*Consumer, error) {
	if len(cfg.Brokers) == 0 || cfg.Topic == "" || cfg.GroupID == "" {
		return nil, errors.New("kafka consumer requires brokers, topic and group id")
	}
	c := newConsumer(cfg, handler, logger, opts...)
	client, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.ConsumerGroup(cfg.GroupID),
		kgo.ConsumeTopics(cfg.Topic),
		kgo.DisableAutoCommit(),
		kgo.BlockRebalanceOnPoll(),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka consumer client: %w", err)
	}
	c.client = client
	return c, nil
}

func newConsumer(cfg Config, handler Handler, logger *slog.Logger, opts ...Option) *Consumer {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = time.Second
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = 30 * time.Second
	}
	c := &Consumer{
		cfg:     cfg,
		handler: handler,
		logger:  logger,
		sleep:   sleepCtx,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run polls until ctx is cancelled. It returns nil on cancellation and an
// error only when a record can neither be handled nor dead-lettered; the
// record stays uncommitted and is redelivered on restart.
func (c *Consumer) Run(ctx context.Context) error {
	defer c.client.Close()
	c.logger.Info("kafka consumer started", "topic", c.cfg.Topic, "group", c.cfg.GroupID)
	for {
		fetches := c.client.PollFetches(ctx)
		if ctx.Err() != nil {
			c.client.AllowRebalance()
			return nil
		}
		if fetches.IsClientClosed() {
			return nil
		}
		fetches.EachError(func(topic string, partition int32, err error) {
			c.logger.WarnContext(ctx, "kafka fetch error",
				"topic", topic,
				"partition", partition,
				"error", err,
			)
		})

		var processErr error
		var done []*kgo.Record
		fetches.EachRecord(func(rec *kgo.Record) {
			if processErr != nil {
				return
			}
			if err := c.process(ctx, fromRecord(rec)); err != nil {
				processErr = err
				return
			}
			done = append(done, rec)
		})

		if len(done) > 0 {
			if err := c.client.CommitRecords(context.WithoutCancel(ctx), done...); err != nil {
				c.logger.ErrorContext(ctx, "kafka commit failed", "error", err, "records", len(done))
			}
		}
		c.client.AllowRebalance()

		if processErr != nil {
			if ctx.Err() != nil {
				return nil
			}
			return processErr
		}
	}
}

// process delivers msg until it succeeds or attempts are exhausted, then
// dead-letters it. A nil return means the record may be committed.
func (c *Consumer) process(ctx context.Context, msg *Message) error {
	var lastErr error
	for attempt := 1; attempt <= c.cfg.MaxAttempts; attempt++ {
		msg.Attempt = attempt
		lastErr = c.handler.Handle(ctx, msg)
		if lastErr == nil {
			c.metrics.incHandled(msg.Topic, "ok")
			return nil
		}
		c.metrics.incHandled(msg.Topic, "error")
		c.logger.WarnContext(ctx, "message handling failed",
			"topic", msg.Topic,
			"partition", msg.Partition,
			"offset", msg.Offset,
			"attempt", attempt,
			"max_attempts", c.cfg.MaxAttempts,
			"error", lastErr,
		)
		if attempt == c.cfg.MaxAttempts || IsPermanent(lastErr) {
			break
		}
		if err := c.sleep(ctx, c.backoff(attempt)); err != nil {
			return err
		}
	}
	return c.deadLetter(ctx, msg, lastErr)
}

func (c *Consumer) backoff(attempt int) time.Duration {
	d := c.cfg.Backoff
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= c.cfg.MaxBackoff {
			return c.cfg.MaxBackoff
		}
	}
	return d
}

func (c *Consumer) deadLetter(ctx context.Context, msg *Message, cause error) error {
	if c.dlq == nil || c.cfg.DLQTopic == "" {
		c.logger.ErrorContext(ctx, "CRITICAL: message dropped after exhausting attempts, no dead-letter topic",
			"topic", msg.Topic,
			"offset", msg.Offset,
			"error", cause,
		)
		c.metrics.incDeadLettered(msg.Topic, "dropped")
		return nil
	}
	headers := make(map[string]string, len(msg.Headers)+4)
	for k, v := range msg.Headers {
		headers[k] = v
	}
	headers[HeaderDLQError] = cause.Error()
	headers[HeaderDLQAttempts] = strconv.Itoa(msg.Attempt)
	headers[HeaderDLQSourceTopic] = msg.Topic
	headers[HeaderDLQSourceOff] = strconv.FormatInt(msg.Offset, 10)

	if err := c.dlq.Publish(context.WithoutCancel(ctx), c.cfg.DLQTopic, msg.Key, msg.Value, headers); err != nil {
		c.metrics.incDeadLettered(msg.Topic, "failed")
		return fmt.Errorf("publish to dead-letter topic %s: %w", c.cfg.DLQTopic, err)
	}
	c.metrics.incDeadLettered(msg.Topic, "ok")
	c.logger.ErrorContext(ctx, "message moved to dead-letter topic",
		"topic", msg.Topic,
		"dlq_topic", c.cfg.DLQTopic,
		"offset", msg.Offset,
		"attempts", msg.Attempt,
		"error", cause,
	)
	return nil
}

func fromRecord(rec *kgo.Record) *Message {
	headers := make(map[string]string, len(rec.Headers))
	for _, h := range rec.Headers {
		headers[h.Key] = string(h.Value)
	}
	return &Message{
		Topic:     rec.Topic,
		Partition: rec.Partition,
		Offset:    rec.Offset,
		Key:       rec.Key,
		Value:     rec.Value,
		Headers:   headers,
		Timestamp: rec.Timestamp,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
