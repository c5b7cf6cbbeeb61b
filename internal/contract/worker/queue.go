package worker

import (
	"context"
	"log/slog"
)

// MemoryQueue is an in-process request queue for local development and
// tests. Requests are lost on restart and failures are only logged.
type MemoryQueue struct {
	inbox  chan Message
	logger *slog.Logger
}

func NewMemoryQueue(size int, logger *slog.Logger) *MemoryQueue {
	if logger == nil {
		logger = slog.Default()
	}
	return &MemoryQueue{inbox: make(chan Message, size), logger: logger}
}

// Request blocks while the queue is full.
func (q *MemoryQueue) Request(ctx context.Context, msg Message) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case q.inbox <- msg:
		return nil
	}
}

// Run delivers queued requests to w until ctx is cancelled.
func (q *MemoryQueue) Run(ctx context.Context, w *Worker) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg := <-q.inbox:
			if err := w.Handle(ctx, msg); err != nil {
				q.logger.ErrorContext(ctx, "contract request failed",
					"booking_id", msg.BookingID.String(),
					"trigger", msg.Trigger,
					"error", err,
				)
			}
		}
	}
}
