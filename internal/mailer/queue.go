package mailer

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

// ErrQueueFull is returned by Queue.Send when the buffer has no room.
var ErrQueueFull = errors.New("mailer: queue full")

const defaultQueueSize = 100

// Queue buffers messages in memory and hands them to the wrapped Mailer from
// a single background loop, so Send never waits on the SMTP server.
type Queue struct {
	next   Mailer
	logger *zap.Logger
	jobs   chan Message
}

// NewQueue wraps next. A non-positive size falls back to 100.
func NewQueue(next Mailer, size int, logger *zap.Logger) *Queue {
	if size <= 0 {
		size = defaultQueueSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Queue{next: next, logger: logger, jobs: make(chan Message, size)}
}

// Send enqueues m without blocking.
func (q *Queue) Send(_ context.Context, m Message) error {
	select {
	case q.jobs <- m:
		return nil
	default:
		return ErrQueueFull
	}
}

// Run delivers queued messages until ctx ends. Each delivery gets its own
// sendTimeout budget. Messages still buffered at exit are dropped and counted.
func (q *Queue) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			if n := len(q.jobs); n > 0 {
				q.logger.Warn("mail queue stopped with pending messages", zap.Int("dropped", n))
			}
			return
		case m := <-q.jobs:
			q.deliver(ctx, m)
		}
	}
}

func (q *Queue) deliver(ctx context.Context, m Message) {
	sendCtx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()
	if err := q.next.Send(sendCtx, m); err != nil {
		q.logger.Error("mail delivery failed",
			zap.Strings("to", m.To),
			zap.String("subject", m.Subject),
			zap.Error(err))
	}
}
