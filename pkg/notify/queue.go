package notify

import (
	"context"

	"github.com/Astemirdum/library-cms/pkg/mailer"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Queue is an in-process outbox drained by a fixed pool of workers.
type Queue struct {
	ch      chan mailer.Message
	deliver Deliver
	workers int
	log     *zap.Logger
}

func NewQueue(cfg Config, deliver Deliver, log *zap.Logger) *Queue {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	return &Queue{
		ch:      make(chan mailer.Message, cfg.QueueSize),
		deliver: deliver,
		workers: cfg.Workers,
		log:     log.Named("notify"),
	}
}

// Notify drops the message when the queue is full.
func (q *Queue) Notify(_ context.Context, msg mailer.Message) {
	select {
	case q.ch <- msg:
	default:
		q.log.Warn("queue full, notification dropped", zap.String("to", msg.To), zap.String("subject", msg.Subject))
	}
}

// Run drains the queue until ctx is cancelled. Messages still buffered at
// that point are delivered before Run returns.
func (q *Queue) Run(ctx context.Context) error {
	g := new(errgroup.Group)
	for i := 0; i < q.workers; i++ {
		g.Go(func() error {
			for {
				select {
				case msg := <-q.ch:
					q.send(ctx, msg)
				case <-ctx.Done():
					q.flush()
					return nil
				}
			}
		})
	}
	return g.Wait()
}

func (q *Queue) flush() {
	for {
		select {
		case msg := <-q.ch:
			q.send(context.Background(), msg)
		default:
			return
		}
	}
}

func (q *Queue) send(ctx context.Context, msg mailer.Message) {
	if err := q.deliver(ctx, msg); err != nil {
		q.log.Error("deliver", zap.String("to", msg.To), zap.Error(err))
		return
	}
	q.log.Debug("delivered", zap.String("to", msg.To), zap.String("subject", msg.Subject))
}
