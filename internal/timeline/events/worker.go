package events

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"
)

// Worker drains events from a channel into a publisher. It decouples the
// lifecycle write path from sink latency; the engine enqueues and moves on.
type Worker struct {
	publisher   Publisher
	inbox       <-chan Event
	concurrency int
	logger      *slog.Logger
}

// WorkerOption configures a Worker.
type WorkerOption func(*Worker)

// WithConcurrency sets how many drain goroutines Run starts.
func WithConcurrency(n int) WorkerOption {
	return func(w *Worker) {
		if n > 0 {
			w.concurrency = n
		}
	}
}

// WithLogger sets the worker's logger.
func WithLogger(logger *slog.Logger) WorkerOption {
	return func(w *Worker) {
		w.logger = logger
	}
}

func NewWorker(publisher Publisher, inbox <-chan Event, opts ...WorkerOption) *Worker {
	w := &Worker{publisher: publisher, inbox: inbox, concurrency: 1, logger: slog.Default()}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run drains until the context is canceled or the inbox closes. Publish
// failures are logged and dropped; an event sink must not stall history
// writes.
func (w *Worker) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < w.concurrency; i++ {
		g.Go(func() error {
			for {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case event, ok := <-w.inbox:
					if !ok {
						return nil
					}
					if err := w.publisher.Emit(ctx, event); err != nil {
						w.logger.Error("publish timeline event failed",
							"type", event.Type,
							"identity", event.Identity,
							"error", err)
					}
				}
			}
		})
	}
	return g.Wait()
}
