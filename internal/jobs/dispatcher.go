package jobs

import (
	"context"
	"fmt"
	"time"

	"genstudio/internal/ledger"
	"genstudio/internal/logging"
	"genstudio/internal/queue"
)

// Generator runs one descriptor on the generation backend.
type Generator interface {
	Generate(ctx context.Context, d Descriptor) error
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(ctx context.Context, d Descriptor) error

func (f GeneratorFunc) Generate(ctx context.Context, d Descriptor) error {
	return f(ctx, d)
}

// Dispatcher drains the job queue into a Generator. A descriptor that keeps
// failing is parked in the dead letter queue and its cost refunded.
type Dispatcher struct {
	queue     queue.Queue[Descriptor]
	dlq       queue.DeadLetterQueue[Descriptor]
	generator Generator
	ledger    ledger.Ledger
	config    *queue.Config
	logger    *logging.Logger

	stopChan    chan struct{}
	stoppedChan chan struct{}
}

func NewDispatcher(q queue.Queue[Descriptor], dlq queue.DeadLetterQueue[Descriptor], g Generator, l ledger.Ledger, config *queue.Config) *Dispatcher {
	if config == nil {
		config = queue.DefaultConfig("jobs")
	}
	if l == nil {
		l = ledger.NewNoopLedger()
	}
	return &Dispatcher{
		queue:       q,
		dlq:         dlq,
		generator:   g,
		ledger:      l,
		config:      config,
		logger:      logging.NewLogger("dispatcher"),
		stopChan:    make(chan struct{}),
		stoppedChan: make(chan struct{}),
	}
}

// Start starts the worker goroutine
func (w *Dispatcher) Start(ctx context.Context) {
	go w.run(ctx)
}

// Stop waits for the current batch to finish.
func (w *Dispatcher) Stop() {
	close(w.stopChan)
	<-w.stoppedChan
}

func (w *Dispatcher) run(ctx context.Context) {
	defer close(w.stoppedChan)

	for {
		select {
		case <-w.stopChan:
			w.logger.Info("dispatcher stopping")
			return
		case <-ctx.Done():
			w.logger.Info("dispatcher context cancelled")
			return
		default:
			if err := w.processBatch(ctx); err != nil {
				if err == queue.ErrQueueClosed {
					return
				}
				select {
				case <-time.After(time.Second):
				case <-w.stopChan:
					return
				}
			}
		}
	}
}

func (w *Dispatcher) processBatch(ctx context.Context) error {
	items, err := w.queue.DequeueWithTimeout(ctx, w.config.BatchSize, w.config.BatchTimeout)
	if err != nil {
		if err != queue.ErrQueueClosed {
			w.logger.Error("failed to dequeue jobs", "error", err)
		}
		return err
	}
	if len(items) == 0 {
		return nil
	}

	w.logger.Debug("processing job batch", "count", len(items))
	for _, d := range items {
		if err := w.process(ctx, d); err != nil {
			w.logger.Error("job failed", "job", d.ID, "error", err)
		}
	}
	return nil
}

func (w *Dispatcher) process(ctx context.Context, d Descriptor) error {
	var lastErr error
	for attempt := 0; attempt <= w.config.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := w.config.RetryBackoff * time.Duration(1<<uint(attempt-1))
			w.logger.Debug("retrying job", "job", d.ID, "attempt", attempt, "backoff", backoff)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		if err := w.generator.Generate(ctx, d); err != nil {
			lastErr = err
			continue
		}
		w.logger.Debug("job dispatched", "job", d.ID, "model", d.ModelKey)
		return nil
	}

	if w.dlq != nil {
		if err := w.dlq.Add(ctx, d, lastErr); err != nil {
			w.logger.Error("failed to add job to dead letter queue", "job", d.ID, "error", err)
		}
	}
	if d.Cost > 0 {
		if _, err := w.ledger.Credit(ctx, d.UserID, d.Cost, refundRef(d)); err != nil {
			w.logger.Error("refund failed", "job", d.ID, "user", d.UserID, "error", err)
		}
	}
	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

func refundRef(d Descriptor) string {
	return fmt.Sprintf("refund:%s:%d", d.ID, d.Attempt)
}

// QueueLength returns the number of jobs waiting.
func (w *Dispatcher) QueueLength(ctx context.Context) (int, error) {
	return w.queue.Length(ctx)
}

// DeadLetters lists parked jobs.
func (w *Dispatcher) DeadLetters(ctx context.Context, maxItems int) ([]queue.DeadLetterItem[Descriptor], error) {
	if w.dlq == nil {
		return nil, fmt.Errorf("dead letter queue not configured")
	}
	return w.dlq.List(ctx, maxItems)
}

// Retry charges a parked job again and re-queues it.
func (w *Dispatcher) Retry(ctx context.Context, id string) error {
	if w.dlq == nil {
		return fmt.Errorf("dead letter queue not configured")
	}
	items, err := w.dlq.List(ctx, 0)
	if err != nil {
		return fmt.Errorf("failed to list dead letter items: %w", err)
	}
	for _, item := range items {
		if item.ID != id {
			continue
		}
		item.Item.Attempt++
		if item.Item.Cost > 0 {
			if _, err := w.ledger.Debit(ctx, item.Item.UserID, item.Item.Cost, "retry:"+item.ID); err != nil {
				return fmt.Errorf("failed to charge retry: %w", err)
			}
		}
		if err := w.queue.Enqueue(ctx, item.Item); err != nil {
			return fmt.Errorf("failed to re-enqueue job: %w", err)
		}
		return w.dlq.Remove(ctx, id)
	}
	return queue.ErrItemNotFound
}
