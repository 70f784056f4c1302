// Package queue provides typed FIFO queues with two backends:
//
//   - MemoryQueue: buffered channel, lost on restart. Used when no Redis is
//     configured (standalone and development runs).
//   - RedisQueue: Redis list with JSON items, shared by every server
//     instance and by external workers.
//
// Items that keep failing are parked in a DeadLetterQueue.
package queue

import (
	"context"
	"time"
)

// Queue is a FIFO of T.
type Queue[T any] interface {
	// Enqueue appends an item.
	Enqueue(ctx context.Context, item T) error

	// DequeueWithTimeout returns up to maxItems items. It waits at most
	// timeout for the first one and returns an empty slice when none came.
	DequeueWithTimeout(ctx context.Context, maxItems int, timeout time.Duration) ([]T, error)

	// Length returns the number of queued items.
	Length(ctx context.Context) (int, error)

	Close() error
}

// DeadLetterQueue stores items that exhausted their retries.
type DeadLetterQueue[T any] interface {
	Add(ctx context.Context, item T, err error) error
	List(ctx context.Context, maxItems int) ([]DeadLetterItem[T], error)
	Remove(ctx context.Context, id string) error
}

// DeadLetterItem is a failed item with its last error.
type DeadLetterItem[T any] struct {
	ID        string    `json:"id"`
	Item      T         `json:"item"`
	Error     string    `json:"error"`
	Timestamp time.Time `json:"timestamp"`
}

// Config holds worker and backend settings.
type Config struct {
	// Name is the Redis key suffix: "queue:<Name>" and "dlq:<Name>".
	Name string

	// BatchSize is the maximum number of items taken per dequeue.
	BatchSize int

	// BatchTimeout is how long a dequeue waits for the first item.
	BatchTimeout time.Duration

	// MaxRetries is the number of retries after the first attempt.
	MaxRetries int

	// RetryBackoff is the first retry delay; it doubles on each retry.
	RetryBackoff time.Duration

	// Capacity is the buffer size of the memory backend.
	Capacity int
}

// DefaultConfig returns default queue configuration
func DefaultConfig(name string) *Config {
	return &Config{
		Name:         name,
		BatchSize:    50,
		BatchTimeout: 2 * time.Second,
		MaxRetries:   3,
		RetryBackoff: 500 * time.Millisecond,
		Capacity:     1000,
	}
}
