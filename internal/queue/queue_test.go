package queue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testItem struct {
	ID    string  `json:"id"`
	Value float64 `json:"value"`
}

func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	return client, mr
}

func TestMemoryQueue_FIFO(t *testing.T) {
	q := NewMemoryQueue[testItem](10)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, q.Enqueue(ctx, testItem{ID: id}))
	}

	n, err := q.Length(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	items, err := q.DequeueWithTimeout(ctx, 2, 100*time.Millisecond)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "a", items[0].ID)
	assert.Equal(t, "b", items[1].ID)

	items, err = q.DequeueWithTimeout(ctx, 10, 100*time.Millisecond)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "c", items[0].ID)
}

func TestMemoryQueue_TimeoutReturnsEmpty(t *testing.T) {
	q := NewMemoryQueue[testItem](10)

	start := time.Now()
	items, err := q.DequeueWithTimeout(context.Background(), 5, 50*time.Millisecond)
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
}

func TestMemoryQueue_FullAndClosed(t *testing.T) {
	q := NewMemoryQueue[testItem](1)
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, testItem{ID: "a"}))
	assert.ErrorIs(t, q.Enqueue(ctx, testItem{ID: "b"}), ErrQueueFull)

	require.NoError(t, q.Close())
	require.NoError(t, q.Close())
	assert.ErrorIs(t, q.Enqueue(ctx, testItem{ID: "c"}), ErrQueueClosed)

	_, err := q.DequeueWithTimeout(ctx, 1, time.Millisecond)
	assert.ErrorIs(t, err, ErrQueueClosed)
}

func TestMemoryQueue_CancelledContext(t *testing.T) {
	q := NewMemoryQueue[testItem](1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, q.Enqueue(ctx, testItem{}), context.Canceled)
	_, err := q.DequeueWithTimeout(ctx, 1, time.Second)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMemoryDeadLetterQueue(t *testing.T) {
	dlq := NewMemoryDeadLetterQueue[testItem]()
	ctx := context.Background()

	require.NoError(t, dlq.Add(ctx, testItem{ID: "a"}, errors.New("boom")))
	require.NoError(t, dlq.Add(ctx, testItem{ID: "b"}, nil))

	items, err := dlq.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "boom", items[0].Error)
	assert.Equal(t, "", items[1].Error)

	items, err = dlq.List(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, items, 1)

	require.NoError(t, dlq.Remove(ctx, items[0].ID))
	assert.ErrorIs(t, dlq.Remove(ctx, items[0].ID), ErrItemNotFound)
}

func TestRedisQueue_EnqueueDequeue(t *testing.T) {
	client, mr := setupTestRedis(t)
	defer mr.Close()
	defer client.Close()

	q := NewRedisQueue[testItem](client, "test-jobs")
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, testItem{ID: "a", Value: 1.5}))
	require.NoError(t, q.Enqueue(ctx, testItem{ID: "b", Value: 2}))

	n, err := q.Length(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	// Items are plain JSON so external workers can read them.
	raw, err := client.LIndex(ctx, "queue:test-jobs", 0).Result()
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"a","value":1.5}`, raw)

	items, err := q.DequeueWithTimeout(ctx, 10, time.Second)
	require.NoError(t, err)
	assert.Equal(t, []testItem{{ID: "a", Value: 1.5}, {ID: "b", Value: 2}}, items)
}

func TestRedisQueue_SkipsUndecodableItems(t *testing.T) {
	client, mr := setupTestRedis(t)
	defer mr.Close()
	defer client.Close()

	q := NewRedisQueue[testItem](client, "test-jobs")
	ctx := context.Background()

	require.NoError(t, client.RPush(ctx, "queue:test-jobs", "not json").Err())
	require.NoError(t, q.Enqueue(ctx, testItem{ID: "ok"}))

	items, err := q.DequeueWithTimeout(ctx, 10, time.Second)
	require.NoError(t, err)
	assert.Equal(t, []testItem{{ID: "ok"}}, items)
}

func TestRedisQueue_TimeoutReturnsEmpty(t *testing.T) {
	client, mr := setupTestRedis(t)
	defer mr.Close()
	defer client.Close()

	q := NewRedisQueue[testItem](client, "empty")
	items, err := q.DequeueWithTimeout(context.Background(), 10, time.Second)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestRedisDeadLetterQueue(t *testing.T) {
	client, mr := setupTestRedis(t)
	defer mr.Close()
	defer client.Close()

	dlq := NewRedisDeadLetterQueue[testItem](client, "test-jobs")
	ctx := context.Background()

	require.NoError(t, dlq.Add(ctx, testItem{ID: "a"}, errors.New("first")))
	time.Sleep(2 * time.Millisecond)
	require.NoError(t, dlq.Add(ctx, testItem{ID: "b"}, errors.New("second")))

	items, err := dlq.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "a", items[0].Item.ID)
	assert.Equal(t, "second", items[1].Error)

	require.NoError(t, dlq.Remove(ctx, items[0].ID))
	assert.ErrorIs(t, dlq.Remove(ctx, items[0].ID), ErrItemNotFound)

	items, err = dlq.List(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, items, 1)
}
