package kafka

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeReader replays queued messages then blocks until the context ends.
type fakeReader struct {
	mu        sync.Mutex
	queue     []kafka.Message
	committed []int64
	closed    int
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if len(r.queue) > 0 {
		msg := r.queue[0]
		r.queue = r.queue[1:]
		r.mu.Unlock()
		return msg, nil
	}
	r.mu.Unlock()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *fakeReader) Close() error {
	r.mu.Lock()
	r.closed++
	r.mu.Unlock()
	return nil
}

func encodedEvent(t *testing.T, id string) []byte {
	t.Helper()
	e, err := NewEvent("product.upserted", id, "product", "catalog", map[string]string{"id": id})
	require.NoError(t, err)
	b, err := e.marshal()
	require.NoError(t, err)
	return b
}

func TestTopic(t *testing.T) {
	assert.Equal(t, "ecommerce.catalog.product-upserted", Topic("catalog", "product-upserted"))
}

func TestEvent_DecodeData(t *testing.T) {
	e, err := NewEvent("product.upserted", "p1", "product", "catalog", map[string]string{"id": "p1"})
	require.NoError(t, err)

	decoded, err := UnmarshalEvent(mustMarshal(t, e))
	require.NoError(t, err)

	var data map[string]string
	require.NoError(t, decoded.DecodeData(&data))
	assert.Equal(t, "p1", data["id"])
	assert.NotEmpty(t, decoded.EventID)
}

func mustMarshal(t *testing.T, e *Event) []byte {
	t.Helper()
	b, err := e.marshal()
	require.NoError(t, err)
	return b
}

func TestConsumer_CommitsAfterHandlingAndSkipsPoison(t *testing.T) {
	reader := &fakeReader{queue: []kafka.Message{
		{Offset: 1, Value: encodedEvent(t, "p1")},
		{Offset: 2, Value: []byte("not json")},
		{Offset: 3, Value: encodedEvent(t, "p-bad")},
	}}

	var (
		mu      sync.Mutex
		handled []string
	)
	handler := func(_ context.Context, e *Event) error {
		mu.Lock()
		defer mu.Unlock()
		handled = append(handled, e.AggregateID)
		if e.AggregateID == "p-bad" {
			return errors.New("index down")
		}
		return nil
	}

	c := newConsumer(reader, "topic", handler, discardLogger())
	c.backoff = time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Start(ctx) }()

	require.Eventually(t, func() bool {
		reader.mu.Lock()
		defer reader.mu.Unlock()
		return len(reader.committed) == 3
	}, time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"p1", "p-bad", "p-bad", "p-bad"}, handled)
	assert.Equal(t, []int64{1, 2, 3}, reader.committed)
	assert.Equal(t, 1, reader.closed)
}

func TestIdempotentHandler(t *testing.T) {
	store := NewMemoryIdempotencyStore(time.Minute)
	calls := 0
	h := IdempotentHandler(store, func(context.Context, *Event) error {
		calls++
		return nil
	}, discardLogger())

	e := &Event{EventID: "evt-1"}
	require.NoError(t, h(context.Background(), e))
	require.NoError(t, h(context.Background(), e))
	assert.Equal(t, 1, calls)
}

func TestIdempotentHandler_FailureNotRecorded(t *testing.T) {
	store := NewMemoryIdempotencyStore(time.Minute)
	fail := true
	h := IdempotentHandler(store, func(context.Context, *Event) error {
		if fail {
			return errors.New("transient")
		}
		return nil
	}, discardLogger())

	e := &Event{EventID: "evt-2"}
	require.Error(t, h(context.Background(), e))

	fail = false
	require.NoError(t, h(context.Background(), e))
	seen, _ := store.Contains(context.Background(), "evt-2")
	assert.True(t, seen)
}

func TestMemoryIdempotencyStore_Expires(t *testing.T) {
	store := NewMemoryIdempotencyStore(time.Millisecond)
	require.NoError(t, store.Add(context.Background(), "evt"))
	time.Sleep(5 * time.Millisecond)

	seen, err := store.Contains(context.Background(), "evt")
	require.NoError(t, err)
	assert.False(t, seen)
}
