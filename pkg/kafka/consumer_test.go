package kafka

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeMessage(t *testing.T, topic string, offset int64) kafka.Message {
	t.Helper()
	event, err := NewEvent("order.created", "o-1", "order", "order-service", map[string]string{"order_id": "o-1"})
	require.NoError(t, err)
	raw, err := event.Marshal()
	require.NoError(t, err)
	return kafka.Message{Topic: topic, Offset: offset, Key: []byte("o-1"), Value: raw}
}

func newTestConsumer(reader *fakeReader, dlq *fakeDLQ, h Handler) *Consumer {
	c := &Consumer{
		reader:    reader,
		topic:     "store.order.created",
		group:     "inventory-service",
		handler:   h,
		logger:    discardLogger(),
		retryStep: time.Millisecond,
	}
	if dlq != nil {
		c.dlq = dlq
	}
	return c
}

func runUntilCommitted(t *testing.T, c *Consumer, reader *fakeReader, want int) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Start(ctx) }()

	require.Eventually(t, func() bool { return reader.commitCount() == want }, 2*time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)
	assert.True(t, reader.closed)
}

func TestConsumer_CommitsAfterSuccess(t *testing.T) {
	reader := &fakeReader{queue: []kafka.Message{fakeMessage(t, "store.order.created", 1), fakeMessage(t, "store.order.created", 2)}}
	var handled atomic.Int32
	c := newTestConsumer(reader, nil, func(context.Context, *Event) error {
		handled.Add(1)
		return nil
	})

	runUntilCommitted(t, c, reader, 2)
	assert.Equal(t, int32(2), handled.Load())
	assert.Equal(t, []int64{1, 2}, reader.committed)
}

func TestConsumer_RetriesThenDeadLetters(t *testing.T) {
	reader := &fakeReader{queue: []kafka.Message{fakeMessage(t, "store.order.created", 7)}}
	dlq := &fakeDLQ{}
	var attempts atomic.Int32
	c := newTestConsumer(reader, dlq, func(context.Context, *Event) error {
		attempts.Add(1)
		return errHandler
	})

	runUntilCommitted(t, c, reader, 1)
	assert.Equal(t, int32(maxHandlerRetries), attempts.Load())
	require.Len(t, dlq.parked, 1)
	assert.Equal(t, int64(7), dlq.parked[0].Offset)
	assert.ErrorIs(t, dlq.causes[0], errHandler)
}

func TestConsumer_RecoversOnRetry(t *testing.T) {
	reader := &fakeReader{queue: []kafka.Message{fakeMessage(t, "store.order.created", 3)}}
	dlq := &fakeDLQ{}
	var attempts atomic.Int32
	c := newTestConsumer(reader, dlq, func(context.Context, *Event) error {
		if attempts.Add(1) == 1 {
			return errHandler
		}
		return nil
	})

	runUntilCommitted(t, c, reader, 1)
	assert.Equal(t, int32(2), attempts.Load())
	assert.Empty(t, dlq.parked)
}

func TestConsumer_MalformedEnvelopeDeadLettered(t *testing.T) {
	reader := &fakeReader{queue: []kafka.Message{{Topic: "store.order.created", Offset: 9, Value: []byte("garbage")}}}
	dlq := &fakeDLQ{}
	c := newTestConsumer(reader, dlq, func(context.Context, *Event) error {
		t.Fatal("handler must not run for malformed envelopes")
		return nil
	})

	runUntilCommitted(t, c, reader, 1)
	require.Len(t, dlq.parked, 1)
	assert.ErrorContains(t, dlq.causes[0], "unmarshal event")
}

func TestConsumer_ShutdownMidHandlerLeavesMessageUncommitted(t *testing.T) {
	reader := &fakeReader{queue: []kafka.Message{fakeMessage(t, "store.order.created", 4)}}
	dlq := &fakeDLQ{}
	ctx, cancel := context.WithCancel(context.Background())
	c := newTestConsumer(reader, dlq, func(hctx context.Context, _ *Event) error {
		cancel()
		return hctx.Err()
	})

	require.NoError(t, c.Start(ctx))
	assert.Zero(t, reader.commitCount())
	assert.Empty(t, dlq.parked)
	assert.True(t, reader.closed)
}
