package kafka

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingStore struct{}

func (failingStore) Contains(context.Context, string) (bool, error) {
	return false, errors.New("redis down")
}
func (failingStore) Add(context.Context, string) error { return errors.New("redis down") }

func TestMemoryIdempotencyStore_Expiry(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s := NewMemoryIdempotencyStore(time.Minute)
	s.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, s.Add(ctx, "evt-1"))
	seen, err := s.Contains(ctx, "evt-1")
	require.NoError(t, err)
	assert.True(t, seen)

	now = now.Add(2 * time.Minute)
	seen, _ = s.Contains(ctx, "evt-1")
	assert.False(t, seen)
	assert.Equal(t, 0, s.Len())
}

func TestIdempotentHandler_SkipsDuplicates(t *testing.T) {
	store := NewMemoryIdempotencyStore(time.Hour)
	calls := 0
	h := IdempotentHandler(store, func(context.Context, *Event) error {
		calls++
		return nil
	}, discardLogger())

	event := &Event{EventID: "evt-1", EventType: "order.created"}
	require.NoError(t, h(context.Background(), event))
	require.NoError(t, h(context.Background(), event))
	assert.Equal(t, 1, calls)
}

func TestIdempotentHandler_FailureNotRecorded(t *testing.T) {
	store := NewMemoryIdempotencyStore(time.Hour)
	calls := 0
	h := IdempotentHandler(store, func(context.Context, *Event) error {
		calls++
		if calls == 1 {
			return errHandler
		}
		return nil
	}, discardLogger())

	event := &Event{EventID: "evt-2", EventType: "order.created"}
	assert.ErrorIs(t, h(context.Background(), event), errHandler)
	assert.NoError(t, h(context.Background(), event))
	assert.Equal(t, 2, calls)
}

func TestIdempotentHandler_StoreOutageStillProcesses(t *testing.T) {
	calls := 0
	h := IdempotentHandler(failingStore{}, func(context.Context, *Event) error {
		calls++
		return nil
	}, discardLogger())

	event := &Event{EventID: "evt-3", EventType: "order.created"}
	assert.NoError(t, h(context.Background(), event))
	assert.NoError(t, h(context.Background(), event))
	assert.Equal(t, 2, calls)
}
