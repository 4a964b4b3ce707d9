package publisher

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	audit "communiserver/pkg/platform/audit"
	"communiserver/pkg/platform/audit/store/memory"
)

func TestPublisher_SyncMode(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store)
	defer pub.Close()

	actorID := uuid.New()
	event := audit.Event{
		ActorID: actorID,
		Action:  string(audit.EventSearchPerformed),
		Surface: "search",
	}

	err := pub.Emit(context.Background(), event)
	require.NoError(t, err)

	events, err := pub.List(context.Background(), actorID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, string(audit.EventSearchPerformed), events[0].Action)
	assert.False(t, events[0].Timestamp.IsZero())
}

func TestPublisher_AsyncMode(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store, WithAsyncBuffer(10))
	defer pub.Close()

	actorID := uuid.New()
	event := audit.Event{
		ActorID: actorID,
		Action:  string(audit.EventAnalyticsViewed),
		Surface: "analytics",
	}

	err := pub.Emit(context.Background(), event)
	require.NoError(t, err)

	// Wait for async processing
	require.Eventually(t, func() bool {
		events, err := pub.List(context.Background(), actorID)
		return err == nil && len(events) == 1
	}, time.Second, 10*time.Millisecond)
}

func TestPublisher_AsyncDrainsOnClose(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store, WithAsyncBuffer(100))

	actorID := uuid.New()
	for range 10 {
		err := pub.Emit(context.Background(), audit.Event{
			ActorID: actorID,
			Action:  string(audit.EventSearchPerformed),
		})
		require.NoError(t, err)
	}

	// Close should drain all buffered events
	pub.Close()

	events, err := store.ListByActor(context.Background(), actorID)
	require.NoError(t, err)
	assert.Len(t, events, 10)
}

func TestPublisher_CloseIsIdempotent(t *testing.T) {
	pub := NewPublisher(memory.NewInMemoryStore(), WithAsyncBuffer(1))
	pub.Close()
	pub.Close()
}
