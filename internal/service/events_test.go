package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-grader/internal/middleware"
)

func TestEventPublisherBroadcastsLocally(t *testing.T) {
	publisher := NewEventPublisher(nil, nil, "", testLogger())
	events, unsubscribe := publisher.Subscribe()
	defer unsubscribe()

	publisher.Publish(middleware.ContextWithCorrelation(context.Background(), "corr-9"), GradingEvent{Type: EventArchiveCleared})

	select {
	case event := <-events:
		require.Equal(t, EventArchiveCleared, event.Type)
		require.Equal(t, "corr-9", event.CorrelationID)
		require.NotEmpty(t, event.ID)
		require.False(t, event.OccurredAt.IsZero())
	case <-time.After(time.Second):
		t.Fatal("expected a local event")
	}
}

func TestEventPublisherRelaysRemoteRedisEvents(t *testing.T) {
	server, err := miniredis.Run()
	require.NoError(t, err)
	defer server.Close()

	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	defer client.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	publisher := NewEventPublisher(client, nil, "test.events", testLogger())
	events, unsubscribe := publisher.Subscribe()
	defer unsubscribe()
	publisher.Start(ctx)

	remote := GradingEvent{ID: "evt-1", Type: EventResultRemoved, Source: "another-node", ResultID: "r-1"}
	payload, err := json.Marshal(remote)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return server.Publish("test.events", string(payload)) > 0
	}, time.Second, 10*time.Millisecond)

	select {
	case event := <-events:
		require.Equal(t, "evt-1", event.ID)
		require.Equal(t, "r-1", event.ResultID)
	case <-time.After(time.Second):
		t.Fatal("expected the remote event")
	}
}

func TestEventPublisherUnsubscribeClosesChannel(t *testing.T) {
	publisher := NewEventPublisher(nil, nil, "", testLogger())
	events, unsubscribe := publisher.Subscribe()
	unsubscribe()
	unsubscribe()

	_, open := <-events
	require.False(t, open)

	publisher.Publish(context.Background(), GradingEvent{Type: EventArchiveCleared})
}
