package realtime

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestClient(h *Hub, trainingID string) *Client {
	return &Client{
		hub:        h,
		send:       make(chan []byte, sendBuffer),
		trainingID: trainingID,
	}
}

func receive(t *testing.T, c *Client) []byte {
	t.Helper()
	select {
	case payload := <-c.send:
		return payload
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for broadcast")
		return nil
	}
}

func TestHubBroadcastsInPublishOrder(t *testing.T) {
	hub := NewHub(zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	client := newTestClient(hub, "training-1")
	hub.register <- client

	hub.Broadcast("training-1", []byte("first"))
	hub.Broadcast("training-1", []byte("second"))
	hub.Broadcast("training-1", []byte("third"))

	assert.Equal(t, "first", string(receive(t, client)))
	assert.Equal(t, "second", string(receive(t, client)))
	assert.Equal(t, "third", string(receive(t, client)))
}

func TestHubIsolatesChannels(t *testing.T) {
	hub := NewHub(zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	one := newTestClient(hub, "training-1")
	two := newTestClient(hub, "training-2")
	hub.register <- one
	hub.register <- two

	hub.Broadcast("training-2", []byte("only-two"))

	assert.Equal(t, "only-two", string(receive(t, two)))
	select {
	case payload := <-one.send:
		t.Fatalf("unexpected cross-channel delivery: %s", payload)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHubFansOutToAllSubscribers(t *testing.T) {
	hub := NewHub(zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	instructor := newTestClient(hub, "training-1")
	learner := newTestClient(hub, "training-1")
	hub.register <- instructor
	hub.register <- learner

	require.Eventually(t, func() bool {
		return hub.SubscriberCount("training-1") == 2
	}, time.Second, 10*time.Millisecond)

	hub.Broadcast("training-1", []byte("score updated"))

	assert.Equal(t, "score updated", string(receive(t, instructor)))
	assert.Equal(t, "score updated", string(receive(t, learner)))
}

func TestHubShutdownReleasesDisconnectingClients(t *testing.T) {
	hub := NewHub(zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	client := newTestClient(hub, "training-1")
	hub.register <- client

	cancel()
	select {
	case <-hub.done:
	case <-time.After(time.Second):
		t.Fatal("hub never signalled shutdown")
	}

	// A client whose read loop ends after the hub stopped must still be
	// able to finish its teardown instead of blocking on unregister.
	finished := make(chan struct{})
	go func() {
		select {
		case client.hub.unregister <- client:
		case <-client.hub.done:
		}
		close(finished)
	}()
	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("client teardown blocked after shutdown")
	}

	_, open := <-client.send
	assert.False(t, open)
}

func TestHubUnregisterStopsDelivery(t *testing.T) {
	hub := NewHub(zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	client := newTestClient(hub, "training-1")
	hub.register <- client
	hub.unregister <- client

	require.Eventually(t, func() bool {
		return hub.SubscriberCount("training-1") == 0
	}, time.Second, 10*time.Millisecond)

	// A disconnected subscriber simply misses later events.
	hub.Broadcast("training-1", []byte("missed"))

	_, open := <-client.send
	assert.False(t, open)
}
