package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHubBroadcast(t *testing.T) {
	hub := NewHub(4)
	a, unsubA := hub.Subscribe()
	b, unsubB := hub.Subscribe()
	defer unsubB()

	hub.Publish(Event{Type: LaneStarted, Lane: "azure"})

	got := <-a
	assert.Equal(t, LaneStarted, got.Type)
	assert.False(t, got.Timestamp.IsZero())
	assert.Equal(t, "azure", (<-b).Lane)

	unsubA()
	unsubA()
	_, open := <-a
	assert.False(t, open)
	assert.Equal(t, 1, hub.Subscribers())
}

func TestHubDropsWhenSubscriberIsFull(t *testing.T) {
	hub := NewHub(1)
	ch, unsub := hub.Subscribe()
	defer unsub()

	hub.Publish(Event{Type: LaneStarted})
	hub.Publish(Event{Type: LaneCompleted})

	require.Len(t, ch, 1)
	assert.Equal(t, LaneStarted, (<-ch).Type)
}
