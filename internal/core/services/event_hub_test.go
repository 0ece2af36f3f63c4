package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventHubRouting(t *testing.T) {
	hub := NewEventHub()
	staff := hub.Subscribe("staff", 1, true)
	public := hub.Subscribe("public", 1, false)
	other := hub.Subscribe("other", 2, true)
	assert.Equal(t, 3, hub.ClientCount())

	hub.Publish(CenterEvent{Event: EventAppointmentBooked, CenterID: 1})
	hub.Publish(CenterEvent{Event: EventSlotChanged, CenterID: 1})

	assert.Len(t, staff.Channel, 2)
	require.Len(t, public.Channel, 1)
	assert.Equal(t, EventSlotChanged, (<-public.Channel).Event)
	assert.Empty(t, other.Channel)

	hub.Unsubscribe("public")
	_, open := <-public.Channel
	assert.False(t, open)
	assert.Equal(t, 2, hub.ClientCount())
}

func TestEventHubDropsWhenFull(t *testing.T) {
	hub := NewEventHub()
	client := hub.Subscribe("slow", 1, true)

	for i := 0; i < eventBuffer+5; i++ {
		hub.Publish(CenterEvent{Event: EventAppointmentStatus, CenterID: 1})
	}
	assert.Len(t, client.Channel, eventBuffer)
}

func TestNilEventHubPublish(t *testing.T) {
	var hub *EventHub
	assert.NotPanics(t, func() {
		hub.Publish(CenterEvent{Event: EventSlotChanged, CenterID: 1})
	})
}
