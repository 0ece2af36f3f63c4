package services

import (
	"sync"

	"github.com/rs/zerolog/log"
)

// Center board events
const (
	EventSlotChanged            = "slot.changed"
	EventAppointmentBooked      = "appointment.booked"
	EventAppointmentCancelled   = "appointment.cancelled"
	EventAppointmentRescheduled = "appointment.rescheduled"
	EventAppointmentStatus      = "appointment.status"
)

// eventBuffer is the per-client queue length; events beyond it are dropped
const eventBuffer = 50

// CenterEvent is a server-sent event about one center
type CenterEvent struct {
	Event    string      `json:"event"`
	CenterID uint        `json:"center_id"`
	Data     interface{} `json:"data"`
}

// EventClient is a connected stream. Public clients only see slot availability.
type EventClient struct {
	ID       string
	CenterID uint
	Staff    bool
	Channel  chan CenterEvent
}

// EventHub fans center events out to connected streams
type EventHub struct {
	mu      sync.RWMutex
	clients map[string]*EventClient
}

// NewEventHub creates a new event hub
func NewEventHub() *EventHub {
	return &EventHub{
		clients: make(map[string]*EventClient),
	}
}

// Subscribe registers a client for a center and returns it
func (h *EventHub) Subscribe(id string, centerID uint, staff bool) *EventClient {
	client := &EventClient{
		ID:       id,
		CenterID: centerID,
		Staff:    staff,
		Channel:  make(chan CenterEvent, eventBuffer),
	}

	h.mu.Lock()
	h.clients[id] = client
	total := len(h.clients)
	h.mu.Unlock()

	log.Debug().
		Str("client", id).
		Uint("center_id", centerID).
		Bool("staff", staff).
		Int("total", total).
		Msg("📡 Event client registered")
	return client
}

// Unsubscribe removes a client and closes its channel
func (h *EventHub) Unsubscribe(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if client, ok := h.clients[id]; ok {
		close(client.Channel)
		delete(h.clients, id)
		log.Debug().Str("client", id).Int("total", len(h.clients)).Msg("📡 Event client unregistered")
	}
}

// Publish sends event to every client watching its center. Slow clients miss events.
func (h *EventHub) Publish(event CenterEvent) {
	if h == nil {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	sent := 0
	for _, client := range h.clients {
		if client.CenterID != event.CenterID {
			continue
		}
		if !client.Staff && event.Event != EventSlotChanged {
			continue
		}
		select {
		case client.Channel <- event:
			sent++
		default:
			log.Warn().Str("client", client.ID).Msg("⚠️ Event channel full, skipping")
		}
	}
	if sent > 0 {
		log.Debug().Str("event", event.Event).Uint("center_id", event.CenterID).Int("clients", sent).Msg("📡 Event published")
	}
}

// ClientCount returns the number of connected clients
func (h *EventHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
