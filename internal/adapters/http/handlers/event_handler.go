package handlers

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"aadhaar-seva/internal/core/services"
	"aadhaar-seva/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// heartbeatInterval keeps idle streams open through proxies
const heartbeatInterval = 30 * time.Second

// EventHandler streams live center events over SSE
type EventHandler struct {
	hub           *services.EventHub
	centerService *services.CenterService
}

// NewEventHandler creates a new event handler
func NewEventHandler(hub *services.EventHub, centerService *services.CenterService) *EventHandler {
	return &EventHandler{
		hub:           hub,
		centerService: centerService,
	}
}

// CenterEvents streams slot availability changes for a center
// @Summary Live slot availability
// @Description Server-sent events; each slot.changed event carries the slot's remaining seats
// @Tags Centers
// @Produce text/event-stream
// @Param id path int true "Center ID"
// @Success 200 {string} string "event stream"
// @Failure 404 {object} response.Response
// @Router /centers/{id}/events [get]
func (h *EventHandler) CenterEvents(c *fiber.Ctx) error {
	return h.stream(c, false)
}

// StaffEvents streams every appointment change for a center
// @Summary Live center board
// @Description Server-sent events for bookings, cancellations, reschedules, status changes and seat counts
// @Tags Dashboard
// @Produce text/event-stream
// @Security BearerAuth
// @Param id path int true "Center ID"
// @Success 200 {string} string "event stream"
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /dashboard/centers/{id}/events [get]
func (h *EventHandler) StaffEvents(c *fiber.Ctx) error {
	return h.stream(c, true)
}

func (h *EventHandler) stream(c *fiber.Ctx, staff bool) error {
	id, ok := paramID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid center ID")
	}
	if _, err := h.centerService.Get(c.UserContext(), id); err != nil {
		if errors.Is(err, services.ErrCenterNotFound) {
			return response.NotFound(c, "Center not found")
		}
		return response.InternalServerError(c, err, "Failed to open event stream")
	}

	clientID := uuid.NewString()

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")
	c.Set(fiber.HeaderTransferEncoding, "chunked")

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		client := h.hub.Subscribe(clientID, id, staff)
		defer h.hub.Unsubscribe(clientID)

		fmt.Fprintf(w, "event: connected\ndata: {\"client_id\":%q,\"center_id\":%d}\n\n", clientID, id)
		if err := w.Flush(); err != nil {
			return
		}

		heartbeat := time.NewTicker(heartbeatInterval)
		defer heartbeat.Stop()

		for {
			select {
			case event, open := <-client.Channel:
				if !open {
					return
				}
				if err := writeEvent(w, event); err != nil {
					log.Debug().Str("client", clientID).Msg("📡 Event client disconnected")
					return
				}
			case <-heartbeat.C:
				fmt.Fprint(w, ": heartbeat\n\n")
				if err := w.Flush(); err != nil {
					log.Debug().Str("client", clientID).Msg("📡 Event client disconnected")
					return
				}
			}
		}
	})

	return nil
}

// writeEvent writes one SSE frame and flushes it
func writeEvent(w *bufio.Writer, event services.CenterEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Event, data)
	return w.Flush()
}
