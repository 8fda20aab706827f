// handlers/ws.go - Live evaluation event feed
package handlers

import (
	"puzzlearena/services"

	"github.com/gofiber/websocket/v2"
)

var eventHub *services.EventHub

// InitEventHandlers wires the shared event hub into the websocket feed.
func InitEventHandlers(hub *services.EventHub) {
	eventHub = hub
}

// EventFeed streams evaluation state transitions to the client as JSON.
// Mounted at GET /ws/events.
func EventFeed(c *websocket.Conn) {
	ch := eventHub.Subscribe()
	defer eventHub.Unsubscribe(ch)

	for ev := range ch {
		if err := c.WriteJSON(ev); err != nil {
			return
		}
	}
}
