package ws

import (
	"encoding/json"
	"log"
	"sync"
)

// Event represents a WebSocket message to be broadcast
type Event struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// groupEvent is an internal struct for routing events to a broadcast group
type groupEvent struct {
	Group string
	Event Event
}

// Hub maintains the set of active clients and broadcasts messages to them
type Hub struct {
	// Registered clients by group key
	groups map[string]map[*Client]bool

	// Inbound messages from clients (register/unregister)
	register   chan *Client
	unregister chan *Client

	// Outbound messages to broadcast
	broadcast chan *groupEvent

	// Mutex for thread-safe group access
	mu sync.RWMutex
}

// NewHub creates a new Hub instance
func NewHub() *Hub {
	return &Hub{
		groups:     make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *groupEvent, 256),
	}
}

// Run starts the hub's main loop
// This should be called as a goroutine: go hub.Run()
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if h.groups[client.group] == nil {
				h.groups[client.group] = make(map[*Client]bool)
			}
			h.groups[client.group][client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if clients, ok := h.groups[client.group]; ok {
				if _, exists := clients[client]; exists {
					delete(clients, client)
					close(client.send)
					// Clean up empty groups
					if len(clients) == 0 {
						delete(h.groups, client.group)
					}
				}
			}
			h.mu.Unlock()

		case event := <-h.broadcast:
			h.mu.Lock()
			clients := h.groups[event.Group]

			// Marshal event to JSON once
			message, err := json.Marshal(event.Event)
			if err != nil {
				h.mu.Unlock()
				continue
			}

			// Send to all clients in this group
			for client := range clients {
				select {
				case client.send <- message:
				default:
					// Client's send buffer is full, close and unregister
					close(client.send)
					delete(h.groups[event.Group], client)
					if len(h.groups[event.Group]) == 0 {
						delete(h.groups, event.Group)
					}
				}
			}
			h.mu.Unlock()
		}
	}
}

// BroadcastToGroup sends an event to all clients subscribed to a group
func (h *Hub) BroadcastToGroup(group string, event Event) {
	h.broadcast <- &groupEvent{
		Group: group,
		Event: event,
	}
}

// Publish marshals a typed payload and broadcasts it to a group. It is the
// fire-and-forget entry point the services use; marshal failures are logged
// and dropped, never surfaced to the caller.
func (h *Hub) Publish(group, eventType string, payload any) {
	raw, err := json.Marshal(payload)
	if err != nil {
		log.Printf("ERROR: marshal %s event: %v", eventType, err)
		return
	}
	h.BroadcastToGroup(group, Event{Type: eventType, Payload: raw})
}
