package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"miniola/pkg/logger"
)

// Event is a ride or payment notification addressed to one or more users.
type Event struct {
	Type       string                 `json:"type"`
	RideID     string                 `json:"ride_id,omitempty"`
	Recipients []string               `json:"recipients"`
	Timestamp  int64                  `json:"timestamp"`
	Data       map[string]interface{} `json:"data,omitempty"`
}

func NewEvent(eventType string, rideID primitive.ObjectID, data map[string]interface{}, recipients ...primitive.ObjectID) *Event {
	event := &Event{
		Type:      eventType,
		Timestamp: time.Now().Unix(),
		Data:      data,
	}
	if !rideID.IsZero() {
		event.RideID = rideID.Hex()
	}
	for _, r := range recipients {
		if !r.IsZero() {
			event.Recipients = append(event.Recipients, r.Hex())
		}
	}
	return event
}

type Hub struct {
	clients    map[*Client]bool
	rooms      map[string]map[*Client]bool
	register   chan *Client
	unregister chan *Client
	deliver    chan *Event
	logger     *logger.Logger

	mutex     sync.RWMutex
	connected int
}

func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		rooms:      make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		deliver:    make(chan *Event, 256),
		logger:     log,
	}
}

// Run owns the client and room maps until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			for client := range h.clients {
				h.removeClient(client)
			}
			return

		case client := <-h.register:
			h.addClient(client)

		case client := <-h.unregister:
			h.removeClient(client)

		case event := <-h.deliver:
			h.dispatch(event)
		}
	}
}

// Deliver queues event for the connected recipients. It never blocks; when
// the queue is full the event is dropped.
func (h *Hub) Deliver(event *Event) {
	select {
	case h.deliver <- event:
	default:
		h.logger.WithField("event_type", event.Type).Warn("Websocket delivery queue full, dropping event")
	}
}

// ConnectedClients returns the number of open connections.
func (h *Hub) ConnectedClients() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return h.connected
}

func (h *Hub) addClient(client *Client) {
	h.clients[client] = true

	room := userRoom(client.UserID.Hex())
	if h.rooms[room] == nil {
		h.rooms[room] = make(map[*Client]bool)
	}
	h.rooms[room][client] = true
	h.setConnected(len(h.clients))

	h.logger.WithUserID(client.UserID).WithField("role", client.Role).Debug("Websocket client registered")
}

func (h *Hub) removeClient(client *Client) {
	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	close(client.send)

	room := userRoom(client.UserID.Hex())
	if members, ok := h.rooms[room]; ok {
		delete(members, client)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
	h.setConnected(len(h.clients))

	h.logger.WithUserID(client.UserID).Debug("Websocket client unregistered")
}

func (h *Hub) dispatch(event *Event) {
	data, err := json.Marshal(event)
	if err != nil {
		h.logger.WithError(err).Error("Failed to encode websocket event")
		return
	}

	for _, recipient := range event.Recipients {
		for client := range h.rooms[userRoom(recipient)] {
			select {
			case client.send <- data:
			default:
				h.removeClient(client)
			}
		}
	}
}

func (h *Hub) setConnected(n int) {
	h.mutex.Lock()
	h.connected = n
	h.mutex.Unlock()
}

func userRoom(userID string) string {
	return "user_" + userID
}
