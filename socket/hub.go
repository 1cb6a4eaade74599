package socket

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"

	"docuflow/pkg/logger"
)

const (
	CreatedType = "DOCUMENT_CREATED" // Document inserted
	DeletedType = "DOCUMENT_DELETED" // Document removed
	StatusType  = "STATUS_UPDATED"   // Status changed
	RenamedType = "DOCUMENT_RENAMED" // Title changed

	// allDocuments is the room of clients subscribed without a docId filter.
	allDocuments = "*"

	broadcastBuffer = 256
)

type WSMessage struct {
	Type    string          `json:"type"`
	DocID   int64           `json:"document_id"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Hub fans document change events out to subscribed WebSocket clients.
// Rooms are keyed by document id, or "*" for clients watching everything.
type Hub struct {
	Rooms      map[string]map[*Client]bool
	Broadcast  chan WSMessage
	Register   chan *Client
	Unregister chan *Client
	mu         sync.Mutex
	done       chan struct{}
}

func NewHub() *Hub {
	return &Hub{
		Rooms:      make(map[string]map[*Client]bool),
		Broadcast:  make(chan WSMessage, broadcastBuffer),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Run owns room membership until ctx is canceled, then disconnects every
// client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return

		case client := <-h.Register:
			h.mu.Lock()
			if h.Rooms[client.Room] == nil {
				h.Rooms[client.Room] = make(map[*Client]bool)
			}
			h.Rooms[client.Room][client] = true
			h.mu.Unlock()
			logger.Sugar.Debugf("Client subscribed to room %s", client.Room)

		case client := <-h.Unregister:
			h.remove(client)

		case msg := <-h.Broadcast:
			payload, err := json.Marshal(msg)
			if err != nil {
				logger.Sugar.Errorf("Error marshalling broadcast message: %v", err)
				continue
			}

			// Collect recipients under the lock, send outside it.
			h.mu.Lock()
			recipients := make([]*Client, 0, len(h.Rooms[allDocuments]))
			for client := range h.Rooms[allDocuments] {
				recipients = append(recipients, client)
			}
			for client := range h.Rooms[strconv.FormatInt(msg.DocID, 10)] {
				recipients = append(recipients, client)
			}
			h.mu.Unlock()

			for _, client := range recipients {
				select {
				case client.Send <- payload:
				default:
					// The client is lagging; drop it rather than block the hub.
					logger.Sugar.Warnf("Client in room %s has a full send buffer. Unregistering.", client.Room)
					h.remove(client)
				}
			}
		}
	}
}

// Publish queues msg without blocking. Events are dropped when the hub is
// stopped or its buffer is full.
func (h *Hub) Publish(msg WSMessage) {
	select {
	case <-h.done:
		return
	default:
	}
	select {
	case h.Broadcast <- msg:
	default:
		logger.Sugar.Warnf("Broadcast buffer full, dropping %s event for document %d", msg.Type, msg.DocID)
	}
}

// Done is closed once Run has returned.
func (h *Hub) Done() <-chan struct{} {
	return h.done
}

// Subscribers reports how many clients are currently registered.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, clients := range h.Rooms {
		n += len(clients)
	}
	return n
}

func (h *Hub) remove(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.Rooms[client.Room][client]; !ok {
		return
	}
	delete(h.Rooms[client.Room], client)
	close(client.Send)
	if len(h.Rooms[client.Room]) == 0 {
		delete(h.Rooms, client.Room)
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for room, clients := range h.Rooms {
		for client := range clients {
			close(client.Send)
		}
		delete(h.Rooms, room)
	}
}
