package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"dota-report-be/internal/pkg/logger"
	"dota-report-be/pkg/events"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const clusterChannel = "dota-report:events"

type Hub struct {
	// Registered clients, one per browser connection.
	clients map[uuid.UUID]*Client

	// Register requests from the clients.
	register chan *Client

	// Unregister requests from clients.
	unregister chan *Client

	// Lock for safe map access
	mu sync.RWMutex

	// Redis connection for cross-instance fan-out of report events.
	rdb *redis.Client

	// instance tags frames this hub published so it skips its own echoes.
	instance string

	logger logger.ILogger
}

func NewHub(rdb *redis.Client, log logger.ILogger) *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[uuid.UUID]*Client),
		rdb:        rdb,
		instance:   uuid.NewString(),
		logger:     log,
	}
}

func (h *Hub) Run() {
	if h.rdb != nil {
		go h.subscribeToRedis()
	}

	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.ID] = client
			h.mu.Unlock()
			h.logger.Info("Hub", "Client registered", map[string]interface{}{"client_id": client.ID})

		case client := <-h.unregister:
			h.mu.Lock()
			_, ok := h.clients[client.ID]
			delete(h.clients, client.ID)
			h.mu.Unlock()

			// Removed from the map first so no broadcast can write to Send
			// once the client closes it.
			if ok {
				go client.shutdown()
				h.logger.Info("Hub", "Client unregistered", map[string]interface{}{"client_id": client.ID})
			}
		}
	}
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Publish pushes a report lifecycle event to every connected browser, here
// and, through Redis, on every other instance.
func (h *Hub) Publish(ctx context.Context, event events.Event) error {
	data, err := json.Marshal(frame{Type: frameEvent, Data: eventData{
		Type:       event.EventType(),
		Payload:    event.Payload(),
		OccurredAt: event.Timestamp(),
	}})
	if err != nil {
		return err
	}

	h.broadcastLocal(data)

	if h.rdb == nil {
		return nil
	}
	payload, err := json.Marshal(clusterMessage{Origin: h.instance, Message: data})
	if err != nil {
		return err
	}
	return h.rdb.Publish(ctx, clusterChannel, payload).Err()
}

type clusterMessage struct {
	Origin  string          `json:"origin"`
	Message json.RawMessage `json:"message"`
}

func (h *Hub) broadcastLocal(data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, client := range h.clients {
		if !client.send(data) {
			h.logger.Warn("Hub", "Client Send buffer full, dropping event", map[string]interface{}{"client_id": client.ID})
		}
	}
}

func (h *Hub) subscribeToRedis() {
	ctx := context.Background()
	pubsub := h.rdb.Subscribe(ctx, clusterChannel)
	defer pubsub.Close()

	for msg := range pubsub.Channel() {
		var payload clusterMessage
		if err := json.Unmarshal([]byte(msg.Payload), &payload); err != nil {
			h.logger.Warn("Hub", "Redis msg parse error", map[string]interface{}{"error": err.Error()})
			continue
		}
		if payload.Origin == h.instance {
			continue
		}
		h.broadcastLocal(payload.Message)
	}
}
