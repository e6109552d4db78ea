package websocket

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"dota-report-be/internal/pkg/logger"
	"dota-report-be/internal/querysession"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

// SessionFactory builds the query session controller of one connection.
type SessionFactory func(owner string, renderer querysession.Renderer) *querysession.Controller

// inbound is a browser-to-server message.
type inbound struct {
	Type  string `json:"type"` // mode, change, submit or abort
	Field string `json:"field,omitempty"`
	Value string `json:"value,omitempty"`
}

// Client is a middleman between the websocket connection and the hub. It owns
// the query session of its connection.
type Client struct {
	Hub *Hub

	// The websocket connection.
	Conn *websocket.Conn

	ID uuid.UUID

	// Buffered channel of outbound messages.
	Send chan []byte

	session *querysession.Controller
	form    *querysession.Form
	logger  logger.ILogger

	mu     sync.Mutex
	closed bool
}

func newClient(hub *Hub, conn *websocket.Conn, id uuid.UUID, newSession SessionFactory, log logger.ILogger) *Client {
	c := &Client{
		Hub:    hub,
		Conn:   conn,
		ID:     id,
		Send:   make(chan []byte, 256),
		logger: log,
	}
	if newSession != nil {
		c.session = newSession("ws:"+id.String(), &frameRenderer{client: c})
		c.form = querysession.NewForm(c.session)
	}
	return c
}

// send queues data without blocking. It reports false when the buffer is
// full or the client is gone.
func (c *Client) send(data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.Send <- data:
		return true
	default:
		return false
	}
}

// shutdown tears the query session down before closing Send, so the
// renderer can no longer write to it.
func (c *Client) shutdown() {
	if c.session != nil {
		c.session.Close()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.Send)
	}
}

func (c *Client) sendError(message string) {
	data, _ := json.Marshal(frame{Type: frameError, Data: errorData{Message: message}})
	c.send(data)
}

func (c *Client) handle(msg inbound) error {
	switch msg.Type {
	case "mode":
		return c.form.SetMode(msg.Value)
	case "change":
		return c.form.Set(msg.Field, msg.Value)
	case "submit":
		return c.form.Submit()
	case "abort":
		return c.session.AbortCurrent()
	default:
		c.sendError("unknown message type " + msg.Type)
		return nil
	}
}

// readPump pumps messages from the websocket connection into the form.
func (c *Client) readPump() {
	defer func() {
		c.logger.Debug("Client", "readPump exiting", map[string]interface{}{"client_id": c.ID})
		c.Hub.unregister <- c
		c.Conn.Close()
	}()
	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	if err := c.form.Init(); err != nil {
		return
	}

	for {
		_, data, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Warn("Client", "Unexpected close", map[string]interface{}{"client_id": c.ID, "error": err.Error()})
			}
			break
		}

		var msg inbound
		if err := json.Unmarshal(data, &msg); err != nil {
			c.sendError("malformed message")
			continue
		}
		c.logger.Debug("Client", "Inbound message", map[string]interface{}{"client_id": c.ID, "type": msg.Type, "field": msg.Field})

		if err := c.handle(msg); err != nil {
			if errors.Is(err, querysession.ErrClosed) {
				break
			}
			c.sendError(err.Error())
		}
	}
}

// writePump pumps messages from the hub to the websocket connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			// One frame per message; the browser parses each as JSON.
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// ServeWs registers the connection and runs its pumps until it closes.
func ServeWs(hub *Hub, conn *websocket.Conn, id uuid.UUID, newSession SessionFactory, log logger.ILogger) {
	client := newClient(hub, conn, id, newSession, log)
	client.Hub.register <- client

	go client.writePump()
	client.readPump()
}
