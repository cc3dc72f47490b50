package notify

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"think-alike/internal/game"
)

const writeWait = 10 * time.Second

// Client is one websocket subscriber. Writes are serialized per connection.
type Client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *Client) write(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// Hub fans room messages out to websocket subscribers on this instance.
type Hub struct {
	mu     sync.Mutex
	groups map[string]map[*Client]struct{}
}

func NewHub() *Hub {
	return &Hub{
		groups: make(map[string]map[*Client]struct{}),
	}
}

func (h *Hub) Add(channel string, conn *websocket.Conn) *Client {
	client := &Client{conn: conn}
	h.mu.Lock()
	defer h.mu.Unlock()
	group := h.groups[channel]
	if group == nil {
		group = make(map[*Client]struct{})
		h.groups[channel] = group
	}
	group[client] = struct{}{}
	return client
}

func (h *Hub) Remove(channel string, client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	group := h.groups[channel]
	if group == nil {
		return
	}
	if _, ok := group[client]; !ok {
		return
	}
	delete(group, client)
	_ = client.conn.Close()
	if len(group) == 0 {
		delete(h.groups, channel)
	}
}

// Count reports how many subscribers a channel has.
func (h *Hub) Count(channel string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.groups[channel])
}

// Send writes one message to a single subscriber.
func (h *Hub) Send(client *Client, event string, room *game.Room) error {
	data, err := encode(event, room)
	if err != nil {
		return err
	}
	return client.write(data)
}

func (h *Hub) Publish(_ context.Context, channel, event string, room *game.Room) error {
	data, err := encode(event, room)
	if err != nil {
		return err
	}
	h.Broadcast(channel, data)
	return nil
}

// Broadcast writes raw data to every subscriber of channel, dropping those
// whose write fails.
func (h *Hub) Broadcast(channel string, data []byte) {
	h.mu.Lock()
	group := h.groups[channel]
	clients := make([]*Client, 0, len(group))
	for client := range group {
		clients = append(clients, client)
	}
	h.mu.Unlock()

	for _, client := range clients {
		if err := client.write(data); err != nil {
			log.Debug().Err(err).Str("channel", channel).Msg("ws write failed")
			h.Remove(channel, client)
		}
	}
}

// ReadLoop drains inbound frames until the peer goes away, then unsubscribes.
func (h *Hub) ReadLoop(channel string, client *Client) {
	defer h.Remove(channel, client)
	for {
		if _, _, err := client.conn.ReadMessage(); err != nil {
			log.Debug().Err(err).Str("channel", channel).Msg("ws disconnected")
			return
		}
	}
}

// Decode parses a pushed message; used by subscribers and tests.
func Decode(data []byte) (Message, error) {
	var msg Message
	err := json.Unmarshal(data, &msg)
	return msg, err
}
