package websocket

import (
	"context"
	"sync"

	"github.com/planforge/api/pkg/logger"
)

const (
	maxConnectionsPerUser = 10
	broadcastBufferSize   = 256
)

// AuthorizeFunc decides whether a client may subscribe to a channel.
type AuthorizeFunc func(client *Client, channel string) bool

// BroadcastMessage targets one channel. A non-empty UserID restricts
// delivery to that user's connections on the channel.
type BroadcastMessage struct {
	Channel string
	Message *Message
	UserID  string
}

// Hub tracks connected clients and their channel subscriptions, and fans
// broadcasts out to them. Registration flows through channels consumed by
// Run; subscription state is guarded by the mutex.
type Hub struct {
	mu             sync.RWMutex
	clients        map[*Client]bool
	userConnCounts map[string]int
	channels       map[string]map[*Client]bool

	broadcast  chan *BroadcastMessage
	register   chan *Client
	unregister chan *Client

	authorizeFn AuthorizeFunc
	logger      *logger.Logger
}

// NewHub creates a hub. Call Run to start it.
func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		clients:        make(map[*Client]bool),
		userConnCounts: make(map[string]int),
		channels:       make(map[string]map[*Client]bool),
		broadcast:      make(chan *BroadcastMessage, broadcastBufferSize),
		register:       make(chan *Client),
		unregister:     make(chan *Client),
		authorizeFn:    defaultAuthorize,
		logger:         log,
	}
}

// defaultAuthorize restricts user channels to their owner. Plan channels
// need a project access check, so they stay denied until SetAuthorizeFunc
// installs one.
func defaultAuthorize(client *Client, channel string) bool {
	channelType, id := ParseChannel(channel)
	switch channelType {
	case ChannelTypeUser:
		return client.UserID != "" && client.UserID == id
	default:
		return false
	}
}

// SetAuthorizeFunc replaces the subscription authorization check. Call
// before Run.
func (h *Hub) SetAuthorizeFunc(fn AuthorizeFunc) {
	h.authorizeFn = fn
}

// Run processes registrations and broadcasts until the context ends, then
// closes every connection.
func (h *Hub) Run(ctx context.Context) {
	h.logger.Info("websocket hub started")

	for {
		select {
		case <-ctx.Done():
			h.logger.Info("websocket hub stopping")
			h.closeAllClients()
			return
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		case msg := <-h.broadcast:
			h.deliver(msg)
		}
	}
}

// RegisterClient hands a new connection to the hub. Connections beyond the
// per-user limit are closed immediately.
func (h *Hub) RegisterClient(client *Client) {
	h.register <- client
}

// Broadcast queues a message for every subscriber of the channel,
// optionally narrowed to one user's connections.
func (h *Hub) Broadcast(channel string, msg *Message, userID string) {
	h.broadcast <- &BroadcastMessage{
		Channel: channel,
		Message: msg,
		UserID:  userID,
	}
}

// BroadcastEvent wraps data in an event message and broadcasts it.
func (h *Hub) BroadcastEvent(channel string, data any, userID string) {
	msg := NewMessage(MessageTypeEvent).
		WithChannel(channel).
		WithData(data)
	h.Broadcast(channel, msg, userID)
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	if client.UserID != "" {
		count := h.userConnCounts[client.UserID]
		if count >= maxConnectionsPerUser {
			h.mu.Unlock()
			h.logger.Warn("connection limit exceeded",
				"user_id", client.UserID,
				"current", count,
				"max", maxConnectionsPerUser,
			)
			client.Close()
			return
		}
		h.userConnCounts[client.UserID] = count + 1
	}
	h.clients[client] = true
	h.mu.Unlock()

	h.logger.Debug("client registered",
		"client_id", client.ID,
		"user_id", client.UserID,
	)
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		for channel, subscribers := range h.channels {
			delete(subscribers, client)
			if len(subscribers) == 0 {
				delete(h.channels, channel)
			}
		}
		if client.UserID != "" {
			if count := h.userConnCounts[client.UserID]; count > 1 {
				h.userConnCounts[client.UserID] = count - 1
			} else {
				delete(h.userConnCounts, client.UserID)
			}
		}
	}
	h.mu.Unlock()

	h.logger.Debug("client unregistered",
		"client_id", client.ID,
		"user_id", client.UserID,
	)
}

func (h *Hub) subscribeToChannel(client *Client, channel string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.channels[channel] == nil {
		h.channels[channel] = make(map[*Client]bool)
	}
	h.channels[channel][client] = true
}

func (h *Hub) unsubscribeFromChannel(client *Client, channel string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if subscribers, ok := h.channels[channel]; ok {
		delete(subscribers, client)
		if len(subscribers) == 0 {
			delete(h.channels, channel)
		}
	}
}

func (h *Hub) authorizeSubscription(client *Client, channel string) bool {
	if h.authorizeFn == nil {
		return true
	}
	return h.authorizeFn(client, channel)
}

// deliver sends a broadcast to the channel's subscribers. The recipient
// list is copied so no lock is held while writing to slow clients.
func (h *Hub) deliver(msg *BroadcastMessage) {
	h.mu.RLock()
	subscribers := h.channels[msg.Channel]
	recipients := make([]*Client, 0, len(subscribers))
	for client := range subscribers {
		if msg.UserID != "" && client.UserID != msg.UserID {
			continue
		}
		recipients = append(recipients, client)
	}
	h.mu.RUnlock()

	if len(recipients) == 0 {
		return
	}

	for _, client := range recipients {
		if err := client.SendMessage(msg.Message); err != nil {
			h.logger.Debug("failed to send message to client",
				"client_id", client.ID,
				"channel", msg.Channel,
				"error", err,
			)
		}
	}

	h.logger.Debug("broadcast message",
		"channel", msg.Channel,
		"recipients", len(recipients),
	)
}

func (h *Hub) closeAllClients() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		client.Close()
		delete(h.clients, client)
	}
	h.channels = make(map[string]map[*Client]bool)
	h.userConnCounts = make(map[string]int)
}
