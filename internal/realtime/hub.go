package realtime

import (
	"context"
	"encoding/json"
	"sync"

	"go.uber.org/zap"
)

// Group is a named set of connections that receive group-scoped broadcasts.
type Group string

const (
	GroupTeachers Group = "teachers"
	GroupStudents Group = "students"
)

// WSMessage is the WebSocket message envelope.
type WSMessage struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// EventHandler processes application events on the hub dispatch goroutine.
type EventHandler interface {
	HandleEvent(c *Client, msg WSMessage)
	HandleDisconnect(c *Client)
}

type inboundEvent struct {
	client *Client
	msg    WSMessage
}

// Hub tracks every connected client, fans out broadcasts, and runs the single
// dispatch goroutine all state mutations happen on. Inbound client events and
// scheduled tasks (poll timers, disconnect cleanup) are consumed by the same
// loop, so handlers never race with each other.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
	groups  map[Group]map[string]*Client

	inbound chan inboundEvent
	tasks   chan func()

	handler EventHandler
	logger  *zap.Logger
}

// NewHub creates a hub with no clients.
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		clients: make(map[string]*Client),
		groups: map[Group]map[string]*Client{
			GroupTeachers: make(map[string]*Client),
			GroupStudents: make(map[string]*Client),
		},
		inbound: make(chan inboundEvent, 256),
		tasks:   make(chan func(), 64),
		logger:  logger,
	}
}

// SetHandler installs the event handler. Must be called before Run.
func (h *Hub) SetHandler(handler EventHandler) {
	h.handler = handler
}

// Run consumes inbound events and scheduled tasks until the context is
// cancelled. Call in its own goroutine.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case ev := <-h.inbound:
			if h.handler != nil {
				h.handler.HandleEvent(ev.client, ev.msg)
			}
		case fn := <-h.tasks:
			fn()
		case <-ctx.Done():
			h.logger.Info("hub stopped")
			return
		}
	}
}

// Schedule queues a function to run on the dispatch goroutine. Used by the
// poll manager's expiry timer so a timeout cannot race an answer submission.
func (h *Hub) Schedule(fn func()) {
	h.tasks <- fn
}

// JoinGroup adds a connection to a broadcast group. Idempotent.
func (h *Hub) JoinGroup(c *Client, g Group) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.groups[g] == nil {
		h.groups[g] = make(map[string]*Client)
	}
	h.groups[g][c.ID] = c
}

// Broadcast sends an event to every connected client.
func (h *Hub) Broadcast(event string, payload interface{}) {
	msg, err := encode(event, payload)
	if err != nil {
		h.logger.Warn("broadcast encode failed", zap.String("event", event), zap.Error(err))
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		c.push(msg)
	}
}

// BroadcastToGroup sends an event to every client in a group.
func (h *Hub) BroadcastToGroup(g Group, event string, payload interface{}) {
	msg, err := encode(event, payload)
	if err != nil {
		h.logger.Warn("group broadcast encode failed", zap.String("event", event), zap.Error(err))
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.groups[g] {
		c.push(msg)
	}
}

// BroadcastToTeachers satisfies roster.Notifier.
func (h *Hub) BroadcastToTeachers(event string, payload interface{}) {
	h.BroadcastToGroup(GroupTeachers, event, payload)
}

// SendToClient sends an event to a single connection, if still present.
func (h *Hub) SendToClient(connID string, event string, payload interface{}) {
	msg, err := encode(event, payload)
	if err != nil {
		h.logger.Warn("send encode failed", zap.String("event", event), zap.Error(err))
		return
	}
	h.mu.RLock()
	c, ok := h.clients[connID]
	h.mu.RUnlock()
	if ok {
		c.push(msg)
	}
}

// CloseClient flushes pending frames to a connection and severs it. The
// client leaves the hub maps immediately so later broadcasts skip it; the
// socket teardown follows once the write pump drains.
func (h *Hub) CloseClient(connID string) {
	h.mu.Lock()
	c, ok := h.clients[connID]
	if ok {
		delete(h.clients, connID)
		for _, members := range h.groups {
			delete(members, connID)
		}
	}
	h.mu.Unlock()
	if ok {
		c.closeSend()
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) add(c *Client) {
	h.mu.Lock()
	h.clients[c.ID] = c
	h.mu.Unlock()
	h.logger.Debug("client connected", zap.String("connection_id", c.ID))
}

// disconnect removes connection bookkeeping and hands application cleanup to
// the dispatch goroutine. Called from the client's read pump on teardown.
func (h *Hub) disconnect(c *Client) {
	h.mu.Lock()
	delete(h.clients, c.ID)
	for _, members := range h.groups {
		delete(members, c.ID)
	}
	h.mu.Unlock()
	h.logger.Debug("client disconnected", zap.String("connection_id", c.ID))

	h.tasks <- func() {
		if h.handler != nil {
			h.handler.HandleDisconnect(c)
		}
	}
}

func (h *Hub) enqueue(c *Client, msg WSMessage) {
	h.inbound <- inboundEvent{client: c, msg: msg}
}

func encode(event string, payload interface{}) (WSMessage, error) {
	msg := WSMessage{Event: event}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return msg, err
		}
		msg.Data = data
	}
	return msg, nil
}
