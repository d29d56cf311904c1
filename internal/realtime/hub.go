package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/jobberhq/order-service/internal/redisx"
)

// EventOrderNotification is the event name pushed to clients.
const EventOrderNotification = "order_notification"

type frame struct {
	Event        string `json:"event"`
	UserTo       string `json:"userTo"`
	Order        any    `json:"order"`
	Notification any    `json:"notification"`
}

// Hub tracks websocket connections per user and fans frames out through a
// Redis channel so pushes reach clients connected to other instances.
// Delivery is best effort; nothing here is persisted.
type Hub struct {
	rdb *redis.Client
	log zerolog.Logger

	mu      sync.RWMutex
	clients map[string]map[*websocket.Conn]struct{}

	upgrader websocket.Upgrader
}

func NewHub(rdb *redis.Client, log zerolog.Logger) *Hub {
	return &Hub{
		rdb:     rdb,
		log:     log,
		clients: make(map[string]map[*websocket.Conn]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// Emit publishes the (order, notification) frame for userTo. The frame comes
// back through the subscription, which delivers it locally on every
// instance; if Redis is down the frame is delivered to local clients only.
func (h *Hub) Emit(ctx context.Context, userTo string, order, notification any) {
	b, err := json.Marshal(frame{
		Event:        EventOrderNotification,
		UserTo:       userTo,
		Order:        order,
		Notification: notification,
	})
	if err != nil {
		h.log.Error().Err(err).Str("userTo", userTo).Msg("realtime frame marshal failed")
		return
	}
	if err := h.rdb.Publish(ctx, redisx.ChannelOrderNotifications, b).Err(); err != nil {
		h.log.Warn().Err(err).Msg("realtime fanout publish failed, delivering locally")
		h.deliver(userTo, b)
	}
}

// Run forwards fanned-out frames to locally connected clients until ctx is
// done.
func (h *Hub) Run(ctx context.Context) {
	sub := h.rdb.Subscribe(ctx, redisx.ChannelOrderNotifications)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case m, ok := <-ch:
			if !ok {
				return
			}
			var f frame
			if err := json.Unmarshal([]byte(m.Payload), &f); err != nil {
				h.log.Warn().Err(err).Msg("dropping malformed realtime frame")
				continue
			}
			h.deliver(f.UserTo, []byte(m.Payload))
		}
	}
}

func (h *Hub) deliver(userTo string, b []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for conn := range h.clients[userTo] {
		// Write errors mean the client went away; the read loop cleans up.
		_ = conn.WriteMessage(websocket.TextMessage, b)
	}
}

// ServeWS upgrades the request and registers the connection under the
// userId query parameter.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		http.Error(w, "userId is required", http.StatusBadRequest)
		return
	}
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	h.register(userID, conn)

	go func() {
		defer func() {
			h.unregister(userID, conn)
			_ = conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (h *Hub) register(userID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[userID] == nil {
		h.clients[userID] = make(map[*websocket.Conn]struct{})
	}
	h.clients[userID][conn] = struct{}{}
}

func (h *Hub) unregister(userID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if conns, ok := h.clients[userID]; ok {
		delete(conns, conn)
		if len(conns) == 0 {
			delete(h.clients, userID)
		}
	}
}
