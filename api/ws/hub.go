// Package ws pushes execution notifications to connected clients over
// websockets. Delivery here is best-effort; the durable leg of the fan-out
// goes through the outbox and the broker.
package ws

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"cross/domain/book"
)

const writeWait = 5 * time.Second

// Hub tracks the open connections per username. A user may hold several
// connections (multiple clients); every one receives each notification.
type Hub struct {
	mu    sync.RWMutex
	conns map[string]map[*websocket.Conn]*sync.Mutex
	log   *zap.Logger
}

func NewHub(log *zap.Logger) *Hub {
	return &Hub{
		conns: map[string]map[*websocket.Conn]*sync.Mutex{},
		log:   log,
	}
}

func (h *Hub) Register(owner string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.conns[owner] == nil {
		h.conns[owner] = map[*websocket.Conn]*sync.Mutex{}
	}
	h.conns[owner][conn] = &sync.Mutex{}
}

func (h *Hub) Unregister(owner string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if set := h.conns[owner]; set != nil {
		delete(set, conn)
		if len(set) == 0 {
			delete(h.conns, owner)
		}
	}
	conn.Close()
}

// Notify implements book.Notifier. A write failure drops that connection;
// the user's remaining connections still get the event.
func (h *Hub) Notify(owner string, n book.Notification) {
	h.mu.RLock()
	targets := make(map[*websocket.Conn]*sync.Mutex, len(h.conns[owner]))
	for conn, wmu := range h.conns[owner] {
		targets[conn] = wmu
	}
	h.mu.RUnlock()

	for conn, wmu := range targets {
		wmu.Lock()
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		err := conn.WriteJSON(n)
		wmu.Unlock()

		if err != nil {
			h.log.Warn("notification push failed, dropping connection",
				zap.String("owner", owner),
				zap.Error(err))
			h.Unregister(owner, conn)
		}
	}
}
