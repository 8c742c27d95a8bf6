package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/talgya/arena/internal/engine"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// message is the envelope of every frame pushed to UI clients.
type message struct {
	Type string `json:"type"` // "snapshot", "error"
	Data any    `json:"data"`
}

// Broadcaster pushes tick snapshots to connected websocket clients. Each
// connection has its own write lock since gorilla connections allow only one
// concurrent writer.
type Broadcaster struct {
	mu      sync.RWMutex
	clients map[*websocket.Conn]*sync.Mutex
}

// NewBroadcaster creates an empty broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{clients: make(map[*websocket.Conn]*sync.Mutex)}
}

// Register adds a connection.
func (b *Broadcaster) Register(conn *websocket.Conn) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.clients[conn] = &sync.Mutex{}
}

// Unregister removes and closes a connection.
func (b *Broadcaster) Unregister(conn *websocket.Conn) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.clients[conn]; ok {
		delete(b.clients, conn)
		conn.Close()
	}
}

// Clients returns the number of connected clients.
func (b *Broadcaster) Clients() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}

// Publish sends snap to every client. It has the engine.OnTick signature.
func (b *Broadcaster) Publish(snap engine.Snapshot) {
	data, err := json.Marshal(message{Type: "snapshot", Data: snap})
	if err != nil {
		slog.Error("snapshot marshal failed", "error", err)
		return
	}

	var failed []*websocket.Conn
	b.mu.RLock()
	for conn, mu := range b.clients {
		mu.Lock()
		err := conn.WriteMessage(websocket.TextMessage, data)
		mu.Unlock()
		if err != nil {
			slog.Debug("broadcast failed", "remote", conn.RemoteAddr(), "error", err)
			failed = append(failed, conn)
		}
	}
	b.mu.RUnlock()

	for _, conn := range failed {
		b.Unregister(conn)
	}
}

// send writes one message to a single client.
func (b *Broadcaster) send(conn *websocket.Conn, msg message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	b.mu.RLock()
	mu, ok := b.clients[conn]
	b.mu.RUnlock()
	if !ok {
		return nil
	}
	mu.Lock()
	defer mu.Unlock()
	return conn.WriteMessage(websocket.TextMessage, data)
}
