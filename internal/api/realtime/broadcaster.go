// Package realtime pushes blue-force positions to WebSocket clients.
package realtime

import (
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/asafarditi/Battlator/internal/geo"
	"github.com/asafarditi/Battlator/internal/platform/observability"
)

// PositionSource is the mission tracker's read side.
type PositionSource interface {
	CurrentPosition() (geo.GeoPoint, bool)
}

// Broadcaster owns the WebSocket connection set and pushes the current
// position to every client on a fixed period. A failed send drops the client;
// the loop continues.
type Broadcaster struct {
	source PositionSource
	period time.Duration
	log    *logrus.Logger

	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
	done    chan struct{}
	once    sync.Once
}

// NewBroadcaster creates a broadcaster over a position source.
func NewBroadcaster(source PositionSource, period time.Duration, log *logrus.Logger) *Broadcaster {
	return &Broadcaster{
		source:  source,
		period:  period,
		log:     log,
		clients: map[*websocket.Conn]struct{}{},
		done:    make(chan struct{}),
	}
}

// Register adds a connection to the broadcast set.
func (b *Broadcaster) Register(conn *websocket.Conn) {
	b.mu.Lock()
	b.clients[conn] = struct{}{}
	n := len(b.clients)
	b.mu.Unlock()
	observability.GetMetrics().WebSocketConnections.Set(float64(n))
	b.log.WithField("clients", n).Debug("websocket client connected")
}

// Unregister removes and closes a connection. Safe to call twice.
func (b *Broadcaster) Unregister(conn *websocket.Conn) {
	b.mu.Lock()
	if _, ok := b.clients[conn]; ok {
		delete(b.clients, conn)
		conn.Close()
	}
	n := len(b.clients)
	b.mu.Unlock()
	observability.GetMetrics().WebSocketConnections.Set(float64(n))
}

// Start runs the broadcast loop until Stop.
func (b *Broadcaster) Start() {
	ticker := time.NewTicker(b.period)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			b.broadcast()
		case <-b.done:
			return
		}
	}
}

// Stop terminates the broadcast loop.
func (b *Broadcaster) Stop() {
	b.once.Do(func() { close(b.done) })
}

func (b *Broadcaster) broadcast() {
	pos, ok := b.source.CurrentPosition()
	if !ok {
		return
	}
	payload, err := json.Marshal(map[string]float64{"lat": pos.Lat, "lng": pos.Lng})
	if err != nil {
		b.log.WithError(err).Error("marshaling position")
		return
	}

	b.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(b.clients))
	for conn := range b.clients {
		conns = append(conns, conn)
	}
	b.mu.Unlock()

	m := observability.GetMetrics()
	for _, conn := range conns {
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			b.log.WithError(err).Warn("dropping websocket client")
			m.BroadcastErrors.Inc()
			b.Unregister(conn)
			continue
		}
		m.PositionsBroadcast.Inc()
	}
}
