// Package ws is the websocket transport for the game session protocol.
// Each connection gets a read loop that feeds the gate sequentially and a
// write loop draining a buffered send channel, so replies to one connection
// keep their order while connections run concurrently.
package ws

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tavere/legendgame-go/internal/gate"
	"github.com/tavere/legendgame-go/internal/protocol"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to the peer with this period; must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Outbound buffer per connection
	sendBufferSize = 256
)

// Gateway upgrades HTTP requests and hands connections to the gate
type Gateway struct {
	gate     *gate.Gate
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewGateway creates a new websocket Gateway
func NewGateway(g *gate.Gate, logger *slog.Logger) *Gateway {
	return &Gateway{
		gate: g,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The browser client is served from arbitrary hosts in
			// development; token auth is the actual gatekeeper
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger: logger.With(slog.String("component", "ws")),
	}
}

// Handler returns the HTTP handler that accepts websocket connections
func (gw *Gateway) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := gw.upgrader.Upgrade(w, r, nil)
		if err != nil {
			gw.logger.Warn("websocket upgrade failed", slog.String("error", err.Error()))
			return
		}

		p := &peer{
			conn:   conn,
			send:   make(chan protocol.Event, sendBufferSize),
			done:   make(chan struct{}),
			logger: gw.logger.With(slog.String("remote", conn.RemoteAddr().String())),
		}

		gw.gate.HandleConnect(p)
		gw.logger.Info("client connected", slog.String("remote", conn.RemoteAddr().String()))

		go p.writeLoop()
		go gw.readLoop(p)
	})
}

// readLoop pumps inbound events into the gate. Exiting it is the single
// trigger for session teardown, whether the close was natural or forced.
func (gw *Gateway) readLoop(p *peer) {
	ctx := context.Background()
	defer func() {
		p.Close()
		gw.gate.HandleDisconnect(ctx, p)
	}()

	_ = p.conn.SetReadDeadline(time.Now().Add(pongWait))
	p.conn.SetPongHandler(func(string) error {
		return p.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var ev protocol.Event
		if err := p.conn.ReadJSON(&ev); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				p.logger.Warn("read error", slog.String("error", err.Error()))
			}
			return
		}
		// Sequential dispatch: no two events from this connection interleave
		gw.gate.HandleEvent(ctx, p, ev)
	}
}

// peer is one websocket connection. It implements registry.Conn.
type peer struct {
	conn   *websocket.Conn
	send   chan protocol.Event
	done   chan struct{}
	logger *slog.Logger

	closeOnce sync.Once
}

// SendEvent queues an event for the write loop. Never blocks; a full buffer
// drops the event, which only happens to a client too slow to matter.
func (p *peer) SendEvent(ev protocol.Event) {
	select {
	case p.send <- ev:
	case <-p.done:
	default:
		p.logger.Warn("send buffer full, dropping event", slog.String("type", ev.Type))
	}
}

// Close requests termination. Idempotent; safe from any goroutine. The
// write loop flushes queued events (the force-disconnect notice among them)
// before the transport actually drops.
func (p *peer) Close() {
	p.closeOnce.Do(func() {
		close(p.done)
	})
}

// writeLoop drains the send channel and keeps the connection alive with
// pings. It owns closing the underlying connection, which in turn unblocks
// the read loop.
func (p *peer) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		p.Close()
		_ = p.conn.Close()
	}()

	for {
		select {
		case ev := <-p.send:
			_ = p.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := p.conn.WriteJSON(ev); err != nil {
				return
			}
		case <-ticker.C:
			_ = p.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := p.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-p.done:
			p.flush()
			return
		}
	}
}

// flush writes whatever is still queued, then a close frame
func (p *peer) flush() {
	_ = p.conn.SetWriteDeadline(time.Now().Add(writeWait))
	for {
		select {
		case ev := <-p.send:
			if err := p.conn.WriteJSON(ev); err != nil {
				return
			}
		default:
			_ = p.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}
