// Package registry tracks which player is bound to which live connection.
// It is the only holder of the connection<->player maps; all access goes
// through its methods.
package registry

import (
	"log/slog"
	"sync"
	"time"

	"github.com/tavere/legendgame-go/internal/dependencies/clock"
	"github.com/tavere/legendgame-go/internal/model"
	"github.com/tavere/legendgame-go/internal/protocol"
)

// Conn is the registry's view of a live connection. The websocket peer
// implements it; tests substitute fakes.
type Conn interface {
	// SendEvent queues an event for delivery. Must not block.
	SendEvent(ev protocol.Event)
	// Close terminates the transport. Idempotent.
	Close()
}

type binding struct {
	conn     Conn
	playerID model.PlayerID
	username string
	lastSeen time.Time
}

// Registry is the process-wide online-player map. Invariant: at most one
// binding per player id at any time.
type Registry struct {
	mu       sync.Mutex
	byConn   map[Conn]*binding
	byPlayer map[model.PlayerID]*binding

	clock  clock.Clock
	logger *slog.Logger
}

// New creates an empty Registry
func New(clk clock.Clock, logger *slog.Logger) *Registry {
	return &Registry{
		byConn:   make(map[Conn]*binding),
		byPlayer: make(map[model.PlayerID]*binding),
		clock:    clk,
		logger:   logger.With(slog.String("component", "registry")),
	}
}

// Bind associates a connection with a player. If the player is already bound
// elsewhere, the prior connection is notified and terminated before the new
// binding is inserted; its teardown runs through the normal disconnect path.
func (r *Registry) Bind(conn Conn, id model.PlayerID, username string) {
	r.mu.Lock()
	evicted := r.byPlayer[id]
	if evicted != nil {
		delete(r.byConn, evicted.conn)
	}
	b := &binding{conn: conn, playerID: id, username: username, lastSeen: r.clock.Now()}
	r.byConn[conn] = b
	r.byPlayer[id] = b
	r.mu.Unlock()

	// Notify and close outside the lock: Close may re-enter Unbind
	if evicted != nil && evicted.conn != conn {
		r.logger.Info("evicting superseded session",
			slog.String("username", username))
		if ev, err := protocol.NewEvent(protocol.EventForceDisconnect, protocol.ForceDisconnectNotice{
			Message: "account signed in from another connection",
		}); err == nil {
			evicted.conn.SendEvent(ev)
		}
		evicted.conn.Close()
	}
}

// Unbind removes a connection's binding, if any. Idempotent; returns the
// player id that was bound.
func (r *Registry) Unbind(conn Conn) (model.PlayerID, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.byConn[conn]
	if !ok {
		return "", false
	}
	delete(r.byConn, conn)
	// Only clear the player entry if it still points at this connection;
	// an eviction may have rebound the player already
	if current := r.byPlayer[b.playerID]; current == b {
		delete(r.byPlayer, b.playerID)
	}
	return b.playerID, true
}

// Touch stamps activity on a connection's binding
func (r *Registry) Touch(conn Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.byConn[conn]; ok {
		b.lastSeen = r.clock.Now()
	}
}

// Bound reports whether the player currently has a live binding
func (r *Registry) Bound(id model.PlayerID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.byPlayer[id]
	return ok
}

// Count returns the number of live bindings
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byConn)
}

// PruneStale force-closes bindings idle longer than maxIdle. It is the
// safety net for lost disconnect events; the closes run the shared teardown
// path just like a natural disconnect.
func (r *Registry) PruneStale(maxIdle time.Duration) int {
	cutoff := r.clock.Now().Add(-maxIdle)

	r.mu.Lock()
	var stale []*binding
	for _, b := range r.byConn {
		if b.lastSeen.Before(cutoff) {
			stale = append(stale, b)
		}
	}
	r.mu.Unlock()

	for _, b := range stale {
		r.logger.Warn("pruning stale session",
			slog.String("username", b.username),
			slog.Time("last_seen", b.lastSeen))
		b.conn.Close()
	}
	return len(stale)
}
