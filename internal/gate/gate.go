// Package gate implements the server-side session state machine: it
// authenticates connections, binds them in the registry and routes state
// sync and result events. It is transport-agnostic; the websocket layer
// feeds it events one at a time per connection.
package gate

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/tavere/legendgame-go/internal/dependencies/clock"
	"github.com/tavere/legendgame-go/internal/model"
	"github.com/tavere/legendgame-go/internal/protocol"
	"github.com/tavere/legendgame-go/internal/registry"
	"github.com/tavere/legendgame-go/internal/services/auth"
	syncsvc "github.com/tavere/legendgame-go/internal/services/sync"
	"github.com/tavere/legendgame-go/internal/storage"
)

// State of one connection's session
type State string

const (
	StateUnauthenticated State = "unauthenticated"
	StateAuthenticated   State = "authenticated"
	StateClosed          State = "closed"
)

// onlineListLimit caps the online-players snapshot
const onlineListLimit = 100

// Config holds gate configuration
type Config struct {
	// SyncCooldown is the minimum interval between persisted snapshots per
	// connection. Snapshots inside the window are acknowledged but dropped;
	// the client treats its own cooldown as advisory.
	SyncCooldown time.Duration
}

// DefaultConfig returns default gate configuration
func DefaultConfig() Config {
	return Config{SyncCooldown: 5 * time.Second}
}

type session struct {
	state      State
	playerID   model.PlayerID
	username   string
	lastSyncAt time.Time
}

// Gate drives every connection's session lifecycle
type Gate struct {
	auth     *auth.Service
	store    storage.Store
	registry *registry.Registry
	sync     *syncsvc.Service
	clock    clock.Clock
	cfg      Config
	logger   *slog.Logger

	mu       sync.Mutex
	sessions map[registry.Conn]*session
}

// New creates a new Gate
func New(authService *auth.Service, store storage.Store, reg *registry.Registry, syncService *syncsvc.Service, clk clock.Clock, cfg Config, logger *slog.Logger) *Gate {
	if cfg.SyncCooldown == 0 {
		cfg = DefaultConfig()
	}
	return &Gate{
		auth:     authService,
		store:    store,
		registry: reg,
		sync:     syncService,
		clock:    clk,
		cfg:      cfg,
		logger:   logger.With(slog.String("component", "gate")),
	}
}

// HandleConnect starts an unauthenticated session for a new connection
func (g *Gate) HandleConnect(conn registry.Conn) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.sessions == nil {
		g.sessions = make(map[registry.Conn]*session)
	}
	g.sessions[conn] = &session{state: StateUnauthenticated}
}

// HandleDisconnect runs the single teardown path for both natural
// disconnects and forced evictions: unbind, mark offline, stamp last-logout.
func (g *Gate) HandleDisconnect(ctx context.Context, conn registry.Conn) {
	g.mu.Lock()
	sess, ok := g.sessions[conn]
	if ok {
		delete(g.sessions, conn)
	}
	g.mu.Unlock()
	if !ok {
		return
	}

	if sess.state != StateAuthenticated {
		return
	}

	id, wasBound := g.registry.Unbind(conn)
	if wasBound {
		if err := g.store.SetOnline(ctx, id, false, g.clock.Now()); err != nil {
			g.logger.Error("failed to mark player offline",
				slog.String("username", sess.username),
				slog.String("error", err.Error()))
		}
	}
	sess.state = StateClosed
	g.logger.Info("session closed", slog.String("username", sess.username))
}

// HandleEvent routes one inbound event. The transport guarantees events for
// a single connection arrive here sequentially.
func (g *Gate) HandleEvent(ctx context.Context, conn registry.Conn, ev protocol.Event) {
	g.registry.Touch(conn)

	switch ev.Type {
	case protocol.EventAuthenticate:
		g.handleAuthenticate(ctx, conn, ev)
	case protocol.EventSyncGameState:
		g.handleSync(ctx, conn, ev)
	case protocol.EventBattleResult:
		g.handleBattleResult(ctx, conn, ev)
	case protocol.EventQuestCompleted:
		g.handleStatEvent(ctx, conn, protocol.EventQuestCompletedProcessed, g.sync.ApplyQuestCompleted)
	case protocol.EventItemCrafted:
		g.handleStatEvent(ctx, conn, protocol.EventItemCraftedProcessed, g.sync.ApplyItemCrafted)
	case protocol.EventGetOnlinePlayers:
		g.handleOnlinePlayers(ctx, conn)
	default:
		g.logger.Warn("unknown event", slog.String("type", ev.Type))
	}
}

// SessionState reports the connection's current state (for tests and
// introspection)
func (g *Gate) SessionState(conn registry.Conn) State {
	g.mu.Lock()
	defer g.mu.Unlock()
	if sess, ok := g.sessions[conn]; ok {
		return sess.state
	}
	return StateClosed
}

func (g *Gate) handleAuthenticate(ctx context.Context, conn registry.Conn, ev protocol.Event) {
	var req protocol.AuthenticateRequest
	if err := ev.Decode(&req); err != nil {
		g.replyAuthFailure(conn, "authentication failed")
		return
	}

	id, err := g.auth.ValidateToken(req.Token)
	if err != nil {
		g.replyAuthFailure(conn, "authentication failed")
		return
	}

	record, err := g.store.GetPlayer(ctx, id)
	if err != nil {
		// Unknown player and backend trouble get the same reply; the
		// transport stays open either way
		g.logger.Warn("authenticate rejected",
			slog.String("player_id", string(id)),
			slog.String("error", err.Error()))
		g.replyAuthFailure(conn, "authentication failed")
		return
	}

	g.registry.Bind(conn, id, record.Username)

	now := g.clock.Now()
	if err := g.store.SetOnline(ctx, id, true, now); err != nil {
		g.logger.Error("failed to mark player online",
			slog.String("username", record.Username),
			slog.String("error", err.Error()))
	}

	g.mu.Lock()
	if sess, ok := g.sessions[conn]; ok {
		sess.state = StateAuthenticated
		sess.playerID = id
		sess.username = record.Username
	}
	g.mu.Unlock()

	g.send(conn, protocol.EventAuthenticated, protocol.AuthenticatedReply{
		Success: true,
		Player: &protocol.PlayerView{
			Username:  record.Username,
			GameState: record.GameState,
			Stats:     record.Stats,
		},
	})
	g.logger.Info("session authenticated", slog.String("username", record.Username))
}

func (g *Gate) handleSync(ctx context.Context, conn registry.Conn, ev protocol.Event) {
	sess := g.authenticatedSession(conn)
	if sess == nil {
		g.send(conn, protocol.EventSyncComplete, protocol.AckReply{Success: false, Error: "not authenticated"})
		return
	}

	var req protocol.SyncRequest
	if err := ev.Decode(&req); err != nil {
		g.send(conn, protocol.EventSyncComplete, protocol.AckReply{Success: false, Error: "invalid snapshot"})
		return
	}

	now := g.clock.Now()
	g.mu.Lock()
	withinCooldown := !sess.lastSyncAt.IsZero() && now.Sub(sess.lastSyncAt) < g.cfg.SyncCooldown
	if !withinCooldown {
		sess.lastSyncAt = now
	}
	g.mu.Unlock()

	if withinCooldown {
		// Accepted but not written; the previous snapshot is recent enough
		g.send(conn, protocol.EventSyncComplete, protocol.AckReply{Success: true})
		return
	}

	if err := g.sync.SubmitSnapshot(ctx, sess.playerID, req.GameState); err != nil {
		g.logger.Error("snapshot write failed",
			slog.String("username", sess.username),
			slog.String("error", err.Error()))
		g.send(conn, protocol.EventSyncComplete, protocol.AckReply{Success: false, Error: "sync failed"})
		return
	}
	g.send(conn, protocol.EventSyncComplete, protocol.AckReply{Success: true})
}

func (g *Gate) handleBattleResult(ctx context.Context, conn registry.Conn, ev protocol.Event) {
	sess := g.authenticatedSession(conn)
	if sess == nil {
		return
	}

	var result protocol.BattleResult
	if err := ev.Decode(&result); err != nil {
		g.send(conn, protocol.EventBattleResultProcessed, protocol.AckReply{Success: false, Error: "invalid payload"})
		return
	}

	if err := g.sync.ApplyBattleResult(ctx, sess.playerID, result.Victory, result.Damage); err != nil {
		g.logger.Error("battle result failed",
			slog.String("username", sess.username),
			slog.String("error", err.Error()))
		g.send(conn, protocol.EventBattleResultProcessed, protocol.AckReply{Success: false, Error: "processing failed"})
		return
	}
	g.send(conn, protocol.EventBattleResultProcessed, protocol.AckReply{Success: true})
}

func (g *Gate) handleStatEvent(ctx context.Context, conn registry.Conn, replyType string, apply func(context.Context, model.PlayerID) error) {
	sess := g.authenticatedSession(conn)
	if sess == nil {
		return
	}

	if err := apply(ctx, sess.playerID); err != nil {
		g.logger.Error("stat event failed",
			slog.String("username", sess.username),
			slog.String("error", err.Error()))
		g.send(conn, replyType, protocol.AckReply{Success: false, Error: "processing failed"})
		return
	}
	g.send(conn, replyType, protocol.AckReply{Success: true})
}

func (g *Gate) handleOnlinePlayers(ctx context.Context, conn registry.Conn) {
	players, err := g.store.ListOnline(ctx, onlineListLimit)
	if err != nil {
		g.logger.Error("online players query failed", slog.String("error", err.Error()))
		players = []model.OnlinePlayer{}
	}
	g.send(conn, protocol.EventOnlinePlayers, protocol.OnlinePlayersReply{Players: players})
}

func (g *Gate) authenticatedSession(conn registry.Conn) *session {
	g.mu.Lock()
	defer g.mu.Unlock()
	sess, ok := g.sessions[conn]
	if !ok || sess.state != StateAuthenticated {
		return nil
	}
	return sess
}

func (g *Gate) replyAuthFailure(conn registry.Conn, message string) {
	g.send(conn, protocol.EventAuthenticated, protocol.AuthenticatedReply{
		Success: false,
		Error:   message,
	})
}

func (g *Gate) send(conn registry.Conn, eventType string, payload any) {
	ev, err := protocol.NewEvent(eventType, payload)
	if err != nil {
		g.logger.Error("failed to encode event", slog.String("type", eventType))
		return
	}
	conn.SendEvent(ev)
}
