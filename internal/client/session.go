// Package client implements the connection session: it owns the socket to
// the game server, authenticates with a stored token, retries dropped
// connections with exponential backoff, and pushes game-state snapshots on
// a periodic schedule. An empty server URL switches the session into
// offline mode, where the same API operates on purely local state.
package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/tavere/legendgame-go/internal/dependencies/clock"
	"github.com/tavere/legendgame-go/internal/model"
	"github.com/tavere/legendgame-go/internal/protocol"
)

// SessionState identifies where the session is in its lifecycle
type SessionState int

// Session lifecycle states
const (
	StateDisconnected SessionState = iota
	StateConnecting
	StateConnected
	StateAuthenticating
	StateAuthenticated
	// StateGivenUp is terminal: the reconnect budget is spent and only a
	// fresh session can connect again
	StateGivenUp
)

// String returns a human-readable state name
func (s SessionState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateAuthenticating:
		return "authenticating"
	case StateAuthenticated:
		return "authenticated"
	case StateGivenUp:
		return "given_up"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// Defaults for session tuning knobs
const (
	DefaultReconnectBase        = 1 * time.Second
	DefaultMaxReconnectAttempts = 5
	DefaultSyncInterval         = 30 * time.Second
	DefaultSyncCooldown         = 5 * time.Second
)

// Errors
var (
	ErrNoToken        = errors.New("no session token available")
	ErrNotConnected   = errors.New("session is not authenticated")
	ErrAlreadyStarted = errors.New("session already started")
)

// Config holds session configuration
type Config struct {
	// URL is the websocket endpoint. Empty enables offline mode.
	URL string
	// Dialer establishes transports (optional; defaults to a websocket dialer)
	Dialer Dialer
	// Tokens persists the session token (optional; defaults to in-memory)
	Tokens TokenStore
	// Clock drives all timers (optional; defaults to the wall clock)
	Clock clock.Clock
	// Logger (optional)
	Logger *slog.Logger

	// ReconnectBase is the first retry delay; each further attempt doubles it
	ReconnectBase time.Duration
	// MaxReconnectAttempts bounds consecutive failed attempts before giving up
	MaxReconnectAttempts int
	// SyncInterval is how often pending snapshots are pushed
	SyncInterval time.Duration
	// SyncCooldown is the minimum spacing between submitted snapshots
	SyncCooldown time.Duration
}

// Handler receives every event the session emits: server events passed
// through plus the local lifecycle events
type Handler func(protocol.Event)

type subscription struct {
	id int
	fn Handler
}

type disposition int

const (
	dispStop disposition = iota
	dispReconnect
)

// Session is the client connection manager
type Session struct {
	url           string
	dialer        Dialer
	tokens        TokenStore
	clock         clock.Clock
	logger        *slog.Logger
	reconnectBase time.Duration
	maxAttempts   int
	syncInterval  time.Duration
	syncCooldown  time.Duration
	offline       bool

	mu          sync.Mutex
	state       SessionState
	token       string
	tr          Transport
	pending     model.GameState
	lastSyncAt  time.Time
	subscribers []subscription
	nextSubID   int
	started     bool
	closing     chan struct{}
	closeOnce   sync.Once
	done        chan struct{}
	authC       chan struct{}

	// Local state, only used in offline mode
	offlineState model.GameState
	offlineStats model.PlayerStats

	writeMu sync.Mutex
}

// NewSession creates a session from the given config
func NewSession(cfg Config) *Session {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	dialer := cfg.Dialer
	if dialer == nil {
		dialer = NewWSDialer()
	}
	tokens := cfg.Tokens
	if tokens == nil {
		tokens = &MemoryTokenStore{}
	}
	clk := cfg.Clock
	if clk == nil {
		clk = clock.New()
	}
	base := cfg.ReconnectBase
	if base == 0 {
		base = DefaultReconnectBase
	}
	maxAttempts := cfg.MaxReconnectAttempts
	if maxAttempts == 0 {
		maxAttempts = DefaultMaxReconnectAttempts
	}
	interval := cfg.SyncInterval
	if interval == 0 {
		interval = DefaultSyncInterval
	}
	cooldown := cfg.SyncCooldown
	if cooldown == 0 {
		cooldown = DefaultSyncCooldown
	}

	return &Session{
		url:           cfg.URL,
		dialer:        dialer,
		tokens:        tokens,
		clock:         clk,
		logger:        logger.With(slog.String("component", "session")),
		reconnectBase: base,
		maxAttempts:   maxAttempts,
		syncInterval:  interval,
		syncCooldown:  cooldown,
		offline:       cfg.URL == "",
		state:         StateDisconnected,
		closing:       make(chan struct{}),
		done:          make(chan struct{}),
		authC:         make(chan struct{}, 1),
	}
}

// Subscribe registers a handler for all session events. The returned
// function removes it. A panicking handler is logged and skipped; it never
// takes down the session or starves other subscribers.
func (s *Session) Subscribe(fn Handler) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextSubID
	s.nextSubID++
	s.subscribers = append(s.subscribers, subscription{id: id, fn: fn})
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, sub := range s.subscribers {
			if sub.id == id {
				s.subscribers = append(s.subscribers[:i], s.subscribers[i+1:]...)
				return
			}
		}
	}
}

// On registers a handler for a single event type. The returned function
// removes it.
func (s *Session) On(eventType string, fn Handler) func() {
	return s.Subscribe(func(ev protocol.Event) {
		if ev.Type == eventType {
			fn(ev)
		}
	})
}

// SetToken sets the token used for the next handshake and persists it.
// A session that connected without a token picks it up and authenticates.
func (s *Session) SetToken(token string) error {
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
	select {
	case s.authC <- struct{}{}:
	default:
	}
	return s.tokens.Save(token)
}

// State returns the current lifecycle state
func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Connect starts the session. In offline mode it succeeds immediately;
// otherwise it launches the connection manager, which keeps the session
// alive until Close, a spent reconnect budget, or a rejected token.
func (s *Session) Connect(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return ErrAlreadyStarted
	}
	s.started = true

	if s.offline {
		s.state = StateAuthenticated
		s.offlineState = model.InitialGameState()
		s.mu.Unlock()
		close(s.done)

		s.emit(protocol.Event{Type: protocol.EventConnected})
		authEv, _ := protocol.NewEvent(protocol.EventAuthenticated, protocol.AuthenticatedReply{Success: true})
		s.emit(authEv)
		return nil
	}

	// Connect regardless of whether a token is stored; a token-less session
	// sits in Connected until SetToken starts the handshake
	if s.token == "" {
		tok, err := s.tokens.Load()
		if err != nil {
			s.started = false
			s.mu.Unlock()
			return err
		}
		s.token = tok
	}
	s.mu.Unlock()

	go s.run(ctx)
	return nil
}

// Close stops the session and waits for the connection manager to finish.
// Safe to call more than once.
func (s *Session) Close() {
	s.closeOnce.Do(func() { close(s.closing) })
	s.mu.Lock()
	wait := s.started && !s.offline
	s.mu.Unlock()
	if wait {
		<-s.done
	}
}

func (s *Session) run(ctx context.Context) {
	defer close(s.done)
	defer s.setState(StateDisconnected)

	attempt := 0
	for {
		s.setState(StateConnecting)
		tr, err := s.dialer.DialContext(ctx, s.url)
		if err != nil {
			s.logger.Warn("dial failed", slog.Any("error", err))
			if !s.backoff(ctx, &attempt) {
				return
			}
			continue
		}

		attempt = 0
		s.setTransport(tr)
		s.setState(StateConnected)
		s.emit(protocol.Event{Type: protocol.EventConnected})

		disp := s.serve(ctx, tr)
		s.setTransport(nil)
		_ = tr.Close()

		if disp == dispStop {
			return
		}

		s.setState(StateDisconnected)
		s.emit(protocol.Event{Type: protocol.EventDisconnected})
		if !s.backoff(ctx, &attempt) {
			return
		}
	}
}

// backoff waits out the retry delay for the next attempt. It returns false
// when the budget is spent or the session is shutting down.
func (s *Session) backoff(ctx context.Context, attempt *int) bool {
	*attempt++
	if *attempt > s.maxAttempts {
		s.setState(StateGivenUp)
		s.logger.Warn("reconnect budget spent", slog.Int("attempts", s.maxAttempts))
		s.emit(protocol.Event{Type: protocol.EventGiveUp})
		return false
	}

	delay := s.reconnectBase << (*attempt - 1)
	s.logger.Info("reconnecting",
		slog.Int("attempt", *attempt),
		slog.Duration("delay", delay),
	)

	timer := s.clock.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-s.closing:
		return false
	case <-timer.C():
		return true
	}
}

// sendHandshake writes the authenticate request
func (s *Session) sendHandshake(tr Transport, token string) error {
	authEv, err := protocol.NewEvent(protocol.EventAuthenticate, protocol.AuthenticateRequest{Token: token})
	if err != nil {
		return err
	}
	if err := s.writeEvent(tr, authEv); err != nil {
		return err
	}
	s.setState(StateAuthenticating)
	return nil
}

// serve runs one connection from handshake to teardown
func (s *Session) serve(ctx context.Context, tr Transport) disposition {
	if token := s.currentToken(); token != "" {
		if err := s.sendHandshake(tr, token); err != nil {
			return dispReconnect
		}
	}

	events := make(chan protocol.Event)
	readErr := make(chan error, 1)
	go func() {
		for {
			ev, err := tr.ReadEvent()
			if err != nil {
				readErr <- err
				return
			}
			select {
			case events <- ev:
			case <-ctx.Done():
				return
			case <-s.closing:
				return
			}
		}
	}()

	var syncTimer clock.Timer
	var syncC <-chan time.Time
	defer func() {
		if syncTimer != nil {
			syncTimer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return dispStop
		case <-s.closing:
			return dispStop
		case err := <-readErr:
			s.logger.Warn("connection lost", slog.Any("error", err))
			return dispReconnect
		case <-syncC:
			s.flushPending(tr)
			syncTimer = s.clock.NewTimer(s.syncInterval)
			syncC = syncTimer.C()
		case <-s.authC:
			if token := s.currentToken(); token != "" && s.State() == StateConnected {
				if err := s.sendHandshake(tr, token); err != nil {
					return dispReconnect
				}
			}
		case ev := <-events:
			switch ev.Type {
			case protocol.EventAuthenticated:
				var reply protocol.AuthenticatedReply
				if err := ev.Decode(&reply); err != nil || !reply.Success {
					// The server rejected the token; it is useless now, so
					// drop it rather than retrying a doomed handshake.
					if err := s.tokens.Clear(); err != nil {
						s.logger.Warn("failed to clear token", slog.Any("error", err))
					}
					s.mu.Lock()
					s.token = ""
					s.mu.Unlock()
					s.emit(protocol.Event{Type: protocol.EventAuthError, Payload: ev.Payload})
					return dispStop
				}
				s.setState(StateAuthenticated)
				s.emit(ev)
				syncTimer = s.clock.NewTimer(s.syncInterval)
				syncC = syncTimer.C()
			case protocol.EventForceDisconnect:
				// Another login superseded this session. Reconnecting would
				// just evict the new one, so stop here.
				s.emit(ev)
				return dispStop
			default:
				s.emit(ev)
			}
		}
	}
}

// Sync submits a game-state snapshot. Inside the cooldown window the
// snapshot is held as pending and pushed by the periodic timer instead.
func (s *Session) Sync(state model.GameState) error {
	if s.offline {
		s.mu.Lock()
		s.offlineState = state
		s.mu.Unlock()
		ev, _ := protocol.NewEvent(protocol.EventSyncComplete, protocol.AckReply{Success: true})
		s.emit(ev)
		return nil
	}

	s.mu.Lock()
	s.pending = state
	tr := s.tr
	ready := s.state == StateAuthenticated && s.clock.Now().Sub(s.lastSyncAt) >= s.syncCooldown
	s.mu.Unlock()

	if tr == nil {
		return ErrNotConnected
	}
	if ready {
		s.flushPending(tr)
	}
	return nil
}

// flushPending pushes the held snapshot if one exists and the cooldown allows
func (s *Session) flushPending(tr Transport) {
	s.mu.Lock()
	if s.state != StateAuthenticated || s.pending == nil {
		s.mu.Unlock()
		return
	}
	now := s.clock.Now()
	if now.Sub(s.lastSyncAt) < s.syncCooldown {
		s.mu.Unlock()
		return
	}
	state := s.pending
	s.pending = nil
	prevSyncAt := s.lastSyncAt
	s.lastSyncAt = now
	s.mu.Unlock()

	ev, err := protocol.NewEvent(protocol.EventSyncGameState, protocol.SyncRequest{GameState: state})
	if err != nil {
		return
	}
	if err := s.writeEvent(tr, ev); err != nil {
		s.logger.Warn("sync write failed", slog.Any("error", err))
		// Put the snapshot back so the next flush retries it, unless a
		// newer one arrived meanwhile
		s.mu.Lock()
		if s.pending == nil {
			s.pending = state
			s.lastSyncAt = prevSyncAt
		}
		s.mu.Unlock()
	}
}

// ReportBattleResult records a battle outcome
func (s *Session) ReportBattleResult(victory bool, damage int) error {
	if s.offline {
		s.mu.Lock()
		delta := model.StatsDelta{Damage: damage}
		if victory {
			delta.MonstersKilled = 1
		}
		s.offlineStats.Apply(delta)
		s.mu.Unlock()
		ev, _ := protocol.NewEvent(protocol.EventBattleResultProcessed, protocol.AckReply{Success: true})
		s.emit(ev)
		return nil
	}
	ev, err := protocol.NewEvent(protocol.EventBattleResult, protocol.BattleResult{Victory: victory, Damage: damage})
	if err != nil {
		return err
	}
	return s.send(ev)
}

// ReportQuestCompleted records a finished quest
func (s *Session) ReportQuestCompleted() error {
	if s.offline {
		s.mu.Lock()
		s.offlineStats.Apply(model.StatsDelta{QuestsCompleted: 1})
		s.mu.Unlock()
		ev, _ := protocol.NewEvent(protocol.EventQuestCompletedProcessed, protocol.AckReply{Success: true})
		s.emit(ev)
		return nil
	}
	return s.send(protocol.Event{Type: protocol.EventQuestCompleted})
}

// ReportItemCrafted records a crafted item
func (s *Session) ReportItemCrafted() error {
	if s.offline {
		s.mu.Lock()
		s.offlineStats.Apply(model.StatsDelta{ItemsCrafted: 1})
		s.mu.Unlock()
		ev, _ := protocol.NewEvent(protocol.EventItemCraftedProcessed, protocol.AckReply{Success: true})
		s.emit(ev)
		return nil
	}
	return s.send(protocol.Event{Type: protocol.EventItemCrafted})
}

// RequestOnlinePlayers asks for the current online list; the reply arrives
// as an event to subscribers
func (s *Session) RequestOnlinePlayers() error {
	if s.offline {
		ev, _ := protocol.NewEvent(protocol.EventOnlinePlayers, protocol.OnlinePlayersReply{Players: []model.OnlinePlayer{}})
		s.emit(ev)
		return nil
	}
	return s.send(protocol.Event{Type: protocol.EventGetOnlinePlayers})
}

// OfflineSnapshot returns the locally held state and stats. Meaningful in
// offline mode only.
func (s *Session) OfflineSnapshot() (model.GameState, model.PlayerStats) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.offlineState, s.offlineStats
}

func (s *Session) send(ev protocol.Event) error {
	s.mu.Lock()
	tr := s.tr
	authed := s.state == StateAuthenticated
	s.mu.Unlock()
	if tr == nil || !authed {
		return ErrNotConnected
	}
	return s.writeEvent(tr, ev)
}

func (s *Session) writeEvent(tr Transport, ev protocol.Event) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return tr.WriteEvent(ev)
}

func (s *Session) currentToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

func (s *Session) setTransport(tr Transport) {
	s.mu.Lock()
	s.tr = tr
	s.mu.Unlock()
}

// setState transitions to the given state. GivenUp is terminal; nothing
// moves the session out of it.
func (s *Session) setState(state SessionState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateGivenUp {
		return
	}
	s.state = state
}

func (s *Session) emit(ev protocol.Event) {
	s.mu.Lock()
	subs := make([]subscription, len(s.subscribers))
	copy(subs, s.subscribers)
	s.mu.Unlock()

	for _, sub := range subs {
		s.dispatch(sub, ev)
	}
}

func (s *Session) dispatch(sub subscription, ev protocol.Event) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("subscriber panicked",
				slog.Int("subscriber", sub.id),
				slog.String("event", ev.Type),
				slog.Any("panic", r),
			)
		}
	}()
	sub.fn(ev)
}
