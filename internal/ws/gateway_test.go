package ws_test

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tavere/legendgame-go/internal/dependencies/clock"
	"github.com/tavere/legendgame-go/internal/gate"
	"github.com/tavere/legendgame-go/internal/model"
	"github.com/tavere/legendgame-go/internal/protocol"
	"github.com/tavere/legendgame-go/internal/registry"
	"github.com/tavere/legendgame-go/internal/services/auth"
	syncsvc "github.com/tavere/legendgame-go/internal/services/sync"
	"github.com/tavere/legendgame-go/internal/storage/memory"
	"github.com/tavere/legendgame-go/internal/testutil"
	"github.com/tavere/legendgame-go/internal/ws"
)

const readTimeout = 3 * time.Second

type testEnv struct {
	server  *httptest.Server
	wsURL   string
	storage *memory.Storage
	auth    *auth.Service
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	logger := testutil.NopLogger()
	store := memory.New()
	clk := clock.New()
	authService := auth.New(store, clk, auth.Config{SigningKey: []byte("test-secret")}, logger)
	syncService := syncsvc.New(store, clk, logger)
	reg := registry.New(clk, logger)
	g := gate.New(authService, store, reg, syncService, clk, gate.DefaultConfig(), logger)

	server := httptest.NewServer(ws.NewGateway(g, logger).Handler())
	t.Cleanup(server.Close)

	return &testEnv{
		server:  server,
		wsURL:   "ws" + strings.TrimPrefix(server.URL, "http"),
		storage: store,
		auth:    authService,
	}
}

func (env *testEnv) registerPlayer(t *testing.T, username string) (model.PlayerID, string) {
	t.Helper()
	record, err := env.auth.Register(context.Background(), username, "password1")
	require.NoError(t, err)
	token, err := env.auth.IssueToken(record.PlayerID)
	require.NoError(t, err)
	return record.PlayerID, token
}

func (env *testEnv) dial(t *testing.T) *websocket.Conn {
	t.Helper()
	conn, resp, err := websocket.DefaultDialer.Dial(env.wsURL, nil)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func writeEvent(t *testing.T, conn *websocket.Conn, eventType string, payload any) {
	t.Helper()
	ev, err := protocol.NewEvent(eventType, payload)
	require.NoError(t, err)
	require.NoError(t, conn.WriteJSON(ev))
}

func readEvent(t *testing.T, conn *websocket.Conn) protocol.Event {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(readTimeout)))
	var ev protocol.Event
	require.NoError(t, conn.ReadJSON(&ev))
	return ev
}

// handshake authenticates a connection and returns the reply
func handshake(t *testing.T, conn *websocket.Conn, token string) protocol.AuthenticatedReply {
	t.Helper()
	writeEvent(t, conn, protocol.EventAuthenticate, protocol.AuthenticateRequest{Token: token})
	ev := readEvent(t, conn)
	require.Equal(t, protocol.EventAuthenticated, ev.Type)
	var reply protocol.AuthenticatedReply
	require.NoError(t, ev.Decode(&reply))
	return reply
}

func TestHandshakeAndSync(t *testing.T) {
	env := newTestEnv(t)
	playerID, token := env.registerPlayer(t, "alice")

	conn := env.dial(t)
	reply := handshake(t, conn, token)
	require.True(t, reply.Success)
	require.NotNil(t, reply.Player)
	assert.Equal(t, "alice", reply.Player.Username)

	record, err := env.storage.GetPlayer(context.Background(), playerID)
	require.NoError(t, err)
	assert.True(t, record.IsOnline)

	// Push a snapshot and wait for the ack before checking persistence
	state := model.GameState(`{"player":{"level":6,"gold":77}}`)
	writeEvent(t, conn, protocol.EventSyncGameState, protocol.SyncRequest{GameState: state})
	ev := readEvent(t, conn)
	require.Equal(t, protocol.EventSyncComplete, ev.Type)
	var ack protocol.AckReply
	require.NoError(t, ev.Decode(&ack))
	require.True(t, ack.Success)

	record, err = env.storage.GetPlayer(context.Background(), playerID)
	require.NoError(t, err)
	assert.JSONEq(t, string(state), string(record.GameState))
}

func TestHandshakeRejectedKeepsConnectionOpen(t *testing.T) {
	env := newTestEnv(t)

	conn := env.dial(t)
	reply := handshake(t, conn, "not-a-token")
	require.False(t, reply.Success)

	// The connection is still usable for another attempt
	_, token := env.registerPlayer(t, "alice")
	reply = handshake(t, conn, token)
	assert.True(t, reply.Success)
}

func TestBattleResultAndOnlineList(t *testing.T) {
	env := newTestEnv(t)
	playerID, token := env.registerPlayer(t, "alice")

	conn := env.dial(t)
	require.True(t, handshake(t, conn, token).Success)

	writeEvent(t, conn, protocol.EventBattleResult, protocol.BattleResult{Victory: true, Damage: 64})
	ev := readEvent(t, conn)
	require.Equal(t, protocol.EventBattleResultProcessed, ev.Type)

	record, err := env.storage.GetPlayer(context.Background(), playerID)
	require.NoError(t, err)
	assert.Equal(t, 1, record.Stats.MonstersKilled)
	assert.Equal(t, 64, record.Stats.HighestDamage)

	writeEvent(t, conn, protocol.EventGetOnlinePlayers, nil)
	ev = readEvent(t, conn)
	require.Equal(t, protocol.EventOnlinePlayers, ev.Type)
	var online protocol.OnlinePlayersReply
	require.NoError(t, ev.Decode(&online))
	require.Len(t, online.Players, 1)
	assert.Equal(t, "alice", online.Players[0].Username)
}

func TestSecondLoginEvictsFirstConnection(t *testing.T) {
	env := newTestEnv(t)
	playerID, token := env.registerPlayer(t, "alice")

	first := env.dial(t)
	require.True(t, handshake(t, first, token).Success)

	second := env.dial(t)
	require.True(t, handshake(t, second, token).Success)

	// The first connection hears why before the server hangs up
	ev := readEvent(t, first)
	require.Equal(t, protocol.EventForceDisconnect, ev.Type)
	var notice protocol.ForceDisconnectNotice
	require.NoError(t, ev.Decode(&notice))
	assert.NotEmpty(t, notice.Message)

	require.NoError(t, first.SetReadDeadline(time.Now().Add(readTimeout)))
	var discarded protocol.Event
	require.Error(t, first.ReadJSON(&discarded))

	// The player stays online through the surviving connection
	require.Eventually(t, func() bool {
		record, err := env.storage.GetPlayer(context.Background(), playerID)
		return err == nil && record.IsOnline
	}, readTimeout, 10*time.Millisecond)

	writeEvent(t, second, protocol.EventGetOnlinePlayers, nil)
	ev = readEvent(t, second)
	require.Equal(t, protocol.EventOnlinePlayers, ev.Type)
}

func TestDisconnectMarksPlayerOffline(t *testing.T) {
	env := newTestEnv(t)
	playerID, token := env.registerPlayer(t, "alice")

	conn := env.dial(t)
	require.True(t, handshake(t, conn, token).Success)
	require.NoError(t, conn.Close())

	require.Eventually(t, func() bool {
		record, err := env.storage.GetPlayer(context.Background(), playerID)
		return err == nil && !record.IsOnline
	}, readTimeout, 10*time.Millisecond)
}
