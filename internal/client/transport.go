package client

import (
	"context"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tavere/legendgame-go/internal/protocol"
)

// Transport is one live connection to the gameplay socket. Implementations
// must allow one concurrent reader and one concurrent writer.
type Transport interface {
	ReadEvent() (protocol.Event, error)
	WriteEvent(protocol.Event) error
	Close() error
}

// Dialer establishes transports. The session never dials directly so tests
// can substitute an in-process pipe.
type Dialer interface {
	DialContext(ctx context.Context, url string) (Transport, error)
}

const defaultHandshakeTimeout = 10 * time.Second

// WSDialer dials websocket transports
type WSDialer struct {
	dialer *websocket.Dialer
}

// NewWSDialer creates a websocket dialer with default settings
func NewWSDialer() *WSDialer {
	return &WSDialer{
		dialer: &websocket.Dialer{
			HandshakeTimeout: defaultHandshakeTimeout,
		},
	}
}

// DialContext connects to the given websocket URL
func (d *WSDialer) DialContext(ctx context.Context, url string) (Transport, error) {
	conn, resp, err := d.dialer.DialContext(ctx, url, nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, err
	}
	return &wsTransport{conn: conn}, nil
}

type wsTransport struct {
	conn *websocket.Conn
}

func (t *wsTransport) ReadEvent() (protocol.Event, error) {
	var ev protocol.Event
	if err := t.conn.ReadJSON(&ev); err != nil {
		return protocol.Event{}, err
	}
	return ev, nil
}

func (t *wsTransport) WriteEvent(ev protocol.Event) error {
	return t.conn.WriteJSON(ev)
}

func (t *wsTransport) Close() error {
	return t.conn.Close()
}
