// Package gomarket is a websocket client for L2 order book streams that push
// full-depth snapshots as JSON bid/ask arrays.
package gomarket

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/alanyoungcy/tradesim/internal/domain"
)

const (
	// writeWait is the time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// pongWait is the time allowed to read the next message or pong.
	pongWait = 60 * time.Second

	// pingPeriod sends pings to the peer at this interval. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// maxMessageSize bounds a single book message.
	maxMessageSize = 1 << 20
)

// BookHandler is called for every decoded book message. errs holds the
// levels that were dropped as malformed.
type BookHandler func(update domain.BookUpdate, errs []error)

// WSClient holds one websocket connection to an L2 stream. It does not
// reconnect; the first read or decode failure ends the connection and is
// reported by Wait.
type WSClient struct {
	wsURL string

	mu     sync.Mutex
	conn   *websocket.Conn
	closed bool

	onBook BookHandler

	done    chan struct{}
	errOnce sync.Once
	err     error
}

// NewWSClient creates a client for wsURL, e.g.
// "wss://ws.gomarket-cpp.goquant.io/ws/l2-orderbook/okx/BTC-USDT-SWAP".
func NewWSClient(wsURL string, onBook BookHandler) *WSClient {
	return &WSClient{
		wsURL:  wsURL,
		onBook: onBook,
		done:   make(chan struct{}),
	}
}

// Connect dials the stream and starts the read and ping loops.
func (w *WSClient) Connect(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return &domain.TransportError{Op: "connect", Err: domain.ErrWSDisconnect}
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: 15 * time.Second,
	}
	conn, _, err := dialer.DialContext(ctx, w.wsURL, nil)
	if err != nil {
		return &domain.TransportError{Op: "connect", Err: err}
	}
	w.conn = conn

	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	go w.readLoop(conn)
	go w.pingLoop(conn)
	return nil
}

// Wait blocks until the connection fails or ctx is cancelled and returns the
// cause.
func (w *WSClient) Wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-w.done:
		return w.err
	}
}

// Close sends a close frame and releases the connection. It is safe to call
// more than once.
func (w *WSClient) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true
	w.fail(&domain.TransportError{Op: "close", Err: domain.ErrWSDisconnect})

	if w.conn == nil {
		return nil
	}
	_ = w.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeWait),
	)
	return w.conn.Close()
}

// fail records the first terminal error and wakes Wait.
func (w *WSClient) fail(err error) {
	w.errOnce.Do(func() {
		w.err = err
		close(w.done)
	})
}

func (w *WSClient) readLoop(conn *websocket.Conn) {
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			w.fail(&domain.TransportError{Op: "read", Err: err})
			return
		}
		receivedAt := time.Now().UTC()
		conn.SetReadDeadline(receivedAt.Add(pongWait))

		var msg L2Message
		if err := json.Unmarshal(raw, &msg); err != nil {
			w.fail(&domain.TransportError{Op: "decode", Err: fmt.Errorf("book message: %w", err)})
			_ = conn.Close()
			return
		}
		if w.onBook != nil {
			w.onBook(ToDomainUpdate(&msg, receivedAt))
		}
	}
}

func (w *WSClient) pingLoop(conn *websocket.Conn) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-w.done:
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				w.fail(&domain.TransportError{Op: "ping", Err: err})
				return
			}
		}
	}
}
