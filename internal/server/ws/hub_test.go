package ws

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/tradesim/internal/cache/memory"
	"github.com/alanyoungcy/tradesim/internal/domain"
)

func startHub(t *testing.T) (*memory.SignalBus, *Hub, *websocket.Conn) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	bus := memory.NewSignalBus(0)
	hub := NewHub(bus, "full", nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
	go hub.Run(ctx)

	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWS))
	t.Cleanup(srv.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)
	return bus, hub, conn
}

func readEnvelope(t *testing.T, conn *websocket.Conn) Envelope {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var env Envelope
	require.NoError(t, json.Unmarshal(data, &env))
	return env
}

func TestHubForwardsBusEvents(t *testing.T) {
	bus, _, conn := startHub(t)

	assert.Equal(t, "status", readEnvelope(t, conn).Type)

	// Run subscribes asynchronously, so keep publishing until a frame lands.
	payload := []byte(`{"event":"book_update","mid_price":100.5}`)
	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(10 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				_ = bus.Publish(context.Background(), domain.ChannelBook, payload)
			}
		}
	}()

	env := readEnvelope(t, conn)
	assert.Equal(t, TopicBook, env.Type)
	assert.JSONEq(t, string(payload), string(env.Payload))
}

func TestHubUnsubscribe(t *testing.T) {
	_, hub, conn := startHub(t)
	readEnvelope(t, conn)

	require.NoError(t, conn.WriteJSON(subscribeMsg{Action: "unsubscribe", Topics: []string{TopicBook}}))

	require.Eventually(t, func() bool {
		hub.mu.RLock()
		defer hub.mu.RUnlock()
		for c := range hub.clients {
			return !c.subscribed(TopicBook) && c.subscribed(TopicSimulation)
		}
		return false
	}, time.Second, 10*time.Millisecond)
}

func TestOriginAllowed(t *testing.T) {
	assert.True(t, originAllowed(nil, "http://x"))
	assert.True(t, originAllowed([]string{"http://a"}, ""))
	assert.True(t, originAllowed([]string{"http://a"}, "http://A"))
	assert.False(t, originAllowed([]string{"http://a"}, "http://b"))
}

func TestStatusFrame(t *testing.T) {
	frame, err := statusFrame("api", 90*time.Second)
	require.NoError(t, err)

	var env Envelope
	require.NoError(t, json.Unmarshal(frame, &env))
	assert.Equal(t, "status", env.Type)

	var payload struct {
		Mode   string `json:"mode"`
		Uptime int64  `json:"uptime_seconds"`
	}
	require.NoError(t, json.Unmarshal(env.Payload, &payload))
	assert.Equal(t, "api", payload.Mode)
	assert.Equal(t, int64(90), payload.Uptime)
}
