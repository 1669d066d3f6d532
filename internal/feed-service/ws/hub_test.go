package ws

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dialHub(t *testing.T, hub *Hub) (*websocket.Conn, func()) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWS))
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	return conn, func() {
		conn.Close()
		srv.Close()
	}
}

func TestHubBroadcastReachesSubscribers(t *testing.T) {
	hub := NewHub(func(*http.Request) bool { return true })

	conn, done := dialHub(t, hub)
	defer done()

	require.NoError(t, conn.WriteJSON(ClientMsg{Type: "subscribe"}))

	// aguarda a inscrição ser registrada pelo loop de leitura
	require.Eventually(t, func() bool {
		hub.mu.RLock()
		defer hub.mu.RUnlock()
		return len(hub.subs) == 1
	}, time.Second, 10*time.Millisecond)

	hub.Broadcast(DrawUpdate{CorrelationID: 42, DrawnNumbers: []int{1, 2, 3, 4, 5, 6}})

	conn.SetReadDeadline(time.Now().Add(time.Second))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)
	// no wire os números são um array JSON numérico, não base64
	assert.Contains(t, string(raw), `"drawn_numbers":[1,2,3,4,5,6]`)

	var upd DrawUpdate
	require.NoError(t, json.Unmarshal(raw, &upd))
	assert.Equal(t, int64(42), upd.CorrelationID)
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6}, upd.DrawnNumbers)
}

func TestHubPingPong(t *testing.T) {
	hub := NewHub(func(*http.Request) bool { return true })

	conn, done := dialHub(t, hub)
	defer done()

	require.NoError(t, conn.WriteJSON(ClientMsg{Type: "ping"}))

	conn.SetReadDeadline(time.Now().Add(time.Second))
	var reply map[string]string
	require.NoError(t, conn.ReadJSON(&reply))
	assert.Equal(t, "pong", reply["type"])
}

func TestHubUnsubscribeStopsDelivery(t *testing.T) {
	hub := NewHub(func(*http.Request) bool { return true })

	conn, done := dialHub(t, hub)
	defer done()

	require.NoError(t, conn.WriteJSON(ClientMsg{Type: "subscribe"}))
	require.Eventually(t, func() bool {
		hub.mu.RLock()
		defer hub.mu.RUnlock()
		return len(hub.subs) == 1
	}, time.Second, 10*time.Millisecond)

	require.NoError(t, conn.WriteJSON(ClientMsg{Type: "unsubscribe"}))
	require.Eventually(t, func() bool {
		hub.mu.RLock()
		defer hub.mu.RUnlock()
		return len(hub.subs) == 0
	}, time.Second, 10*time.Millisecond)

	hub.Broadcast(DrawUpdate{CorrelationID: 7})

	conn.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	var upd DrawUpdate
	assert.Error(t, conn.ReadJSON(&upd), "cliente desinscrito não recebe broadcast")
}
