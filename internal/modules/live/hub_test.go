package live

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startServer(t *testing.T, hub *Hub) string {
	t.Helper()
	gin.SetMode(gin.TestMode)
	router := gin.New()
	NewHandler(hub).RegisterRoutes(router.Group("/admin"))

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/admin/ws"
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitForClients(t *testing.T, hub *Hub, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return hub.Count() == n }, 2*time.Second, 10*time.Millisecond)
}

func readEvent(t *testing.T, conn *websocket.Conn) Event {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)

	var ev Event
	require.NoError(t, json.Unmarshal(msg, &ev))
	return ev
}

func TestHub_BroadcastsToAllClients(t *testing.T) {
	hub := NewHub(nil)
	url := startServer(t, hub)

	a := dial(t, url)
	b := dial(t, url)
	waitForClients(t, hub, 2)

	hub.Publish(EventModelUpdated, map[string]string{"name": "TL850"})

	for _, conn := range []*websocket.Conn{a, b} {
		ev := readEvent(t, conn)
		assert.Equal(t, EventModelUpdated, ev.Type)
		assert.Equal(t, map[string]any{"name": "TL850"}, ev.Payload)
	}
}

func TestHub_TopicSubscription(t *testing.T) {
	hub := NewHub(nil)
	url := startServer(t, hub)

	conn := dial(t, url)
	waitForClients(t, hub, 1)
	require.NoError(t, conn.WriteJSON(map[string]string{"type": "subscribe", "topic": "upload"}))

	require.Eventually(t, func() bool {
		hub.mu.RLock()
		defer hub.mu.RUnlock()
		for c := range hub.connections {
			if c.topics["upload"] {
				return true
			}
		}
		return false
	}, 2*time.Second, 10*time.Millisecond)

	hub.Publish(EventCategoryUpdated, nil)
	hub.Publish(EventUploadCreated, map[string]string{"ref": "a.jpg"})

	ev := readEvent(t, conn)
	assert.Equal(t, EventUploadCreated, ev.Type)
}

func TestHub_UnregistersOnDisconnect(t *testing.T) {
	hub := NewHub(nil)
	url := startServer(t, hub)

	conn := dial(t, url)
	waitForClients(t, hub, 1)
	require.NoError(t, conn.Close())

	waitForClients(t, hub, 0)
}

func TestHub_RejectsForeignOrigin(t *testing.T) {
	hub := NewHub([]string{"https://admin.example.com"})
	url := startServer(t, hub)

	header := http.Header{}
	header.Set("Origin", "https://evil.example.com")
	_, resp, err := websocket.DefaultDialer.Dial(url, header)

	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestConnection_Wants(t *testing.T) {
	c := &connection{topics: map[string]bool{}}
	assert.True(t, c.wants(EventModelUpdated))

	c.topics["model"] = true
	assert.True(t, c.wants(EventModelUpdated))
	assert.False(t, c.wants(EventCategoryUpdated))
}
