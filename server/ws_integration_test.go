package server

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

	"menusync/menu"
)

func startTestServer(t *testing.T) (*World, string) {
	t.Helper()
	cfg := DefaultConfig()
	cfg.TickRateHz = 100
	w := NewWorld(cfg, nil)
	w.Start()
	srv := httptest.NewServer(http.HandlerFunc(w.HandleWS))
	t.Cleanup(func() {
		srv.Close()
		w.Stop()
	})
	return w, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func writeClientMessage(t *testing.T, conn *websocket.Conn, msg ClientMessage) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(msg))
}

// waitFor 读取消息直到 match 返回 true
func waitFor(t *testing.T, conn *websocket.Conn, match func(wireMessage) bool) wireMessage {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for {
		require.NoError(t, conn.SetReadDeadline(deadline))
		var m wireMessage
		require.NoError(t, conn.ReadJSON(&m))
		if match(m) {
			return m
		}
	}
}

func TestWS_OpenClickAndUpdate(t *testing.T) {
	_, base := startTestServer(t)
	conn := dial(t, base+"/ws?player=alice&host=drive-1")

	first := waitFor(t, conn, func(m wireMessage) bool { return true })
	require.Equal(t, TypeFull, first.Type)
	var full menu.FullState
	require.NoError(t, json.Unmarshal(first.Data, &full))
	assert.Equal(t, first.Session, full.Session)
	assert.Equal(t, "tank", full.Slots[0].Stack.Key.ID)

	writeClientMessage(t, conn, ClientMessage{Type: TypeClick, Slot: 0, Click: "pickup"})
	upd := waitFor(t, conn, func(m wireMessage) bool {
		if m.Type != TypeUpdate {
			return false
		}
		var u menu.Update
		return json.Unmarshal(m.Data, &u) == nil && u.Carried != nil
	})
	var u menu.Update
	require.NoError(t, json.Unmarshal(upd.Data, &u))
	assert.Equal(t, "tank", u.Carried.Key.ID)
	assert.Greater(t, u.StateID, full.StateID)
}

func TestWS_InvalidMessageGetsError(t *testing.T) {
	_, base := startTestServer(t)
	conn := dial(t, base+"/ws?player=alice&host=drive-1")
	waitFor(t, conn, func(m wireMessage) bool { return m.Type == TypeFull })

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{not json")))
	m := waitFor(t, conn, func(m wireMessage) bool { return m.Type == TypeError })
	assert.Equal(t, ErrCodeBadRequest, m.Code)

	writeClientMessage(t, conn, ClientMessage{Type: TypeAction, Name: "Missing"})
	m = waitFor(t, conn, func(m wireMessage) bool { return m.Type == TypeError })
	assert.Equal(t, ErrCodeUnknownAction, m.Code)
}

func TestWS_UnknownHostIsRejected(t *testing.T) {
	_, base := startTestServer(t)
	conn := dial(t, base+"/ws?player=alice&host=missing")

	m := waitFor(t, conn, func(wireMessage) bool { return true })
	assert.Equal(t, TypeError, m.Type)
	assert.Equal(t, ErrCodeNotFound, m.Code)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "server closes after the error: %v", err)
}

func TestWS_MissingQueryIsBadRequest(t *testing.T) {
	_, base := startTestServer(t)
	_, resp, err := websocket.DefaultDialer.Dial(base+"/ws?player=alice", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestWS_DisconnectClosesSession(t *testing.T) {
	w, base := startTestServer(t)
	conn := dial(t, base+"/ws?player=alice&host=drive-1")
	waitFor(t, conn, func(m wireMessage) bool { return m.Type == TypeFull })
	require.Equal(t, 1, w.SessionCount())
	require.NoError(t, conn.Close())

	assert.Eventually(t, func() bool { return w.SessionCount() == 0 }, 3*time.Second, 20*time.Millisecond)
	assert.Equal(t, int64(1), w.Metrics().Snapshot()["sessions_opened"])
}
