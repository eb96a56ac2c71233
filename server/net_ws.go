package server

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 5 * time.Second
	pongWait       = 60 * time.Second
	maxMessageSize = 1 << 20 // 1MB
	sendQueueSize  = 64
)

// ClientConn 负责发送（写）数据到客户端的轻量包装
type ClientConn struct {
	ws *websocket.Conn

	mu     sync.Mutex
	send   chan []byte
	closed bool
}

func NewClientConn(ws *websocket.Conn) *ClientConn {
	return &ClientConn{
		ws:   ws,
		send: make(chan []byte, sendQueueSize),
	}
}

// Enqueue 将要发送的消息压入队列（非阻塞，满则丢弃）
func (c *ClientConn) Enqueue(b []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- b:
		return true
	default:
		// 为了实时性，丢弃（防止阻塞 Tick）
		return false
	}
}

// EnqueueJSON 序列化后入队
func (c *ClientConn) EnqueueJSON(v any) bool {
	b, err := json.Marshal(v)
	if err != nil {
		Log.Errorw("failed to encode outbound message", "err", err)
		return false
	}
	return c.Enqueue(b)
}

// Close 关闭发送队列；写协程发完剩余消息后关闭连接
func (c *ClientConn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// writePump 独立协程，负责从 send 队列写出到 WS
func (c *ClientConn) writePump() {
	defer c.ws.Close()
	for msg := range c.send {
		_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.ws.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
	_ = c.ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
}

// readPump 读取客户端消息并投递到世界收件箱
func (c *ClientConn) readPump(w *World, sessionID string) {
	defer c.ws.Close()
	// 读泵退出时，通知世界在 Tick 线程中关闭该会话
	defer w.RequestLeave(sessionID)
	c.ws.SetReadLimit(maxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error { return c.ws.SetReadDeadline(time.Now().Add(pongWait)) })

	for {
		_, payload, err := c.ws.ReadMessage()
		if err != nil {
			return
		}
		var msg ClientMessage
		if err := json.Unmarshal(payload, &msg); err != nil || msg.Type == "" {
			c.EnqueueJSON(errorMessage(sessionID, ErrCodeBadRequest, "invalid message"))
			continue
		}
		w.Submit(sessionID, msg)
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// 演示环境：允许所有来源（生产环境需严格限制）
		return true
	},
}

// HandleWS 使用全局世界处理 WebSocket 接入
func HandleWS(w http.ResponseWriter, r *http.Request) {
	GetWorld().HandleWS(w, r)
}

// HandleWS WebSocket 接入：?player=alice&host=drive-1
func (wd *World) HandleWS(w http.ResponseWriter, r *http.Request) {
	playerID := r.URL.Query().Get("player")
	hostID := r.URL.Query().Get("host")
	if playerID == "" || hostID == "" {
		http.Error(w, "missing player or host query", http.StatusBadRequest)
		return
	}

	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		Log.Warnw("websocket upgrade failed", "err", err)
		return
	}
	client := NewClientConn(ws)
	go client.writePump()

	sess, err := wd.Join(r.Context(), playerID, hostID, client)
	if err != nil {
		client.EnqueueJSON(errorMessage("", ErrorCode(err), err.Error()))
		client.Close()
		return
	}
	go client.readPump(wd, sess.ID)
}
