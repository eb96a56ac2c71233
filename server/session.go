package server

import (
	"menusync/menu"
)

// Session 一个玩家打开的一个界面，对应一条 WebSocket 连接
type Session struct {
	ID       string
	PlayerID string
	HostID   string
	Menu     *menu.Menu

	conn *ClientConn // 网络连接的发送端（写协程）

	actionsThisTick int
	resync          bool // 增量被丢弃后，下个 Tick 改发完整状态
}

// send 入队出站消息；连接已关闭或队列满时返回 false
func (s *Session) send(msg ServerMessage) bool {
	if s.conn == nil {
		return false
	}
	msg.Session = s.ID
	return s.conn.EnqueueJSON(msg)
}

func (s *Session) sendError(err error) {
	s.send(errorMessage(s.ID, ErrorCode(err), err.Error()))
}

func (s *Session) close() {
	if s.conn != nil {
		s.conn.Close()
	}
}

// sessionTransport 把会话的同步数据写到连接上
type sessionTransport struct {
	sess *Session
}

func (t sessionTransport) SendFull(f menu.FullState) error {
	t.sess.send(ServerMessage{Type: TypeFull, Data: f})
	return nil
}

func (t sessionTransport) SendUpdate(u menu.Update) error {
	if !t.sess.send(ServerMessage{Type: TypeUpdate, Data: u}) {
		t.sess.resync = true
	}
	return nil
}

func (t sessionTransport) SendAction(a menu.ActionEnvelope) error {
	t.sess.send(ServerMessage{Type: TypeAction, Data: a})
	return nil
}

// sessionEffects 填充/倒空的效果以事件形式发给客户端播放
type sessionEffects struct {
	sess *Session
}

func (e sessionEffects) Filled(_ *menu.Player, what menu.Key) {
	e.sess.send(ServerMessage{Type: TypeEffect, Data: EffectEvent{Kind: "filled", What: what}})
}

func (e sessionEffects) Emptied(_ *menu.Player, what menu.Key) {
	e.sess.send(ServerMessage{Type: TypeEffect, Data: EffectEvent{Kind: "emptied", What: what}})
}
