package server

import (
	"encoding/json"
	"errors"

	"menusync/menu"
)

// 入站消息类型
const (
	TypeAction          = "action"           // 客户端动作
	TypeClick           = "click"            // 基础点击
	TypeInventoryAction = "inventory_action" // 结构化库存操作
	TypeSwap            = "swap"             // 交换两个槽位
	TypeSetFilter       = "set_filter"       // 用客户端物品设置过滤槽
	TypeResync          = "resync"           // 子界面返回后请求完整状态
	TypeClose           = "close"
)

// 出站消息类型
const (
	TypeFull   = "full"
	TypeUpdate = "update"
	TypeEffect = "effect"
	TypeError  = "error"
)

// 错误码
const (
	ErrCodeBadRequest     = "E_PROTO_BAD_REQUEST"
	ErrCodeUnknownAction  = "E_UNKNOWN_ACTION"
	ErrCodeSessionInvalid = "E_SESSION_INVALID"
	ErrCodeNotFound       = "E_NOT_FOUND"
	ErrCodeRateLimit      = "E_RATE_LIMIT"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrBadRequest = errors.New("bad request")
)

// ClientMessage 入站消息（WebSocket 文本帧）
// 示例：{"type":"click","slot":3,"button":0,"click":"pickup"}
type ClientMessage struct {
	Type    string          `json:"type"`
	Session string          `json:"session,omitempty"`
	Name    string          `json:"name,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Slot    int             `json:"slot"`
	Button  int             `json:"button"`
	Click   string          `json:"click,omitempty"`
	Action  string          `json:"action,omitempty"`
	ID      int64           `json:"id,omitempty"`
	A       int             `json:"a"`
	B       int             `json:"b"`
	Stack   *menu.ItemStack `json:"stack,omitempty"`
}

// ServerMessage 出站消息；Data 随 Type 变化
type ServerMessage struct {
	Type    string `json:"type"`
	Session string `json:"session,omitempty"`
	Data    any    `json:"data,omitempty"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

// EffectEvent 一次性效果（填充/倒空音效）
type EffectEvent struct {
	Kind string   `json:"kind"`
	What menu.Key `json:"what"`
}

// ErrorCode 把处理错误映射为线上的错误码
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, menu.ErrUnknownAction):
		return ErrCodeUnknownAction
	case errors.Is(err, menu.ErrSessionInvalid):
		return ErrCodeSessionInvalid
	case errors.Is(err, ErrNotFound):
		return ErrCodeNotFound
	default:
		return ErrCodeBadRequest
	}
}

func errorMessage(session, code, msg string) ServerMessage {
	return ServerMessage{Type: TypeError, Session: session, Code: code, Message: msg}
}
