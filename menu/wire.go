package menu

import "encoding/json"

// SlotInfo 完整同步中的槽位描述（含界面需要的语义标签）
type SlotInfo struct {
	Index      int       `json:"index"`
	Semantic   string    `json:"semantic,omitempty"`
	PlayerSide bool      `json:"player_side"`
	Role       string    `json:"role"`
	Enabled    bool      `json:"enabled"`
	Draggable  bool      `json:"draggable"`
	Stack      ItemStack `json:"stack"`
}

// FullState 会话建立（或重建）时的完整快照
type FullState struct {
	Session               string        `json:"session"`
	StateID               int           `json:"state_id"`
	Slots                 []SlotInfo    `json:"slots"`
	Carried               ItemStack     `json:"carried"`
	Fields                []FieldUpdate `json:"fields,omitempty"`
	ReturnedFromSubScreen bool          `json:"returned_from_sub_screen,omitempty"`
}

// SlotUpdate 单个槽位的变化
type SlotUpdate struct {
	Slot    int       `json:"slot"`
	Stack   ItemStack `json:"stack"`
	Enabled bool      `json:"enabled"`
}

// Update 增量广播：只含变化的字段与槽位
type Update struct {
	Session string        `json:"session"`
	StateID int           `json:"state_id"`
	Fields  []FieldUpdate `json:"fields,omitempty"`
	Slots   []SlotUpdate  `json:"slots,omitempty"`
	Carried *ItemStack    `json:"carried,omitempty"`
}

// ActionEnvelope 双向传输的动作信封；Payload 为 nil 表示无参数
type ActionEnvelope struct {
	Session string          `json:"session"`
	Name    string          `json:"name"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Transport 传输边界，由服务端网络层实现
type Transport interface {
	SendFull(FullState) error
	SendUpdate(Update) error
	SendAction(ActionEnvelope) error
}
