package menu

import (
	"math"
	"strings"
)

// DefaultMaxStack 物品默认堆叠上限
const DefaultMaxStack = 64

// ItemKey 物品身份：ID 与组件摘要都相同才算同一种物品
type ItemKey struct {
	ID         string `json:"id"`
	Components string `json:"components,omitempty"`
}

// AsKey 转换为通用资源键
func (k ItemKey) AsKey() Key {
	return Key{Kind: KindItem, ID: k.ID, Components: k.Components}
}

// ItemStack 槽位中的一组物品（值类型，复制即拷贝）
type ItemStack struct {
	Key      ItemKey `json:"key"`
	Count    int     `json:"count"`
	MaxStack int     `json:"max_stack,omitempty"` // 0 表示 DefaultMaxStack
}

// EmptyStack 空物品堆
var EmptyStack = ItemStack{}

// NewStack 构造一个普通物品堆
func NewStack(id string, count int) ItemStack {
	return ItemStack{Key: ItemKey{ID: id}, Count: count}
}

func (s ItemStack) IsEmpty() bool {
	return s.Count <= 0 || s.Key.ID == ""
}

// MaxStackSize 物品自身的堆叠上限
func (s ItemStack) MaxStackSize() int {
	if s.MaxStack > 0 {
		return s.MaxStack
	}
	return DefaultMaxStack
}

// WithCount 返回数量替换后的副本，数量非正时返回空堆
func (s ItemStack) WithCount(n int) ItemStack {
	if n <= 0 {
		return EmptyStack
	}
	s.Count = n
	return s
}

// SameItem 物品与组件一致（忽略数量）
func (s ItemStack) SameItem(o ItemStack) bool {
	if s.IsEmpty() || o.IsEmpty() {
		return false
	}
	return s.Key == o.Key
}

// Matches 完全一致（含数量），两个空堆也视为一致
func (s ItemStack) Matches(o ItemStack) bool {
	if s.IsEmpty() && o.IsEmpty() {
		return true
	}
	return s.SameItem(o) && s.Count == o.Count && s.MaxStackSize() == o.MaxStackSize()
}

// genericItemID 包装通用资源时使用的物品 ID
const genericItemID = "generic"

// WrapGeneric 把通用资源包装成物品堆，用于在普通槽位中展示（例如过滤槽）
func WrapGeneric(gs GenericStack) ItemStack {
	if gs.What.IsZero() || gs.Amount <= 0 {
		return EmptyStack
	}
	count := gs.Amount
	if count > math.MaxInt32 {
		count = math.MaxInt32
	}
	return ItemStack{
		Key:      ItemKey{ID: genericItemID, Components: gs.What.String()},
		Count:    int(count),
		MaxStack: math.MaxInt32,
	}
}

// UnwrapGeneric WrapGeneric 的逆过程；普通物品按物品资源返回
func UnwrapGeneric(s ItemStack) (GenericStack, bool) {
	if s.IsEmpty() {
		return GenericStack{}, false
	}
	if s.Key.ID != genericItemID {
		return GenericStack{What: s.Key.AsKey(), Amount: int64(s.Count)}, true
	}
	what, ok := ParseKey(s.Key.Components)
	if !ok {
		return GenericStack{}, false
	}
	return GenericStack{What: what, Amount: int64(s.Count)}, true
}

// KeyKind 资源类别
type KeyKind string

const (
	KindItem  KeyKind = "item"
	KindFluid KeyKind = "fluid"
)

// Key 通用资源键（物品、流体等），可作为 map 键
type Key struct {
	Kind       KeyKind `json:"kind"`
	ID         string  `json:"id"`
	Components string  `json:"components,omitempty"`
}

// AmountPerUnit 一个“单位”对应的数量：流体一桶 1000，物品 1 个
func (k Key) AmountPerUnit() int64 {
	if k.Kind == KindFluid {
		return 1000
	}
	return 1
}

func (k Key) IsZero() bool { return k.ID == "" }

// String 形如 fluid:water 或 item:apple{cmp}
func (k Key) String() string {
	s := string(k.Kind) + ":" + k.ID
	if k.Components != "" {
		s += "{" + k.Components + "}"
	}
	return s
}

// ParseKey 解析 Key.String 的输出
func ParseKey(s string) (Key, bool) {
	kind, rest, ok := strings.Cut(s, ":")
	if !ok || rest == "" {
		return Key{}, false
	}
	k := Key{Kind: KeyKind(kind)}
	if i := strings.IndexByte(rest, '{'); i >= 0 && strings.HasSuffix(rest, "}") {
		k.ID = rest[:i]
		k.Components = rest[i+1 : len(rest)-1]
	} else {
		k.ID = rest
	}
	if k.ID == "" {
		return Key{}, false
	}
	return k, true
}

// ItemKey 对物品类资源返回对应物品身份
func (k Key) ItemKey() (ItemKey, bool) {
	if k.Kind != KindItem {
		return ItemKey{}, false
	}
	return ItemKey{ID: k.ID, Components: k.Components}, true
}

// GenericStack 某种资源及其数量
type GenericStack struct {
	What   Key   `json:"what"`
	Amount int64 `json:"amount"`
}

// Mode 两阶段转移中的操作模式
type Mode int

const (
	Simulate Mode = iota // 探测：只返回上限，不修改
	Modulate             // 提交：真正执行
)

func (m Mode) String() string {
	if m == Simulate {
		return "simulate"
	}
	return "modulate"
}
