package storage

import (
	"math"
	"slices"
	"strings"
	"sync"

	"menusync/menu"
)

// Network 内存中的资源网络：按资源键汇总存量，总量受 capacity 限制
// 会被多个会话共享，内部加锁
type Network struct {
	mu       sync.Mutex
	capacity int64
	total    int64
	stored   map[menu.Key]int64
}

// NewNetwork capacity<=0 表示不限容量
func NewNetwork(capacity int64) *Network {
	if capacity <= 0 {
		capacity = math.MaxInt64
	}
	return &Network{capacity: capacity, stored: make(map[menu.Key]int64)}
}

// Insert 存入资源，返回实际（或可）存入的数量
func (n *Network) Insert(what menu.Key, amount int64, mode menu.Mode) int64 {
	if what.IsZero() || amount <= 0 {
		return 0
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	accepted := min(amount, n.capacity-n.total)
	if accepted <= 0 {
		return 0
	}
	if mode == menu.Modulate {
		n.stored[what] += accepted
		n.total += accepted
	}
	return accepted
}

// Extract 取出资源，返回实际（或可）取出的数量
func (n *Network) Extract(what menu.Key, amount int64, mode menu.Mode) int64 {
	if amount <= 0 {
		return 0
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	taken := min(amount, n.stored[what])
	if taken <= 0 {
		return 0
	}
	if mode == menu.Modulate {
		n.stored[what] -= taken
		n.total -= taken
		if n.stored[what] == 0 {
			delete(n.stored, what)
		}
	}
	return taken
}

// Offer 玩家快速移动时接收整堆物品；包装过的通用资源按原资源存入
// 带组件的物品（如装了流体的储罐）无法按名称取回，不接收
func (n *Network) Offer(stack menu.ItemStack) int {
	gs, ok := menu.UnwrapGeneric(stack)
	if !ok || gs.What.Components != "" {
		return 0
	}
	return int(n.Insert(gs.What, int64(stack.Count), menu.Modulate))
}

// Source 把网络中的某种资源作为填充来源
func (n *Network) Source(what menu.Key) menu.FillSource {
	return menu.FillSourceFunc(func(amount int64, mode menu.Mode) int64 {
		return n.Extract(what, amount, mode)
	})
}

func (n *Network) Amount(what menu.Key) int64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.stored[what]
}

func (n *Network) Total() int64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.total
}

// Snapshot 按资源键排序的存量列表
func (n *Network) Snapshot() []menu.GenericStack {
	n.mu.Lock()
	out := make([]menu.GenericStack, 0, len(n.stored))
	for k, v := range n.stored {
		out = append(out, menu.GenericStack{What: k, Amount: v})
	}
	n.mu.Unlock()
	slices.SortFunc(out, func(a, b menu.GenericStack) int {
		return strings.Compare(a.What.String(), b.What.String())
	})
	return out
}
