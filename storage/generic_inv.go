package storage

import (
	"math"

	"menusync/menu"
)

// InvMode 通用库存的工作模式
type InvMode int

const (
	ModeStorage InvMode = iota // 存放真实资源，支持填充与倒空
	ModeConfig                 // 只保存资源键，作为过滤/配置条件
)

func (m InvMode) String() string {
	if m == ModeConfig {
		return "config"
	}
	return "storage"
}

// GenericStackInv 以资源键寻址的多槽位库存；每格只放一种资源，容量按格计算
type GenericStackInv struct {
	mode     InvMode
	capacity int64
	keys     []menu.Key
	amounts  []int64
	accept   func(menu.Key) bool

	// OnChange 任一格内容变化后回调
	OnChange func(slot int)
}

// NewGenericStackInv capacity 为每格可存放的最大数量
func NewGenericStackInv(size int, capacity int64, mode InvMode) *GenericStackInv {
	if capacity <= 0 {
		capacity = math.MaxInt64
	}
	return &GenericStackInv{
		mode:     mode,
		capacity: capacity,
		keys:     make([]menu.Key, size),
		amounts:  make([]int64, size),
	}
}

// SetAcceptFilter 限制可放入的资源
func (g *GenericStackInv) SetAcceptFilter(f func(menu.Key) bool) { g.accept = f }

func (g *GenericStackInv) Mode() InvMode { return g.mode }

func (g *GenericStackInv) Capacity() int64 { return g.capacity }

func (g *GenericStackInv) Size() int { return len(g.keys) }

func (g *GenericStackInv) inRange(i int) bool { return i >= 0 && i < len(g.keys) }

// Stack 返回某格的资源与数量
func (g *GenericStackInv) Stack(i int) (menu.GenericStack, bool) {
	if !g.inRange(i) || g.keys[i].IsZero() {
		return menu.GenericStack{}, false
	}
	return menu.GenericStack{What: g.keys[i], Amount: g.amounts[i]}, true
}

// SetStack 直接覆盖某格；配置模式下数量固定为 1
func (g *GenericStackInv) SetStack(i int, gs menu.GenericStack) {
	if !g.inRange(i) {
		return
	}
	if gs.What.IsZero() || gs.Amount <= 0 {
		g.keys[i], g.amounts[i] = menu.Key{}, 0
	} else {
		amount := min(gs.Amount, g.capacity)
		if g.mode == ModeConfig {
			amount = 1
		}
		g.keys[i], g.amounts[i] = gs.What, amount
	}
	g.changed(i)
}

func (g *GenericStackInv) changed(i int) {
	if g.OnChange != nil {
		g.OnChange(i)
	}
}

// ---- menu.Container ----

// Get 以包装物品的形式展示，供普通槽位使用
func (g *GenericStackInv) Get(i int) menu.ItemStack {
	gs, ok := g.Stack(i)
	if !ok {
		return menu.EmptyStack
	}
	return menu.WrapGeneric(gs)
}

func (g *GenericStackInv) Set(i int, s menu.ItemStack) {
	gs, ok := menu.UnwrapGeneric(s)
	if !ok {
		g.SetStack(i, menu.GenericStack{})
		return
	}
	if g.accept != nil && !g.accept(gs.What) {
		return
	}
	g.SetStack(i, gs)
}

func (g *GenericStackInv) MaxStackSize() int {
	if g.capacity > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(g.capacity)
}

// ---- menu.GenericInventory ----

func (g *GenericStackInv) Key(i int) (menu.Key, bool) {
	if !g.inRange(i) || g.keys[i].IsZero() {
		return menu.Key{}, false
	}
	return g.keys[i], true
}

func (g *GenericStackInv) StorageMode() bool { return g.mode == ModeStorage }

// Extract 从第 i 格取出 what，返回实际（或可）取出的数量
func (g *GenericStackInv) Extract(i int, what menu.Key, amount int64, mode menu.Mode) int64 {
	if g.mode != ModeStorage || !g.inRange(i) || amount <= 0 || g.keys[i] != what {
		return 0
	}
	n := min(amount, g.amounts[i])
	if mode == menu.Modulate && n > 0 {
		g.amounts[i] -= n
		if g.amounts[i] == 0 {
			g.keys[i] = menu.Key{}
		}
		g.changed(i)
	}
	return n
}

// Insert 向第 i 格放入 what；格子被其他资源占用时返回 0
func (g *GenericStackInv) Insert(i int, what menu.Key, amount int64, mode menu.Mode) int64 {
	if g.mode != ModeStorage || !g.inRange(i) || amount <= 0 || what.IsZero() {
		return 0
	}
	if !g.keys[i].IsZero() && g.keys[i] != what {
		return 0
	}
	if g.accept != nil && !g.accept(what) {
		return 0
	}
	n := min(amount, g.capacity-g.amounts[i])
	if mode == menu.Modulate && n > 0 {
		g.keys[i] = what
		g.amounts[i] += n
		g.changed(i)
	}
	return n
}
