package menu

// Container 槽位背后的外部容器（背包、机器库存等）
type Container interface {
	Size() int
	Get(i int) ItemStack
	Set(i int, s ItemStack)
	MaxStackSize() int
}

// SimpleContainer 基于切片的容器实现
type SimpleContainer struct {
	items    []ItemStack
	maxStack int
	// OnChange 每次 Set 后回调（可选），便于宿主同步自身状态
	OnChange func(i int)
}

func NewSimpleContainer(size int) *SimpleContainer {
	return &SimpleContainer{items: make([]ItemStack, size), maxStack: DefaultMaxStack}
}

func (c *SimpleContainer) Size() int { return len(c.items) }

func (c *SimpleContainer) Get(i int) ItemStack {
	if i < 0 || i >= len(c.items) {
		return EmptyStack
	}
	return c.items[i]
}

func (c *SimpleContainer) Set(i int, s ItemStack) {
	if i < 0 || i >= len(c.items) {
		return
	}
	if s.IsEmpty() {
		s = EmptyStack
	}
	c.items[i] = s
	if c.OnChange != nil {
		c.OnChange(i)
	}
}

func (c *SimpleContainer) MaxStackSize() int { return c.maxStack }

// SetMaxStackSize 调整容器整体堆叠上限
func (c *SimpleContainer) SetMaxStackSize(n int) { c.maxStack = n }

// 玩家背包布局：0-8 快捷栏，9-35 主背包，36-39 护甲，40 副手
const (
	HotbarSize          = 9
	PlayerMainSize      = 36
	SlotOffhand         = 40
	playerInventorySize = 41
)

// PlayerInventory 玩家个人背包
type PlayerInventory struct {
	*SimpleContainer
}

func NewPlayerInventory() *PlayerInventory {
	return &PlayerInventory{SimpleContainer: NewSimpleContainer(playerInventorySize)}
}

// Add 把 stack 放进快捷栏与主背包：先合并同类，再放空格；skip 返回 true 的格子不动
// 返回放不下的部分
func (p *PlayerInventory) Add(stack ItemStack, skip func(i int) bool) ItemStack {
	for pass := 0; pass < 2 && !stack.IsEmpty(); pass++ {
		for i := 0; i < PlayerMainSize && !stack.IsEmpty(); i++ {
			if skip != nil && skip(i) {
				continue
			}
			cur := p.Get(i)
			limit := min(p.MaxStackSize(), stack.MaxStackSize())
			var n int
			switch {
			case pass == 0 && cur.SameItem(stack):
				n = min(stack.Count, limit-cur.Count)
				if n > 0 {
					p.Set(i, cur.WithCount(cur.Count+n))
				}
			case pass == 1 && cur.IsEmpty():
				n = min(stack.Count, limit)
				p.Set(i, stack.WithCount(n))
			}
			if n > 0 {
				stack = stack.WithCount(stack.Count - n)
			}
		}
	}
	return stack
}

// Player 打开界面的玩家
type Player struct {
	ID        string
	Inventory *PlayerInventory
	// Pending 关闭界面时背包放不下的物品，下次有空位时归还
	Pending []ItemStack
}

func NewPlayer(id string) *Player {
	return &Player{ID: id, Inventory: NewPlayerInventory()}
}

// RestorePending 把暂存的物品放回背包，仍放不下的继续暂存
func (p *Player) RestorePending() {
	var keep []ItemStack
	for _, s := range p.Pending {
		if rest := p.Inventory.Add(s, nil); !rest.IsEmpty() {
			keep = append(keep, rest)
		}
	}
	p.Pending = keep
}
