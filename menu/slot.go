package menu

// SlotRole 槽位种类（封闭集合），用能力查询代替类型判断
type SlotRole int

const (
	RoleOrdinary        SlotRole = iota
	RoleFilter                   // 只设置过滤，不存放真实物品
	RoleCraftingMatrix           // 合成网格
	RoleCraftingResult           // 合成输出，点击触发合成
	RoleDisabled                 // 锁定，不可交互
	RoleRestrictedInput          // 仅接受满足条件的物品
)

var roleNames = [...]string{"ordinary", "filter", "crafting_matrix", "crafting_result", "disabled", "restricted_input"}

func (r SlotRole) String() string {
	if int(r) < len(roleNames) {
		return roleNames[r]
	}
	return "unknown"
}

// Crafter 合成输出槽背后的合成逻辑
type Crafter interface {
	DoClick(action InventoryAction)
}

// Slot 指向外部容器某个位置的可交互单元
type Slot struct {
	container Container
	index     int // 容器内下标
	menuIndex int // 在界面中的位置，由注册表维护
	owner     *SlotRegistry

	role        SlotRole
	enabled     bool
	draggable   bool
	maxStack    int
	placeFilter func(ItemStack) bool
	crafter     Crafter
}

func newSlot(c Container, index int, role SlotRole) *Slot {
	return &Slot{container: c, index: index, menuIndex: -1, role: role, enabled: true, draggable: true}
}

// NewSlot 普通槽位
func NewSlot(c Container, index int) *Slot { return newSlot(c, index, RoleOrdinary) }

// NewDisabledSlot 锁定槽位：可见但不可拿取或放入
func NewDisabledSlot(c Container, index int) *Slot { return newSlot(c, index, RoleDisabled) }

// NewFilterSlot 过滤槽位（“假”槽位）
func NewFilterSlot(c Container, index int) *Slot { return newSlot(c, index, RoleFilter) }

// NewCraftingMatrixSlot 合成网格槽位
func NewCraftingMatrixSlot(c Container, index int) *Slot {
	return newSlot(c, index, RoleCraftingMatrix)
}

// NewCraftingResultSlot 合成输出槽位
func NewCraftingResultSlot(c Container, index int, crafter Crafter) *Slot {
	s := newSlot(c, index, RoleCraftingResult)
	s.crafter = crafter
	return s
}

// NewRestrictedSlot 只接受 accept 返回 true 的物品
func NewRestrictedSlot(c Container, index int, accept func(ItemStack) bool) *Slot {
	s := newSlot(c, index, RoleRestrictedInput)
	s.placeFilter = accept
	return s
}

// Index 槽位在界面中的位置；未注册时为 -1
func (s *Slot) Index() int { return s.menuIndex }

func (s *Slot) Container() Container { return s.container }

func (s *Slot) ContainerIndex() int { return s.index }

func (s *Slot) Role() SlotRole { return s.role }

func (s *Slot) IsFilterOnly() bool { return s.role == RoleFilter }

func (s *Slot) IsCraftingMatrix() bool { return s.role == RoleCraftingMatrix }

func (s *Slot) IsCraftingResult() bool { return s.role == RoleCraftingResult }

func (s *Slot) IsDisabled() bool { return s.role == RoleDisabled }

func (s *Slot) Enabled() bool { return s.enabled }

func (s *Slot) SetEnabled(v bool) { s.enabled = v }

func (s *Slot) Draggable() bool { return s.draggable }

func (s *Slot) SetNotDraggable() { s.draggable = false }

// SetPlaceFilter 附加放入条件
func (s *Slot) SetPlaceFilter(f func(ItemStack) bool) { s.placeFilter = f }

// SetMaxStackSize 覆盖容器的堆叠上限，0 表示沿用容器
func (s *Slot) SetMaxStackSize(n int) { s.maxStack = n }

func (s *Slot) Item() ItemStack { return s.container.Get(s.index) }

func (s *Slot) HasItem() bool { return !s.Item().IsEmpty() }

func (s *Slot) Set(stack ItemStack) { s.container.Set(s.index, stack) }

// MaxStackSize 槽位本身的上限
func (s *Slot) MaxStackSize() int {
	if s.maxStack > 0 {
		return s.maxStack
	}
	return s.container.MaxStackSize()
}

// MaxStackSizeFor 放入指定物品时的实际上限
func (s *Slot) MaxStackSizeFor(stack ItemStack) int {
	return min(s.MaxStackSize(), stack.MaxStackSize())
}

// MayPlace 是否允许把 stack 放进来
func (s *Slot) MayPlace(stack ItemStack) bool {
	if !s.enabled || stack.IsEmpty() || s.isGeneric() {
		return false
	}
	switch s.role {
	case RoleDisabled, RoleFilter, RoleCraftingResult:
		return false
	}
	return s.placeFilter == nil || s.placeFilter(stack)
}

// MayPickup 是否允许从这里拿走物品；合成输出只能经由 Crafter 取走
func (s *Slot) MayPickup() bool {
	if !s.enabled || s.isGeneric() {
		return false
	}
	switch s.role {
	case RoleDisabled, RoleFilter, RoleCraftingResult:
		return false
	}
	return true
}

// isGeneric 通用库存的槽位只能通过填充/倒空交互
func (s *Slot) isGeneric() bool {
	g, ok := s.container.(GenericInventory)
	return ok && g.StorageMode()
}

// Remove 取出最多 n 个物品并返回取出的部分
func (s *Slot) Remove(n int) ItemStack {
	cur := s.Item()
	if cur.IsEmpty() || n <= 0 {
		return EmptyStack
	}
	n = min(n, cur.Count)
	s.Set(cur.WithCount(cur.Count - n))
	return cur.WithCount(n)
}

// SafeInsert 尽量放入 stack，返回剩余部分
func (s *Slot) SafeInsert(stack ItemStack) ItemStack {
	if stack.IsEmpty() || !s.MayPlace(stack) {
		return stack
	}
	cur := s.Item()
	limit := s.MaxStackSizeFor(stack)
	switch {
	case cur.IsEmpty():
		n := min(stack.Count, limit)
		s.Set(stack.WithCount(n))
		return stack.WithCount(stack.Count - n)
	case cur.SameItem(stack):
		n := min(stack.Count, limit-cur.Count)
		if n <= 0 {
			return stack
		}
		s.Set(cur.WithCount(cur.Count + n))
		return stack.WithCount(stack.Count - n)
	default:
		return stack
	}
}

// CanSetFilterTo 过滤槽是否接受该物品作为过滤条件
func (s *Slot) CanSetFilterTo(stack ItemStack) bool {
	if s.role != RoleFilter {
		return false
	}
	return stack.IsEmpty() || s.placeFilter == nil || s.placeFilter(stack)
}

// increase 过滤槽：同种物品累加数量，否则替换
func (s *Slot) increase(hand ItemStack) {
	if hand.IsEmpty() {
		s.Set(EmptyStack)
		return
	}
	if !s.CanSetFilterTo(hand) {
		return
	}
	cur := s.Item()
	if cur.SameItem(hand) {
		s.Set(cur.WithCount(min(cur.Count+hand.Count, s.MaxStackSizeFor(cur))))
		return
	}
	s.Set(hand.WithCount(min(hand.Count, s.MaxStackSizeFor(hand))))
}

// decrease 过滤槽：减一，减到零即清空
func (s *Slot) decrease(hand ItemStack) {
	cur := s.Item()
	if cur.IsEmpty() {
		return
	}
	if !hand.IsEmpty() && !cur.SameItem(hand) {
		s.Set(EmptyStack)
		return
	}
	s.Set(cur.WithCount(cur.Count - 1))
}
