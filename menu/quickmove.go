package menu

import "slices"

// QuickMove shift 点击：把槽位内容批量移到另一侧
func (m *Menu) QuickMove(slotIdx int) {
	if !m.valid || m.side != ServerSide {
		return
	}
	s, ok := m.slots.Get(slotIdx)
	if !ok {
		return
	}
	m.quickMoveSlot(s)
}

func (m *Menu) quickMoveSlot(clicked *Slot) {
	// 区域移动等场景下也会走到这里，需要自己检查
	if !clicked.MayPickup() {
		return
	}
	stack := clicked.Item()
	if stack.IsEmpty() {
		return
	}

	fromPlayerSide := m.slots.IsPlayerSide(clicked)

	// 玩家侧物品先交给非槽位式的远端存储；只扣除实际接收的数量
	if fromPlayerSide && m.remote != nil {
		if transferred := m.remote.Offer(stack); transferred > 0 {
			clicked.Remove(transferred)
		}
	}
	stack = clicked.Item()
	if stack.IsEmpty() {
		return
	}

	original := stack
	stack = m.quickMoveToOtherSlots(stack, fromPlayerSide)

	// 内容确实变化才写回，避免无意义的变更通知
	if !original.Matches(stack) {
		clicked.Set(stack)
	}
}

func (m *Menu) quickMoveToOtherSlots(stack ItemStack, fromPlayerSide bool) ItemStack {
	original := stack
	dests := m.QuickMoveDestinations(stack, fromPlayerSide)

	// 先合并到已有同类物品的槽位
	for _, dest := range dests {
		if dest.HasItem() {
			if stack = dest.SafeInsert(stack); stack.IsEmpty() {
				return stack
			}
		}
	}
	// 再放入空槽位
	for _, dest := range dests {
		if !dest.HasItem() {
			if stack = dest.SafeInsert(stack); stack.IsEmpty() {
				return stack
			}
		}
	}

	if fromPlayerSide && stack.Matches(original) {
		m.setFilterFromQuickMove(stack)
	}
	return stack
}

// setFilterFromQuickMove 没有真实目标时，shift 点击改为设置第一个可用的过滤槽
func (m *Menu) setFilterFromQuickMove(stack ItemStack) {
	for _, s := range m.slots.All() {
		if !s.IsFilterOnly() || !s.Enabled() || m.slots.IsPlayerSide(s) {
			continue
		}
		cur := s.Item()
		if cur.SameItem(stack) {
			return
		}
		if cur.IsEmpty() && s.CanSetFilterTo(stack) {
			s.Set(stack)
			return
		}
	}
}

// QuickMoveDestinations 候选目标：另一侧、可放置、非过滤/合成网格，按语义优先级降序（同级保持注册顺序）
func (m *Menu) QuickMoveDestinations(stack ItemStack, fromPlayerSide bool) []*Slot {
	var dests []*Slot
	for _, s := range m.slots.All() {
		if m.isValidQuickMoveDestination(s, stack, fromPlayerSide) {
			dests = append(dests, s)
		}
	}
	slices.SortStableFunc(dests, func(a, b *Slot) int {
		return m.slots.QuickMovePriority(b) - m.slots.QuickMovePriority(a)
	})
	return dests
}

func (m *Menu) isValidQuickMoveDestination(s *Slot, stack ItemStack, fromPlayerSide bool) bool {
	return m.slots.IsPlayerSide(s) != fromPlayerSide &&
		!s.IsFilterOnly() &&
		!s.IsCraftingMatrix() &&
		s.MayPlace(stack)
}
