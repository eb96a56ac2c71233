package menu

// Clicked 基础点击管线
func (m *Menu) Clicked(slotIdx, button int, click ClickType) (err error) {
	if !m.valid || m.side != ServerSide {
		return nil
	}
	// 副手被锁定时不允许任何交换
	if click == ClickSwap && m.IsPlayerInventorySlotLocked(SlotOffhand) {
		return nil
	}
	defer m.recoverInto(&err, "click")

	s, ok := m.slots.Get(slotIdx)
	if !ok {
		return nil
	}
	switch click {
	case ClickQuickMove:
		m.quickMoveSlot(s)
	case ClickPickup:
		m.clickPickup(s, button)
	case ClickSwap:
		m.clickSwap(s, button)
	}
	return nil
}

// clickPickup button 0 为左键（整堆），1 为右键（一半/单个）
func (m *Menu) clickPickup(s *Slot, button int) {
	cur := s.Item()
	hand := m.carried
	switch {
	case hand.IsEmpty():
		if cur.IsEmpty() || !s.MayPickup() {
			return
		}
		n := cur.Count
		if button == 1 {
			n = (cur.Count + 1) / 2
		}
		m.carried = s.Remove(n)
	case cur.IsEmpty():
		if !s.MayPlace(hand) {
			return
		}
		n := hand.Count
		if button == 1 {
			n = 1
		}
		n = min(n, s.MaxStackSizeFor(hand))
		s.Set(hand.WithCount(n))
		m.carried = hand.WithCount(hand.Count - n)
	case cur.SameItem(hand):
		if !s.MayPlace(hand) {
			return
		}
		n := hand.Count
		if button == 1 {
			n = 1
		}
		n = min(n, s.MaxStackSizeFor(cur)-cur.Count)
		if n <= 0 {
			return
		}
		s.Set(cur.WithCount(cur.Count + n))
		m.carried = hand.WithCount(hand.Count - n)
	default:
		if s.MayPickup() && s.MayPlace(hand) && hand.Count <= s.MaxStackSizeFor(hand) {
			s.Set(hand)
			m.carried = cur
		}
	}
}

// clickSwap 与快捷栏第 button 格（或副手 40）交换
func (m *Menu) clickSwap(s *Slot, button int) {
	inv := m.player.Inventory
	if !(button >= 0 && button < HotbarSize) && button != SlotOffhand {
		return
	}
	if m.IsPlayerInventorySlotLocked(button) {
		return
	}
	if s.container == inv && s.index == button {
		return
	}
	cur := s.Item()
	other := inv.Get(button)
	if !cur.IsEmpty() && !s.MayPickup() {
		return
	}
	if !other.IsEmpty() && (!s.MayPlace(other) || other.Count > s.MaxStackSizeFor(other)) {
		return
	}
	inv.Set(button, cur)
	s.Set(other)
}

// SwapSlotContents 直接交换两个槽位；任一方向不合法则不做任何修改
func (m *Menu) SwapSlotContents(slotA, slotB int) bool {
	if !m.valid {
		return false
	}
	a, okA := m.slots.Get(slotA)
	b, okB := m.slots.Get(slotB)
	if !okA || !okB {
		return false
	}
	isA, isB := a.Item(), b.Item()
	if isA.IsEmpty() && isB.IsEmpty() {
		return false
	}

	// 能否拿起
	if !isA.IsEmpty() && !a.MayPickup() {
		return false
	}
	if !isB.IsEmpty() && !b.MayPickup() {
		return false
	}
	// 能否放下
	if !isB.IsEmpty() && !a.MayPlace(isB) {
		return false
	}
	if !isA.IsEmpty() && !b.MayPlace(isA) {
		return false
	}

	testA, testB := isB, isA
	// 超出上限的部分退回另一格
	if !testA.IsEmpty() && testA.Count > a.MaxStackSizeFor(testA) {
		if !testB.IsEmpty() {
			return false
		}
		total := testA.Count
		testA = testA.WithCount(a.MaxStackSizeFor(testA))
		testB = testA.WithCount(total - testA.Count)
	}
	if !testB.IsEmpty() && testB.Count > b.MaxStackSizeFor(testB) {
		if !testA.IsEmpty() {
			return false
		}
		total := testB.Count
		testB = testB.WithCount(b.MaxStackSizeFor(testB))
		testA = testB.WithCount(total - testB.Count)
	}

	a.Set(testA)
	b.Set(testB)
	return true
}
