package menu

import (
	"errors"
	"fmt"
	"slices"
)

var (
	ErrSlotExists        = errors.New("menu: slot already registered")
	ErrSlotNotPresent    = errors.New("menu: slot is not part of this menu")
	ErrNotClientSideSlot = errors.New("menu: slot is not a client-side slot")
)

// SlotRegistry 界面槽位的有序列表；线协议只按位置寻址，所以下标必须保持连续
type SlotRegistry struct {
	slots      []*Slot
	semantics  map[*Slot]*SlotSemantic
	bySemantic map[*SlotSemantic][]*Slot
	clientSide map[*Slot]struct{}
	playerInv  Container
}

// NewSlotRegistry playerInv 为打开界面的玩家背包，用于判断玩家侧
func NewSlotRegistry(playerInv Container) *SlotRegistry {
	return &SlotRegistry{
		semantics:  make(map[*Slot]*SlotSemantic),
		bySemantic: make(map[*SlotSemantic][]*Slot),
		clientSide: make(map[*Slot]struct{}),
		playerInv:  playerInv,
	}
}

// Add 追加槽位并分配下标；重复注册属于编程错误，直接 panic
func (r *SlotRegistry) Add(slot *Slot, semantic *SlotSemantic) *Slot {
	if slot.owner != nil {
		panic(fmt.Sprintf("menu: slot %d of %T registered twice", slot.index, slot.container))
	}
	r.append(slot, semantic)
	return slot
}

// AddClientSide 追加仅存在于镜像端的临时槽位
func (r *SlotRegistry) AddClientSide(slot *Slot, semantic *SlotSemantic) error {
	if slot.owner != nil {
		return ErrSlotExists
	}
	r.append(slot, semantic)
	r.clientSide[slot] = struct{}{}
	return nil
}

// RemoveClientSide 移除临时槽位，并为后续槽位重新编号
func (r *SlotRegistry) RemoveClientSide(slot *Slot) error {
	if slot.owner != r || slot.menuIndex < 0 || slot.menuIndex >= len(r.slots) || r.slots[slot.menuIndex] != slot {
		return ErrSlotNotPresent
	}
	if _, ok := r.clientSide[slot]; !ok {
		return ErrNotClientSideSlot
	}
	idx := slot.menuIndex
	r.slots = slices.Delete(r.slots, idx, idx+1)
	delete(r.clientSide, slot)
	if sem, ok := r.semantics[slot]; ok {
		delete(r.semantics, slot)
		r.bySemantic[sem] = slices.DeleteFunc(r.bySemantic[sem], func(s *Slot) bool { return s == slot })
	}
	for i := idx; i < len(r.slots); i++ {
		r.slots[i].menuIndex = i
	}
	slot.owner = nil
	slot.menuIndex = -1
	return nil
}

func (r *SlotRegistry) append(slot *Slot, semantic *SlotSemantic) {
	slot.owner = r
	slot.menuIndex = len(r.slots)
	r.slots = append(r.slots, slot)
	if semantic != nil {
		r.semantics[slot] = semantic
		r.bySemantic[semantic] = append(r.bySemantic[semantic], slot)
	}
}

func (r *SlotRegistry) IsClientSide(slot *Slot) bool {
	_, ok := r.clientSide[slot]
	return ok
}

func (r *SlotRegistry) Len() int { return len(r.slots) }

func (r *SlotRegistry) Get(i int) (*Slot, bool) {
	if i < 0 || i >= len(r.slots) {
		return nil, false
	}
	return r.slots[i], true
}

// Contains 槽位当前是否仍在本注册表中
func (r *SlotRegistry) Contains(slot *Slot) bool {
	return slot.owner == r && slot.menuIndex >= 0 && slot.menuIndex < len(r.slots) && r.slots[slot.menuIndex] == slot
}

// All 返回全部槽位的快照
func (r *SlotRegistry) All() []*Slot { return slices.Clone(r.slots) }

// ForSemantic 返回某语义下的全部槽位（注册顺序）的快照
func (r *SlotRegistry) ForSemantic(sem *SlotSemantic) []*Slot {
	return slices.Clone(r.bySemantic[sem])
}

func (r *SlotRegistry) Semantic(slot *Slot) *SlotSemantic { return r.semantics[slot] }

// IsPlayerSide 槽位属于玩家背包，或其语义标记为玩家侧
func (r *SlotRegistry) IsPlayerSide(slot *Slot) bool {
	if r.playerInv != nil && slot.container == r.playerInv {
		return true
	}
	sem := r.semantics[slot]
	return sem != nil && sem.playerSide
}

// QuickMovePriority 无语义的槽位优先级为 0
func (r *SlotRegistry) QuickMovePriority(slot *Slot) int {
	if sem := r.semantics[slot]; sem != nil {
		return sem.quickMovePriority
	}
	return 0
}
