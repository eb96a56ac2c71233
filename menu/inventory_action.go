package menu

import "fmt"

// InventoryAction 客户端发来的结构化库存操作
type InventoryAction int

const (
	ActionPickupOrSetDown InventoryAction = iota
	ActionSplitOrPlaceSingle
	ActionPlaceSingle
	ActionShiftClick
	ActionMoveRegion
	ActionCraftItem
	ActionCraftStack
	ActionCraftShift
	ActionCraftAll
	ActionFillItem
	ActionFillEntireItem
	ActionEmptyItem
	ActionEmptyEntireItem
)

var inventoryActionNames = map[InventoryAction]string{
	ActionPickupOrSetDown:    "PICKUP_OR_SET_DOWN",
	ActionSplitOrPlaceSingle: "SPLIT_OR_PLACE_SINGLE",
	ActionPlaceSingle:        "PLACE_SINGLE",
	ActionShiftClick:         "SHIFT_CLICK",
	ActionMoveRegion:         "MOVE_REGION",
	ActionCraftItem:          "CRAFT_ITEM",
	ActionCraftStack:         "CRAFT_STACK",
	ActionCraftShift:         "CRAFT_SHIFT",
	ActionCraftAll:           "CRAFT_ALL",
	ActionFillItem:           "FILL_ITEM",
	ActionFillEntireItem:     "FILL_ENTIRE_ITEM",
	ActionEmptyItem:          "EMPTY_ITEM",
	ActionEmptyEntireItem:    "EMPTY_ENTIRE_ITEM",
}

func (a InventoryAction) String() string {
	if s, ok := inventoryActionNames[a]; ok {
		return s
	}
	return fmt.Sprintf("InventoryAction(%d)", int(a))
}

// ParseInventoryAction 线协议中的名称转换为枚举
func ParseInventoryAction(s string) (InventoryAction, bool) {
	for a, name := range inventoryActionNames {
		if name == s {
			return a, true
		}
	}
	return 0, false
}

func (a InventoryAction) isCrafting() bool {
	switch a {
	case ActionCraftItem, ActionCraftStack, ActionCraftShift, ActionCraftAll:
		return true
	}
	return false
}

// ClickType 基础点击管线的点击类型
type ClickType int

const (
	ClickPickup    ClickType = iota // 左/右键拿起或放下
	ClickQuickMove                  // shift 点击
	ClickSwap                       // 数字键与快捷栏/副手交换
)

var clickTypeNames = [...]string{"pickup", "quick_move", "swap"}

func (c ClickType) String() string {
	if int(c) < len(clickTypeNames) {
		return clickTypeNames[c]
	}
	return "unknown"
}

func ParseClickType(s string) (ClickType, bool) {
	for i, name := range clickTypeNames {
		if name == s {
			return ClickType(i), true
		}
	}
	return 0, false
}
