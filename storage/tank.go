package storage

import (
	"strconv"
	"strings"

	"menusync/menu"
)

// TankItemID 手持储罐的物品 ID；内容记录在组件里，形如 fluid:water=3000
const TankItemID = "tank"

// NewTank 构造一个装有 amount 个 what 的储罐
func NewTank(what menu.Key, amount int64) menu.ItemStack {
	s := menu.ItemStack{Key: menu.ItemKey{ID: TankItemID}, Count: 1, MaxStack: 1}
	writeTank(&s, menu.GenericStack{What: what, Amount: amount})
	return s
}

// TankContents 解析储罐内容；空储罐返回 false
func TankContents(s menu.ItemStack) (menu.GenericStack, bool) {
	if s.Key.ID != TankItemID || s.Key.Components == "" {
		return menu.GenericStack{}, false
	}
	i := strings.LastIndexByte(s.Key.Components, '=')
	if i < 0 {
		return menu.GenericStack{}, false
	}
	what, ok := menu.ParseKey(s.Key.Components[:i])
	if !ok {
		return menu.GenericStack{}, false
	}
	amount, err := strconv.ParseInt(s.Key.Components[i+1:], 10, 64)
	if err != nil || amount <= 0 {
		return menu.GenericStack{}, false
	}
	return menu.GenericStack{What: what, Amount: amount}, true
}

func writeTank(s *menu.ItemStack, gs menu.GenericStack) {
	if gs.What.IsZero() || gs.Amount <= 0 {
		s.Key.Components = ""
		return
	}
	s.Key.Components = gs.What.String() + "=" + strconv.FormatInt(gs.Amount, 10)
}

// TankStrategy 把鼠标上的储罐当作流体容器
type TankStrategy struct {
	Capacity int64
}

func (t TankStrategy) FindCarriedContext(what *menu.Key, carried *menu.ItemStack) (menu.HeldContext, bool) {
	if carried == nil || carried.Key.ID != TankItemID || carried.Count != 1 {
		return nil, false
	}
	if what != nil && what.Kind != menu.KindFluid {
		return nil, false
	}
	return &tankContext{stack: carried, capacity: t.Capacity}, true
}

func (t TankStrategy) EmptyingAction(carried menu.ItemStack) (menu.GenericStack, bool) {
	return TankContents(carried)
}

// tankContext 直接修改鼠标上的储罐
type tankContext struct {
	stack    *menu.ItemStack
	capacity int64
}

func (c *tankContext) Insert(what menu.Key, amount int64, mode menu.Mode) int64 {
	if what.Kind != menu.KindFluid || amount <= 0 {
		return 0
	}
	cur, ok := TankContents(*c.stack)
	if ok && cur.What != what {
		return 0
	}
	n := min(amount, c.capacity-cur.Amount)
	if n <= 0 {
		return 0
	}
	if mode == menu.Modulate {
		writeTank(c.stack, menu.GenericStack{What: what, Amount: cur.Amount + n})
	}
	return n
}

func (c *tankContext) Extract(what menu.Key, amount int64, mode menu.Mode) int64 {
	cur, ok := TankContents(*c.stack)
	if !ok || cur.What != what || amount <= 0 {
		return 0
	}
	n := min(amount, cur.Amount)
	if mode == menu.Modulate {
		writeTank(c.stack, menu.GenericStack{What: what, Amount: cur.Amount - n})
	}
	return n
}

func (c *tankContext) ExtractableContent() (menu.GenericStack, bool) {
	return TankContents(*c.stack)
}
