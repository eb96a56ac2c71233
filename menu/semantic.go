package menu

import "fmt"

// SlotSemantic 槽位的语义类别，决定同步、界面与快速移动策略
// 目录在包初始化时构建，之后只读
type SlotSemantic struct {
	id                string
	playerSide        bool
	quickMovePriority int
}

func (s *SlotSemantic) ID() string { return s.id }

// PlayerSide 是否属于玩家一侧（决定快速移动方向）
func (s *SlotSemantic) PlayerSide() bool { return s.playerSide }

// QuickMovePriority 快速移动目标优先级，越大越先尝试
func (s *SlotSemantic) QuickMovePriority() int { return s.quickMovePriority }

func (s *SlotSemantic) String() string { return s.id }

var semantics = make(map[string]*SlotSemantic)

func registerSemantic(id string, playerSide bool, priority int) *SlotSemantic {
	if _, dup := semantics[id]; dup {
		panic(fmt.Sprintf("menu: duplicate slot semantic %q", id))
	}
	s := &SlotSemantic{id: id, playerSide: playerSide, quickMovePriority: priority}
	semantics[id] = s
	return s
}

var (
	SemanticPlayerInventory = registerSemantic("PLAYER_INVENTORY", true, 0)
	SemanticPlayerHotbar    = registerSemantic("PLAYER_HOTBAR", true, 0)
	SemanticToolbox         = registerSemantic("TOOLBOX", true, 0)
	SemanticConfig          = registerSemantic("CONFIG", false, 0)
	SemanticStorage         = registerSemantic("STORAGE", false, 0)
	SemanticNetworkStorage  = registerSemantic("NETWORK_STORAGE", false, 0)
	SemanticUpgrade         = registerSemantic("UPGRADE", false, 1)
	SemanticMachineInput    = registerSemantic("MACHINE_INPUT", false, 0)
	SemanticMachineOutput   = registerSemantic("MACHINE_OUTPUT", false, 0)
	SemanticCraftingGrid    = registerSemantic("CRAFTING_GRID", false, 0)
	SemanticCraftingResult  = registerSemantic("CRAFTING_RESULT", false, 0)
)

// SemanticByID 按 ID 查找语义（线协议中使用字符串）
func SemanticByID(id string) (*SlotSemantic, bool) {
	s, ok := semantics[id]
	return s, ok
}
