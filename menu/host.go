package menu

// Host 界面背后的宿主（方块、部件或手持物品）
type Host interface {
	Tick()
	IsValid() bool
}

// PlayerSlotBinder 宿主占用了玩家背包中的某一格（例如手持的便携终端），该格需要锁定
type PlayerSlotBinder interface {
	PlayerInventorySlot() (int, bool)
}

// Positioned 放置在世界中的宿主；不再位于记录的位置时界面失效
type Positioned interface {
	StillPresent() bool
}

// AccessChecker 宿主自身的访问检查
type AccessChecker interface {
	StillValid(p *Player) bool
}

// RemoteAcceptor 非槽位式的远端存储（如资源网络），玩家侧快速移动时优先交给它
type RemoteAcceptor interface {
	// Offer 返回实际接收的数量
	Offer(stack ItemStack) int
}

// GenericInventory 以键寻址的通用库存；槽位的容器实现了它即可参与填充/倒空
type GenericInventory interface {
	Key(slot int) (Key, bool)
	Extract(slot int, what Key, amount int64, mode Mode) int64
	Insert(slot int, what Key, amount int64, mode Mode) int64
	// StorageMode 仅存储模式支持填充与倒空（配置模式只保存过滤条件）
	StorageMode() bool
}
