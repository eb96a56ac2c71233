package server

import (
	"menusync/menu"
	"menusync/storage"
)

// 物品 ID
const (
	SpeedCardID      = "speed_card"
	PortableCellID   = "portable_cell"
	exportPerCard    = 250 // 每张加速卡每 Tick 导出的数量
	driveFluidSlots  = 4
	driveFluidCap    = 32_000
	driveItemSlots   = 9
	driveFilterSlots = 4
	driveUpgradeSize = 2
)

// Station 可以打开界面的宿主
type Station interface {
	ID() string
	// Open 为玩家创建一个视图；视图作为 menu.Host 驱动对应会话
	Open(p *menu.Player) (View, error)
}

// View 某个会话看到的宿主
type View interface {
	menu.Host
	// Bind 把槽位、同步字段和动作注册到新会话上
	Bind(m *menu.Menu)
}

// tickResetter 被多个会话共享的宿主，每个世界 Tick 只推进一次
type tickResetter interface {
	BeginTick()
}

// DriveStation 流体驱动器：流体槽、物品槽、流体过滤与加速卡
// 装有加速卡时把匹配过滤的流体导出到资源网络
type DriveStation struct {
	id       string
	network  *storage.Network
	fluids   *storage.GenericStackInv
	filters  *storage.GenericStackInv
	items    *menu.SimpleContainer
	upgrades *menu.SimpleContainer

	valid    bool
	ticked   bool
	uptime   int64
	exported int64
}

func NewDriveStation(id string, network *storage.Network) *DriveStation {
	isFluid := func(k menu.Key) bool { return k.Kind == menu.KindFluid }
	fluids := storage.NewGenericStackInv(driveFluidSlots, driveFluidCap, storage.ModeStorage)
	fluids.SetAcceptFilter(isFluid)
	filters := storage.NewGenericStackInv(driveFilterSlots, 0, storage.ModeConfig)
	filters.SetAcceptFilter(isFluid)
	upgrades := menu.NewSimpleContainer(driveUpgradeSize)
	upgrades.SetMaxStackSize(1)
	return &DriveStation{
		id:       id,
		network:  network,
		fluids:   fluids,
		filters:  filters,
		items:    menu.NewSimpleContainer(driveItemSlots),
		upgrades: upgrades,
		valid:    true,
	}
}

func (d *DriveStation) ID() string { return d.id }

func (d *DriveStation) Fluids() *storage.GenericStackInv { return d.fluids }

func (d *DriveStation) Filters() *storage.GenericStackInv { return d.filters }

func (d *DriveStation) Upgrades() *menu.SimpleContainer { return d.upgrades }

// Break 拆除驱动器，所有打开的界面随之失效
func (d *DriveStation) Break() { d.valid = false }

func (d *DriveStation) BeginTick() { d.ticked = false }

func (d *DriveStation) Open(*menu.Player) (View, error) {
	return &driveView{drive: d}, nil
}

// advance 每个世界 Tick 只执行一次
func (d *DriveStation) advance() {
	if d.ticked {
		return
	}
	d.ticked = true
	d.uptime++
	d.export()
}

func (d *DriveStation) speedCards() int {
	n := 0
	for i := 0; i < d.upgrades.Size(); i++ {
		if s := d.upgrades.Get(i); s.Key.ID == SpeedCardID {
			n += s.Count
		}
	}
	return n
}

func (d *DriveStation) filterAllows(what menu.Key) bool {
	for i := 0; i < d.filters.Size(); i++ {
		if k, ok := d.filters.Key(i); ok && k == what {
			return true
		}
	}
	return false
}

func (d *DriveStation) export() {
	budget := int64(d.speedCards() * exportPerCard)
	for i := 0; i < d.fluids.Size() && budget > 0; i++ {
		gs, ok := d.fluids.Stack(i)
		if !ok || !d.filterAllows(gs.What) {
			continue
		}
		n := d.fluids.Extract(i, gs.What, budget, menu.Simulate)
		n = d.network.Insert(gs.What, n, menu.Simulate)
		if n <= 0 {
			continue
		}
		got := d.fluids.Extract(i, gs.What, n, menu.Modulate)
		d.network.Insert(gs.What, got, menu.Modulate)
		d.exported += got
		budget -= got
	}
}

func (d *DriveStation) storedFluid() int64 {
	var total int64
	for i := 0; i < d.fluids.Size(); i++ {
		if gs, ok := d.fluids.Stack(i); ok {
			total += gs.Amount
		}
	}
	return total
}

type driveView struct {
	drive *DriveStation

	stored    *menu.Field[int64]
	uptime    *menu.Field[int64]
	exporting *menu.Field[bool]
}

func (v *driveView) IsValid() bool { return v.drive.valid }

func (v *driveView) Tick() {
	v.drive.advance()
	if v.stored == nil {
		return
	}
	v.stored.Set(v.drive.storedFluid())
	v.uptime.Set(v.drive.uptime)
	v.exporting.Set(v.drive.speedCards() > 0)
}

func (v *driveView) Bind(m *menu.Menu) {
	d := v.drive
	m.CreatePlayerInventorySlots()
	for i := 0; i < d.items.Size(); i++ {
		m.AddSlot(menu.NewSlot(d.items, i), menu.SemanticStorage)
	}
	for i := 0; i < d.fluids.Size(); i++ {
		m.AddSlot(menu.NewSlot(d.fluids, i), menu.SemanticNetworkStorage)
	}
	for i := 0; i < d.filters.Size(); i++ {
		m.AddSlot(menu.NewFilterSlot(d.filters, i), menu.SemanticConfig)
	}
	m.SetupUpgrades(d.upgrades, func(s menu.ItemStack) bool { return s.Key.ID == SpeedCardID })

	ds := m.DataSync()
	v.stored = menu.NewField(ds, 0, d.storedFluid())
	v.uptime = menu.NewField(ds, 1, d.uptime)
	v.exporting = menu.NewField(ds, 2, d.speedCards() > 0)

	menu.RegisterNoArgAction(m.Actions(), "ClearFilters", func() {
		for i := 0; i < d.filters.Size(); i++ {
			d.filters.SetStack(i, menu.GenericStack{})
		}
	})
}

// PortableCell 玩家背包里的便携终端，直接访问资源网络
type PortableCell struct {
	network *storage.Network
}

func NewPortableCell(network *storage.Network) *PortableCell {
	return &PortableCell{network: network}
}

func (c *PortableCell) ID() string { return "portable" }

// Open 找到玩家背包里的终端并绑定该格
func (c *PortableCell) Open(p *menu.Player) (View, error) {
	for i := 0; i < p.Inventory.Size(); i++ {
		if p.Inventory.Get(i).Key.ID == PortableCellID {
			return &cellView{network: c.network, slot: i}, nil
		}
	}
	return nil, ErrNotFound
}

// WithdrawRequest 从网络取出物品到鼠标上
type WithdrawRequest struct {
	Item  string `json:"item"`
	Count int    `json:"count"`
}

const withdrawSchema = `{
	"type": "object",
	"properties": {
		"item": {"type": "string", "minLength": 1},
		"count": {"type": "integer", "minimum": 1, "maximum": 64}
	},
	"required": ["item", "count"],
	"additionalProperties": false
}`

type cellView struct {
	network *storage.Network
	slot    int

	total *menu.Field[int64]
}

func (v *cellView) IsValid() bool { return true }

func (v *cellView) Tick() {
	if v.total != nil {
		v.total.Set(v.network.Total())
	}
}

func (v *cellView) PlayerInventorySlot() (int, bool) { return v.slot, true }

// StillValid 终端仍在原来的格子里
func (v *cellView) StillValid(p *menu.Player) bool {
	return p.Inventory.Get(v.slot).Key.ID == PortableCellID
}

// Remote 玩家侧快速移动直接存入网络
func (v *cellView) Remote() menu.RemoteAcceptor { return v.network }

func (v *cellView) Bind(m *menu.Menu) {
	m.CreatePlayerInventorySlots()
	v.total = menu.NewField(m.DataSync(), 0, v.network.Total())
	menu.RegisterAction(m.Actions(), "Withdraw", func(req WithdrawRequest) {
		if !m.Carried().IsEmpty() {
			return
		}
		what := menu.Key{Kind: menu.KindItem, ID: req.Item}
		if n := v.network.Extract(what, int64(req.Count), menu.Modulate); n > 0 {
			m.SetCarried(menu.NewStack(req.Item, int(n)))
		}
	}, menu.WithSchema(withdrawSchema))
}
