package menu

import (
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

const actionHideSlot = "HideSlot"

var (
	ErrSessionInvalid = errors.New("menu: session is no longer valid")
	ErrWrongSide      = errors.New("menu: operation not available on this side")
	ErrNoTransport    = errors.New("menu: no transport attached")
)

// Side 会话所在的一侧：服务端权威，客户端只是镜像
type Side int

const (
	ServerSide Side = iota
	ClientSide
)

// Options 创建会话所需的协作者；除 Player 外均可为空
type Options struct {
	ID        string
	Side      Side
	Player    *Player
	Host      Host
	Transport Transport
	Remote    RemoteAcceptor
	HeldItems HeldItemStrategy
	Effects   Effects
	// CanHide 是否允许客户端隐藏某语义的槽位，默认拒绝
	CanHide    func(*SlotSemantic) bool
	OnTransfer func(TransferResult)
	Logger     *zap.SugaredLogger
}

// Menu 每个打开界面的玩家一份的会话控制器
type Menu struct {
	id        string
	side      Side
	player    *Player
	host      Host
	transport Transport
	remote    RemoteAcceptor
	held      HeldItemStrategy
	canHide   func(*SlotSemantic) bool
	log       *zap.SugaredLogger

	slots      *SlotRegistry
	locked     map[int]struct{}
	sync       *DataSync
	actions    *ActionRegistry
	transfers  *TransferEngine
	onTransfer func(TransferResult)
	onDataSync func([]uint16)

	valid                 bool
	carried               ItemStack
	stateID               int
	sentSlots             []slotSnapshot
	sentCarried           ItemStack
	playerSlotsCreated    bool
	returnedFromSubScreen bool
}

type slotSnapshot struct {
	stack   ItemStack
	enabled bool
}

// New 创建会话；缺少玩家属于编程错误
func New(opts Options) *Menu {
	if opts.Player == nil || opts.Player.Inventory == nil {
		panic("menu: a player with an inventory is required")
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	log = log.With("session", opts.ID)
	m := &Menu{
		id:         opts.ID,
		side:       opts.Side,
		player:     opts.Player,
		host:       opts.Host,
		transport:  opts.Transport,
		remote:     opts.Remote,
		held:       opts.HeldItems,
		canHide:    opts.CanHide,
		log:        log,
		slots:      NewSlotRegistry(opts.Player.Inventory),
		locked:     make(map[int]struct{}),
		sync:       NewDataSync(),
		actions:    NewActionRegistry(log),
		transfers:  NewTransferEngine(log, opts.Effects, opts.Player),
		onTransfer: opts.OnTransfer,
		valid:      true,
	}
	if b, ok := opts.Host.(PlayerSlotBinder); ok {
		if i, ok := b.PlayerInventorySlot(); ok {
			m.LockPlayerInventorySlot(i)
		}
	}
	RegisterAction(m.actions, actionHideSlot, m.hideSlot,
		WithSchema(`{"type":"string","minLength":1,"maxLength":64}`))
	return m
}

func (m *Menu) ID() string { return m.id }

func (m *Menu) Side() Side { return m.side }

func (m *Menu) Player() *Player { return m.player }

func (m *Menu) Host() Host { return m.host }

// DataSync 宿主通过它注册同步字段
func (m *Menu) DataSync() *DataSync { return m.sync }

// Actions 宿主通过它注册自定义动作
func (m *Menu) Actions() *ActionRegistry { return m.actions }

func (m *Menu) Logger() *zap.SugaredLogger { return m.log }

// SetDataSyncObserver 镜像端收到字段更新后回调被更新的字段 id
func (m *Menu) SetDataSyncObserver(f func(ids []uint16)) { m.onDataSync = f }

func (m *Menu) Carried() ItemStack { return m.carried }

func (m *Menu) SetCarried(s ItemStack) {
	if s.IsEmpty() {
		s = EmptyStack
	}
	m.carried = s
}

func (m *Menu) StateID() int { return m.stateID }

func (m *Menu) IsValid() bool { return m.valid }

// Invalidate 进入终止状态：不再广播，不再接受修改
func (m *Menu) Invalidate(reason string) {
	if !m.valid {
		return
	}
	m.valid = false
	m.log.Infow("menu invalidated", "reason", reason)
}

// Removed 界面关闭时把鼠标上的物品还给玩家（失效的会话也要归还）
// 背包放不下的部分暂存在玩家身上，不会丢失
func (m *Menu) Removed() {
	if m.side != ServerSide || m.carried.IsEmpty() {
		return
	}
	rest := m.player.Inventory.Add(m.carried, m.IsPlayerInventorySlotLocked)
	m.carried = EmptyStack
	if !rest.IsEmpty() {
		m.player.Pending = append(m.player.Pending, rest)
		m.log.Warnw("player inventory full, carried stack kept aside",
			"item", rest.Key.ID, "count", rest.Count)
	}
}

// StillValid 会话有效且宿主仍允许该玩家访问
func (m *Menu) StillValid() bool {
	if !m.valid {
		return false
	}
	if a, ok := m.host.(AccessChecker); ok {
		return a.StillValid(m.player)
	}
	return true
}

func (m *Menu) ReturnedFromSubScreen() bool { return m.returnedFromSubScreen }

func (m *Menu) SetReturnedFromSubScreen(v bool) { m.returnedFromSubScreen = v }

// recoverInto 广播与动作分发中的 panic 先使会话失效，再转成错误返回
func (m *Menu) recoverInto(err *error, op string) {
	if r := recover(); r != nil {
		m.valid = false
		m.log.Errorw("panic in menu, session invalidated", "op", op, "panic", r)
		*err = fmt.Errorf("menu %s: %s: %v", m.id, op, r)
	}
}

// ---- 槽位 ----

// LockPlayerInventorySlot 锁定玩家背包某格（外部物品占用了它）
func (m *Menu) LockPlayerInventorySlot(i int) {
	if i < 0 || i >= m.player.Inventory.Size() {
		panic(fmt.Sprintf("menu: cannot lock player inventory slot: %d", i))
	}
	m.locked[i] = struct{}{}
}

func (m *Menu) IsPlayerInventorySlotLocked(i int) bool {
	_, ok := m.locked[i]
	return ok
}

// AddSlot 注册槽位；重复注册会 panic
func (m *Menu) AddSlot(slot *Slot, semantic *SlotSemantic) *Slot {
	return m.slots.Add(slot, semantic)
}

// AddClientSideSlot 仅镜像端可用，子界面打开时添加
func (m *Menu) AddClientSideSlot(slot *Slot, semantic *SlotSemantic) error {
	if m.side != ClientSide {
		return fmt.Errorf("%w: client-side slots can only be added on the client", ErrWrongSide)
	}
	return m.slots.AddClientSide(slot, semantic)
}

func (m *Menu) RemoveClientSideSlot(slot *Slot) error {
	return m.slots.RemoveClientSide(slot)
}

func (m *Menu) IsClientSideSlot(slot *Slot) bool { return m.slots.IsClientSide(slot) }

func (m *Menu) Slot(i int) (*Slot, bool) { return m.slots.Get(i) }

func (m *Menu) SlotCount() int { return m.slots.Len() }

func (m *Menu) Slots() []*Slot { return m.slots.All() }

func (m *Menu) SlotsFor(sem *SlotSemantic) []*Slot { return m.slots.ForSemantic(sem) }

func (m *Menu) SlotSemantic(slot *Slot) *SlotSemantic { return m.slots.Semantic(slot) }

func (m *Menu) IsPlayerSideSlot(slot *Slot) bool { return m.slots.IsPlayerSide(slot) }

// CreatePlayerInventorySlots 添加玩家背包 36 格，前 9 格为快捷栏；锁定的格子为禁用槽
func (m *Menu) CreatePlayerInventorySlots() {
	if m.playerSlotsCreated {
		panic("menu: player inventory was already created")
	}
	m.playerSlotsCreated = true
	inv := m.player.Inventory
	for i := 0; i < PlayerMainSize; i++ {
		var slot *Slot
		if m.IsPlayerInventorySlotLocked(i) {
			slot = NewDisabledSlot(inv, i)
		} else {
			slot = NewSlot(inv, i)
		}
		sem := SemanticPlayerInventory
		if i < HotbarSize {
			sem = SemanticPlayerHotbar
		}
		m.AddSlot(slot, sem)
	}
}

// SetupUpgrades 为升级库存添加受限、不可拖拽的槽位
func (m *Menu) SetupUpgrades(upgrades Container, accept func(ItemStack) bool) {
	for i := 0; i < upgrades.Size(); i++ {
		slot := NewRestrictedSlot(upgrades, i, accept)
		slot.SetNotDraggable()
		m.AddSlot(slot, SemanticUpgrade)
	}
}

func (m *Menu) CanDragTo(slot *Slot) bool { return slot.Draggable() }

// PlaceableAmount 某物品还能放进槽位多少个
func (m *Menu) PlaceableAmount(slot *Slot, what ItemStack) int {
	one := what.WithCount(1)
	if !slot.MayPlace(one) {
		return 0
	}
	cur := slot.Item()
	if cur.IsEmpty() {
		return slot.MaxStackSizeFor(one)
	}
	if cur.SameItem(one) {
		return max(0, slot.MaxStackSizeFor(cur)-cur.Count)
	}
	return 0
}

// HideSlot 隐藏某语义的全部槽位；镜像端会先通知服务端
func (m *Menu) HideSlot(semanticID string) {
	if !m.valid {
		return
	}
	if m.side == ClientSide {
		if err := m.SendClientAction(actionHideSlot, semanticID); err != nil {
			m.log.Warnw("failed to send hide slot action", "semantic", semanticID, "err", err)
		}
	}
	m.hideSlot(semanticID)
}

func (m *Menu) hideSlot(semanticID string) {
	sem, ok := SemanticByID(semanticID)
	if !ok {
		return
	}
	if m.canHide == nil || !m.canHide(sem) {
		return
	}
	for _, s := range m.slots.ForSemantic(sem) {
		s.SetEnabled(false)
	}
}

// SetFilter 用客户端发来的（不存在的）物品设置过滤槽
func (m *Menu) SetFilter(slotIdx int, stack ItemStack) {
	if !m.valid {
		return
	}
	s, ok := m.slots.Get(slotIdx)
	if !ok || !s.Enabled() {
		return
	}
	if s.IsFilterOnly() && s.CanSetFilterTo(stack) {
		s.Set(stack)
	}
}

// ---- 同步 ----

// BroadcastChanges 每 tick 调用：推进宿主、检查有效性、发送差量
func (m *Menu) BroadcastChanges() (err error) {
	if !m.valid {
		return nil
	}
	defer m.recoverInto(&err, "broadcast")

	if m.host != nil {
		if !m.host.IsValid() {
			m.Invalidate("host no longer valid")
			return nil
		}
		m.host.Tick()
	}
	if m.side != ServerSide {
		return nil
	}
	if p, ok := m.host.(Positioned); ok && !p.StillPresent() {
		m.Invalidate("host no longer present at its position")
		return nil
	}
	if a, ok := m.host.(AccessChecker); ok && !a.StillValid(m.player) {
		m.Invalidate("access revoked")
		return nil
	}

	upd, err := m.collectUpdate()
	if err != nil || upd == nil {
		return err
	}
	if m.transport == nil {
		return nil
	}
	return m.transport.SendUpdate(*upd)
}

func (m *Menu) collectUpdate() (*Update, error) {
	var fields []FieldUpdate
	if m.sync.HasChanges() {
		var err error
		if fields, err = m.sync.WriteUpdate(); err != nil {
			return nil, err
		}
	}
	slots := m.diffSlots()
	var carried *ItemStack
	if !m.carried.Matches(m.sentCarried) {
		c := m.carried
		carried = &c
		m.sentCarried = c
	}
	if len(fields) == 0 && len(slots) == 0 && carried == nil {
		return nil, nil
	}
	m.stateID++
	return &Update{Session: m.id, StateID: m.stateID, Fields: fields, Slots: slots, Carried: carried}, nil
}

func (m *Menu) diffSlots() []SlotUpdate {
	var out []SlotUpdate
	for i := 0; i < m.slots.Len(); i++ {
		s, _ := m.slots.Get(i)
		if m.slots.IsClientSide(s) {
			continue
		}
		cur := slotSnapshot{stack: s.Item(), enabled: s.Enabled()}
		if i < len(m.sentSlots) {
			prev := m.sentSlots[i]
			if prev.enabled == cur.enabled && prev.stack.Matches(cur.stack) {
				continue
			}
			m.sentSlots[i] = cur
		} else {
			m.sentSlots = append(m.sentSlots, cur)
		}
		out = append(out, SlotUpdate{Slot: i, Stack: cur.stack, Enabled: cur.enabled})
	}
	return out
}

// FullState 构造完整快照并把所有字段与槽位记为已发送
func (m *Menu) FullState() (FullState, error) {
	full := FullState{
		Session:               m.id,
		StateID:               m.stateID,
		Carried:               m.carried,
		ReturnedFromSubScreen: m.returnedFromSubScreen,
	}
	if m.sync.HasFields() {
		fields, err := m.sync.WriteFull()
		if err != nil {
			return full, err
		}
		full.Fields = fields
	}
	m.sentSlots = m.sentSlots[:0]
	for _, s := range m.slots.All() {
		if m.slots.IsClientSide(s) {
			continue
		}
		info := SlotInfo{
			Index:      s.Index(),
			PlayerSide: m.slots.IsPlayerSide(s),
			Role:       s.Role().String(),
			Enabled:    s.Enabled(),
			Draggable:  s.Draggable(),
			Stack:      s.Item(),
		}
		if sem := m.slots.Semantic(s); sem != nil {
			info.Semantic = sem.ID()
		}
		full.Slots = append(full.Slots, info)
		m.sentSlots = append(m.sentSlots, slotSnapshot{stack: info.Stack, enabled: info.Enabled})
	}
	m.sentCarried = m.carried
	return full, nil
}

// SendAllDataToRemote 会话（重新）建立时发送完整快照
func (m *Menu) SendAllDataToRemote() (err error) {
	if !m.valid || m.side != ServerSide {
		return nil
	}
	defer m.recoverInto(&err, "full sync")
	full, err := m.FullState()
	if err != nil {
		return err
	}
	if m.transport == nil {
		return nil
	}
	return m.transport.SendFull(full)
}

// InitializeContents 镜像端应用完整快照
func (m *Menu) InitializeContents(full FullState) error {
	for _, info := range full.Slots {
		s, ok := m.slots.Get(info.Index)
		if !ok {
			continue
		}
		s.Set(info.Stack)
		s.SetEnabled(info.Enabled)
	}
	m.SetCarried(full.Carried)
	m.stateID = full.StateID
	m.returnedFromSubScreen = full.ReturnedFromSubScreen
	return m.applyFields(full.Fields)
}

// ReceiveServerSyncData 镜像端应用增量广播
func (m *Menu) ReceiveServerSyncData(u Update) error {
	for _, su := range u.Slots {
		s, ok := m.slots.Get(su.Slot)
		if !ok {
			continue
		}
		s.Set(su.Stack)
		s.SetEnabled(su.Enabled)
	}
	if u.Carried != nil {
		m.SetCarried(*u.Carried)
	}
	m.stateID = u.StateID
	return m.applyFields(u.Fields)
}

func (m *Menu) applyFields(fields []FieldUpdate) error {
	if len(fields) == 0 {
		return nil
	}
	ids, err := m.sync.ReadUpdate(fields)
	if len(ids) > 0 && m.onDataSync != nil {
		m.onDataSync(ids)
	}
	return err
}

// ---- 动作 ----

// ReceiveClientAction 处理对端动作；会话失效后静默忽略
func (m *Menu) ReceiveClientAction(name string, payload json.RawMessage) (err error) {
	if !m.valid {
		m.log.Debugw("ignoring action on invalid menu", "action", name)
		return nil
	}
	defer m.recoverInto(&err, "action "+name)
	return m.actions.Invoke(name, payload)
}

// SendClientAction 校验并序列化参数后交给传输层
func (m *Menu) SendClientAction(name string, arg any) error {
	if !m.valid {
		return ErrSessionInvalid
	}
	payload, err := m.actions.Encode(name, arg)
	if err != nil {
		return err
	}
	if m.transport == nil {
		return ErrNoTransport
	}
	return m.transport.SendAction(ActionEnvelope{Session: m.id, Name: name, Payload: payload})
}

// DoAction 处理结构化库存操作（动作类型、槽位、附加 id）
func (m *Menu) DoAction(action InventoryAction, slotIdx int, id int64) (err error) {
	if !m.valid || m.side != ServerSide {
		return nil
	}
	defer m.recoverInto(&err, "inventory action")
	s, ok := m.slots.Get(slotIdx)
	if !ok {
		return nil
	}
	m.log.Debugw("inventory action", "action", action, "slot", slotIdx, "id", id)

	if s.IsCraftingResult() && action.isCrafting() && s.crafter != nil {
		s.crafter.DoClick(action)
	}

	if s.IsFilterOnly() {
		m.handleFilterSlotAction(s, action)
		return nil
	}

	if g, ok := s.container.(GenericInventory); ok && g.StorageMode() {
		ci := s.ContainerIndex()
		switch action {
		case ActionFillItem, ActionFillEntireItem:
			if what, ok := g.Key(ci); ok {
				src := FillSourceFunc(func(amount int64, mode Mode) int64 {
					return g.Extract(ci, what, amount, mode)
				})
				m.fillHeldItem(src, what, action == ActionFillEntireItem)
			}
		case ActionEmptyItem, ActionEmptyEntireItem:
			sink := DrainSinkFunc(func(what Key, amount int64, mode Mode) int64 {
				return g.Insert(ci, what, amount, mode)
			})
			m.emptyHeldItem(sink, action == ActionEmptyEntireItem)
		}
	}

	switch action {
	case ActionMoveRegion:
		if sem := m.slots.Semantic(s); sem != nil {
			// 先取快照：移动升级卡等物品可能改变槽位集合
			for _, slot := range m.slots.ForSemantic(sem) {
				if m.slots.Contains(slot) {
					m.quickMoveSlot(slot)
				}
			}
		} else {
			m.quickMoveSlot(s)
		}
	case ActionShiftClick:
		m.quickMoveSlot(s)
	}
	return nil
}

func (m *Menu) fillHeldItem(src FillSource, what Key, all bool) {
	if m.held == nil {
		return
	}
	ctx, ok := m.held.FindCarriedContext(&what, &m.carried)
	if !ok {
		return
	}
	m.reportTransfer(m.transfers.Fill(src, ctx, what, all))
}

func (m *Menu) emptyHeldItem(sink DrainSink, all bool) {
	if m.held == nil {
		return
	}
	ctx, ok := m.held.FindCarriedContext(nil, &m.carried)
	if !ok {
		return
	}
	m.reportTransfer(m.transfers.Drain(sink, ctx, all))
}

func (m *Menu) reportTransfer(res TransferResult) {
	if m.onTransfer != nil && (res.Iterations > 0 || res.Anomaly) {
		m.onTransfer(res)
	}
}

func (m *Menu) handleFilterSlotAction(s *Slot, action InventoryAction) {
	hand := m.carried
	switch action {
	case ActionPickupOrSetDown:
		s.increase(hand)
	case ActionPlaceSingle:
		if !hand.IsEmpty() {
			s.increase(hand.WithCount(1))
		}
	case ActionSplitOrPlaceSingle:
		if s.HasItem() {
			s.decrease(hand)
		} else if !hand.IsEmpty() && s.CanSetFilterTo(hand) {
			s.Set(hand.WithCount(1))
		}
	case ActionEmptyItem:
		if m.held == nil {
			return
		}
		if gs, ok := m.held.EmptyingAction(hand); ok {
			s.Set(WrapGeneric(gs))
		}
	}
}
