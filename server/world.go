package server

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"menusync/menu"
	"menusync/storage"
)

type inbound struct {
	session string
	msg     ClientMessage
}

type joinRequest struct {
	playerID string
	hostID   string
	conn     *ClientConn
	reply    chan joinResult
}

type joinResult struct {
	sess *Session
	err  error
}

// World 权威世界：所有会话、玩家与宿主都只在 Tick 协程里修改
// 网络读协程只通过 join/leave/inbox 通道与它交互
type World struct {
	cfg        Config
	maxActions atomic.Int64
	hideMu     sync.RWMutex
	hideable   map[string]bool

	network *storage.Network
	tanks   storage.TankStrategy
	journal *Journal
	metrics *Metrics

	stations map[string]Station
	players  map[string]*menu.Player
	sessions map[string]*Session

	inbox     chan inbound
	leaveChan chan string
	joinChan  chan joinRequest

	tickSeq  atomic.Int64
	active   atomic.Int64 // 当前会话数，供其他协程读取
	started  bool
	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

// NewWorld 创建世界并注册默认宿主（drive-1 与便携终端）
func NewWorld(cfg Config, journal *Journal) *World {
	w := &World{
		cfg:       cfg,
		network:   storage.NewNetwork(cfg.Network.Capacity),
		tanks:     storage.TankStrategy{Capacity: cfg.Tank.Capacity},
		journal:   journal,
		metrics:   &Metrics{},
		stations:  make(map[string]Station),
		players:   make(map[string]*menu.Player),
		sessions:  make(map[string]*Session),
		inbox:     make(chan inbound, 1024), // 足够缓冲，避免网络读阻塞影响 Tick
		leaveChan: make(chan string, 256),
		joinChan:  make(chan joinRequest, 64),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
	w.maxActions.Store(int64(cfg.MaxActionsPerTick))
	w.setHideable(cfg.HideableSemantics)

	drive := NewDriveStation("drive-1", w.network)
	drive.Fluids().Insert(0, menu.Key{Kind: menu.KindFluid, ID: "water"}, 8000, menu.Modulate)
	w.AddStation(drive)
	w.AddStation(NewPortableCell(w.network))
	return w
}

// AddStation 注册宿主；只能在 Start 之前调用
func (w *World) AddStation(s Station) {
	w.stations[s.ID()] = s
}

func (w *World) Network() *storage.Network { return w.network }

func (w *World) Metrics() *Metrics { return w.metrics }

func (w *World) TickSeq() int64 { return w.tickSeq.Load() }

func (w *World) SessionCount() int { return int(w.active.Load()) }

// ---- 运行期配置 ----

func (w *World) MaxActionsPerTick() int { return int(w.maxActions.Load()) }

func (w *World) SetMaxActionsPerTick(n int) {
	if n > 0 {
		w.maxActions.Store(int64(n))
	}
}

func (w *World) HideableSemantics() []string {
	w.hideMu.RLock()
	defer w.hideMu.RUnlock()
	out := make([]string, 0, len(w.hideable))
	for id := range w.hideable {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}

// SetHideableSemantics 未知语义返回错误且不修改
func (w *World) SetHideableSemantics(ids []string) error {
	for _, id := range ids {
		if _, ok := menu.SemanticByID(id); !ok {
			return fmt.Errorf("%w: unknown slot semantic %q", ErrBadRequest, id)
		}
	}
	w.setHideable(ids)
	return nil
}

func (w *World) setHideable(ids []string) {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	w.hideMu.Lock()
	w.hideable = set
	w.hideMu.Unlock()
}

func (w *World) canHide(sem *menu.SlotSemantic) bool {
	w.hideMu.RLock()
	defer w.hideMu.RUnlock()
	return w.hideable[sem.ID()]
}

// ---- 网络协程入口 ----

// Join 请求在 Tick 协程中为玩家打开宿主界面，并等待结果
func (w *World) Join(ctx context.Context, playerID, hostID string, conn *ClientConn) (*Session, error) {
	req := joinRequest{playerID: playerID, hostID: hostID, conn: conn, reply: make(chan joinResult, 1)}
	select {
	case w.joinChan <- req:
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-w.done:
		return nil, menu.ErrSessionInvalid
	}
	select {
	case res := <-req.reply:
		return res.sess, res.err
	case <-ctx.Done():
		// 会话可能已经建立，交给 Tick 协程关闭
		go func() {
			select {
			case res := <-req.reply:
				if res.sess != nil {
					w.RequestLeave(res.sess.ID)
				}
			case <-w.done:
			}
		}()
		return nil, ctx.Err()
	}
}

// Submit 入站消息（不立即处理），等下一次 Tick 处理
func (w *World) Submit(sessionID string, msg ClientMessage) {
	select {
	case w.inbox <- inbound{session: sessionID, msg: msg}:
	default:
		// 丢弃：为了实时性，避免背压影响世界推进
		w.metrics.IncInboxFullDiscarded()
	}
}

// RequestLeave 请求在 Tick 协程中关闭会话
func (w *World) RequestLeave(sessionID string) {
	select {
	case w.leaveChan <- sessionID:
	case <-w.done:
	}
}

// ---- Tick 协程 ----

// BeginTick 重置帧内状态
func (w *World) BeginTick() {
	w.tickSeq.Add(1)
	for _, s := range w.stations {
		if r, ok := s.(tickResetter); ok {
			r.BeginTick()
		}
	}
	for _, sess := range w.sessions {
		sess.actionsThisTick = 0
	}
}

// ProcessInputs 非阻塞地处理本帧的加入、离开与入站消息
func (w *World) ProcessInputs() {
	// 最多处理一个收件箱容量，避免生产者过快时本帧无法结束
	for budget := cap(w.inbox); budget > 0; budget-- {
		select {
		case req := <-w.joinChan:
			sess, err := w.openSession(req)
			req.reply <- joinResult{sess: sess, err: err}
		case id := <-w.leaveChan:
			if sess, ok := w.sessions[id]; ok {
				w.closeSession(sess, "connection closed")
			}
		case in := <-w.inbox:
			w.dispatch(in)
		default:
			return
		}
	}
}

// UpdateWorld 推进宿主并广播差量；失效的会话被关闭
func (w *World) UpdateWorld() {
	for _, id := range w.sessionIDs() {
		sess := w.sessions[id]
		m := sess.Menu
		if sess.resync {
			sess.resync = false
			if err := m.SendAllDataToRemote(); err != nil {
				Log.Errorw("full resync failed", "session", id, "err", err)
			}
		}
		if err := m.BroadcastChanges(); err != nil {
			Log.Errorw("broadcast failed", "session", id, "err", err)
		}
		if !m.IsValid() {
			w.metrics.IncSessionsInvalidated()
			sess.send(errorMessage(id, ErrCodeSessionInvalid, "menu is no longer valid"))
			w.closeSession(sess, "menu invalidated")
		}
	}
}

// Step 执行一次完整 Tick：处理输入 → 更新世界 → 广播结果
func (w *World) Step() {
	start := time.Now()
	w.BeginTick()
	w.ProcessInputs()
	w.UpdateWorld()
	w.metrics.AddTick(time.Since(start).Nanoseconds())
}

func (w *World) sessionIDs() []string {
	ids := make([]string, 0, len(w.sessions))
	for id := range w.sessions {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// player 玩家背包在会话之间保留；新玩家获得一套初始物品
func (w *World) player(id string) *menu.Player {
	if p, ok := w.players[id]; ok {
		return p
	}
	p := menu.NewPlayer(id)
	inv := p.Inventory
	inv.Set(0, storage.NewTank(menu.Key{}, 0))
	inv.Set(1, menu.ItemStack{Key: menu.ItemKey{ID: PortableCellID}, Count: 1, MaxStack: 1})
	inv.Set(menu.HotbarSize, menu.NewStack("cobblestone", 32))
	inv.Set(menu.HotbarSize+1, menu.NewStack(SpeedCardID, 2))
	w.players[id] = p
	return p
}

func (w *World) openSession(req joinRequest) (*Session, error) {
	station, ok := w.stations[req.hostID]
	if !ok {
		return nil, fmt.Errorf("%w: host %q", ErrNotFound, req.hostID)
	}
	p := w.player(req.playerID)
	p.RestorePending()
	view, err := station.Open(p)
	if err != nil {
		return nil, fmt.Errorf("open %s for %s: %w", req.hostID, req.playerID, err)
	}

	sess := &Session{ID: uuid.NewString(), PlayerID: req.playerID, HostID: req.hostID, conn: req.conn}
	opts := menu.Options{
		ID:         sess.ID,
		Side:       menu.ServerSide,
		Player:     p,
		Host:       view,
		Transport:  sessionTransport{sess: sess},
		HeldItems:  w.tanks,
		Effects:    sessionEffects{sess: sess},
		CanHide:    w.canHide,
		OnTransfer: w.transferRecorder(sess),
		Logger:     Log.With("player", req.playerID, "host", req.hostID),
	}
	if r, ok := view.(interface{ Remote() menu.RemoteAcceptor }); ok {
		opts.Remote = r.Remote()
	}
	m := menu.New(opts)
	view.Bind(m)
	sess.Menu = m
	w.sessions[sess.ID] = sess
	w.active.Add(1)
	w.metrics.IncSessionsOpened()
	Log.Infow("session opened", "session", sess.ID, "player", req.playerID, "host", req.hostID)

	if err := m.SendAllDataToRemote(); err != nil {
		Log.Errorw("initial full sync failed", "session", sess.ID, "err", err)
	}
	return sess, nil
}

func (w *World) closeSession(sess *Session, reason string) {
	delete(w.sessions, sess.ID)
	w.active.Add(-1)
	sess.Menu.Removed()
	sess.Menu.Invalidate(reason)
	sess.close()
	Log.Infow("session closed", "session", sess.ID, "player", sess.PlayerID, "reason", reason)
}

func (w *World) transferRecorder(sess *Session) func(menu.TransferResult) {
	return func(res menu.TransferResult) {
		w.metrics.AddTransfer(res.Anomaly)
		if w.journal == nil {
			return
		}
		rec := TransferRecord{
			Time:           time.Now().UTC(),
			Tick:           w.TickSeq(),
			Session:        sess.ID,
			Player:         sess.PlayerID,
			Host:           sess.HostID,
			TransferResult: res,
		}
		if err := w.journal.Record(rec); err != nil {
			Log.Errorw("failed to write transfer journal", "err", err)
		}
	}
}

// dispatch 处理一条入站消息；错误以 error 消息回送
func (w *World) dispatch(in inbound) {
	sess, ok := w.sessions[in.session]
	if !ok {
		return
	}
	if in.msg.Session != "" && in.msg.Session != sess.ID {
		w.metrics.IncRejected()
		sess.send(errorMessage(sess.ID, ErrCodeSessionInvalid, "session mismatch"))
		return
	}
	if sess.actionsThisTick >= w.MaxActionsPerTick() {
		w.metrics.IncRateLimited()
		sess.send(errorMessage(sess.ID, ErrCodeRateLimit, "too many actions this tick"))
		return
	}
	sess.actionsThisTick++

	if err := w.handle(sess, in.msg); err != nil {
		w.metrics.IncRejected()
		Log.Debugw("rejected client message", "session", sess.ID, "type", in.msg.Type, "err", err)
		sess.sendError(err)
		return
	}
	w.metrics.IncAccepted()
}

func (w *World) handle(sess *Session, msg ClientMessage) error {
	m := sess.Menu
	switch msg.Type {
	case TypeAction:
		payload := msg.Payload
		if string(payload) == "null" {
			payload = nil
		}
		return m.ReceiveClientAction(msg.Name, payload)
	case TypeClick:
		click, ok := menu.ParseClickType(msg.Click)
		if !ok {
			return fmt.Errorf("%w: unknown click type %q", ErrBadRequest, msg.Click)
		}
		return m.Clicked(msg.Slot, msg.Button, click)
	case TypeInventoryAction:
		action, ok := menu.ParseInventoryAction(msg.Action)
		if !ok {
			return fmt.Errorf("%w: unknown inventory action %q", ErrBadRequest, msg.Action)
		}
		return m.DoAction(action, msg.Slot, msg.ID)
	case TypeSwap:
		m.SwapSlotContents(msg.A, msg.B)
		return nil
	case TypeSetFilter:
		if msg.Stack == nil {
			return fmt.Errorf("%w: set_filter requires a stack", ErrBadRequest)
		}
		m.SetFilter(msg.Slot, *msg.Stack)
		return nil
	case TypeResync:
		m.SetReturnedFromSubScreen(true)
		return m.SendAllDataToRemote()
	case TypeClose:
		w.closeSession(sess, "closed by client")
		return nil
	default:
		return fmt.Errorf("%w: unknown message type %q", ErrBadRequest, msg.Type)
	}
}
