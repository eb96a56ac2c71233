package menu

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type recordingTransport struct {
	fulls   []FullState
	updates []Update
	actions []ActionEnvelope
}

func (t *recordingTransport) SendFull(f FullState) error {
	t.fulls = append(t.fulls, f)
	return nil
}

func (t *recordingTransport) SendUpdate(u Update) error {
	t.updates = append(t.updates, u)
	return nil
}

func (t *recordingTransport) SendAction(a ActionEnvelope) error {
	t.actions = append(t.actions, a)
	return nil
}

type fakeHost struct {
	valid     bool
	present   bool
	ticks     int
	boundSlot int
	bound     bool
	onTick    func()
}

func newFakeHost() *fakeHost { return &fakeHost{valid: true, present: true} }

func (h *fakeHost) Tick() {
	h.ticks++
	if h.onTick != nil {
		h.onTick()
	}
}

func (h *fakeHost) IsValid() bool      { return h.valid }
func (h *fakeHost) StillPresent() bool { return h.present }

func (h *fakeHost) PlayerInventorySlot() (int, bool) { return h.boundSlot, h.bound }

type fakeRemote struct {
	limit    int
	accepted []ItemStack
}

func (r *fakeRemote) Offer(s ItemStack) int {
	n := min(r.limit, s.Count)
	if n > 0 {
		r.accepted = append(r.accepted, s.WithCount(n))
	}
	return n
}

// fakeGenericInv 单个资源键的通用库存，可配置为存储或配置模式
type fakeGenericInv struct {
	keys     []Key
	amounts  []int64
	capacity int64
	storage  bool
}

func newFakeGenericInv(size int, capacity int64) *fakeGenericInv {
	return &fakeGenericInv{keys: make([]Key, size), amounts: make([]int64, size), capacity: capacity, storage: true}
}

func (g *fakeGenericInv) Size() int { return len(g.keys) }

func (g *fakeGenericInv) Get(i int) ItemStack {
	return WrapGeneric(GenericStack{What: g.keys[i], Amount: g.amounts[i]})
}

func (g *fakeGenericInv) Set(i int, s ItemStack) {
	gs, ok := UnwrapGeneric(s)
	if !ok {
		g.keys[i], g.amounts[i] = Key{}, 0
		return
	}
	g.keys[i], g.amounts[i] = gs.What, gs.Amount
}

func (g *fakeGenericInv) MaxStackSize() int { return DefaultMaxStack }

func (g *fakeGenericInv) Key(i int) (Key, bool) { return g.keys[i], !g.keys[i].IsZero() }

func (g *fakeGenericInv) Extract(i int, what Key, amount int64, mode Mode) int64 {
	if g.keys[i] != what {
		return 0
	}
	n := min(amount, g.amounts[i])
	if mode == Modulate {
		g.amounts[i] -= n
		if g.amounts[i] == 0 {
			g.keys[i] = Key{}
		}
	}
	return n
}

func (g *fakeGenericInv) Insert(i int, what Key, amount int64, mode Mode) int64 {
	if !g.keys[i].IsZero() && g.keys[i] != what {
		return 0
	}
	n := min(amount, g.capacity-g.amounts[i])
	if mode == Modulate && n > 0 {
		g.keys[i] = what
		g.amounts[i] += n
	}
	return n
}

func (g *fakeGenericInv) StorageMode() bool { return g.storage }

// fakeTank 手持储罐，内容保存在测试结构里
type fakeTank struct {
	what     Key
	amount   int64
	capacity int64
}

func (t *fakeTank) Insert(what Key, amount int64, mode Mode) int64 {
	if t.amount > 0 && t.what != what {
		return 0
	}
	n := min(amount, t.capacity-t.amount)
	if mode == Modulate && n > 0 {
		t.what = what
		t.amount += n
	}
	return n
}

func (t *fakeTank) Extract(what Key, amount int64, mode Mode) int64 {
	if t.amount == 0 || t.what != what {
		return 0
	}
	n := min(amount, t.amount)
	if mode == Modulate {
		t.amount -= n
	}
	return n
}

func (t *fakeTank) ExtractableContent() (GenericStack, bool) {
	if t.amount == 0 {
		return GenericStack{}, false
	}
	return GenericStack{What: t.what, Amount: t.amount}, true
}

type fakeHeldStrategy struct {
	tank *fakeTank
}

func (s *fakeHeldStrategy) FindCarriedContext(what *Key, carried *ItemStack) (HeldContext, bool) {
	if carried.Key.ID != "tank" {
		return nil, false
	}
	return s.tank, true
}

func (s *fakeHeldStrategy) EmptyingAction(carried ItemStack) (GenericStack, bool) {
	if carried.Key.ID != "tank" {
		return GenericStack{}, false
	}
	return s.tank.ExtractableContent()
}

type countingEffects struct {
	filled, emptied int
}

func (e *countingEffects) Filled(*Player, Key)  { e.filled++ }
func (e *countingEffects) Emptied(*Player, Key) { e.emptied++ }

var water = Key{Kind: KindFluid, ID: "water"}

func observedLogger() (*zap.SugaredLogger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return zap.New(core).Sugar(), logs
}

func newServerMenu(opts Options) (*Menu, *recordingTransport) {
	tr := &recordingTransport{}
	if opts.Player == nil {
		opts.Player = NewPlayer("alice")
	}
	if opts.ID == "" {
		opts.ID = "s-1"
	}
	opts.Transport = tr
	return New(opts), tr
}
