package server

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"menusync/menu"
	"menusync/storage"
)

// wireMessage 测试端解码出站消息
type wireMessage struct {
	Type    string          `json:"type"`
	Session string          `json:"session"`
	Data    json.RawMessage `json:"data"`
	Code    string          `json:"code"`
	Message string          `json:"message"`
}

// drain 取出连接发送队列中已有的消息（不含 WebSocket）
func drain(t *testing.T, c *ClientConn) []wireMessage {
	t.Helper()
	var out []wireMessage
	for {
		select {
		case b, ok := <-c.send:
			if !ok {
				return out
			}
			var m wireMessage
			require.NoError(t, json.Unmarshal(b, &m))
			out = append(out, m)
		default:
			return out
		}
	}
}

func ofType(msgs []wireMessage, typ string) []wireMessage {
	var out []wireMessage
	for _, m := range msgs {
		if m.Type == typ {
			out = append(out, m)
		}
	}
	return out
}

var water = menu.Key{Kind: menu.KindFluid, ID: "water"}

// 驱动器界面的槽位布局：玩家 36 格、物品 9 格、流体 4 格、过滤 4 格、升级 2 格
const (
	firstDriveItemSlot   = menu.PlayerMainSize
	firstDriveFluidSlot  = firstDriveItemSlot + driveItemSlots
	firstDriveFilterSlot = firstDriveFluidSlot + driveFluidSlots
)

func newTestWorld(t *testing.T) *World {
	t.Helper()
	return NewWorld(DefaultConfig(), nil)
}

func open(t *testing.T, w *World, player, host string) (*Session, *ClientConn) {
	t.Helper()
	conn := NewClientConn(nil)
	sess, err := w.openSession(joinRequest{playerID: player, hostID: host, conn: conn})
	require.NoError(t, err)
	return sess, conn
}

func drive(w *World) *DriveStation { return w.stations["drive-1"].(*DriveStation) }

func TestWorld_OpenSendsFullState(t *testing.T) {
	w := newTestWorld(t)
	sess, conn := open(t, w, "alice", "drive-1")

	msgs := drain(t, conn)
	require.Len(t, msgs, 1)
	assert.Equal(t, TypeFull, msgs[0].Type)
	assert.Equal(t, sess.ID, msgs[0].Session)

	var full menu.FullState
	require.NoError(t, json.Unmarshal(msgs[0].Data, &full))
	assert.Len(t, full.Slots, firstDriveFilterSlot+driveFilterSlots+driveUpgradeSize)
	assert.Len(t, full.Fields, 3)
	assert.Equal(t, int64(1), w.metrics.SessionsOpened)
}

func TestWorld_OpenUnknownHost(t *testing.T) {
	w := newTestWorld(t)
	_, err := w.openSession(joinRequest{playerID: "alice", hostID: "nope", conn: NewClientConn(nil)})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, ErrCodeNotFound, ErrorCode(err))
}

func TestWorld_PortableCellRequiresItem(t *testing.T) {
	w := newTestWorld(t)
	w.player("bob").Inventory.Set(1, menu.EmptyStack)
	_, err := w.openSession(joinRequest{playerID: "bob", hostID: "portable", conn: NewClientConn(nil)})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestWorld_FillTankFromDrive(t *testing.T) {
	w := newTestWorld(t)
	sess, conn := open(t, w, "alice", "drive-1")
	drain(t, conn)

	w.Submit(sess.ID, ClientMessage{Type: TypeClick, Slot: 0, Button: 0, Click: "pickup"})
	w.Submit(sess.ID, ClientMessage{Type: TypeInventoryAction, Slot: firstDriveFluidSlot, Action: "FILL_ENTIRE_ITEM"})
	w.Step()

	gs, ok := storage.TankContents(sess.Menu.Carried())
	require.True(t, ok)
	assert.Equal(t, water, gs.What)
	assert.Equal(t, int64(8000), gs.Amount)
	_, ok = drive(w).Fluids().Key(0)
	assert.False(t, ok, "drive slot is empty")
	assert.Equal(t, int64(1), w.metrics.Transfers)
	assert.Equal(t, int64(2), w.metrics.ActionsAccepted)

	msgs := drain(t, conn)
	require.Len(t, ofType(msgs, TypeEffect), 1)
	updates := ofType(msgs, TypeUpdate)
	require.Len(t, updates, 1)
	var u menu.Update
	require.NoError(t, json.Unmarshal(updates[0].Data, &u))
	require.NotNil(t, u.Carried)
	assert.Equal(t, storage.TankItemID, u.Carried.Key.ID)
}

func TestWorld_RejectedMessagesGetErrorCodes(t *testing.T) {
	w := newTestWorld(t)
	sess, conn := open(t, w, "alice", "drive-1")
	drain(t, conn)

	w.Submit(sess.ID, ClientMessage{Type: TypeAction, Name: "Nope"})
	w.Submit(sess.ID, ClientMessage{Type: TypeClick, Click: "double"})
	w.Submit(sess.ID, ClientMessage{Type: "teleport"})
	w.Submit(sess.ID, ClientMessage{Type: TypeSwap, Session: "other", A: 0, B: 1})
	w.Step()

	errs := ofType(drain(t, conn), TypeError)
	require.Len(t, errs, 4)
	assert.Equal(t, ErrCodeUnknownAction, errs[0].Code)
	assert.Equal(t, ErrCodeBadRequest, errs[1].Code)
	assert.Equal(t, ErrCodeBadRequest, errs[2].Code)
	assert.Equal(t, ErrCodeSessionInvalid, errs[3].Code)
	assert.Equal(t, int64(4), w.metrics.ActionsRejected)
	assert.True(t, sess.Menu.IsValid())
}

func TestWorld_RateLimitPerSession(t *testing.T) {
	w := newTestWorld(t)
	w.SetMaxActionsPerTick(1)
	sess, conn := open(t, w, "alice", "drive-1")
	drain(t, conn)

	w.Submit(sess.ID, ClientMessage{Type: TypeSwap, A: 0, B: 1})
	w.Submit(sess.ID, ClientMessage{Type: TypeSwap, A: 0, B: 1})
	w.Step()

	assert.Equal(t, int64(1), w.metrics.RateLimited)
	errs := ofType(drain(t, conn), TypeError)
	require.Len(t, errs, 1)
	assert.Equal(t, ErrCodeRateLimit, errs[0].Code)
}

func TestWorld_HideSlotFollowsConfig(t *testing.T) {
	w := newTestWorld(t)
	sess, conn := open(t, w, "alice", "drive-1")
	drain(t, conn)

	w.Submit(sess.ID, ClientMessage{Type: TypeAction, Name: "HideSlot", Payload: json.RawMessage(`"STORAGE"`)})
	w.Submit(sess.ID, ClientMessage{Type: TypeAction, Name: "HideSlot", Payload: json.RawMessage(`"UPGRADE"`)})
	w.Step()

	for _, s := range sess.Menu.SlotsFor(menu.SemanticStorage) {
		assert.True(t, s.Enabled())
	}
	for _, s := range sess.Menu.SlotsFor(menu.SemanticUpgrade) {
		assert.False(t, s.Enabled())
	}
}

func TestWorld_BrokenHostClosesSessions(t *testing.T) {
	w := newTestWorld(t)
	a, connA := open(t, w, "alice", "drive-1")
	_, connB := open(t, w, "bob", "drive-1")
	drain(t, connA)
	drain(t, connB)

	drive(w).Break()
	w.Step()

	assert.Empty(t, w.sessions)
	assert.False(t, a.Menu.IsValid())
	assert.Equal(t, int64(2), w.metrics.SessionsInvalidated)
	errs := ofType(drain(t, connA), TypeError)
	require.Len(t, errs, 1)
	assert.Equal(t, ErrCodeSessionInvalid, errs[0].Code)
	assert.False(t, connA.Enqueue([]byte("late")), "connection is closed")
}

func TestWorld_DriveExportsFilteredFluid(t *testing.T) {
	w := newTestWorld(t)
	open(t, w, "alice", "drive-1")
	open(t, w, "bob", "drive-1")
	d := drive(w)
	d.Filters().SetStack(0, menu.GenericStack{What: water, Amount: 1})
	d.Upgrades().Set(0, menu.NewStack(SpeedCardID, 1))

	w.Step()
	assert.Equal(t, int64(exportPerCard), w.network.Amount(water), "shared host advances once per tick")
	w.Step()
	assert.Equal(t, int64(2*exportPerCard), w.network.Amount(water))
}

func TestWorld_ClearFiltersAction(t *testing.T) {
	w := newTestWorld(t)
	sess, _ := open(t, w, "alice", "drive-1")
	d := drive(w)
	d.Filters().SetStack(2, menu.GenericStack{What: water, Amount: 1})

	w.Submit(sess.ID, ClientMessage{Type: TypeAction, Name: "ClearFilters", Payload: json.RawMessage(`null`)})
	w.Step()
	_, ok := d.Filters().Key(2)
	assert.False(t, ok)
}

func TestWorld_SetFilterFromTank(t *testing.T) {
	w := newTestWorld(t)
	sess, _ := open(t, w, "alice", "drive-1")

	sess.Menu.SetCarried(storage.NewTank(water, 500))
	w.Submit(sess.ID, ClientMessage{Type: TypeInventoryAction, Slot: firstDriveFilterSlot + 1, Action: "EMPTY_ITEM"})
	w.Step()

	k, ok := drive(w).Filters().Key(1)
	require.True(t, ok)
	assert.Equal(t, water, k)
	gs, _ := storage.TankContents(sess.Menu.Carried())
	assert.Equal(t, int64(500), gs.Amount, "setting a filter leaves the tank untouched")
}

func TestWorld_PortableCellQuickMoveAndWithdraw(t *testing.T) {
	w := newTestWorld(t)
	sess, conn := open(t, w, "alice", "portable")
	drain(t, conn)
	cobble := menu.Key{Kind: menu.KindItem, ID: "cobblestone"}

	w.Submit(sess.ID, ClientMessage{Type: TypeClick, Slot: menu.HotbarSize, Click: "quick_move"})
	w.Step()
	assert.Equal(t, int64(32), w.network.Amount(cobble))
	assert.True(t, sess.Menu.Player().Inventory.Get(menu.HotbarSize).IsEmpty())

	w.Submit(sess.ID, ClientMessage{Type: TypeAction, Name: "Withdraw", Payload: json.RawMessage(`{"item":"cobblestone","count":100}`)})
	w.Submit(sess.ID, ClientMessage{Type: TypeAction, Name: "Withdraw", Payload: json.RawMessage(`{"item":"cobblestone","count":10}`)})
	w.Step()
	assert.Equal(t, 10, sess.Menu.Carried().Count)
	assert.Equal(t, int64(22), w.network.Amount(cobble))
	errs := ofType(drain(t, conn), TypeError)
	require.Len(t, errs, 1, "schema rejects the oversized request")
	assert.Equal(t, ErrCodeBadRequest, errs[0].Code)
}

func TestWorld_PortableCellSlotIsLockedAndWatched(t *testing.T) {
	w := newTestWorld(t)
	sess, _ := open(t, w, "alice", "portable")
	slot, ok := sess.Menu.Slot(1)
	require.True(t, ok)
	assert.True(t, slot.IsDisabled())

	sess.Menu.Player().Inventory.Set(1, menu.EmptyStack)
	w.Step()
	assert.False(t, sess.Menu.IsValid())
	assert.Empty(t, w.sessions)
}

func TestWorld_ResyncMarksReturnedFromSubScreen(t *testing.T) {
	w := newTestWorld(t)
	sess, conn := open(t, w, "alice", "drive-1")
	drain(t, conn)

	w.Submit(sess.ID, ClientMessage{Type: TypeResync})
	w.Step()
	fulls := ofType(drain(t, conn), TypeFull)
	require.Len(t, fulls, 1)
	var full menu.FullState
	require.NoError(t, json.Unmarshal(fulls[0].Data, &full))
	assert.True(t, full.ReturnedFromSubScreen)
}

func TestWorld_LeaveAndClose(t *testing.T) {
	w := newTestWorld(t)
	a, _ := open(t, w, "alice", "drive-1")
	b, connB := open(t, w, "bob", "drive-1")

	w.RequestLeave(a.ID)
	w.Submit(b.ID, ClientMessage{Type: TypeClose})
	w.Step()

	assert.Empty(t, w.sessions)
	assert.False(t, b.Menu.IsValid())
	assert.False(t, connB.Enqueue([]byte("x")))
	assert.Equal(t, int64(0), w.metrics.SessionsInvalidated, "explicit closes are not invalidations")
}

func countItem(inv *menu.PlayerInventory, id string) int {
	n := 0
	for i := 0; i < inv.Size(); i++ {
		if s := inv.Get(i); s.Key.ID == id {
			n += s.Count
		}
	}
	return n
}

func TestWorld_CloseReturnsCarriedStack(t *testing.T) {
	w := newTestWorld(t)
	sess, _ := open(t, w, "alice", "drive-1")
	inv := sess.Menu.Player().Inventory

	w.Submit(sess.ID, ClientMessage{Type: TypeClick, Slot: menu.HotbarSize, Click: "pickup"})
	w.Step()
	require.Equal(t, 32, sess.Menu.Carried().Count)

	w.Submit(sess.ID, ClientMessage{Type: TypeClose})
	w.Step()
	assert.Empty(t, w.sessions)
	assert.Equal(t, 32, countItem(inv, "cobblestone"))
}

func TestWorld_InvalidatedSessionReturnsFilledTank(t *testing.T) {
	w := newTestWorld(t)
	sess, _ := open(t, w, "alice", "drive-1")

	w.Submit(sess.ID, ClientMessage{Type: TypeClick, Slot: 0, Click: "pickup"})
	w.Submit(sess.ID, ClientMessage{Type: TypeInventoryAction, Slot: firstDriveFluidSlot, Action: "FILL_ENTIRE_ITEM"})
	w.Step()
	require.Equal(t, storage.TankItemID, sess.Menu.Carried().Key.ID)

	drive(w).Break()
	w.Step()
	assert.Empty(t, w.sessions)

	gs, ok := storage.TankContents(sess.Menu.Player().Inventory.Get(0))
	require.True(t, ok, "tank is back in its slot")
	assert.Equal(t, water, gs.What)
	assert.Equal(t, int64(8000), gs.Amount)
}

func TestWorld_PendingStacksRestoredOnNextOpen(t *testing.T) {
	w := newTestWorld(t)
	p := w.player("alice")
	p.Pending = []menu.ItemStack{menu.NewStack("gold", 5)}

	open(t, w, "alice", "drive-1")
	assert.Empty(t, p.Pending)
	assert.Equal(t, 5, countItem(p.Inventory, "gold"))
}
