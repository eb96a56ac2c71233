package menu

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlotRegistry_AddAssignsSequentialIndices(t *testing.T) {
	c := NewSimpleContainer(3)
	r := NewSlotRegistry(nil)
	for i := 0; i < 3; i++ {
		s := r.Add(NewSlot(c, i), SemanticStorage)
		assert.Equal(t, i, s.Index())
	}
	assert.Len(t, r.ForSemantic(SemanticStorage), 3)
	assert.Empty(t, r.ForSemantic(SemanticUpgrade))
}

func TestSlotRegistry_AddTwicePanics(t *testing.T) {
	r := NewSlotRegistry(nil)
	s := NewSlot(NewSimpleContainer(1), 0)
	r.Add(s, SemanticStorage)
	assert.Panics(t, func() { r.Add(s, SemanticStorage) })
}

func TestSlotRegistry_PlayerSide(t *testing.T) {
	p := NewPlayer("alice")
	r := NewSlotRegistry(p.Inventory)
	other := NewSimpleContainer(2)

	inv := r.Add(NewSlot(p.Inventory, 0), nil)
	toolbox := r.Add(NewSlot(other, 0), SemanticToolbox)
	storage := r.Add(NewSlot(other, 1), SemanticStorage)

	assert.True(t, r.IsPlayerSide(inv), "player inventory container is always player side")
	assert.True(t, r.IsPlayerSide(toolbox), "semantic flagged player side")
	assert.False(t, r.IsPlayerSide(storage))
}

func TestSlotRegistry_ClientSideSlotsStayContiguous(t *testing.T) {
	c := NewSimpleContainer(64)
	r := NewSlotRegistry(nil)
	for i := 0; i < 4; i++ {
		r.Add(NewSlot(c, i), SemanticStorage)
	}

	rng := rand.New(rand.NewSource(7))
	var clientSlots []*Slot
	next := 4
	for step := 0; step < 200; step++ {
		if len(clientSlots) == 0 || rng.Intn(2) == 0 {
			s := NewSlot(c, next%c.Size())
			next++
			require.NoError(t, r.AddClientSide(s, SemanticConfig))
			clientSlots = append(clientSlots, s)
		} else {
			i := rng.Intn(len(clientSlots))
			require.NoError(t, r.RemoveClientSide(clientSlots[i]))
			assert.Equal(t, -1, clientSlots[i].Index())
			clientSlots = append(clientSlots[:i], clientSlots[i+1:]...)
		}
		for i, s := range r.All() {
			require.Equal(t, i, s.Index(), "step %d", step)
		}
		assert.Len(t, r.ForSemantic(SemanticConfig), len(clientSlots))
	}
}

func TestSlotRegistry_RemoveClientSideErrors(t *testing.T) {
	c := NewSimpleContainer(2)
	r := NewSlotRegistry(nil)
	server := r.Add(NewSlot(c, 0), SemanticStorage)

	assert.ErrorIs(t, r.RemoveClientSide(server), ErrNotClientSideSlot)
	assert.ErrorIs(t, r.RemoveClientSide(NewSlot(c, 1)), ErrSlotNotPresent)

	cs := NewSlot(c, 1)
	require.NoError(t, r.AddClientSide(cs, nil))
	assert.ErrorIs(t, r.AddClientSide(cs, nil), ErrSlotExists)
	assert.True(t, r.IsClientSide(cs))
}

func TestSemanticCatalog(t *testing.T) {
	s, ok := SemanticByID("UPGRADE")
	require.True(t, ok)
	assert.Same(t, SemanticUpgrade, s)
	assert.Equal(t, 1, s.QuickMovePriority())
	assert.True(t, SemanticPlayerHotbar.PlayerSide())

	_, ok = SemanticByID("NOPE")
	assert.False(t, ok)
}
