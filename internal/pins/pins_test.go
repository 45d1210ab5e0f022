package pins_test

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeblew999/plat-schoolmap/internal/pins"
)

func TestManager_AddKeepsOrder(t *testing.T) {
	m := pins.NewManager()
	a := m.Add(orb.Point{-78.9, 35.99}, "120 Morris St, Durham")
	b := m.Add(orb.Point{-78.8, 36.01}, "Home")

	assert.Equal(t, []*pins.Pin{a, b}, m.List())
	assert.Empty(t, a.Label)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestManager_RemoveByIdentity(t *testing.T) {
	m := pins.NewManager()
	a := m.Add(orb.Point{1, 1}, "same")
	b := m.Add(orb.Point{1, 1}, "same")
	c := m.Add(orb.Point{2, 2}, "other")

	require.True(t, m.Remove(b))
	assert.Equal(t, []*pins.Pin{a, c}, m.List())

	assert.False(t, m.Remove(b), "already removed")
	assert.False(t, m.Remove(&pins.Pin{ID: a.ID}), "equal value is not the same pin")
	assert.Equal(t, 2, m.Len())
}

func TestManager_Clear(t *testing.T) {
	m := pins.NewManager()
	m.Clear()
	assert.Zero(t, m.Len())

	m.Add(orb.Point{1, 1}, "a")
	m.Add(orb.Point{2, 2}, "b")
	m.Clear()
	assert.Empty(t, m.List())
}

func TestManager_Relabel(t *testing.T) {
	m := pins.NewManager()
	p := m.Add(orb.Point{1, 1}, "a")

	got, err := m.Relabel(p.ID, "Grandma")
	require.NoError(t, err)
	assert.Same(t, p, got)
	assert.Equal(t, "Grandma", p.Label)

	_, err = m.Relabel("missing", "x")
	assert.ErrorIs(t, err, pins.ErrNotFound)
}

func TestManager_ListIsACopy(t *testing.T) {
	m := pins.NewManager()
	m.Add(orb.Point{1, 1}, "a")

	list := m.List()
	list[0] = nil
	assert.NotNil(t, m.List()[0])
}

func TestCoordinateAddress(t *testing.T) {
	assert.Equal(t, "35.99661, -78.90170", pins.CoordinateAddress(35.996612, -78.9017))
}
