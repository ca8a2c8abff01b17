package lattice

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGridNearest(t *testing.T) {
	positions := []Vec3{
		{0, 0, 0},
		{1, 0, 0},
		{0.5, 0.8660254, 0},
		{-2, 3, 1},
	}
	g := NewGridFrom(positions, 2e-6)

	t.Run("ExactHit", func(t *testing.T) {
		id, pos, ok := g.Nearest(Vec3{1, 0, 0}, 1e-6)
		require.True(t, ok)
		assert.Equal(t, 1, id)
		assert.Equal(t, positions[1], pos)
	})

	t.Run("WithinTolerance", func(t *testing.T) {
		id, _, ok := g.Nearest(Vec3{0.5 + 3e-7, 0.8660254, 0}, 1e-6)
		require.True(t, ok)
		assert.Equal(t, 2, id)
	})

	t.Run("Miss", func(t *testing.T) {
		_, _, ok := g.Nearest(Vec3{0.5, 0, 0}, 1e-6)
		assert.False(t, ok)
	})

	t.Run("NearestWins", func(t *testing.T) {
		// Wide radius covering several sites: the closest one is returned.
		id, _, ok := g.Nearest(Vec3{0.9, 0.05, 0}, 1.5)
		require.True(t, ok)
		assert.Equal(t, 1, id)
	})

	t.Run("WideRadiusBeyondCell", func(t *testing.T) {
		id, _, ok := g.Nearest(Vec3{-2.4, 3.4, 1.2}, 2.0)
		require.True(t, ok)
		assert.Equal(t, 3, id)
	})
}

func TestGridLenAndContains(t *testing.T) {
	g := NewGrid(1e-6)
	assert.Equal(t, 0, g.Len())

	g.Insert(0, Vec3{0, 0, 0})
	g.Insert(1, Vec3{1, 1, 1})
	assert.Equal(t, 2, g.Len())

	assert.True(t, g.Contains(Vec3{0, 0, 0}, 1e-6))
	assert.False(t, g.Contains(Vec3{0.5, 0, 0}, 1e-6))
}
