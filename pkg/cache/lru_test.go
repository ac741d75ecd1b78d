package cache_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/greenmiles/backend/pkg/cache"
)

func TestLRU_GetPut(t *testing.T) {
	t.Parallel()

	c := cache.NewLRU[int64, string](2)

	_, ok := c.Get(1)
	assert.False(t, ok)

	c.Put(1, "a")
	got, ok := c.Get(1)
	assert.True(t, ok)
	assert.Equal(t, "a", got)

	c.Put(1, "b")
	got, _ = c.Get(1)
	assert.Equal(t, "b", got)
	assert.Equal(t, 1, c.Len())
}

func TestLRU_EvictsOldest(t *testing.T) {
	t.Parallel()

	c := cache.NewLRU[int64, string](2)
	c.Put(1, "a")
	c.Put(2, "b")

	// Touch 1 so 2 becomes the eviction candidate.
	c.Get(1)
	c.Put(3, "c")

	_, ok := c.Get(2)
	assert.False(t, ok)
	_, ok = c.Get(1)
	assert.True(t, ok)
}

func TestLRU_Remove(t *testing.T) {
	t.Parallel()

	c := cache.NewLRU[int64, string](4)
	c.Put(7, "x")

	assert.True(t, c.Remove(7))
	assert.False(t, c.Remove(7))
	assert.Equal(t, 0, c.Len())
}

func TestNewLRU_PanicsOnZeroCapacity(t *testing.T) {
	t.Parallel()

	assert.Panics(t, func() { cache.NewLRU[int, int](0) })
}
