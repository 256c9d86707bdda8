package slicer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorklist_FIFOWithDedup(t *testing.T) {
	t.Parallel()
	seen := map[int64]bool{}
	w := newWorklist(func(id int64) bool { return seen[id] }, func(e *Entity) { seen[e.ID] = true })

	assert.True(t, w.push(&Entity{ID: 1}))
	assert.True(t, w.push(&Entity{ID: 2}))
	assert.False(t, w.push(&Entity{ID: 1}))
	assert.Equal(t, 2, w.len())

	e, ok := w.pop()
	require.True(t, ok)
	assert.Equal(t, int64(1), e.ID)

	// Pushed after pop: still served after 2.
	assert.True(t, w.push(&Entity{ID: 3}))
	e, _ = w.pop()
	assert.Equal(t, int64(2), e.ID)
	e, _ = w.pop()
	assert.Equal(t, int64(3), e.ID)

	_, ok = w.pop()
	assert.False(t, ok)
	assert.Zero(t, w.len())

	// Popped entities stay seen.
	assert.False(t, w.push(&Entity{ID: 2}))
}
