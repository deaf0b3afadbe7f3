package datastructure

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMinHeapOrder(t *testing.T) {
	for _, d := range []int{2, 4, 8} {
		h := NewdAryHeap[int](d)
		ranks := []float64{5, 3, 9, 1, 7, 2, 8, 6, 4, 0}
		for i, r := range ranks {
			h.Insert(NewPriorityQueueNode(r, i))
		}
		require.Equal(t, len(ranks), h.Size())

		prev := -1.0
		for !h.IsEmpty() {
			node, err := h.ExtractMin()
			require.NoError(t, err)
			assert.GreaterOrEqual(t, node.GetRank(), prev)
			prev = node.GetRank()
		}
		_, err := h.ExtractMin()
		assert.ErrorIs(t, err, ErrEmptyHeap)
	}
}

func TestMinHeapDecreaseKey(t *testing.T) {
	h := NewFourAryHeap[string]()
	a := NewPriorityQueueNode(10.0, "a")
	b := NewPriorityQueueNode(5.0, "b")
	h.Insert(a)
	h.Insert(b)

	require.NoError(t, h.DecreaseKey(a, 1.0))
	min, err := h.GetMin()
	require.NoError(t, err)
	assert.Equal(t, "a", min.GetItem())

	assert.Error(t, h.DecreaseKey(a, 3.0))
}
