package heap

import (
	"math"
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func checkInvariant(t *testing.T, h *Heap) {
	t.Helper()
	for i := 1; i < len(h.data); i++ {
		p := (i - 1) / 2
		if h.cmp(h.data[p], h.data[i]) > 0 {
			t.Fatalf("heap invariant broken at %d (parent %d): %v", i, p, h.data)
		}
	}
}

func TestPushPeek(t *testing.T) {
	var tests = []struct {
		name   string
		cmp    Comparator
		values []float64
		root   float64
		second float64
	}{
		{"min", nil, []float64{15, 5, 8, 10}, 5, 8},
		{"max", Descending, []float64{15, 5, 8, 10}, 15, 10},
		{"duplicates", Ascending, []float64{3, 3, 1, 1}, 1, 1},
		{"negative", nil, []float64{-1, -7.5, 2, 0}, -7.5, -1},
	}

	for _, tt := range tests {
		h := New(tt.cmp)
		for _, v := range tt.values {
			h.Push(v)
			checkInvariant(t, h)
		}
		root, err := h.Peek()
		require.NoError(t, err, tt.name)
		assert.Equal(t, tt.root, root, tt.name)

		popped, err := h.Pop()
		require.NoError(t, err, tt.name)
		assert.Equal(t, tt.root, popped, tt.name)

		root, err = h.Peek()
		require.NoError(t, err, tt.name)
		assert.Equal(t, tt.second, root, tt.name)
	}
}

func TestEmpty(t *testing.T) {
	h := New(nil)
	assert.True(t, h.Empty())
	assert.Equal(t, 0, h.Len())

	_, err := h.Peek()
	assert.Equal(t, ErrEmptyCollection, err)
	_, err = h.Pop()
	assert.Equal(t, ErrEmptyCollection, err)
	assert.Equal(t, 0, h.Len())

	h.Push(5)
	assert.False(t, h.Empty())
	_, err = h.Pop()
	require.NoError(t, err)
	assert.True(t, h.Empty())
}

func TestSizeConservation(t *testing.T) {
	h := New(nil)
	h.Push(5)
	assert.Equal(t, 1, h.Len())
	h.Push(10)
	assert.Equal(t, 2, h.Len())
	_, err := h.Pop()
	require.NoError(t, err)
	assert.Equal(t, 1, h.Len())
}

func TestRandomOperations(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for _, cmp := range []Comparator{Ascending, Descending} {
		h := New(cmp)
		size := 0
		for i := 0; i < 2000; i++ {
			if size > 0 && rng.Intn(3) == 0 {
				_, err := h.Pop()
				require.NoError(t, err)
				size--
			} else {
				h.Push(float64(rng.Intn(100)) - 50)
				size++
			}
			if h.Len() != size {
				t.Fatalf("Len()=%d, want %d", h.Len(), size)
			}
			checkInvariant(t, h)
		}
	}
}

func TestSortedExtraction(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	values := make([]float64, 257)
	for i := range values {
		values[i] = rng.NormFloat64() * 100
	}

	min := New(nil)
	max := New(Descending)
	for _, v := range values {
		min.Push(v)
		max.Push(v)
	}

	var ascending, descending []float64
	for !min.Empty() {
		v, err := min.Pop()
		require.NoError(t, err)
		ascending = append(ascending, v)
	}
	for !max.Empty() {
		v, err := max.Pop()
		require.NoError(t, err)
		descending = append(descending, v)
	}

	assert.True(t, sort.Float64sAreSorted(ascending))
	assert.True(t, sort.SliceIsSorted(descending, func(i, j int) bool { return descending[i] > descending[j] }))
	assert.Len(t, ascending, len(values))
	assert.Len(t, descending, len(values))
}

func TestSiftDownPrefersLeftOnTie(t *testing.T) {
	h := New(nil)
	for _, v := range []float64{0, 2, 2, 9} {
		h.Push(v)
	}
	v, err := h.Pop()
	require.NoError(t, err)
	assert.Equal(t, 0.0, v)
	assert.Equal(t, []float64{2, 9, 2}, h.data)
}

func TestNaN(t *testing.T) {
	h := New(nil)
	h.Push(math.NaN())
	root, err := h.Peek()
	require.NoError(t, err)
	assert.True(t, math.IsNaN(root))

	h.Push(1)
	h.Push(math.NaN())
	h.Push(-3)
	assert.Equal(t, 4, h.Len())
	checkInvariant(t, h)

	n := 0
	for !h.Empty() {
		_, err := h.Pop()
		require.NoError(t, err)
		n++
	}
	assert.Equal(t, 4, n)
}

func TestComparators(t *testing.T) {
	assert.Equal(t, -1, Ascending(1, 2))
	assert.Equal(t, 1, Ascending(2, 1))
	assert.Equal(t, 0, Ascending(2, 2))
	assert.Equal(t, 0, Ascending(math.NaN(), 2))
	assert.Equal(t, 1, Descending(1, 2))
	assert.Equal(t, -1, Descending(2, 1))
}
