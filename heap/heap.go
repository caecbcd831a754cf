// pricemedian - Daily median of intraday price series
// Authors: Guillaume Lefranc <guillaume@signal18.io>
//          Stephane Varoqui  <svaroqui@gmail.com>
// This source code is licensed under the GNU General Public License, version 3.

// Package heap implements an array backed binary heap of float64 values
// ordered by an injected comparator.
package heap

import (
	"github.com/juju/errors"
)

// ErrEmptyCollection is returned when the root of an empty collection is requested.
var ErrEmptyCollection = errors.New("empty collection")

// Comparator returns a negative number when a sorts before b, a positive
// number when b sorts before a and zero otherwise.
type Comparator func(a, b float64) int

// Ascending is the natural floating point ordering. NaN compares neither less
// nor greater than anything, so it is never moved by a sift.
func Ascending(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// Descending inverts Ascending and turns a Heap into a max-heap.
func Descending(a, b float64) int { return Ascending(b, a) }

// Heap keeps the element that sorts first under its comparator at the root.
// The zero value is not usable, build one with New.
type Heap struct {
	data []float64
	cmp  Comparator
}

// New returns an empty heap. A nil comparator means Ascending (min-heap).
func New(cmp Comparator) *Heap {
	if cmp == nil {
		cmp = Ascending
	}
	return &Heap{data: []float64{}, cmp: cmp}
}

// Push adds v and sifts it up toward the root.
func (h *Heap) Push(v float64) {
	h.data = append(h.data, v)
	h.up(len(h.data) - 1)
}

// Pop removes and returns the root.
func (h *Heap) Pop() (float64, error) {
	n := len(h.data)
	if n == 0 {
		return 0, ErrEmptyCollection
	}
	h.swap(0, n-1)
	v := h.data[n-1]
	h.data = h.data[:n-1]
	h.down(0)
	return v, nil
}

// Peek returns the root without removing it.
func (h *Heap) Peek() (float64, error) {
	if len(h.data) == 0 {
		return 0, ErrEmptyCollection
	}
	return h.data[0], nil
}

// Len is the number of stored values.
func (h *Heap) Len() int { return len(h.data) }

// Empty reports whether the heap holds no values.
func (h *Heap) Empty() bool { return len(h.data) == 0 }

func (h *Heap) up(i int) {
	for i > 0 {
		parent := (i - 1) / 2
		if h.cmp(h.data[i], h.data[parent]) >= 0 {
			return
		}
		h.swap(i, parent)
		i = parent
	}
}

// down walks from i toward the leaves. On a tie between the two children the
// left one wins, since the right child must be strictly smaller to be picked.
func (h *Heap) down(i int) {
	n := len(h.data)
	for {
		target := i
		left := 2*i + 1
		right := left + 1
		if left < n && h.cmp(h.data[left], h.data[target]) < 0 {
			target = left
		}
		if right < n && h.cmp(h.data[right], h.data[target]) < 0 {
			target = right
		}
		if target == i {
			return
		}
		h.swap(i, target)
		i = target
	}
}

func (h *Heap) swap(i, j int) {
	h.data[i], h.data[j] = h.data[j], h.data[i]
}
