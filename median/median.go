// pricemedian - Daily median of intraday price series
// Authors: Guillaume Lefranc <guillaume@signal18.io>
//          Stephane Varoqui  <svaroqui@gmail.com>
// This source code is licensed under the GNU General Public License, version 3.

// Package median maintains the median of an online sequence of float64 values
// with a pair of heaps.
package median

import (
	"github.com/signal18/pricemedian/heap"
)

// Stream holds the lower half of the values seen in a max-heap and the upper
// half in a min-heap. Their sizes never differ by more than one.
// A Stream is not safe for concurrent use.
type Stream struct {
	low  *heap.Heap
	high *heap.Heap
}

// NewStream returns an empty Stream.
func NewStream() *Stream {
	return &Stream{
		low:  heap.New(heap.Descending),
		high: heap.New(heap.Ascending),
	}
}

// Push adds v in O(log n). NaN is accepted and routed like any other value.
func (s *Stream) Push(v float64) {
	if top, err := s.low.Peek(); err == nil && v < top {
		s.low.Push(v)
	} else {
		s.high.Push(v)
	}
	s.balance()
}

// balance moves roots until the sizes differ by at most one. The loop
// conditions keep the popped heap non-empty.
func (s *Stream) balance() {
	for s.high.Len() > s.low.Len()+1 {
		s.low.Push(mustPop(s.high))
	}
	for s.low.Len() > s.high.Len()+1 {
		s.high.Push(mustPop(s.low))
	}
}

func mustPop(h *heap.Heap) float64 {
	v, err := h.Pop()
	if err != nil {
		panic(err)
	}
	return v
}

// Median returns the median of every value pushed so far, or
// heap.ErrEmptyCollection when nothing was pushed.
func (s *Stream) Median() (float64, error) {
	switch {
	case s.low.Len() < s.high.Len():
		return s.high.Peek()
	case s.low.Len() > s.high.Len():
		return s.low.Peek()
	}
	lo, err := s.low.Peek()
	if err != nil {
		return 0, err
	}
	hi, err := s.high.Peek()
	if err != nil {
		return 0, err
	}
	return (lo + hi) / 2, nil
}

// Len is the number of values pushed.
func (s *Stream) Len() int { return s.low.Len() + s.high.Len() }
