package hatch

import (
	"sync/atomic"
)

// countWaker counts wakes, for asserting exactly when they are delivered.
type countWaker struct{ wakes atomic.Int64 }

func (x *countWaker) Wake() { x.wakes.Add(1) }

func (x *countWaker) count() int64 { return x.wakes.Load() }

// chanWaker supports blocking until woken. The buffer absorbs a wake
// delivered before the wait starts; extra wakes coalesce.
type chanWaker chan struct{}

func newChanWaker() chanWaker { return make(chanWaker, 1) }

func (x chanWaker) Wake() {
	select {
	case x <- struct{}{}:
	default:
	}
}

func (x chanWaker) wait() { <-x }
