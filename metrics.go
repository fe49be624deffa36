package hatch

import (
	"sync/atomic"
)

// Metrics tracks low-overhead counters for a single [Channel]. All counters
// are atomic, and all methods are safe for concurrent use.
//
// Metrics are optional; attach an instance via [Config.Metrics]. A nil
// *Metrics is valid and records nothing.
//
// Example:
//
//	var metrics hatch.Metrics
//	s, r := hatch.New[int](&hatch.Config{Metrics: &metrics})
//	// ... use s and r ...
//	stats := metrics.Snapshot()
//	fmt.Printf("locks: %d, wakes: %d\n", stats.Locks, stats.Wakes)
type Metrics struct {
	locks      atomic.Uint64
	spins      atomic.Uint64
	wakes      atomic.Uint64
	sends      atomic.Uint64
	receives   atomic.Uint64
	closes     atomic.Uint64
	recoveries atomic.Uint64
	reclaims   atomic.Uint64
}

// MetricsSnapshot is a point-in-time copy of a [Metrics] instance, see
// [Metrics.Snapshot].
type MetricsSnapshot struct {
	// Locks counts lock acquisitions against the channel's flag word,
	// including acquisitions that returned early due to a visible close bit.
	Locks uint64
	// Spins counts retry iterations spent waiting for a contended lock.
	Spins uint64
	// Wakes counts waker invocations delivered by the channel.
	Wakes uint64
	// Sends counts values successfully stored in the slot.
	Sends uint64
	// Receives counts values successfully taken from the slot.
	Receives uint64
	// Closes counts Close calls on handles (close-on-success is a send or
	// receive, not a close).
	Closes uint64
	// Recoveries counts successful Recover calls.
	Recoveries uint64
	// Reclaims counts successful Reclaim calls.
	Reclaims uint64
}

// Snapshot returns a copy of the current counter values. The copy is not
// atomic across counters: values recorded concurrently may be partially
// reflected.
func (x *Metrics) Snapshot() MetricsSnapshot {
	if x == nil {
		return MetricsSnapshot{}
	}
	return MetricsSnapshot{
		Locks:      x.locks.Load(),
		Spins:      x.spins.Load(),
		Wakes:      x.wakes.Load(),
		Sends:      x.sends.Load(),
		Receives:   x.receives.Load(),
		Closes:     x.closes.Load(),
		Recoveries: x.recoveries.Load(),
		Reclaims:   x.reclaims.Load(),
	}
}

func (x *Metrics) incLocks() {
	if x != nil {
		x.locks.Add(1)
	}
}

func (x *Metrics) incSpins() {
	if x != nil {
		x.spins.Add(1)
	}
}

func (x *Metrics) incWakes() {
	if x != nil {
		x.wakes.Add(1)
	}
}

func (x *Metrics) incSends() {
	if x != nil {
		x.sends.Add(1)
	}
}

func (x *Metrics) incReceives() {
	if x != nil {
		x.receives.Add(1)
	}
}

func (x *Metrics) incCloses() {
	if x != nil {
		x.closes.Add(1)
	}
}

func (x *Metrics) incRecoveries() {
	if x != nil {
		x.recoveries.Add(1)
	}
}

func (x *Metrics) incReclaims() {
	if x != nil {
		x.reclaims.Add(1)
	}
}
