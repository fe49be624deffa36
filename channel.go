package hatch

import (
	"runtime"
	"sync/atomic"
	"time"

	"github.com/joeycumines/logiface"
)

// Channel is the shared state behind a ([Sender], [Receiver]) pair: one
// atomic flag word, and a slot holding at most one value plus (in
// asynchronous mode) one waker per side.
//
// Most callers never touch a Channel directly - [New] allocates one
// internally. Construct one explicitly (via [NewChannel]) only to manage the
// storage yourself, with [Borrowed] or [External], in which case the channel
// may outlive many handle pairs via [Channel.Reclaim].
type Channel[T any] struct {
	flags atomic.Uint32

	// The fields below are guarded by flagLock, with one exception: a
	// handle that has observed its partner's close bit owns them outright,
	// as the partner will never touch them again.

	value    T
	full     bool
	sender   Waker
	receiver Waker

	// Fixed at construction.

	async   bool
	log     *logiface.Logger[logiface.Event]
	metrics *Metrics
}

// NewChannel initializes channel storage for use with [Borrowed] or
// [External]. The provided config may be nil, see [Config] for the defaults.
func NewChannel[T any](config *Config) *Channel[T] {
	c := Channel[T]{async: true}
	if config != nil {
		c.async = !config.Synchronous
		c.log = config.Logger
		c.metrics = config.Metrics
	}
	return &c
}

// Reclaim resets the channel for reuse by a fresh handle pair, returning
// true on success. It succeeds only if the channel has been marked
// reclaimable, i.e. both handles have closed, and the one that performed the
// final teardown had the mark-on-drop option set.
//
// WARNING: A successful Reclaim is the reclaiming caller's assertion that it
// is the sole live reference to the channel; racing Reclaim calls are a
// caller contract breach.
func (c *Channel[T]) Reclaim() bool {
	if c.flags.Load() != flagsReclaimable {
		return false
	}
	c.recycle()
	c.metrics.incReclaims()
	c.log.Debug().Log(`hatch reclaimed`)
	return true
}

// recycle resets the channel to its initial state. Safe only while the
// caller is the sole live reference (both sides closed, or recovering).
func (c *Channel[T]) recycle() {
	var zero T
	c.value = zero
	c.full = false
	c.sender = nil
	c.receiver = nil
	c.flags.Store(0)
}

// markReclaimable clears the slot and stores the reclaimable sentinel, for
// an external memory manager to pick up via [Channel.Reclaim]. Safe only for
// the handle performing the final teardown.
func (c *Channel[T]) markReclaimable() {
	var zero T
	c.value = zero
	c.full = false
	c.sender = nil
	c.receiver = nil
	c.flags.Store(flagsReclaimable)
}

// lock takes the lock, returning the pre-modification flags either once the
// lock has been taken, or immediately if a close bit was seen. A caller that
// sees a close bit proceeds without the lock: the partner has closed, and
// will never touch the slot again, so no further synchronized access is
// needed (and none of the unlock paths run, leaving the bit set is fine).
func (c *Channel[T]) lock() uint32 {
	c.metrics.incLocks()
	for spins := 0; ; spins++ {
		flags := c.flags.Or(flagLock)
		if flags&(flagReceiverClosed|flagSenderClosed) != 0 || flags&flagLock == 0 {
			return flags
		}
		c.metrics.incSpins()
		if spins > 1000 {
			time.Sleep(100 * time.Microsecond)
		} else {
			runtime.Gosched()
		}
	}
}

// unlockSync releases the lock while ORing set into the shared word,
// returning the flags observed prior to the modification. Synchronous mode
// requires the compare-and-swap form: closing does not take the lock there,
// so a plain store could clobber a concurrently set close bit. The returned
// flags must be checked for a close bit revealed during the critical section.
//
// Asynchronous mode fuses unlock into a plain store instead (every mutation
// takes the lock first, so nothing can have changed underneath us).
func (c *Channel[T]) unlockSync(set uint32) uint32 {
	for {
		flags := c.flags.Load()
		if c.flags.CompareAndSwap(flags, flags&^flagLock|set) {
			return flags
		}
	}
}

// takeValue removes and returns the slot's value, if any.
func (c *Channel[T]) takeValue() (value T, ok bool) {
	if !c.full {
		return value, false
	}
	value = c.value
	var zero T
	c.value = zero
	c.full = false
	return value, true
}

// replaceValue stores value in the slot, returning any previous value.
func (c *Channel[T]) replaceValue(value T) (prev T, replaced bool) {
	prev, replaced = c.value, c.full
	c.value = value
	c.full = true
	return prev, replaced
}

// wake invokes w, if non-nil. Must only be called after the lock (if it was
// held) has been released: the waker is external code.
func (c *Channel[T]) wake(w Waker) {
	if w != nil {
		c.metrics.incWakes()
		w.Wake()
	}
}
