package hatch

import (
	"github.com/joeycumines/logiface"
)

// Config models optional configuration, for [New], [NewOneShot], and
// [NewChannel].
type Config struct {
	// Logger receives lifecycle events (close, teardown, recover, reclaim)
	// at debug/trace level. The send/receive fast paths never log. A nil
	// logger is valid, and disables logging.
	Logger *logiface.Logger[logiface.Event]

	// Metrics, if non-nil, is updated with operation counters for the
	// channel. See [Metrics].
	Metrics *Metrics

	// Synchronous disables asynchronous waiting. The Poll methods and
	// Sender.Wait will panic, no wakers are ever stored, and closing a
	// handle becomes a single lock-free atomic OR rather than a lock
	// cycle. Use it when only the Now methods are needed, and the cost of
	// closing matters.
	Synchronous bool
}

// New creates a handshake channel, returning its [Sender] and [Receiver].
// The channel passes one value at a time: a send fills the single slot, a
// receive drains it. The provided config may be nil.
//
// Exactly one Sender and one Receiver may be live per channel at a time;
// both are single-goroutine objects (though they may be used by different
// goroutines, and moved between goroutines). Each should be closed (or
// leaked, see [Sender.Leak]) when no longer needed.
func New[T any](config *Config) (*Sender[T], *Receiver[T]) {
	return pair(storage[T]{channel: NewChannel[T](config), kind: storageOwned})
}

// NewOneShot is [New], with both handles pre-configured to close on their
// first successful transfer: the first send/receive pair that moves a value
// also closes the channel.
func NewOneShot[T any](config *Config) (*Sender[T], *Receiver[T]) {
	s, r := New[T](config)
	return s.CloseOnSend(true), r.CloseOnReceive(true)
}

// Borrowed creates a handle pair bound to caller-supplied channel storage,
// from [NewChannel] or a successful [Channel.Reclaim]. The caller is
// responsible for keeping c alive until both handles have closed; nothing is
// freed on teardown. Set mark-on-drop (see [Sender.MarkOnDrop] and
// [Receiver.MarkOnDrop]) to have the final teardown mark c reclaimable
// instead.
//
// Providing a nil or in-use channel will cause a panic or undefined
// behavior, respectively.
func Borrowed[T any](c *Channel[T]) (*Sender[T], *Receiver[T]) {
	if c == nil {
		panic(`hatch: nil channel`)
	}
	return pair(storage[T]{channel: c, kind: storageBorrowed})
}

// External creates a handle pair bound to caller-supplied channel storage,
// with a release hook invoked exactly once, by whichever handle closes
// second, as the final teardown step. It exists for callers running their
// own allocator or reclaim pool: release typically returns c to the pool.
// If mark-on-drop is set on the closing handle, c is marked reclaimable
// before release is invoked, so the pool may recycle it via
// [Channel.Reclaim].
//
// Providing a nil channel or release will cause a panic.
func External[T any](c *Channel[T], release func(*Channel[T])) (*Sender[T], *Receiver[T]) {
	if c == nil {
		panic(`hatch: nil channel`)
	}
	if release == nil {
		panic(`hatch: nil release`)
	}
	return pair(storage[T]{channel: c, release: release, kind: storageExternal})
}

func pair[T any](s storage[T]) (*Sender[T], *Receiver[T]) {
	return &Sender[T]{storage: s}, &Receiver[T]{storage: s}
}
