package hatch

// Receiver is the unique receiving handle of a handshake channel.
//
// Options (all false by default):
//
//   - close on receive - when true, closes during the next receive operation
//     that successfully takes a value.
//   - mark on drop - when true, and this handle performs the final teardown,
//     the channel is marked reclaimable for an external memory manager (no
//     effect with [New] storage).
//
// The first may also be set on an individual [Receiving], in which case it
// applies to that operation only.
//
// A Receiver is a single-goroutine object: it may move between goroutines,
// but may not be used concurrently. Creating two live Receivers for one
// channel is a caller contract breach, with undefined behavior.
type Receiver[T any] struct {
	storage storage[T]
	flags   uint32
}

// CloseOnReceive sets the close-on-receive option, returning x for chaining.
func (x *Receiver[T]) CloseOnReceive(on bool) *Receiver[T] {
	x.flags = toggleFlag(x.flags, flagCloseOnSuccess, on)
	return x
}

// MarkOnDrop sets the mark-on-drop option, returning x for chaining.
func (x *Receiver[T]) MarkOnDrop(on bool) *Receiver[T] {
	x.flags = toggleFlag(x.flags, flagMarkOnDrop, on)
	return x
}

// HasCloseOnReceive returns the close-on-receive option.
func (x *Receiver[T]) HasCloseOnReceive() bool { return anyFlag(x.flags, flagCloseOnSuccess) }

// HasMarkOnDrop returns the mark-on-drop option.
func (x *Receiver[T]) HasMarkOnDrop() bool { return anyFlag(x.flags, flagMarkOnDrop) }

// IsClosed reports best-effort local knowledge of whether the channel is
// closed (either side). It never loads the shared word: a false result may
// simply mean this handle hasn't interacted with the channel since the
// partner closed.
func (x *Receiver[T]) IsClosed() bool {
	return anyFlag(x.flags, flagSenderClosed|flagReceiverClosed)
}

// Receive returns a disposable object for a single receive operation. It
// does nothing until consumed, via [Receiving.Now] or [Receiving.Poll].
func (x *Receiver[T]) Receive() *Receiving[T] {
	return &Receiving[T]{receiver: x, flags: x.flags}
}

// Recover returns a new [Sender] after the old one has closed, resetting
// the channel (the slot is cleared, discarding any undelivered value) for a
// fresh handshake generation. It fails with [ErrLive] if the sender has not
// closed, and [ErrClosed] if this handle has, and never blocks or spins: a
// closed partner is permanent, so a local cache check or at worst a single
// atomic load suffices.
func (x *Receiver[T]) Recover() (*Sender[T], error) {
	if anyFlag(x.flags, flagReceiverClosed) {
		return nil, ErrClosed
	}
	c := x.storage.channel
	if !anyFlag(x.flags, flagSenderClosed) &&
		!anyFlag(c.flags.Load(), flagSenderClosed) {
		return nil, ErrLive
	}
	// sole remaining reference: the sender closed, and close is one-way
	c.recycle()
	x.flags &^= flagSenderClosed
	c.metrics.incRecoveries()
	c.log.Debug().Str(`side`, `receiver`).Log(`hatch recovered`)
	return &Sender[T]{storage: x.storage}, nil
}

// Close closes the handle, waking the sender if it is waiting. If the
// sender already closed, this handle performs the final teardown of the
// channel instead (see [External] and [Receiver.MarkOnDrop]). Close is
// idempotent, and always returns nil.
//
// Close must not be called with an operation still pending; Cancel the
// operation first.
func (x *Receiver[T]) Close() error {
	if anyFlag(x.flags, flagReceiverClosed) {
		return nil
	}
	x.flags |= flagReceiverClosed
	c := x.storage.channel
	c.metrics.incCloses()
	mark := anyFlag(x.flags, flagMarkOnDrop)
	if anyFlag(x.flags, flagSenderClosed) {
		// already known lonely: no synchronized access required
		c.log.Trace().Str(`side`, `receiver`).Bool(`teardown`, true).Log(`hatch closed`)
		x.storage.free(mark)
		return nil
	}
	if !c.async {
		// no waker to deliver: a single lock-free OR settles the race
		flags := c.flags.Or(flagReceiverClosed)
		if anyFlag(flags, flagSenderClosed) {
			x.flags |= flagSenderClosed
			x.storage.free(mark)
		}
		c.log.Trace().Str(`side`, `receiver`).
			Bool(`teardown`, anyFlag(flags, flagSenderClosed)).
			Log(`hatch closed`)
		return nil
	}
	// asynchronous mode: the sender may be waiting, so take the lock, clear
	// our stale waker, and retrieve theirs
	flags := c.lock()
	if anyFlag(flags, flagSenderClosed) {
		x.flags |= flagSenderClosed
		c.log.Trace().Str(`side`, `receiver`).Bool(`teardown`, true).Log(`hatch closed`)
		x.storage.free(mark)
		return nil
	}
	c.receiver = nil
	sender := c.sender
	c.sender = nil
	// mark us closed and release the lock in one store
	c.flags.Store(flags | flagReceiverClosed)
	c.log.Trace().Str(`side`, `receiver`).Bool(`teardown`, false).Log(`hatch closed`)
	c.wake(sender)
	return nil
}

// Leak abandons the handle without any synchronization: no close bit is
// set, no waker is woken, and no teardown ever runs. Useful with external
// synchronization, to avoid a lock cycle; correct use generally implies
// leaking both handles and managing the [Channel] externally. The partner
// may otherwise wait forever.
func (x *Receiver[T]) Leak() {
	x.flags |= flagReceiverClosed
}

// Receiving is a disposable object performing a single receive operation:
// either a synchronous attempt via [Receiving.Now], or polled as a future
// via [Receiving.Poll]. It is consumed by Now, by a conclusive Poll, or by
// [Receiving.Cancel]; consuming it twice will panic.
//
// The close-on-receive option is copied from the [Receiver] at creation;
// modifying it here affects this operation only.
type Receiving[T any] struct {
	receiver *Receiver[T]
	flags    uint32
	done     bool
}

// CloseOnReceive sets the close-on-receive option for this operation,
// returning x for chaining.
func (x *Receiving[T]) CloseOnReceive(on bool) *Receiving[T] {
	x.flags = toggleFlag(x.flags, flagCloseOnSuccess, on)
	return x
}

// HasCloseOnReceive returns the close-on-receive option for this operation.
func (x *Receiving[T]) HasCloseOnReceive() bool { return anyFlag(x.flags, flagCloseOnSuccess) }

// Now attempts to receive a value synchronously, consuming the operation.
//
// An empty slot is not an error: it returns (zero, false, nil). It fails
// with [ErrClosed] only if the sender has closed and no undelivered value
// remains (or this handle has closed). A value sent before the sender
// closed is still received.
func (x *Receiving[T]) Now() (value T, ok bool, err error) {
	x.consume(`receive`)
	r := x.receiver
	if anyFlag(r.flags, flagReceiverClosed|flagSenderClosed) {
		// a cached sender close means the slot was already drained
		return value, false, ErrClosed
	}
	c := r.storage.channel
	flags := c.lock()
	value, ok = c.takeValue()
	r.flags |= flags & flagSenderClosed
	if anyFlag(flags, flagSenderClosed) {
		// no unlock: the partner is gone, and the slot is now drained
		if !ok {
			return value, false, ErrClosed
		}
		c.metrics.incReceives()
		return value, true, nil
	}
	closes := uint32(0)
	if ok {
		closes = rCloses(x.flags)
	}
	if c.async {
		sender := c.sender
		c.sender = nil
		// release the lock, closing if we took a value and close on success
		c.flags.Store(flags | closes)
		r.flags |= closes
		if ok {
			c.metrics.incReceives()
		}
		// wake the sender: there is capacity now, and they may be waiting
		// for it
		c.wake(sender)
		return value, ok, nil
	}
	// synchronous mode: the sender's close does not take the lock, so the
	// fused unlock must re-check the close bit it reveals
	after := c.unlockSync(closes)
	r.flags |= closes
	if anyFlag(after, flagSenderClosed) {
		// sends take the lock, so the slot cannot have refilled: caching
		// the close is safe whether or not we took a value
		r.flags |= flagSenderClosed
		if !ok {
			return value, false, ErrClosed
		}
		if closes != 0 {
			// close on receive set the second close bit, and Close will
			// never run for this handle: the final teardown falls to us
			r.storage.free(anyFlag(r.flags, flagMarkOnDrop))
		}
	}
	if ok {
		c.metrics.incReceives()
	}
	return value, ok, nil
}

// Poll attempts to receive a value, registering waker to be invoked once
// the operation should be retried. It returns (value, true, nil) once
// received (consuming the operation), (zero, false, nil) while the slot is
// empty, and (zero, false, [ErrClosed]) if the sender has closed with no
// undelivered value remaining.
//
// While pending, the sender is woken if it is waiting: registration means
// the receiver is now listening with capacity available, which is exactly
// the condition [Sender.Wait] resolves on.
//
// An operation abandoned after a pending Poll should be canceled, see
// [Receiving.Cancel]. Poll will panic if the channel is synchronous, waker
// is nil, or the operation was already consumed.
func (x *Receiving[T]) Poll(waker Waker) (value T, ok bool, err error) {
	r := x.receiver
	c := r.storage.channel
	if !c.async {
		panic(`hatch: channel is synchronous`)
	}
	if waker == nil {
		panic(`hatch: nil waker`)
	}
	if x.done {
		panic(`hatch: receive operation already consumed`)
	}
	if anyFlag(r.flags, flagReceiverClosed|flagSenderClosed) {
		x.done = true
		return value, false, ErrClosed
	}
	flags := c.lock()
	value, ok = c.takeValue()
	r.flags |= flags & flagSenderClosed
	if anyFlag(flags, flagSenderClosed) {
		x.done = true
		if !ok {
			return value, false, ErrClosed
		}
		c.metrics.incReceives()
		return value, true, nil
	}
	sender := c.sender
	c.sender = nil
	if ok {
		c.receiver = nil
		closes := rCloses(x.flags)
		c.flags.Store(flags | closes)
		r.flags |= closes
		x.done = true
		c.metrics.incReceives()
		// there is capacity again: wake the sender if they are waiting
		c.wake(sender)
		return value, true, nil
	}
	// register ourselves and report pending, replacing any stale waker
	c.receiver = waker
	c.flags.Store(flags)
	x.flags |= flagWaiting
	// we are now listening with capacity: wake a lazily sending sender
	c.wake(sender)
	return value, false, nil
}

// Cancel abandons the operation, deregistering any waker registered by an
// earlier pending [Receiving.Poll]. This trades one extra lock cycle for
// sparing the sender a spurious wake, and is skipped entirely when the
// local cache already shows the sender closed. Cancel is a no-op if the
// operation was already consumed.
func (x *Receiving[T]) Cancel() {
	if x.done {
		return
	}
	x.done = true
	if !anyFlag(x.flags, flagWaiting) {
		return
	}
	r := x.receiver
	if anyFlag(r.flags, flagReceiverClosed|flagSenderClosed) {
		return
	}
	c := r.storage.channel
	flags := c.lock()
	if anyFlag(flags, flagSenderClosed) {
		// no unlock: the partner is gone, the stale waker is harmless.
		// only cache the close if the slot is drained, else a later
		// receive would wrongly report closed and lose the value
		if !c.full {
			r.flags |= flagSenderClosed
		}
		return
	}
	c.receiver = nil
	c.flags.Store(flags)
}

func (x *Receiving[T]) consume(op string) {
	if x.done {
		panic(`hatch: ` + op + ` operation already consumed`)
	}
	x.done = true
}
