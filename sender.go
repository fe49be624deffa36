package hatch

// Sender is the unique sending handle of a handshake channel.
//
// Options (all false by default):
//
//   - overwrite - when true, sends may replace an existing value.
//   - close on send - when true, closes during the next send operation that
//     successfully delivers a value.
//   - mark on drop - when true, and this handle performs the final teardown,
//     the channel is marked reclaimable for an external memory manager (no
//     effect with [New] storage).
//
// The first two may also be set on an individual [Sending], in which case
// they apply to that operation only.
//
// A Sender is a single-goroutine object: it may move between goroutines,
// but may not be used concurrently. Creating two live Senders for one
// channel is a caller contract breach, with undefined behavior.
type Sender[T any] struct {
	storage storage[T]
	flags   uint32
}

// Overwrite sets the overwrite option, returning x for chaining.
func (x *Sender[T]) Overwrite(on bool) *Sender[T] {
	x.flags = toggleFlag(x.flags, flagOverwrite, on)
	return x
}

// CloseOnSend sets the close-on-send option, returning x for chaining.
func (x *Sender[T]) CloseOnSend(on bool) *Sender[T] {
	x.flags = toggleFlag(x.flags, flagCloseOnSuccess, on)
	return x
}

// MarkOnDrop sets the mark-on-drop option, returning x for chaining.
func (x *Sender[T]) MarkOnDrop(on bool) *Sender[T] {
	x.flags = toggleFlag(x.flags, flagMarkOnDrop, on)
	return x
}

// HasOverwrite returns the overwrite option.
func (x *Sender[T]) HasOverwrite() bool { return anyFlag(x.flags, flagOverwrite) }

// HasCloseOnSend returns the close-on-send option.
func (x *Sender[T]) HasCloseOnSend() bool { return anyFlag(x.flags, flagCloseOnSuccess) }

// HasMarkOnDrop returns the mark-on-drop option.
func (x *Sender[T]) HasMarkOnDrop() bool { return anyFlag(x.flags, flagMarkOnDrop) }

// IsClosed reports best-effort local knowledge of whether the channel is
// closed (either side). It never loads the shared word: a false result may
// simply mean this handle hasn't interacted with the channel since the
// partner closed.
func (x *Sender[T]) IsClosed() bool {
	return anyFlag(x.flags, flagSenderClosed|flagReceiverClosed)
}

// Send returns a disposable object for a single send operation. It does
// nothing until consumed, via [Sending.Now] or [Sending.Poll].
func (x *Sender[T]) Send(value T) *Sending[T] {
	return &Sending[T]{sender: x, value: value, flags: x.flags}
}

// Wait returns a disposable object that waits for the [Receiver] to be
// listening with capacity available, allowing an expensive value to be
// computed on demand (lazy send). Asynchronous mode only.
func (x *Sender[T]) Wait() *Wait[T] {
	return &Wait[T]{sender: x, flags: x.flags}
}

// Recover returns a new [Receiver] after the old one has closed, resetting
// the channel (the slot is cleared) for a fresh handshake generation.
// It fails with [ErrLive] if the receiver has not closed, and [ErrClosed]
// if this handle has, and never blocks or spins: a closed partner is
// permanent, so a local cache check or at worst a single atomic load
// suffices.
func (x *Sender[T]) Recover() (*Receiver[T], error) {
	if anyFlag(x.flags, flagSenderClosed) {
		return nil, ErrClosed
	}
	c := x.storage.channel
	if !anyFlag(x.flags, flagReceiverClosed) &&
		!anyFlag(c.flags.Load(), flagReceiverClosed) {
		return nil, ErrLive
	}
	// sole remaining reference: the receiver closed, and close is one-way
	c.recycle()
	x.flags &^= flagReceiverClosed
	c.metrics.incRecoveries()
	c.log.Debug().Str(`side`, `sender`).Log(`hatch recovered`)
	return &Receiver[T]{storage: x.storage}, nil
}

// Close closes the handle, waking the receiver if it is waiting. If the
// receiver already closed, this handle performs the final teardown of the
// channel instead (see [External] and [Sender.MarkOnDrop]). Close is
// idempotent, and always returns nil.
//
// Close must not be called with an operation still pending; Cancel the
// operation first.
func (x *Sender[T]) Close() error {
	if anyFlag(x.flags, flagSenderClosed) {
		return nil
	}
	x.flags |= flagSenderClosed
	c := x.storage.channel
	c.metrics.incCloses()
	mark := anyFlag(x.flags, flagMarkOnDrop)
	if anyFlag(x.flags, flagReceiverClosed) {
		// already known lonely: no synchronized access required
		c.log.Trace().Str(`side`, `sender`).Bool(`teardown`, true).Log(`hatch closed`)
		x.storage.free(mark)
		return nil
	}
	if !c.async {
		// no waker to deliver: a single lock-free OR settles the race
		flags := c.flags.Or(flagSenderClosed)
		if anyFlag(flags, flagReceiverClosed) {
			x.flags |= flagReceiverClosed
			x.storage.free(mark)
		}
		c.log.Trace().Str(`side`, `sender`).
			Bool(`teardown`, anyFlag(flags, flagReceiverClosed)).
			Log(`hatch closed`)
		return nil
	}
	// asynchronous mode: the receiver may be waiting, so take the lock,
	// clear our stale waker, and retrieve theirs
	flags := c.lock()
	if anyFlag(flags, flagReceiverClosed) {
		x.flags |= flagReceiverClosed
		c.log.Trace().Str(`side`, `sender`).Bool(`teardown`, true).Log(`hatch closed`)
		x.storage.free(mark)
		return nil
	}
	c.sender = nil
	receiver := c.receiver
	c.receiver = nil
	// mark us closed and release the lock in one store
	c.flags.Store(flags | flagSenderClosed)
	c.log.Trace().Str(`side`, `sender`).Bool(`teardown`, false).Log(`hatch closed`)
	c.wake(receiver)
	return nil
}

// Leak abandons the handle without any synchronization: no close bit is
// set, no waker is woken, and no teardown ever runs. Useful with external
// synchronization, to avoid a lock cycle; correct use generally implies
// leaking both handles and managing the [Channel] externally. The partner
// may otherwise wait forever.
func (x *Sender[T]) Leak() {
	x.flags |= flagSenderClosed
}

// Sending is a disposable object performing a single send operation: either
// a synchronous attempt via [Sending.Now], or polled as a future via
// [Sending.Poll]. It is consumed by Now, by a conclusive Poll, or by
// [Sending.Cancel]; consuming it twice will panic.
//
// The overwrite and close-on-send options are copied from the [Sender] at
// creation; modifying them here affects this operation only. Note that Poll
// ignores the overwrite option (Now does not).
type Sending[T any] struct {
	sender *Sender[T]
	value  T
	flags  uint32
	done   bool
}

// Overwrite sets the overwrite option for this operation, returning x for
// chaining.
func (x *Sending[T]) Overwrite(on bool) *Sending[T] {
	x.flags = toggleFlag(x.flags, flagOverwrite, on)
	return x
}

// CloseOnSend sets the close-on-send option for this operation, returning x
// for chaining.
func (x *Sending[T]) CloseOnSend(on bool) *Sending[T] {
	x.flags = toggleFlag(x.flags, flagCloseOnSuccess, on)
	return x
}

// HasOverwrite returns the overwrite option for this operation.
func (x *Sending[T]) HasOverwrite() bool { return anyFlag(x.flags, flagOverwrite) }

// HasCloseOnSend returns the close-on-send option for this operation.
func (x *Sending[T]) HasCloseOnSend() bool { return anyFlag(x.flags, flagCloseOnSuccess) }

// Value returns the value held by the operation, e.g. to recover it after
// [ErrClosed], [ErrExisting], or a cancellation.
func (x *Sending[T]) Value() T {
	return x.value
}

// Now attempts to send the value synchronously, consuming the operation.
//
// On success, it returns any value that was just overwritten (possible only
// with the overwrite option). It fails with [ErrExisting] if the slot holds
// a value and overwrite is not enabled, and [ErrClosed] if the receiver has
// closed (or this handle has); in either case the value is retained, see
// [Sending.Value].
func (x *Sending[T]) Now() (prev T, replaced bool, err error) {
	x.consume(`send`)
	s := x.sender
	if anyFlag(s.flags, flagSenderClosed|flagReceiverClosed) {
		return prev, false, ErrClosed
	}
	c := s.storage.channel
	flags := c.lock()
	s.flags |= flags & flagReceiverClosed
	if anyFlag(flags, flagReceiverClosed) {
		// no unlock: the partner is gone
		return prev, false, ErrClosed
	}
	if c.full && !anyFlag(x.flags, flagOverwrite) {
		// existing value, and we may not overwrite: unlock and report
		if c.async {
			c.flags.Store(flags)
		} else {
			s.flags |= c.unlockSync(0) & flagReceiverClosed
		}
		return prev, false, ErrExisting
	}
	prev, replaced = c.replaceValue(x.value)
	closes := sCloses(x.flags)
	if c.async {
		receiver := c.receiver
		c.receiver = nil
		// release the lock, closing if we close on success
		c.flags.Store(flags | closes)
		s.flags |= closes
		c.metrics.incSends()
		c.wake(receiver)
		return prev, replaced, nil
	}
	// synchronous mode: the receiver's close does not take the lock, so the
	// fused unlock must re-check the close bit it reveals
	if after := c.unlockSync(closes); anyFlag(after, flagReceiverClosed) {
		s.flags |= flagReceiverClosed
		// the receiver closed during our critical section and will never
		// read the slot, which we now own outright: take the value back
		c.takeValue()
		var zero T
		return zero, false, ErrClosed
	}
	s.flags |= closes
	c.metrics.incSends()
	return prev, replaced, nil
}

// Poll attempts to send the value, registering waker to be invoked once the
// operation should be retried. It returns (true, nil) once sent (consuming
// the operation), (false, nil) while the slot is full (retaining the value
// for the next poll), and (false, [ErrClosed]) if the receiver has closed.
// Note that Poll ignores the overwrite option.
//
// An operation abandoned after a pending Poll should be canceled, see
// [Sending.Cancel]. Poll will panic if the channel is synchronous, waker is
// nil, or the operation was already consumed.
func (x *Sending[T]) Poll(waker Waker) (sent bool, err error) {
	s := x.sender
	c := s.storage.channel
	x.pollable(c, waker, `send`)
	if anyFlag(s.flags, flagSenderClosed|flagReceiverClosed) {
		x.done = true
		return false, ErrClosed
	}
	flags := c.lock()
	s.flags |= flags & flagReceiverClosed
	if anyFlag(flags, flagReceiverClosed) {
		x.done = true
		return false, ErrClosed
	}
	if !c.full {
		c.replaceValue(x.value)
		receiver := c.receiver
		c.receiver = nil
		closes := sCloses(x.flags)
		c.flags.Store(flags | closes)
		s.flags |= closes
		x.done = true
		c.metrics.incSends()
		// we delivered: wake the receiver if they are waiting
		c.wake(receiver)
		return true, nil
	}
	// register ourselves and report pending, replacing any stale waker
	c.sender = waker
	c.flags.Store(flags)
	x.flags |= flagWaiting
	return false, nil
}

// Cancel abandons the operation, deregistering any waker registered by an
// earlier pending [Sending.Poll]. This trades one extra lock cycle for
// sparing the receiver a spurious wake, and is skipped entirely when
// the local cache already shows the receiver closed. Cancel is a no-op if
// the operation was already consumed.
func (x *Sending[T]) Cancel() {
	if x.done {
		return
	}
	x.done = true
	if !anyFlag(x.flags, flagWaiting) {
		return
	}
	s := x.sender
	if anyFlag(s.flags, flagSenderClosed|flagReceiverClosed) {
		return
	}
	c := s.storage.channel
	flags := c.lock()
	s.flags |= flags & flagReceiverClosed
	if anyFlag(flags, flagReceiverClosed) {
		// no unlock: the partner is gone, the stale waker is harmless
		return
	}
	c.sender = nil
	c.flags.Store(flags)
}

func (x *Sending[T]) consume(op string) {
	if x.done {
		panic(`hatch: ` + op + ` operation already consumed`)
	}
	x.done = true
}

func (x *Sending[T]) pollable(c *Channel[T], waker Waker, op string) {
	if !c.async {
		panic(`hatch: channel is synchronous`)
	}
	if waker == nil {
		panic(`hatch: nil waker`)
	}
	if x.done {
		panic(`hatch: ` + op + ` operation already consumed`)
	}
}

// Wait is a disposable object that resolves once there is capacity to send
// and a [Receiver] listening: the receiver has a pending receive, and the
// slot is empty. This supports computing an expensive value on demand (lazy
// send). It is consumed by a conclusive [Wait.Poll] or by [Wait.Cancel].
type Wait[T any] struct {
	sender *Sender[T]
	flags  uint32
	done   bool
}

// Poll checks the wait condition, registering waker to be invoked once it
// should be retried. It returns (true, nil) once the receiver is listening
// and the slot is empty (consuming the operation), (false, nil) while still
// waiting, and (false, [ErrClosed]) if the receiver has closed.
//
// An operation abandoned after a pending Poll should be canceled, see
// [Wait.Cancel]. Poll will panic if the channel is synchronous, waker is
// nil, or the operation was already consumed.
func (x *Wait[T]) Poll(waker Waker) (ready bool, err error) {
	s := x.sender
	c := s.storage.channel
	if !c.async {
		panic(`hatch: channel is synchronous`)
	}
	if waker == nil {
		panic(`hatch: nil waker`)
	}
	if x.done {
		panic(`hatch: wait operation already consumed`)
	}
	if anyFlag(s.flags|x.flags, flagSenderClosed|flagReceiverClosed) {
		x.done = true
		return false, ErrClosed
	}
	flags := c.lock()
	s.flags |= flags & flagReceiverClosed
	if anyFlag(flags, flagReceiverClosed) {
		x.done = true
		return false, ErrClosed
	}
	if c.receiver != nil && !c.full {
		// the receiver is listening, and there is capacity: done waiting
		c.sender = nil
		c.flags.Store(flags)
		x.flags &^= flagWaiting
		x.done = true
		return true, nil
	}
	c.sender = waker
	c.flags.Store(flags)
	x.flags |= flagWaiting
	return false, nil
}

// Cancel abandons the operation, deregistering any waker registered by an
// earlier pending [Wait.Poll]. See [Sending.Cancel] for the rationale.
// Cancel is a no-op if the operation was already consumed.
func (x *Wait[T]) Cancel() {
	if x.done {
		return
	}
	x.done = true
	if !anyFlag(x.flags, flagWaiting) {
		return
	}
	s := x.sender
	if anyFlag(s.flags, flagSenderClosed|flagReceiverClosed) {
		return
	}
	c := s.storage.channel
	flags := c.lock()
	s.flags |= flags & flagReceiverClosed
	if anyFlag(flags, flagReceiverClosed) {
		return
	}
	c.sender = nil
	c.flags.Store(flags)
}
