package hatch

// Waker is the resumption callback registered by pending asynchronous
// operations, supplied by whatever is driving the polling (an executor, an
// event loop, a goroutine parked on a channel, ...).
//
// The channel only stores and invokes wakers; it never inspects or schedules
// them. Wake is always called after the channel's internal lock has been
// released, and may be called spuriously: a woken poller must re-poll the
// operation to learn the actual state.
//
// Implementations must be safe to invoke from any goroutine.
type Waker interface {
	Wake()
}

// WakerFunc adapts a plain function to the [Waker] interface.
type WakerFunc func()

// Wake implements [Waker].
func (f WakerFunc) Wake() { f() }
