package hatch

// The channel's shared state is a single atomic word. The rules:
//
//   - Every time the shared word is modified, the result must be checked for
//     the partner's close bit. Whoever sets the second close bit becomes
//     responsible for the final teardown of the channel.
//   - Only a Receiver may set flagReceiverClosed; only a Sender may set
//     flagSenderClosed. Close bits are set at most once per generation.
//   - The value and waker slots may only be touched while holding flagLock,
//     except by a handle that has already observed its partner's close bit
//     (the partner will never touch them again).
//   - Releasing the lock is always fused with any other state change, via a
//     single store (async mode) or compare-and-swap (synchronous mode).
//   - The word is reset to zero only by recover or an authorized reclaim.
const (
	// flagLock grants exclusive access to the channel's slot and wakers.
	flagLock uint32 = 1
	// flagReceiverClosed indicates the receiver has closed.
	flagReceiverClosed uint32 = 1 << 1
	// flagSenderClosed indicates the sender has closed.
	flagSenderClosed uint32 = 1 << 2
)

// flagsReclaimable is a sentinel value for the whole shared word, stored by
// the second handle to close (when configured via mark-on-drop), telling an
// external memory manager the channel may be reused. See [Channel.Reclaim].
const flagsReclaimable = ^uint32(0)

// Handle-local flags, sharing the layout of the shared word so close bits
// can be cached by masking. Never stored in the shared word.
const (
	// flagCloseOnSuccess closes the handle as part of the next operation
	// that successfully transfers a value.
	flagCloseOnSuccess uint32 = 1 << 3
	// flagMarkOnDrop stores flagsReclaimable instead of discarding the
	// channel, if this handle performs the final teardown. Only meaningful
	// for borrowed channel storage.
	flagMarkOnDrop uint32 = 1 << 4
	// flagOverwrite (sender only) permits replacing an existing value.
	flagOverwrite uint32 = 1 << 5
	// flagWaiting records that an operation registered a waker. It might
	// have been consumed since, but it might not, so cancellation has some
	// interest in cleaning it up.
	flagWaiting uint32 = 1 << 6
)

// sCloses returns flagSenderClosed if flagCloseOnSuccess is set, branchlessly.
func sCloses(flags uint32) uint32 { return (flags & flagCloseOnSuccess) >> 1 }

// rCloses returns flagReceiverClosed if flagCloseOnSuccess is set, branchlessly.
func rCloses(flags uint32) uint32 { return (flags & flagCloseOnSuccess) >> 2 }

func anyFlag(haystack, needle uint32) bool { return haystack&needle != 0 }

func toggleFlag(haystack, needle uint32, on bool) uint32 {
	if on {
		return haystack | needle
	}
	return haystack &^ needle
}
