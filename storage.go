package hatch

type storageKind uint8

const (
	// storageOwned is a channel allocated by New; the garbage collector
	// frees it once both handles are gone.
	storageOwned storageKind = iota
	// storageBorrowed is caller-supplied channel storage; the final
	// teardown marks it reclaimable if mark-on-drop is set, and otherwise
	// leaves it alone.
	storageBorrowed
	// storageExternal is caller-supplied channel storage with a release
	// hook, for callers running their own allocator or reclaim pool.
	storageExternal
)

// storage locates a channel and knows how to perform the variant-specific
// final teardown. Both handles of a pair hold identical copies, fixed at
// construction.
type storage[T any] struct {
	channel *Channel[T]
	release func(*Channel[T]) // storageExternal only
	kind    storageKind
}

// free performs the final teardown of the channel. Called at most once per
// handshake generation, by whichever handle closed second.
//
// For borrowed and external storage, mark requests the reclaimable sentinel
// be stored first, so the storage's owner can recycle the channel via
// [Channel.Reclaim].
func (s storage[T]) free(mark bool) {
	switch s.kind {
	case storageOwned:
		// nothing to do: collected once both handles are unreachable
	case storageBorrowed:
		if mark {
			s.channel.markReclaimable()
		}
	case storageExternal:
		if mark {
			s.channel.markReclaimable()
		}
		s.release(s.channel)
	}
}
