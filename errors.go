package hatch

import (
	"errors"
)

var (
	// ErrClosed indicates the partner handle (or, for some operations, this
	// handle) has closed. It is terminal: no operation against the same
	// handle pair will succeed after it is returned. A failed send retains
	// the caller's value, see [Sending.Value].
	ErrClosed = errors.New(`hatch: closed`)

	// ErrExisting indicates a synchronous send found the slot occupied, and
	// the overwrite option was not set. The caller may receive the existing
	// value (from the Receiver side), enable overwrite, or retry later.
	ErrExisting = errors.New(`hatch: existing value`)

	// ErrLive indicates a recovery attempt found the partner handle still
	// open. The caller may retry once the partner has closed.
	ErrLive = errors.New(`hatch: partner still live`)
)
