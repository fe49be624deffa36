// Package hatch implements a reusable single-slot handshake channel, passing
// one value at a time between a unique [Sender] and a unique [Receiver].
//
// Unlike a buffered Go channel of capacity one, a hatch is poll-driven and
// never blocks: synchronous attempts report their outcome immediately, and
// asynchronous operations register a caller-supplied [Waker] to be invoked
// when the operation should be retried. This makes it suitable as a building
// block for executors, pollers, and other systems that manage their own
// scheduling, including those that recycle channel storage externally.
//
// Features include overwrite and close-on-success options, a lazy-send
// protocol (see [Sender.Wait]) that defers computing a value until a receiver
// is actually listening, recovery of a closed partner handle (see
// [Sender.Recover] and [Receiver.Recover]), and reuse of caller-managed
// [Channel] storage via [Channel.Reclaim].
//
// See also [github.com/joeycumines/go-microbatch] and
// [github.com/joeycumines/go-longpoll], which solve adjacent problems using
// ordinary Go channels.
package hatch
