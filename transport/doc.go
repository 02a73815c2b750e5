// Package transport defines the capability surface the coordination core
// consumes from a shared messaging domain: nodes, data channels with a
// single subscriber slot, and signal-only event channels.
//
// The package contains no transport implementation of its own. Two
// implementations ship with this module:
//
//   - [github.com/katalog-app/singleproc/transport/memtransport]: a
//     process-local implementation for tests and in-process simulations.
//   - [github.com/katalog-app/singleproc/transport/shmfs]: a cross-process
//     implementation backed by a tmpfs directory.
//
// # Roles
//
//   - [System]: entry to a host-wide messaging domain plus the global node
//     registry used for stale-resource reclamation.
//   - [Node]: a process-local handle that scopes channel access and owns an
//     entry in the registry for as long as it is open.
//   - [DataChannel]: payload delivery with at most one live subscriber. The
//     subscriber slot is claimed atomically; a second claim fails with
//     [ErrSlotOccupied].
//   - [EventChannel]: signal-only wakeups identified by [SignalID]. Signals
//     have "has fired since the last wait" semantics: repeated fires of the
//     same signal between two waits are delivered once.
//
// # Error contract
//
// Implementations must return [ErrSlotOccupied] (possibly wrapped) from
// [DataChannel.Subscriber] when the slot is taken, and
// [ErrIncompatibleChannel] when a channel already exists with a different
// shape. All other failures are implementation-defined.
package transport
