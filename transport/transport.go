package transport

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// SignalID identifies a signal kind on an event channel. IDs are shared
// host-wide per channel name; applications sharing an event channel with the
// coordination core must pick IDs that do not collide with the reserved ones.
type SignalID uint64

// ErrSlotOccupied is returned by [DataChannel.Subscriber] when the channel's
// single subscriber slot is already claimed by a live subscriber.
var ErrSlotOccupied = errors.New("transport: subscriber slot occupied")

// ErrIncompatibleChannel is returned when a channel already exists with a
// different shape (for example a different subscriber capacity). This
// condition is permanent and must not trigger stale-resource cleanup.
var ErrIncompatibleChannel = errors.New("transport: channel exists with incompatible shape")

// System is the entry to a host-wide messaging domain. Implementations are
// safe for concurrent use.
type System interface {
	// CreateNode registers a fresh node in the domain. The node stays
	// registered, and is reported alive, until Close is called or the
	// owning process dies.
	CreateNode(name string) (Node, error)

	// Nodes invokes fn once per node known to the global registry,
	// including nodes owned by other processes and nodes whose owner has
	// died. Enumeration order is unspecified.
	Nodes(fn func(NodeEntry)) error
}

// NodeEntry is a registry view of a node, possibly owned by another process.
type NodeEntry interface {
	// Name is the name the node was created with.
	Name() string

	// Alive reports whether the owning process still holds the node.
	Alive() bool

	// Reclaim removes the resources a dead node left behind. It is
	// idempotent; reclaiming an alive node is an error.
	Reclaim() error
}

// Node is a process-local handle scoping channel access.
type Node interface {
	// OpenDataChannel opens the named data channel, creating it with the
	// given subscriber capacity if it does not exist. Opening an existing
	// channel with a different capacity fails with [ErrIncompatibleChannel].
	OpenDataChannel(name string, maxSubscribers int) (DataChannel, error)

	// OpenEventChannel opens or creates the named event channel.
	OpenEventChannel(name string) (EventChannel, error)

	// Wait sleeps for at most d, returning early with the context error if
	// ctx is cancelled.
	Wait(ctx context.Context, d time.Duration) error

	// Close deregisters the node. Channel endpoints obtained through the
	// node stay usable until closed themselves.
	Close() error
}

// DataChannel carries payloads from any number of publishers to at most one
// subscriber.
type DataChannel interface {
	// Subscriber claims the channel's single subscriber slot. Fails with
	// [ErrSlotOccupied] while another live subscriber holds it.
	Subscriber() (Subscriber, error)

	// Publisher returns a publishing endpoint.
	Publisher() (Publisher, error)
}

// Subscriber is the receiving end of a data channel. Not safe for concurrent
// use; the coordination core confines it to one goroutine.
type Subscriber interface {
	// Receive returns the next pending payload without blocking. ok is
	// false when the channel is empty.
	Receive() (payload []byte, ok bool, err error)

	// Close releases the subscriber slot for a future claimant.
	Close() error
}

// Publisher is the sending end of a data channel.
type Publisher interface {
	// Loan reserves a sample to be filled and sent.
	Loan() (Sample, error)

	Close() error
}

// Sample is a loaned write buffer. Write then Send, each at most once.
type Sample interface {
	Write(payload []byte) error
	Send() error
}

// EventChannel carries signal-only wakeups.
type EventChannel interface {
	Listener() (Listener, error)

	// Notifier returns a firing endpoint whose Notify emits defaultSignal.
	Notifier(defaultSignal SignalID) (Notifier, error)
}

// Listener is the waiting end of an event channel. It observes only signals
// fired after its creation; anything fired earlier is invisible to it.
type Listener interface {
	// TimedWait blocks until at least one signal has fired since the last
	// wait (or since the listener was created), or until d elapses. Fired
	// signals are delivered through onSignal, once per distinct ID, before
	// TimedWait returns. A timeout with no signals is not an error.
	TimedWait(d time.Duration, onSignal func(SignalID)) error

	Close() error
}

// Notifier is the firing end of an event channel.
type Notifier interface {
	Notify() error
	Close() error
}

// maxNameLen bounds node and channel names. Names become registry keys and,
// for filesystem-backed transports, directory names.
const maxNameLen = 128

// ValidateName checks that a node or channel name is usable as a registry
// key: non-empty, at most 128 bytes, and limited to letters, digits, '.',
// '_' and '-'.
func ValidateName(name string) error {
	if name == "" {
		return errors.New("transport: name must not be empty")
	}
	if len(name) > maxNameLen {
		return fmt.Errorf("transport: name %q exceeds %d bytes", name, maxNameLen)
	}
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case c >= 'a' && c <= 'z':
		case c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9':
		case c == '.' || c == '_' || c == '-':
		default:
			return fmt.Errorf("transport: name %q contains invalid byte %q", name, c)
		}
	}
	return nil
}
