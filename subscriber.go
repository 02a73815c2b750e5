package singleproc

import (
	"sync/atomic"
	"time"

	"github.com/katalog-app/singleproc/transport"
)

// pollInterval bounds how long the receive loop waits for a signal before
// re-checking its keep-alive flag. Local Close requests are observed within
// one interval.
const pollInterval = 200 * time.Millisecond

// handleIDs assigns process-unique receive-loop identities. Never reused.
var handleIDs atomic.Uint64

// SubscriberHandle identifies a running receive loop. Handles are
// lightweight values: copy them freely, compare them with ==, use them as
// map keys. Two handles are equal exactly when they identify the same loop.
//
// A handle never keeps the loop alive; once the loop exits, for any reason,
// IsClosed reports true.
type SubscriberHandle struct {
	id        uint64
	keepAlive *atomic.Bool
	done      chan struct{}
}

// newHandle returns a handle whose loop has not started yet.
func newHandle() SubscriberHandle {
	keepAlive := &atomic.Bool{}
	keepAlive.Store(true)
	return SubscriberHandle{
		id:        handleIDs.Add(1),
		keepAlive: keepAlive,
		done:      make(chan struct{}),
	}
}

// ID returns the process-local loop identity.
func (h SubscriberHandle) ID() uint64 { return h.id }

// IsClosed reports whether the loop has exited or has been asked to stop.
func (h SubscriberHandle) IsClosed() bool {
	if h.keepAlive == nil {
		return true
	}
	select {
	case <-h.done:
		return true
	default:
	}
	return !h.keepAlive.Load()
}

// Close asks the loop to stop. The request is cooperative: the loop observes
// it at the top of its next poll cycle, at most one poll interval later.
// Calling Close after the loop exited is a no-op.
func (h SubscriberHandle) Close() {
	if h.keepAlive != nil {
		h.keepAlive.Store(false)
	}
}

// Done returns a channel closed when the loop has exited and released the
// subscriber slot.
func (h SubscriberHandle) Done() <-chan struct{} { return h.done }

// spawnSubscriber starts the background receive loop. The loop exclusively
// owns sub and node from this point on and releases both on exit.
func spawnSubscriber(node transport.Node, sub transport.Subscriber, events transport.EventChannel, cfg Config, onMessage func([]byte) error) SubscriberHandle {
	handle := newHandle()
	keepAlive := handle.keepAlive
	logger := cfg.Logger.With("loop", cfg.LoopName)

	go func() {
		defer close(handle.done)
		defer keepAlive.Store(false)
		defer node.Close()
		defer sub.Close()

		listener, err := events.Listener()
		if err != nil {
			logger.Error("could not create event listener", "error", err)
			return
		}
		defer listener.Close()

		for keepAlive.Load() {
			err := listener.TimedWait(pollInterval, func(sig transport.SignalID) {
				if sig == SignalReplace {
					logger.Info("received replace signal, leaving receive loop")
					keepAlive.Store(false)
				}
			})
			if err != nil {
				logger.Error("event wait failed", "error", err)
				return
			}

			// Drain everything pending before the next wait. A replace
			// signal still gets this one final drain.
			for {
				payload, ok, err := sub.Receive()
				if err != nil {
					logger.Error("receive failed", "error", err)
					return
				}
				if !ok {
					break
				}
				logger.Debug("received message", "bytes", len(payload))
				if err := onMessage(payload); err != nil {
					logger.Error("message handler failed", "error", err)
					return
				}
			}
		}
		logger.Info("closing receive loop")
	}()

	return handle
}
