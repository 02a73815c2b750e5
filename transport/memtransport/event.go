package memtransport

import (
	"errors"
	"sync"
	"time"

	"github.com/katalog-app/singleproc/transport"
)

// eventChannel fans signals out to every attached listener.
type eventChannel struct {
	mu        sync.Mutex
	ownerID   uint64
	listeners []*listener
}

func (c *eventChannel) Listener() (transport.Listener, error) {
	l := &listener{
		ch:      c,
		pending: make(map[transport.SignalID]struct{}),
		wake:    make(chan struct{}, 1),
	}

	c.mu.Lock()
	c.listeners = append(c.listeners, l)
	c.mu.Unlock()
	return l, nil
}

func (c *eventChannel) Notifier(defaultSignal transport.SignalID) (transport.Notifier, error) {
	return &notifier{ch: c, signal: defaultSignal}, nil
}

// fire records the signal on every listener and wakes any waiter.
func (c *eventChannel) fire(sig transport.SignalID) {
	c.mu.Lock()
	listeners := append([]*listener(nil), c.listeners...)
	c.mu.Unlock()

	for _, l := range listeners {
		l.mu.Lock()
		l.pending[sig] = struct{}{}
		l.mu.Unlock()

		select {
		case l.wake <- struct{}{}:
		default:
		}
	}
}

type listener struct {
	ch   *eventChannel
	wake chan struct{}

	mu      sync.Mutex
	pending map[transport.SignalID]struct{}
	closed  bool
}

// take drains the pending signal set.
func (l *listener) take() []transport.SignalID {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.pending) == 0 {
		return nil
	}
	sigs := make([]transport.SignalID, 0, len(l.pending))
	for sig := range l.pending {
		sigs = append(sigs, sig)
	}
	clear(l.pending)
	return sigs
}

func (l *listener) TimedWait(d time.Duration, onSignal func(transport.SignalID)) error {
	l.mu.Lock()
	closed := l.closed
	l.mu.Unlock()
	if closed {
		return errors.New("memtransport: wait on closed listener")
	}

	sigs := l.take()
	if len(sigs) == 0 {
		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case <-l.wake:
			sigs = l.take()
		case <-timer.C:
		}
	}

	for _, sig := range sigs {
		onSignal(sig)
	}
	return nil
}

func (l *listener) Close() error {
	l.mu.Lock()
	l.closed = true
	l.mu.Unlock()

	l.ch.mu.Lock()
	defer l.ch.mu.Unlock()
	for i, other := range l.ch.listeners {
		if other == l {
			l.ch.listeners = append(l.ch.listeners[:i], l.ch.listeners[i+1:]...)
			break
		}
	}
	return nil
}

type notifier struct {
	ch     *eventChannel
	signal transport.SignalID
}

func (n *notifier) Notify() error {
	n.ch.fire(n.signal)
	return nil
}

func (n *notifier) Close() error { return nil }
