package memtransport

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/katalog-app/singleproc/transport"
)

// errStaleResources marks a channel whose creating node died without
// cleanup. A stale-resource sweep over the registry clears the condition.
var errStaleResources = errors.New("memtransport: channel holds stale resources of a dead node")

// System is an in-process messaging domain. The zero value is not usable;
// construct with [New]. Safe for concurrent use.
type System struct {
	mu     sync.Mutex
	nextID uint64
	nodes  map[uint64]*nodeRecord
	data   map[string]*dataChannel
	events map[string]*eventChannel
}

// nodeRecord is a registry entry. Records outlive their Node handle only
// when the node is marked dead instead of being closed.
type nodeRecord struct {
	id    uint64
	name  string
	alive bool
}

// New creates an empty messaging domain.
func New() *System {
	return &System{
		nodes:  make(map[uint64]*nodeRecord),
		data:   make(map[string]*dataChannel),
		events: make(map[string]*eventChannel),
	}
}

// CreateNode registers a fresh node. Node names need not be unique; every
// call produces a distinct registry entry.
func (s *System) CreateNode(name string) (transport.Node, error) {
	if err := transport.ValidateName(name); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	rec := &nodeRecord{id: s.nextID, name: name, alive: true}
	s.nodes[rec.id] = rec
	return &node{sys: s, rec: rec}, nil
}

// Nodes enumerates all registry entries, dead ones included.
func (s *System) Nodes(fn func(transport.NodeEntry)) error {
	s.mu.Lock()
	entries := make([]*nodeEntry, 0, len(s.nodes))
	for _, rec := range s.nodes {
		entries = append(entries, &nodeEntry{sys: s, rec: rec})
	}
	s.mu.Unlock()

	for _, e := range entries {
		fn(e)
	}
	return nil
}

// MarkDead flags every node with the given name as dead, leaving its
// channels stale. It models the owning process crashing.
func (s *System) MarkDead(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range s.nodes {
		if rec.name == name {
			rec.alive = false
		}
	}
}

// ownerDead reports whether the given owner id belongs to a dead registry
// entry. Owner id 0 means the creating node closed cleanly and handed the
// channel off. Callers hold s.mu.
func (s *System) ownerDead(ownerID uint64) bool {
	if ownerID == 0 {
		return false
	}
	rec, ok := s.nodes[ownerID]
	return ok && !rec.alive
}

// nodeEntry is the registry view handed to Nodes callbacks.
type nodeEntry struct {
	sys *System
	rec *nodeRecord
}

func (e *nodeEntry) Name() string { return e.rec.name }

func (e *nodeEntry) Alive() bool {
	e.sys.mu.Lock()
	defer e.sys.mu.Unlock()
	return e.rec.alive
}

// Reclaim removes a dead node's registry entry and every channel it still
// owned, so the channels can be recreated fresh.
func (e *nodeEntry) Reclaim() error {
	e.sys.mu.Lock()
	defer e.sys.mu.Unlock()

	if e.rec.alive {
		return fmt.Errorf("memtransport: node %q is alive, refusing to reclaim", e.rec.name)
	}

	for name, ch := range e.sys.data {
		if ch.ownerID == e.rec.id {
			delete(e.sys.data, name)
		}
	}
	for name, ch := range e.sys.events {
		if ch.ownerID == e.rec.id {
			delete(e.sys.events, name)
		}
	}
	delete(e.sys.nodes, e.rec.id)
	return nil
}

// node is a live handle to a registry entry.
type node struct {
	sys *System
	rec *nodeRecord
}

func (n *node) OpenDataChannel(name string, maxSubscribers int) (transport.DataChannel, error) {
	if err := transport.ValidateName(name); err != nil {
		return nil, err
	}
	if maxSubscribers < 1 {
		return nil, fmt.Errorf("memtransport: maxSubscribers must be at least 1, got %d", maxSubscribers)
	}

	n.sys.mu.Lock()
	defer n.sys.mu.Unlock()

	if ch, ok := n.sys.data[name]; ok {
		if n.sys.ownerDead(ch.ownerID) {
			return nil, fmt.Errorf("%w: data channel %q", errStaleResources, name)
		}
		if ch.maxSubscribers != maxSubscribers {
			return nil, fmt.Errorf("%w: data channel %q has capacity %d, requested %d",
				transport.ErrIncompatibleChannel, name, ch.maxSubscribers, maxSubscribers)
		}
		return ch, nil
	}

	ch := &dataChannel{ownerID: n.rec.id, maxSubscribers: maxSubscribers}
	n.sys.data[name] = ch
	return ch, nil
}

func (n *node) OpenEventChannel(name string) (transport.EventChannel, error) {
	if err := transport.ValidateName(name); err != nil {
		return nil, err
	}

	n.sys.mu.Lock()
	defer n.sys.mu.Unlock()

	if ch, ok := n.sys.events[name]; ok {
		if n.sys.ownerDead(ch.ownerID) {
			return nil, fmt.Errorf("%w: event channel %q", errStaleResources, name)
		}
		return ch, nil
	}

	ch := &eventChannel{ownerID: n.rec.id}
	n.sys.events[name] = ch
	return ch, nil
}

func (n *node) Wait(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Close deregisters the node. Channels it created stay usable and are no
// longer tied to any owner.
func (n *node) Close() error {
	n.sys.mu.Lock()
	defer n.sys.mu.Unlock()

	for _, ch := range n.sys.data {
		if ch.ownerID == n.rec.id {
			ch.ownerID = 0
		}
	}
	for _, ch := range n.sys.events {
		if ch.ownerID == n.rec.id {
			ch.ownerID = 0
		}
	}
	delete(n.sys.nodes, n.rec.id)
	return nil
}
