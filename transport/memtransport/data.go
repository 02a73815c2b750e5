package memtransport

import (
	"errors"
	"fmt"
	"sync"

	"github.com/katalog-app/singleproc/transport"
)

// dataChannel is a FIFO of payload copies with one claimable subscriber slot.
type dataChannel struct {
	mu             sync.Mutex
	ownerID        uint64
	maxSubscribers int
	subscribed     int
	queue          [][]byte
}

func (c *dataChannel) Subscriber() (transport.Subscriber, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.subscribed >= c.maxSubscribers {
		return nil, fmt.Errorf("%w (capacity %d)", transport.ErrSlotOccupied, c.maxSubscribers)
	}
	c.subscribed++
	return &subscriber{ch: c}, nil
}

func (c *dataChannel) Publisher() (transport.Publisher, error) {
	return &publisher{ch: c}, nil
}

type subscriber struct {
	ch     *dataChannel
	closed bool
}

func (s *subscriber) Receive() ([]byte, bool, error) {
	s.ch.mu.Lock()
	defer s.ch.mu.Unlock()

	if s.closed {
		return nil, false, errors.New("memtransport: receive on closed subscriber")
	}
	if len(s.ch.queue) == 0 {
		return nil, false, nil
	}
	payload := s.ch.queue[0]
	s.ch.queue = s.ch.queue[1:]
	return payload, true, nil
}

func (s *subscriber) Close() error {
	s.ch.mu.Lock()
	defer s.ch.mu.Unlock()

	if !s.closed {
		s.closed = true
		s.ch.subscribed--
	}
	return nil
}

type publisher struct {
	ch *dataChannel
}

func (p *publisher) Loan() (transport.Sample, error) {
	return &sample{ch: p.ch}, nil
}

func (p *publisher) Close() error { return nil }

// sample holds a payload copy between Write and Send.
type sample struct {
	ch      *dataChannel
	payload []byte
	written bool
	sent    bool
}

func (s *sample) Write(payload []byte) error {
	if s.sent {
		return errors.New("memtransport: write on sent sample")
	}
	s.payload = append([]byte(nil), payload...)
	s.written = true
	return nil
}

func (s *sample) Send() error {
	if s.sent {
		return errors.New("memtransport: sample sent twice")
	}
	if !s.written {
		return errors.New("memtransport: sample sent before write")
	}
	s.sent = true

	s.ch.mu.Lock()
	defer s.ch.mu.Unlock()
	s.ch.queue = append(s.ch.queue, s.payload)
	return nil
}
