package shmfs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/katalog-app/singleproc/transport"
)

// msgSeq disambiguates message files created within one nanosecond tick by
// this process. Cross-process ties are broken by the pid component.
var msgSeq atomic.Uint64

// dataChannel stores each in-flight payload as one file under data/.
// Delivery order follows the lexicographic file names, which order by send
// time.
type dataChannel struct {
	dir string
}

func (c *dataChannel) dataDir() string { return filepath.Join(c.dir, "data") }

// Subscriber claims the slot by taking the channel's subscriber lock.
func (c *dataChannel) Subscriber() (transport.Subscriber, error) {
	lock, err := os.OpenFile(filepath.Join(c.dir, "sub.lock"), os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("shmfs: open subscriber lock: %w", err)
	}
	ok, err := tryLock(lock)
	if err != nil {
		_ = lock.Close()
		return nil, fmt.Errorf("shmfs: probe subscriber lock: %w", err)
	}
	if !ok {
		_ = lock.Close()
		return nil, transport.ErrSlotOccupied
	}
	return &subscriber{ch: c, lock: lock}, nil
}

func (c *dataChannel) Publisher() (transport.Publisher, error) {
	return &publisher{ch: c}, nil
}

type subscriber struct {
	ch   *dataChannel
	lock *os.File
}

// Receive consumes the oldest payload file, if any.
func (s *subscriber) Receive() ([]byte, bool, error) {
	if s.lock == nil {
		return nil, false, errors.New("shmfs: receive on closed subscriber")
	}

	entries, err := os.ReadDir(s.ch.dataDir())
	if err != nil {
		return nil, false, fmt.Errorf("shmfs: scan data directory: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".msg") {
			continue
		}
		path := filepath.Join(s.ch.dataDir(), e.Name())
		payload, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, false, fmt.Errorf("shmfs: read payload: %w", err)
		}
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return nil, false, fmt.Errorf("shmfs: consume payload: %w", err)
		}
		return payload, true, nil
	}
	return nil, false, nil
}

// Close releases the subscriber slot. Idempotent.
func (s *subscriber) Close() error {
	if s.lock == nil {
		return nil
	}
	_ = unlock(s.lock)
	err := s.lock.Close()
	s.lock = nil
	return err
}

type publisher struct {
	ch *dataChannel
}

func (p *publisher) Loan() (transport.Sample, error) {
	return &sample{ch: p.ch}, nil
}

func (p *publisher) Close() error { return nil }

// sample buffers a payload between Write and Send. Send publishes it with a
// write-then-rename so the subscriber never sees a partial file.
type sample struct {
	ch      *dataChannel
	payload []byte
	written bool
	sent    bool
}

func (s *sample) Write(payload []byte) error {
	if s.sent {
		return errors.New("shmfs: write on sent sample")
	}
	s.payload = append([]byte(nil), payload...)
	s.written = true
	return nil
}

func (s *sample) Send() error {
	if s.sent {
		return errors.New("shmfs: sample sent twice")
	}
	if !s.written {
		return errors.New("shmfs: sample sent before write")
	}

	name := fmt.Sprintf("%020d-%07d-%06d.msg",
		time.Now().UnixNano(), os.Getpid()%1_000_000, msgSeq.Add(1)%1_000_000)
	dir := s.ch.dataDir()
	tmp := filepath.Join(dir, name+".tmp")
	if err := os.WriteFile(tmp, s.payload, 0o644); err != nil {
		return fmt.Errorf("shmfs: stage payload: %w", err)
	}
	if err := os.Rename(tmp, filepath.Join(dir, name)); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("shmfs: publish payload: %w", err)
	}
	s.sent = true
	return nil
}
