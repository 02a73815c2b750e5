package shmfs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/katalog-app/singleproc/transport"
)

// eventChannel stores each fired signal as one file under events/. A
// listener consumes the files; an fsnotify watch on the directory provides
// the wakeup.
type eventChannel struct {
	dir string
}

func (c *eventChannel) eventsDir() string { return filepath.Join(c.dir, "events") }

func (c *eventChannel) Listener() (transport.Listener, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("shmfs: create event watcher: %w", err)
	}
	if err := watcher.Add(c.eventsDir()); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("shmfs: watch event directory: %w", err)
	}

	l := &listener{ch: c, watcher: watcher}
	// Signal files left over from before this listener existed must not be
	// delivered to it; consume them now so the first wait starts from a
	// clean baseline.
	if _, err := l.takeSignals(); err != nil {
		_ = watcher.Close()
		return nil, err
	}
	return l, nil
}

func (c *eventChannel) Notifier(defaultSignal transport.SignalID) (transport.Notifier, error) {
	return &notifier{ch: c, signal: defaultSignal}, nil
}

type listener struct {
	ch      *eventChannel
	watcher *fsnotify.Watcher
}

// TimedWait delivers all signals fired since the last wait, blocking on the
// directory watch until one arrives or d elapses. Timeouts are not errors.
func (l *listener) TimedWait(d time.Duration, onSignal func(transport.SignalID)) error {
	sigs, err := l.takeSignals()
	if err != nil {
		return err
	}

	if len(sigs) == 0 {
		deadline := time.Now().Add(d)
		timer := time.NewTimer(d)
		defer timer.Stop()

	wait:
		for {
			select {
			case ev, ok := <-l.watcher.Events:
				if !ok {
					return errors.New("shmfs: listener closed")
				}
				if ev.Op&(fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				sigs, err = l.takeSignals()
				if err != nil {
					return err
				}
				if len(sigs) > 0 {
					break wait
				}
				// A stray event (tmp file churn); keep waiting out the
				// original deadline.
				if !time.Now().Before(deadline) {
					return nil
				}
			case err, ok := <-l.watcher.Errors:
				if !ok {
					return errors.New("shmfs: listener closed")
				}
				return fmt.Errorf("shmfs: event watch: %w", err)
			case <-timer.C:
				// Last scan closes the window between the initial scan
				// and the watch registration being serviced.
				sigs, err = l.takeSignals()
				if err != nil {
					return err
				}
				break wait
			}
		}
	}

	seen := make(map[transport.SignalID]struct{}, len(sigs))
	for _, sig := range sigs {
		if _, dup := seen[sig]; dup {
			continue
		}
		seen[sig] = struct{}{}
		onSignal(sig)
	}
	return nil
}

// takeSignals consumes every signal file currently in the directory.
func (l *listener) takeSignals() ([]transport.SignalID, error) {
	entries, err := os.ReadDir(l.ch.eventsDir())
	if err != nil {
		return nil, fmt.Errorf("shmfs: scan event directory: %w", err)
	}

	var sigs []transport.SignalID
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".sig") {
			continue
		}
		path := filepath.Join(l.ch.eventsDir(), e.Name())
		raw, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("shmfs: read signal: %w", err)
		}
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("shmfs: consume signal: %w", err)
		}
		id, err := strconv.ParseUint(strings.TrimSpace(string(raw)), 10, 64)
		if err != nil {
			// Foreign debris in the events directory; already removed.
			continue
		}
		sigs = append(sigs, transport.SignalID(id))
	}
	return sigs, nil
}

func (l *listener) Close() error {
	return l.watcher.Close()
}

type notifier struct {
	ch     *eventChannel
	signal transport.SignalID
}

// Notify fires the notifier's signal with a write-then-rename into the
// events directory.
func (n *notifier) Notify() error {
	name := fmt.Sprintf("%020d-%07d-%06d.sig",
		time.Now().UnixNano(), os.Getpid()%1_000_000, msgSeq.Add(1)%1_000_000)
	dir := n.ch.eventsDir()
	tmp := filepath.Join(dir, name+".tmp")
	payload := strconv.FormatUint(uint64(n.signal), 10)
	if err := os.WriteFile(tmp, []byte(payload), 0o644); err != nil {
		return fmt.Errorf("shmfs: stage signal: %w", err)
	}
	if err := os.Rename(tmp, filepath.Join(dir, name)); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("shmfs: fire signal: %w", err)
	}
	return nil
}

func (n *notifier) Close() error { return nil }
