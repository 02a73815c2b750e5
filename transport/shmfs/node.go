package shmfs

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/katalog-app/singleproc/transport"
)

// channelMeta is the on-disk channel shape, written once at creation.
type channelMeta struct {
	MaxSubscribers int `json:"max_subscribers"`
}

// node is a registered domain member holding its liveness lock.
type node struct {
	sys  *System
	name string
	dir  string
	lock *os.File
}

func (n *node) OpenDataChannel(name string, maxSubscribers int) (transport.DataChannel, error) {
	if err := transport.ValidateName(name); err != nil {
		return nil, err
	}
	if maxSubscribers < 1 {
		return nil, fmt.Errorf("shmfs: maxSubscribers must be at least 1, got %d", maxSubscribers)
	}

	dir := filepath.Join(n.sys.channelsDir(), name)
	if err := os.MkdirAll(filepath.Join(dir, "data"), 0o755); err != nil {
		return nil, fmt.Errorf("shmfs: create channel %q: %w", name, err)
	}

	meta, err := ensureMeta(dir, channelMeta{MaxSubscribers: maxSubscribers})
	if err != nil {
		return nil, fmt.Errorf("shmfs: channel %q metadata: %w", name, err)
	}
	if meta.MaxSubscribers != maxSubscribers {
		return nil, fmt.Errorf("%w: channel %q has capacity %d, requested %d",
			transport.ErrIncompatibleChannel, name, meta.MaxSubscribers, maxSubscribers)
	}

	return &dataChannel{dir: dir}, nil
}

func (n *node) OpenEventChannel(name string) (transport.EventChannel, error) {
	if err := transport.ValidateName(name); err != nil {
		return nil, err
	}

	dir := filepath.Join(n.sys.channelsDir(), name)
	if err := os.MkdirAll(filepath.Join(dir, "events"), 0o755); err != nil {
		return nil, fmt.Errorf("shmfs: create event channel %q: %w", name, err)
	}
	return &eventChannel{dir: dir}, nil
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

// Close releases the liveness lock and removes the registry entry.
func (n *node) Close() error {
	if n.lock == nil {
		return nil
	}
	_ = unlock(n.lock)
	err := n.lock.Close()
	n.lock = nil
	if rmErr := os.RemoveAll(n.dir); rmErr != nil && err == nil {
		err = rmErr
	}
	return err
}

// ensureMeta writes the channel metadata exactly once across racing
// processes: the content lands under a temporary name and is hard-linked
// into place, so the first creator wins and everyone else reads a fully
// written file.
func ensureMeta(dir string, want channelMeta) (channelMeta, error) {
	metaPath := filepath.Join(dir, "meta.json")

	if raw, err := os.ReadFile(metaPath); err == nil {
		var got channelMeta
		if err := json.Unmarshal(raw, &got); err != nil {
			return channelMeta{}, fmt.Errorf("parse %s: %w", metaPath, err)
		}
		return got, nil
	}

	raw, err := json.Marshal(want)
	if err != nil {
		return channelMeta{}, err
	}
	tmp, err := os.CreateTemp(dir, "meta-*.tmp")
	if err != nil {
		return channelMeta{}, err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)
	if _, err := tmp.Write(raw); err != nil {
		_ = tmp.Close()
		return channelMeta{}, err
	}
	if err := tmp.Close(); err != nil {
		return channelMeta{}, err
	}

	if err := os.Link(tmpName, metaPath); err == nil {
		return want, nil
	}

	// Lost the creation race; read whoever won.
	got, err := os.ReadFile(metaPath)
	if err != nil {
		return channelMeta{}, fmt.Errorf("read %s after creation race: %w", metaPath, err)
	}
	var existing channelMeta
	if err := json.Unmarshal(got, &existing); err != nil {
		return channelMeta{}, fmt.Errorf("parse %s: %w", metaPath, err)
	}
	return existing, nil
}
