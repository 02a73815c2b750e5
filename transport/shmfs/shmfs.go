package shmfs

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/katalog-app/singleproc/transport"
)

// System is a filesystem-backed messaging domain rooted at one directory.
// Every process pointing at the same root shares the domain. Safe for
// concurrent use.
type System struct {
	root string
}

// New returns a System rooted at dir. The directory is created lazily on
// first use.
func New(dir string) *System {
	return &System{root: dir}
}

// DefaultRoot returns the conventional domain root: a "singleproc" directory
// under /dev/shm when that tmpfs exists, under the OS temp directory
// otherwise.
func DefaultRoot() string {
	if info, err := os.Stat("/dev/shm"); err == nil && info.IsDir() {
		return "/dev/shm/singleproc"
	}
	return filepath.Join(os.TempDir(), "singleproc")
}

func (s *System) nodesDir() string    { return filepath.Join(s.root, "nodes") }
func (s *System) channelsDir() string { return filepath.Join(s.root, "channels") }

// CreateNode registers a node: a fresh directory holding the node's name and
// a lock file this process keeps locked for the node's lifetime.
func (s *System) CreateNode(name string) (transport.Node, error) {
	if err := transport.ValidateName(name); err != nil {
		return nil, err
	}

	var suffix [8]byte
	if _, err := rand.Read(suffix[:]); err != nil {
		return nil, fmt.Errorf("shmfs: generate node id: %w", err)
	}
	dir := filepath.Join(s.nodesDir(), hex.EncodeToString(suffix[:]))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("shmfs: create node directory: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "name"), []byte(name), 0o644); err != nil {
		_ = os.RemoveAll(dir)
		return nil, fmt.Errorf("shmfs: write node name: %w", err)
	}

	lock, err := os.OpenFile(filepath.Join(dir, "lock"), os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		_ = os.RemoveAll(dir)
		return nil, fmt.Errorf("shmfs: open node lock: %w", err)
	}
	ok, err := tryLock(lock)
	if err == nil && !ok {
		err = fmt.Errorf("shmfs: fresh node lock already held")
	}
	if err != nil {
		_ = lock.Close()
		_ = os.RemoveAll(dir)
		return nil, fmt.Errorf("shmfs: lock node: %w", err)
	}

	return &node{sys: s, name: name, dir: dir, lock: lock}, nil
}

// Nodes enumerates every node directory under the root, dead ones included.
func (s *System) Nodes(fn func(transport.NodeEntry)) error {
	entries, err := os.ReadDir(s.nodesDir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("shmfs: read node registry: %w", err)
	}

	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		dir := filepath.Join(s.nodesDir(), e.Name())
		raw, err := os.ReadFile(filepath.Join(dir, "name"))
		if err != nil {
			// A node being created or torn down concurrently; skip.
			continue
		}
		fn(&nodeEntry{dir: dir, name: strings.TrimSpace(string(raw))})
	}
	return nil
}

// nodeEntry is the registry view of a node directory.
type nodeEntry struct {
	dir  string
	name string
}

func (e *nodeEntry) Name() string { return e.name }

// Alive probes the node's lock. A grabbable lock means the owner is gone.
func (e *nodeEntry) Alive() bool {
	lock, err := os.OpenFile(filepath.Join(e.dir, "lock"), os.O_RDWR, 0o644)
	if err != nil {
		// No lock file: the directory is mid-creation or mid-removal.
		// Treat as alive so we never reclaim a node being set up.
		return true
	}
	defer lock.Close()

	ok, err := tryLock(lock)
	if err != nil || !ok {
		return true
	}
	_ = unlock(lock)
	return false
}

// Reclaim removes a dead node's directory. Idempotent.
func (e *nodeEntry) Reclaim() error {
	if e.Alive() {
		return fmt.Errorf("shmfs: node %q is alive, refusing to reclaim", e.name)
	}
	if err := os.RemoveAll(e.dir); err != nil {
		return fmt.Errorf("shmfs: reclaim node %q: %w", e.name, err)
	}
	return nil
}
