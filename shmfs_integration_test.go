package singleproc

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/katalog-app/singleproc/transport/shmfs"
)

// The filesystem transport backs real cross-process use; run the full
// coordination flow over it inside one process to cover the wiring.
func TestSingleProcess_OverFilesystemTransport(t *testing.T) {
	sys := shmfs.New(t.TempDir())
	cfg := Config{NodeName: "app", Logger: discardLogger()}

	var got collector
	first, err := SingleProcess(context.Background(), sys, cfg, produceBytes("unused"), got.onMessage)
	if err != nil {
		t.Fatalf("first SingleProcess() error = %v", err)
	}
	if first.Role != RoleReceiver {
		t.Fatalf("first caller role = %v, want receiver", first.Role)
	}
	defer func() {
		first.Handle.Close()
		waitClosed(t, first.Handle, 2*time.Second)
	}()

	second, err := SingleProcess(context.Background(), sys, cfg, produceBytes("shared-file"), noMessages(t))
	if err != nil {
		t.Fatalf("second SingleProcess() error = %v", err)
	}
	if second.Role != RoleSender {
		t.Fatalf("second caller role = %v, want sender", second.Role)
	}

	waitFor(t, 5*time.Second, func() bool {
		msgs := got.snapshot()
		return len(msgs) == 1 && msgs[0] == "shared-file"
	}, "receiver never observed the delegated message over shmfs")
}

func TestSubscribeOnly_OverFilesystemTransport(t *testing.T) {
	sys := shmfs.New(t.TempDir())
	cfg := Config{NodeName: "app", Logger: discardLogger()}

	var a collector
	out, err := SingleProcess(context.Background(), sys, cfg, produceBytes("unused"), a.onMessage)
	if err != nil {
		t.Fatalf("SingleProcess() error = %v", err)
	}
	if out.Role != RoleReceiver {
		t.Fatalf("role = %v, want receiver", out.Role)
	}

	replCfg := cfg
	replCfg.ReplaceTimeout = 5 * time.Second
	var c collector
	handle, err := SubscribeOnly(context.Background(), sys, replCfg, c.onMessage)
	if err != nil {
		t.Fatalf("SubscribeOnly() error = %v", err)
	}
	defer func() {
		handle.Close()
		waitClosed(t, handle, 2*time.Second)
	}()

	waitClosed(t, out.Handle, 2*time.Second)
}

// A replace signal fired at a receiver that exited before consuming it stays
// on disk. The next receiver's listener must not pick it up and evict itself.
func TestSubscribeOnly_IgnoresStaleReplaceSignal(t *testing.T) {
	root := t.TempDir()
	sys := shmfs.New(root)
	cfg := Config{NodeName: "app", Logger: discardLogger()}

	var a collector
	out, err := SingleProcess(context.Background(), sys, cfg, produceBytes("unused"), a.onMessage)
	if err != nil {
		t.Fatalf("SingleProcess() error = %v", err)
	}
	if out.Role != RoleReceiver {
		t.Fatalf("role = %v, want receiver", out.Role)
	}
	out.Handle.Close()
	waitClosed(t, out.Handle, 2*time.Second)

	// The leftover an extra replace/acquire iteration leaves behind: a
	// replace signal nobody consumed.
	stale := filepath.Join(root, "channels", DefaultChannelName, "events",
		fmt.Sprintf("%020d-%07d-%06d.sig", time.Now().UnixNano(), 1, 1))
	if err := os.WriteFile(stale, fmt.Appendf(nil, "%d", SignalReplace), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	var c collector
	handle, err := SubscribeOnly(context.Background(), sys, cfg, c.onMessage)
	if err != nil {
		t.Fatalf("SubscribeOnly() error = %v", err)
	}
	defer func() {
		handle.Close()
		waitClosed(t, handle, 2*time.Second)
	}()

	// Give the loop several poll cycles; the stale signal must not end it.
	select {
	case <-handle.Done():
		t.Fatal("new receiver self-evicted on a signal fired before it existed")
	case <-time.After(2*pollInterval + 100*time.Millisecond):
	}
	if handle.IsClosed() {
		t.Fatal("new receiver reports closed shortly after acquiring the slot")
	}

	// And it still receives messages.
	send, err := SingleProcess(context.Background(), sys, cfg, produceBytes("still-alive"), noMessages(t))
	if err != nil {
		t.Fatalf("sender SingleProcess() error = %v", err)
	}
	if send.Role != RoleSender {
		t.Fatalf("sender role = %v, want sender", send.Role)
	}
	waitFor(t, 5*time.Second, func() bool {
		msgs := c.snapshot()
		return len(msgs) == 1 && msgs[0] == "still-alive"
	}, "receiver never observed the message sent after the stale signal")
}
