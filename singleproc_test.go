package singleproc

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/katalog-app/singleproc/transport/memtransport"
)

// collector accumulates payloads delivered to a receive loop.
type collector struct {
	mu       sync.Mutex
	payloads []string
}

func (c *collector) onMessage(payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.payloads = append(c.payloads, string(payload))
	return nil
}

func (c *collector) snapshot() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.payloads...)
}

func produceBytes(s string) func() ([]byte, error) {
	return func() ([]byte, error) { return []byte(s), nil }
}

func noMessages(t *testing.T) func([]byte) error {
	return func(payload []byte) error {
		t.Errorf("unexpected message %q", payload)
		return nil
	}
}

// waitFor polls cond until it holds or the timeout elapses.
func waitFor(t *testing.T, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}

func waitClosed(t *testing.T, h SubscriberHandle, timeout time.Duration) {
	t.Helper()
	select {
	case <-h.Done():
	case <-time.After(timeout):
		t.Fatal("receive loop did not exit in time")
	}
}

func TestSingleProcess_FirstBecomesReceiverSecondDelegates(t *testing.T) {
	sys := memtransport.New()
	ctx := context.Background()
	cfg := Config{NodeName: "app", Logger: discardLogger()}

	var got collector
	first, err := SingleProcess(ctx, sys, cfg, produceBytes("unused"), got.onMessage)
	if err != nil {
		t.Fatalf("first SingleProcess() error = %v", err)
	}
	if first.Role != RoleReceiver {
		t.Fatalf("first caller role = %v, want receiver", first.Role)
	}
	defer func() {
		first.Handle.Close()
		waitClosed(t, first.Handle, time.Second)
	}()

	second, err := SingleProcess(ctx, sys, cfg, produceBytes("hello"), noMessages(t))
	if err != nil {
		t.Fatalf("second SingleProcess() error = %v", err)
	}
	if second.Role != RoleSender {
		t.Fatalf("second caller role = %v, want sender", second.Role)
	}

	waitFor(t, 2*time.Second, func() bool {
		return len(got.snapshot()) > 0
	}, "receiver never observed the delegated message")

	// Exactly once.
	time.Sleep(50 * time.Millisecond)
	if msgs := got.snapshot(); len(msgs) != 1 || msgs[0] != "hello" {
		t.Fatalf("received messages = %v, want [hello]", msgs)
	}
}

func TestSingleProcess_ConcurrentCallersElectOneReceiver(t *testing.T) {
	sys := memtransport.New()
	cfg := Config{NodeName: "app", Logger: discardLogger()}

	const callers = 8
	outcomes := make([]Outcome, callers)
	errs := make([]error, callers)

	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			var sink collector
			outcomes[i], errs[i] = SingleProcess(context.Background(), sys, cfg,
				produceBytes("ping"), sink.onMessage)
		}(i)
	}
	wg.Wait()

	receivers := 0
	for i := 0; i < callers; i++ {
		if errs[i] != nil {
			t.Fatalf("caller %d error = %v", i, errs[i])
		}
		if outcomes[i].Role == RoleReceiver {
			receivers++
			defer outcomes[i].Handle.Close()
		}
	}
	if receivers != 1 {
		t.Fatalf("receivers = %d, want exactly 1", receivers)
	}
}

func TestSubscriberHandle(t *testing.T) {
	t.Run("identities are unique and comparable", func(t *testing.T) {
		a, b := newHandle(), newHandle()
		if a.ID() == b.ID() {
			t.Error("two handles share an ID")
		}
		if a == b {
			t.Error("distinct handles compare equal")
		}
		if c := a; c != a {
			t.Error("copied handle does not compare equal to the original")
		}
	})

	t.Run("zero handle reads closed", func(t *testing.T) {
		var h SubscriberHandle
		if !h.IsClosed() {
			t.Error("zero handle IsClosed() = false, want true")
		}
		h.Close() // must not panic
	})

	t.Run("close stops the loop within one poll interval", func(t *testing.T) {
		sys := memtransport.New()
		var sink collector
		out, err := SingleProcess(context.Background(), sys,
			Config{NodeName: "app", Logger: discardLogger()},
			produceBytes("unused"), sink.onMessage)
		if err != nil {
			t.Fatalf("SingleProcess() error = %v", err)
		}

		out.Handle.Close()
		if !out.Handle.IsClosed() {
			t.Error("IsClosed() = false immediately after Close()")
		}
		waitClosed(t, out.Handle, pollInterval+250*time.Millisecond)
	})
}

func TestSubscribeOnly_ReplacesExistingReceiver(t *testing.T) {
	sys := memtransport.New()
	cfg := Config{NodeName: "app", Logger: discardLogger()}

	var a collector
	out, err := SingleProcess(context.Background(), sys, cfg, produceBytes("unused"), a.onMessage)
	if err != nil {
		t.Fatalf("SingleProcess() error = %v", err)
	}
	if out.Role != RoleReceiver {
		t.Fatalf("role = %v, want receiver", out.Role)
	}

	var c collector
	replCfg := cfg
	replCfg.ReplaceTimeout = 2 * time.Second
	handle, err := SubscribeOnly(context.Background(), sys, replCfg, c.onMessage)
	if err != nil {
		t.Fatalf("SubscribeOnly() error = %v", err)
	}
	defer func() {
		handle.Close()
		waitClosed(t, handle, time.Second)
	}()

	// The evicted loop observes the replace signal and exits.
	waitClosed(t, out.Handle, time.Second)
	if !out.Handle.IsClosed() {
		t.Error("evicted handle IsClosed() = false, want true")
	}

	// The new receiver owns the slot: a sender's message reaches it.
	send, err := SingleProcess(context.Background(), sys, cfg, produceBytes("after-replace"), noMessages(t))
	if err != nil {
		t.Fatalf("sender SingleProcess() error = %v", err)
	}
	if send.Role != RoleSender {
		t.Fatalf("sender role = %v, want sender", send.Role)
	}
	waitFor(t, 2*time.Second, func() bool {
		msgs := c.snapshot()
		return len(msgs) == 1 && msgs[0] == "after-replace"
	}, "replacement receiver never observed the message")
}

func TestSubscribeOnly_TimeoutWhenHolderNeverVacates(t *testing.T) {
	sys := memtransport.New()

	// A deaf slot holder: claims the subscriber slot but runs no receive
	// loop, so it never sees the replace signal.
	holderNode, err := sys.CreateNode("holder")
	if err != nil {
		t.Fatalf("CreateNode() error = %v", err)
	}
	defer holderNode.Close()
	ch, err := holderNode.OpenDataChannel(DefaultChannelName, 1)
	if err != nil {
		t.Fatalf("OpenDataChannel() error = %v", err)
	}
	holder, err := ch.Subscriber()
	if err != nil {
		t.Fatalf("Subscriber() error = %v", err)
	}
	defer holder.Close()

	cfg := Config{NodeName: "app", ReplaceTimeout: 60 * time.Millisecond, Logger: discardLogger()}
	start := time.Now()
	_, err = SubscribeOnly(context.Background(), sys, cfg, noMessages(t))
	elapsed := time.Since(start)

	var timeoutErr *AcquireTimeoutError
	if !errors.As(err, &timeoutErr) {
		t.Fatalf("SubscribeOnly() error = %v, want *AcquireTimeoutError", err)
	}
	if timeoutErr.Timeout != cfg.ReplaceTimeout {
		t.Errorf("AcquireTimeoutError.Timeout = %v, want %v", timeoutErr.Timeout, cfg.ReplaceTimeout)
	}
	// Bounded overshoot: timeout plus at most one backoff bound, with
	// scheduler slack.
	if elapsed > cfg.ReplaceTimeout+backoffCap+time.Second {
		t.Errorf("SubscribeOnly() blocked %v, want bounded by timeout plus one backoff", elapsed)
	}
}

func TestSubscribeOnly_CancelledContext(t *testing.T) {
	sys := memtransport.New()

	holderNode, _ := sys.CreateNode("holder")
	defer holderNode.Close()
	ch, _ := holderNode.OpenDataChannel(DefaultChannelName, 1)
	holder, err := ch.Subscriber()
	if err != nil {
		t.Fatalf("Subscriber() error = %v", err)
	}
	defer holder.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	cfg := Config{NodeName: "app", ReplaceTimeout: time.Minute, Logger: discardLogger()}
	_, err = SubscribeOnly(ctx, sys, cfg, noMessages(t))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("SubscribeOnly() error = %v, want context.Canceled", err)
	}
}

func TestSingleProcess_SweepsStaleResources(t *testing.T) {
	sys := memtransport.New()

	// A crashed process left both channels behind.
	victim, err := sys.CreateNode("victim")
	if err != nil {
		t.Fatalf("CreateNode() error = %v", err)
	}
	if _, err := victim.OpenDataChannel(DefaultChannelName, 1); err != nil {
		t.Fatalf("OpenDataChannel() error = %v", err)
	}
	if _, err := victim.OpenEventChannel(DefaultChannelName); err != nil {
		t.Fatalf("OpenEventChannel() error = %v", err)
	}
	sys.MarkDead("victim")

	var sink collector
	out, err := SingleProcess(context.Background(), sys,
		Config{NodeName: "app", Logger: discardLogger()},
		produceBytes("unused"), sink.onMessage)
	if err != nil {
		t.Fatalf("SingleProcess() after crash error = %v", err)
	}
	if out.Role != RoleReceiver {
		t.Fatalf("role = %v, want receiver", out.Role)
	}
	out.Handle.Close()
	waitClosed(t, out.Handle, time.Second)
}

func TestSingleProcess_ProducerFailureDeliversNothing(t *testing.T) {
	sys := memtransport.New()
	cfg := Config{NodeName: "app", Logger: discardLogger()}

	var got collector
	out, err := SingleProcess(context.Background(), sys, cfg, produceBytes("unused"), got.onMessage)
	if err != nil {
		t.Fatalf("SingleProcess() error = %v", err)
	}
	defer func() {
		out.Handle.Close()
		waitClosed(t, out.Handle, time.Second)
	}()

	produceErr := errors.New("no payload today")
	_, err = SingleProcess(context.Background(), sys, cfg,
		func() ([]byte, error) { return nil, produceErr },
		noMessages(t))
	if !errors.Is(err, produceErr) {
		t.Fatalf("SingleProcess() error = %v, want producer error", err)
	}

	// Give the receiver a full poll cycle: nothing must arrive.
	time.Sleep(pollInterval + 100*time.Millisecond)
	if msgs := got.snapshot(); len(msgs) != 0 {
		t.Fatalf("received messages = %v, want none", msgs)
	}
}

func TestReceiveLoop_HandlerErrorReleasesSlot(t *testing.T) {
	sys := memtransport.New()
	cfg := Config{NodeName: "app", Logger: discardLogger()}

	out, err := SingleProcess(context.Background(), sys, cfg, produceBytes("unused"),
		func([]byte) error { return errors.New("handler broke") })
	if err != nil {
		t.Fatalf("SingleProcess() error = %v", err)
	}

	if _, err := SingleProcess(context.Background(), sys, cfg, produceBytes("boom"), noMessages(t)); err != nil {
		t.Fatalf("sender SingleProcess() error = %v", err)
	}

	// The failing handler terminates the loop and frees the slot.
	waitClosed(t, out.Handle, 2*time.Second)

	var sink collector
	next, err := SingleProcess(context.Background(), sys, cfg, produceBytes("unused"), sink.onMessage)
	if err != nil {
		t.Fatalf("SingleProcess() after loop fault error = %v", err)
	}
	if next.Role != RoleReceiver {
		t.Fatalf("role after loop fault = %v, want receiver", next.Role)
	}
	next.Handle.Close()
	waitClosed(t, next.Handle, time.Second)
}

func TestConfigValidation(t *testing.T) {
	sys := memtransport.New()

	t.Run("node name is required", func(t *testing.T) {
		_, err := SingleProcess(context.Background(), sys, Config{Logger: discardLogger()},
			produceBytes("x"), noMessages(t))
		if err == nil {
			t.Fatal("SingleProcess() with empty NodeName = nil, want error")
		}
	})

	t.Run("invalid channel name is rejected", func(t *testing.T) {
		cfg := Config{NodeName: "app", ChannelName: "bad/name", Logger: discardLogger()}
		_, err := SubscribeOnly(context.Background(), sys, cfg, noMessages(t))
		if err == nil {
			t.Fatal("SubscribeOnly() with invalid ChannelName = nil, want error")
		}
	})
}
