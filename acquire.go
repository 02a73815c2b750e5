package singleproc

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/katalog-app/singleproc/transport"
)

// Backoff bounds for the replace/acquire loop. The random wait before each
// retry is drawn uniformly from [0, bound]; the bound doubles per iteration.
const (
	backoffInitial = 2 * time.Millisecond
	backoffCap     = 100 * time.Millisecond
)

// acquireOrReplace evicts the current receiver and claims the subscriber
// slot. Each iteration fires a replace signal, waits a random bounded
// duration, and retries the claim. Unlike the advisory notify on the publish
// path, the replace signal is the whole mechanism here, so a signalling
// failure aborts the loop.
//
// Returns [*AcquireTimeoutError] once the wall clock exceeds cfg's
// ReplaceTimeout with the slot still occupied.
func acquireOrReplace(ctx context.Context, node transport.Node, data transport.DataChannel, events transport.EventChannel, cfg Config, onMessage func([]byte) error) (SubscriberHandle, error) {
	deadline := time.Now().Add(cfg.ReplaceTimeout)

	notifier, err := events.Notifier(SignalReplace)
	if err != nil {
		return SubscriberHandle{}, fmt.Errorf("singleproc: create replace notifier: %w", err)
	}
	defer notifier.Close()

	bound := backoffInitial
	for {
		if err := notifier.Notify(); err != nil {
			return SubscriberHandle{}, fmt.Errorf("singleproc: send replace signal: %w", err)
		}

		// Randomize the wait so competing acquirers do not retry in
		// lockstep.
		wait := time.Duration(rand.Int63n(int64(bound) + 1))
		if err := node.Wait(ctx, wait); err != nil {
			return SubscriberHandle{}, fmt.Errorf("singleproc: replace wait: %w", err)
		}

		sub, err := data.Subscriber()
		switch {
		case err == nil:
			return spawnSubscriber(node, sub, events, cfg, onMessage), nil
		case errors.Is(err, transport.ErrSlotOccupied):
			if time.Now().After(deadline) {
				return SubscriberHandle{}, &AcquireTimeoutError{Timeout: cfg.ReplaceTimeout}
			}
		default:
			return SubscriberHandle{}, fmt.Errorf("singleproc: claim subscriber slot: %w", err)
		}

		bound *= 2
		if bound > backoffCap {
			bound = backoffCap
		}
	}
}
