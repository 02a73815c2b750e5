package singleproc

import (
	"context"
	"errors"
	"fmt"

	"github.com/katalog-app/singleproc/transport"
)

// Role reports which side of the coordination a caller ended up on.
type Role int

const (
	// RoleReceiver means the caller claimed the subscriber slot and runs
	// the receive loop.
	RoleReceiver Role = iota

	// RoleSender means an existing receiver was found and the caller's
	// payload was delegated to it.
	RoleSender
)

func (r Role) String() string {
	switch r {
	case RoleReceiver:
		return "receiver"
	case RoleSender:
		return "sender"
	default:
		return fmt.Sprintf("Role(%d)", int(r))
	}
}

// Outcome is the result of [SingleProcess].
type Outcome struct {
	// Role is the role the caller ended up with.
	Role Role

	// Handle controls the receive loop. Valid only when Role is
	// RoleReceiver.
	Handle SubscriberHandle
}

// SingleProcess makes the caller the single receiving instance, or hands its
// payload to the instance that already is.
//
// The first caller on a given node/channel name claims the subscriber slot
// and starts the background receive loop, feeding every incoming payload to
// onMessage. Every later caller finds the slot occupied, invokes produce
// exactly once, sends the payload to the receiver, and returns with
// [RoleSender].
//
// If SingleProcess returns an error, no payload has been delivered to any
// existing receiver: produce runs strictly after provisioning succeeded and
// only on the occupied-slot branch.
func SingleProcess(ctx context.Context, sys transport.System, cfg Config, produce func() ([]byte, error), onMessage func([]byte) error) (Outcome, error) {
	cfg = cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return Outcome{}, err
	}

	node, data, events, err := provision(sys, cfg)
	if err != nil {
		return Outcome{}, err
	}

	sub, err := data.Subscriber()
	switch {
	case err == nil:
		return Outcome{Role: RoleReceiver, Handle: spawnSubscriber(node, sub, events, cfg, onMessage)}, nil
	case errors.Is(err, transport.ErrSlotOccupied):
		defer node.Close()
		if err := publish(ctx, node, data, events, cfg, produce); err != nil {
			return Outcome{}, err
		}
		return Outcome{Role: RoleSender}, nil
	default:
		_ = node.Close()
		return Outcome{}, fmt.Errorf("singleproc: claim subscriber slot: %w", err)
	}
}

// SubscribeOnly makes the caller the single receiving instance, evicting any
// current receiver. If the slot is occupied it runs the replace/acquire loop
// bounded by cfg.ReplaceTimeout and returns [*AcquireTimeoutError] when the
// holder never vacates.
func SubscribeOnly(ctx context.Context, sys transport.System, cfg Config, onMessage func([]byte) error) (SubscriberHandle, error) {
	cfg = cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return SubscriberHandle{}, err
	}

	node, data, events, err := provision(sys, cfg)
	if err != nil {
		return SubscriberHandle{}, err
	}

	sub, err := data.Subscriber()
	switch {
	case err == nil:
		return spawnSubscriber(node, sub, events, cfg, onMessage), nil
	case errors.Is(err, transport.ErrSlotOccupied):
		handle, err := acquireOrReplace(ctx, node, data, events, cfg, onMessage)
		if err != nil {
			_ = node.Close()
			return SubscriberHandle{}, err
		}
		return handle, nil
	default:
		_ = node.Close()
		return SubscriberHandle{}, fmt.Errorf("singleproc: claim subscriber slot: %w", err)
	}
}
