// Package singleproc coordinates independently launched processes so that
// exactly one of them acts as the receiver of application events while every
// other becomes a transient sender.
//
// Coordination rides on a shared messaging domain consumed through
// [github.com/katalog-app/singleproc/transport]: a data channel capped at
// one subscriber carries payloads, and a signal-only event channel carries
// wakeups. The transport's atomic subscriber-slot claim is the only
// cross-process synchronization; this package supplies lifecycle, retry
// timing, and handoff on top of it.
//
// # Entry points
//
//   - [SingleProcess]: first caller wins. The caller either claims the
//     subscriber slot and starts a background receive loop, or hands its
//     payload to the existing receiver and returns.
//   - [SubscribeOnly]: the caller insists on becoming the receiver,
//     repeatedly signalling the current one to vacate, with randomized
//     exponential backoff bounded by a timeout.
//
// # Receive loop
//
// A successful claim starts one background goroutine that polls the event
// channel (200 ms), drains the data channel completely on every wake, and
// exits when its [SubscriberHandle] is closed locally or a replace signal
// arrives from another process. Loop failures never escalate beyond the
// goroutine; they are observable through [SubscriberHandle.IsClosed].
//
// # Basic usage
//
//	sys := shmfs.New(shmfs.DefaultRoot())
//	out, err := singleproc.SingleProcess(ctx, sys, singleproc.Config{NodeName: "myapp"},
//	    func() ([]byte, error) { return payload, nil },
//	    func(msg []byte) error { return handle(msg) },
//	)
//	if err != nil {
//	    return err
//	}
//	if out.Role == singleproc.RoleSender {
//	    return nil // an existing instance received the payload
//	}
//	defer out.Handle.Close()
package singleproc
