package singleproc

import (
	"context"
	"fmt"
	"time"

	"github.com/katalog-app/singleproc/transport"
)

// Waits applied after a publish so the receiver can drain the message before
// the sending process tears its node down.
const (
	// notifiedSettleWait applies when the notify signal was delivered; the
	// receiver wakes immediately.
	notifiedSettleWait = 50 * time.Millisecond

	// fallbackSettleWait applies when signalling failed; the receiver
	// discovers the message on its own poll cycle.
	fallbackSettleWait = 200 * time.Millisecond
)

// publish hands one payload to the existing receiver: loan, produce, write,
// send, notify. The payload is produced only after the loan succeeded, so a
// failing producer sends nothing. Once the message is sent the publish
// counts as successful; signalling and settling are advisory.
func publish(ctx context.Context, node transport.Node, data transport.DataChannel, events transport.EventChannel, cfg Config, produce func() ([]byte, error)) error {
	pub, err := data.Publisher()
	if err != nil {
		return fmt.Errorf("singleproc: create publisher: %w", err)
	}
	defer pub.Close()

	notifier, err := events.Notifier(SignalNotify)
	if err != nil {
		return fmt.Errorf("singleproc: create notifier: %w", err)
	}
	defer notifier.Close()

	sample, err := pub.Loan()
	if err != nil {
		return fmt.Errorf("singleproc: loan sample: %w", err)
	}
	payload, err := produce()
	if err != nil {
		return err
	}
	if err := sample.Write(payload); err != nil {
		return fmt.Errorf("singleproc: write sample: %w", err)
	}
	if err := sample.Send(); err != nil {
		return fmt.Errorf("singleproc: send sample: %w", err)
	}
	cfg.Logger.Info("sent message to existing receiver", "bytes", len(payload))

	settle := notifiedSettleWait
	if err := notifier.Notify(); err != nil {
		cfg.Logger.Error("could not send notify signal", "error", err)
		settle = fallbackSettleWait
	}
	if err := node.Wait(ctx, settle); err != nil {
		cfg.Logger.Warn("after-publish wait interrupted", "error", err)
	}
	return nil
}
