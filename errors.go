package singleproc

import (
	"fmt"
	"time"
)

// AcquireTimeoutError is returned by [SubscribeOnly] when the existing
// receiver did not vacate the subscriber slot within the configured timeout.
// It is distinct from transport failures: the slot was simply still held.
type AcquireTimeoutError struct {
	// Timeout is the budget that was exhausted.
	Timeout time.Duration
}

func (e *AcquireTimeoutError) Error() string {
	return fmt.Sprintf("singleproc: gave up replacing the active receiver after %s", e.Timeout)
}
