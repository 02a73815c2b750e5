package singleproc

import (
	"errors"
	"log/slog"
	"time"

	"github.com/katalog-app/singleproc/transport"
)

// Defaults applied by [Config] for zero-valued fields.
const (
	// DefaultChannelName names the data and event channels when
	// Config.ChannelName is empty.
	DefaultChannelName = "single_process"

	// DefaultLoopName tags receive-loop log entries when Config.LoopName
	// is empty.
	DefaultLoopName = "single_process_subscriber"

	// DefaultReplaceTimeout bounds [SubscribeOnly]'s attempt to evict an
	// existing receiver when Config.ReplaceTimeout is zero.
	DefaultReplaceTimeout = 200 * time.Millisecond
)

// Reserved signal identifiers on the coordination event channel.
// Applications sharing the channel must not reuse them.
const (
	// SignalNotify tells the receiver that new data is available.
	SignalNotify transport.SignalID = 11

	// SignalReplace tells the current receiver to vacate the slot.
	SignalReplace transport.SignalID = 13
)

// Config configures the coordination entry points. NodeName is required;
// every other field has a documented default.
type Config struct {
	// NodeName names the messaging node registered by this process.
	NodeName string

	// ChannelName names both the data and the event channel.
	// Defaults to [DefaultChannelName].
	ChannelName string

	// LoopName tags log entries of the background receive loop.
	// Defaults to [DefaultLoopName].
	LoopName string

	// ReplaceTimeout bounds how long [SubscribeOnly] keeps asking an
	// existing receiver to step down. Defaults to [DefaultReplaceTimeout].
	ReplaceTimeout time.Duration

	// Logger receives structured log output. Defaults to [slog.Default].
	Logger *slog.Logger
}

// withDefaults returns a copy with defaults filled in.
func (c Config) withDefaults() Config {
	if c.ChannelName == "" {
		c.ChannelName = DefaultChannelName
	}
	if c.LoopName == "" {
		c.LoopName = DefaultLoopName
	}
	if c.ReplaceTimeout <= 0 {
		c.ReplaceTimeout = DefaultReplaceTimeout
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}

// validate checks the fields that cannot be defaulted.
func (c Config) validate() error {
	if c.NodeName == "" {
		return errors.New("singleproc: Config.NodeName is required")
	}
	if err := transport.ValidateName(c.NodeName); err != nil {
		return err
	}
	return transport.ValidateName(c.ChannelName)
}
