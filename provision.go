package singleproc

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/katalog-app/singleproc/transport"
)

// provision opens the node and both channels. On data-channel creation
// failures other than a shape mismatch it runs one best-effort sweep over
// the registry, reclaiming resources of dead nodes, and retries exactly
// once. Any remaining failure is surfaced with the node closed.
func provision(sys transport.System, cfg Config) (transport.Node, transport.DataChannel, transport.EventChannel, error) {
	node, err := sys.CreateNode(cfg.NodeName)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("singleproc: create node %q: %w", cfg.NodeName, err)
	}

	data, err := openDataChannel(sys, node, cfg)
	if err != nil {
		_ = node.Close()
		return nil, nil, nil, err
	}

	events, err := node.OpenEventChannel(cfg.ChannelName)
	if err != nil {
		_ = node.Close()
		return nil, nil, nil, fmt.Errorf("singleproc: open event channel %q: %w", cfg.ChannelName, err)
	}

	return node, data, events, nil
}

// openDataChannel opens the payload channel with a single subscriber slot,
// sweeping stale resources once if the first attempt fails.
func openDataChannel(sys transport.System, node transport.Node, cfg Config) (transport.DataChannel, error) {
	data, err := node.OpenDataChannel(cfg.ChannelName, 1)
	if err == nil {
		return data, nil
	}
	if errors.Is(err, transport.ErrIncompatibleChannel) {
		return nil, fmt.Errorf("singleproc: open data channel %q: %w", cfg.ChannelName, err)
	}

	cfg.Logger.Warn("data channel creation failed, sweeping stale resources",
		"channel", cfg.ChannelName, "error", err)
	sweepStaleNodes(sys, cfg.Logger)

	data, err = node.OpenDataChannel(cfg.ChannelName, 1)
	if err != nil {
		return nil, fmt.Errorf("singleproc: open data channel %q: %w", cfg.ChannelName, err)
	}
	return data, nil
}

// sweepStaleNodes reclaims resources left behind by dead nodes. Best-effort:
// every failure is logged and none escalates.
func sweepStaleNodes(sys transport.System, logger *slog.Logger) {
	err := sys.Nodes(func(entry transport.NodeEntry) {
		if entry.Alive() {
			return
		}
		logger.Info("cleaning up dead node", "node", entry.Name())
		if err := entry.Reclaim(); err != nil {
			logger.Warn("could not clean up stale resources", "node", entry.Name(), "error", err)
		}
	})
	if err != nil {
		logger.Error("stale resource sweep failed", "error", err)
	}
}
