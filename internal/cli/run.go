package cli

import (
	"fmt"
	"log/slog"

	"github.com/katalog-app/singleproc"
	"github.com/katalog-app/singleproc/internal/config"
	"github.com/katalog-app/singleproc/internal/logging"
	"github.com/katalog-app/singleproc/staticpath"
	"github.com/katalog-app/singleproc/transport/shmfs"
)

// runtime bundles everything a command needs to talk to the coordinator.
type runtime struct {
	cfg     *config.Config
	logger  *slog.Logger
	sys     *shmfs.System
	cleanup func() error
}

func newRuntime() (*runtime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("cli: loading config: %w", err)
	}

	logger, closeLog, err := logging.New(cfg.Logging.Dir, cfg.Logging.Level)
	if err != nil {
		return nil, fmt.Errorf("cli: setting up logging: %w", err)
	}

	sys := shmfs.New(cfg.Transport.Dir)

	return &runtime{cfg: cfg, logger: logger, sys: sys, cleanup: closeLog}, nil
}

func (r *runtime) coordinatorConfig() singleproc.Config {
	return singleproc.Config{
		NodeName:       r.cfg.Node.Name,
		ChannelName:    r.cfg.Node.Channel,
		ReplaceTimeout: r.cfg.Node.ReplaceTimeout(),
		Logger:         r.logger,
	}
}

// printPath decodes a received frame and writes the path to stdout.
// Malformed frames are logged and skipped rather than killing the loop.
func (r *runtime) printPath(payload []byte) error {
	var p staticpath.StaticPath
	if err := p.UnmarshalBinary(payload); err != nil {
		r.logger.Error("discarding malformed payload", "error", err, "bytes", len(payload))
		return nil
	}
	path, err := p.Path()
	if err != nil {
		r.logger.Error("discarding undecodable path", "error", err, "raw", p.String())
		return nil
	}
	fmt.Println(path)
	return nil
}
