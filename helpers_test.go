package singleproc

import (
	"io"
	"log/slog"
)

// discardLogger keeps test output free of receive-loop noise.
func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
