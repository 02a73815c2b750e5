package cli

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/katalog-app/singleproc"
)

var listenTimeout time.Duration

var listenCmd = &cobra.Command{
	Use:   "listen",
	Short: "Take over as the receiver and print incoming paths",
	Long: `Listen claims the receiver role, evicting any current receiver if it does
not yield within the replace timeout, then prints every path it is handed
until interrupted.`,
	Args: cobra.NoArgs,
	RunE: runListen,
}

func init() {
	listenCmd.Flags().DurationVar(&listenTimeout, "timeout", 0,
		"how long to wait for the current receiver to yield (0 uses the configured default)")
	rootCmd.AddCommand(listenCmd)
}

func runListen(cmd *cobra.Command, _ []string) error {
	rt, err := newRuntime()
	if err != nil {
		return err
	}
	defer rt.cleanup()

	cfg := rt.coordinatorConfig()
	if listenTimeout > 0 {
		cfg.ReplaceTimeout = listenTimeout
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	handle, err := singleproc.SubscribeOnly(ctx, rt.sys, cfg, rt.printPath)
	if err != nil {
		return err
	}
	rt.logger.Info("listening as receiver", "handle", handle.ID())

	select {
	case <-ctx.Done():
		handle.Close()
	case <-handle.Done():
	}
	return nil
}
