package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/katalog-app/singleproc"
	"github.com/katalog-app/singleproc/staticpath"
)

var openCmd = &cobra.Command{
	Use:   "open <path>",
	Short: "Open a path in the single running instance",
	Long: `Open coordinates with any already-running instance. The first invocation
becomes the receiver and prints every path it is handed until interrupted.
Later invocations deliver their path to the receiver and exit immediately.`,
	Args: cobra.ExactArgs(1),
	RunE: runOpen,
}

func init() {
	rootCmd.AddCommand(openCmd)
}

func runOpen(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime()
	if err != nil {
		return err
	}
	defer rt.cleanup()

	sp, err := staticpath.FromPath(args[0])
	if err != nil {
		return fmt.Errorf("cli: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	outcome, err := singleproc.SingleProcess(ctx, rt.sys, rt.coordinatorConfig(),
		func() ([]byte, error) { return sp.MarshalBinary() },
		rt.printPath,
	)
	if err != nil {
		return err
	}

	if outcome.Role == singleproc.RoleSender {
		rt.logger.Info("path delegated to running receiver", "path", args[0])
		return nil
	}

	fmt.Println(args[0])
	rt.logger.Info("running as receiver", "handle", outcome.Handle.ID())

	select {
	case <-ctx.Done():
		outcome.Handle.Close()
	case <-outcome.Handle.Done():
	}
	return nil
}
