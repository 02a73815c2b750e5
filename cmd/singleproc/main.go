// Command singleproc is the host binary for single-instance coordination.
package main

import (
	"os"

	"github.com/katalog-app/singleproc/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
