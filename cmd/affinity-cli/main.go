// Command affinity-cli runs the affinity engine against local files or
// queries a running affinity server.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/okian/affinity/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := logger.Init(logger.WithOutput(os.Stderr)); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	_ = logger.SetLevelString("warn")

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
