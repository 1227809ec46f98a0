// Command searchoptsd runs the search module configuration registry with an admin
// HTTP surface for inspecting and changing parameters at runtime.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd().ExecuteContext(ctx); err != nil {
		log.Error("searchoptsd failed", "err", err)
		stop()
		os.Exit(1)
	}
}
