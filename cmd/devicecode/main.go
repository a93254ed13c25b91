package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// Version is set by the build process
var Version = "dev"

func main() {
	// Cancel in-flight calls on interrupt
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := newRootCommand().ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
