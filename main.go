// The main package for the jobcrawler executable.
package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/JakeFAU/jobcrawler/cmd"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	cmd.Execute(ctx)
}
