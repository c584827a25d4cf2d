// cmd/scrape/main.go
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/leadharvest/scrape/internal/cli"
)

func main() {
	// First interrupt cancels the crawl context so the run can close its
	// session cleanly; a second one falls through to the default handler.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cli.Execute(ctx)
}
