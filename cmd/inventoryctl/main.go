package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/muhammadjehanzaib/sultan-store/internal/cli"
	"github.com/muhammadjehanzaib/sultan-store/pkg/logger"
)

func main() {
	// Logs go to stderr so --format json output stays parseable.
	log := logger.NewWithWriter("inventoryctl", os.Getenv("LOG_LEVEL"), os.Stderr)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	err := cli.NewRootCommand(cli.ConnectPostgres(log)).ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
	}
	cancel()
	os.Exit(cli.GetExitCode(err))
}
