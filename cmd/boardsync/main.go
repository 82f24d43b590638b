package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/five82/boardsync/internal/command"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Commands print their own errors.
	if err := command.Execute(ctx); err != nil {
		return 1
	}
	return 0
}
