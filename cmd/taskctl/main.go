package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/JKGhartey/task-manager-sub001/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cli.Run(ctx, cli.Options{}, os.Args[1:]); err != nil {
		stop()
		os.Exit(1)
	}
}
