package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/mlohr/poolstack/internal/cli"
)

//nolint:gochecknoglobals
var Version string

func main() {
	cli.SetVersion(Version)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	if err := cli.Execute(ctx); err != nil {
		cli.PrintError(err.Error())
		os.Exit(1)
	}
}
