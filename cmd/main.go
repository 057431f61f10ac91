package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/0xlemi/bertcam/internal/cli"
	"github.com/0xlemi/bertcam/internal/config"
	"github.com/0xlemi/bertcam/internal/output"
)

func main() {
	if err := run(); err != nil {
		formatter := output.NewFormatter(os.Stderr)
		formatter.Error(err.Error())
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	deps := &cli.Dependencies{Config: cfg}
	return cli.NewRootCmd(deps).ExecuteContext(ctx)
}
