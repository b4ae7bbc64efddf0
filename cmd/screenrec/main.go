package main

import (
	"fmt"
	"os"

	"golang.design/x/mainthread"

	"github.com/DeamonDev888/screen-recorder/config"
	"github.com/DeamonDev888/screen-recorder/internal/cli"
	"github.com/DeamonDev888/screen-recorder/internal/output"
)

func main() {
	// Global hotkeys on macOS must be registered from the main thread.
	mainthread.Init(func() {
		if err := run(); err != nil {
			formatter := output.NewFormatter(os.Stderr)
			formatter.Error(err.Error())
			os.Exit(1)
		}
	})
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	deps := &cli.Dependencies{
		Config: cfg,
	}

	return cli.NewRootCmd(deps).Execute()
}
