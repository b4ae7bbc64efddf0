package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"

	"github.com/DeamonDev888/screen-recorder/config"
	"github.com/DeamonDev888/screen-recorder/internal/bridge"
	"github.com/DeamonDev888/screen-recorder/internal/convert"
	"github.com/DeamonDev888/screen-recorder/internal/desktop"
	"github.com/DeamonDev888/screen-recorder/internal/library"
	"github.com/DeamonDev888/screen-recorder/internal/logging"
	"github.com/DeamonDev888/screen-recorder/internal/media"
	"github.com/DeamonDev888/screen-recorder/internal/shortcuts"
	"github.com/DeamonDev888/screen-recorder/internal/shortcuts/system"
	"github.com/DeamonDev888/screen-recorder/internal/sources"
	"github.com/DeamonDev888/screen-recorder/internal/version"
)

func NewDaemonCmd(deps *Dependencies) *cobra.Command {
	return &cobra.Command{
		Use:   "daemon",
		Short: "Run the host daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			log := logging.New(logging.Options{
				Name:   "screenrec",
				Level:  deps.Config.LogLevel,
				Format: deps.Config.LogFormat,
			})
			return runDaemon(ctx, deps.Config, system.Hook{}, log)
		},
	}
}

// newHost assembles the host-side components around one library store.
// Conversions share the store's path locks.
func newHost(cfg *config.Config, hook shortcuts.Hook, log hclog.Logger) (*bridge.Host, error) {
	tool := media.New(cfg.FFmpeg, cfg.FFprobe)
	if err := tool.Check(); err != nil {
		log.Warn("conversions and thumbnails will fail", "error", err)
	}

	store, err := library.Open(cfg.LibraryDir,
		library.WithPrompter(library.NewPrompter(cfg.SavePrompt, cfg.LibraryDir)),
		library.WithLogger(log),
	)
	if err != nil {
		return nil, err
	}

	return &bridge.Host{
		Library:   store,
		Converter: convert.New(tool, store.Locks(), log),
		Sources:   sources.NewProvider(sources.NewEnumerator(tool, cfg.Display), log.Named("sources")),
		Shell:     desktop.New(),
		Shortcuts: shortcuts.NewRegistry(hook, log),
		Bindings:  cfg.Bindings(),
		Version:   version.Version,
		Log:       log.Named("host"),
	}, nil
}

func runDaemon(ctx context.Context, cfg *config.Config, hook shortcuts.Hook, log hclog.Logger) error {
	host, err := newHost(cfg, hook, log)
	if err != nil {
		return err
	}
	srv := bridge.NewServer(host, log, cfg.MaxMessageBytes)
	host.Broadcast = srv.Broadcast

	ln, err := bridge.Listen(cfg.SocketPath)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", cfg.SocketPath, err)
	}

	defer func() {
		if err := host.Shortcuts.UnregisterAll(); err != nil {
			log.Warn("unregister shortcuts", "error", err)
		}
	}()

	go func() {
		err := host.Library.Watch(ctx, func() {
			srv.Broadcast(bridge.Event{Event: bridge.EventLibraryChanged})
		})
		if err != nil {
			log.Warn("library watch stopped", "error", err)
		}
	}()

	log.Info("host listening", "socket", cfg.SocketPath, "library", host.Library.Dir(), "version", version.Version)
	if err := srv.Serve(ctx, ln); err != nil {
		return err
	}
	log.Info("host stopped")
	return nil
}
