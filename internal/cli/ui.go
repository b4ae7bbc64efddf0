package cli

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/DeamonDev888/screen-recorder/config"
	"github.com/DeamonDev888/screen-recorder/internal/app"
	"github.com/DeamonDev888/screen-recorder/internal/capture"
	"github.com/DeamonDev888/screen-recorder/internal/db"
	"github.com/DeamonDev888/screen-recorder/internal/logging"
	"github.com/DeamonDev888/screen-recorder/internal/media"
	"github.com/DeamonDev888/screen-recorder/internal/session"
)

func NewUICmd(deps *Dependencies) *cobra.Command {
	return &cobra.Command{
		Use:   "ui",
		Short: "Open the recorder and library (default)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUI(deps.Config)
		},
	}
}

func runUI(cfg *config.Config) error {
	log, closeLog, err := logging.ToFile(cfg.LogPath(), logging.Options{
		Name:   "screenrec-ui",
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
	})
	if err != nil {
		return err
	}
	defer closeLog()

	store, err := db.Open(db.DefaultDBPath(cfg.StateDir))
	if err != nil {
		return fmt.Errorf("opening ui database: %w", err)
	}
	defer store.Close()

	tool := media.New(cfg.FFmpeg, cfg.FFprobe)
	if err := tool.Check(); err != nil {
		log.Warn("capture will fail", "error", err)
	}
	acquirer := capture.NewAcquirer(tool, cfg.Display, log)

	m := app.New(app.Config{
		SocketPath: cfg.SocketPath,
		MaxMessage: cfg.MaxMessageBytes,
		Store:      store,
		Log:        log,
		NewSession: func(saver session.Saver, resolver session.SourceResolver) app.Session {
			return session.New(session.Config{
				Acquirer: acquirer,
				NewRecorder: func() session.Recorder {
					return capture.NewRecorder(tool, log)
				},
				Saver:            saver,
				Resolver:         resolver,
				Decoder:          tool,
				ThumbnailTimeout: cfg.ThumbnailTimeout,
				Logger:           log,
			})
		},
	})

	log.Info("starting ui", "socket", cfg.SocketPath)
	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running ui: %w", err)
	}
	return nil
}
