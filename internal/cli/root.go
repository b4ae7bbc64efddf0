package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/DeamonDev888/screen-recorder/config"
	"github.com/DeamonDev888/screen-recorder/internal/bridge"
	"github.com/DeamonDev888/screen-recorder/internal/version"
)

// hostTimeout bounds one-shot CLI calls other than conversions.
const hostTimeout = 30 * time.Second

type Dependencies struct {
	Config *config.Config
}

func NewRootCmd(deps *Dependencies) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "screenrec",
		Short: "Record the screen and manage recordings",
		Long: "A screen recorder with a terminal UI. The host daemon owns the recordings library, " +
			"conversions and global shortcuts; the UI captures and talks to it over a Unix socket.",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUI(deps.Config)
		},
	}

	rootCmd.Version = version.Version
	rootCmd.SetVersionTemplate(version.Full() + "\n")

	rootCmd.AddCommand(NewUICmd(deps))
	rootCmd.AddCommand(NewDaemonCmd(deps))
	rootCmd.AddCommand(NewListCmd(deps))
	rootCmd.AddCommand(NewConvertCmd(deps))
	rootCmd.AddCommand(NewDoctorCmd(deps))
	rootCmd.AddCommand(NewMCPCmd(deps))

	return rootCmd
}

func connect(cfg *config.Config) (*bridge.Client, error) {
	return bridge.Connect(cfg.SocketPath, bridge.WithMaxMessage(cfg.MaxMessageBytes))
}

func withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, hostTimeout)
}
