package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/DeamonDev888/screen-recorder/internal/logging"
	"github.com/DeamonDev888/screen-recorder/internal/mcpserver"
	"github.com/DeamonDev888/screen-recorder/internal/version"
)

func NewMCPCmd(deps *Dependencies) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the library as MCP tools on stdio",
		RunE: func(cmd *cobra.Command, args []string) error {
			// stdout carries the protocol
			log := logging.New(logging.Options{
				Name:   "screenrec-mcp",
				Level:  deps.Config.LogLevel,
				Format: deps.Config.LogFormat,
			})

			client, err := connect(deps.Config)
			if err != nil {
				return fmt.Errorf("%w (is `screenrec daemon` running?)", err)
			}
			defer client.Close()

			return mcpserver.ServeStdio(mcpserver.New(client, version.Version, log))
		},
	}
}
