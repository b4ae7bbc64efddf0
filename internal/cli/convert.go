package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/DeamonDev888/screen-recorder/internal/convert"
	"github.com/DeamonDev888/screen-recorder/internal/output"
)

func NewConvertCmd(deps *Dependencies) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "convert <recording>",
		Short: "Convert a recording through the host",
		Long: "Convert a recording in the library to another format. The host daemon must be running; " +
			"the output is written next to the source and never overwrites an existing file.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			if !filepath.IsAbs(path) {
				path = filepath.Join(deps.Config.LibraryDir, path)
			}

			client, err := connect(deps.Config)
			if err != nil {
				return fmt.Errorf("%w (is `screenrec daemon` running?)", err)
			}
			defer client.Close()

			// A conversion runs as long as ffmpeg needs.
			newPath, err := client.Convert(context.Background(), path, format)
			if err != nil {
				return err
			}
			output.NewFormatter(cmd.OutOrStdout()).Converted(path, newPath)
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "mp4",
		"target format ("+strings.Join(convert.Formats(), ", ")+")")
	return cmd
}
