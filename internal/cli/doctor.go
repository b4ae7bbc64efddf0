package cli

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/DeamonDev888/screen-recorder/config"
	"github.com/DeamonDev888/screen-recorder/internal/media"
	"github.com/DeamonDev888/screen-recorder/internal/output"
)

func NewDoctorCmd(deps *Dependencies) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check prerequisites",
		RunE: func(cmd *cobra.Command, args []string) error {
			f := output.NewFormatter(cmd.OutOrStdout())
			cfg := deps.Config
			ok := true

			if cfg.Path != "" {
				f.SetupCheck("Config", true, cfg.Path)
			} else {
				f.SetupCheck("Config", true, "defaults (no file at "+config.FilePath()+")")
			}

			if err := media.New(cfg.FFmpeg, cfg.FFprobe).Check(); err != nil {
				f.SetupCheck("ffmpeg", false, err.Error())
				ok = false
			} else {
				f.SetupCheck("ffmpeg", true, "installed")
			}

			f.SetupCheck("Library directory", true, cfg.LibraryDir)
			f.SetupCheck("Display", true, cfg.Display)
			f.SetupCheck("Shortcuts", true, fmt.Sprintf("start %s, stop %s", cfg.ShortcutStart, cfg.ShortcutStop))

			client, err := connect(cfg)
			if err != nil {
				f.SetupCheck("Host", false, "not running. Start it with: screenrec daemon")
				ok = false
			} else {
				defer client.Close()
				ctx, cancel := withTimeout(cmd.Context())
				defer cancel()
				st, err := client.Status(ctx)
				if err != nil {
					f.SetupCheck("Host", false, err.Error())
					ok = false
				} else {
					f.SetupCheck("Host", true, fmt.Sprintf("version %s at %s", st.Version, cfg.SocketPath))
					if st.DiskTotal > 0 {
						f.SetupCheck("Disk", true, humanize.Bytes(st.DiskFree)+" free")
					}
					f.Formats(st.Formats)
				}
			}

			if ok {
				f.Success("\nAll prerequisites met. Ready to record!")
			} else {
				f.Warning("\nSome prerequisites are missing.")
			}
			return nil
		},
	}
}
