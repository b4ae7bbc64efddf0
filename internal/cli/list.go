package cli

import (
	"github.com/spf13/cobra"

	"github.com/DeamonDev888/screen-recorder/internal/library"
	"github.com/DeamonDev888/screen-recorder/internal/output"
)

func NewListCmd(deps *Dependencies) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List recordings in the library",
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := output.NewFormatter(cmd.OutOrStdout())

			// Listing is read-only, so it works without the host.
			store, err := library.Open(deps.Config.LibraryDir)
			if err != nil {
				return err
			}
			recs, err := store.List()
			if err != nil {
				return err
			}

			if len(recs) == 0 {
				formatter.Info("No recordings found in " + store.Dir())
				return nil
			}

			formatter.LibraryHeader(store.Dir(), len(recs))
			for _, r := range recs {
				formatter.LibraryItem(r)
			}
			if u, err := store.Stats(); err == nil {
				formatter.DiskUsage(u.Free, u.Total)
			}
			return nil
		},
	}
}
