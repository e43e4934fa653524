package cli

import (
	"github.com/mlohr/poolstack/internal/orchestrator"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals
var unmountVolume string

//nolint:gochecknoglobals
var unmountCmd = &cobra.Command{
	Use:   "unmount",
	Short: "Take the configured volumes offline",
	Long: `Unmount the merged mountpoints and, for every member pool, unmount
the dataset, unload its encryption key and export the pool. A mountpoint
with open file handles is never forced; the command fails instead.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		orch, err := newOrchestrator()
		if err != nil {
			return err
		}

		opts := orchestrator.Options{Volume: unmountVolume}

		if err := orch.Run(cmd.Context(), orchestrator.CommandUnmount, opts); err != nil {
			return err
		}

		PrintSuccess("All volumes unmounted")

		return nil
	},
}

//nolint:gochecknoinits
func init() {
	unmountCmd.Flags().StringVar(&unmountVolume, "volume", "", "restrict to one configured volume")
}
