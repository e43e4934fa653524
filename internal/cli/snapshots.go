package cli

import (
	"errors"

	"github.com/mlohr/poolstack/internal/orchestrator"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals
var (
	snapshotsVolume       string
	snapshotsDeleteOldest bool
	snapshotsFreeGB       uint64
)

//nolint:gochecknoglobals
var snapshotsCmd = &cobra.Command{
	Use:   "snapshots",
	Short: "Report and prune automatic snapshot generations",
	Long: `List the automatic snapshot generations of every volume, grouped by
creation minute across member pools. With --delete-oldest the single oldest
generation is destroyed; with --free-gb generations are destroyed oldest
first until the requested free space would be reached. Manual snapshots
are never touched and read-only pools are only simulated.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if snapshotsDeleteOldest && snapshotsFreeGB > 0 {
			return errors.New("--delete-oldest and --free-gb are mutually exclusive")
		}

		orch, err := newOrchestrator()
		if err != nil {
			return err
		}

		opts := orchestrator.Options{
			Volume:       snapshotsVolume,
			DeleteOldest: snapshotsDeleteOldest,
			FreeGB:       snapshotsFreeGB,
		}

		return orch.Run(cmd.Context(), orchestrator.CommandSnapshots, opts)
	},
}

//nolint:gochecknoinits
func init() {
	snapshotsCmd.Flags().StringVar(&snapshotsVolume, "volume", "", "restrict to one configured volume")
	snapshotsCmd.Flags().BoolVar(&snapshotsDeleteOldest, "delete-oldest", false, "destroy the oldest snapshot generation")
	snapshotsCmd.Flags().Uint64Var(&snapshotsFreeGB, "free-gb", 0, "destroy generations oldest first until this much free space (GiB) is reached")
}
