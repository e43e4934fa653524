package cli

import (
	"github.com/mlohr/poolstack/internal/orchestrator"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals
var locksVolume string

//nolint:gochecknoglobals
var locksCmd = &cobra.Command{
	Use:   "locks",
	Short: "Report the encryption key status of every member pool",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		orch, err := newOrchestrator()
		if err != nil {
			return err
		}

		opts := orchestrator.Options{Volume: locksVolume}

		return orch.Run(cmd.Context(), orchestrator.CommandLocks, opts)
	},
}

//nolint:gochecknoinits
func init() {
	locksCmd.Flags().StringVar(&locksVolume, "volume", "", "restrict to one configured volume")
}
