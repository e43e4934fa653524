package cli

import (
	"errors"

	"github.com/mlohr/poolstack/internal/orchestrator"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals
var listVolume string

//nolint:gochecknoglobals
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Report volume composition, capacity and degradation state",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		orch, err := newOrchestrator()
		if err != nil {
			return err
		}

		opts := orchestrator.Options{Volume: listVolume}

		if err := orch.Run(cmd.Context(), orchestrator.CommandList, opts); err != nil {
			if errors.Is(err, orchestrator.ErrVolumeDegraded) {
				PrintWarning("One or more volumes are degraded")
			}

			return err
		}

		return nil
	},
}

//nolint:gochecknoinits
func init() {
	listCmd.Flags().StringVar(&listVolume, "volume", "", "restrict to one configured volume")
}
