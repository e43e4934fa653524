package cli

import (
	"github.com/mlohr/poolstack/internal/orchestrator"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals
var relocateCmd = &cobra.Command{
	Use:   "relocate <volume> <pool>",
	Short: "Evacuate one member pool onto its siblings",
	Long: `Move every file on the named member pool onto the emptiest writable
sibling branches of the volume, verifying each copy before the source is
removed. Individual failures are reported and do not stop the evacuation.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		orch, err := newOrchestrator()
		if err != nil {
			return err
		}

		opts := orchestrator.Options{
			Volume:     args[0],
			SourcePool: args[1],
		}

		if err := orch.Run(cmd.Context(), orchestrator.CommandRelocate, opts); err != nil {
			return err
		}

		PrintSuccess("Evacuation complete")

		return nil
	},
}
