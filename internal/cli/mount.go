package cli

import (
	"errors"

	"github.com/mlohr/poolstack/internal/orchestrator"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals
var mountVolume string

//nolint:gochecknoglobals
var mountCmd = &cobra.Command{
	Use:   "mount",
	Short: "Bring the configured volumes online",
	Long: `Import every member pool, load its encryption key (prompting for
passphrases where needed), reconcile filesystem properties and merge the
pools into their logical mountpoints. Already completed steps are skipped.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		orch, err := newOrchestrator()
		if err != nil {
			return err
		}

		opts := orchestrator.Options{Volume: mountVolume}

		if err := orch.Run(cmd.Context(), orchestrator.CommandMount, opts); err != nil {
			if errors.Is(err, orchestrator.ErrVolumeDegraded) {
				PrintWarning("Volumes mounted, but not all are healthy")
			}

			return err
		}

		PrintSuccess("All volumes mounted")

		return nil
	},
}

//nolint:gochecknoinits
func init() {
	mountCmd.Flags().StringVar(&mountVolume, "volume", "", "restrict to one configured volume")
}
