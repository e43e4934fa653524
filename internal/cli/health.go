package cli

import (
	"github.com/mlohr/poolstack/internal/orchestrator"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals
var (
	healthVolume   string
	healthSelfTest bool
)

//nolint:gochecknoglobals
var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Probe the physical devices backing the pools",
	Long: `Run SMART health probes against every device backing the member
pools. With --self-test a detached long self-test is kicked off on each
device after probing; missing smartctl downgrades the kickoff to a skip.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		orch, err := newOrchestrator()
		if err != nil {
			return err
		}

		opts := orchestrator.Options{
			Volume:   healthVolume,
			SelfTest: healthSelfTest,
		}

		return orch.Run(cmd.Context(), orchestrator.CommandHealth, opts)
	},
}

//nolint:gochecknoinits
func init() {
	healthCmd.Flags().StringVar(&healthVolume, "volume", "", "restrict to one configured volume")
	healthCmd.Flags().BoolVar(&healthSelfTest, "self-test", false, "kick off detached long self-tests after probing")
}
