// Package cli defines the command surface of the tool. Each subcommand maps
// one-to-one onto an orchestrator command; the heavy lifting lives in the
// internal packages, the CLI only parses arguments and wires dependencies.
package cli

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals
var (
	configPath string
	debugMode  bool
)

//nolint:gochecknoglobals
var rootCmd = &cobra.Command{
	Use:   "poolstack",
	Short: "Tiered local storage over encrypted pools",
	Long: `poolstack manages groups of independently encrypted storage pools that are
merged into single logical volumes, including key loading, degradation
reporting, snapshot retention and device health checks.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	CompletionOptions: cobra.CompletionOptions{
		DisableDefaultCmd: true,
	},
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		setupLogging()
	},
}

func setupLogging() {
	level := slog.LevelInfo
	if debugMode {
		level = slog.LevelDebug
	}

	slog.SetDefault(slog.New(
		tint.NewHandler(os.Stderr, &tint.Options{
			Level:      level,
			TimeFormat: time.Kitchen,
		}),
	))
}

// SetVersion sets the version reported by the root command.
func SetVersion(v string) {
	if v == "" {
		return
	}
	rootCmd.Version = v
	rootCmd.SetVersionTemplate("{{.Version}}\n")
}

// Execute runs the command tree under the given context.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

//nolint:gochecknoinits
func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "/etc/poolstack.conf", "path to the volume configuration file")
	rootCmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "enable debug logging")

	rootCmd.AddCommand(mountCmd)
	rootCmd.AddCommand(unmountCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(locksCmd)
	rootCmd.AddCommand(snapshotsCmd)
	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(relocateCmd)
}
