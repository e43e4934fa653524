package cli

import (
	"fmt"
	"os"

	"github.com/mlohr/poolstack/internal/config"
	"github.com/mlohr/poolstack/internal/handles"
	"github.com/mlohr/poolstack/internal/health"
	"github.com/mlohr/poolstack/internal/orchestrator"
	"github.com/mlohr/poolstack/internal/relocate"
	"github.com/mlohr/poolstack/internal/runner"
	"github.com/mlohr/poolstack/internal/secrets"
	"github.com/mlohr/poolstack/internal/syscalls"
	"github.com/mlohr/poolstack/internal/union"
	"github.com/mlohr/poolstack/internal/zfs"
)

// newOrchestrator reads the configuration and assembles the full dependency
// graph with real implementations of all collaborators.
func newOrchestrator() (*orchestrator.Orchestrator, error) {
	confHandler := config.NewHandler(config.GodotenvProvider{})

	volumes, err := confHandler.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("(cli-setup) %w", err)
	}

	execHandler := runner.NewExec()
	osHandler := &syscalls.OS{}
	unixHandler := &syscalls.Unix{}
	handleScanner := handles.NewScanner(osHandler)

	entries := make([]orchestrator.Entry, 0, len(volumes))

	for _, vol := range volumes {
		pools := make([]orchestrator.Pool, 0, len(vol.Pools))
		members := make([]union.MemberPool, 0, len(vol.Pools))

		for _, poolConf := range vol.Pools {
			pool := zfs.NewPool(poolConf, vol.Properties, execHandler, unixHandler, handleScanner)
			pools = append(pools, pool)
			members = append(members, pool)
		}

		volume := union.NewVolume(vol, members, execHandler, unixHandler, osHandler, handleScanner)
		entries = append(entries, orchestrator.Entry{Volume: volume, Pools: pools})
	}

	keys := secrets.NewSource(os.Stdin, int(os.Stdin.Fd()), secrets.TermPrompt{}, os.Stderr)
	prober := health.NewProber(execHandler, execHandler, health.NewCache())
	relocator := relocate.NewHandler(osHandler, unixHandler)

	return orchestrator.NewOrchestrator(entries, keys, prober, relocator, os.Stdout), nil
}
