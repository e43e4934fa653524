// Package health collects read-only diagnostics across the physical devices
// backing the pools. Probes are independent, touch no shared mutable state
// and fan out concurrently; results are stable-sorted for display so that
// arrival order never affects output.
package health

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/mlohr/poolstack/internal/runner"
	"golang.org/x/sync/errgroup"
)

// MaxParallelProbes bounds the probe fan-out.
const MaxParallelProbes = 8

type runnerProvider interface {
	Run(ctx context.Context, stdin string, argv ...string) (runner.Result, error)
}

type startProvider interface {
	Start(argv ...string) error
}

// Probe is one device diagnostic result.
type Probe struct {
	Pool    string
	Device  string
	Healthy bool
	Detail  string
}

// Cache memoizes device probes for the duration of one command invocation.
// It is constructed per invocation and passed into the [Prober] explicitly;
// there is no ambient global state to invalidate.
type Cache struct {
	mu     sync.Mutex
	probes map[string]Probe
}

// NewCache returns an empty per-invocation [Cache].
func NewCache() *Cache {
	return &Cache{
		probes: make(map[string]Probe),
	}
}

func (c *Cache) get(device string) (Probe, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	probe, exists := c.probes[device]

	return probe, exists
}

func (c *Cache) put(device string, probe Probe) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.probes[device] = probe
}

// Prober runs the device diagnostics.
type Prober struct {
	runHandler   runnerProvider
	startHandler startProvider
	cache        *Cache
}

// NewProber returns a [Prober] memoizing into the given cache.
func NewProber(runHandler runnerProvider, startHandler startProvider, cache *Cache) *Prober {
	return &Prober{
		runHandler:   runHandler,
		startHandler: startHandler,
		cache:        cache,
	}
}

// Devices lists the physical device paths backing a pool.
func (p *Prober) Devices(ctx context.Context, pool string) ([]string, error) {
	argv := []string{"zpool", "list", "-v", "-H", "-P", pool}

	res, err := p.runHandler.Run(ctx, "", argv...)
	if err != nil {
		return nil, fmt.Errorf("(health-devices) %w", err)
	}
	if !res.Success() {
		return nil, fmt.Errorf("(health-devices) %w", runner.NewCommandError(argv, res))
	}

	devices := []string{}

	for _, line := range strings.Split(res.Stdout, "\n") {
		fields := strings.Fields(line)
		if len(fields) == 0 || !strings.HasPrefix(fields[0], "/") {
			continue
		}
		devices = append(devices, fields[0])
	}

	return devices, nil
}

// ProbeAll probes every device of the given pools with a bounded fan-out and
// returns the results stable-sorted by pool, then device.
func (p *Prober) ProbeAll(ctx context.Context, pools []string) ([]Probe, error) {
	type poolDevice struct {
		pool   string
		device string
	}

	targets := []poolDevice{}
	for _, pool := range pools {
		devices, err := p.Devices(ctx, pool)
		if err != nil {
			return nil, err
		}
		for _, device := range devices {
			targets = append(targets, poolDevice{pool: pool, device: device})
		}
	}

	probes := make([]Probe, len(targets))

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(MaxParallelProbes)

	for i, target := range targets {
		group.Go(func() error {
			probes[i] = p.probeDevice(groupCtx, target.pool, target.device)

			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, fmt.Errorf("(health-probe) %w", err)
	}

	slices.SortStableFunc(probes, func(a, b Probe) int {
		if a.Pool != b.Pool {
			return strings.Compare(a.Pool, b.Pool)
		}

		return strings.Compare(a.Device, b.Device)
	})

	return probes, nil
}

// probeDevice runs one SMART health query, memoized by device path for the
// invocation's duration.
func (p *Prober) probeDevice(ctx context.Context, pool string, device string) Probe {
	if cached, exists := p.cache.get(device); exists {
		cached.Pool = pool

		return cached
	}

	probe := Probe{Pool: pool, Device: device}

	res, err := p.runHandler.Run(ctx, "", "smartctl", "-H", device)
	switch {
	case err != nil:
		probe.Detail = err.Error()
	case res.Success():
		probe.Healthy = true
		probe.Detail = "PASSED"
	default:
		probe.Detail = strings.TrimSpace(res.Stdout)
		if probe.Detail == "" {
			probe.Detail = fmt.Sprintf("exit status %d", res.ExitCode)
		}
	}

	p.cache.put(device, probe)

	return probe
}

// KickoffSelfTests starts a detached long self-test on every device of the
// given pools. The tests run outside the controlling session and are never
// waited on. When the probing tool is unavailable, the kickoff degrades to a
// skip instead of failing the surrounding command.
func (p *Prober) KickoffSelfTests(ctx context.Context, pools []string) error {
	if _, err := p.runHandler.Run(ctx, "", "smartctl", "--version"); err != nil {
		slog.Warn("Self-test tooling unavailable, skipping kickoff.", "err", err)

		return nil
	}

	for _, pool := range pools {
		devices, err := p.Devices(ctx, pool)
		if err != nil {
			return err
		}

		for _, device := range devices {
			if err := p.startHandler.Start("smartctl", "-t", "long", device); err != nil {
				slog.Warn("Failed to kick off self-test.",
					"pool", pool,
					"device", device,
					"err", err,
				)

				continue
			}

			slog.Info("Self-test started.", "pool", pool, "device", device)
		}
	}

	return nil
}
