package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mlohr/poolstack/internal/config"
	"github.com/mlohr/poolstack/internal/display"
	"github.com/mlohr/poolstack/internal/relocate"
	"github.com/mlohr/poolstack/internal/retention"
	"github.com/mlohr/poolstack/internal/union"
	"github.com/mlohr/poolstack/internal/zfs"
)

// handleMount brings every selected volume online: import, unlock and mount
// all member pools in order, then establish the union mount. The run ends
// degraded when any volume is not online afterwards.
func (o *Orchestrator) handleMount(ctx context.Context, opts Options) error {
	entries, err := o.selectEntries(opts)
	if err != nil {
		return err
	}

	degraded := false

	for _, entry := range entries {
		for _, pool := range entry.Pools {
			if err := pool.Import(ctx); err != nil {
				return err
			}

			if err := o.keys.Unlock(ctx, pool); err != nil {
				return err
			}

			if err := pool.Mount(ctx); err != nil {
				return err
			}
		}

		if err := entry.Volume.Mount(ctx); err != nil {
			return err
		}

		status, err := entry.Volume.Status(ctx)
		if err != nil {
			return err
		}

		fmt.Fprintln(o.out, display.VolumeHeader(entry.Volume.Name(), entry.Volume.Mountpoint()))
		fmt.Fprintln(o.out, display.StatusLine(status))

		if !status.Online {
			degraded = true
		}
	}

	if degraded {
		return fmt.Errorf("(orchestrator) %w", ErrVolumeDegraded)
	}

	return nil
}

// handleUnmount takes every selected volume down. Failures are collected
// per volume; already-unmounted members stay unmounted.
func (o *Orchestrator) handleUnmount(ctx context.Context, opts Options) error {
	entries, err := o.selectEntries(opts)
	if err != nil {
		return err
	}

	var errs error

	for _, entry := range entries {
		if err := entry.Volume.Unmount(ctx); err != nil {
			slog.Error("Failed to unmount volume.",
				"volume", entry.Volume.Name(),
				"err", err,
			)
			errs = errors.Join(errs, err)
		}
	}

	return errs
}

// handleList reports composition, capacity and degradation of every
// selected volume; the run ends degraded when any volume is not online.
func (o *Orchestrator) handleList(ctx context.Context, opts Options) error {
	entries, err := o.selectEntries(opts)
	if err != nil {
		return err
	}

	degraded := false

	for _, entry := range entries {
		status, err := entry.Volume.Status(ctx)
		if err != nil {
			return err
		}

		fmt.Fprintln(o.out, display.VolumeHeader(entry.Volume.Name(), entry.Volume.Mountpoint()))
		fmt.Fprintln(o.out, display.StatusLine(status))
		fmt.Fprintln(o.out, display.CapacityLine(status.Capacity))

		for _, pool := range entry.Pools {
			capacity := zfs.Capacity{}
			if mounted, err := pool.MountedLive(ctx); err == nil && mounted {
				if poolCapacity, err := pool.Capacity(ctx); err == nil {
					capacity = poolCapacity
				}
			}

			fmt.Fprintln(o.out, display.PoolLine(
				pool.QualifiedName(), pool.Mode().String(), pool.State().String(), capacity))
		}

		if err := o.warnSnapshotAge(ctx, entry); err != nil {
			return err
		}

		if !status.Online {
			degraded = true
		}
	}

	if degraded {
		return fmt.Errorf("(orchestrator) %w", ErrVolumeDegraded)
	}

	return nil
}

// handleLocks reports the live encryption key status of every member pool.
func (o *Orchestrator) handleLocks(ctx context.Context, opts Options) error {
	entries, err := o.selectEntries(opts)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		fmt.Fprintln(o.out, display.VolumeHeader(entry.Volume.Name(), entry.Volume.Mountpoint()))

		for _, pool := range entry.Pools {
			keyStatus, err := pool.KeyStatus(ctx)
			if err != nil {
				return err
			}

			mounted, err := pool.MountedLive(ctx)
			if err != nil {
				return err
			}

			fmt.Fprintln(o.out, display.LockLine(pool.QualifiedName(), keyStatus, mounted))
		}
	}

	return nil
}

// handleSnapshots reports the cross-pool snapshot generations and optionally
// prunes them, either by dropping the oldest generation or by the
// delete-until-free selection. Mount state is never touched here.
func (o *Orchestrator) handleSnapshots(ctx context.Context, opts Options) error {
	entries, err := o.selectEntries(opts)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		catalog, err := o.buildCatalog(ctx, entry)
		if err != nil {
			return err
		}

		fmt.Fprintln(o.out, display.VolumeHeader(entry.Volume.Name(), entry.Volume.Mountpoint()))

		switch {
		case opts.FreeGB > 0:
			if err := o.pruneUntilFree(ctx, entry, catalog, opts.FreeGB*union.GiB); err != nil {
				return err
			}

		case opts.DeleteOldest:
			plan := catalog.SelectOldest()
			if err := o.executePlan(ctx, entry, plan, 0); err != nil {
				return err
			}

		default:
			for _, generation := range catalog.Generations() {
				fmt.Fprintln(o.out, display.GenerationLine(generation))
			}
		}

		if err := o.warnSnapshotAge(ctx, entry); err != nil {
			return err
		}
	}

	return nil
}

// pruneUntilFree selects the smallest sufficient generation range toward the
// free-space goal and executes it.
func (o *Orchestrator) pruneUntilFree(ctx context.Context, entry Entry,
	catalog *retention.Catalog, goalBytes uint64,
) error {
	status, err := entry.Volume.Status(ctx)
	if err != nil {
		return err
	}

	available := status.Capacity.Free

	plan := catalog.SelectUntilFree(goalBytes, available)
	if plan.Empty() && available >= goalBytes {
		slog.Info("Free-space goal already met.",
			"volume", entry.Volume.Name(),
			"available", available,
		)

		return nil
	}

	return o.executePlan(ctx, entry, plan, available)
}

// executePlan destroys the selected snapshots on their owning pools.
// Simulated and skipped entries are reported only.
func (o *Orchestrator) executePlan(ctx context.Context, entry Entry,
	plan retention.Plan, availableBefore uint64,
) error {
	poolsByName := map[string]Pool{}
	for _, pool := range entry.Pools {
		poolsByName[pool.QualifiedName()] = pool
	}

	for _, snapshot := range plan.Delete {
		pool, exists := poolsByName[snapshot.Pool]
		if !exists {
			return fmt.Errorf("(orchestrator) %w: %q", ErrPoolNotFound, snapshot.Pool)
		}

		if err := pool.DestroySnapshot(ctx, snapshot.Snapshot); err != nil {
			return err
		}

		slog.Info("Destroyed snapshot.",
			"volume", entry.Volume.Name(),
			"pool", snapshot.Pool,
			"snapshot", snapshot.FullName(),
		)
	}

	for _, line := range display.PlanSummary(plan, availableBefore+plan.FreedBytes) {
		fmt.Fprintln(o.out, line)
	}

	return nil
}

// buildCatalog enumerates the snapshots of all member pools into one
// generation catalog. Bucketing is independent of pool order.
func (o *Orchestrator) buildCatalog(ctx context.Context, entry Entry) (*retention.Catalog, error) {
	poolSnapshots := []retention.PoolSnapshot{}

	for _, pool := range entry.Pools {
		snapshots, err := pool.Snapshots(ctx)
		if err != nil {
			return nil, err
		}

		for _, snapshot := range snapshots {
			poolSnapshots = append(poolSnapshots, retention.PoolSnapshot{
				Pool:     pool.QualifiedName(),
				ReadOnly: pool.ReadOnly(),
				Snapshot: snapshot,
			})
		}
	}

	return retention.BuildCatalog(poolSnapshots), nil
}

// warnSnapshotAge reports when the newest generation exceeds the configured
// age threshold. Diagnostic only; never an error.
func (o *Orchestrator) warnSnapshotAge(ctx context.Context, entry Entry) error {
	warnDays := entry.Volume.WarnDaysWithoutSnapshot()
	if warnDays <= 0 {
		return nil
	}

	catalog, err := o.buildCatalog(ctx, entry)
	if err != nil {
		return err
	}

	newest, ok := catalog.Newest()
	if !ok {
		return nil
	}

	if time.Since(newest.Key) > time.Duration(warnDays)*24*time.Hour {
		fmt.Fprintln(o.out, display.SnapshotAgeWarning(newest.Key, warnDays))
	}

	return nil
}

// handleHealth probes the devices backing all member pools; the run fails
// when any device reports unhealthy.
func (o *Orchestrator) handleHealth(ctx context.Context, opts Options) error {
	entries, err := o.selectEntries(opts)
	if err != nil {
		return err
	}

	poolNames := []string{}
	seen := map[string]struct{}{}

	for _, entry := range entries {
		for _, pool := range entry.Pools {
			if _, exists := seen[pool.Name()]; exists {
				continue
			}
			seen[pool.Name()] = struct{}{}
			poolNames = append(poolNames, pool.Name())
		}
	}

	probes, err := o.prober.ProbeAll(ctx, poolNames)
	if err != nil {
		return err
	}

	unhealthy := false
	for _, probe := range probes {
		fmt.Fprintln(o.out, display.ProbeLine(probe))
		if !probe.Healthy {
			unhealthy = true
		}
	}

	if opts.SelfTest {
		if err := o.prober.KickoffSelfTests(ctx, poolNames); err != nil {
			return err
		}
	}

	if unhealthy {
		return fmt.Errorf("(orchestrator) %w", ErrDeviceUnhealthy)
	}

	return nil
}

// handleRelocate evacuates one member branch onto its writable siblings.
func (o *Orchestrator) handleRelocate(ctx context.Context, opts Options) error {
	if opts.Volume == "" || opts.SourcePool == "" {
		return fmt.Errorf("(orchestrator) %w", ErrRelocateArgs)
	}

	entries, err := o.selectEntries(opts)
	if err != nil {
		return err
	}
	entry := entries[0]

	var source *relocate.Branch
	targets := []relocate.Branch{}

	for _, pool := range entry.Pools {
		mountpoint, err := pool.Mountpoint(ctx)
		if err != nil {
			return err
		}

		branch := relocate.Branch{
			Pool:       pool.QualifiedName(),
			Mountpoint: mountpoint,
			Writable:   pool.Mode() == config.ModeReadWrite,
		}

		if pool.Name() == opts.SourcePool || pool.QualifiedName() == opts.SourcePool {
			source = &branch

			continue
		}

		targets = append(targets, branch)
	}

	if source == nil {
		return fmt.Errorf("(orchestrator) %w: %q", ErrPoolNotFound, opts.SourcePool)
	}

	report, err := o.relocator.Evacuate(ctx, *source, targets)
	if err != nil {
		return err
	}

	slog.Info("Relocation finished.",
		"volume", entry.Volume.Name(),
		"pool", opts.SourcePool,
		"moved", report.Moved,
		"failed", report.Failed,
		"bytes", report.MovedBytes,
	)

	if report.Failed > 0 {
		return fmt.Errorf("(orchestrator) %d item(s): %w", report.Failed, ErrRelocateIncomplete)
	}

	return nil
}
