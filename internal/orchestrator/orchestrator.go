// Package orchestrator sequences volume-level commands over the configured
// merged volumes. Volumes and their member pools are processed strictly
// sequentially, one pool at a time, keeping secret-prompt ordering and
// console output deterministic; the only concurrent path is the read-only
// device health fan-out inside its own package.
package orchestrator

import (
	"context"
	"fmt"
	"io"

	"github.com/mlohr/poolstack/internal/config"
	"github.com/mlohr/poolstack/internal/health"
	"github.com/mlohr/poolstack/internal/relocate"
	"github.com/mlohr/poolstack/internal/secrets"
	"github.com/mlohr/poolstack/internal/union"
	"github.com/mlohr/poolstack/internal/zfs"
)

// Command enumerates the volume-level operations. Dispatch is an explicit
// mapping from command to handler, never name-based.
type Command int

const (
	// CommandMount brings every configured volume online.
	CommandMount Command = iota

	// CommandUnmount takes every configured volume down.
	CommandUnmount

	// CommandList reports composition, capacity and degradation state.
	CommandList

	// CommandLocks reports the encryption key status of every member pool.
	CommandLocks

	// CommandSnapshots reports snapshot generations and optionally prunes
	// them.
	CommandSnapshots

	// CommandHealth probes the physical devices backing the pools.
	CommandHealth

	// CommandRelocate evacuates one member branch onto its siblings.
	CommandRelocate
)

// Options carries the per-invocation command arguments.
type Options struct {
	// DeleteOldest prunes exactly the oldest snapshot generation.
	DeleteOldest bool

	// FreeGB runs delete-until-free toward this many GiB of free space,
	// without touching mount state.
	FreeGB uint64

	// SelfTest kicks off detached device self-tests after probing.
	SelfTest bool

	// Volume restricts the command to one configured volume.
	Volume string

	// SourcePool names the member pool to evacuate.
	SourcePool string
}

// Pool is what a member pool must offer to the orchestrator.
type Pool interface {
	Name() string
	QualifiedName() string
	Mode() config.BranchMode
	ReadOnly() bool
	State() zfs.State
	Import(ctx context.Context) error
	LoadKey(ctx context.Context, passphrase string) error
	Mount(ctx context.Context) error
	MountedLive(ctx context.Context) (bool, error)
	Mountpoint(ctx context.Context) (string, error)
	KeyStatus(ctx context.Context) (string, error)
	Capacity(ctx context.Context) (zfs.Capacity, error)
	Snapshots(ctx context.Context) ([]zfs.Snapshot, error)
	DestroySnapshot(ctx context.Context, snapshot zfs.Snapshot) error
}

// Volume is what a merged volume must offer to the orchestrator.
type Volume interface {
	Name() string
	Mountpoint() string
	WarnDaysWithoutSnapshot() int
	Mount(ctx context.Context) error
	Unmount(ctx context.Context) error
	Status(ctx context.Context) (union.Status, error)
}

type keySource interface {
	Unlock(ctx context.Context, pool secrets.Unlockable) error
}

type proberProvider interface {
	ProbeAll(ctx context.Context, pools []string) ([]health.Probe, error)
	KickoffSelfTests(ctx context.Context, pools []string) error
}

type relocateProvider interface {
	Evacuate(ctx context.Context, source relocate.Branch, targets []relocate.Branch) (relocate.Report, error)
}

// Entry is one configured volume together with its member pools, in
// configuration order.
type Entry struct {
	Volume Volume
	Pools  []Pool
}

type handlerFunc func(ctx context.Context, opts Options) error

// Orchestrator is the principal implementation for command sequencing.
type Orchestrator struct {
	entries   []Entry
	keys      keySource
	prober    proberProvider
	relocator relocateProvider
	out       io.Writer

	handlers map[Command]handlerFunc
}

// NewOrchestrator returns an [Orchestrator] over the given volume entries.
func NewOrchestrator(entries []Entry, keys keySource, prober proberProvider,
	relocator relocateProvider, out io.Writer,
) *Orchestrator {
	o := &Orchestrator{
		entries:   entries,
		keys:      keys,
		prober:    prober,
		relocator: relocator,
		out:       out,
	}

	o.handlers = map[Command]handlerFunc{
		CommandMount:     o.handleMount,
		CommandUnmount:   o.handleUnmount,
		CommandList:      o.handleList,
		CommandLocks:     o.handleLocks,
		CommandSnapshots: o.handleSnapshots,
		CommandHealth:    o.handleHealth,
		CommandRelocate:  o.handleRelocate,
	}

	return o
}

// Run dispatches the command to its handler.
func (o *Orchestrator) Run(ctx context.Context, cmd Command, opts Options) error {
	handler, exists := o.handlers[cmd]
	if !exists {
		return fmt.Errorf("(orchestrator) %w: %d", ErrUnknownCommand, cmd)
	}

	return handler(ctx, opts)
}

// selectEntries returns the entries the command applies to, honoring an
// optional volume restriction.
func (o *Orchestrator) selectEntries(opts Options) ([]Entry, error) {
	if opts.Volume == "" {
		return o.entries, nil
	}

	for _, entry := range o.entries {
		if entry.Volume.Name() == opts.Volume {
			return []Entry{entry}, nil
		}
	}

	return nil, fmt.Errorf("(orchestrator) %w: %q", ErrVolumeNotFound, opts.Volume)
}
