package orchestrator_test

import (
	"context"
	"slices"

	"github.com/mlohr/poolstack/internal/config"
	"github.com/mlohr/poolstack/internal/health"
	"github.com/mlohr/poolstack/internal/relocate"
	"github.com/mlohr/poolstack/internal/secrets"
	"github.com/mlohr/poolstack/internal/union"
	"github.com/mlohr/poolstack/internal/zfs"
)

// fakePool is a scripted member pool recording the lifecycle calls made
// against it.
type fakePool struct {
	name       string
	mode       config.BranchMode
	state      zfs.State
	keyStatus  string
	mounted    bool
	mountpoint string
	capacity   zfs.Capacity
	snapshots  []zfs.Snapshot

	importErr error
	mountErr  error

	imported  bool
	keyLoaded bool
	destroyed []string
}

func (f *fakePool) Name() string            { return f.name }
func (f *fakePool) QualifiedName() string   { return f.name + "/data" }
func (f *fakePool) Mode() config.BranchMode { return f.mode }
func (f *fakePool) ReadOnly() bool          { return f.mode == config.ModeReadOnly }
func (f *fakePool) State() zfs.State        { return f.state }

func (f *fakePool) Import(ctx context.Context) error {
	if f.importErr != nil {
		return f.importErr
	}
	f.imported = true
	f.state = zfs.StateImported

	return nil
}

func (f *fakePool) LoadKey(ctx context.Context, passphrase string) error {
	f.keyLoaded = true
	f.state = zfs.StateKeyLoaded

	return nil
}

func (f *fakePool) Mount(ctx context.Context) error {
	if f.mountErr != nil {
		return f.mountErr
	}
	f.mounted = true
	f.state = zfs.StateMounted

	return nil
}

func (f *fakePool) MountedLive(ctx context.Context) (bool, error) {
	return f.mounted, nil
}

func (f *fakePool) Mountpoint(ctx context.Context) (string, error) {
	return f.mountpoint, nil
}

func (f *fakePool) KeyStatus(ctx context.Context) (string, error) {
	return f.keyStatus, nil
}

func (f *fakePool) Capacity(ctx context.Context) (zfs.Capacity, error) {
	return f.capacity, nil
}

func (f *fakePool) Snapshots(ctx context.Context) ([]zfs.Snapshot, error) {
	return slices.Clone(f.snapshots), nil
}

func (f *fakePool) DestroySnapshot(ctx context.Context, snapshot zfs.Snapshot) error {
	f.destroyed = append(f.destroyed, snapshot.FullName())

	return nil
}

// fakeVolume is a scripted merged volume.
type fakeVolume struct {
	name     string
	warnDays int
	status   union.Status

	mountErr   error
	unmountErr error

	mounted   bool
	unmounted bool
}

func (f *fakeVolume) Name() string                 { return f.name }
func (f *fakeVolume) Mountpoint() string           { return "/mnt/" + f.name }
func (f *fakeVolume) WarnDaysWithoutSnapshot() int { return f.warnDays }

func (f *fakeVolume) Mount(ctx context.Context) error {
	if f.mountErr != nil {
		return f.mountErr
	}
	f.mounted = true

	return nil
}

func (f *fakeVolume) Unmount(ctx context.Context) error {
	if f.unmountErr != nil {
		return f.unmountErr
	}
	f.unmounted = true

	return nil
}

func (f *fakeVolume) Status(ctx context.Context) (union.Status, error) {
	return f.status, nil
}

// fakeKeys hands every pool straight to its key loader.
type fakeKeys struct {
	unlocked []string
}

func (f *fakeKeys) Unlock(ctx context.Context, pool secrets.Unlockable) error {
	f.unlocked = append(f.unlocked, pool.QualifiedName())

	return pool.LoadKey(ctx, "scripted")
}

type fakeProber struct {
	probes   []health.Probe
	probeErr error

	probedPools []string
	kickedOff   bool
}

func (f *fakeProber) ProbeAll(ctx context.Context, pools []string) ([]health.Probe, error) {
	f.probedPools = pools

	return f.probes, f.probeErr
}

func (f *fakeProber) KickoffSelfTests(ctx context.Context, pools []string) error {
	f.kickedOff = true

	return nil
}

type fakeRelocator struct {
	report relocate.Report
	err    error

	source  relocate.Branch
	targets []relocate.Branch
	called  bool
}

func (f *fakeRelocator) Evacuate(ctx context.Context, source relocate.Branch, targets []relocate.Branch) (relocate.Report, error) {
	f.called = true
	f.source = source
	f.targets = targets

	return f.report, f.err
}
