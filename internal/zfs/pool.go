package zfs

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mlohr/poolstack/internal/config"
	"github.com/mlohr/poolstack/internal/runner"
	"golang.org/x/sys/unix"
)

// Pool is one independently encrypted, importable and mountable dataset.
type Pool struct {
	conf       config.Pool
	properties map[string]string

	state State

	runHandler    runnerProvider
	unixHandler   unixProvider
	handleScanner handleProvider
}

// NewPool returns a [Pool] in [StateNotImported]. The given properties are
// the volume-level desired filesystem properties reconciled on mount.
func NewPool(conf config.Pool, properties map[string]string,
	runHandler runnerProvider,
	unixHandler unixProvider,
	handleScanner handleProvider,
) *Pool {
	return &Pool{
		conf:          conf,
		properties:    properties,
		state:         StateNotImported,
		runHandler:    runHandler,
		unixHandler:   unixHandler,
		handleScanner: handleScanner,
	}
}

// Name returns the bare pool name.
func (p *Pool) Name() string {
	return p.conf.Pool
}

// QualifiedName returns the dataset-qualified pool name.
func (p *Pool) QualifiedName() string {
	return p.conf.QualifiedName()
}

// Mode returns the configured branch mode.
func (p *Pool) Mode() config.BranchMode {
	return p.conf.Mode
}

// ReadOnly reports whether the pool is a read-only branch.
func (p *Pool) ReadOnly() bool {
	return p.conf.Mode == config.ModeReadOnly
}

// State returns the last lifecycle state observed by this invocation.
func (p *Pool) State() State {
	return p.state
}

// Imported queries live whether the pool is known to the running system. A
// non-zero exit of the listing command is the meaningful negative answer,
// not a failure.
func (p *Pool) Imported(ctx context.Context) (bool, error) {
	argv := []string{"zpool", "list", "-H", "-o", "name", p.conf.Pool}

	res, err := p.runHandler.Run(ctx, "", argv...)
	if err != nil {
		return false, fmt.Errorf("(zfs-imported) %w", err)
	}

	return res.Success(), nil
}

// Import brings the pool into the running system. It is idempotent: an
// already imported pool is a no-op success.
func (p *Pool) Import(ctx context.Context) error {
	imported, err := p.Imported(ctx)
	if err != nil {
		return err
	}

	if imported {
		slog.Debug("Pool already imported.", "pool", p.conf.Pool)
		p.advance(StateImported)

		return nil
	}

	argv := []string{"zpool", "import", p.conf.Pool}

	res, err := p.runHandler.Run(ctx, "", argv...)
	if err != nil {
		return fmt.Errorf("(zfs-import) %w", err)
	}
	if !res.Success() {
		return fmt.Errorf("(zfs-import) %w", runner.NewCommandError(argv, res))
	}

	p.advance(StateImported)

	return nil
}

// KeyStatus returns the live encryption key status of the pool dataset
// (typically "available" or "unavailable").
func (p *Pool) KeyStatus(ctx context.Context) (string, error) {
	value, err := p.getProperty(ctx, "keystatus")
	if err != nil {
		return "", err
	}

	return value, nil
}

// LoadKey unlocks the pool dataset with the given passphrase. It requires
// [StateImported] and fails with [ErrKeyRejected] when the storage layer
// does not accept the secret.
func (p *Pool) LoadKey(ctx context.Context, passphrase string) error {
	if p.state < StateImported {
		return fmt.Errorf("(zfs-loadkey) pool %s: %w", p.conf.Pool, ErrNotImported)
	}

	status, err := p.KeyStatus(ctx)
	if err != nil {
		return err
	}

	if status == KeyStatusAvailable {
		slog.Debug("Key already loaded.", "pool", p.QualifiedName())
		p.advance(StateKeyLoaded)

		return nil
	}

	argv := []string{"zfs", "load-key", p.QualifiedName()}

	res, err := p.runHandler.Run(ctx, passphrase+"\n", argv...)
	if err != nil {
		return fmt.Errorf("(zfs-loadkey) %w", err)
	}
	if !res.Success() {
		return fmt.Errorf("(zfs-loadkey) pool %s: %w", p.QualifiedName(), ErrKeyRejected)
	}

	p.advance(StateKeyLoaded)

	return nil
}

// Mount mounts the pool dataset and reconciles the desired filesystem
// properties, writing only those whose live value differs. It requires
// [StateKeyLoaded]; an already mounted dataset is a no-op success before
// reconciliation.
func (p *Pool) Mount(ctx context.Context) error {
	if p.state < StateKeyLoaded {
		return fmt.Errorf("(zfs-mount) pool %s: %w", p.QualifiedName(), ErrKeyNotLoaded)
	}

	mounted, err := p.MountedLive(ctx)
	if err != nil {
		return err
	}

	if !mounted {
		argv := []string{"zfs", "mount", p.QualifiedName()}

		res, err := p.runHandler.Run(ctx, "", argv...)
		if err != nil {
			return fmt.Errorf("(zfs-mount) %w", err)
		}
		if !res.Success() {
			return fmt.Errorf("(zfs-mount) %w", runner.NewCommandError(argv, res))
		}
	} else {
		slog.Debug("Pool already mounted.", "pool", p.QualifiedName())
	}

	if err := p.reconcileProperties(ctx); err != nil {
		return err
	}

	p.advance(StateMounted)

	return nil
}

// MountedLive queries live whether the pool dataset is mounted.
func (p *Pool) MountedLive(ctx context.Context) (bool, error) {
	value, err := p.getProperty(ctx, "mounted")
	if err != nil {
		return false, err
	}

	return value == "yes", nil
}

// Mountpoint returns the live mountpoint of the pool dataset.
func (p *Pool) Mountpoint(ctx context.Context) (string, error) {
	return p.getProperty(ctx, "mountpoint")
}

// Unmount reverses the full lifecycle: unmount, unload the key, export the
// pool. It fails with [ErrMountpointBusy] while any process holds the
// mountpoint open; that condition is never retried or forced here. An
// already unmounted dataset skips straight to key unload and export.
func (p *Pool) Unmount(ctx context.Context) error {
	mounted, err := p.MountedLive(ctx)
	if err != nil {
		return err
	}

	if mounted {
		mountpoint, err := p.Mountpoint(ctx)
		if err != nil {
			return err
		}

		busy, err := p.handleScanner.MountpointInUse(mountpoint)
		if err != nil {
			return fmt.Errorf("(zfs-unmount) %w", err)
		}
		if busy {
			return fmt.Errorf("(zfs-unmount) pool %s (%s): %w", p.QualifiedName(), mountpoint, ErrMountpointBusy)
		}

		argv := []string{"zfs", "unmount", p.QualifiedName()}

		res, err := p.runHandler.Run(ctx, "", argv...)
		if err != nil {
			return fmt.Errorf("(zfs-unmount) %w", err)
		}
		if !res.Success() {
			return fmt.Errorf("(zfs-unmount) %w", runner.NewCommandError(argv, res))
		}
	} else {
		slog.Debug("Pool already unmounted.", "pool", p.QualifiedName())
	}

	if status, err := p.KeyStatus(ctx); err == nil && status == KeyStatusAvailable {
		argv := []string{"zfs", "unload-key", p.QualifiedName()}

		res, err := p.runHandler.Run(ctx, "", argv...)
		if err != nil {
			return fmt.Errorf("(zfs-unloadkey) %w", err)
		}
		if !res.Success() {
			return fmt.Errorf("(zfs-unloadkey) %w", runner.NewCommandError(argv, res))
		}
	}

	argv := []string{"zpool", "export", p.conf.Pool}

	res, err := p.runHandler.Run(ctx, "", argv...)
	if err != nil {
		return fmt.Errorf("(zfs-export) %w", err)
	}
	if !res.Success() {
		return fmt.Errorf("(zfs-export) %w", runner.NewCommandError(argv, res))
	}

	p.state = StateNotImported

	return nil
}

// Capacity returns a live capacity snapshot of the mounted pool. Read-only
// pools report their free space as unavailable.
func (p *Pool) Capacity(ctx context.Context) (Capacity, error) {
	mountpoint, err := p.Mountpoint(ctx)
	if err != nil {
		return Capacity{}, err
	}

	var stat unix.Statfs_t
	if err := p.unixHandler.Statfs(mountpoint, &stat); err != nil {
		return Capacity{}, fmt.Errorf("(zfs-capacity) failed to statfs %q: %w", mountpoint, err)
	}

	blockSize := blockSizeOf(stat.Bsize)

	capacity := Capacity{
		Total: stat.Blocks * blockSize,
		Free:  stat.Bavail * blockSize,
	}
	capacity.Used = capacity.Total - capacity.Free

	if p.ReadOnly() {
		capacity.Unavailable = capacity.Free
		capacity.Free = 0
	}

	return capacity, nil
}

// advance moves the lifecycle state forward, never backward.
func (p *Pool) advance(state State) {
	if state > p.state {
		p.state = state
	}
}

func blockSizeOf(bsize int64) uint64 {
	if bsize < 0 {
		return 0
	}

	return uint64(bsize)
}
