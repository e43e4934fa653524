// Package union composes member pools into one logical mountpoint through
// the external mergerfs layer, and diagnoses volume degradation. The mounted
// filesystem itself is the source of truth; every check here is evaluated
// fresh against it.
package union

import (
	"context"

	"github.com/mlohr/poolstack/internal/config"
	"github.com/mlohr/poolstack/internal/runner"
	"github.com/mlohr/poolstack/internal/zfs"
	"golang.org/x/sys/unix"
)

const (
	// MinFreeSpaceFloor is the fixed per-branch minimum free space passed to
	// the union layer, preventing any branch from being driven to exhaustion.
	MinFreeSpaceFloor = "4G"

	// ControlFile is the union layer's in-mount control file carrying the
	// runtime xattrs.
	ControlFile = ".mergerfs"

	// BranchesXattr is the control-file xattr listing the live backing
	// branches of the union mount.
	BranchesXattr = "user.mergerfs.srcmounts"

	// SlopParameterFile is the kernel parameter holding the live
	// reserved-space (slop) shift setting.
	SlopParameterFile = "/sys/module/zfs/parameters/spa_slop_shift"
)

// MemberPool is what a member pool must offer to the union layer.
type MemberPool interface {
	Name() string
	QualifiedName() string
	Mode() config.BranchMode
	ReadOnly() bool
	MountedLive(ctx context.Context) (bool, error)
	Mountpoint(ctx context.Context) (string, error)
	Capacity(ctx context.Context) (zfs.Capacity, error)
	Unmount(ctx context.Context) error
}

type runnerProvider interface {
	Run(ctx context.Context, stdin string, argv ...string) (runner.Result, error)
}

type unixProvider interface {
	Statfs(path string, buf *unix.Statfs_t) error
	Getxattr(path string, attr string, dest []byte) (int, error)
}

type osProvider interface {
	ReadFile(name string) ([]byte, error)
}

type handleProvider interface {
	MountpointInUse(mountpoint string) (bool, error)
}

// Volume is one merged volume composed of member pools.
type Volume struct {
	conf  config.Volume
	pools []MemberPool

	runHandler    runnerProvider
	unixHandler   unixProvider
	osHandler     osProvider
	handleScanner handleProvider
}

// NewVolume returns a [Volume] over the given member pools. Pool order
// follows the configuration and is preserved in all sequential processing.
func NewVolume(conf config.Volume, pools []MemberPool,
	runHandler runnerProvider,
	unixHandler unixProvider,
	osHandler osProvider,
	handleScanner handleProvider,
) *Volume {
	return &Volume{
		conf:          conf,
		pools:         pools,
		runHandler:    runHandler,
		unixHandler:   unixHandler,
		osHandler:     osHandler,
		handleScanner: handleScanner,
	}
}

// Name returns the configured volume name.
func (v *Volume) Name() string {
	return v.conf.Name
}

// Mountpoint returns the configured merged mountpoint.
func (v *Volume) Mountpoint() string {
	return v.conf.Mountpoint
}

// WarnDaysWithoutSnapshot returns the configured snapshot-age warning
// threshold in days, or a negative value when unset.
func (v *Volume) WarnDaysWithoutSnapshot() int {
	return v.conf.WarnDaysWithoutSnapshot
}
