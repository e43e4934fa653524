// Package zfs implements the per-pool mount lifecycle over the external
// zfs/zpool tooling. A [Pool] advances linearly through import, key load and
// mount; unmount reverses the full chain. All capacity and property state is
// queried live from the storage layer, never cached across calls.
package zfs

import (
	"context"
	"time"

	"github.com/mlohr/poolstack/internal/runner"
	"golang.org/x/sys/unix"
)

type runnerProvider interface {
	Run(ctx context.Context, stdin string, argv ...string) (runner.Result, error)
}

type unixProvider interface {
	Statfs(path string, buf *unix.Statfs_t) error
}

type handleProvider interface {
	MountpointInUse(mountpoint string) (bool, error)
}

// KeyStatusAvailable is the live keystatus value of a dataset whose
// encryption key is loaded.
const KeyStatusAvailable = "available"

// State is a position in the linear pool lifecycle.
type State int

const (
	// StateNotImported is the initial state; the pool is unknown to the
	// running system.
	StateNotImported State = iota

	// StateImported means the pool is imported but its keys are not loaded.
	StateImported

	// StateKeyLoaded means the decryption key is loaded but the dataset is
	// not mounted.
	StateKeyLoaded

	// StateMounted is the terminal forward state.
	StateMounted
)

// String returns a display name for the state.
func (s State) String() string {
	switch s {
	case StateNotImported:
		return "not-imported"
	case StateImported:
		return "imported"
	case StateKeyLoaded:
		return "key-loaded"
	case StateMounted:
		return "mounted"
	default:
		return "unknown"
	}
}

// Capacity is a live point-in-time capacity snapshot of one pool. Free space
// of read-only pools is reported as unavailable instead of free, since it
// can never receive new placements.
type Capacity struct {
	Total       uint64
	Used        uint64
	Free        uint64
	Unavailable uint64
}

// Snapshot is one enumerated snapshot of a pool dataset. Creation is
// truncated to minute granularity for cross-pool generation bucketing.
type Snapshot struct {
	Dataset  string
	Name     string
	Creation time.Time
	Used     uint64
}

// FullName returns the `dataset@name` form used by the external tooling.
func (s Snapshot) FullName() string {
	return s.Dataset + "@" + s.Name
}
