package union

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/mlohr/poolstack/internal/runner"
	"golang.org/x/sys/unix"
)

// MountedLive queries live whether the union mountpoint is backed by the
// merged filesystem, by probing the control-file xattr.
func (v *Volume) MountedLive(ctx context.Context) (bool, error) {
	_, err := v.branchesLive()
	if err != nil {
		if errors.Is(err, ErrNotMounted) {
			return false, nil
		}

		return false, err
	}

	return true, nil
}

// branchesLive reads the live backing-branch list off the union control
// file. A missing control file, a missing xattr or a filesystem without
// xattr support means the union is not mounted; any other errno is a real
// failure. The buffer grows until the branch list fits.
func (v *Volume) branchesLive() ([]string, error) {
	controlPath := filepath.Join(v.conf.Mountpoint, ControlFile)

	buf := make([]byte, 4096)

	var n int
	for {
		var err error

		n, err = v.unixHandler.Getxattr(controlPath, BranchesXattr, buf)
		if err == nil {
			break
		}

		switch {
		case errors.Is(err, unix.ERANGE):
			buf = make([]byte, len(buf)*2)
		case errors.Is(err, unix.ENOENT), errors.Is(err, unix.ENODATA), errors.Is(err, unix.ENOTSUP):
			return nil, fmt.Errorf("(union-branches) %q: %w", v.conf.Mountpoint, ErrNotMounted)
		default:
			return nil, fmt.Errorf("(union-branches) %q: %w", v.conf.Mountpoint, err)
		}
	}

	branches := []string{}
	for _, branch := range strings.Split(strings.TrimSpace(string(buf[:n])), ":") {
		if branch != "" {
			branches = append(branches, branch)
		}
	}

	return branches, nil
}

// expectedBranches returns the member pool mountpoints in configured order.
func (v *Volume) expectedBranches(ctx context.Context) ([]string, error) {
	branches := make([]string, 0, len(v.pools))

	for _, pool := range v.pools {
		mountpoint, err := pool.Mountpoint(ctx)
		if err != nil {
			return nil, fmt.Errorf("(union-branches) pool %s: %w", pool.QualifiedName(), err)
		}
		branches = append(branches, mountpoint)
	}

	return branches, nil
}

// Mount establishes the union mount over all member pools. Every member must
// already be mounted; a partial union is unsafe because capacity and
// placement decisions assume full membership, so any unmounted member aborts
// the whole operation. Mounting an already-mounted volume is a no-op
// success. New files land on the writable branch with the most free space;
// read-only branches never receive placements; the per-branch free-space
// floor is fixed at [MinFreeSpaceFloor].
func (v *Volume) Mount(ctx context.Context) error {
	mounted, err := v.MountedLive(ctx)
	if err != nil {
		return err
	}
	if mounted {
		slog.Info("Volume already mounted.", "volume", v.conf.Name)

		return nil
	}

	for _, pool := range v.pools {
		poolMounted, err := pool.MountedLive(ctx)
		if err != nil {
			return fmt.Errorf("(union-mount) %w", err)
		}
		if !poolMounted {
			return fmt.Errorf("(union-mount) volume %s, pool %s: %w",
				v.conf.Name, pool.QualifiedName(), ErrPoolNotMounted)
		}
	}

	branches := make([]string, 0, len(v.pools))
	for _, pool := range v.pools {
		mountpoint, err := pool.Mountpoint(ctx)
		if err != nil {
			return fmt.Errorf("(union-mount) %w", err)
		}
		branches = append(branches, mountpoint+"="+pool.Mode().String())
	}

	options := fmt.Sprintf("category.create=mff,minfreespace=%s,fsname=%s",
		MinFreeSpaceFloor, v.conf.Name)

	argv := []string{"mergerfs", "-o", options, strings.Join(branches, ":"), v.conf.Mountpoint}

	res, err := v.runHandler.Run(ctx, "", argv...)
	if err != nil {
		return fmt.Errorf("(union-mount) %w", err)
	}
	if !res.Success() {
		return fmt.Errorf("(union-mount) %w", runner.NewCommandError(argv, res))
	}

	v.runHook(ctx, v.conf.PostMountAction, "post-mount")

	return nil
}

// Unmount runs the pre-unmount hook, refuses while the mountpoint has open
// handles, unmounts the union layer and then the member pools in turn. Pool
// unmounts are best-effort without rollback: a failing member is reported
// while already-unmounted members stay unmounted.
func (v *Volume) Unmount(ctx context.Context) error {
	v.runHook(ctx, v.conf.PreUnmountAction, "pre-unmount")

	mounted, err := v.MountedLive(ctx)
	if err != nil {
		return err
	}

	if mounted {
		busy, err := v.handleScanner.MountpointInUse(v.conf.Mountpoint)
		if err != nil {
			return fmt.Errorf("(union-unmount) %w", err)
		}
		if busy {
			return fmt.Errorf("(union-unmount) volume %s (%s): %w",
				v.conf.Name, v.conf.Mountpoint, ErrMountpointBusy)
		}

		argv := []string{"umount", v.conf.Mountpoint}

		res, err := v.runHandler.Run(ctx, "", argv...)
		if err != nil {
			return fmt.Errorf("(union-unmount) %w", err)
		}
		if !res.Success() {
			return fmt.Errorf("(union-unmount) %w", runner.NewCommandError(argv, res))
		}
	} else {
		slog.Info("Volume already unmounted.", "volume", v.conf.Name)
	}

	var poolErrs error
	for _, pool := range v.pools {
		if err := pool.Unmount(ctx); err != nil {
			slog.Error("Failed to unmount pool.",
				"volume", v.conf.Name,
				"pool", pool.QualifiedName(),
				"err", err,
			)
			poolErrs = errors.Join(poolErrs, err)
		}
	}

	if poolErrs != nil {
		return fmt.Errorf("(union-unmount) volume %s: %w", v.conf.Name, poolErrs)
	}

	return nil
}

// runHook executes a configured hook command line best-effort; a failure is
// reported but never fails the surrounding operation.
func (v *Volume) runHook(ctx context.Context, action string, stage string) {
	if action == "" {
		return
	}

	argv := []string{"/bin/sh", "-c", action}

	res, err := v.runHandler.Run(ctx, "", argv...)
	if err != nil {
		slog.Warn("Hook could not be run.",
			"volume", v.conf.Name,
			"stage", stage,
			"err", err,
		)

		return
	}
	if !res.Success() {
		slog.Warn("Hook exited non-zero.",
			"volume", v.conf.Name,
			"stage", stage,
			"status", res.ExitCode,
			"stderr", strings.TrimSpace(res.Stderr),
		)
	}
}
