// Package relocate evacuates the contents of one member branch onto the
// remaining writable branches of a volume. Placement follows the union
// layer's policy: the writable branch with the most free space wins, and no
// branch is filled past the free-space floor. Every copied file is verified
// by content hash; a mismatch is fatal for that one item only, sibling items
// continue independently.
package relocate

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// SpaceFloor is the per-branch minimum free space preserved by placement
// decisions, matching the union layer's floor.
const SpaceFloor = uint64(4) << 30

// Branch is one member branch considered for evacuation.
type Branch struct {
	Pool       string
	Mountpoint string
	Writable   bool
}

type osProvider interface {
	Open(name string) (*os.File, error)
	OpenFile(name string, flag int, perm os.FileMode) (*os.File, error)
	Stat(name string) (os.FileInfo, error)
	Remove(name string) error
	Rename(oldpath, newpath string) error
	MkdirAll(path string, perm os.FileMode) error
}

type unixProvider interface {
	Statfs(path string, buf *unix.Statfs_t) error
}

type fsWalkProvider interface {
	WalkDir(root string, fn fs.WalkDirFunc) error
}

// Report summarizes one evacuation run.
type Report struct {
	Moved      int
	Failed     int
	MovedBytes uint64
}

// Handler is the principal implementation for branch evacuation.
type Handler struct {
	osHandler   osProvider
	unixHandler unixProvider
	walkHandler fsWalkProvider
}

// NewHandler returns a relocation [Handler].
func NewHandler(osHandler osProvider, unixHandler unixProvider) *Handler {
	return &Handler{
		osHandler:   osHandler,
		unixHandler: unixHandler,
		walkHandler: fileWalker{},
	}
}

type fileWalker struct{}

func (fileWalker) WalkDir(root string, fn fs.WalkDirFunc) error {
	return filepath.WalkDir(root, fn) //nolint:wrapcheck
}

// Evacuate moves every regular file under the source branch onto the
// targets. Items failing allocation or verification are reported and
// skipped; the run only fails as a whole when the tree cannot be walked.
func (h *Handler) Evacuate(ctx context.Context, source Branch, targets []Branch) (Report, error) {
	report := Report{}

	err := h.walkHandler.WalkDir(source.Mountpoint, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		if d.IsDir() {
			// The snapshot directory mirrors the live tree and must never
			// be walked into.
			if d.Name() == ".zfs" {
				return filepath.SkipDir
			}

			return nil
		}

		if !d.Type().IsRegular() {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			slog.Warn("Skipped item: failed to stat.", "path", path, "err", err)
			report.Failed++

			return nil
		}

		if err := h.evacuateFile(ctx, source, targets, path, info); err != nil {
			slog.Error("Failed to relocate item.", "path", path, "err", err)
			report.Failed++

			return nil
		}

		report.Moved++
		report.MovedBytes += uint64(info.Size()) //nolint:gosec

		return nil
	})
	if err != nil {
		return report, fmt.Errorf("(relocate) failed walking %q: %w", source.Mountpoint, err)
	}

	return report, nil
}

func (h *Handler) evacuateFile(ctx context.Context, source Branch, targets []Branch, path string, info os.FileInfo) error {
	rel, err := filepath.Rel(source.Mountpoint, path)
	if err != nil {
		return fmt.Errorf("(relocate) failed to relate path: %w", err)
	}

	dest, err := h.allocateMostFree(targets, source, uint64(info.Size())) //nolint:gosec
	if err != nil {
		return err
	}

	destPath := filepath.Join(dest.Mountpoint, rel)

	if err := h.osHandler.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return fmt.Errorf("(relocate) failed to create directories: %w", err)
	}

	if err := h.moveFile(ctx, path, destPath, info.Mode().Perm()); err != nil {
		return err
	}

	slog.Info("Relocated item.",
		"from", path,
		"to", destPath,
		"pool", dest.Pool,
		"size", info.Size(),
	)

	return nil
}

// allocateMostFree picks the writable target branch with the most free
// space that can take the file without dropping under the space floor.
func (h *Handler) allocateMostFree(targets []Branch, source Branch, size uint64) (Branch, error) {
	best := Branch{}
	bestFree := uint64(0)
	found := false

	for _, target := range targets {
		if !target.Writable || target.Mountpoint == source.Mountpoint {
			continue
		}

		var stat unix.Statfs_t
		if err := h.unixHandler.Statfs(target.Mountpoint, &stat); err != nil {
			slog.Warn("Skipped branch for most-free consideration.",
				"pool", target.Pool,
				"err", err,
			)

			continue
		}

		free := stat.Bavail * uint64(stat.Bsize) //nolint:gosec
		if free < SpaceFloor+size {
			continue
		}

		if !found || free > bestFree {
			best = target
			bestFree = free
			found = true
		}
	}

	if !found {
		return Branch{}, fmt.Errorf("(relocate) %w", ErrNotAllocatable)
	}

	return best, nil
}
