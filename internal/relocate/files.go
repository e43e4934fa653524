package relocate

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/zeebo/blake3"
)

// tmpSuffix marks in-flight copies so an interrupted run never leaves a
// partial file under its final name.
const tmpSuffix = ".poolstack"

//nolint:containedctx
type contextReader struct {
	ctx    context.Context
	reader io.Reader
}

func (cr *contextReader) Read(p []byte) (int, error) {
	select {
	case <-cr.ctx.Done():
		return 0, context.Canceled
	default:
		return cr.reader.Read(p)
	}
}

// moveFile relocates src to dest in two phases: stage a verified copy under
// a temporary name, then promote it and retire the source. The staged copy
// never survives a failed move.
func (h *Handler) moveFile(ctx context.Context, src string, dest string, perm os.FileMode) error {
	tmpPath := dest + tmpSuffix

	if err := h.stageCopy(ctx, src, tmpPath, perm); err != nil {
		h.osHandler.Remove(tmpPath) //nolint:errcheck

		return err
	}

	if err := h.promote(tmpPath, dest, src); err != nil {
		h.osHandler.Remove(tmpPath) //nolint:errcheck

		return err
	}

	return nil
}

// stageCopy writes src to tmpPath, hashing both streams in flight and
// refusing the staged copy on a digest mismatch.
func (h *Handler) stageCopy(ctx context.Context, src string, tmpPath string, perm os.FileMode) error {
	srcFile, err := h.osHandler.Open(src)
	if err != nil {
		return fmt.Errorf("(relocate-stage) failed to open src: %w", err)
	}
	defer srcFile.Close()

	tmpFile, err := h.osHandler.OpenFile(tmpPath, os.O_CREATE|os.O_WRONLY|os.O_EXCL, perm)
	if err != nil {
		return fmt.Errorf("(relocate-stage) failed to open tmp: %w", err)
	}
	defer tmpFile.Close()

	srcHasher := blake3.New()
	tmpHasher := blake3.New()

	ctxReader := &contextReader{
		ctx:    ctx,
		reader: io.TeeReader(srcFile, srcHasher),
	}

	if _, err := io.Copy(io.MultiWriter(tmpFile, tmpHasher), ctxReader); err != nil {
		if errors.Is(err, context.Canceled) {
			return fmt.Errorf("(relocate-stage) canceled: %w", err)
		}

		return fmt.Errorf("(relocate-stage) failed to copy: %w", err)
	}

	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("(relocate-stage) failed to sync tmp: %w", err)
	}

	srcDigest := hex.EncodeToString(srcHasher.Sum(nil))
	tmpDigest := hex.EncodeToString(tmpHasher.Sum(nil))

	if srcDigest != tmpDigest {
		return fmt.Errorf("(relocate-stage) %w: %s (src) != %s (tmp)", ErrHashMismatch, srcDigest, tmpDigest)
	}

	return nil
}

// promote renames the staged copy to its final name and retires the source.
// An already existing destination fails the move; evacuation never
// overwrites.
func (h *Handler) promote(tmpPath string, dest string, src string) error {
	if _, err := h.osHandler.Stat(dest); err == nil {
		return fmt.Errorf("(relocate-promote) %w: %q", ErrRenameExists, dest)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("(relocate-promote) failed to stat dest: %w", err)
	}

	if err := h.osHandler.Rename(tmpPath, dest); err != nil {
		return fmt.Errorf("(relocate-promote) failed to rename: %w", err)
	}

	if err := h.osHandler.Remove(src); err != nil {
		return fmt.Errorf("(relocate-promote) failed to remove src: %w", err)
	}

	return nil
}
