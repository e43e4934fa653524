package relocate

import "errors"

var (
	// ErrNotAllocatable is an error that occurs when no writable target
	// branch can take an item without dropping under the space floor.
	ErrNotAllocatable = errors.New("no target branch has enough free space")

	// ErrHashMismatch is an error that occurs when source and destination
	// content hashes differ after a copy. It is fatal for the one item only.
	ErrHashMismatch = errors.New("content hash mismatch between source and destination")

	// ErrRenameExists is an error that occurs when the destination path
	// already exists at rename time.
	ErrRenameExists = errors.New("destination path already exists")
)
