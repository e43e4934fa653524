package union

import "errors"

var (
	// ErrNotMounted is an error that occurs when the union mountpoint is not
	// backed by the merged filesystem.
	ErrNotMounted = errors.New("union is not mounted")

	// ErrPoolNotMounted is an error that occurs when a union mount is
	// attempted while a member pool is not yet mounted. It is a safety
	// violation; a partial union is never established.
	ErrPoolNotMounted = errors.New("member pool is not mounted")

	// ErrMountpointBusy is an error that occurs when a union unmount is
	// attempted while a process holds the mountpoint open. It is a safety
	// violation and never retried.
	ErrMountpointBusy = errors.New("mountpoint is held open by a process")
)
