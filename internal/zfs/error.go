package zfs

import "errors"

var (
	// ErrNotImported is an error that occurs when a key load is attempted on
	// a pool that has not passed [StateImported].
	ErrNotImported = errors.New("pool is not imported")

	// ErrKeyRejected is an error that occurs when the storage layer does not
	// accept the supplied decryption secret.
	ErrKeyRejected = errors.New("decryption key was rejected")

	// ErrKeyNotLoaded is an error that occurs when a mount is attempted on a
	// pool that has not passed [StateKeyLoaded].
	ErrKeyNotLoaded = errors.New("decryption key is not loaded")

	// ErrMountpointBusy is an error that occurs when an unmount is attempted
	// while a process holds the mountpoint open. It is a safety violation
	// and never retried.
	ErrMountpointBusy = errors.New("mountpoint is held open by a process")

	// ErrMalformedListing is an error that occurs when the machine-readable
	// output of the external tooling cannot be parsed.
	ErrMalformedListing = errors.New("malformed listing line")
)
