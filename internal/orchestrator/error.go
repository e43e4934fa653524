package orchestrator

import "errors"

var (
	// ErrUnknownCommand is an error that occurs when no handler is mapped
	// for a command value.
	ErrUnknownCommand = errors.New("unknown command")

	// ErrVolumeNotFound is an error that occurs when a named volume is not
	// configured.
	ErrVolumeNotFound = errors.New("volume is not configured")

	// ErrPoolNotFound is an error that occurs when a named pool is not a
	// member of the selected volume.
	ErrPoolNotFound = errors.New("pool is not a member of the volume")

	// ErrVolumeDegraded is an error that occurs when any configured volume
	// ends the run degraded or offline; it maps to a non-zero exit status.
	ErrVolumeDegraded = errors.New("volume ended the run degraded or offline")

	// ErrDeviceUnhealthy is an error that occurs when a device probe reports
	// an unhealthy device.
	ErrDeviceUnhealthy = errors.New("device reported unhealthy")

	// ErrRelocateArgs is an error that occurs when relocation is requested
	// without naming both a volume and a source pool.
	ErrRelocateArgs = errors.New("relocation requires a volume and a source pool")

	// ErrRelocateIncomplete is an error that occurs when some items could
	// not be relocated; completed siblings stay relocated.
	ErrRelocateIncomplete = errors.New("relocation finished with failed items")
)
