package config

import "errors"

var (
	// ErrKeysOutsideSection is an error that occurs when settings appear
	// before any section header.
	ErrKeysOutsideSection = errors.New("settings outside of a volume section")

	// ErrEmptySectionName is an error that occurs when a section header
	// carries no volume name.
	ErrEmptySectionName = errors.New("empty volume section name")

	// ErrNoMountpoint is an error that occurs when a volume section declares
	// no mountpoint.
	ErrNoMountpoint = errors.New("no mountpoint configured")

	// ErrNoPools is an error that occurs when a volume section declares no
	// member pools.
	ErrNoPools = errors.New("no pools configured")

	// ErrEmptyPoolName is an error that occurs when a pool token carries no
	// pool name.
	ErrEmptyPoolName = errors.New("empty pool name")

	// ErrUnknownBranchMode is an error that occurs when a pool token carries
	// an unrecognized branch mode.
	ErrUnknownBranchMode = errors.New("unknown branch mode")

	// ErrMalformedProperty is an error that occurs when a property token is
	// not of `key=value` form.
	ErrMalformedProperty = errors.New("malformed property token")
)
