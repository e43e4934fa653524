package config

import "fmt"

// BranchMode is the per-pool policy controlling whether new files may be
// placed on that pool's branch of the merged volume.
type BranchMode int

const (
	// ModeReadWrite allows both reads and new file placement.
	ModeReadWrite BranchMode = iota

	// ModeReadOnly forbids all writes; the branch's free capacity is
	// excluded from aggregate free space.
	ModeReadOnly

	// ModeNoCreate allows writes to existing files but no new placement.
	ModeNoCreate
)

// ParseBranchMode parses a branch mode token from a pool declaration.
func ParseBranchMode(token string) (BranchMode, error) {
	switch token {
	case "rw":
		return ModeReadWrite, nil
	case "ro":
		return ModeReadOnly, nil
	case "nc":
		return ModeNoCreate, nil
	default:
		return ModeReadWrite, fmt.Errorf("%w: %q", ErrUnknownBranchMode, token)
	}
}

// String returns the mergerfs branch mode token.
func (m BranchMode) String() string {
	switch m {
	case ModeReadOnly:
		return "RO"
	case ModeNoCreate:
		return "NC"
	case ModeReadWrite:
		fallthrough
	default:
		return "RW"
	}
}
