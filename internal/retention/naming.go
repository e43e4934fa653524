package retention

import "regexp"

// Only snapshots following a recognized automatic naming convention are ever
// eligible for deletion; anything else is considered a manual snapshot and
// reported as skipped. Recognized are the zfs-auto-snapshot and
// sanoid/syncoid conventions.
//
//nolint:gochecknoglobals
var autoSnapshotPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^zfs-auto-snap_[[:alnum:]]+-\d{4}-\d{2}-\d{2}-\d{4}$`),
	regexp.MustCompile(`^autosnap_\d{4}-\d{2}-\d{2}_\d{2}:\d{2}:\d{2}_[[:alnum:]]+$`),
}

// IsAutomatic reports whether a snapshot name matches one of the recognized
// automatic-snapshot naming conventions.
func IsAutomatic(name string) bool {
	for _, pattern := range autoSnapshotPatterns {
		if pattern.MatchString(name) {
			return true
		}
	}

	return false
}
