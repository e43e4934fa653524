package union

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

// Alert is one independently reportable degradation condition.
type Alert string

const (
	// AlertPoolNotMounted signals that at least one member pool is not
	// mounted.
	AlertPoolNotMounted Alert = "POOL-NOT-MOUNTED"

	// AlertIncompleteMount signals that the union's live backing-branch set
	// differs from the expected branch set.
	AlertIncompleteMount Alert = "INCOMPLETE-MOUNT"

	// AlertCapacityShortfall signals that the union reports less total
	// capacity than the sum of its member capacities.
	AlertCapacityShortfall Alert = "CAPACITY-SHORTFALL"

	// AlertSlopMismatch signals that the live reserved-space setting differs
	// from the configured one.
	AlertSlopMismatch Alert = "SLOP-MISMATCH"

	// AlertLowFreeSpace signals that the aggregate available free space is
	// below the configured warning threshold.
	AlertLowFreeSpace Alert = "LOW-FREE-SPACE"
)

// Capacity aggregates the live capacities of a volume. Free space of
// read-only members is tracked separately as unavailable and never counts
// toward placements.
type Capacity struct {
	UnionTotal  uint64
	MemberTotal uint64
	Used        uint64
	Free        uint64
	Unavailable uint64
}

// Status is one fresh diagnostic evaluation of a volume. A volume is online
// iff it is mounted and no alert holds.
type Status struct {
	Mounted  bool
	Online   bool
	Alerts   []Alert
	Capacity Capacity
}

// Degraded reports whether the status carries any alert.
func (s Status) Degraded() bool {
	return len(s.Alerts) > 0
}

// Status evaluates the volume's degradation conditions live. Each condition
// yields its own alert; none masks another.
func (v *Volume) Status(ctx context.Context) (Status, error) {
	status := Status{}

	allPoolsMounted := true

	for _, pool := range v.pools {
		mounted, err := pool.MountedLive(ctx)
		if err != nil {
			return Status{}, fmt.Errorf("(union-status) %w", err)
		}

		if !mounted {
			allPoolsMounted = false

			continue
		}

		capacity, err := pool.Capacity(ctx)
		if err != nil {
			return Status{}, fmt.Errorf("(union-status) %w", err)
		}

		status.Capacity.MemberTotal += capacity.Total
		status.Capacity.Used += capacity.Used
		status.Capacity.Free += capacity.Free
		status.Capacity.Unavailable += capacity.Unavailable
	}

	if !allPoolsMounted {
		status.Alerts = append(status.Alerts, AlertPoolNotMounted)
	}

	liveBranches, err := v.branchesLive()
	status.Mounted = err == nil

	if status.Mounted {
		expected, err := v.expectedBranches(ctx)
		if err != nil {
			return Status{}, err
		}

		if !sameBranchSet(liveBranches, expected) {
			status.Alerts = append(status.Alerts, AlertIncompleteMount)
		}

		var stat unix.Statfs_t
		if err := v.unixHandler.Statfs(v.conf.Mountpoint, &stat); err != nil {
			return Status{}, fmt.Errorf("(union-status) failed to statfs %q: %w", v.conf.Mountpoint, err)
		}
		status.Capacity.UnionTotal = stat.Blocks * uint64(stat.Bsize) //nolint:gosec

		if status.Capacity.UnionTotal < status.Capacity.MemberTotal {
			status.Alerts = append(status.Alerts, AlertCapacityShortfall)
		}
	}

	if v.conf.WarnLowGB > 0 && status.Capacity.Free < v.conf.WarnLowGB*GiB {
		status.Alerts = append(status.Alerts, AlertLowFreeSpace)
	}

	if v.conf.SlopShift >= 0 {
		liveSlop, err := v.liveSlopShift()
		if err != nil {
			return Status{}, err
		}

		if liveSlop != v.conf.SlopShift {
			status.Alerts = append(status.Alerts, AlertSlopMismatch)
		}
	}

	status.Online = status.Mounted && !status.Degraded()

	return status, nil
}

// GiB is the byte size of one gibibyte.
const GiB = uint64(1) << 30

// liveSlopShift reads the running reserved-space shift off the kernel
// parameter file.
func (v *Volume) liveSlopShift() (int, error) {
	raw, err := v.osHandler.ReadFile(SlopParameterFile)
	if err != nil {
		return 0, fmt.Errorf("(union-status) failed to read slop parameter: %w", err)
	}

	value, err := strconv.Atoi(strings.TrimSpace(string(raw)))
	if err != nil {
		return 0, fmt.Errorf("(union-status) malformed slop parameter %q: %w", strings.TrimSpace(string(raw)), err)
	}

	return value, nil
}

// sameBranchSet compares two branch lists as sets; the union layer does not
// guarantee a reporting order.
func sameBranchSet(live []string, expected []string) bool {
	liveSorted := slices.Clone(live)
	expectedSorted := slices.Clone(expected)
	slices.Sort(liveSorted)
	slices.Sort(expectedSorted)

	return slices.Equal(liveSorted, expectedSorted)
}
