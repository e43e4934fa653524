package retention

import (
	"time"
)

// Plan is the outcome of one deletion selection. Delete holds the snapshots
// to actually destroy; Simulated holds matching snapshots on read-only pools
// (reported but never executed, and excluded from freed-byte totals);
// Skipped holds manual snapshots inside the range that are never deleted.
type Plan struct {
	Generations int
	Delete      []PoolSnapshot
	Simulated   []PoolSnapshot
	Skipped     []PoolSnapshot
	FreedBytes  uint64
}

// Empty reports whether the plan selects nothing at all.
func (p Plan) Empty() bool {
	return len(p.Delete) == 0 && len(p.Simulated) == 0 && len(p.Skipped) == 0
}

// SelectRange selects deletions over the half-open-below, closed-above time
// interval (after, upTo]: a snapshot qualifies iff after < creation <= upTo.
func (c *Catalog) SelectRange(after time.Time, upTo time.Time) Plan {
	plan := Plan{}

	for _, generation := range c.generations {
		if !generation.Key.After(after) || generation.Key.After(upTo) {
			continue
		}

		plan.Generations++

		for _, snapshot := range generation.Snapshots {
			switch {
			case !IsAutomatic(snapshot.Name):
				plan.Skipped = append(plan.Skipped, snapshot)
			case snapshot.ReadOnly:
				plan.Simulated = append(plan.Simulated, snapshot)
			default:
				plan.Delete = append(plan.Delete, snapshot)
				plan.FreedBytes += snapshot.Used
			}
		}
	}

	return plan
}

// SelectOldest selects exactly the oldest generation.
func (c *Catalog) SelectOldest() Plan {
	oldest, ok := c.Oldest()
	if !ok {
		return Plan{}
	}

	return c.SelectRange(time.Time{}, oldest.Key)
}

// SelectUntilFree widens the deletion cutoff one generation at a time,
// oldest first, until the cumulative freed bytes cover the deficit between
// goalBytes and availableBytes, or all generations are exhausted. Freed
// bytes are monotonically non-decreasing in the generation count, so the
// greedy widening terminates with the smallest sufficient selection.
func (c *Catalog) SelectUntilFree(goalBytes uint64, availableBytes uint64) Plan {
	if availableBytes >= goalBytes {
		return Plan{}
	}
	deficit := goalBytes - availableBytes

	plan := Plan{}

	for count := 1; count <= len(c.generations); count++ {
		plan = c.SelectRange(time.Time{}, c.generations[count-1].Key)

		if plan.FreedBytes >= deficit {
			break
		}
	}

	return plan
}
