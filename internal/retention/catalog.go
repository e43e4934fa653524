// Package retention buckets the snapshots of all member pools into
// cross-pool generations and selects snapshot deletions under free-space
// pressure. It is pure selection logic; executing the selected deletions is
// the caller's concern.
package retention

import (
	"slices"
	"time"

	"github.com/mlohr/poolstack/internal/zfs"
)

// PoolSnapshot is one enumerated snapshot together with the pool it came
// from. Read-only pools can never actually be pruned; their deletions are
// simulated.
type PoolSnapshot struct {
	Pool     string
	ReadOnly bool
	zfs.Snapshot
}

// Generation is the set of snapshots across all pools sharing one truncated
// creation time. Two snapshots belong to the same generation iff their
// truncated creation timestamps are equal, independent of the pool that
// produced them.
type Generation struct {
	Key       time.Time
	Snapshots []PoolSnapshot
	Used      uint64
}

// Catalog holds the generations of one invocation, sorted ascending by key.
type Catalog struct {
	generations []Generation
}

// BuildCatalog buckets the given snapshots into generations. Grouping uses
// an explicit map keyed by the normalized creation time; output order is
// always sorted by key and within a generation by pool then name, never by
// insertion order.
func BuildCatalog(snapshots []PoolSnapshot) *Catalog {
	buckets := map[int64]*Generation{}

	for _, snapshot := range snapshots {
		key := snapshot.Creation.Truncate(time.Minute)

		bucket, exists := buckets[key.Unix()]
		if !exists {
			bucket = &Generation{Key: key}
			buckets[key.Unix()] = bucket
		}

		bucket.Snapshots = append(bucket.Snapshots, snapshot)
		bucket.Used += snapshot.Used
	}

	generations := make([]Generation, 0, len(buckets))
	for _, bucket := range buckets {
		slices.SortStableFunc(bucket.Snapshots, func(a, b PoolSnapshot) int {
			if c := compareStrings(a.Pool, b.Pool); c != 0 {
				return c
			}

			return compareStrings(a.Name, b.Name)
		})
		generations = append(generations, *bucket)
	}

	slices.SortFunc(generations, func(a, b Generation) int {
		return a.Key.Compare(b.Key)
	})

	return &Catalog{generations: generations}
}

// Generations returns all generations, ascending by creation time.
func (c *Catalog) Generations() []Generation {
	return c.generations
}

// Len returns the number of generations.
func (c *Catalog) Len() int {
	return len(c.generations)
}

// Oldest returns the earliest generation, if any.
func (c *Catalog) Oldest() (Generation, bool) {
	if len(c.generations) == 0 {
		return Generation{}, false
	}

	return c.generations[0], true
}

// Newest returns the latest generation, if any.
func (c *Catalog) Newest() (Generation, bool) {
	if len(c.generations) == 0 {
		return Generation{}, false
	}

	return c.generations[len(c.generations)-1], true
}

func compareStrings(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
