package retention_test

import (
	"testing"
	"time"

	"github.com/mlohr/poolstack/internal/retention"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const autoName = "autosnap_2026-08-01_12:00:00_daily"

const gib = uint64(1) << 30

func TestSelectRange_Boundaries(t *testing.T) {
	t.Parallel()

	catalog := retention.BuildCatalog([]retention.PoolSnapshot{
		snap("tank", autoName, baseTime, 1),
		snap("tank", autoName, baseTime.Add(time.Hour), 2),
		snap("tank", autoName, baseTime.Add(2*time.Hour), 4),
	})

	// The lower bound is exclusive, the upper bound inclusive.
	plan := catalog.SelectRange(baseTime, baseTime.Add(2*time.Hour))

	assert.Equal(t, 2, plan.Generations)
	require.Len(t, plan.Delete, 2)
	assert.Equal(t, uint64(6), plan.FreedBytes)
}

func TestSelectRange_ManualSnapshotsSkipped(t *testing.T) {
	t.Parallel()

	catalog := retention.BuildCatalog([]retention.PoolSnapshot{
		snap("tank", autoName, baseTime, 100),
		snap("tank", "before-upgrade", baseTime, 50),
	})

	plan := catalog.SelectRange(time.Time{}, baseTime)

	require.Len(t, plan.Delete, 1)
	require.Len(t, plan.Skipped, 1)
	assert.Equal(t, "before-upgrade", plan.Skipped[0].Name)
	assert.Equal(t, uint64(100), plan.FreedBytes)
}

func TestSelectRange_ReadOnlySimulated(t *testing.T) {
	t.Parallel()

	catalog := retention.BuildCatalog([]retention.PoolSnapshot{
		snap("tank", autoName, baseTime, 100),
		roSnap("cold", autoName, baseTime, 70),
	})

	plan := catalog.SelectRange(time.Time{}, baseTime)

	require.Len(t, plan.Delete, 1)
	require.Len(t, plan.Simulated, 1)
	assert.Equal(t, "cold", plan.Simulated[0].Pool)

	// Simulated deletions never count toward the freed total.
	assert.Equal(t, uint64(100), plan.FreedBytes)
}

func TestSelectOldest(t *testing.T) {
	t.Parallel()

	catalog := retention.BuildCatalog([]retention.PoolSnapshot{
		snap("tank", autoName, baseTime, 1),
		snap("fast", autoName, baseTime, 2),
		snap("tank", autoName, baseTime.Add(time.Hour), 4),
	})

	plan := catalog.SelectOldest()

	assert.Equal(t, 1, plan.Generations)
	require.Len(t, plan.Delete, 2)
	assert.Equal(t, uint64(3), plan.FreedBytes)
}

func TestSelectOldest_EmptyCatalog(t *testing.T) {
	t.Parallel()

	plan := retention.BuildCatalog(nil).SelectOldest()
	assert.True(t, plan.Empty())
}

func TestSelectUntilFree_GoalAlreadyMet(t *testing.T) {
	t.Parallel()

	catalog := retention.BuildCatalog([]retention.PoolSnapshot{
		snap("tank", autoName, baseTime, gib),
	})

	plan := catalog.SelectUntilFree(10*gib, 12*gib)
	assert.True(t, plan.Empty())
}

// Freeing 4 GiB when each generation holds 3 GiB must widen the selection to
// two generations, never stop at one.
func TestSelectUntilFree_WidensOldestFirst(t *testing.T) {
	t.Parallel()

	catalog := retention.BuildCatalog([]retention.PoolSnapshot{
		snap("tank", autoName, baseTime, 3*gib),
		snap("tank", autoName, baseTime.Add(time.Hour), 3*gib),
		snap("tank", autoName, baseTime.Add(2*time.Hour), 3*gib),
	})

	plan := catalog.SelectUntilFree(10*gib, 6*gib)

	assert.Equal(t, 2, plan.Generations)
	require.Len(t, plan.Delete, 2)
	assert.Equal(t, 6*gib, plan.FreedBytes)

	// The newest generation stays untouched.
	for _, s := range plan.Delete {
		assert.True(t, s.Creation.Before(baseTime.Add(2*time.Hour)))
	}
}

func TestSelectUntilFree_ExhaustsCatalog(t *testing.T) {
	t.Parallel()

	catalog := retention.BuildCatalog([]retention.PoolSnapshot{
		snap("tank", autoName, baseTime, gib),
		snap("tank", autoName, baseTime.Add(time.Hour), gib),
	})

	// The deficit cannot be covered; everything deletable is selected.
	plan := catalog.SelectUntilFree(100*gib, 0)

	assert.Equal(t, 2, plan.Generations)
	assert.Equal(t, 2*gib, plan.FreedBytes)
}

// Widening the goal can only grow the selection, never shrink it.
func TestSelectUntilFree_MonotoneInGoal(t *testing.T) {
	t.Parallel()

	catalog := retention.BuildCatalog([]retention.PoolSnapshot{
		snap("tank", autoName, baseTime, gib),
		snap("tank", autoName, baseTime.Add(time.Hour), gib),
		snap("tank", autoName, baseTime.Add(2*time.Hour), gib),
	})

	previous := 0
	for goal := gib; goal <= 5*gib; goal += gib {
		plan := catalog.SelectUntilFree(goal, 0)
		assert.GreaterOrEqual(t, len(plan.Delete), previous)
		previous = len(plan.Delete)
	}
}
