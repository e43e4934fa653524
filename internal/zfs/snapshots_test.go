package zfs_test

import (
	"testing"
	"time"

	"github.com/mlohr/poolstack/internal/config"
	"github.com/mlohr/poolstack/internal/zfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func expectSnapshotList(mockRun *mockRunner, dataset string, stdout string) {
	mockRun.On("Run", mock.Anything, "", []string{
		"zfs", "list", "-Hp", "-t", "snapshot", "-o", "name,creation,used", "-r", dataset,
	}).Return(okResult(stdout), nil).Once()
}

func TestSnapshots_ParsesMachineListing(t *testing.T) {
	t.Parallel()

	pool, mockRun, _, _ := newTestPool(t, config.ModeReadWrite, nil)

	expectSnapshotList(mockRun, "tank/data",
		"tank/data@autosnap_2025-08-01_00:00:05_daily\t1754006405\t1024\n"+
			"tank/data/inner@autosnap_2025-08-01_00:00:31_daily\t1754006431\t2048\n")

	snapshots, err := pool.Snapshots(t.Context())
	require.NoError(t, err)
	require.Len(t, snapshots, 2)

	assert.Equal(t, "tank/data", snapshots[0].Dataset)
	assert.Equal(t, "autosnap_2025-08-01_00:00:05_daily", snapshots[0].Name)
	assert.Equal(t, uint64(1024), snapshots[0].Used)
	assert.Equal(t, "tank/data@autosnap_2025-08-01_00:00:05_daily", snapshots[0].FullName())

	mockRun.AssertExpectations(t)
}

// Creation timestamps landing within the same minute collapse onto the same
// truncated key, regardless of their second offsets.
func TestSnapshots_CreationTruncatedToMinute(t *testing.T) {
	t.Parallel()

	pool, mockRun, _, _ := newTestPool(t, config.ModeReadWrite, nil)

	expectSnapshotList(mockRun, "tank/data",
		"tank/data@a\t1754006405\t0\n"+
			"tank/data@b\t1754006431\t0\n")

	snapshots, err := pool.Snapshots(t.Context())
	require.NoError(t, err)
	require.Len(t, snapshots, 2)

	assert.Equal(t, snapshots[0].Creation, snapshots[1].Creation)
	assert.Zero(t, snapshots[0].Creation.Second())
	assert.Equal(t, time.Unix(1754006405, 0).Truncate(time.Minute), snapshots[0].Creation)
}

func TestSnapshots_EmptyListing(t *testing.T) {
	t.Parallel()

	pool, mockRun, _, _ := newTestPool(t, config.ModeReadWrite, nil)

	expectSnapshotList(mockRun, "tank/data", "")

	snapshots, err := pool.Snapshots(t.Context())
	require.NoError(t, err)
	assert.Empty(t, snapshots)
}

func TestSnapshots_MalformedListing(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		stdout string
	}{
		{"missing fields", "tank/data@a\t1754006405\n"},
		{"no snapshot separator", "tank/data\t1754006405\t0\n"},
		{"bad epoch", "tank/data@a\tyesterday\t0\n"},
		{"bad used", "tank/data@a\t1754006405\tlots\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			pool, mockRun, _, _ := newTestPool(t, config.ModeReadWrite, nil)
			expectSnapshotList(mockRun, "tank/data", tt.stdout)

			_, err := pool.Snapshots(t.Context())
			require.ErrorIs(t, err, zfs.ErrMalformedListing)
		})
	}
}

func TestDestroySnapshot(t *testing.T) {
	t.Parallel()

	pool, mockRun, _, _ := newTestPool(t, config.ModeReadWrite, nil)

	mockRun.On("Run", mock.Anything, "", []string{"zfs", "destroy", "tank/data@old"}).
		Return(okResult(""), nil).Once()

	err := pool.DestroySnapshot(t.Context(), zfs.Snapshot{Dataset: "tank/data", Name: "old"})
	require.NoError(t, err)

	mockRun.AssertExpectations(t)
}
