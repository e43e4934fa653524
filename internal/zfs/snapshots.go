package zfs

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/mlohr/poolstack/internal/runner"
)

// Snapshots enumerates all snapshots of the pool dataset and its children.
// Creation times are truncated to the minute, the granularity on which
// cross-pool generations are keyed.
func (p *Pool) Snapshots(ctx context.Context) ([]Snapshot, error) {
	argv := []string{
		"zfs", "list", "-Hp",
		"-t", "snapshot",
		"-o", "name,creation,used",
		"-r", p.QualifiedName(),
	}

	res, err := p.runHandler.Run(ctx, "", argv...)
	if err != nil {
		return nil, fmt.Errorf("(zfs-snapshots) %w", err)
	}
	if !res.Success() {
		return nil, fmt.Errorf("(zfs-snapshots) %w", runner.NewCommandError(argv, res))
	}

	return parseSnapshotList(res.Stdout)
}

// parseSnapshotList parses the tab-separated machine output of the snapshot
// listing: `dataset@name <creation-epoch> <used-bytes>` per line.
func parseSnapshotList(output string) ([]Snapshot, error) {
	snapshots := []Snapshot{}

	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		fields := strings.Split(line, "\t")
		if len(fields) != 3 {
			return nil, fmt.Errorf("(zfs-snapshots) line %q: %w", line, ErrMalformedListing)
		}

		dataset, name, found := strings.Cut(fields[0], "@")
		if !found || dataset == "" || name == "" {
			return nil, fmt.Errorf("(zfs-snapshots) line %q: %w", line, ErrMalformedListing)
		}

		creation, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("(zfs-snapshots) line %q: %w", line, ErrMalformedListing)
		}

		used, err := strconv.ParseUint(fields[2], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("(zfs-snapshots) line %q: %w", line, ErrMalformedListing)
		}

		snapshots = append(snapshots, Snapshot{
			Dataset:  dataset,
			Name:     name,
			Creation: time.Unix(creation, 0).Truncate(time.Minute),
			Used:     used,
		})
	}

	return snapshots, nil
}

// DestroySnapshot removes one snapshot from the pool dataset.
func (p *Pool) DestroySnapshot(ctx context.Context, snapshot Snapshot) error {
	argv := []string{"zfs", "destroy", snapshot.FullName()}

	res, err := p.runHandler.Run(ctx, "", argv...)
	if err != nil {
		return fmt.Errorf("(zfs-destroy) %w", err)
	}
	if !res.Success() {
		return fmt.Errorf("(zfs-destroy) %w", runner.NewCommandError(argv, res))
	}

	return nil
}
