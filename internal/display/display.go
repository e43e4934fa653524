// Package display renders volume, pool, generation and probe information
// for terminal output.
package display

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/mlohr/poolstack/internal/health"
	"github.com/mlohr/poolstack/internal/retention"
	"github.com/mlohr/poolstack/internal/union"
	"github.com/mlohr/poolstack/internal/zfs"
)

//nolint:gochecknoglobals
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#5F5FD7"))

	onlineStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#5FD75F"))

	alertStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#D75F5F"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#767676"))
)

// VolumeHeader renders the title line of one volume.
func VolumeHeader(name string, mountpoint string) string {
	return fmt.Sprintf("%s %s", titleStyle.Render(" "+name+" "), dimStyle.Render(mountpoint))
}

// StatusLine renders the online/degraded verdict with all triggered alerts.
func StatusLine(status union.Status) string {
	switch {
	case status.Online:
		return onlineStyle.Render("ONLINE")
	case !status.Mounted && !status.Degraded():
		return dimStyle.Render("OFFLINE")
	default:
		alerts := make([]string, 0, len(status.Alerts))
		for _, alert := range status.Alerts {
			alerts = append(alerts, string(alert))
		}

		verdict := "DEGRADED"
		if !status.Mounted {
			verdict = "OFFLINE"
		}

		return alertStyle.Render(verdict) + " " + strings.Join(alerts, " ")
	}
}

// CapacityLine renders the aggregate capacity of a volume.
func CapacityLine(capacity union.Capacity) string {
	line := fmt.Sprintf("total %s, used %s, free %s",
		humanize.IBytes(capacity.MemberTotal),
		humanize.IBytes(capacity.Used),
		humanize.IBytes(capacity.Free),
	)

	if capacity.Unavailable > 0 {
		line += fmt.Sprintf(", unavailable %s", humanize.IBytes(capacity.Unavailable))
	}

	return line
}

// PoolLine renders one member pool row.
func PoolLine(name string, mode string, state string, capacity zfs.Capacity) string {
	return fmt.Sprintf("  %-24s %-3s %-12s free %s",
		name, mode, state, humanize.IBytes(capacity.Free+capacity.Unavailable))
}

// LockLine renders one pool's key status row.
func LockLine(name string, keyStatus string, mounted bool) string {
	verdict := alertStyle.Render("LOCKED")
	if keyStatus == zfs.KeyStatusAvailable {
		verdict = onlineStyle.Render("UNLOCKED")
	}

	mountNote := ""
	if mounted {
		mountNote = dimStyle.Render(" (mounted)")
	}

	return fmt.Sprintf("  %-24s %s%s", name, verdict, mountNote)
}

// GenerationLine renders one snapshot generation row.
func GenerationLine(generation retention.Generation) string {
	return fmt.Sprintf("  %s  %2d snapshot(s)  %s",
		generation.Key.Format("2006-01-02 15:04"),
		len(generation.Snapshots),
		humanize.IBytes(generation.Used),
	)
}

// PlanSummary renders the verdict of one deletion selection.
func PlanSummary(plan retention.Plan, resultingFree uint64) []string {
	lines := []string{
		fmt.Sprintf("selected %d generation(s), freeing %s (resulting free space %s)",
			plan.Generations, humanize.IBytes(plan.FreedBytes), humanize.IBytes(resultingFree)),
	}

	for _, snapshot := range plan.Simulated {
		lines = append(lines, dimStyle.Render(
			fmt.Sprintf("  simulated (read-only pool %s): %s", snapshot.Pool, snapshot.FullName())))
	}

	for _, snapshot := range plan.Skipped {
		lines = append(lines, dimStyle.Render(
			fmt.Sprintf("  skipped (manual snapshot): %s", snapshot.FullName())))
	}

	return lines
}

// ProbeLine renders one device diagnostic row.
func ProbeLine(probe health.Probe) string {
	verdict := alertStyle.Render("FAILED")
	if probe.Healthy {
		verdict = onlineStyle.Render("OK")
	}

	return fmt.Sprintf("  %-12s %-28s %s %s",
		probe.Pool, probe.Device, verdict, dimStyle.Render(probe.Detail))
}

// SnapshotAgeWarning renders the stale-snapshot warning for a volume.
func SnapshotAgeWarning(newest time.Time, warnDays int) string {
	return alertStyle.Render("NO-RECENT-SNAPSHOT") +
		fmt.Sprintf(" newest generation from %s exceeds %d day(s)",
			newest.Format("2006-01-02 15:04"), warnDays)
}
