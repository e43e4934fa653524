package config

const (
	// SettingPools is the per-volume configuration key for the member pool
	// tokens of form `pool[/dataset][=branchmode]`.
	SettingPools = "pools"

	// SettingMountpoint is the per-volume configuration key for the merged
	// mountpoint.
	SettingMountpoint = "mountpoint"

	// SettingWarnLowGB is the per-volume configuration key for the low
	// free-space warning threshold in GiB.
	SettingWarnLowGB = "warn_low_gb"

	// SettingWarnDaysWithoutSnapshot is the per-volume configuration key for
	// the maximum tolerated age of the newest snapshot generation in days.
	SettingWarnDaysWithoutSnapshot = "warn_days_without_snapshot"

	// SettingSlop is the per-volume configuration key for the expected
	// reserved-space (slop) shift setting.
	SettingSlop = "zfs_slop"

	// SettingProperties is the per-volume configuration key for the
	// space-separated `key=value` filesystem properties to reconcile.
	SettingProperties = "zfs_properties"

	// SettingPostMountAction is the per-volume configuration key for the
	// best-effort hook run after a successful merged mount.
	SettingPostMountAction = "post_mount_action"

	// SettingPreUnmountAction is the per-volume configuration key for the
	// best-effort hook run before a merged unmount.
	SettingPreUnmountAction = "pre_unmount_action"
)
