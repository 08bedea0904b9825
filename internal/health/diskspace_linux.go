//go:build linux

package health

import "golang.org/x/sys/unix"

// diskFreeBytes returns bytes available (to unprivileged users) on the
// volume containing path. Uses unix.Statfs rather than syscall.Statfs
// because the syscall package's field types vary across architectures.
func diskFreeBytes(path string) (uint64, error) {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return 0, err
	}

	return uint64(stat.Bavail) * uint64(stat.Bsize), nil //nolint:gosec // kernel guarantees non-negative values
}
