//go:build darwin

package health

import "syscall"

// diskFreeBytes returns bytes available (to unprivileged users) on the
// volume containing path.
func diskFreeBytes(path string) (uint64, error) {
	var stat syscall.Statfs_t
	if err := syscall.Statfs(path, &stat); err != nil {
		return 0, err
	}

	return stat.Bavail * uint64(stat.Bsize), nil
}
