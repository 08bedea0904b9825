//go:build !linux && !darwin

package health

import "errors"

// diskFreeBytes has no implementation on this platform.
func diskFreeBytes(path string) (uint64, error) {
	return 0, errors.New("health: disk space reporting not supported on this platform")
}
