package schema

import (
	"golang.org/x/sys/unix"
)

// Unix is an implementation wrapping Unix operating system functions.
type Unix struct{}

// Statfs wraps around [unix.Statfs].
func (*Unix) Statfs(path string, buf *unix.Statfs_t) error {
	return unix.Statfs(path, buf)
}

// FreeSpace returns the bytes available to unprivileged users on the
// filesystem containing path.
func (u *Unix) FreeSpace(path string) (uint64, error) {
	var stat unix.Statfs_t

	if err := u.Statfs(path, &stat); err != nil {
		return 0, err
	}

	return stat.Bavail * uint64(stat.Bsize), nil //nolint:gosec
}
