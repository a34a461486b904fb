package parallel

import (
	"errors"
	"os"

	"golang.org/x/sys/unix"
)

// presize extends f to size bytes before region workers write into it.
// Blocks are reserved with fallocate where the filesystem supports it,
// so workers do not fail halfway through on a full disk.
func presize(f *os.File, size int64) error {
	err := unix.Fallocate(int(f.Fd()), 0, 0, size)
	if err == nil {
		return nil
	}
	if !errors.Is(err, unix.EOPNOTSUPP) && !errors.Is(err, unix.ENOSYS) && !errors.Is(err, unix.EINVAL) {
		return err
	}
	return f.Truncate(size)
}
