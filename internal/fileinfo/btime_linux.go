package fileinfo

import (
	"os"
	"time"

	"golang.org/x/sys/unix"
)

// CreatedAt returns the birth time of the file, or its modification time when
// the filesystem does not record one.
func CreatedAt(path string, fi os.FileInfo) time.Time {
	var stx unix.Statx_t
	if err := unix.Statx(unix.AT_FDCWD, path, 0, unix.STATX_BTIME, &stx); err == nil && stx.Mask&unix.STATX_BTIME != 0 {
		return time.Unix(stx.Btime.Sec, int64(stx.Btime.Nsec))
	}
	return fi.ModTime()
}
