package fileinfo

import (
	"os"
	"time"

	"golang.org/x/sys/unix"
)

// CreatedAt returns the birth time of the file.
func CreatedAt(path string, fi os.FileInfo) time.Time {
	var st unix.Stat_t
	if err := unix.Stat(path, &st); err != nil {
		return fi.ModTime()
	}
	return time.Unix(st.Btim.Unix())
}
