package fileinfo

import (
	"os"
	"syscall"
	"time"
)

// CreatedAt returns the creation time recorded by NTFS.
func CreatedAt(_ string, fi os.FileInfo) time.Time {
	if d, ok := fi.Sys().(*syscall.Win32FileAttributeData); ok {
		return time.Unix(0, d.CreationTime.Nanoseconds())
	}
	return fi.ModTime()
}
