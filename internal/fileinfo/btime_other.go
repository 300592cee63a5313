//go:build !linux && !darwin && !windows

package fileinfo

import (
	"os"
	"time"
)

// CreatedAt falls back to the modification time where no birth time is exposed.
func CreatedAt(_ string, fi os.FileInfo) time.Time {
	return fi.ModTime()
}
