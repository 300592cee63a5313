//go:build unix

package fileinfo

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

func tryExclusive(f *os.File) error {
	fd := int(f.Fd())
	if err := unix.Flock(fd, unix.LOCK_EX|unix.LOCK_NB); err != nil {
		return err
	}
	return unix.Flock(fd, unix.LOCK_UN)
}

func identity(path string) (string, error) {
	var st unix.Stat_t
	if err := unix.Stat(path, &st); err != nil {
		return "", fmt.Errorf("stat %s: %w", path, err)
	}
	return fmt.Sprintf("%x:%x", uint64(st.Dev), uint64(st.Ino)), nil
}
