//go:build unix

package fileinfo

import (
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/sys/unix"
)

func TestIsLocked_heldByAnotherDescriptor(t *testing.T) {
	path := filepath.Join(t.TempDir(), "held.pdf")
	if err := os.WriteFile(path, []byte("data"), 0o644); err != nil {
		t.Fatal(err)
	}
	holder, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer holder.Close()
	if err := unix.Flock(int(holder.Fd()), unix.LOCK_EX); err != nil {
		t.Fatalf("flock: %v", err)
	}

	p := NewProbe()
	if !p.IsLocked(path) {
		t.Error("file held with an exclusive lock should be reported as locked")
	}

	if err := unix.Flock(int(holder.Fd()), unix.LOCK_UN); err != nil {
		t.Fatal(err)
	}
	if p.IsLocked(path) {
		t.Error("file should be free after the holder unlocks")
	}
}

func TestIsLocked_readOnlyFile(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root can open read-only files for writing")
	}
	path := filepath.Join(t.TempDir(), "ro.pdf")
	if err := os.WriteFile(path, []byte("data"), 0o444); err != nil {
		t.Fatal(err)
	}
	if !NewProbe().IsLocked(path) {
		t.Error("file that cannot be opened for writing should be reported as locked")
	}
}
