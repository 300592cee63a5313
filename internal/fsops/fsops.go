// Package fsops renames and deletes files on behalf of the UI.
package fsops

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

var (
	// ErrNotFound is returned when the source path does not exist.
	ErrNotFound = errors.New("file not found")
	// ErrAlreadyExists is returned when the rename target is taken.
	ErrAlreadyExists = errors.New("file already exists")
	// ErrPermissionDenied is returned when the OS refuses the operation.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrInvalidName is returned for a new name that is empty or contains a
	// path separator.
	ErrInvalidName = errors.New("invalid file name")
)

// Rename gives the file at original the name newName inside the same
// directory and returns the new path. It never overwrites an existing file.
func Rename(original, newName string) (string, error) {
	if err := validName(newName); err != nil {
		return "", err
	}
	if _, err := os.Lstat(original); err != nil {
		return "", classify("stat "+original, err)
	}
	target := filepath.Join(filepath.Dir(original), newName)
	if _, err := os.Lstat(target); err == nil {
		return "", fmt.Errorf("%w: %s", ErrAlreadyExists, target)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return "", classify("stat "+target, err)
	}
	if err := os.Rename(original, target); err != nil {
		return "", classify("rename", err)
	}
	return target, nil
}

func validName(name string) error {
	switch {
	case strings.TrimSpace(name) == "", name == ".", name == "..":
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	case strings.ContainsAny(name, `/\`):
		return fmt.Errorf("%w: %q contains a path separator", ErrInvalidName, name)
	}
	return nil
}

// Delete removes a file, or a directory with everything in it.
func Delete(path string) error {
	info, err := os.Lstat(path)
	if err != nil {
		return classify("stat "+path, err)
	}
	if info.IsDir() {
		err = os.RemoveAll(path)
	} else {
		err = os.Remove(path)
	}
	if err != nil {
		return classify("delete "+path, err)
	}
	return nil
}

// classify maps OS errors onto the package sentinels, keeping the OS text.
func classify(op string, err error) error {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("%w: %s: %v", ErrNotFound, op, err)
	case errors.Is(err, fs.ErrPermission):
		return fmt.Errorf("%w: %s: %v", ErrPermissionDenied, op, err)
	case errors.Is(err, fs.ErrExist):
		return fmt.Errorf("%w: %s: %v", ErrAlreadyExists, op, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
