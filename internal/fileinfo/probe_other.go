//go:build !unix && !windows

package fileinfo

import (
	"errors"
	"os"
)

var errUnsupported = errors.New("file locking is not supported on this platform")

func tryExclusive(*os.File) error { return errUnsupported }

func identity(string) (string, error) { return "", errUnsupported }
