// Package fileid derives index document ids from file paths.
package fileid

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
)

const prefix = "file:"

// DocID returns the index id for path. Equivalent paths (trailing slash,
// "." segments) map to the same id, so a re-crawl or a watcher event
// overwrites the existing document instead of adding a second one.
func DocID(path string) string {
	sum := sha256.Sum256([]byte(filepath.Clean(path)))
	return prefix + hex.EncodeToString(sum[:])
}

// IsDocID reports whether id has the shape DocID produces.
func IsDocID(id string) bool {
	if len(id) != len(prefix)+2*sha256.Size || id[:len(prefix)] != prefix {
		return false
	}
	_, err := hex.DecodeString(id[len(prefix):])
	return err == nil
}
