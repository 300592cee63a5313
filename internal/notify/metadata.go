package notify

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/siebentod/AcademyNomad/internal/models"
)

// ParseFileMetadata reads display metadata from a file name of the form
// "<a> <b> <c> <title>". The stem is split on the first three spaces; the
// rest, spaces included, is the title. It returns nil unless path is a
// regular file whose stem has all four parts.
func ParseFileMetadata(path string) *models.FileMetadata {
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return nil
	}
	name := filepath.Base(path)
	stem := strings.TrimSuffix(name, filepath.Ext(name))
	if stem == "" {
		stem = name
	}
	parts := strings.SplitN(stem, " ", 4)
	if len(parts) != 4 {
		return nil
	}
	return &models.FileMetadata{
		FileName: name,
		FullPath: path,
		Tokens:   [3]string{parts[0], parts[1], parts[2]},
		Title:    parts[3],
	}
}
