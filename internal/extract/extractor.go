// Package extract pulls searchable text out of library files for the index.
package extract

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrUnsupported is returned for extensions with no text extractor.
var ErrUnsupported = errors.New("unsupported format")

// Extractor extracts plain text from document files.
type Extractor struct {
	maxChars int
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithMaxChars truncates extracted text to n runes. Zero keeps everything.
func WithMaxChars(n int) Option {
	return func(e *Extractor) { e.maxChars = n }
}

// NewExtractor returns a new Extractor.
func NewExtractor(opts ...Option) *Extractor {
	e := &Extractor{}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Supports reports whether ext (with or without the leading dot) has an extractor.
func Supports(ext string) bool {
	switch normalize(ext) {
	case ".pdf", ".xlsx", ".docx", ".pptx", ".odt", ".odp", ".ods",
		".txt", ".md", ".rst", ".tex", ".bib":
		return true
	}
	return false
}

// Extract reads the file at path and returns its text content.
func (e *Extractor) Extract(path string) (string, error) {
	ext := filepath.Ext(path)
	if !Supports(ext) {
		return "", fmt.Errorf("%w: %q", ErrUnsupported, ext)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read file: %w", err)
	}
	return e.ExtractBytes(content, ext)
}

// ExtractBytes extracts text from content based on ext.
func (e *Extractor) ExtractBytes(content []byte, ext string) (text string, err error) {
	switch normalize(ext) {
	case ".pdf":
		text, err = extractPDF(content)
	case ".xlsx":
		text, err = extractExcel(content)
	case ".docx":
		text, err = extractDOCX(content)
	case ".pptx":
		text, err = extractPPTX(content)
	case ".odt", ".odp", ".ods":
		text, err = extractODF(content, strings.ToUpper(strings.TrimPrefix(normalize(ext), ".")))
	case ".txt", ".md", ".rst", ".tex", ".bib":
		text, err = extractPlain(content)
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupported, ext)
	}
	if err != nil {
		return "", err
	}
	return e.truncate(text), nil
}

func (e *Extractor) truncate(s string) string {
	if e.maxChars <= 0 {
		return s
	}
	n := 0
	for i := range s {
		if n == e.maxChars {
			return s[:i]
		}
		n++
	}
	return s
}

func normalize(ext string) string {
	ext = strings.ToLower(ext)
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}
