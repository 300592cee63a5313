// Package highlights reads highlight and comment annotations from PDF files.
package highlights

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/siebentod/AcademyNomad/internal/models"
	"go.uber.org/zap"
)

// ErrExtraction is returned when a file cannot be parsed as a PDF.
var ErrExtraction = errors.New("highlight extraction failed")

// Annotation subtypes that are reported; everything else (links, widgets,
// ink, stamps) is skipped.
var keptSubtypes = map[string]bool{
	"Highlight": true,
	"Text":      true,
	"FreeText":  true,
}

// Extractor walks a PDF's page tree and collects annotations.
type Extractor struct {
	logger *zap.Logger
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithLogger sets a logger for skipped pages.
func WithLogger(l *zap.Logger) Option {
	return func(e *Extractor) { e.logger = l }
}

// New creates an Extractor.
func New(opts ...Option) *Extractor {
	e := &Extractor{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract returns the highlights of the PDF at path in page order. A page
// whose annotation list cannot be resolved is skipped. Any failure to load the
// document, including a parser panic, is reported as ErrExtraction.
func (e *Extractor) Extract(path string) (out []models.Highlight, err error) {
	if !strings.EqualFold(filepath.Ext(path), ".pdf") {
		return nil, fmt.Errorf("%w: %s is not a PDF", ErrExtraction, path)
	}
	defer func() {
		if r := recover(); r != nil {
			out = nil
			err = fmt.Errorf("%w: %s: %v", ErrExtraction, path, r)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrExtraction, path, err)
	}
	defer f.Close()

	out = []models.Highlight{}
	for i := 1; i <= r.NumPage(); i++ {
		found, err := pageHighlights(r, i)
		if err != nil {
			e.logger.Debug("skipping page annotations", zap.String("path", path), zap.Int("page", i), zap.Error(err))
			continue
		}
		out = append(out, found...)
	}
	return out, nil
}

// pageHighlights resolves page i and its annotations. Malformed objects on
// the way are reported as an error for this page only.
func pageHighlights(r *pdf.Reader, i int) (out []models.Highlight, err error) {
	defer func() {
		if p := recover(); p != nil {
			out = nil
			err = fmt.Errorf("resolve page: %v", p)
		}
	}()
	num := uint32(i)
	page := r.Page(i)
	if page.V.IsNull() {
		return nil, fmt.Errorf("page %d not found in page tree", num)
	}

	annots := page.V.Key("Annots")
	switch annots.Kind() {
	case pdf.Null:
		return nil, nil
	case pdf.Array:
	default:
		return nil, fmt.Errorf("annotation list is %v, not an array", annots.Kind())
	}

	for i := 0; i < annots.Len(); i++ {
		a := annots.Index(i)
		if a.Kind() != pdf.Dict || !keptSubtypes[a.Key("Subtype").Name()] {
			continue
		}
		out = append(out, toHighlight(a, num))
	}
	return out, nil
}

func toHighlight(a pdf.Value, page uint32) models.Highlight {
	h := models.Highlight{
		Page:          page,
		HighlightType: models.HighlightTypeHighlight,
		Color:         color(a.Key("C")),
	}
	if text := strings.TrimSpace(decoded(a.Key("Contents"))); text != "" {
		h.AnnotationText = &text
		h.HighlightType = models.HighlightTypeAnnotation
	}
	if date := decoded(a.Key("M")); date != "" {
		h.Date = &date
	}
	return h
}

func decoded(v pdf.Value) string {
	if v.Kind() != pdf.String {
		return ""
	}
	return DecodeString([]byte(v.RawString()))
}

// color returns the components of a C array. An empty array, or one holding
// anything but numbers, yields nil.
func color(v pdf.Value) []float32 {
	if v.Kind() != pdf.Array || v.Len() == 0 {
		return nil
	}
	out := make([]float32, v.Len())
	for i := range out {
		c := v.Index(i)
		switch c.Kind() {
		case pdf.Integer, pdf.Real:
			out[i] = float32(c.Float64())
		default:
			return nil
		}
	}
	return out
}
