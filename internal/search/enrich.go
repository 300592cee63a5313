package search

import (
	"path/filepath"
	"strings"

	"github.com/siebentod/AcademyNomad/internal/models"
	"go.uber.org/zap"
)

// enrich fills lock status and identity, plus document metadata for PDFs in
// Full mode. Failures leave fields absent.
func (o *Orchestrator) enrich(r *models.SearchResult, level Level) {
	r.IsLocked = o.probe.IsLocked(r.FullPath)
	if id, ok := o.probe.Identity(r.FullPath); ok {
		r.ID = &id
	}
	if level != Full || !isPDF(r) {
		return
	}
	core, err := o.meta.ReadCore(r.FullPath)
	if err != nil {
		o.logger.Debug("document metadata unavailable", zap.String("path", r.FullPath), zap.Error(err))
		return
	}
	r.PDFTitle = core.Title
	r.PDFAuthor = core.Author
	r.PDFCreator = core.CreatorTool
}

// extractHighlights always returns a non-nil slice: an attempt that fails or
// finds nothing is reported as empty.
func (o *Orchestrator) extractHighlights(path string, budget *highlightBudget) []models.Highlight {
	hs, err := o.highlights.Extract(path)
	switch {
	case err != nil:
		o.logger.Debug("highlights unavailable", zap.String("path", path), zap.Error(err))
		o.metrics.ObserveHighlight("error")
		hs = []models.Highlight{}
	case len(hs) == 0:
		o.metrics.ObserveHighlight("empty")
		hs = []models.Highlight{}
	default:
		o.metrics.ObserveHighlight("found")
	}
	if budget.record(len(hs) > 0) {
		o.metrics.ObserveHighlightCutoff()
		o.logger.Debug("highlight budget exhausted",
			zap.Int("attempted", budget.attempts), zap.Int("with_highlights", budget.found))
	}
	return hs
}

func isPDF(r *models.SearchResult) bool {
	ext := filepath.Ext(r.FullPath)
	if r.Extension != nil && *r.Extension != "" {
		ext = *r.Extension
	}
	return strings.EqualFold(strings.TrimPrefix(ext, "."), "pdf")
}

// highlightBudget stops highlight extraction for the rest of a search once
// either enough files were attempted or enough files had highlights. Rows
// are visited in engine order, so the most recently modified files are
// favored.
type highlightBudget struct {
	maxAttempts int
	maxFound    int
	attempts    int
	found       int
	exhausted   bool
}

func newHighlightBudget(maxAttempts, maxFound int) *highlightBudget {
	return &highlightBudget{maxAttempts: maxAttempts, maxFound: maxFound}
}

// open reports whether another extraction may run. A nil budget is closed.
func (b *highlightBudget) open() bool {
	return b != nil && !b.exhausted
}

// record counts one attempt and reports whether this attempt used up the budget.
func (b *highlightBudget) record(found bool) bool {
	b.attempts++
	if found {
		b.found++
	}
	if b.attempts >= b.maxAttempts || b.found >= b.maxFound {
		b.exhausted = true
		return true
	}
	return false
}
