// Package cli formats AcademyNomad results for the terminal.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/siebentod/AcademyNomad/internal/models"
	"github.com/siebentod/AcademyNomad/pkg/utils"
)

// SearchOutputFormat is the format for search result output.
type SearchOutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText SearchOutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON SearchOutputFormat = "json"
	// OutputCompact prints one full path per line.
	OutputCompact SearchOutputFormat = "compact"
)

// ParseFormat validates a format name. An empty name selects OutputText.
func ParseFormat(s string) (SearchOutputFormat, error) {
	switch f := SearchOutputFormat(strings.ToLower(s)); f {
	case "":
		return OutputText, nil
	case OutputText, OutputJSON, OutputCompact:
		return f, nil
	}
	return "", fmt.Errorf("unknown output format %q (want text, json or compact)", s)
}

// WriteSearchResults writes search results to w in the given format.
// Use OutputJSON for parseable output consumable by other apps.
func WriteSearchResults(w io.Writer, results []models.SearchResult, format SearchOutputFormat) error {
	switch format {
	case OutputJSON:
		if results == nil {
			results = []models.SearchResult{}
		}
		return writeJSON(w, results)
	case OutputCompact:
		for _, r := range results {
			if _, err := fmt.Fprintln(w, r.FullPath); err != nil {
				return err
			}
		}
		return nil
	default:
		writeSearchResultsText(w, results)
		return nil
	}
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeSearchResultsText(w io.Writer, results []models.SearchResult) {
	fmt.Fprintf(w, "\nFound %d files\n\n", len(results))
	for i := range results {
		writeOneResult(w, &results[i])
	}
}

func writeOneResult(w io.Writer, r *models.SearchResult) {
	fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
	title := r.Title
	if r.PDFTitle != nil {
		title = *r.PDFTitle
	}
	fmt.Fprintf(w, "%s\n", utils.Truncate(title, 100))
	fmt.Fprintf(w, "Path: %s\n", r.FullPath)
	var facts []string
	if r.Size != nil {
		facts = append(facts, utils.HumanSize(*r.Size))
	}
	if r.ModifiedDate != "" {
		facts = append(facts, "modified "+r.ModifiedDate)
	}
	if r.IsLocked {
		facts = append(facts, "locked")
	}
	if len(facts) > 0 {
		fmt.Fprintf(w, "%s\n", strings.Join(facts, " | "))
	}
	if r.PDFAuthor != nil {
		fmt.Fprintf(w, "Author: %s\n", *r.PDFAuthor)
	}
	if r.ID != nil {
		fmt.Fprintf(w, "ID: %s\n", *r.ID)
	}
	if len(r.Highlights) > 0 {
		fmt.Fprintf(w, "Highlights: %d\n", len(r.Highlights))
		writeHighlightLines(w, r.Highlights, 3)
	}
	fmt.Fprintln(w)
}

// WriteHighlights writes the annotations of one file to w.
func WriteHighlights(w io.Writer, hs []models.Highlight, format SearchOutputFormat) error {
	if format == OutputJSON {
		if hs == nil {
			hs = []models.Highlight{}
		}
		return writeJSON(w, hs)
	}
	if len(hs) == 0 {
		_, err := fmt.Fprintln(w, "No highlights")
		return err
	}
	writeHighlightLines(w, hs, 0)
	return nil
}

// writeHighlightLines prints up to max highlights (all when max is 0).
func writeHighlightLines(w io.Writer, hs []models.Highlight, max int) {
	for i, h := range hs {
		if max > 0 && i == max {
			fmt.Fprintf(w, "  ... %d more\n", len(hs)-max)
			return
		}
		line := fmt.Sprintf("  p.%d [%s]", h.Page, h.HighlightType)
		if h.AnnotationText != nil {
			line += " " + TruncateWords(*h.AnnotationText, 20)
		}
		if h.Date != nil {
			line += " (" + *h.Date + ")"
		}
		fmt.Fprintln(w, line)
	}
}

// TruncateWords returns up to maxWords from the space-separated string.
func TruncateWords(s string, maxWords int) string {
	words := strings.Fields(s)
	if len(words) <= maxWords {
		return s
	}
	return strings.Join(words[:maxWords], " ") + "..."
}
