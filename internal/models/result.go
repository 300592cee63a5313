// Package models defines the request, result and event types shared by the
// search orchestrator and the command surfaces.
package models

// Highlight types reported for an annotation.
const (
	HighlightTypeHighlight  = "highlight"
	HighlightTypeAnnotation = "annotation"
)

// Highlight is one annotation found on one page of a PDF.
// HighlightedText is always empty: the covered text span is not recovered.
type Highlight struct {
	Page            uint32    `json:"page"`
	HighlightedText string    `json:"highlighted_text"`
	AnnotationText  *string   `json:"annotation_text"`
	Date            *string   `json:"date"`
	HighlightType   string    `json:"highlight_type"`
	Color           []float32 `json:"color"`
}

// SearchResult is one matched file.
//
// Highlights is nil when extraction was not attempted for this row and a
// non-nil empty slice when it was attempted and found nothing; the two encode
// to null and [] respectively.
type SearchResult struct {
	FileName     string      `json:"file_name"`
	FullPath     string      `json:"full_path"`
	Title        string      `json:"title"`
	Size         *int64      `json:"size"`
	CreatedDate  string      `json:"created_date"`
	ModifiedDate string      `json:"modified_date"`
	Extension    *string     `json:"extension"`
	IsLocked     bool        `json:"is_locked"`
	ID           *string     `json:"id"`
	PDFTitle     *string     `json:"pdf_title"`
	PDFAuthor    *string     `json:"pdf_author"`
	PDFCreator   *string     `json:"pdf_creator"`
	Highlights   []Highlight `json:"highlights"`
}

// OpenResult reports how a file was opened.
type OpenResult struct {
	Success     bool   `json:"success"`
	HandlerUsed string `json:"handler_used"`
}

// DocumentMetadata is the document-level metadata embedded in a file.
type DocumentMetadata struct {
	Title   *string `json:"title"`
	Author  *string `json:"author"`
	Creator *string `json:"creator"`
}
