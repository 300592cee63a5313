// Package pdfgen writes small, structurally valid PDF files. It exists for
// tests and fixtures: callers supply object bodies and get back a file with a
// correct cross-reference table and trailer.
package pdfgen

import (
	"bytes"
	"fmt"
	"os"
	"strings"
)

// Doc is a PDF under construction. Objects are numbered from 1 in the order
// they are added; object 1 must be the document catalog.
type Doc struct {
	objects []string
	// Info is the object number of the document information dictionary, or 0.
	Info int
}

// Add appends an object body and returns its object number.
func (d *Doc) Add(body string) int {
	d.objects = append(d.objects, body)
	return len(d.objects)
}

// Set replaces the body of object n.
func (d *Doc) Set(n int, body string) {
	d.objects[n-1] = body
}

// Stream formats a stream object with the given dictionary entries and data.
func Stream(dict string, data []byte) string {
	return fmt.Sprintf("<< %s /Length %d >>\nstream\n%s\nendstream", dict, len(data), data)
}

// Bytes renders the document.
func (d *Doc) Bytes() []byte {
	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n%\xe2\xe3\xcf\xd3\n")
	offsets := make([]int, len(d.objects))
	for i, body := range d.objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, body)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(d.objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	info := ""
	if d.Info > 0 {
		info = fmt.Sprintf(" /Info %d 0 R", d.Info)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R%s >>\nstartxref\n%d\n%%%%EOF\n", len(d.objects)+1, info, xref)
	return buf.Bytes()
}

// WriteFile renders the document to path.
func (d *Doc) WriteFile(path string) error {
	return os.WriteFile(path, d.Bytes(), 0o644)
}

// Annotation describes one page annotation for Pages.
type Annotation struct {
	Subtype  string
	Contents string // literal string body; empty omits the entry
	Date     string
	Color    string // array body such as "1 0.5 0"; empty omits the entry
	Indirect bool   // store as its own object and reference it
}

// Pages builds a catalog, a page tree and one page per entry of pages, each
// carrying the given annotations. When indirectAnnots is set the Annots
// arrays are stored as separate objects.
func Pages(pages [][]Annotation, indirectAnnots bool) *Doc {
	d := &Doc{}
	d.Add("<< /Type /Catalog /Pages 2 0 R >>")
	d.Add("")
	kids := make([]string, 0, len(pages))
	for _, annots := range pages {
		refs := make([]string, 0, len(annots))
		for _, a := range annots {
			body := a.dict()
			if a.Indirect {
				refs = append(refs, fmt.Sprintf("%d 0 R", d.Add(body)))
				continue
			}
			refs = append(refs, body)
		}
		array := "[" + strings.Join(refs, " ") + "]"
		page := "<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792]"
		if len(annots) > 0 {
			if indirectAnnots {
				page += fmt.Sprintf(" /Annots %d 0 R", d.Add(array))
			} else {
				page += " /Annots " + array
			}
		}
		page += " >>"
		kids = append(kids, fmt.Sprintf("%d 0 R", d.Add(page)))
	}
	d.Set(2, fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(kids)))
	return d
}

func (a Annotation) dict() string {
	var b strings.Builder
	fmt.Fprintf(&b, "<< /Type /Annot /Subtype /%s /Rect [10 10 100 40]", a.Subtype)
	if a.Contents != "" {
		fmt.Fprintf(&b, " /Contents %s", a.Contents)
	}
	if a.Date != "" {
		fmt.Fprintf(&b, " /M (%s)", a.Date)
	}
	if a.Color != "" {
		fmt.Fprintf(&b, " /C [%s]", a.Color)
	}
	b.WriteString(" >>")
	return b.String()
}

// Text builds a document with one page per entry, each showing the entry as
// a single line in Helvetica. Entries must not contain unbalanced parentheses
// or backslashes.
func Text(pages []string) *Doc {
	d := &Doc{}
	d.Add("<< /Type /Catalog /Pages 2 0 R >>")
	d.Add("")
	font := d.Add("<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>")
	kids := make([]string, 0, len(pages))
	for _, text := range pages {
		content := d.Add(Stream("", []byte(fmt.Sprintf("BT /F1 12 Tf 72 720 Td (%s) Tj ET", text))))
		page := fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 %d 0 R >> >> /Contents %d 0 R >>", font, content)
		kids = append(kids, fmt.Sprintf("%d 0 R", d.Add(page)))
	}
	d.Set(2, fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(kids)))
	return d
}
