package extract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path"
	"sort"
	"strconv"
	"strings"
)

const (
	contentTypesPart = "[Content_Types].xml"
	wordDocumentPart = "word/document.xml"
	odfContentPart   = "content.xml"
	slidePrefix      = "ppt/slides/slide"

	wordMainType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"
	odfTextNS    = "urn:oasis:names:tc:opendocument:xmlns:text:1.0"
)

// contentTypes is the part of [Content_Types].xml that names the main document.
type contentTypes struct {
	Overrides []struct {
		PartName    string `xml:"PartName,attr"`
		ContentType string `xml:"ContentType,attr"`
	} `xml:"Override"`
}

func openPackage(content []byte, format string) (*zip.Reader, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("extract %s: not a zip: %w", format, err)
	}
	return zr, nil
}

func readPart(zr *zip.Reader, name string) ([]byte, error) {
	f, err := zr.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

// extractDOCX reads the main document part of a Word package. The part is
// located through [Content_Types].xml and defaults to word/document.xml.
func extractDOCX(content []byte) (string, error) {
	zr, err := openPackage(content, "DOCX")
	if err != nil {
		return "", err
	}
	part := wordDocumentPart
	if data, err := readPart(zr, contentTypesPart); err == nil {
		var ct contentTypes
		if xml.Unmarshal(data, &ct) == nil {
			for _, o := range ct.Overrides {
				if o.ContentType == wordMainType {
					part = strings.TrimPrefix(o.PartName, "/")
					break
				}
			}
		}
	}
	data, err := readPart(zr, part)
	if err != nil {
		return "", fmt.Errorf("extract DOCX: %s: %w", part, err)
	}
	return ooxmlText(data)
}

// extractPPTX reads every slide of a PowerPoint package in slide order.
func extractPPTX(content []byte) (string, error) {
	zr, err := openPackage(content, "PPTX")
	if err != nil {
		return "", err
	}
	type slide struct {
		num  int
		file *zip.File
	}
	var slides []slide
	for _, f := range zr.File {
		if !strings.HasPrefix(f.Name, slidePrefix) || path.Ext(f.Name) != ".xml" {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(f.Name, slidePrefix), ".xml"))
		if err != nil {
			continue
		}
		slides = append(slides, slide{n, f})
	}
	sort.Slice(slides, func(i, j int) bool { return slides[i].num < slides[j].num })

	var parts []string
	for _, s := range slides {
		data, err := readPart(zr, s.file.Name)
		if err != nil {
			return "", fmt.Errorf("extract PPTX: %s: %w", s.file.Name, err)
		}
		text, err := ooxmlText(data)
		if err != nil {
			return "", fmt.Errorf("extract PPTX: %s: %w", s.file.Name, err)
		}
		if text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, "\n"), nil
}

// extractODF reads content.xml of an OpenDocument package (odt, odp, ods).
func extractODF(content []byte, format string) (string, error) {
	zr, err := openPackage(content, format)
	if err != nil {
		return "", err
	}
	data, err := readPart(zr, odfContentPart)
	if errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("extract %s: %s not found", format, odfContentPart)
	}
	if err != nil {
		return "", fmt.Errorf("extract %s: %w", format, err)
	}
	return odfText(data)
}

// ooxmlText collects the character data of <w:t> and <a:t> runs. Paragraphs
// become lines.
func ooxmlText(data []byte) (string, error) {
	var b strings.Builder
	inText := 0
	err := walkXML(data, func(tok xml.Token) {
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText++
			case "tab":
				b.WriteByte('\t')
			case "br":
				b.WriteByte('\n')
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText--
			case "p":
				b.WriteByte('\n')
			}
		case xml.CharData:
			if inText > 0 {
				b.Write(t)
			}
		}
	})
	if err != nil {
		return "", err
	}
	return tidyLines(b.String()), nil
}

// odfText collects the text of <text:p> and <text:h> elements, spans
// included. Each paragraph or heading becomes a line.
func odfText(data []byte) (string, error) {
	var b strings.Builder
	depth := 0
	isText := func(n xml.Name) bool { return n.Space == odfTextNS || n.Space == "text" }
	err := walkXML(data, func(tok xml.Token) {
		switch t := tok.(type) {
		case xml.StartElement:
			if !isText(t.Name) {
				return
			}
			switch t.Name.Local {
			case "p", "h":
				depth++
			case "s":
				b.WriteByte(' ')
			case "tab":
				b.WriteByte('\t')
			case "line-break":
				b.WriteByte('\n')
			}
		case xml.EndElement:
			if isText(t.Name) && (t.Name.Local == "p" || t.Name.Local == "h") {
				depth--
				b.WriteByte('\n')
			}
		case xml.CharData:
			if depth > 0 {
				b.Write(t)
			}
		}
	})
	if err != nil {
		return "", err
	}
	return tidyLines(b.String()), nil
}

func walkXML(data []byte, visit func(xml.Token)) error {
	d := xml.NewDecoder(bytes.NewReader(data))
	for {
		tok, err := d.Token()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("parse xml: %w", err)
		}
		visit(tok)
	}
}

// tidyLines trims every line and drops the empty ones.
func tidyLines(s string) string {
	lines := strings.Split(s, "\n")
	out := lines[:0]
	for _, l := range lines {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return strings.Join(out, "\n")
}
