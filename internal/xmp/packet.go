package xmp

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

const (
	nsDC  = "http://purl.org/dc/elements/1.1/"
	nsXMP = "http://ns.adobe.com/xap/1.0/"
	nsRDF = "http://www.w3.org/1999/02/22-rdf-syntax-ns#"
)

var (
	xpacketBegin = []byte("<?xpacket begin=")
	xpacketEnd   = []byte("<?xpacket end=")
	xmpmetaOpen  = []byte("<x:xmpmeta")
	xmpmetaClose = []byte("</x:xmpmeta>")
)

// packet is an XMP packet located inside a file. offset is the byte position
// of data in the file, or -1 when the packet was decoded from a filtered
// stream and cannot be rewritten in place.
type packet struct {
	data   []byte
	offset int64
}

func (p *packet) writable() bool { return p.offset >= 0 }

// scanPacket finds the first XMP packet in raw bytes. A packet wrapped in
// <?xpacket?> processing instructions is preferred; a bare x:xmpmeta element
// is accepted otherwise.
func scanPacket(data []byte, base int64) (*packet, bool) {
	if start := bytes.Index(data, xpacketBegin); start >= 0 {
		if rel := bytes.Index(data[start:], xpacketEnd); rel >= 0 {
			end := start + rel
			if close := bytes.Index(data[end:], []byte("?>")); close >= 0 {
				end += close + 2
				return &packet{data: data[start:end], offset: base + int64(start)}, true
			}
		}
	}
	if start := bytes.Index(data, xmpmetaOpen); start >= 0 {
		if rel := bytes.Index(data[start:], xmpmetaClose); rel >= 0 {
			end := start + rel + len(xmpmetaClose)
			return &packet{data: data[start:end], offset: base + int64(start)}, true
		}
	}
	return nil, false
}

// parseCore extracts dc:title, dc:creator and xmp:CreatorTool from a packet.
func parseCore(data []byte) (Core, error) {
	var (
		core      Core
		stack     []xml.Name
		titleAlt  string
		titleSeen bool
		langOK    bool
		text      strings.Builder
	)
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.Strict = false

	inside := func(space, local string) bool {
		for _, n := range stack {
			if n.Space == space && n.Local == local {
				return true
			}
		}
		return false
	}

	for {
		tok, err := dec.Token()
		if err != nil {
			if errors.Is(err, io.EOF) || core != (Core{}) {
				break
			}
			return core, fmt.Errorf("parse xmp packet: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			stack = append(stack, t.Name)
			text.Reset()
			langOK = false
			for _, a := range t.Attr {
				if a.Name.Space == nsXMP && a.Name.Local == "CreatorTool" && core.CreatorTool == nil {
					core.CreatorTool = nonEmpty(a.Value)
				}
				if a.Name.Local == "lang" && a.Value == "x-default" {
					langOK = true
				}
			}
		case xml.CharData:
			text.Write(t)
		case xml.EndElement:
			value := strings.TrimSpace(text.String())
			switch {
			case t.Name.Space == nsRDF && t.Name.Local == "li" && inside(nsDC, "title"):
				if langOK || !titleSeen {
					titleAlt = value
					titleSeen = true
					if langOK {
						core.Title = nonEmpty(titleAlt)
					}
				}
			case t.Name.Space == nsRDF && t.Name.Local == "li" && inside(nsDC, "creator"):
				if core.Author == nil {
					core.Author = nonEmpty(value)
				}
			case t.Name.Space == nsXMP && t.Name.Local == "CreatorTool":
				if core.CreatorTool == nil {
					core.CreatorTool = nonEmpty(value)
				}
			case t.Name.Space == nsDC && t.Name.Local == "title":
				if core.Title == nil && titleSeen {
					core.Title = nonEmpty(titleAlt)
				}
			}
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
			text.Reset()
		}
	}
	return core, nil
}

func nonEmpty(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
