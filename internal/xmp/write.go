package xmp

import (
	"bytes"
	"fmt"
	"regexp"
)

var (
	creatorElem = regexp.MustCompile(`<([A-Za-z][\w.-]*):CreatorTool>[^<]*</[A-Za-z][\w.-]*:CreatorTool>`)
	creatorAttr = regexp.MustCompile(`([A-Za-z][\w.-]*):CreatorTool="[^"]*"`)
	description = regexp.MustCompile(`<([A-Za-z][\w.-]*):Description\b[^>]*?(/?)>`)
	xmpNSDecl   = regexp.MustCompile(`xmlns:xmp="`)
)

// setCreatorTool returns data with the creator tool set to value. The result
// has the same length as data: trailing packet padding is consumed or
// extended to compensate.
func setCreatorTool(data []byte, value string) ([]byte, error) {
	var out []byte
	switch {
	case creatorElem.Match(data):
		loc := creatorElem.FindSubmatchIndex(data)
		prefix := string(data[loc[2]:loc[3]])
		repl := fmt.Sprintf("<%s:CreatorTool>%s</%s:CreatorTool>", prefix, value, prefix)
		out = splice(data, loc[0], loc[1], repl)
	case creatorAttr.Match(data):
		loc := creatorAttr.FindSubmatchIndex(data)
		prefix := string(data[loc[2]:loc[3]])
		out = splice(data, loc[0], loc[1], fmt.Sprintf(`%s:CreatorTool="%s"`, prefix, value))
	default:
		loc := description.FindSubmatchIndex(data)
		if loc == nil {
			return nil, fmt.Errorf("no rdf:Description in packet")
		}
		rdf := string(data[loc[2]:loc[3]])
		open := string(data[loc[0]:loc[1]])
		selfClosing := loc[5] > loc[4]
		if selfClosing {
			open = open[:len(open)-2]
		} else {
			open = open[:len(open)-1]
		}
		if !xmpNSDecl.MatchString(open) {
			open += ` xmlns:xmp="` + nsXMP + `"`
		}
		elem := "<xmp:CreatorTool>" + value + "</xmp:CreatorTool>"
		repl := open + ">" + elem
		if selfClosing {
			repl += "</" + rdf + ":Description>"
		}
		out = splice(data, loc[0], loc[1], repl)
	}
	return fitLength(out, len(data))
}

func splice(data []byte, start, end int, repl string) []byte {
	out := make([]byte, 0, len(data)+len(repl))
	out = append(out, data[:start]...)
	out = append(out, repl...)
	return append(out, data[end:]...)
}

// fitLength pads or trims the whitespace in front of the closing xpacket
// instruction (or at the very end for a bare packet) so that len(out) == n.
func fitLength(out []byte, n int) ([]byte, error) {
	delta := len(out) - n
	if delta == 0 {
		return out, nil
	}
	pad := len(out)
	if i := bytes.LastIndex(out, xpacketEnd); i >= 0 {
		pad = i
	}
	if delta < 0 {
		fill := bytes.Repeat([]byte(" "), -delta)
		return splice(out, pad, pad, string(fill)), nil
	}
	start := pad
	for start > 0 && isSpace(out[start-1]) {
		start--
	}
	if pad-start < delta {
		return nil, ErrNoRoom
	}
	return splice(out, pad-delta, pad, ""), nil
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\n' || c == '\r' || c == '\t'
}
