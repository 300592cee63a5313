package models

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestSearchResult_HighlightStatesEncodeDistinctly(t *testing.T) {
	notAttempted, err := json.Marshal(SearchResult{})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(notAttempted), `"highlights":null`) {
		t.Errorf("nil highlights should encode as null: %s", notAttempted)
	}

	attempted, err := json.Marshal(SearchResult{Highlights: []Highlight{}})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(attempted), `"highlights":[]`) {
		t.Errorf("empty highlights should encode as []: %s", attempted)
	}
}

func TestSearchResult_AbsentFieldsEncodeAsNull(t *testing.T) {
	data, err := json.Marshal(SearchResult{FileName: "a.pdf"})
	if err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{`"size":null`, `"extension":null`, `"id":null`, `"pdf_title":null`} {
		if !strings.Contains(string(data), key) {
			t.Errorf("expected %s in %s", key, data)
		}
	}
}
