package models

import "testing"

func TestSearchRequest_Blank(t *testing.T) {
	tests := []struct {
		query string
		want  bool
	}{
		{"", true},
		{"   ", true},
		{"\t\n ", true},
		{"report", false},
		{"  report  ", false},
	}
	for _, tt := range tests {
		r := &SearchRequest{Query: tt.query}
		if got := r.Blank(); got != tt.want {
			t.Errorf("Blank(%q) = %v, want %v", tt.query, got, tt.want)
		}
	}
}

func TestSearchRequest_Limit(t *testing.T) {
	zero, five := 0, 5
	tests := []struct {
		name  string
		count *int
		want  int
	}{
		{"unset uses default", nil, DefaultResultCount},
		{"zero uses default", &zero, DefaultResultCount},
		{"explicit count", &five, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &SearchRequest{Query: "x", Count: tt.count}
			if got := r.Limit(DefaultResultCount); got != tt.want {
				t.Errorf("Limit() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestSearchRequest_WantsHighlights(t *testing.T) {
	yes, no := true, false
	if (&SearchRequest{}).WantsHighlights() {
		t.Error("unset flag should not request highlights")
	}
	if (&SearchRequest{IncludeHighlights: &no}).WantsHighlights() {
		t.Error("false flag should not request highlights")
	}
	if !(&SearchRequest{IncludeHighlights: &yes}).WantsHighlights() {
		t.Error("true flag should request highlights")
	}
}
