package fileindex

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/blevesearch/bleve/v2"
	blevequery "github.com/blevesearch/bleve/v2/search/query"
	"github.com/siebentod/AcademyNomad/internal/engine"
)

// ErrFieldMissing is reported for a requested column the document lacks.
var ErrFieldMissing = errors.New("field missing")

// Query runs q and returns one row per matching file. Terms are separated by
// whitespace and all must match. "ext:pdf" restricts the extension and
// "path:/some/dir" the containing directory; any other term matches the
// start of a word in the file name, any part of the file name, or the start
// of a word in the indexed content.
func (x *Index) Query(ctx context.Context, q engine.Query) (engine.Results, error) {
	bq := buildQuery(q)
	size := q.MaxResults
	if size <= 0 {
		size = 20
	}
	req := bleve.NewSearchRequestOptions(bq, size, 0, false)
	req.Fields = []string{fieldPath, fieldSize, fieldCreated, fieldModified, fieldExt}
	req.SortBy(sortOrder(q.Sort))

	res, err := x.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("search index: %w", err)
	}
	rows := make(engine.Rows, len(res.Hits))
	for i, hit := range res.Hits {
		rows[i] = toRow(hit.Fields, q.Flags)
	}
	return rows, nil
}

func buildQuery(q engine.Query) blevequery.Query {
	var parts []blevequery.Query
	for _, term := range strings.Fields(q.Search) {
		if tq := termQuery(term); tq != nil {
			parts = append(parts, tq)
		}
	}
	if q.Path != "" {
		root := bleve.NewPrefixQuery(withSeparator(filepath.Clean(q.Path)))
		root.SetField(fieldPath)
		parts = append(parts, root)
	}
	if len(parts) == 0 {
		return bleve.NewMatchNoneQuery()
	}
	return bleve.NewConjunctionQuery(parts...)
}

func termQuery(term string) blevequery.Query {
	lower := strings.ToLower(term)
	switch {
	case strings.HasPrefix(lower, "ext:"):
		ext := strings.TrimPrefix(strings.TrimPrefix(lower, "ext:"), ".")
		if ext == "" {
			return nil
		}
		tq := bleve.NewTermQuery(ext)
		tq.SetField(fieldExt)
		return tq
	case strings.HasPrefix(lower, "path:"):
		dir := term[len("path:"):]
		if dir == "" {
			return nil
		}
		pq := bleve.NewPrefixQuery(dir)
		pq.SetField(fieldDir)
		return pq
	}

	literal := strings.NewReplacer("*", "", "?", "").Replace(lower)
	if literal == "" {
		return nil
	}
	prefix := bleve.NewPrefixQuery(literal)
	prefix.SetField(fieldName)
	anywhere := bleve.NewWildcardQuery("*" + literal + "*")
	anywhere.SetField(fieldNameLower)
	content := bleve.NewMatchQuery(term)
	content.SetField(fieldContent)
	contentPrefix := bleve.NewPrefixQuery(literal)
	contentPrefix.SetField(fieldContent)
	return bleve.NewDisjunctionQuery(prefix, anywhere, content, contentPrefix)
}

func sortOrder(s engine.Sort) []string {
	switch s {
	case engine.SortNameAscending:
		return []string{fieldNameLower, "_id"}
	case engine.SortDateModifiedAscending:
		return []string{fieldModified, "_id"}
	case engine.SortSizeDescending:
		return []string{"-" + fieldSize, "_id"}
	default:
		return []string{"-" + fieldModified, "_id"}
	}
}

func toRow(fields map[string]interface{}, flags engine.RequestFlags) engine.Row {
	var r engine.Row
	r.Path, r.PathErr = stringField(fields, fieldPath)
	if !flags.Has(engine.RequestFullPathAndFileName) {
		r.Path, r.PathErr = "", engine.ErrNotRequested
	}

	if flags.Has(engine.RequestSize) {
		r.Size, r.SizeErr = sizeField(fields)
	} else {
		r.SizeErr = engine.ErrNotRequested
	}
	if flags.Has(engine.RequestExtension) {
		r.Ext, r.ExtErr = stringField(fields, fieldExt)
	} else {
		r.ExtErr = engine.ErrNotRequested
	}
	if flags.Has(engine.RequestDateCreated) {
		r.Created, r.CreatedErr = timeField(fields, fieldCreated)
	} else {
		r.CreatedErr = engine.ErrNotRequested
	}
	if flags.Has(engine.RequestDateModified) {
		r.Modified, r.ModifiedErr = timeField(fields, fieldModified)
	} else {
		r.ModifiedErr = engine.ErrNotRequested
	}
	return r
}

func stringField(fields map[string]interface{}, name string) (string, error) {
	s, ok := fields[name].(string)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrFieldMissing, name)
	}
	return s, nil
}

func sizeField(fields map[string]interface{}) (int64, error) {
	f, ok := fields[fieldSize].(float64)
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrFieldMissing, fieldSize)
	}
	return int64(f), nil
}

// timeField decodes a stored datetime. Bleve returns these as RFC 3339 text.
func timeField(fields map[string]interface{}, name string) (time.Time, error) {
	s, err := stringField(fields, name)
	if err != nil {
		return time.Time{}, err
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("decode %s: %w", name, err)
	}
	return t, nil
}
