// Package fileindex is the local file-search engine: a bleve index of file
// names, locations, sizes, timestamps and (for some formats) text content,
// kept current by a crawler and a directory watcher.
package fileindex

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/siebentod/AcademyNomad/internal/fileid"
)

// Field names of an indexed file.
const (
	fieldName      = "name"
	fieldNameLower = "name_lower"
	fieldPath      = "path"
	fieldDir       = "dir"
	fieldExt       = "ext"
	fieldSize      = "size"
	fieldCreated   = "created"
	fieldModified  = "modified"
	fieldStamp     = "stamp"
	fieldContent   = "content"
)

// ErrNotIndexed is returned by Stamp for paths with no document.
var ErrNotIndexed = errors.New("file not indexed")

// Document is one indexed file.
type Document struct {
	Name      string    `json:"name"`
	NameLower string    `json:"name_lower"`
	Path      string    `json:"path"`
	Dir       string    `json:"dir"`
	Ext       string    `json:"ext"`
	Size      int64     `json:"size"`
	Created   time.Time `json:"created"`
	Modified  time.Time `json:"modified"`
	// Stamp identifies the file version that was indexed (mtime and size).
	Stamp   string `json:"stamp"`
	Content string `json:"content,omitempty"`
}

// NewDocument describes the file at path. Content is left empty.
func NewDocument(path string, info os.FileInfo, created time.Time) Document {
	name := filepath.Base(path)
	return Document{
		// underscores split words for the standard analyzer
		Name:      strings.ReplaceAll(name, "_", " "),
		NameLower: strings.ToLower(name),
		Path:      path,
		Dir:       filepath.Dir(path),
		Ext:       strings.ToLower(strings.TrimPrefix(filepath.Ext(name), ".")),
		Size:      info.Size(),
		Created:   created,
		Modified:  info.ModTime(),
		Stamp:     stamp(info),
	}
}

func stamp(info os.FileInfo) string {
	return fmt.Sprintf("%d:%d", info.ModTime().UnixNano(), info.Size())
}

// Index is a bleve index of files.
type Index struct {
	index bleve.Index
	path  string
}

// Open creates or opens the index at path. An empty path keeps the index in
// memory. If the mapping changes, remove the index directory to rebuild.
func Open(path string) (*Index, error) {
	im := buildMapping()
	if path == "" {
		index, err := bleve.NewMemOnly(im)
		if err != nil {
			return nil, fmt.Errorf("create in-memory index: %w", err)
		}
		return &Index{index: index}, nil
	}

	if _, err := os.Stat(path); err == nil {
		index, err := bleve.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open index: %w", err)
		}
		return &Index{index: index, path: path}, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create index directory: %w", err)
	}
	index, err := bleve.New(path, im)
	if err != nil {
		return nil, fmt.Errorf("create index: %w", err)
	}
	return &Index{index: index, path: path}, nil
}

func buildMapping() *mapping.IndexMappingImpl {
	im := bleve.NewIndexMapping()
	doc := bleve.NewDocumentMapping()
	doc.Dynamic = false

	text := bleve.NewTextFieldMapping()
	text.Analyzer = standard.Name
	doc.AddFieldMappingsAt(fieldName, text)

	content := bleve.NewTextFieldMapping()
	content.Analyzer = standard.Name
	content.Store = false
	content.IncludeTermVectors = false
	doc.AddFieldMappingsAt(fieldContent, content)

	for _, f := range []string{fieldNameLower, fieldPath, fieldDir, fieldExt, fieldStamp} {
		doc.AddFieldMappingsAt(f, bleve.NewKeywordFieldMapping())
	}
	doc.AddFieldMappingsAt(fieldSize, bleve.NewNumericFieldMapping())
	doc.AddFieldMappingsAt(fieldCreated, bleve.NewDateTimeFieldMapping())
	doc.AddFieldMappingsAt(fieldModified, bleve.NewDateTimeFieldMapping())

	im.AddDocumentMapping("file", doc)
	im.DefaultType = "file"
	im.DefaultMapping = doc
	return im
}

// Put indexes doc, replacing any document for the same path.
func (x *Index) Put(doc Document) error {
	if err := x.index.Index(fileid.DocID(doc.Path), doc); err != nil {
		return fmt.Errorf("index %s: %w", doc.Path, err)
	}
	return nil
}

// Delete removes the document for path. Deleting a missing document is not an error.
func (x *Index) Delete(path string) error {
	if err := x.index.Delete(fileid.DocID(path)); err != nil {
		return fmt.Errorf("delete %s: %w", path, err)
	}
	return nil
}

// DeleteTree removes the document for root and every document below it. It
// returns the number of documents below root.
func (x *Index) DeleteTree(ctx context.Context, root string) (int, error) {
	paths, err := x.Paths(ctx, root)
	if err != nil {
		return 0, err
	}
	batch := x.index.NewBatch()
	batch.Delete(fileid.DocID(root))
	for _, p := range paths {
		batch.Delete(fileid.DocID(p))
	}
	if err := x.index.Batch(batch); err != nil {
		return 0, fmt.Errorf("delete tree %s: %w", root, err)
	}
	return len(paths), nil
}

// Stamp returns the stored version stamp for path.
func (x *Index) Stamp(ctx context.Context, path string) (string, error) {
	req := bleve.NewSearchRequest(bleve.NewDocIDQuery([]string{fileid.DocID(path)}))
	req.Fields = []string{fieldStamp}
	req.Size = 1
	res, err := x.index.SearchInContext(ctx, req)
	if err != nil {
		return "", fmt.Errorf("lookup %s: %w", path, err)
	}
	if len(res.Hits) == 0 {
		return "", ErrNotIndexed
	}
	s, _ := res.Hits[0].Fields[fieldStamp].(string)
	return s, nil
}

const pageSize = 1000

// Paths returns the paths of every document strictly below root.
func (x *Index) Paths(ctx context.Context, root string) ([]string, error) {
	q := bleve.NewPrefixQuery(withSeparator(filepath.Clean(root)))
	q.SetField(fieldPath)

	var out []string
	for from := 0; ; from += pageSize {
		req := bleve.NewSearchRequestOptions(q, pageSize, from, false)
		req.Fields = []string{fieldPath}
		req.SortBy([]string{"_id"})
		res, err := x.index.SearchInContext(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", root, err)
		}
		for _, hit := range res.Hits {
			if p, ok := hit.Fields[fieldPath].(string); ok {
				out = append(out, p)
			}
		}
		if len(res.Hits) < pageSize {
			return out, nil
		}
	}
}

// DocCount returns the number of indexed files.
func (x *Index) DocCount() (uint64, error) {
	return x.index.DocCount()
}

// DiskUsage returns the bytes the index occupies on disk. An in-memory
// index reports 0.
func (x *Index) DiskUsage() (int64, error) {
	if x.path == "" {
		return 0, nil
	}
	var total int64
	err := filepath.WalkDir(x.path, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		total += info.Size()
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("disk usage: %w", err)
	}
	return total, nil
}

// Close closes the index.
func (x *Index) Close() error {
	return x.index.Close()
}

func withSeparator(dir string) string {
	if strings.HasSuffix(dir, string(filepath.Separator)) {
		return dir
	}
	return dir + string(filepath.Separator)
}
