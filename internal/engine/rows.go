package engine

import "time"

// Row is one materialized result row. Each Err field, when set, is returned
// by the matching accessor instead of the value.
type Row struct {
	Path        string
	PathErr     error
	Size        int64
	SizeErr     error
	Created     time.Time
	CreatedErr  error
	Modified    time.Time
	ModifiedErr error
	Ext         string
	ExtErr      error
}

// Rows is a Results backed by a slice.
type Rows []Row

func (r Rows) Len() int { return len(r) }

func (r Rows) FullPath(i int) (string, error) { return r[i].Path, r[i].PathErr }

func (r Rows) Size(i int) (int64, error) { return r[i].Size, r[i].SizeErr }

func (r Rows) DateCreated(i int) (time.Time, error) { return r[i].Created, r[i].CreatedErr }

func (r Rows) DateModified(i int) (time.Time, error) { return r[i].Modified, r[i].ModifiedErr }

func (r Rows) Extension(i int) (string, error) { return r[i].Ext, r[i].ExtErr }
