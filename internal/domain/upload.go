package domain

import (
	"bytes"
	"io"
)

// UploadFile is one uploaded ledger export. Open may be called more than
// once; each call returns a fresh reader over the whole file.
type UploadFile struct {
	Name string
	Size int64
	Open func() (io.ReadCloser, error)
}

// NewUploadFile wraps in-memory content.
func NewUploadFile(name string, content []byte) UploadFile {
	return UploadFile{
		Name: name,
		Size: int64(len(content)),
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(content)), nil
		},
	}
}

// Template is a saved mapping and the filename fragment it applies to.
type Template struct {
	Key     string  `json:"key"`
	Mapping Mapping `json:"mapping"`
}
