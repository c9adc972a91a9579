package entity

import (
	"io"
	"path/filepath"
	"strings"
)

// Upload is a single document received over HTTP. It lives only for the
// duration of the request that carried it.
type Upload struct {
	Filename string
	Size     int64
	Content  io.Reader
}

func NewUpload(filename string, size int64, content io.Reader) *Upload {
	return &Upload{
		Filename: filename,
		Size:     size,
		Content:  content,
	}
}

// HasExtension reports whether the filename ends in ext, ignoring case.
func (u *Upload) HasExtension(ext string) bool {
	if u == nil || ext == "" {
		return false
	}
	return strings.EqualFold(filepath.Ext(u.Filename), ext)
}
