package repository

import (
	"context"
	"io"
)

// ScratchRepository hands uploaded bytes to tools that need a filesystem path.
type ScratchRepository interface {
	// Create writes content to a new uniquely named file ending in ext and
	// returns its path.
	Create(ctx context.Context, ext string, content io.Reader) (string, error)
	// Remove deletes a file previously returned by Create. Removing a file
	// that is already gone is not an error.
	Remove(path string) error
}
