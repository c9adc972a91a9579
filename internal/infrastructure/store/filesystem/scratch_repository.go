package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"bpmnvalidator/internal/domain/repository"
)

const scratchPrefix = "bpmnlint-"

var _ repository.ScratchRepository = (*ScratchRepository)(nil)

type ScratchRepository struct {
	basePath string
}

func (r *ScratchRepository) GetBasePath() string {
	return r.basePath
}

// NewScratchRepository makes sure basePath is a usable directory. An empty
// basePath means the system temp dir. Relative paths are made absolute, since
// the linter does not run in the service's working directory.
func NewScratchRepository(basePath string) (*ScratchRepository, error) {
	if basePath == "" {
		basePath = os.TempDir()
	}
	absPath, err := filepath.Abs(basePath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve directory %s: %w", basePath, err)
	}
	basePath = absPath

	info, err := os.Stat(basePath)
	if os.IsNotExist(err) {
		if mkErr := os.MkdirAll(basePath, 0o700); mkErr != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", basePath, mkErr)
		}
	} else if err != nil {
		return nil, fmt.Errorf("failed to check directory %s: %w", basePath, err)
	} else if !info.IsDir() {
		return nil, fmt.Errorf("path %s exists but is not a directory", basePath)
	}

	return &ScratchRepository{
		basePath: basePath,
	}, nil
}

func (r *ScratchRepository) Create(ctx context.Context, ext string, content io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	path := filepath.Join(r.basePath, scratchPrefix+uuid.NewString()+ext)
	if err := createExclusive(path, 0o600, content); err != nil {
		return "", fmt.Errorf("failed to create scratch file: %w", err)
	}
	return path, nil
}

func (r *ScratchRepository) Remove(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove scratch file: %w", err)
	}
	return nil
}

// createExclusive creates path, failing with fs.ErrExist if it is already
// there, and fills it from content. A partly written file is removed.
func createExclusive(path string, perm fs.FileMode, content io.Reader) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, perm)
	if err != nil {
		return err
	}

	if _, err := io.Copy(f, content); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return fmt.Errorf("close %s: %w", path, err)
	}
	return nil
}
