package filesystem

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"bpmnvalidator/internal/domain/entity"
	"bpmnvalidator/internal/domain/repository"
)

var _ repository.RulesetRepository = (*RulesetRepository)(nil)

// RulesetRepository owns the linter rc file at a fixed path.
type RulesetRepository struct {
	path string
}

func NewRulesetRepository(path string) *RulesetRepository {
	return &RulesetRepository{path: path}
}

func (r *RulesetRepository) Path() string {
	return r.path
}

func (r *RulesetRepository) Exists(ctx context.Context) (bool, error) {
	info, err := os.Stat(r.path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check ruleset %s: %w", r.path, err)
	}
	if info.IsDir() {
		return false, fmt.Errorf("ruleset path %s is a directory", r.path)
	}
	return true, nil
}

func (r *RulesetRepository) Write(ctx context.Context, ruleset entity.Ruleset) (bool, error) {
	data, err := ruleset.Render()
	if err != nil {
		return false, fmt.Errorf("failed to render ruleset: %w", err)
	}

	if dir := filepath.Dir(r.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return false, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	// O_EXCL keeps an operator-provided file intact even if it appears
	// between the existence check and this write. A failed write leaves no
	// file behind, so the next start tries again.
	err = createExclusive(r.path, 0o644, bytes.NewReader(data))
	if errors.Is(err, fs.ErrExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to write ruleset %s: %w", r.path, err)
	}
	return true, nil
}
