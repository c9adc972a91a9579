package usecase

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"testing"

	"bpmnvalidator/internal/domain/repository"
	"bpmnvalidator/internal/infrastructure/store/filesystem"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeLinter struct {
	available bool
	probeErr  error
	calls     atomic.Int32
	lint      func(ctx context.Context, path string) (repository.LintRun, error)
}

func (f *fakeLinter) Lint(ctx context.Context, path string) (repository.LintRun, error) {
	f.calls.Add(1)
	return f.lint(ctx, path)
}

func (f *fakeLinter) Probe(ctx context.Context) error { return f.probeErr }

func (f *fakeLinter) Available() bool { return f.available }

func (f *fakeLinter) Name() string { return "fake" }

// trackingScratch records every path it hands out.
type trackingScratch struct {
	repository.ScratchRepository

	mu        sync.Mutex
	created   []string
	removeErr error
}

func newTrackingScratch(t *testing.T) *trackingScratch {
	t.Helper()
	repo, err := filesystem.NewScratchRepository(t.TempDir())
	if err != nil {
		t.Fatalf("NewScratchRepository: %v", err)
	}
	return &trackingScratch{ScratchRepository: repo}
}

func (s *trackingScratch) Create(ctx context.Context, ext string, content io.Reader) (string, error) {
	path, err := s.ScratchRepository.Create(ctx, ext, content)
	if err == nil {
		s.mu.Lock()
		s.created = append(s.created, path)
		s.mu.Unlock()
	}
	return path, err
}

func (s *trackingScratch) Remove(path string) error {
	if s.removeErr != nil {
		return s.removeErr
	}
	return s.ScratchRepository.Remove(path)
}

func (s *trackingScratch) paths() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.created...)
}

func assertNoScratchLeft(t *testing.T, s *trackingScratch) {
	t.Helper()
	for _, p := range s.paths() {
		if _, err := os.Stat(p); !errors.Is(err, os.ErrNotExist) {
			t.Errorf("scratch file %s still exists (stat err: %v)", p, err)
		}
	}
}

type failingScratch struct{}

func (failingScratch) Create(context.Context, string, io.Reader) (string, error) {
	return "", errors.New("no space left on device")
}

func (failingScratch) Remove(string) error { return nil }
