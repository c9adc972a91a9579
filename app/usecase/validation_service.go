package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"bpmnvalidator/internal/domain/entity"
	"bpmnvalidator/internal/domain/repository"
	"bpmnvalidator/internal/infrastructure/metrics"
)

const (
	DefaultExtension   = ".bpmn"
	DefaultLintTimeout = 30 * time.Second
)

type ValidationUsecase interface {
	Validate(ctx context.Context, upload *entity.Upload) entity.Outcome
}

var _ ValidationUsecase = (*ValidationService)(nil)

// ValidationService lints one uploaded document per call. It keeps no state
// between calls; every call owns its own scratch file.
type ValidationService struct {
	scratch   repository.ScratchRepository
	linter    repository.Linter
	extension string
	timeout   time.Duration
	logger    *slog.Logger
}

func NewValidationService(
	scratch repository.ScratchRepository,
	linter repository.Linter,
	extension string,
	timeout time.Duration,
	logger *slog.Logger,
) *ValidationService {
	if extension == "" {
		extension = DefaultExtension
	}
	if timeout <= 0 {
		timeout = DefaultLintTimeout
	}
	return &ValidationService{
		scratch:   scratch,
		linter:    linter,
		extension: extension,
		timeout:   timeout,
		logger:    logger,
	}
}

func (s *ValidationService) Validate(ctx context.Context, upload *entity.Upload) (out entity.Outcome) {
	logger := s.logger.With("request_id", RequestID(ctx))
	start := time.Now()
	defer func() {
		metrics.IncValidationRun(string(out.Kind))
		if out.Linted() || out.Kind == entity.OutcomeTimeout {
			metrics.ObserveValidationDuration(string(out.Kind), time.Since(start))
		}
	}()

	if upload == nil || upload.Content == nil {
		return entity.Failed(entity.ErrMissingFile)
	}
	if !upload.HasExtension(s.extension) {
		return entity.Failed(fmt.Errorf("%w: %q is not a %s file", entity.ErrUnsupportedType, upload.Filename, s.extension))
	}
	metrics.ObserveUploadSize(upload.Size)

	path, err := s.scratch.Create(ctx, s.extension, upload.Content)
	if err != nil {
		logger.Error("create scratch file failed", "file", upload.Filename, "err", err)
		return entity.Failed(fmt.Errorf("%w: %v", entity.ErrInternal, err))
	}
	defer s.cleanup(logger, path)

	lintCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	run, err := s.linter.Lint(lintCtx, path)
	if err != nil {
		out = entity.Failed(err)
		switch {
		case errors.Is(err, entity.ErrTimeout):
			logger.Warn("linter timed out", "file", upload.Filename, "timeout", s.timeout)
		case errors.Is(err, entity.ErrToolUnavailable):
			logger.Error("linter unavailable", "linter", s.linter.Name(), "err", err)
		default:
			logger.Error("linter failed", "file", upload.Filename, "err", err)
		}
		return out
	}

	logger.Info("linter finished",
		"file", upload.Filename,
		"exit_code", run.ExitCode,
		"duration", time.Since(start),
	)
	if run.ExitCode == 0 {
		return entity.Passed()
	}
	return entity.Findings(diagnostics(run), run.ExitCode)
}

// cleanup logs removal failures; they never change the outcome.
func (s *ValidationService) cleanup(logger *slog.Logger, path string) {
	if err := s.scratch.Remove(path); err != nil {
		metrics.IncScratchCleanupFailure()
		logger.Error("remove scratch file failed", "path", path, "err", err)
	}
}

// diagnostics prefers stdout, where bpmnlint prints its report, and falls
// back to stderr for crashes and usage errors.
func diagnostics(run repository.LintRun) string {
	if strings.TrimSpace(run.Stdout) != "" {
		return run.Stdout
	}
	return run.Stderr
}
