package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"bpmnvalidator/internal/domain/entity"
	"bpmnvalidator/internal/domain/repository"
)

const DefaultProbeTimeout = 60 * time.Second

// StartupInitializer prepares the linter before the listener opens: the rc
// file must exist and the tool must actually run.
type StartupInitializer struct {
	rulesets     repository.RulesetRepository
	linter       repository.Linter
	ruleset      entity.Ruleset
	probeTimeout time.Duration
	logger       *slog.Logger
}

func NewStartupInitializer(
	rulesets repository.RulesetRepository,
	linter repository.Linter,
	ruleset entity.Ruleset,
	probeTimeout time.Duration,
	logger *slog.Logger,
) *StartupInitializer {
	if probeTimeout <= 0 {
		probeTimeout = DefaultProbeTimeout
	}
	return &StartupInitializer{
		rulesets:     rulesets,
		linter:       linter,
		ruleset:      ruleset,
		probeTimeout: probeTimeout,
		logger:       logger,
	}
}

func (i *StartupInitializer) Run(ctx context.Context) error {
	if _, err := i.EnsureRuleset(ctx); err != nil {
		return err
	}
	if !i.linter.Available() {
		return fmt.Errorf("%w: %s not found on PATH", entity.ErrToolUnavailable, i.linter.Name())
	}

	probeCtx, cancel := context.WithTimeout(ctx, i.probeTimeout)
	defer cancel()
	if err := i.linter.Probe(probeCtx); err != nil {
		return fmt.Errorf("probe %s: %w", i.linter.Name(), err)
	}
	i.logger.Info("linter ready", "linter", i.linter.Name())
	return nil
}

// EnsureRuleset writes the default ruleset if the rc file is missing. An
// existing file is left alone so operator edits survive restarts.
func (i *StartupInitializer) EnsureRuleset(ctx context.Context) (bool, error) {
	exists, err := i.rulesets.Exists(ctx)
	if err != nil {
		return false, fmt.Errorf("check ruleset: %w", err)
	}
	if exists {
		i.logger.Info("ruleset already present", "path", i.rulesets.Path())
		return false, nil
	}

	created, err := i.rulesets.Write(ctx, i.ruleset)
	if err != nil {
		return false, fmt.Errorf("write ruleset: %w", err)
	}
	if created {
		i.logger.Info("ruleset written", "path", i.rulesets.Path(), "extends", i.ruleset.Extends, "rules", len(i.ruleset.Rules))
	}
	return created, nil
}
