package repository

import (
	"context"

	"bpmnvalidator/internal/domain/entity"
)

type RulesetRepository interface {
	Path() string
	Exists(ctx context.Context) (bool, error)
	// Write stores the ruleset only if no file exists yet. It reports false
	// when another file was already in place.
	Write(ctx context.Context, ruleset entity.Ruleset) (bool, error)
}
