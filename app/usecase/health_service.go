package usecase

import (
	"context"
	"time"

	"bpmnvalidator/internal/domain/entity"
	"bpmnvalidator/internal/domain/repository"
)

type HealthUsecase interface {
	Check(ctx context.Context) entity.Health
}

var _ HealthUsecase = (*HealthService)(nil)

type HealthService struct {
	linter repository.Linter
	now    func() time.Time
}

func NewHealthService(linter repository.Linter) *HealthService {
	return &HealthService{
		linter: linter,
		now:    time.Now,
	}
}

// Check always reports the process as healthy; a missing linter only clears
// the availability flag.
func (s *HealthService) Check(ctx context.Context) entity.Health {
	return entity.Health{
		Status:            entity.HealthStatusHealthy,
		BpmnlintAvailable: s.linter.Available(),
		Timestamp:         s.now().UTC(),
	}
}
