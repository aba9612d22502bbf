package usecase

import (
	"context"
	"fmt"

	"github.com/mhmdrz22/enginner/internal/core/domain"
	"github.com/mhmdrz22/enginner/internal/core/port"
)

// AdminService serves staff-only reporting.
type AdminService struct {
	overview port.OverviewRepository
}

// NewAdminService constructs an AdminService instance.
func NewAdminService(overview port.OverviewRepository) *AdminService {
	return &AdminService{overview: overview}
}

// Overview returns per-user task counts plus total and active user counts.
func (s *AdminService) Overview(ctx context.Context) (domain.Overview, error) {
	overview, err := s.overview.Overview(ctx)
	if err != nil {
		return domain.Overview{}, fmt.Errorf("admin overview: %w", err)
	}
	if overview.Users == nil {
		overview.Users = []domain.UserTaskStats{}
	}
	return overview, nil
}
