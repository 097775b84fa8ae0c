package roles

import (
	"context"

	"github.com/sitestack-erp/sitestack-erp/internal/perm"
)

// Service exposes role queries and seeding.
type Service struct {
	repo *Repository
}

// NewService constructs a Service.
func NewService(repo *Repository) *Service {
	return &Service{repo: repo}
}

// ListRoles returns all roles.
func (s *Service) ListRoles(ctx context.Context) ([]Role, error) {
	return s.repo.ListRoles(ctx)
}

// Sync writes the static role set from the permission engine configuration
// into the database. Run at startup so user rows can reference roles by name.
func (s *Service) Sync(ctx context.Context) error {
	return s.repo.SeedAll(ctx, perm.DefaultRoles())
}
