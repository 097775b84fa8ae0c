package roles

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sitestack-erp/sitestack-erp/internal/perm"
	"github.com/sitestack-erp/sitestack-erp/internal/platform/db"
)

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListRoles returns all roles.
func (r *Repository) ListRoles(ctx context.Context) ([]Role, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, description, wildcard, created_at, updated_at FROM roles ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []Role
	for rows.Next() {
		var role Role
		if err := rows.Scan(&role.ID, &role.Name, &role.Description, &role.Wildcard, &role.CreatedAt, &role.UpdatedAt); err != nil {
			return nil, err
		}
		list = append(list, role)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return list, nil
}

// SeedAll upserts the deployment role set in one transaction so a partial
// seed never becomes visible.
func (r *Repository) SeedAll(ctx context.Context, roles []perm.Role) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		for _, role := range roles {
			_, err := tx.Exec(ctx, `INSERT INTO roles (name, description, wildcard, created_at, updated_at)
VALUES ($1, $2, $3, NOW(), NOW())
ON CONFLICT (name) DO UPDATE SET description = EXCLUDED.description, wildcard = EXCLUDED.wildcard, updated_at = NOW()`,
				role.Name, role.Description, role.Wildcard)
			if err != nil {
				return err
			}
		}
		return nil
	})
}
