package classify

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/huentelauquen/backoffice/internal/platform/httpx"
)

// Repository persists classification groups in Postgres.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a classification repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// List returns all classification groups ordered by macro category and name.
func (r *Repository) List(ctx context.Context) ([]Group, error) {
	if r == nil || r.pool == nil {
		return nil, fmt.Errorf("classify: repository not initialised")
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, nombre, macro_categoria, tipo, cuentas
		FROM clasificacion_grupos
		ORDER BY macro_categoria, nombre`)
	if err != nil {
		return nil, fmt.Errorf("classify: list groups: %w", err)
	}
	defer rows.Close()

	var groups []Group
	for rows.Next() {
		var g Group
		var kind string
		if err := rows.Scan(&g.ID, &g.Name, &g.MacroCategory, &kind, &g.AccountCodes); err != nil {
			return nil, fmt.Errorf("classify: scan group: %w", err)
		}
		g.Kind = GroupKind(kind)
		groups = append(groups, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("classify: iterate groups: %w", err)
	}
	return groups, nil
}

// ReplaceAll swaps the full group set atomically.
func (r *Repository) ReplaceAll(ctx context.Context, groups []Group) error {
	if r == nil || r.pool == nil {
		return fmt.Errorf("classify: repository not initialised")
	}
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("classify: begin replace: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM clasificacion_grupos`); err != nil {
		return fmt.Errorf("classify: clear groups: %w", err)
	}
	for _, g := range groups {
		_, err := tx.Exec(ctx, `
			INSERT INTO clasificacion_grupos (id, nombre, macro_categoria, tipo, cuentas)
			VALUES ($1, $2, $3, $4, $5)`,
			g.ID, g.Name, g.MacroCategory, string(g.Kind), g.AccountCodes)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "23505" {
				return fmt.Errorf("%w: grupo %s duplicado", httpx.ErrDuplicate, g.ID)
			}
			return fmt.Errorf("classify: insert group %s: %w", g.ID, err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("classify: commit replace: %w", err)
	}
	return nil
}
