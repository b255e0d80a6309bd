package ledger

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository loads ledger rows from PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs the repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Rows returns every usable entry of the named dataset. Rows missing any of
// the mandatory fields are dropped by the query, per the loader contract.
func (r *Repository) Rows(ctx context.Context, dataset string) ([]Entry, error) {
	if r == nil || r.pool == nil {
		return nil, fmt.Errorf("ledger: repository not initialised")
	}
	const query = `
		SELECT fecha, cuenta, nombre_cuenta, centro_costo,
		       COALESCE(debe, 0), COALESCE(haber, 0), COALESCE(glosa, '')
		FROM libro_mayor
		WHERE conjunto = $1
		  AND fecha IS NOT NULL
		  AND cuenta IS NOT NULL
		  AND nombre_cuenta IS NOT NULL
		  AND centro_costo IS NOT NULL
		ORDER BY fecha, cuenta, centro_costo`

	rows, err := r.pool.Query(ctx, query, dataset)
	if err != nil {
		return nil, fmt.Errorf("ledger: query rows: %w", err)
	}
	defer rows.Close()

	entries := make([]Entry, 0, 1024)
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Date, &e.AccountCode, &e.AccountName, &e.CostCenter, &e.Debit, &e.Credit, &e.Concept); err != nil {
			return nil, fmt.Errorf("ledger: scan row: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ledger: iterate rows: %w", err)
	}
	return entries, nil
}
