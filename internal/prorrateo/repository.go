package prorrateo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Document names inside config_documentos.
const (
	docProrrateo = "prorrateo"
	docCosteo    = "costeo"
)

// Repository persists the allocation configuration as JSON documents.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs the repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Load reads both configuration documents and returns a normalised Config.
// Missing documents yield empty defaults, never an error.
func (r *Repository) Load(ctx context.Context) (Config, error) {
	cfg := NewConfig()
	if r == nil || r.pool == nil {
		return cfg, errors.New("prorrateo: repository not initialised")
	}
	if _, err := r.loadDocument(ctx, docProrrateo, &cfg); err != nil {
		return cfg, err
	}
	if _, err := r.loadDocument(ctx, docCosteo, &cfg.Factory); err != nil {
		return cfg, err
	}
	cfg.Normalize()
	return cfg, nil
}

// SaveAllocation persists account rules and per-period rule sets.
func (r *Repository) SaveAllocation(ctx context.Context, accountRules map[string]AccountRule, periodRules map[string]PeriodRuleSet) error {
	doc := Config{AccountRules: accountRules, PeriodRules: periodRules}
	return r.saveDocument(ctx, docProrrateo, doc)
}

// SaveFactory persists the factory transfer configuration.
func (r *Repository) SaveFactory(ctx context.Context, factory FactoryConfig) error {
	return r.saveDocument(ctx, docCosteo, factory)
}

func (r *Repository) loadDocument(ctx context.Context, name string, dest any) (bool, error) {
	var raw []byte
	err := r.pool.QueryRow(ctx, `SELECT cuerpo FROM config_documentos WHERE nombre = $1`, name).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("prorrateo: load document %s: %w", name, err)
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, fmt.Errorf("prorrateo: decode document %s: %w", name, err)
	}
	return true, nil
}

func (r *Repository) saveDocument(ctx context.Context, name string, doc any) error {
	if r == nil || r.pool == nil {
		return errors.New("prorrateo: repository not initialised")
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("prorrateo: encode document %s: %w", name, err)
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO config_documentos (nombre, cuerpo, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (nombre) DO UPDATE SET cuerpo = EXCLUDED.cuerpo, updated_at = EXCLUDED.updated_at`,
		name, raw, time.Now())
	if err != nil {
		return fmt.Errorf("prorrateo: save document %s: %w", name, err)
	}
	return nil
}
