package classify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-playground/validator/v10"

	"github.com/huentelauquen/backoffice/internal/platform/httpx"
)

// GroupRepository abstracts group persistence.
type GroupRepository interface {
	List(ctx context.Context) ([]Group, error)
	ReplaceAll(ctx context.Context, groups []Group) error
}

// CacheBumper invalidates downstream report caches after a write.
type CacheBumper interface {
	Bump(ctx context.Context) error
}

// GroupInput is the write shape of one classification group.
type GroupInput struct {
	ID            string   `json:"id" validate:"required"`
	Name          string   `json:"nombre" validate:"required"`
	MacroCategory string   `json:"macro_categoria" validate:"required"`
	Kind          string   `json:"tipo" validate:"required,oneof=INGRESO GASTO"`
	AccountCodes  []string `json:"cuentas" validate:"required,min=1,dive,required"`
}

// Service validates and persists classification groups.
type Service struct {
	repo     GroupRepository
	bumper   CacheBumper
	validate *validator.Validate
	logger   *slog.Logger
}

// NewService constructs the classification service.
func NewService(repo GroupRepository, bumper CacheBumper, logger *slog.Logger) *Service {
	return &Service{repo: repo, bumper: bumper, validate: validator.New(), logger: logger}
}

// List returns the current classification groups.
func (s *Service) List(ctx context.Context) ([]Group, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("classify: service not initialised")
	}
	return s.repo.List(ctx)
}

// Replace validates and swaps the full group set. An account code may
// belong to at most one group.
func (s *Service) Replace(ctx context.Context, inputs []GroupInput) error {
	seenID := make(map[string]struct{}, len(inputs))
	seenCode := make(map[string]string)
	groups := make([]Group, 0, len(inputs))
	for _, input := range inputs {
		if err := s.validate.Struct(input); err != nil {
			return fmt.Errorf("%w: %v", httpx.ErrValidation, err)
		}
		if _, ok := seenID[input.ID]; ok {
			return fmt.Errorf("%w: grupo %s repetido", httpx.ErrValidation, input.ID)
		}
		seenID[input.ID] = struct{}{}
		for _, code := range input.AccountCodes {
			if owner, ok := seenCode[code]; ok {
				return fmt.Errorf("%w: cuenta %s asignada a %s y %s", httpx.ErrValidation, code, owner, input.ID)
			}
			seenCode[code] = input.ID
		}
		groups = append(groups, Group{
			ID:            input.ID,
			Name:          input.Name,
			MacroCategory: input.MacroCategory,
			Kind:          GroupKind(input.Kind),
			AccountCodes:  input.AccountCodes,
		})
	}

	if err := s.repo.ReplaceAll(ctx, groups); err != nil {
		return err
	}
	if s.bumper != nil {
		if err := s.bumper.Bump(ctx); err != nil && s.logger != nil {
			s.logger.Warn("bump report cache", slog.Any("error", err))
		}
	}
	return nil
}
