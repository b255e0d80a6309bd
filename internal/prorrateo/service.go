package prorrateo

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"regexp"
	"sort"

	"github.com/go-playground/validator/v10"

	"github.com/huentelauquen/backoffice/internal/platform/httpx"
)

// fractionTolerance bounds how far a fraction map may drift from 1.0 at
// write time. The engine itself trusts persisted maps.
const fractionTolerance = 0.001

var periodPattern = regexp.MustCompile(`^\d{4}-\d{2}$`)

// ConfigRepository abstracts persistence of the configuration documents.
type ConfigRepository interface {
	Load(ctx context.Context) (Config, error)
	SaveAllocation(ctx context.Context, accountRules map[string]AccountRule, periodRules map[string]PeriodRuleSet) error
	SaveFactory(ctx context.Context, factory FactoryConfig) error
}

// CacheBumper invalidates downstream report caches after a write.
type CacheBumper interface {
	Bump(ctx context.Context) error
}

// AccountRuleInput is the write shape of a global account rule.
type AccountRuleInput struct {
	Kind   string `json:"tipo" validate:"required,oneof=VENTAS_SUCURSAL MANUAL_SUCURSAL"`
	Active bool   `json:"activo"`
}

// PeriodRuleSetInput is the write shape of one period's rule sets.
type PeriodRuleSetInput struct {
	ServGenerales   map[string]map[string]float64 `json:"serv_generales"`
	CuentasGlobales map[string]map[string]float64 `json:"cuentas_globales"`
}

// AllocationInput is the write payload for the prorrateo document.
type AllocationInput struct {
	AccountRules map[string]AccountRuleInput   `json:"config_cuentas" validate:"dive"`
	PeriodRules  map[string]PeriodRuleSetInput `json:"reglas_mensuales"`
}

// CosteoPeriodoInput is the write shape of one period's production volumes.
type CosteoPeriodoInput struct {
	ProducedUnits  float64 `json:"unidades_producidas" validate:"gte=0"`
	PurchasedUnits float64 `json:"unidades_compradas" validate:"gte=0"`
}

// FactoryInput is the write payload for the costeo document.
type FactoryInput struct {
	CosteoPeriodos      map[string]CosteoPeriodoInput `json:"costeo_periodos" validate:"dive"`
	CostaneraProrrateos map[string]map[string]float64 `json:"costanera_prorrateos"`
}

// Service validates and persists the allocation configuration.
type Service struct {
	repo     ConfigRepository
	bumper   CacheBumper
	validate *validator.Validate
	logger   *slog.Logger
}

// NewService constructs the configuration service.
func NewService(repo ConfigRepository, bumper CacheBumper, logger *slog.Logger) *Service {
	return &Service{repo: repo, bumper: bumper, validate: validator.New(), logger: logger}
}

// Load returns the current allocation configuration with defaults applied.
func (s *Service) Load(ctx context.Context) (Config, error) {
	if s == nil || s.repo == nil {
		return NewConfig(), fmt.Errorf("prorrateo: service not initialised")
	}
	return s.repo.Load(ctx)
}

// UpdateAllocation validates and persists the prorrateo document. Every
// fraction map must sum to 1.0 within tolerance; period keys must be YYYY-MM.
func (s *Service) UpdateAllocation(ctx context.Context, input AllocationInput) error {
	if err := s.validate.Struct(input); err != nil {
		return fmt.Errorf("%w: %v", httpx.ErrValidation, err)
	}
	for period, rs := range input.PeriodRules {
		if !periodPattern.MatchString(period) {
			return fmt.Errorf("%w: periodo %q invalido", httpx.ErrValidation, period)
		}
		if err := checkFractionMaps(period, "serv_generales", rs.ServGenerales); err != nil {
			return err
		}
		if err := checkFractionMaps(period, "cuentas_globales", rs.CuentasGlobales); err != nil {
			return err
		}
	}

	accountRules := make(map[string]AccountRule, len(input.AccountRules))
	for name, rule := range input.AccountRules {
		accountRules[name] = AccountRule{AccountName: name, Kind: RuleKind(rule.Kind), Active: rule.Active}
	}
	periodRules := make(map[string]PeriodRuleSet, len(input.PeriodRules))
	for period, rs := range input.PeriodRules {
		periodRules[period] = PeriodRuleSet{ServGenerales: rs.ServGenerales, CuentasGlobales: rs.CuentasGlobales}
	}

	if err := s.repo.SaveAllocation(ctx, accountRules, periodRules); err != nil {
		return err
	}
	s.bump(ctx)
	return nil
}

// UpdateFactory validates and persists the costeo document. Transfer
// fractions must already be within [0,1].
func (s *Service) UpdateFactory(ctx context.Context, input FactoryInput) error {
	if err := s.validate.Struct(input); err != nil {
		return fmt.Errorf("%w: %v", httpx.ErrValidation, err)
	}
	for period, byAccount := range input.CostaneraProrrateos {
		if !periodPattern.MatchString(period) {
			return fmt.Errorf("%w: periodo %q invalido", httpx.ErrValidation, period)
		}
		for account, fraction := range byAccount {
			if fraction < 0 || fraction > 1 {
				return fmt.Errorf("%w: fraccion fuera de rango para cuenta %s en %s", httpx.ErrValidation, account, period)
			}
		}
	}
	for period := range input.CosteoPeriodos {
		if !periodPattern.MatchString(period) {
			return fmt.Errorf("%w: periodo %q invalido", httpx.ErrValidation, period)
		}
	}

	factory := NewFactoryConfig()
	for period, volumes := range input.CosteoPeriodos {
		factory.CosteoPeriodos[period] = CosteoPeriodo{ProducedUnits: volumes.ProducedUnits, PurchasedUnits: volumes.PurchasedUnits}
	}
	for period, byAccount := range input.CostaneraProrrateos {
		factory.CostaneraProrrateos[period] = byAccount
	}

	if err := s.repo.SaveFactory(ctx, factory); err != nil {
		return err
	}
	s.bump(ctx)
	return nil
}

func (s *Service) bump(ctx context.Context) {
	if s.bumper == nil {
		return
	}
	if err := s.bumper.Bump(ctx); err != nil && s.logger != nil {
		s.logger.Warn("bump report cache", slog.Any("error", err))
	}
}

func checkFractionMaps(period, concern string, byKey map[string]map[string]float64) error {
	keys := make([]string, 0, len(byKey))
	for k := range byKey {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, key := range keys {
		sum := 0.0
		for _, fraction := range byKey[key] {
			sum += fraction
		}
		if math.Abs(sum-1.0) > fractionTolerance {
			return fmt.Errorf("%w: %s[%s] en %s suma %.4f, debe sumar 1.0", httpx.ErrValidation, concern, key, period, sum)
		}
	}
	return nil
}
