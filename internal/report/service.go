package report

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/huentelauquen/backoffice/internal/classify"
	"github.com/huentelauquen/backoffice/internal/ledger"
	"github.com/huentelauquen/backoffice/internal/prorrateo"
)

// TotalEmpresa is the pseudo cost center meaning full consolidation.
const TotalEmpresa = "Total Empresa"

// Trend window sizes. WindowAnnual compares the latest period against the
// same month in the two preceding years.
const (
	WindowSix    = 6
	WindowTwelve = 12
	WindowAnnual = 3
)

// LedgerSource supplies the cached ledger dataset.
type LedgerSource interface {
	Get(ctx context.Context, dataset string) ([]ledger.Entry, time.Time, error)
}

// ConfigSource supplies the allocation configuration.
type ConfigSource interface {
	Load(ctx context.Context) (prorrateo.Config, error)
}

// GroupSource supplies the classification groups.
type GroupSource interface {
	List(ctx context.Context) ([]classify.Group, error)
}

// KPISummary compares the latest period against the same period one year prior.
type KPISummary struct {
	Period        string  `json:"periodo"`
	PriorPeriod   string  `json:"periodo_anterior"`
	Revenue       float64 `json:"ingresos"`
	PriorRevenue  float64 `json:"ingresos_anterior"`
	RevenueDelta  float64 `json:"ingresos_delta"`
	Margin        float64 `json:"margen"`
	PriorMargin   float64 `json:"margen_anterior"`
	MarginDelta   float64 `json:"margen_delta"`
	NetResult     float64 `json:"resultado"`
	PriorResult   float64 `json:"resultado_anterior"`
	ResultDelta   float64 `json:"resultado_delta"`
	LastRefreshed string  `json:"actualizado"`
}

// Service runs the allocation engine and assembles the three report profiles.
type Service struct {
	ledger  LedgerSource
	config  ConfigSource
	groups  GroupSource
	cache   *Cache
	dataset string
	logger  *slog.Logger
}

// NewService constructs the report service.
func NewService(ledgerSource LedgerSource, configSource ConfigSource, groupSource GroupSource, cache *Cache, dataset string, logger *slog.Logger) *Service {
	return &Service{
		ledger:  ledgerSource,
		config:  configSource,
		groups:  groupSource,
		cache:   cache,
		dataset: dataset,
		logger:  logger,
	}
}

// Statement builds the single-period statement broken out by cost center.
// An empty period means the latest period present in the ledger.
func (s *Service) Statement(ctx context.Context, period string, sw prorrateo.Switches) (Statement, error) {
	key, err := s.cache.BuildKey(ctx, "estado", period, switchToken(sw))
	if err != nil {
		return Statement{}, err
	}
	var stmt Statement
	err = s.cache.FetchJSON(ctx, key, &stmt, func(ctx context.Context) (any, error) {
		return s.buildStatement(ctx, period, sw)
	})
	if err != nil {
		return Statement{}, err
	}
	return stmt, nil
}

func (s *Service) buildStatement(ctx context.Context, period string, sw prorrateo.Switches) (Statement, error) {
	entries, _, err := s.ledger.Get(ctx, s.dataset)
	if err != nil {
		return Statement{}, fmt.Errorf("report: load ledger: %w", err)
	}
	entries = ledger.FilterByAccountPrefix(entries, "3", "4")
	if period == "" {
		period = ledger.LatestPeriod(entries)
	}
	if period == "" {
		return Statement{Mode: ByCostCenter, Columns: []string{}, Lines: []RenderedLine{}}, nil
	}
	entries = ledger.FilterByPeriod(entries, period)

	cfg, err := s.config.Load(ctx)
	if err != nil {
		return Statement{}, fmt.Errorf("report: load config: %w", err)
	}
	groups, err := s.groups.List(ctx)
	if err != nil {
		return Statement{}, fmt.Errorf("report: load groups: %w", err)
	}

	rows := prorrateo.Allocate(entries, sw, cfg)
	return BuildStatement(BuildMatrix(rows, ByCostCenter), groups), nil
}

// Trend builds a multi-period statement for one cost center, or for the
// whole company when costCenter is TotalEmpresa or empty. The cost-center
// filter applies to the allocation output, so redistributed amounts land
// in the center that absorbed them.
func (s *Service) Trend(ctx context.Context, costCenter string, window int, annual bool, sw prorrateo.Switches) (Statement, error) {
	key, err := s.cache.BuildKey(ctx, "tendencia", costCenter, strconv.Itoa(window), strconv.FormatBool(annual), switchToken(sw))
	if err != nil {
		return Statement{}, err
	}
	var stmt Statement
	err = s.cache.FetchJSON(ctx, key, &stmt, func(ctx context.Context) (any, error) {
		return s.buildTrend(ctx, costCenter, window, annual, sw)
	})
	if err != nil {
		return Statement{}, err
	}
	return stmt, nil
}

func (s *Service) buildTrend(ctx context.Context, costCenter string, window int, annual bool, sw prorrateo.Switches) (Statement, error) {
	entries, _, err := s.ledger.Get(ctx, s.dataset)
	if err != nil {
		return Statement{}, fmt.Errorf("report: load ledger: %w", err)
	}
	entries = ledger.FilterByAccountPrefix(entries, "3", "4")

	periods := trendPeriods(ledger.Periods(entries), window, annual)
	if len(periods) == 0 {
		return Statement{Mode: ByPeriod, Columns: []string{}, Lines: []RenderedLine{}}, nil
	}
	entries = ledger.FilterByPeriods(entries, periods)

	cfg, err := s.config.Load(ctx)
	if err != nil {
		return Statement{}, fmt.Errorf("report: load config: %w", err)
	}
	groups, err := s.groups.List(ctx)
	if err != nil {
		return Statement{}, fmt.Errorf("report: load groups: %w", err)
	}

	rows := prorrateo.Allocate(entries, sw, cfg)
	if costCenter != "" && costCenter != TotalEmpresa {
		rows = filterRowsByCostCenter(rows, costCenter)
	}
	return BuildStatement(BuildMatrix(rows, ByPeriod), groups), nil
}

// KPIs compares the latest period against the same period one year prior,
// with both allocation switches on.
func (s *Service) KPIs(ctx context.Context) (KPISummary, error) {
	key, err := s.cache.BuildKey(ctx, "kpi")
	if err != nil {
		return KPISummary{}, err
	}
	var summary KPISummary
	err = s.cache.FetchJSON(ctx, key, &summary, func(ctx context.Context) (any, error) {
		return s.buildKPIs(ctx)
	})
	if err != nil {
		return KPISummary{}, err
	}
	return summary, nil
}

func (s *Service) buildKPIs(ctx context.Context) (KPISummary, error) {
	entries, refreshed, err := s.ledger.Get(ctx, s.dataset)
	if err != nil {
		return KPISummary{}, fmt.Errorf("report: load ledger: %w", err)
	}
	entries = ledger.FilterByAccountPrefix(entries, "3", "4")

	latest := ledger.LatestPeriod(entries)
	if latest == "" {
		return KPISummary{}, nil
	}
	prior := yearPrior(latest)

	cfg, err := s.config.Load(ctx)
	if err != nil {
		return KPISummary{}, fmt.Errorf("report: load config: %w", err)
	}
	groups, err := s.groups.List(ctx)
	if err != nil {
		return KPISummary{}, fmt.Errorf("report: load groups: %w", err)
	}

	sw := prorrateo.Switches{RedistributeSharedServices: true, ApplyFactoryTransfer: true}
	rows := prorrateo.Allocate(ledger.FilterByPeriods(entries, []string{latest, prior}), sw, cfg)
	stmt := BuildStatement(BuildMatrix(rows, ByPeriod), groups)

	summary := KPISummary{Period: latest, PriorPeriod: prior, LastRefreshed: refreshed.Format(time.RFC3339)}
	for _, line := range stmt.Lines {
		switch line.ID {
		case "ingresos":
			summary.Revenue = line.Amounts[latest]
			summary.PriorRevenue = line.Amounts[prior]
		case "margen":
			summary.Margin = line.Amounts[latest]
			summary.PriorMargin = line.Amounts[prior]
		case "resultado_final":
			summary.NetResult = line.Amounts[latest]
			summary.PriorResult = line.Amounts[prior]
		}
	}
	summary.RevenueDelta = summary.Revenue - summary.PriorRevenue
	summary.MarginDelta = summary.Margin - summary.PriorMargin
	summary.ResultDelta = summary.NetResult - summary.PriorResult
	return summary, nil
}

// trendPeriods picks the report columns from the available periods. Annual
// mode takes the latest period plus the same month one and two years back,
// keeping only those actually present in the ledger.
func trendPeriods(available []string, window int, annual bool) []string {
	if len(available) == 0 {
		return nil
	}
	if annual {
		latest := available[len(available)-1]
		wanted := map[string]struct{}{latest: {}, yearPrior(latest): {}, yearPrior(yearPrior(latest)): {}}
		var out []string
		for _, p := range available {
			if _, ok := wanted[p]; ok {
				out = append(out, p)
			}
		}
		return out
	}
	if window <= 0 {
		window = WindowTwelve
	}
	if window > len(available) {
		window = len(available)
	}
	out := make([]string, window)
	copy(out, available[len(available)-window:])
	return out
}

// yearPrior shifts a YYYY-MM period back twelve months.
func yearPrior(period string) string {
	t, err := time.Parse("2006-01", period)
	if err != nil {
		return ""
	}
	return t.AddDate(-1, 0, 0).Format("2006-01")
}

func filterRowsByCostCenter(rows []prorrateo.Row, costCenter string) []prorrateo.Row {
	out := make([]prorrateo.Row, 0, len(rows))
	for _, row := range rows {
		if row.CostCenter == costCenter {
			out = append(out, row)
		}
	}
	return out
}

// switchToken encodes the switch pair for cache keys.
func switchToken(sw prorrateo.Switches) string {
	token := []byte{'0', '0'}
	if sw.RedistributeSharedServices {
		token[0] = '1'
	}
	if sw.ApplyFactoryTransfer {
		token[1] = '1'
	}
	return string(token)
}
