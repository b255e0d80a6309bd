package prorrateo

import (
	"math"
	"sort"
	"strings"

	"github.com/huentelauquen/backoffice/internal/ledger"
)

// Allocate applies the allocation rule chain to a pre-filtered ledger slice
// and returns the reallocated rows. For each input row the stages run in
// strict precedence: global-account rules, shared-services redistribution,
// factory transfer, pass-through. A stage that produces output finalises the
// row; every fallback (missing rule, zero revenue) degrades to pass-through,
// never to an error.
//
// Output order is deterministic: rows follow input order, and every split
// emits its destinations sorted by cost center.
func Allocate(entries []ledger.Entry, sw Switches, cfg Config) []Row {
	idx := buildIndex(entries)
	globals, servGenerales := rulesByPeriod(cfg.PeriodRules)

	out := make([]Row, 0, len(entries))
	for _, e := range entries {
		period := e.Period()
		amount := e.Amount()

		// Stage 1: global-account rules.
		if rule, ok := cfg.AccountRules[e.AccountName]; ok && rule.Active {
			switch rule.Kind {
			case KindVentasSucursal:
				if rows, ok := splitByRevenue(e, period, amount, idx); ok {
					out = append(out, rows...)
				} else {
					out = append(out, passthrough(e, period, amount))
				}
				continue
			case KindManualSucursal:
				if fractions, ok := lookupWithFallback(globals, period, e.AccountName); ok {
					out = append(out, splitByFractions(e, period, amount, fractions)...)
					continue
				}
				// No rule for this or any prior period: fail open
				// into the remaining stages.
			}
		}

		// Stage 2: shared-services redistribution.
		if sw.RedistributeSharedServices && MatchesServiciosGenerales(e.CostCenter) {
			if fractions, ok := lookupWithFallback(servGenerales, period, e.AccountName); ok {
				out = append(out, splitByFractions(e, period, amount, fractions)...)
				continue
			}
		}

		// Stage 3: factory transfer. Only evaluated when the sentinel
		// account shows movement for the period. The Costanera and
		// factory branches are mutually exclusive by pattern.
		if sw.ApplyFactoryTransfer && idx.factoryActive[period] {
			if MatchesCostanera(e.CostCenter) {
				out = append(out, transferFromCostanera(e, period, amount, idx, cfg.Factory)...)
				continue
			}
			if MatchesFabrica(e.CostCenter) {
				out = append(out, transferFromFactory(e, period, amount, idx)...)
				continue
			}
		}

		// Stage 4: pass-through.
		out = append(out, passthrough(e, period, amount))
	}
	return out
}

// periodIndex holds per-period aggregates precomputed from the input slice.
type periodIndex struct {
	// revenueByCenter keeps only centers whose period total is positive.
	revenueByCenter map[string]map[string]float64
	revenueTotal    map[string]float64
	// absorptionShare is each store's share of the absorption account,
	// normalised to sum to 1; empty when no store had positive revenue.
	absorptionShare map[string]map[string]float64
	factoryActive   map[string]bool
}

func buildIndex(entries []ledger.Entry) periodIndex {
	idx := periodIndex{
		revenueByCenter: make(map[string]map[string]float64),
		revenueTotal:    make(map[string]float64),
		absorptionShare: make(map[string]map[string]float64),
		factoryActive:   make(map[string]bool),
	}

	rawRevenue := make(map[string]map[string]float64)
	rawAbsorption := make(map[string]map[string]float64)
	for _, e := range entries {
		period := e.Period()
		amount := e.Amount()
		if strings.HasPrefix(e.AccountCode, RevenuePrefix) {
			if rawRevenue[period] == nil {
				rawRevenue[period] = make(map[string]float64)
			}
			rawRevenue[period][e.CostCenter] += amount
		}
		if e.AccountCode == AbsorptionAccount {
			if rawAbsorption[period] == nil {
				rawAbsorption[period] = make(map[string]float64)
			}
			rawAbsorption[period][e.CostCenter] += amount
		}
		if e.AccountCode == FactorySentinelAccount && math.Abs(amount) > factoryActivityFloor {
			idx.factoryActive[period] = true
		}
	}

	for period, byCenter := range rawRevenue {
		kept := make(map[string]float64)
		total := 0.0
		for center, revenue := range byCenter {
			if revenue > 0 {
				kept[center] = revenue
				total += revenue
			}
		}
		if len(kept) > 0 && total > 0 {
			idx.revenueByCenter[period] = kept
			idx.revenueTotal[period] = total
		}
	}

	for period, byCenter := range rawAbsorption {
		kept := make(map[string]float64)
		total := 0.0
		for center, revenue := range byCenter {
			if revenue > 0 {
				kept[center] = revenue
				total += revenue
			}
		}
		if len(kept) == 0 || total <= 0 {
			continue
		}
		shares := make(map[string]float64, len(kept))
		for center, revenue := range kept {
			shares[center] = revenue / total
		}
		idx.absorptionShare[period] = shares
	}

	return idx
}

// rulesByPeriod reshapes PeriodRules into the two per-concern lookup maps.
func rulesByPeriod(periodRules map[string]PeriodRuleSet) (globals, servGenerales map[string]map[string]map[string]float64) {
	globals = make(map[string]map[string]map[string]float64, len(periodRules))
	servGenerales = make(map[string]map[string]map[string]float64, len(periodRules))
	for period, rs := range periodRules {
		if len(rs.CuentasGlobales) > 0 {
			globals[period] = rs.CuentasGlobales
		}
		if len(rs.ServGenerales) > 0 {
			servGenerales[period] = rs.ServGenerales
		}
	}
	return globals, servGenerales
}

// lookupWithFallback resolves the value for the exact period, or the nearest
// period strictly before it that defines one. Never looks forward, never
// interpolates.
func lookupWithFallback[T any](byPeriod map[string]map[string]T, period, key string) (T, bool) {
	if rules, ok := byPeriod[period]; ok {
		if v, ok := rules[key]; ok {
			return v, true
		}
	}
	prior := make([]string, 0, len(byPeriod))
	for p := range byPeriod {
		if p < period {
			prior = append(prior, p)
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(prior)))
	for _, p := range prior {
		if v, ok := byPeriod[p][key]; ok {
			return v, true
		}
	}
	var zero T
	return zero, false
}

func passthrough(e ledger.Entry, period string, amount float64) Row {
	return Row{
		Period:      period,
		AccountCode: e.AccountCode,
		AccountName: e.AccountName,
		CostCenter:  e.CostCenter,
		Amount:      amount,
	}
}

// splitByRevenue distributes the amount across every cost center with
// positive revenue in the period, proportional to its revenue share. The
// second result is false when the period had no revenue at all.
func splitByRevenue(e ledger.Entry, period string, amount float64, idx periodIndex) ([]Row, bool) {
	total := idx.revenueTotal[period]
	byCenter := idx.revenueByCenter[period]
	if total <= 0 || len(byCenter) == 0 {
		return nil, false
	}
	rows := make([]Row, 0, len(byCenter))
	for _, center := range sortedKeys(byCenter) {
		rows = append(rows, Row{
			Period:      period,
			AccountCode: e.AccountCode,
			AccountName: e.AccountName,
			CostCenter:  center,
			Amount:      amount * (byCenter[center] / total),
		})
	}
	return rows, true
}

// splitByFractions distributes the amount using an explicit fraction map,
// one row per destination with a non-zero fraction.
func splitByFractions(e ledger.Entry, period string, amount float64, fractions map[string]float64) []Row {
	rows := make([]Row, 0, len(fractions))
	for _, center := range sortedKeys(fractions) {
		fraction := fractions[center]
		if fraction == 0 {
			continue
		}
		rows = append(rows, Row{
			Period:      period,
			AccountCode: e.AccountCode,
			AccountName: e.AccountName,
			CostCenter:  center,
			Amount:      amount * fraction,
		})
	}
	return rows
}

// transferFromCostanera moves a configured fraction of the row's amount out
// of Costanera into the stores that absorbed factory output. The original
// row is kept and a compensating adjustment makes the move zero-sum.
func transferFromCostanera(e ledger.Entry, period string, amount float64, idx periodIndex, factory FactoryConfig) []Row {
	fraction, ok := lookupWithFallback(factory.CostaneraProrrateos, period, e.AccountCode)
	if !ok || fraction == 0 {
		return []Row{passthrough(e, period, amount)}
	}

	transferred := amount * fraction
	rows := []Row{
		passthrough(e, period, amount),
		{
			Period:      period,
			AccountCode: e.AccountCode,
			AccountName: e.AccountName,
			CostCenter:  e.CostCenter,
			Amount:      -transferred,
		},
	}

	shares := idx.absorptionShare[period]
	if len(shares) == 0 {
		rows = append(rows, Row{
			Period:      period,
			AccountCode: FactorySentinelAccount,
			AccountName: e.AccountName + AbsorbedSuffix,
			CostCenter:  FactoryCostCenter,
			Amount:      transferred,
		})
		return rows
	}
	for _, store := range sortedKeys(shares) {
		rows = append(rows, Row{
			Period:      period,
			AccountCode: FactorySentinelAccount,
			AccountName: e.AccountName + AbsorbedSuffix,
			CostCenter:  store,
			Amount:      transferred * shares[store],
		})
	}
	return rows
}

// transferFromFactory re-emits a factory row split across stores by their
// absorption-account revenue share. With no share data the row passes
// through unmodified.
func transferFromFactory(e ledger.Entry, period string, amount float64, idx periodIndex) []Row {
	shares := idx.absorptionShare[period]
	if len(shares) == 0 {
		return []Row{passthrough(e, period, amount)}
	}
	rows := make([]Row, 0, len(shares))
	for _, store := range sortedKeys(shares) {
		rows = append(rows, Row{
			Period:      period,
			AccountCode: FactorySentinelAccount,
			AccountName: e.AccountName + AbsorbedSuffix,
			CostCenter:  store,
			Amount:      amount * shares[store],
		})
	}
	return rows
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
