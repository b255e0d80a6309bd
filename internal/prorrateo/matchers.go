package prorrateo

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Sentinel accounts and cost centers used by the allocation chain. They are
// fixed by the chart of accounts, not configurable.
const (
	// RevenuePrefix marks operating revenue accounts.
	RevenuePrefix = "41"
	// FactorySentinelAccount signals factory activity for a period.
	FactorySentinelAccount = "3101002"
	// AbsorptionAccount is the revenue account whose per-store share
	// distributes transferred factory costs.
	AbsorptionAccount = "4101004"
	// FactoryCostCenter receives transferred costs when no store sold the
	// absorption account in the period.
	FactoryCostCenter = "Fca de Empanadas"
	// AbsorbedSuffix tags rows created by the factory transfer.
	AbsorbedSuffix = " (Absorbido Fca)"

	// factoryActivityFloor is the minimum absolute movement on the
	// sentinel account for the factory to count as active.
	factoryActivityFloor = 1.0
)

// Cost-center name patterns. Matching is case- and accent-insensitive, so
// "Fábrica" and "FABRICA CENTRAL" both hit the factory pattern. The patterns
// below are the single auditable matching table.
var (
	patternServiciosGenerales = []string{"servicios generales"}
	patternCostanera          = []string{"costanera"}
	patternFabrica            = []string{"fca", "fabrica"}
)

var stripAccents = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

func normalizeCostCenter(name string) string {
	clean, _, err := transform.String(stripAccents, name)
	if err != nil {
		clean = name
	}
	return strings.ToLower(strings.TrimSpace(clean))
}

func matchesAny(name string, patterns []string) bool {
	normalized := normalizeCostCenter(name)
	for _, p := range patterns {
		if strings.Contains(normalized, p) {
			return true
		}
	}
	return false
}

// MatchesServiciosGenerales reports whether the cost center is the shared
// services pool.
func MatchesServiciosGenerales(costCenter string) bool {
	return matchesAny(costCenter, patternServiciosGenerales)
}

// MatchesCostanera reports whether the cost center is the Costanera unit.
func MatchesCostanera(costCenter string) bool {
	return matchesAny(costCenter, patternCostanera)
}

// MatchesFabrica reports whether the cost center is the factory.
func MatchesFabrica(costCenter string) bool {
	return matchesAny(costCenter, patternFabrica)
}
