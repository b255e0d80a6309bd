// Package prorrateo implements the management-accounting cost-allocation
// engine: global-account rules, shared-services redistribution, and the
// two-stage factory transfer-pricing step, all applied over a filtered
// ledger slice.
package prorrateo

// RuleKind identifies how a global account is redistributed.
type RuleKind string

const (
	// KindVentasSucursal redistributes proportionally to each cost
	// center's sales for the period.
	KindVentasSucursal RuleKind = "VENTAS_SUCURSAL"
	// KindManualSucursal redistributes using an explicit per-period
	// percentage map.
	KindManualSucursal RuleKind = "MANUAL_SUCURSAL"
)

// AccountRule is a global allocation rule keyed by account name.
type AccountRule struct {
	AccountName string   `json:"-"`
	Kind        RuleKind `json:"tipo"`
	Active      bool     `json:"activo"`
}

// PeriodRuleSet groups the percentage maps defined for one period.
// Fraction maps are account name -> cost center -> fraction; writers
// guarantee each map sums to 1.0 within tolerance.
type PeriodRuleSet struct {
	ServGenerales   map[string]map[string]float64 `json:"serv_generales"`
	CuentasGlobales map[string]map[string]float64 `json:"cuentas_globales"`
}

// CosteoPeriodo carries factory production volumes for one period.
type CosteoPeriodo struct {
	ProducedUnits  float64 `json:"unidades_producidas"`
	PurchasedUnits float64 `json:"unidades_compradas"`
}

/// FactoryConfig governs the transfer-pricing step: how much of each expense
// account moves out of Costanera, per period.
type FactoryConfig struct {
	CosteoPeriodos      map[string]CosteoPeriodo      `json:"costeo_periodos"`
	CostaneraProrrateos map[string]map[string]float64 `json:"costanera_prorrateos"`
}

// Config aggregates every allocation rule the engine consumes.
type Config struct {
	AccountRules map[string]AccountRule   `json:"config_cuentas"`
	PeriodRules  map[string]PeriodRuleSet `json:"reglas_mensuales"`
	Factory      FactoryConfig            `json:"-"`
}

// Switches toggles the optional allocation stages per report invocation.
type Switches struct {
	RedistributeSharedServices bool
	ApplyFactoryTransfer       bool
}

// Row is a reallocated pseudo-ledger row: a copy of an input entry with the
// cost center and/or amount replaced by the allocation chain. Amounts use
// the management convention (income positive, expense negative).
type Row struct {
	Period      string  `json:"periodo"`
	AccountCode string  `json:"cuenta"`
	AccountName string  `json:"nombre_cuenta"`
	CostCenter  string  `json:"centro_costo"`
	Amount      float64 `json:"monto"`
}

// NewConfig returns a Config with every map initialised.
func NewConfig() Config {
	return Config{
		AccountRules: make(map[string]AccountRule),
		PeriodRules:  make(map[string]PeriodRuleSet),
		Factory:      NewFactoryConfig(),
	}
}

// NewFactoryConfig returns a FactoryConfig with every map initialised.
func NewFactoryConfig() FactoryConfig {
	return FactoryConfig{
		CosteoPeriodos:      make(map[string]CosteoPeriodo),
		CostaneraProrrateos: make(map[string]map[string]float64),
	}
}

// Normalize defaults missing maps and clamps every fraction to [0,1].
// It is applied when configuration is loaded, so the engine can trust its
// input without re-validating.
func (c *Config) Normalize() {
	if c.AccountRules == nil {
		c.AccountRules = make(map[string]AccountRule)
	}
	for name, rule := range c.AccountRules {
		rule.AccountName = name
		c.AccountRules[name] = rule
	}
	if c.PeriodRules == nil {
		c.PeriodRules = make(map[string]PeriodRuleSet)
	}
	for period, rs := range c.PeriodRules {
		rs.ServGenerales = clampFractionMaps(rs.ServGenerales)
		rs.CuentasGlobales = clampFractionMaps(rs.CuentasGlobales)
		c.PeriodRules[period] = rs
	}
	c.Factory.Normalize()
}

// Normalize defaults missing maps and clamps transfer fractions to [0,1].
func (f *FactoryConfig) Normalize() {
	if f.CosteoPeriodos == nil {
		f.CosteoPeriodos = make(map[string]CosteoPeriodo)
	}
	if f.CostaneraProrrateos == nil {
		f.CostaneraProrrateos = make(map[string]map[string]float64)
	}
	for period, byAccount := range f.CostaneraProrrateos {
		for account, fraction := range byAccount {
			byAccount[account] = clampFraction(fraction)
		}
		f.CostaneraProrrateos[period] = byAccount
	}
}

func clampFractionMaps(byKey map[string]map[string]float64) map[string]map[string]float64 {
	if byKey == nil {
		return make(map[string]map[string]float64)
	}
	for key, fractions := range byKey {
		for dest, fraction := range fractions {
			fractions[dest] = clampFraction(fraction)
		}
		byKey[key] = fractions
	}
	return byKey
}

func clampFraction(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
