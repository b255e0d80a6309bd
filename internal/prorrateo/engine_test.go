package prorrateo

import (
	"math"
	"testing"
	"time"

	"github.com/huentelauquen/backoffice/internal/ledger"
)

func entry(day, code, name, costCenter string, debit, credit float64) ledger.Entry {
	date, err := time.Parse("2006-01-02", day)
	if err != nil {
		panic(err)
	}
	return ledger.Entry{
		Date:        date,
		AccountCode: code,
		AccountName: name,
		CostCenter:  costCenter,
		Debit:       debit,
		Credit:      credit,
	}
}

func sumRows(rows []Row) float64 {
	total := 0.0
	for _, r := range rows {
		total += r.Amount
	}
	return total
}

func sumByCenter(rows []Row) map[string]float64 {
	totals := make(map[string]float64)
	for _, r := range rows {
		totals[r.CostCenter] += r.Amount
	}
	return totals
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestAllocatePassthroughConservation(t *testing.T) {
	entries := []ledger.Entry{
		entry("2025-06-05", "3101001", "Harina", "Centro A", 120000, 0),
		entry("2025-06-10", "4101001", "Ventas Centro A", "Centro A", 0, 500000),
		entry("2025-06-12", "3202001", "Luz", "Servicios Generales", 80000, 0),
	}
	rows := Allocate(entries, Switches{}, NewConfig())
	if len(rows) != len(entries) {
		t.Fatalf("expected %d rows, got %d", len(entries), len(rows))
	}
	want := 0.0
	for _, e := range entries {
		want += e.Amount()
	}
	if !almostEqual(sumRows(rows), want) {
		t.Fatalf("total not conserved: got %f want %f", sumRows(rows), want)
	}
	if rows[2].CostCenter != "Servicios Generales" {
		t.Fatalf("shared services row moved with switch off: %+v", rows[2])
	}
}

func TestAllocateVentasSucursalRevenueShare(t *testing.T) {
	cfg := NewConfig()
	cfg.AccountRules["Publicidad"] = AccountRule{AccountName: "Publicidad", Kind: KindVentasSucursal, Active: true}

	entries := []ledger.Entry{
		entry("2025-06-01", "4101001", "Ventas A", "Centro A", 0, 600000),
		entry("2025-06-01", "4101001", "Ventas B", "Centro B", 0, 400000),
		entry("2025-06-15", "3305001", "Publicidad", "Casa Matriz", 1000, 0),
	}
	rows := Allocate(entries, Switches{}, cfg)

	totals := sumByCenter(rows)
	// 600000 revenue + the -600 split share.
	if !almostEqual(totals["Centro A"], 600000-600) {
		t.Fatalf("Centro A got %f", totals["Centro A"])
	}
	if !almostEqual(totals["Centro B"], 400000-400) {
		t.Fatalf("Centro B got %f", totals["Centro B"])
	}
	if got, ok := totals["Casa Matriz"]; ok && got != 0 {
		t.Fatalf("origin center should keep nothing, got %f", got)
	}
}

func TestAllocateVentasSucursalZeroRevenuePassthrough(t *testing.T) {
	cfg := NewConfig()
	cfg.AccountRules["Publicidad"] = AccountRule{AccountName: "Publicidad", Kind: KindVentasSucursal, Active: true}

	entries := []ledger.Entry{
		entry("2025-06-15", "3305001", "Publicidad", "Casa Matriz", 1000, 0),
	}
	rows := Allocate(entries, Switches{}, cfg)
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	if rows[0].CostCenter != "Casa Matriz" || !almostEqual(rows[0].Amount, -1000) {
		t.Fatalf("expected unchanged passthrough, got %+v", rows[0])
	}
}

func TestAllocateManualSucursalTemporalFallback(t *testing.T) {
	cfg := NewConfig()
	cfg.AccountRules["Arriendo Central"] = AccountRule{AccountName: "Arriendo Central", Kind: KindManualSucursal, Active: true}
	cfg.PeriodRules["2025-01"] = PeriodRuleSet{
		CuentasGlobales: map[string]map[string]float64{
			"Arriendo Central": {"Centro A": 0.7, "Centro B": 0.3},
		},
	}

	entries := []ledger.Entry{
		entry("2025-03-10", "3201001", "Arriendo Central", "Casa Matriz", 1000, 0),
	}
	rows := Allocate(entries, Switches{}, cfg)
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	totals := sumByCenter(rows)
	if !almostEqual(totals["Centro A"], -700) || !almostEqual(totals["Centro B"], -300) {
		t.Fatalf("fallback split wrong: %+v", totals)
	}
}

func TestAllocateManualSucursalNoRuleFailsOpen(t *testing.T) {
	cfg := NewConfig()
	cfg.AccountRules["Arriendo Central"] = AccountRule{AccountName: "Arriendo Central", Kind: KindManualSucursal, Active: true}
	// Rule exists only for a later period; fallback never looks forward.
	cfg.PeriodRules["2025-09"] = PeriodRuleSet{
		CuentasGlobales: map[string]map[string]float64{
			"Arriendo Central": {"Centro A": 1.0},
		},
	}

	entries := []ledger.Entry{
		entry("2025-03-10", "3201001", "Arriendo Central", "Casa Matriz", 1000, 0),
	}
	rows := Allocate(entries, Switches{}, cfg)
	if len(rows) != 1 || rows[0].CostCenter != "Casa Matriz" {
		t.Fatalf("expected passthrough, got %+v", rows)
	}
}

func TestAllocateInactiveRuleIgnored(t *testing.T) {
	cfg := NewConfig()
	cfg.AccountRules["Publicidad"] = AccountRule{AccountName: "Publicidad", Kind: KindVentasSucursal, Active: false}

	entries := []ledger.Entry{
		entry("2025-06-01", "4101001", "Ventas A", "Centro A", 0, 600000),
		entry("2025-06-15", "3305001", "Publicidad", "Casa Matriz", 1000, 0),
	}
	rows := Allocate(entries, Switches{}, cfg)
	totals := sumByCenter(rows)
	if !almostEqual(totals["Casa Matriz"], -1000) {
		t.Fatalf("inactive rule should pass through, got %+v", totals)
	}
}

func TestAllocateSharedServicesScenario(t *testing.T) {
	cfg := NewConfig()
	cfg.PeriodRules["2025-06"] = PeriodRuleSet{
		ServGenerales: map[string]map[string]float64{
			"Arriendo": {"Centro A": 0.5, "Centro B": 0.5},
		},
	}

	entries := []ledger.Entry{
		entry("2025-06-01", "3001", "Arriendo", "Servicios Generales", 100000, 0),
	}
	rows := Allocate(entries, Switches{RedistributeSharedServices: true}, cfg)
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	// Destinations sorted by cost center.
	if rows[0].CostCenter != "Centro A" || !almostEqual(rows[0].Amount, -50000) {
		t.Fatalf("row 0: %+v", rows[0])
	}
	if rows[1].CostCenter != "Centro B" || !almostEqual(rows[1].Amount, -50000) {
		t.Fatalf("row 1: %+v", rows[1])
	}
}

func TestAllocateSharedServicesTemporalFallback(t *testing.T) {
	cfg := NewConfig()
	cfg.PeriodRules["2025-04"] = PeriodRuleSet{
		ServGenerales: map[string]map[string]float64{
			"Arriendo": {"Centro A": 1.0},
		},
	}

	entries := []ledger.Entry{
		entry("2025-06-01", "3001", "Arriendo", "Servicios Generales", 100000, 0),
	}
	rows := Allocate(entries, Switches{RedistributeSharedServices: true}, cfg)
	if len(rows) != 1 || rows[0].CostCenter != "Centro A" || !almostEqual(rows[0].Amount, -100000) {
		t.Fatalf("expected full amount at Centro A via fallback, got %+v", rows)
	}
}

func TestAllocateSharedServicesNoRulePassthrough(t *testing.T) {
	entries := []ledger.Entry{
		entry("2025-06-01", "3001", "Arriendo", "Servicios Generales", 100000, 0),
	}
	rows := Allocate(entries, Switches{RedistributeSharedServices: true}, NewConfig())
	if len(rows) != 1 || rows[0].CostCenter != "Servicios Generales" {
		t.Fatalf("expected passthrough, got %+v", rows)
	}
}

func factoryFixture() ([]ledger.Entry, Config) {
	cfg := NewConfig()
	cfg.Factory.CostaneraProrrateos["2025-06"] = map[string]float64{"3401001": 0.3}

	entries := []ledger.Entry{
		// Sentinel movement makes the factory active this period. Kept in
		// a neutral center so only the Costanera branch is exercised.
		entry("2025-06-02", FactorySentinelAccount, "Traspaso Fca", "Casa Matriz", 500, 0),
		// Absorption revenue: Centro A 60%, Centro B 40%.
		entry("2025-06-03", AbsorptionAccount, "Venta Empanadas", "Centro A", 0, 600),
		entry("2025-06-03", AbsorptionAccount, "Venta Empanadas", "Centro B", 0, 400),
		// Costanera expense subject to the transfer fraction.
		entry("2025-06-04", "3401001", "Masa", "Fca Costanera", 1000, 0),
	}
	return entries, cfg
}

func TestAllocateFactoryTransferZeroSum(t *testing.T) {
	entries, cfg := factoryFixture()
	before := 0.0
	for _, e := range entries {
		before += e.Amount()
	}
	rows := Allocate(entries, Switches{ApplyFactoryTransfer: true}, cfg)
	if !almostEqual(sumRows(rows), before) {
		t.Fatalf("transfer not zero-sum: got %f want %f", sumRows(rows), before)
	}

	totals := sumByCenter(rows)
	// Costanera keeps -1000 plus the +300 adjustment.
	if !almostEqual(totals["Fca Costanera"], -700) {
		t.Fatalf("Costanera got %f", totals["Fca Costanera"])
	}
	// Stores absorb the transferred -300 on top of their revenue.
	if !almostEqual(totals["Centro A"], 600-180) {
		t.Fatalf("Centro A got %f", totals["Centro A"])
	}
	if !almostEqual(totals["Centro B"], 400-120) {
		t.Fatalf("Centro B got %f", totals["Centro B"])
	}
}

func TestAllocateFactoryTransferTagsAbsorbedRows(t *testing.T) {
	entries, cfg := factoryFixture()
	rows := Allocate(entries, Switches{ApplyFactoryTransfer: true}, cfg)

	var absorbed []Row
	for _, r := range rows {
		if r.AccountName == "Masa"+AbsorbedSuffix {
			absorbed = append(absorbed, r)
		}
	}
	if len(absorbed) != 2 {
		t.Fatalf("expected 2 absorbed rows, got %d", len(absorbed))
	}
	for _, r := range absorbed {
		if r.AccountCode != FactorySentinelAccount {
			t.Fatalf("absorbed row keeps wrong account: %+v", r)
		}
	}
}

func TestAllocateFactoryTransferNoAbsorptionFallsToFactory(t *testing.T) {
	cfg := NewConfig()
	cfg.Factory.CostaneraProrrateos["2025-06"] = map[string]float64{"3401001": 0.3}
	entries := []ledger.Entry{
		entry("2025-06-02", FactorySentinelAccount, "Traspaso Fca", "Fca de Empanadas", 500, 0),
		entry("2025-06-04", "3401001", "Masa", "Fca Costanera", 1000, 0),
	}
	rows := Allocate(entries, Switches{ApplyFactoryTransfer: true}, cfg)

	totals := sumByCenter(rows)
	if !almostEqual(totals[FactoryCostCenter], -500+(-300)) {
		t.Fatalf("factory center got %f", totals[FactoryCostCenter])
	}
	if !almostEqual(totals["Fca Costanera"], -700) {
		t.Fatalf("Costanera got %f", totals["Fca Costanera"])
	}
}

func TestAllocateFactoryGateRequiresSentinelMovement(t *testing.T) {
	cfg := NewConfig()
	cfg.Factory.CostaneraProrrateos["2025-06"] = map[string]float64{"3401001": 0.3}
	entries := []ledger.Entry{
		// Sentinel movement below the activity floor.
		entry("2025-06-02", FactorySentinelAccount, "Traspaso Fca", "Fca de Empanadas", 0.5, 0),
		entry("2025-06-04", "3401001", "Masa", "Fca Costanera", 1000, 0),
	}
	rows := Allocate(entries, Switches{ApplyFactoryTransfer: true}, cfg)
	totals := sumByCenter(rows)
	if !almostEqual(totals["Fca Costanera"], -1000) {
		t.Fatalf("transfer applied despite inactive factory: %+v", totals)
	}
}

func TestAllocateFactoryToStoresReemission(t *testing.T) {
	cfg := NewConfig()
	entries := []ledger.Entry{
		entry("2025-06-02", FactorySentinelAccount, "Traspaso Fca", "Fca de Empanadas", 500, 0),
		entry("2025-06-03", AbsorptionAccount, "Venta Empanadas", "Centro A", 0, 600),
		entry("2025-06-03", AbsorptionAccount, "Venta Empanadas", "Centro B", 0, 400),
		entry("2025-06-04", "3402001", "Sueldos Fca", "Fca de Empanadas", 1000, 0),
	}
	rows := Allocate(entries, Switches{ApplyFactoryTransfer: true}, cfg)
	totals := sumByCenter(rows)
	// Both factory rows re-emit across stores; the factory keeps nothing.
	if got, ok := totals["Fca de Empanadas"]; ok && !almostEqual(got, 0) {
		t.Fatalf("factory kept %f", got)
	}
	if !almostEqual(totals["Centro A"], 600+(-500-1000)*0.6) {
		t.Fatalf("Centro A got %f", totals["Centro A"])
	}
	if !almostEqual(totals["Centro B"], 400+(-500-1000)*0.4) {
		t.Fatalf("Centro B got %f", totals["Centro B"])
	}
}

func TestAllocateTemporalFallbackForTransferFraction(t *testing.T) {
	cfg := NewConfig()
	cfg.Factory.CostaneraProrrateos["2025-01"] = map[string]float64{"3401001": 0.5}
	entries := []ledger.Entry{
		entry("2025-06-02", FactorySentinelAccount, "Traspaso Fca", "Fca de Empanadas", 500, 0),
		entry("2025-06-04", "3401001", "Masa", "Fca Costanera", 1000, 0),
	}
	rows := Allocate(entries, Switches{ApplyFactoryTransfer: true}, cfg)
	totals := sumByCenter(rows)
	if !almostEqual(totals["Fca Costanera"], -500) {
		t.Fatalf("fallback fraction not applied: %+v", totals)
	}
}

func TestAllocateEmptyInput(t *testing.T) {
	rows := Allocate(nil, Switches{RedistributeSharedServices: true, ApplyFactoryTransfer: true}, NewConfig())
	if len(rows) != 0 {
		t.Fatalf("expected no rows, got %d", len(rows))
	}
}
