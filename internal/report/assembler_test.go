package report

import (
	"testing"

	"github.com/huentelauquen/backoffice/internal/classify"
	"github.com/huentelauquen/backoffice/internal/prorrateo"
)

func row(period, code, name, costCenter string, amount float64) prorrateo.Row {
	return prorrateo.Row{
		Period:      period,
		AccountCode: code,
		AccountName: name,
		CostCenter:  costCenter,
		Amount:      amount,
	}
}

func TestBuildMatrixByCostCenter(t *testing.T) {
	rows := []prorrateo.Row{
		row("2025-06", "4101001", "Ventas", "Centro A", 600),
		row("2025-06", "4101001", "Ventas", "Centro B", 400),
		row("2025-06", "3101001", "Harina", "Centro A", -150),
	}
	m := BuildMatrix(rows, ByCostCenter)
	if len(m.Accounts) != 2 {
		t.Fatalf("expected 2 accounts, got %d", len(m.Accounts))
	}
	if got := m.Accounts["4101001"].Amounts["Centro A"]; got != 600 {
		t.Fatalf("Centro A revenue = %f", got)
	}
	cols := m.Columns()
	if len(cols) != 2 || cols[0] != "Centro A" || cols[1] != "Centro B" {
		t.Fatalf("columns = %v", cols)
	}
}

func TestBuildMatrixByPeriod(t *testing.T) {
	rows := []prorrateo.Row{
		row("2025-05", "4101001", "Ventas", "Centro A", 500),
		row("2025-06", "4101001", "Ventas", "Centro A", 600),
	}
	m := BuildMatrix(rows, ByPeriod)
	cell := m.Accounts["4101001"]
	if cell.Amounts["2025-05"] != 500 || cell.Amounts["2025-06"] != 600 {
		t.Fatalf("period amounts = %v", cell.Amounts)
	}
	if cell.Total() != 1100 {
		t.Fatalf("total = %f", cell.Total())
	}
}

func TestAssembleMacrosConsumesClassifiedAccounts(t *testing.T) {
	m := BuildMatrix([]prorrateo.Row{
		row("2025-06", "4101001", "Ventas", "Centro A", 1000),
		row("2025-06", "3101001", "Harina", "Centro A", -400),
	}, ByCostCenter)
	groups := []classify.Group{
		{ID: "ventas", Name: "Ventas Locales", MacroCategory: MacroIngresos, Kind: classify.KindIngreso, AccountCodes: []string{"4101001"}},
		{ID: "mp", Name: "Materias Primas", MacroCategory: MacroCostos, Kind: classify.KindGasto, AccountCodes: []string{"3101001"}},
	}
	blocks := assembleMacros(m, groups)
	if blocks[MacroIngresos].amounts["Centro A"] != 1000 {
		t.Fatalf("income block = %v", blocks[MacroIngresos].amounts)
	}
	if blocks[MacroCostos].amounts["Centro A"] != -400 {
		t.Fatalf("cost block = %v", blocks[MacroCostos].amounts)
	}
	if _, ok := blocks[MacroSinClasificar]; ok {
		t.Fatalf("no pending bucket expected")
	}
}

func TestAssembleMacrosMaterialityThreshold(t *testing.T) {
	m := BuildMatrix([]prorrateo.Row{
		row("2025-06", "9901", "Redondeo", "Centro A", 0.50),
		row("2025-06", "9902", "Ajuste", "Centro A", 1.50),
	}, ByCostCenter)
	blocks := assembleMacros(m, nil)

	block, ok := blocks[MacroSinClasificar]
	if !ok {
		t.Fatalf("expected pending bucket")
	}
	if len(block.groups) != 1 {
		t.Fatalf("expected 1 pending group, got %d", len(block.groups))
	}
	pending := block.groups[0]
	if len(pending.Accounts) != 1 || pending.Accounts[0].Code != "9902" {
		t.Fatalf("pending accounts = %+v", pending.Accounts)
	}
	if pending.Total != 1.50 {
		t.Fatalf("pending total = %f", pending.Total)
	}
}

func TestAssembleMacrosGroupWithAbsentAccountsContributesZero(t *testing.T) {
	m := BuildMatrix([]prorrateo.Row{
		row("2025-06", "4101001", "Ventas", "Centro A", 1000),
	}, ByCostCenter)
	groups := []classify.Group{
		{ID: "ventas", Name: "Ventas Locales", MacroCategory: MacroIngresos, AccountCodes: []string{"4101001"}},
		{ID: "otros", Name: "Otros Ingresos", MacroCategory: MacroIngresosNoOperac, AccountCodes: []string{"4201001"}},
	}
	blocks := assembleMacros(m, groups)
	if _, ok := blocks[MacroIngresosNoOperac]; ok {
		t.Fatalf("group with no matching accounts should not create a block")
	}
}
