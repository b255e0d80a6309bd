// Package report aggregates reallocated ledger rows into the management
// profit-and-loss statement broken out by cost center or by period.
package report

import (
	"sort"

	"github.com/huentelauquen/backoffice/internal/prorrateo"
)

// ColumnMode selects what the statement columns represent.
type ColumnMode string

const (
	// ByCostCenter produces one column per cost center (single-period statement).
	ByCostCenter ColumnMode = "centro"
	// ByPeriod produces one column per period (trend view).
	ByPeriod ColumnMode = "periodo"
)

// AccountCell accumulates one account's amounts across columns.
type AccountCell struct {
	AccountName string
	Amounts     map[string]float64
}

// Total sums the cell across all columns.
func (c AccountCell) Total() float64 {
	total := 0.0
	for _, v := range c.Amounts {
		total += v
	}
	return total
}

// Matrix is the central working structure: account code to per-column amounts.
type Matrix struct {
	Mode     ColumnMode
	Accounts map[string]*AccountCell
	columns  map[string]struct{}
}

// BuildMatrix aggregates allocation output rows by account and column.
func BuildMatrix(rows []prorrateo.Row, mode ColumnMode) Matrix {
	m := Matrix{
		Mode:     mode,
		Accounts: make(map[string]*AccountCell),
		columns:  make(map[string]struct{}),
	}
	for _, row := range rows {
		column := row.CostCenter
		if mode == ByPeriod {
			column = row.Period
		}
		cell, ok := m.Accounts[row.AccountCode]
		if !ok {
			cell = &AccountCell{AccountName: row.AccountName, Amounts: make(map[string]float64)}
			m.Accounts[row.AccountCode] = cell
		}
		cell.Amounts[column] += row.Amount
		m.columns[column] = struct{}{}
	}
	return m
}

// Columns returns the matrix columns in ascending order. Period columns
// sort chronologically because of the YYYY-MM format.
func (m Matrix) Columns() []string {
	cols := make([]string, 0, len(m.columns))
	for c := range m.columns {
		cols = append(cols, c)
	}
	sort.Strings(cols)
	return cols
}

// LineKind distinguishes aggregation lines from computed lines.
type LineKind string

const (
	// LineMacro aggregates classification groups of one or more macro categories.
	LineMacro LineKind = "MACRO"
	// LineCalc is a linear combination of previously rendered lines.
	LineCalc LineKind = "CALC"
)

// AccountDetail is one account's contribution inside a group, for drill-down.
type AccountDetail struct {
	Code    string             `json:"cuenta"`
	Name    string             `json:"nombre"`
	Amounts map[string]float64 `json:"montos"`
	Total   float64            `json:"total"`
}

// GroupDetail is one classification group's subtotal row.
type GroupDetail struct {
	ID       string             `json:"id"`
	Name     string             `json:"nombre"`
	Amounts  map[string]float64 `json:"montos"`
	Total    float64            `json:"total"`
	Accounts []AccountDetail    `json:"cuentas"`
}

// RenderedLine is one row of the assembled statement.
type RenderedLine struct {
	ID       string             `json:"id"`
	Title    string             `json:"titulo"`
	Kind     LineKind           `json:"tipo"`
	Severity string             `json:"severidad,omitempty"`
	Amounts  map[string]float64 `json:"montos"`
	Total    float64            `json:"total"`
	Groups   []GroupDetail      `json:"grupos,omitempty"`
}

// Statement is the assembled report.
type Statement struct {
	Mode    ColumnMode     `json:"modo"`
	Columns []string       `json:"columnas"`
	Lines   []RenderedLine `json:"lineas"`
}
