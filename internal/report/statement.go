package report

import (
	"sort"

	"github.com/huentelauquen/backoffice/internal/classify"
)

// Macro category names recognised by the fixed statement structure.
const (
	MacroIngresos         = "Ingresos Operacionales"
	MacroCostos           = "Costo de Venta"
	MacroGastosAdm        = "Gastos de Administracion"
	MacroIngresosNoOperac = "Ingresos No Operacionales"
	MacroGastosNoOperac   = "Gastos No Operacionales"
	MacroSinClasificar    = "Sin Clasificar"
)

// lineSpec declares one row of the statement. MACRO rows aggregate the
// named macro categories; CALC rows sum the totals of prior rows.
type lineSpec struct {
	id       string
	title    string
	kind     LineKind
	macros   []string
	operands []string
	severity string
}

func statementSpec() []lineSpec {
	return []lineSpec{
		{id: "ingresos", title: "Ingresos", kind: LineMacro, macros: []string{MacroIngresos}},
		{id: "costos", title: "Costos", kind: LineMacro, macros: []string{MacroCostos}},
		{id: "margen", title: "Margen", kind: LineCalc, operands: []string{"ingresos", "costos"}, severity: "subtotal"},
		{id: "gav", title: "Gastos de Administracion y Ventas", kind: LineMacro, macros: []string{MacroGastosAdm}},
		{id: "resultado_operacional", title: "Resultado Operacional", kind: LineCalc, operands: []string{"margen", "gav"}, severity: "subtotal"},
		{id: "no_operacional", title: "No Operacional", kind: LineMacro, macros: []string{MacroIngresosNoOperac, MacroGastosNoOperac}},
		{id: "resultado_final", title: "Resultado Final", kind: LineCalc, operands: []string{"resultado_operacional", "no_operacional"}, severity: "total"},
		{id: "sin_clasificar", title: "Sin Clasificar", kind: LineMacro, macros: []string{MacroSinClasificar}, severity: "warning"},
	}
}

// BuildStatement assembles the fixed statement from the matrix and the
// classification groups. MACRO lines with no data are skipped, except the
// final unclassified line which only appears when it carries data. CALC
// lines always render; a skipped operand contributes zero.
func BuildStatement(m Matrix, groups []classify.Group) Statement {
	columns := m.Columns()
	blocks := assembleMacros(m, groups)
	totalsByID := make(map[string]map[string]float64)

	stmt := Statement{Mode: m.Mode, Columns: columns, Lines: make([]RenderedLine, 0, 8)}
	for _, spec := range statementSpec() {
		switch spec.kind {
		case LineMacro:
			line, ok := renderMacro(spec, blocks)
			totalsByID[spec.id] = line.Amounts
			if !ok {
				continue
			}
			stmt.Lines = append(stmt.Lines, line)
		case LineCalc:
			line := renderCalc(spec, totalsByID, columns)
			totalsByID[spec.id] = line.Amounts
			stmt.Lines = append(stmt.Lines, line)
		}
	}
	return stmt
}

func renderMacro(spec lineSpec, blocks map[string]*macroBlock) (RenderedLine, bool) {
	line := RenderedLine{
		ID:       spec.id,
		Title:    spec.title,
		Kind:     spec.kind,
		Severity: spec.severity,
		Amounts:  make(map[string]float64),
	}
	hasData := false
	for _, macro := range spec.macros {
		block := blocks[macro]
		if block == nil {
			continue
		}
		hasData = true
		for column, amount := range block.amounts {
			line.Amounts[column] += amount
		}
		line.Groups = append(line.Groups, block.groups...)
	}
	if !hasData {
		return line, false
	}
	sort.Slice(line.Groups, func(i, j int) bool { return line.Groups[i].Name < line.Groups[j].Name })
	for _, amount := range line.Amounts {
		line.Total += amount
	}
	return line, true
}

func renderCalc(spec lineSpec, totalsByID map[string]map[string]float64, columns []string) RenderedLine {
	line := RenderedLine{
		ID:       spec.id,
		Title:    spec.title,
		Kind:     spec.kind,
		Severity: spec.severity,
		Amounts:  make(map[string]float64),
	}
	for _, column := range columns {
		sum := 0.0
		for _, operand := range spec.operands {
			sum += totalsByID[operand][column]
		}
		line.Amounts[column] = sum
		line.Total += sum
	}
	return line
}
