// Package classify maintains the account classification groups that
// organise ledger accounts into report lines.
package classify

import "sort"

// GroupKind indicates whether a group aggregates income or expense accounts.
type GroupKind string

const (
	KindIngreso GroupKind = "INGRESO"
	KindGasto   GroupKind = "GASTO"
)

// Group is a named set of account codes under a macro category.
type Group struct {
	ID            string    `json:"id"`
	Name          string    `json:"nombre"`
	MacroCategory string    `json:"macro_categoria"`
	Kind          GroupKind `json:"tipo"`
	AccountCodes  []string  `json:"cuentas"`
}

// SortedCodes returns the group's account codes in ascending order.
func (g Group) SortedCodes() []string {
	codes := make([]string, len(g.AccountCodes))
	copy(codes, g.AccountCodes)
	sort.Strings(codes)
	return codes
}

// IndexByAccount maps every account code to the group that claims it.
// Later groups never override earlier ones; duplicates are rejected at
// write time so the ordering is immaterial in practice.
func IndexByAccount(groups []Group) map[string]Group {
	index := make(map[string]Group)
	for _, g := range groups {
		for _, code := range g.AccountCodes {
			if _, ok := index[code]; !ok {
				index[code] = g
			}
		}
	}
	return index
}
