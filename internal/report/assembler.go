package report

import (
	"math"
	"sort"

	"github.com/huentelauquen/backoffice/internal/classify"
)

// materialityThreshold is the minimum absolute total an unclassified
// account must carry to surface in the pending bucket.
const materialityThreshold = 1.0

const (
	pendingGroupID   = "pendientes"
	pendingGroupName = "Pendientes"
)

// macroBlock accumulates the groups and per-column totals of one macro category.
type macroBlock struct {
	amounts map[string]float64
	groups  []GroupDetail
}

// assembleMacros folds the matrix into classification groups and returns
// the per-macro-category blocks. Accounts claimed by no group land in a
// synthetic pending group under "Sin Clasificar" when material.
func assembleMacros(m Matrix, groups []classify.Group) map[string]*macroBlock {
	blocks := make(map[string]*macroBlock)
	consumed := make(map[string]struct{})

	for _, g := range groups {
		detail := GroupDetail{ID: g.ID, Name: g.Name, Amounts: make(map[string]float64)}
		for _, code := range g.SortedCodes() {
			cell, ok := m.Accounts[code]
			if !ok {
				continue
			}
			consumed[code] = struct{}{}
			account := AccountDetail{Code: code, Name: cell.AccountName, Amounts: make(map[string]float64)}
			for column, amount := range cell.Amounts {
				account.Amounts[column] = amount
				account.Total += amount
				detail.Amounts[column] += amount
				detail.Total += amount
			}
			detail.Accounts = append(detail.Accounts, account)
		}
		if len(detail.Accounts) == 0 {
			continue
		}
		block := blocks[g.MacroCategory]
		if block == nil {
			block = &macroBlock{amounts: make(map[string]float64)}
			blocks[g.MacroCategory] = block
		}
		for column, amount := range detail.Amounts {
			block.amounts[column] += amount
		}
		block.groups = append(block.groups, detail)
	}

	pending := pendingGroup(m, consumed)
	if pending != nil {
		block := blocks[MacroSinClasificar]
		if block == nil {
			block = &macroBlock{amounts: make(map[string]float64)}
			blocks[MacroSinClasificar] = block
		}
		for column, amount := range pending.Amounts {
			block.amounts[column] += amount
		}
		block.groups = append(block.groups, *pending)
	}
	return blocks
}

// pendingGroup collects material unclassified accounts, or nil when none qualify.
func pendingGroup(m Matrix, consumed map[string]struct{}) *GroupDetail {
	codes := make([]string, 0)
	for code := range m.Accounts {
		if _, ok := consumed[code]; ok {
			continue
		}
		if math.Abs(m.Accounts[code].Total()) > materialityThreshold {
			codes = append(codes, code)
		}
	}
	if len(codes) == 0 {
		return nil
	}
	sort.Strings(codes)

	detail := GroupDetail{ID: pendingGroupID, Name: pendingGroupName, Amounts: make(map[string]float64)}
	for _, code := range codes {
		cell := m.Accounts[code]
		account := AccountDetail{Code: code, Name: cell.AccountName, Amounts: make(map[string]float64)}
		for column, amount := range cell.Amounts {
			account.Amounts[column] = amount
			account.Total += amount
			detail.Amounts[column] += amount
			detail.Total += amount
		}
		detail.Accounts = append(detail.Accounts, account)
	}
	return &detail
}
