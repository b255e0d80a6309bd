// Package ledger models general-ledger entries and the read-through dataset
// cache that feeds the management-accounting reports.
package ledger

import (
	"sort"
	"strings"
	"time"
)

// Entry is a single general-ledger movement. Fields mirror the loader
// contract: date, account, cost center, debit and credit are always set.
type Entry struct {
	Date        time.Time
	AccountCode string
	AccountName string
	CostCenter  string
	Debit       float64
	Credit      float64
	Concept     string
}

// Amount returns the management-accounting amount: income positive,
// expense negative. The inverse of the statutory debit-positive convention.
func (e Entry) Amount() float64 {
	return e.Credit - e.Debit
}

// Period returns the accounting period of the entry as YYYY-MM.
func (e Entry) Period() string {
	return e.Date.Format("2006-01")
}

// FilterByPeriod keeps entries belonging to the given period.
func FilterByPeriod(entries []Entry, period string) []Entry {
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if e.Period() == period {
			out = append(out, e)
		}
	}
	return out
}

// FilterByPeriods keeps entries whose period appears in the given set.
func FilterByPeriods(entries []Entry, periods []string) []Entry {
	wanted := make(map[string]struct{}, len(periods))
	for _, p := range periods {
		wanted[p] = struct{}{}
	}
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if _, ok := wanted[e.Period()]; ok {
			out = append(out, e)
		}
	}
	return out
}

// FilterByAccountPrefix keeps entries whose account code starts with any of
// the given prefixes.
func FilterByAccountPrefix(entries []Entry, prefixes ...string) []Entry {
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		for _, p := range prefixes {
			if strings.HasPrefix(e.AccountCode, p) {
				out = append(out, e)
				break
			}
		}
	}
	return out
}

// Periods returns the sorted distinct periods present in the slice.
func Periods(entries []Entry) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, e := range entries {
		p := e.Period()
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// LatestPeriod returns the most recent period in the slice, or "" when empty.
func LatestPeriod(entries []Entry) string {
	latest := ""
	for _, e := range entries {
		if p := e.Period(); p > latest {
			latest = p
		}
	}
	return latest
}
