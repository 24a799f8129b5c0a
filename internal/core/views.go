package core

import (
	"sort"
	"strings"
)

type Summary struct {
	Total     Money `json:"total"`
	PaidTotal Money `json:"paidTotal"`
	Revenue   Money `json:"revenue"`
	Count     int   `json:"count"`
}

// NameGroup is the per-name aggregation consumed by chart views: the
// summed value of all active expenses sharing a name, plus the distinct
// formatted due dates they fall on.
type NameGroup struct {
	Name     string   `json:"name"`
	Value    Money    `json:"value"`
	Category string   `json:"category"`
	Dates    []string `json:"dates"`
}

type ComparisonPoint struct {
	Name  string `json:"name"`
	Value Money  `json:"value"`
}

// ActiveExpenses filters non-archived expenses whose due date falls
// inside [start, end] and whose name or category contains the search term
// (case-insensitive), sorted ascending by due date. The sort is stable so
// same-day entries keep insertion order.
func ActiveExpenses(expenses []Expense, start, end Date, search string) []Expense {
	needle := strings.ToLower(strings.TrimSpace(search))
	out := make([]Expense, 0, len(expenses))
	for _, e := range expenses {
		if e.Status == StatusArchived {
			continue
		}
		if e.DueDate < start || e.DueDate > end {
			continue
		}
		if needle != "" &&
			!strings.Contains(strings.ToLower(e.Name), needle) &&
			!strings.Contains(strings.ToLower(e.Category), needle) {
			continue
		}
		out = append(out, e)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].DueDate < out[j].DueDate
	})
	return out
}

// Summarize computes totals over an already-filtered active view.
func Summarize(active []Expense, revenue Money) Summary {
	s := Summary{Revenue: revenue, Count: len(active)}
	for _, e := range active {
		s.Total = s.Total.Add(e.Value)
		if e.Status == StatusActive {
			s.PaidTotal = s.PaidTotal.Add(e.Value)
		}
	}
	return s
}

// GroupByName aggregates active expenses by name, summing values and
// collecting distinct short date references, sorted descending by summed
// value. The category shown is the one of the first expense seen for the
// name.
func GroupByName(active []Expense) []NameGroup {
	index := make(map[string]int, len(active))
	groups := make([]NameGroup, 0, len(active))
	for _, e := range active {
		i, ok := index[e.Name]
		if !ok {
			i = len(groups)
			index[e.Name] = i
			groups = append(groups, NameGroup{Name: e.Name, Category: e.Category})
		}
		groups[i].Value = groups[i].Value.Add(e.Value)
		ref := e.DueDate.ShortRef()
		seen := false
		for _, d := range groups[i].Dates {
			if d == ref {
				seen = true
				break
			}
		}
		if !seen {
			groups[i].Dates = append(groups[i].Dates, ref)
		}
	}
	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].Value.Cents > groups[j].Value.Cents
	})
	return groups
}

// Comparison builds the three-point revenue-vs-cost series for bar-chart
// consumers.
func Comparison(revenue, total Money) []ComparisonPoint {
	return []ComparisonPoint{
		{Name: "Revenue", Value: revenue},
		{Name: "Cost", Value: total},
		{Name: "NetProfit", Value: revenue.Sub(total)},
	}
}
