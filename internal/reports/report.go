package reports

import (
	"sort"
	"time"

	"receipts/internal/core"
)

// Series is a pair of parallel label and total sequences.
type Series struct {
	Labels []string  `json:"labels"`
	Totals []float64 `json:"totals"`
}

// CategorySeries adds the share of the grand total for each category.
type CategorySeries struct {
	Series
	Keys        []core.Category `json:"keys"`
	Percentages []float64       `json:"percentages"`
}

// Report is the aggregated view of one user's receipts in a window.
type Report struct {
	Range      DateRange      `json:"-"`
	Monthly    Series         `json:"monthly"`
	Categories CategorySeries `json:"categories"`
	// Weekly holds totals indexed Sunday=0 through Saturday=6.
	Weekly [7]float64 `json:"weekly"`
	Total  core.Money `json:"-"`
	Count  int        `json:"count"`
}

// MonthLabelLayout renders months as "Jan 2025".
const MonthLabelLayout = "Jan 2006"

// Build aggregates the receipts owned by userID that fall within rng.
// Receipts of other users are ignored regardless of how they were fetched.
//
// Percentages are 100*category/grand total; when the grand total is zero every
// percentage is 0.
func Build(userID int64, receipts []core.Receipt, rng DateRange) Report {
	rep := Report{
		Range:   rng,
		Monthly: Series{Labels: []string{}, Totals: []float64{}},
		Categories: CategorySeries{
			Series:      Series{Labels: []string{}, Totals: []float64{}},
			Keys:        []core.Category{},
			Percentages: []float64{},
		},
	}

	months := make(map[time.Time]int64)
	cats := make(map[core.Category]int64)
	var weekly [7]int64
	var grand int64

	for _, r := range receipts {
		if r.UserID != userID || !rng.Contains(r.Date) {
			continue
		}
		c := r.Amount.Cents
		grand += c
		months[r.Date.FirstOfMonth().Time] += c
		cats[r.Category] += c
		weekly[int(r.Date.Weekday())] += c
		rep.Count++
	}
	rep.Total = core.Money{Cents: grand}

	monthKeys := make([]time.Time, 0, len(months))
	for m := range months {
		monthKeys = append(monthKeys, m)
	}
	sort.Slice(monthKeys, func(i, j int) bool { return monthKeys[i].Before(monthKeys[j]) })
	for _, m := range monthKeys {
		rep.Monthly.Labels = append(rep.Monthly.Labels, m.Format(MonthLabelLayout))
		rep.Monthly.Totals = append(rep.Monthly.Totals, core.Money{Cents: months[m]}.Float())
	}

	catKeys := make([]core.Category, 0, len(cats))
	for c := range cats {
		catKeys = append(catKeys, c)
	}
	sort.Slice(catKeys, func(i, j int) bool {
		a, b := cats[catKeys[i]], cats[catKeys[j]]
		if a != b {
			return a > b
		}
		return catKeys[i].Rank() < catKeys[j].Rank()
	})
	for _, c := range catKeys {
		total := cats[c]
		rep.Categories.Keys = append(rep.Categories.Keys, c)
		rep.Categories.Labels = append(rep.Categories.Labels, c.Label())
		rep.Categories.Totals = append(rep.Categories.Totals, core.Money{Cents: total}.Float())
		rep.Categories.Percentages = append(rep.Categories.Percentages, percentage(total, grand))
	}

	for i, v := range weekly {
		rep.Weekly[i] = core.Money{Cents: v}.Float()
	}
	return rep
}

func percentage(part, total int64) float64 {
	if total == 0 {
		return 0
	}
	return 100 * float64(part) / float64(total)
}
