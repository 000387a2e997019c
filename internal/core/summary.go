package core

// DashboardSummary is the per-user overview shown on the dashboard.
type DashboardSummary struct {
	Receipts    []Receipt
	TotalSpent  Money
	TopCategory string
}

// NoDataLabel is shown as top category when a user has no receipts.
const NoDataLabel = "No data"

// Summarize computes totals and the top category for receipts.
// Ties on the top category go to the earlier category in display order.
func Summarize(receipts []Receipt) DashboardSummary {
	s := DashboardSummary{Receipts: receipts, TopCategory: NoDataLabel}
	if len(receipts) == 0 {
		return s
	}
	byCat := make(map[Category]int64)
	for _, r := range receipts {
		s.TotalSpent.Cents += r.Amount.Cents
		byCat[r.Category] += r.Amount.Cents
	}
	best, bestTotal := Category(""), int64(-1)
	for _, c := range categoryOrder {
		if v, ok := byCat[c]; ok && v > bestTotal {
			best, bestTotal = c, v
		}
	}
	s.TopCategory = best.Label()
	return s
}
