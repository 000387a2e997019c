// Package export renders receipts as downloadable files.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"

	"receipts/internal/core"
)

const (
	ReportFilename  = "spending_report.csv"
	DatasetFilename = "receipts_export"
)

// ReportHeader is the first row of the spending report.
var ReportHeader = []string{"Date", "Vendor", "Category", "Amount"}

// WriteReportCSV writes one row per receipt, newest first, with display category labels.
func WriteReportCSV(w io.Writer, receipts []core.Receipt) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ReportHeader); err != nil {
		return fmt.Errorf("write report header: %w", err)
	}
	for _, r := range newestFirst(receipts) {
		if err := cw.Write([]string{r.Date.String(), r.Vendor, r.Category.Label(), r.Amount.String()}); err != nil {
			return fmt.Errorf("write report row %d: %w", r.ID, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush report: %w", err)
	}
	return nil
}

func newestFirst(receipts []core.Receipt) []core.Receipt {
	out := make([]core.Receipt, len(receipts))
	copy(out, receipts)
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date.Time) {
			return out[i].Date.After(out[j].Date.Time)
		}
		return out[i].ID > out[j].ID
	})
	return out
}
