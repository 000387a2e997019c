package google

import (
	"fmt"
	"strconv"
	"strings"

	"receipts/internal/core"
)

// sheetColumns is the header a mirrored sheet is expected to carry.
var sheetColumns = []string{"ID", "User", "Date", "Vendor", "Category", "Amount"}

// receiptRow converts a receipt into the cell values of one sheet row.
// The amount is written as a plain decimal so USER_ENTERED parses it as a number.
func receiptRow(r core.Receipt, username string) []any {
	return []any{
		strconv.FormatInt(r.ID, 10),
		username,
		r.Date.String(),
		r.VendorOrDash(),
		r.Category.Label(),
		r.Amount.String(),
	}
}

// findRow returns the 1-based row whose first cell equals id, or 0.
func findRow(values [][]any, id int64) int {
	want := strconv.FormatInt(id, 10)
	for i, row := range values {
		if len(row) == 0 {
			continue
		}
		if strings.TrimSpace(fmt.Sprint(row[0])) == want {
			return i + 1
		}
	}
	return 0
}

func columnRange(sheet string) string {
	return fmt.Sprintf("%s!A:A", quoteSheet(sheet))
}

func rowRange(sheet string, row int) string {
	last := 'A' + rune(len(sheetColumns)-1)
	return fmt.Sprintf("%s!A%d:%c%d", quoteSheet(sheet), row, last, row)
}

// quoteSheet wraps names containing spaces or quotes in single quotes as A1 notation requires.
func quoteSheet(name string) string {
	if !strings.ContainsAny(name, " '!") {
		return name
	}
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}
