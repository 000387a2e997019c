package export

import (
	"bytes"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"receipts/internal/core"
)

func sample() []core.Receipt {
	return []core.Receipt{
		{ID: 1, Date: core.NewDate(2025, 1, 5), Vendor: "Deli", Category: core.CategoryFood, Amount: core.Money{Cents: 2000}},
		{ID: 2, Date: core.NewDate(2025, 2, 1), Vendor: "", Category: core.CategoryTransport, Amount: core.Money{Cents: 1050}},
		{ID: 3, Date: core.NewDate(2025, 1, 20), Vendor: "Shop, Inc", Category: core.CategoryOther, Amount: core.Money{Cents: 5}},
	}
}

func TestWriteReportCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteReportCSV(&buf, sample()); err != nil {
		t.Fatalf("write: %v", err)
	}
	want := strings.Join([]string{
		"Date,Vendor,Category,Amount",
		"2025-02-01,,Transportation,10.50",
		`2025-01-20,"Shop, Inc",Other,0.05`,
		"2025-01-05,Deli,Food & Dining,20.00",
		"",
	}, "\n")
	if buf.String() != want {
		t.Fatalf("unexpected csv:\n%s\nwant:\n%s", buf.String(), want)
	}
}

func TestDatasetCSVUsesCategoryKeys(t *testing.T) {
	var buf bytes.Buffer
	if err := NewDataset(sample()[:1]).Write(&buf, FormatCSV); err != nil {
		t.Fatalf("write: %v", err)
	}
	want := "date,vendor,category,amount\n2025-01-05,Deli,food,20.00\n"
	if buf.String() != want {
		t.Fatalf("expected %q, got %q", want, buf.String())
	}
}

func TestDatasetXLSX(t *testing.T) {
	var buf bytes.Buffer
	if err := NewDataset(sample()).Write(&buf, FormatXLSX); err != nil {
		t.Fatalf("write: %v", err)
	}
	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("open xlsx: %v", err)
	}
	defer f.Close()
	rows, err := f.GetRows(sheetName)
	if err != nil {
		t.Fatalf("rows: %v", err)
	}
	if len(rows) != 4 || rows[0][2] != "category" || rows[1][1] != "Deli" {
		t.Fatalf("unexpected rows %v", rows)
	}
	if rows[1][3] != "20" {
		t.Fatalf("expected numeric amount 20, got %q", rows[1][3])
	}
}

func TestParseFormat(t *testing.T) {
	if ParseFormat("xlsx") != FormatXLSX || ParseFormat("") != FormatCSV || ParseFormat("pdf") != FormatCSV {
		t.Fatalf("unexpected format parsing")
	}
	if FormatXLSX.Filename() != "receipts_export.xlsx" {
		t.Fatalf("unexpected filename %s", FormatXLSX.Filename())
	}
}
