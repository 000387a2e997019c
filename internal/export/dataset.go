package export

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"receipts/internal/core"
)

// Format selects the encoding of a dataset download.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// ParseFormat defaults to CSV for anything it does not recognise.
func ParseFormat(s string) Format {
	if Format(s) == FormatXLSX {
		return FormatXLSX
	}
	return FormatCSV
}

func (f Format) ContentType() string {
	if f == FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv"
}

func (f Format) Filename() string {
	return DatasetFilename + "." + string(f)
}

// Dataset is a generic table of receipts keyed by field name.
type Dataset struct {
	Headers []string
	Rows    [][]any
}

// DatasetHeaders lists the exported receipt fields.
var DatasetHeaders = []string{"date", "vendor", "category", "amount"}

// NewDataset builds the raw-field dataset: category keys rather than labels, amounts as decimals.
func NewDataset(receipts []core.Receipt) Dataset {
	ds := Dataset{Headers: DatasetHeaders, Rows: make([][]any, 0, len(receipts))}
	for _, r := range receipts {
		ds.Rows = append(ds.Rows, []any{r.Date.String(), r.Vendor, string(r.Category), r.Amount})
	}
	return ds
}

// Write encodes the dataset in format f.
func (d Dataset) Write(w io.Writer, f Format) error {
	if f == FormatXLSX {
		return d.WriteXLSX(w)
	}
	return d.WriteCSV(w)
}

func (d Dataset) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(d.Headers); err != nil {
		return fmt.Errorf("write dataset header: %w", err)
	}
	row := make([]string, len(d.Headers))
	for _, values := range d.Rows {
		for i, v := range values {
			row[i] = cellString(v)
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write dataset row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

const sheetName = "receipts"

func (d Dataset) WriteXLSX(w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return fmt.Errorf("name sheet: %w", err)
	}
	header := make([]any, len(d.Headers))
	for i, h := range d.Headers {
		header[i] = h
	}
	if err := f.SetSheetRow(sheetName, "A1", &header); err != nil {
		return fmt.Errorf("write xlsx header: %w", err)
	}
	for i, values := range d.Rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := make([]any, len(values))
		for j, v := range values {
			row[j] = cellValue(v)
		}
		if err := f.SetSheetRow(sheetName, cell, &row); err != nil {
			return fmt.Errorf("write xlsx row %d: %w", i+2, err)
		}
	}
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}
	return nil
}

func cellString(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case core.Money:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}

// cellValue keeps amounts numeric in spreadsheets.
func cellValue(v any) any {
	if m, ok := v.(core.Money); ok {
		return m.Float()
	}
	return v
}
