package pricelist

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/angelmondragon/pricelist-backend/pkg/db/models"
)

// ExportFormat selects the export encoding.
type ExportFormat string

const (
	ExportCSV  ExportFormat = "csv"
	ExportXLSX ExportFormat = "xlsx"

	approvedAtLayout = "2006-01-02 15:04:05"
	exportSheet      = "Price List"
)

// ExportColumns is the header row shared by every export format.
var ExportColumns = []string{
	"Supplier Name",
	"SKU",
	"Ingredient Name",
	"Pack Size",
	"UOM",
	"Price",
	"Currency",
	"Effective Date",
	"Status",
	"Source File",
	"Approved By",
	"Approved At",
}

// ParseExportFormat defaults to CSV when value is empty.
func ParseExportFormat(value string) (ExportFormat, error) {
	switch f := ExportFormat(strings.ToLower(strings.TrimSpace(value))); f {
	case "":
		return ExportCSV, nil
	case ExportCSV, ExportXLSX:
		return f, nil
	default:
		return "", fmt.Errorf("invalid export format %q", value)
	}
}

func (f ExportFormat) IsValid() bool {
	return f == ExportCSV || f == ExportXLSX
}

func (f ExportFormat) ContentType() string {
	if f == ExportXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv"
}

func (f ExportFormat) Filename() string {
	return "price_list_items." + string(f)
}

// ExportRow renders one item as export cells in ExportColumns order.
func ExportRow(item models.PriceListItem) []string {
	row := make([]string, len(ExportColumns))
	if item.Supplier != nil {
		row[0] = item.Supplier.Name
	}
	row[1] = item.SKU
	if item.Ingredient != nil {
		row[2] = item.Ingredient.Name
	}
	row[3] = deref(item.PackSize)
	row[4] = deref(item.UOM)
	if item.Price.Valid {
		row[5] = item.Price.Decimal.StringFixed(2)
	}
	row[6] = item.Currency
	row[7] = item.EffectiveDate.UTC().Format(DateLayout)
	row[8] = item.Status.String()
	row[9] = deref(item.SourceFile)
	if item.ApprovedBy != nil {
		row[10] = item.ApprovedBy.Username
	}
	if item.ApprovedAt != nil {
		row[11] = item.ApprovedAt.UTC().Format(approvedAtLayout)
	}
	return row
}

// WriteCSV streams items as CSV with a header row.
func WriteCSV(w io.Writer, items []models.PriceListItem) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(ExportColumns); err != nil {
		return err
	}
	for _, item := range items {
		if err := writer.Write(ExportRow(item)); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteXLSX renders items into a single-sheet workbook.
func WriteXLSX(w io.Writer, items []models.PriceListItem) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), exportSheet); err != nil {
		return err
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9E1F2"}},
	})
	if err != nil {
		return err
	}

	if err := setRow(f, 1, ExportColumns); err != nil {
		return err
	}
	lastCol, err := excelize.ColumnNumberToName(len(ExportColumns))
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(exportSheet, "A1", lastCol+"1", headerStyle); err != nil {
		return err
	}

	for i, item := range items {
		if err := setRow(f, i+2, ExportRow(item)); err != nil {
			return err
		}
	}
	if err := f.SetColWidth(exportSheet, "A", lastCol, 18); err != nil {
		return err
	}

	_, err = f.WriteTo(w)
	return err
}

func setRow(f *excelize.File, row int, values []string) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	cells := make([]any, len(values))
	for i, v := range values {
		cells[i] = v
	}
	return f.SetSheetRow(exportSheet, cell, &cells)
}

func deref(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
