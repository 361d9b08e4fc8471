package imports

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/pricelist-backend/pkg/db/models"
)

// Column headers; where two spellings exist the first non-empty value wins.
const (
	colSupplierName    = "Supplier Name"
	colSupplierNameAlt = "supplier_name"
	colSKU             = "SKU"
	colItemName        = "Item Name"
	colItemNameAlt     = "item_name"
	colPackSize        = "Pack Size"
	colUOM             = "UOM"
	colPrice           = "Price"
	colCurrency        = "Currency"
	colEffectiveDate   = "Effective Date"
	colAliases         = "Aliases"
)

var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"1/2/2006",
}

// SkipReason explains why a row was not imported.
type SkipReason string

const (
	SkipNone            SkipReason = ""
	SkipMissingSupplier SkipReason = "missing_supplier"
	SkipMissingSKU      SkipReason = "missing_sku"
	SkipMissingDate     SkipReason = "missing_effective_date"
	SkipInvalidDate     SkipReason = "invalid_effective_date"
	SkipMissingPrice    SkipReason = "missing_price"
	SkipInvalidPrice    SkipReason = "invalid_price"
)

// Row is a normalized, validated import row.
type Row struct {
	SupplierName   string
	SKU            string
	IngredientName string
	PackSize       string
	UOM            string
	Price          decimal.Decimal
	Currency       string
	EffectiveDate  time.Time
	Aliases        string
}

// NormalizePrice strips "$" and thousands separators and parses the rest as
// an exact decimal. Blank input yields nil without error.
func NormalizePrice(raw string) (*decimal.Decimal, error) {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.ReplaceAll(cleaned, "$", "")
	cleaned = strings.ReplaceAll(cleaned, ",", "")
	cleaned = strings.TrimSpace(cleaned)
	if cleaned == "" {
		return nil, nil
	}
	price, err := decimal.NewFromString(cleaned)
	if err != nil {
		return nil, fmt.Errorf("invalid price %q: %w", raw, err)
	}
	return &price, nil
}

// ParseDate accepts ISO dates plus the slash forms spreadsheets commonly emit.
func ParseDate(raw string) (time.Time, error) {
	value := strings.TrimSpace(raw)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return models.DateOnly(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid effective date %q", raw)
}

// ParseRow trims and validates a raw CSV record. A non-empty SkipReason means
// the row must be counted as skipped.
func ParseRow(raw map[string]string, defaultCurrency string) (Row, SkipReason) {
	row := Row{
		SupplierName:   firstValue(raw, colSupplierName, colSupplierNameAlt),
		SKU:            firstValue(raw, colSKU),
		IngredientName: firstValue(raw, colItemName, colItemNameAlt),
		PackSize:       firstValue(raw, colPackSize),
		UOM:            firstValue(raw, colUOM),
		Currency:       firstValue(raw, colCurrency),
		Aliases:        firstValue(raw, colAliases),
	}
	if row.Currency == "" {
		row.Currency = defaultCurrency
	}
	dateRaw := firstValue(raw, colEffectiveDate)

	switch {
	case row.SupplierName == "":
		return row, SkipMissingSupplier
	case row.SKU == "":
		return row, SkipMissingSKU
	case dateRaw == "":
		return row, SkipMissingDate
	}

	price, err := NormalizePrice(raw[colPrice])
	if err != nil {
		return row, SkipInvalidPrice
	}
	if price == nil {
		return row, SkipMissingPrice
	}
	row.Price = price.Round(2)

	effective, err := ParseDate(dateRaw)
	if err != nil {
		return row, SkipInvalidDate
	}
	row.EffectiveDate = effective
	return row, SkipNone
}

func firstValue(raw map[string]string, keys ...string) string {
	for _, key := range keys {
		if v := strings.TrimSpace(raw[key]); v != "" {
			return v
		}
	}
	return ""
}
