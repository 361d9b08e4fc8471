package enums

import "fmt"

// PriceItemField names an editable attribute of a price list item.
type PriceItemField string

const (
	PriceItemFieldSKU           PriceItemField = "sku"
	PriceItemFieldSupplier      PriceItemField = "supplier"
	PriceItemFieldPrice         PriceItemField = "price"
	PriceItemFieldCurrency      PriceItemField = "currency"
	PriceItemFieldPackSize      PriceItemField = "pack_size"
	PriceItemFieldUOM           PriceItemField = "uom"
	PriceItemFieldEffectiveDate PriceItemField = "effective_date"
	PriceItemFieldSourceFile    PriceItemField = "source_file"
	PriceItemFieldIngredient    PriceItemField = "ingredient"
)

var validPriceItemFields = []PriceItemField{
	PriceItemFieldSKU,
	PriceItemFieldSupplier,
	PriceItemFieldPrice,
	PriceItemFieldCurrency,
	PriceItemFieldPackSize,
	PriceItemFieldUOM,
	PriceItemFieldEffectiveDate,
	PriceItemFieldSourceFile,
	PriceItemFieldIngredient,
}

// String implements fmt.Stringer.
func (f PriceItemField) String() string {
	return string(f)
}

// IsValid reports whether the field is a known price item attribute.
func (f PriceItemField) IsValid() bool {
	for _, candidate := range validPriceItemFields {
		if candidate == f {
			return true
		}
	}
	return false
}

// ParsePriceItemField converts raw input into PriceItemField.
func ParsePriceItemField(value string) (PriceItemField, error) {
	for _, candidate := range validPriceItemFields {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid price item field %q", value)
}
