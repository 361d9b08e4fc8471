package imports

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/pricelist-backend/internal/testutil"
)

func TestNormalizePrice(t *testing.T) {
	cases := map[string]string{
		"$1,234.50":  "1234.50",
		"  2.5 ":     "2.5",
		"$ 3":        "3",
		"1,000,000":  "1000000",
		"0.10":       "0.1",
		"-4.25":      "-4.25",
		"$12,345.67": "12345.67",
	}
	for raw, want := range cases {
		t.Run(raw, func(t *testing.T) {
			got, err := NormalizePrice(raw)
			require.NoError(t, err)
			require.NotNil(t, got)
			assert.True(t, decimal.RequireFromString(want).Equal(*got), "got %s", got)
		})
	}

	for _, blank := range []string{"", "   ", "$", "$,"} {
		got, err := NormalizePrice(blank)
		require.NoError(t, err)
		assert.Nil(t, got, "input %q", blank)
	}

	_, err := NormalizePrice("two dollars")
	assert.Error(t, err)
}

func TestNormalizePriceKeepsExactDecimal(t *testing.T) {
	got, err := NormalizePrice("0.1")
	require.NoError(t, err)
	sum := got.Add(decimal.RequireFromString("0.2"))
	assert.Equal(t, "0.3", sum.String())
}

func TestParseDate(t *testing.T) {
	want := testutil.Date(2025, 1, 5)
	for _, raw := range []string{"2025-01-05", "2025/01/05", "1/5/2025", " 01/05/2025 "} {
		got, err := ParseDate(raw)
		require.NoError(t, err, raw)
		assert.True(t, want.Equal(got), "%s parsed to %v", raw, got)
	}

	_, err := ParseDate("5th of January")
	assert.Error(t, err)
}

func TestParseRowValidationGate(t *testing.T) {
	base := func() map[string]string {
		return map[string]string{
			"Supplier Name":  "Acme",
			"SKU":            "X1",
			"Price":          "$2.50",
			"Effective Date": "2025-01-01",
		}
	}

	cases := []struct {
		name   string
		mutate func(map[string]string)
		want   SkipReason
	}{
		{"valid", func(map[string]string) {}, SkipNone},
		{"missing supplier", func(m map[string]string) { m["Supplier Name"] = "  " }, SkipMissingSupplier},
		{"missing sku", func(m map[string]string) { delete(m, "SKU") }, SkipMissingSKU},
		{"missing date", func(m map[string]string) { m["Effective Date"] = "" }, SkipMissingDate},
		{"blank price", func(m map[string]string) { m["Price"] = "" }, SkipMissingPrice},
		{"absent price", func(m map[string]string) { delete(m, "Price") }, SkipMissingPrice},
		{"garbage price", func(m map[string]string) { m["Price"] = "n/a" }, SkipInvalidPrice},
		{"garbage date", func(m map[string]string) { m["Effective Date"] = "soon" }, SkipInvalidDate},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			raw := base()
			tc.mutate(raw)
			_, reason := ParseRow(raw, "USD")
			assert.Equal(t, tc.want, reason)
		})
	}
}

func TestParseRowNormalizesFields(t *testing.T) {
	row, reason := ParseRow(map[string]string{
		"supplier_name":  " Acme ",
		"SKU":            " X1 ",
		"item_name":      " Tomato ",
		"Pack Size":      " 6 x 1kg ",
		"UOM":            " case ",
		"Price":          " $1,234.567 ",
		"Currency":       "   ",
		"Effective Date": "2025-01-01",
		"Aliases":        " roma;plum ",
	}, "USD")
	require.Equal(t, SkipNone, reason)

	assert.Equal(t, "Acme", row.SupplierName)
	assert.Equal(t, "X1", row.SKU)
	assert.Equal(t, "Tomato", row.IngredientName)
	assert.Equal(t, "6 x 1kg", row.PackSize)
	assert.Equal(t, "case", row.UOM)
	assert.Equal(t, "1234.57", row.Price.StringFixed(2))
	assert.Equal(t, "USD", row.Currency)
	assert.Equal(t, "roma;plum", row.Aliases)
}

func TestParseRowPrefersPrimaryHeader(t *testing.T) {
	row, reason := ParseRow(map[string]string{
		"Supplier Name":  "Primary",
		"supplier_name":  "Secondary",
		"Item Name":      "",
		"item_name":      "Fallback",
		"SKU":            "X1",
		"Price":          "1",
		"Currency":       "CAD",
		"Effective Date": "2025-01-01",
	}, "USD")
	require.Equal(t, SkipNone, reason)
	assert.Equal(t, "Primary", row.SupplierName)
	assert.Equal(t, "Fallback", row.IngredientName)
	assert.Equal(t, "CAD", row.Currency)
}
