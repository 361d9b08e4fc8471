package enums

import "fmt"

// PriceItemStatus maps to the price_item_status enum in Postgres.
type PriceItemStatus string

const (
	PriceItemStatusPending  PriceItemStatus = "pending"
	PriceItemStatusApproved PriceItemStatus = "approved"
	PriceItemStatusRejected PriceItemStatus = "rejected"
)

var validPriceItemStatuses = []PriceItemStatus{
	PriceItemStatusPending,
	PriceItemStatusApproved,
	PriceItemStatusRejected,
}

// String implements fmt.Stringer.
func (s PriceItemStatus) String() string {
	return string(s)
}

// IsValid reports whether the value matches the canonical price_item_status enum.
func (s PriceItemStatus) IsValid() bool {
	for _, candidate := range validPriceItemStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParsePriceItemStatus converts raw input into PriceItemStatus.
func ParsePriceItemStatus(value string) (PriceItemStatus, error) {
	for _, candidate := range validPriceItemStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid price item status %q", value)
}
