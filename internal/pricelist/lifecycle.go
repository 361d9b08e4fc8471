package pricelist

import (
	"fmt"

	"github.com/angelmondragon/pricelist-backend/pkg/db/models"
	"github.com/angelmondragon/pricelist-backend/pkg/enums"
)

// approvedReadOnly lists the commercial fields locked while an item is approved.
var approvedReadOnly = []enums.PriceItemField{
	enums.PriceItemFieldPrice,
	enums.PriceItemFieldCurrency,
	enums.PriceItemFieldPackSize,
	enums.PriceItemFieldUOM,
	enums.PriceItemFieldEffectiveDate,
	enums.PriceItemFieldSourceFile,
	enums.PriceItemFieldIngredient,
}

// ReadOnlyFields reports which fields the edit surface must refuse for item.
// Approved items lock their commercial fields; every other status is fully editable.
func ReadOnlyFields(item *models.PriceListItem) []enums.PriceItemField {
	if item == nil || item.Status != enums.PriceItemStatusApproved {
		return []enums.PriceItemField{}
	}
	out := make([]enums.PriceItemField, len(approvedReadOnly))
	copy(out, approvedReadOnly)
	return out
}

// IsReadOnly reports whether field is locked for item.
func IsReadOnly(item *models.PriceListItem, field enums.PriceItemField) bool {
	for _, locked := range ReadOnlyFields(item) {
		if locked == field {
			return true
		}
	}
	return false
}

// Action names a batch review transition.
type Action string

const (
	ActionApprove   Action = "approve"
	ActionReject    Action = "reject"
	ActionUnapprove Action = "unapprove"
)

var actionVerbs = map[Action]string{
	ActionApprove:   "Approved",
	ActionReject:    "Rejected",
	ActionUnapprove: "Unapproved",
}

// BatchResult summarises a batch review action.
type BatchResult struct {
	Action  Action
	Updated int
}

// Message renders the confirmation shown to the reviewer.
func (r BatchResult) Message() string {
	return fmt.Sprintf("%s %d items.", actionVerbs[r.Action], r.Updated)
}
