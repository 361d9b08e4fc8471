package pricelist

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/pricelist-backend/pkg/db/models"
	"github.com/angelmondragon/pricelist-backend/pkg/enums"
	pkgpagination "github.com/angelmondragon/pricelist-backend/pkg/pagination"
)

// DateLayout is the wire and export format of effective dates.
const DateLayout = "2006-01-02"

type ListParams struct {
	SupplierID    *uuid.UUID
	IngredientID  *uuid.UUID
	Status        string
	Currency      string
	Search        string
	EffectiveFrom *time.Time
	EffectiveTo   *time.Time
	pkgpagination.Params
}

type ListResult struct {
	Items  []ItemDTO `json:"items"`
	Cursor string    `json:"cursor"`
}

// ItemDTO is the reviewer-facing projection of a price list item.
type ItemDTO struct {
	ID             uuid.UUID              `json:"id"`
	SupplierID     uuid.UUID              `json:"supplier_id"`
	SupplierName   string                 `json:"supplier_name"`
	IngredientID   *uuid.UUID             `json:"ingredient_id"`
	IngredientName *string                `json:"ingredient_name"`
	SKU            string                 `json:"sku"`
	PackSize       *string                `json:"pack_size"`
	UOM            *string                `json:"uom"`
	Price          *string                `json:"price"`
	Currency       string                 `json:"currency"`
	EffectiveDate  string                 `json:"effective_date"`
	Status         enums.PriceItemStatus  `json:"status"`
	SourceFile     *string                `json:"source_file"`
	ApprovedByID   *uuid.UUID             `json:"approved_by_id"`
	ApprovedBy     *string                `json:"approved_by"`
	ApprovedAt     *time.Time             `json:"approved_at"`
	ReadOnlyFields []enums.PriceItemField `json:"read_only_fields"`
	CreatedAt      time.Time              `json:"created_at"`
	UpdatedAt      time.Time              `json:"updated_at"`
}

// ToItemDTO projects a loaded item, including the fields currently locked.
func ToItemDTO(m models.PriceListItem) ItemDTO {
	dto := ItemDTO{
		ID:             m.ID,
		SupplierID:     m.SupplierID,
		IngredientID:   m.IngredientID,
		SKU:            m.SKU,
		PackSize:       m.PackSize,
		UOM:            m.UOM,
		Currency:       m.Currency,
		EffectiveDate:  m.EffectiveDate.UTC().Format(DateLayout),
		Status:         m.Status,
		SourceFile:     m.SourceFile,
		ApprovedByID:   m.ApprovedByID,
		ApprovedAt:     m.ApprovedAt,
		ReadOnlyFields: ReadOnlyFields(&m),
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
	if m.Supplier != nil {
		dto.SupplierName = m.Supplier.Name
	}
	if m.Ingredient != nil {
		name := m.Ingredient.Name
		dto.IngredientName = &name
	}
	if m.Price.Valid {
		price := m.Price.Decimal.StringFixed(2)
		dto.Price = &price
	}
	if m.ApprovedBy != nil {
		username := m.ApprovedBy.Username
		dto.ApprovedBy = &username
	}
	return dto
}
