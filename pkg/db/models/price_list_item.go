package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/pricelist-backend/pkg/enums"
)

// PriceListItem is one supplier price for a SKU effective from a given date.
// (supplier_id, sku, effective_date) is the import idempotency key.
type PriceListItem struct {
	ID            uuid.UUID             `gorm:"column:id;type:uuid;primaryKey"`
	SupplierID    uuid.UUID             `gorm:"column:supplier_id;type:uuid;not null;index:idx_price_list_items_supplier_sku_date,priority:1"`
	Supplier      *Supplier             `gorm:"foreignKey:SupplierID;constraint:OnDelete:CASCADE"`
	IngredientID  *uuid.UUID            `gorm:"column:ingredient_id;type:uuid"`
	Ingredient    *Ingredient           `gorm:"foreignKey:IngredientID;constraint:OnDelete:SET NULL"`
	SKU           string                `gorm:"column:sku;not null;index:idx_price_list_items_supplier_sku_date,priority:2"`
	PackSize      *string               `gorm:"column:pack_size"`
	UOM           *string               `gorm:"column:uom;size:64"`
	Price         decimal.NullDecimal   `gorm:"column:price;type:numeric(12,2)"`
	Currency      string                `gorm:"column:currency;size:8;not null;default:'USD'"`
	EffectiveDate time.Time             `gorm:"column:effective_date;type:date;not null;index:idx_price_list_items_supplier_sku_date,priority:3"`
	Status        enums.PriceItemStatus `gorm:"column:status;type:price_item_status;not null;default:'pending'"`
	SourceFile    *string               `gorm:"column:source_file"`
	ApprovedByID  *uuid.UUID            `gorm:"column:approved_by_id;type:uuid"`
	ApprovedBy    *User                 `gorm:"foreignKey:ApprovedByID;constraint:OnDelete:SET NULL"`
	ApprovedAt    *time.Time            `gorm:"column:approved_at"`
	CreatedAt     time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *PriceListItem) BeforeCreate(*gorm.DB) error {
	ensureID(&p.ID)
	if p.Status == "" {
		p.Status = enums.PriceItemStatusPending
	}
	if p.Currency == "" {
		p.Currency = DefaultCurrency
	}
	return nil
}

// DefaultCurrency applies when neither the caller nor the source row supplies one.
const DefaultCurrency = "USD"

// DateOnly truncates t to midnight UTC so effective dates compare consistently.
func DateOnly(t time.Time) time.Time {
	if t.IsZero() {
		return time.Time{}
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
