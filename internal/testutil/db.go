// Package testutil provides an in-memory SQLite catalog for package tests.
package testutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/pricelist-backend/pkg/config"
	"github.com/angelmondragon/pricelist-backend/pkg/db"
	"github.com/angelmondragon/pricelist-backend/pkg/db/models"
	"github.com/angelmondragon/pricelist-backend/pkg/enums"
	"github.com/angelmondragon/pricelist-backend/pkg/migrate"
)

// NewDB opens an isolated in-memory SQLite database with the full schema.
func NewDB(t *testing.T) *db.Client {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=on", uuid.NewString())
	client, err := db.New(context.Background(), config.DBConfig{Driver: config.DriverSQLite, DSN: dsn}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	require.NoError(t, migrate.AutoMigrate(context.Background(), client))
	return client
}

// Date builds a UTC calendar date.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func CreateUser(t *testing.T, conn *gorm.DB, username string) *models.User {
	t.Helper()
	user := &models.User{Username: username, IsActive: true}
	require.NoError(t, conn.Create(user).Error)
	return user
}

func CreateSupplier(t *testing.T, conn *gorm.DB, name string) *models.Supplier {
	t.Helper()
	supplier := &models.Supplier{Name: name, IsActive: true}
	require.NoError(t, conn.Create(supplier).Error)
	return supplier
}

func CreateIngredient(t *testing.T, conn *gorm.DB, name, aliases string) *models.Ingredient {
	t.Helper()
	ingredient := &models.Ingredient{Name: name, IsActive: true}
	if aliases != "" {
		ingredient.Aliases = &aliases
	}
	require.NoError(t, conn.Create(ingredient).Error)
	return ingredient
}

// CreateItem inserts a pending item for supplier with the given sku and price.
func CreateItem(t *testing.T, conn *gorm.DB, supplier *models.Supplier, sku, price string, effective time.Time) *models.PriceListItem {
	t.Helper()
	item := &models.PriceListItem{
		SupplierID:    supplier.ID,
		SKU:           sku,
		Currency:      models.DefaultCurrency,
		EffectiveDate: models.DateOnly(effective),
		Status:        enums.PriceItemStatusPending,
	}
	if price != "" {
		item.Price = decimal.NewNullDecimal(decimal.RequireFromString(price))
	}
	require.NoError(t, conn.Create(item).Error)
	return item
}

// SetStatus forces an item into status without going through the lifecycle.
func SetStatus(t *testing.T, conn *gorm.DB, item *models.PriceListItem, status enums.PriceItemStatus) {
	t.Helper()
	require.NoError(t, conn.Model(&models.PriceListItem{}).Where("id = ?", item.ID).Update("status", status).Error)
	item.Status = status
}

// Reload fetches the current persisted state of an item.
func Reload(t *testing.T, conn *gorm.DB, id uuid.UUID) *models.PriceListItem {
	t.Helper()
	var item models.PriceListItem
	require.NoError(t, conn.Where("id = ?", id).First(&item).Error)
	return &item
}
