package catalog

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/pricelist-backend/pkg/db/models"
)

// Repository resolves supplier and ingredient identities.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a catalog repository tied to the provided GORM DB.
// Pass a transaction handle to make every call part of that unit of work.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// FindOrCreateSupplier returns the supplier with exactly this name, creating it
// when none exists. The boolean reports whether a row was inserted.
func (r *Repository) FindOrCreateSupplier(ctx context.Context, name string) (*models.Supplier, bool, error) {
	found, err := r.findSupplierByName(ctx, name)
	if err == nil {
		return found, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}

	supplier := &models.Supplier{Name: name, IsActive: true}
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(supplier)
	if res.Error != nil {
		return nil, false, res.Error
	}
	if res.RowsAffected == 0 {
		// lost a race against a concurrent insert of the same name
		found, err := r.findSupplierByName(ctx, name)
		if err != nil {
			return nil, false, err
		}
		return found, false, nil
	}
	return supplier, true, nil
}

func (r *Repository) findSupplierByName(ctx context.Context, name string) (*models.Supplier, error) {
	var supplier models.Supplier
	err := r.db.WithContext(ctx).
		Where("name = ?", name).
		Order("created_at ASC").
		Order("id ASC").
		First(&supplier).Error
	if err != nil {
		return nil, err
	}
	return &supplier, nil
}

// CreateSupplier inserts a fully specified supplier row.
func (r *Repository) CreateSupplier(ctx context.Context, supplier *models.Supplier) error {
	return r.db.WithContext(ctx).Create(supplier).Error
}

// FindSupplierByID loads a supplier by primary key.
func (r *Repository) FindSupplierByID(ctx context.Context, id uuid.UUID) (*models.Supplier, error) {
	var supplier models.Supplier
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&supplier).Error; err != nil {
		return nil, err
	}
	return &supplier, nil
}

// SupplierFilter narrows supplier listings.
type SupplierFilter struct {
	Search      string
	CountryCode string
	ActiveOnly  bool
}

// ListSuppliers returns suppliers ordered by name.
func (r *Repository) ListSuppliers(ctx context.Context, filter SupplierFilter) ([]models.Supplier, error) {
	query := r.db.WithContext(ctx).Model(&models.Supplier{})
	if s := strings.TrimSpace(filter.Search); s != "" {
		query = query.Where("LOWER(name) LIKE ?", likePattern(s))
	}
	if cc := strings.TrimSpace(filter.CountryCode); cc != "" {
		query = query.Where("country_code = ?", strings.ToUpper(cc))
	}
	if filter.ActiveOnly {
		query = query.Where("is_active = ?", true)
	}

	var rows []models.Supplier
	if err := query.Order("name ASC").Order("id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// SetSupplierActive toggles the active flag; suppliers are never deleted.
func (r *Repository) SetSupplierActive(ctx context.Context, id uuid.UUID, active bool) error {
	res := r.db.WithContext(ctx).Model(&models.Supplier{}).Where("id = ?", id).Update("is_active", active)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// FindIngredientByName performs a case-insensitive exact name lookup.
func (r *Repository) FindIngredientByName(ctx context.Context, name string) (*models.Ingredient, error) {
	var ingredient models.Ingredient
	err := r.db.WithContext(ctx).
		Where("LOWER(name) = ?", strings.ToLower(name)).
		Order("created_at ASC").
		First(&ingredient).Error
	if err != nil {
		return nil, err
	}
	return &ingredient, nil
}

// FindIngredientOrCreateWithAlias resolves name case-insensitively. When no
// ingredient matches and aliasRaw is non-empty a new ingredient is created
// with those aliases; otherwise the result is nil without error.
func (r *Repository) FindIngredientOrCreateWithAlias(ctx context.Context, name, aliasRaw string) (*models.Ingredient, bool, error) {
	if name == "" {
		return nil, false, nil
	}

	found, err := r.FindIngredientByName(ctx, name)
	if err == nil {
		return found, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}
	if aliasRaw == "" {
		return nil, false, nil
	}

	aliases := aliasRaw
	ingredient := &models.Ingredient{Name: name, Aliases: &aliases, IsActive: true}
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(ingredient)
	if res.Error != nil {
		return nil, false, res.Error
	}
	if res.RowsAffected == 0 {
		found, err := r.FindIngredientByName(ctx, name)
		if err != nil {
			return nil, false, err
		}
		return found, false, nil
	}
	return ingredient, true, nil
}

// CreateIngredient inserts an ingredient row.
func (r *Repository) CreateIngredient(ctx context.Context, ingredient *models.Ingredient) error {
	return r.db.WithContext(ctx).Create(ingredient).Error
}

// FindIngredientByID loads an ingredient by primary key.
func (r *Repository) FindIngredientByID(ctx context.Context, id uuid.UUID) (*models.Ingredient, error) {
	var ingredient models.Ingredient
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&ingredient).Error; err != nil {
		return nil, err
	}
	return &ingredient, nil
}

// ListIngredients returns ingredients ordered by name, optionally matching
// the search term against names and aliases.
func (r *Repository) ListIngredients(ctx context.Context, search string) ([]models.Ingredient, error) {
	query := r.db.WithContext(ctx).Model(&models.Ingredient{})
	if s := strings.TrimSpace(search); s != "" {
		pattern := likePattern(s)
		query = query.Where("LOWER(name) LIKE ? OR LOWER(COALESCE(aliases, '')) LIKE ?", pattern, pattern)
	}

	var rows []models.Ingredient
	if err := query.Order("name ASC").Order("id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func likePattern(term string) string {
	return "%" + strings.ToLower(term) + "%"
}
