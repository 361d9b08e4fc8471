package pricelist

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/pricelist-backend/pkg/db/models"
	"github.com/angelmondragon/pricelist-backend/pkg/enums"
)

const itemsTable = "price_list_items"

// Repository persists price list items.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds a price list repository to db, which may be a transaction.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// listQuery is the repository form of a filtered listing.
type listQuery struct {
	ids           []uuid.UUID
	supplierID    *uuid.UUID
	ingredientID  *uuid.UUID
	status        *enums.PriceItemStatus
	currency      string
	search        string
	effectiveFrom *time.Time
	effectiveTo   *time.Time
	offset        int
	limit         int
}

// FindByKey loads the item matching the import identity (supplier, sku, effective date).
func (r *Repository) FindByKey(ctx context.Context, supplierID uuid.UUID, sku string, effective time.Time) (*models.PriceListItem, error) {
	var item models.PriceListItem
	err := r.db.WithContext(ctx).
		Where("supplier_id = ? AND sku = ? AND effective_date = ?", supplierID, sku, models.DateOnly(effective)).
		Order("created_at ASC").
		Order("id ASC").
		First(&item).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// Create inserts a new item.
func (r *Repository) Create(ctx context.Context, item *models.PriceListItem) error {
	return r.db.WithContext(ctx).Create(item).Error
}

// SaveImportFields overwrites the columns an import refreshes on an existing item.
func (r *Repository) SaveImportFields(ctx context.Context, item *models.PriceListItem) error {
	return r.db.WithContext(ctx).
		Model(item).
		Select("pack_size", "uom", "price", "currency", "source_file", "ingredient_id", "updated_at").
		Updates(item).Error
}

// SaveReview persists the status and approval stamp of item.
func (r *Repository) SaveReview(ctx context.Context, item *models.PriceListItem) error {
	return r.db.WithContext(ctx).
		Model(item).
		Select("status", "approved_by_id", "approved_at", "updated_at").
		Updates(item).Error
}

// SetStatus moves every listed item to status in one statement and returns
// how many rows matched.
func (r *Repository) SetStatus(ctx context.Context, ids []uuid.UUID, status enums.PriceItemStatus) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.PriceListItem{}).
		Where("id IN ?", ids).
		Update("status", status)
	return res.RowsAffected, res.Error
}

// UpdateColumns applies a partial update to a single item.
func (r *Repository) UpdateColumns(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	res := r.db.WithContext(ctx).Model(&models.PriceListItem{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// FindByIDs loads the bare items among ids that exist.
func (r *Repository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.PriceListItem, error) {
	var rows []models.PriceListItem
	if len(ids) == 0 {
		return rows, nil
	}
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// FindByID loads one item with its supplier, ingredient and approver.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.PriceListItem, error) {
	var item models.PriceListItem
	err := r.withRelations(ctx).
		Where(clause.Eq{Column: clause.Column{Table: itemsTable, Name: "id"}, Value: id}).
		First(&item).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// List returns items matching opts in display order. Related rows are joined
// into the same statement so a page costs a single query.
func (r *Repository) List(ctx context.Context, opts listQuery) ([]models.PriceListItem, error) {
	query := r.withRelations(ctx)

	if len(opts.ids) > 0 {
		query = query.Where(clause.IN{Column: clause.Column{Table: itemsTable, Name: "id"}, Values: uuidValues(opts.ids)})
	}
	if opts.supplierID != nil {
		query = query.Where(clause.Eq{Column: clause.Column{Table: itemsTable, Name: "supplier_id"}, Value: *opts.supplierID})
	}
	if opts.ingredientID != nil {
		query = query.Where(clause.Eq{Column: clause.Column{Table: itemsTable, Name: "ingredient_id"}, Value: *opts.ingredientID})
	}
	if opts.status != nil {
		query = query.Where(clause.Eq{Column: clause.Column{Table: itemsTable, Name: "status"}, Value: *opts.status})
	}
	if opts.currency != "" {
		query = query.Where(clause.Eq{Column: clause.Column{Table: itemsTable, Name: "currency"}, Value: opts.currency})
	}
	if opts.effectiveFrom != nil {
		query = query.Where(clause.Gte{Column: clause.Column{Table: itemsTable, Name: "effective_date"}, Value: models.DateOnly(*opts.effectiveFrom)})
	}
	if opts.effectiveTo != nil {
		query = query.Where(clause.Lte{Column: clause.Column{Table: itemsTable, Name: "effective_date"}, Value: models.DateOnly(*opts.effectiveTo)})
	}
	if term := strings.TrimSpace(opts.search); term != "" {
		pattern := "%" + strings.ToLower(term) + "%"
		query = query.Where(
			`LOWER(price_list_items.sku) LIKE ? OR LOWER("Supplier".name) LIKE ? OR LOWER(COALESCE("Ingredient".name, '')) LIKE ? OR LOWER(COALESCE("Ingredient".aliases, '')) LIKE ?`,
			pattern, pattern, pattern, pattern,
		)
	}

	query = query.
		Order(clause.OrderByColumn{Column: clause.Column{Table: itemsTable, Name: "effective_date"}, Desc: true}).
		Order(clause.OrderByColumn{Column: clause.Column{Table: "Supplier", Name: "name"}}).
		Order(clause.OrderByColumn{Column: clause.Column{Table: itemsTable, Name: "sku"}}).
		Order(clause.OrderByColumn{Column: clause.Column{Table: itemsTable, Name: "id"}})

	if opts.offset > 0 {
		query = query.Offset(opts.offset)
	}
	if opts.limit > 0 {
		query = query.Limit(opts.limit)
	}

	var rows []models.PriceListItem
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *Repository) withRelations(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Model(&models.PriceListItem{}).
		Joins("Supplier").
		Joins("Ingredient").
		Joins("ApprovedBy")
}

func uuidValues(ids []uuid.UUID) []any {
	out := make([]any, len(ids))
	for i, id := range ids {
		out[i] = id
	}
	return out
}
