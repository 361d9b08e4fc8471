package pricelist

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/pricelist-backend/internal/catalog"
	"github.com/angelmondragon/pricelist-backend/internal/users"
	"github.com/angelmondragon/pricelist-backend/pkg/db"
	"github.com/angelmondragon/pricelist-backend/pkg/db/models"
	"github.com/angelmondragon/pricelist-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/pricelist-backend/pkg/errors"
	"github.com/angelmondragon/pricelist-backend/pkg/logger"
	"github.com/angelmondragon/pricelist-backend/pkg/metrics"
	pkgpagination "github.com/angelmondragon/pricelist-backend/pkg/pagination"
	"github.com/angelmondragon/pricelist-backend/pkg/types"
)

// Actor identifies the authenticated reviewer performing an action.
type Actor struct {
	UserID   uuid.UUID
	Username string
}

// Service exposes the reviewer surface over price list items.
type Service interface {
	GetItem(ctx context.Context, id uuid.UUID) (*ItemDTO, error)
	ListItems(ctx context.Context, params ListParams) (*ListResult, error)
	CreateItem(ctx context.Context, input CreateItemInput) (*ItemDTO, error)
	UpdateItem(ctx context.Context, id uuid.UUID, input UpdateItemInput) (*ItemDTO, error)
	Approve(ctx context.Context, actor Actor, ids []uuid.UUID) (BatchResult, error)
	Reject(ctx context.Context, actor Actor, ids []uuid.UUID) (BatchResult, error)
	Unapprove(ctx context.Context, actor Actor, ids []uuid.UUID) (BatchResult, error)
	Export(ctx context.Context, ids []uuid.UUID, format ExportFormat, w io.Writer) error
}

// CreateItemInput is a manually entered price. The supplier is resolved by
// exact name, creating it when unknown.
type CreateItemInput struct {
	SupplierName  string
	IngredientID  *uuid.UUID
	SKU           string
	PackSize      *string
	UOM           *string
	Price         *decimal.Decimal
	Currency      string
	EffectiveDate time.Time
	SourceFile    *string
}

// UpdateItemInput is a partial edit; only fields with Set=true are touched.
// Status and approval stamps change only through the batch actions.
type UpdateItemInput struct {
	SKU           types.Nullable[string]
	SupplierID    types.Nullable[uuid.UUID]
	IngredientID  types.Nullable[uuid.UUID]
	PackSize      types.Nullable[string]
	UOM           types.Nullable[string]
	Price         types.Nullable[decimal.Decimal]
	Currency      types.Nullable[string]
	EffectiveDate types.Nullable[time.Time]
	SourceFile    types.Nullable[string]
}

// ServiceParams wires the price list service.
type ServiceParams struct {
	DB              db.TxRunner
	Conn            *gorm.DB
	Logger          *logger.Logger
	Metrics         *metrics.ReviewMetrics
	DefaultCurrency string
	Now             func() time.Time
}

type service struct {
	tx              db.TxRunner
	conn            *gorm.DB
	logg            *logger.Logger
	metrics         *metrics.ReviewMetrics
	defaultCurrency string
	now             func() time.Time
}

// NewService builds the price list service.
func NewService(params ServiceParams) (Service, error) {
	if params.DB == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Conn == nil {
		return nil, fmt.Errorf("database connection required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	currency := strings.ToUpper(strings.TrimSpace(params.DefaultCurrency))
	if currency == "" {
		currency = models.DefaultCurrency
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		tx:              params.DB,
		conn:            params.Conn,
		logg:            logg,
		metrics:         params.Metrics,
		defaultCurrency: currency,
		now:             now,
	}, nil
}

func (s *service) GetItem(ctx context.Context, id uuid.UUID) (*ItemDTO, error) {
	item, err := NewRepository(s.conn).FindByID(ctx, id)
	if err != nil {
		return nil, mapLookupErr(err, "price item")
	}
	dto := ToItemDTO(*item)
	return &dto, nil
}

func (s *service) ListItems(ctx context.Context, params ListParams) (*ListResult, error) {
	limit := pkgpagination.NormalizeLimit(params.Limit)
	cursor, err := pkgpagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	opts := listQuery{
		supplierID:    params.SupplierID,
		ingredientID:  params.IngredientID,
		currency:      strings.ToUpper(strings.TrimSpace(params.Currency)),
		search:        params.Search,
		effectiveFrom: params.EffectiveFrom,
		effectiveTo:   params.EffectiveTo,
		limit:         pkgpagination.LimitWithBuffer(limit),
	}
	if cursor != nil {
		opts.offset = cursor.Offset
	}
	if raw := strings.TrimSpace(params.Status); raw != "" {
		status, err := enums.ParsePriceItemStatus(raw)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter")
		}
		opts.status = &status
	}

	rows, err := NewRepository(s.conn).List(ctx, opts)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list price items")
	}

	result := &ListResult{Items: make([]ItemDTO, 0, len(rows))}
	if len(rows) > limit {
		rows = rows[:limit]
		result.Cursor = pkgpagination.EncodeCursor(pkgpagination.Cursor{Offset: opts.offset + limit})
	}
	for _, row := range rows {
		result.Items = append(result.Items, ToItemDTO(row))
	}
	return result, nil
}

func (s *service) CreateItem(ctx context.Context, input CreateItemInput) (*ItemDTO, error) {
	supplierName := strings.TrimSpace(input.SupplierName)
	if supplierName == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "supplier_name is required")
	}
	sku := strings.TrimSpace(input.SKU)
	if sku == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "sku is required")
	}
	if input.EffectiveDate.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "effective_date is required")
	}
	price, err := normalizePrice(input.Price)
	if err != nil {
		return nil, err
	}
	currency := strings.ToUpper(strings.TrimSpace(input.Currency))
	if currency == "" {
		currency = s.defaultCurrency
	}

	item := &models.PriceListItem{
		SKU:           sku,
		PackSize:      optionalString(input.PackSize),
		UOM:           optionalString(input.UOM),
		Price:         price,
		Currency:      currency,
		EffectiveDate: models.DateOnly(input.EffectiveDate),
		Status:        enums.PriceItemStatusPending,
		SourceFile:    optionalString(input.SourceFile),
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		catalogRepo := catalog.NewRepository(tx)
		supplier, _, err := catalogRepo.FindOrCreateSupplier(ctx, supplierName)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve supplier")
		}
		item.SupplierID = supplier.ID

		if input.IngredientID != nil {
			if _, err := catalogRepo.FindIngredientByID(ctx, *input.IngredientID); err != nil {
				return mapLookupErr(err, "ingredient")
			}
			item.IngredientID = input.IngredientID
		}

		if err := NewRepository(tx).Create(ctx, item); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create price item")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"price_item_id": item.ID.String(),
		"supplier_id":   item.SupplierID.String(),
		"sku":           item.SKU,
	}), "price item created")
	return s.GetItem(ctx, item.ID)
}

func (s *service) UpdateItem(ctx context.Context, id uuid.UUID, input UpdateItemInput) (*ItemDTO, error) {
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := NewRepository(tx)
		items, err := repo.FindByIDs(ctx, []uuid.UUID{id})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load price item")
		}
		if len(items) == 0 {
			return pkgerrors.New(pkgerrors.CodeNotFound, "price item not found")
		}
		item := &items[0]

		if locked := lockedFieldsTouched(item, input); len(locked) > 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "approved items cannot change these fields").
				WithDetails(map[string]any{"status": item.Status, "fields": locked})
		}

		updates, err := s.buildUpdates(ctx, catalog.NewRepository(tx), input)
		if err != nil {
			return err
		}
		if len(updates) == 0 {
			return nil
		}
		if err := repo.UpdateColumns(ctx, id, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update price item")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetItem(ctx, id)
}

func (s *service) buildUpdates(ctx context.Context, catalogRepo *catalog.Repository, input UpdateItemInput) (map[string]any, error) {
	updates := map[string]any{}

	if input.SKU.Set {
		if input.SKU.Value == nil || strings.TrimSpace(*input.SKU.Value) == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "sku cannot be empty")
		}
		updates["sku"] = strings.TrimSpace(*input.SKU.Value)
	}
	if input.SupplierID.Set {
		if input.SupplierID.Value == nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "supplier_id cannot be null")
		}
		if _, err := catalogRepo.FindSupplierByID(ctx, *input.SupplierID.Value); err != nil {
			return nil, mapLookupErr(err, "supplier")
		}
		updates["supplier_id"] = *input.SupplierID.Value
	}
	if input.IngredientID.Set {
		if input.IngredientID.Value == nil {
			updates["ingredient_id"] = nil
		} else {
			if _, err := catalogRepo.FindIngredientByID(ctx, *input.IngredientID.Value); err != nil {
				return nil, mapLookupErr(err, "ingredient")
			}
			updates["ingredient_id"] = *input.IngredientID.Value
		}
	}
	if input.PackSize.Set {
		updates["pack_size"] = nullableString(input.PackSize)
	}
	if input.UOM.Set {
		updates["uom"] = nullableString(input.UOM)
	}
	if input.Price.Set {
		price, err := normalizePrice(input.Price.Value)
		if err != nil {
			return nil, err
		}
		updates["price"] = price
	}
	if input.Currency.Set {
		if input.Currency.Value == nil || strings.TrimSpace(*input.Currency.Value) == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "currency cannot be empty")
		}
		updates["currency"] = strings.ToUpper(strings.TrimSpace(*input.Currency.Value))
	}
	if input.EffectiveDate.Set {
		if input.EffectiveDate.Value == nil || input.EffectiveDate.Value.IsZero() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "effective_date cannot be empty")
		}
		updates["effective_date"] = models.DateOnly(*input.EffectiveDate.Value)
	}
	if input.SourceFile.Set {
		updates["source_file"] = nullableString(input.SourceFile)
	}
	return updates, nil
}

// lockedFieldsTouched lists the read-only fields the input tries to set.
func lockedFieldsTouched(item *models.PriceListItem, input UpdateItemInput) []enums.PriceItemField {
	touched := map[enums.PriceItemField]bool{
		enums.PriceItemFieldSKU:           input.SKU.Set,
		enums.PriceItemFieldSupplier:      input.SupplierID.Set,
		enums.PriceItemFieldIngredient:    input.IngredientID.Set,
		enums.PriceItemFieldPackSize:      input.PackSize.Set,
		enums.PriceItemFieldUOM:           input.UOM.Set,
		enums.PriceItemFieldPrice:         input.Price.Set,
		enums.PriceItemFieldCurrency:      input.Currency.Set,
		enums.PriceItemFieldEffectiveDate: input.EffectiveDate.Set,
		enums.PriceItemFieldSourceFile:    input.SourceFile.Set,
	}
	locked := []enums.PriceItemField{}
	for _, field := range ReadOnlyFields(item) {
		if touched[field] {
			locked = append(locked, field)
		}
	}
	return locked
}

// Approve marks every selected item approved and stamps the reviewer and
// time, whatever each item's prior status was.
func (s *service) Approve(ctx context.Context, actor Actor, ids []uuid.UUID) (BatchResult, error) {
	result := BatchResult{Action: ActionApprove}
	ids, err := s.checkBatch(actor, ids, true)
	if err != nil {
		return result, err
	}

	at := s.now().UTC()
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		reviewer, err := users.NewRepository(tx).Ensure(ctx, actor.UserID, actor.Username)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve reviewer")
		}

		repo := NewRepository(tx)
		items, err := repo.FindByIDs(ctx, ids)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load price items")
		}
		for i := range items {
			item := &items[i]
			item.Status = enums.PriceItemStatusApproved
			item.ApprovedByID = &reviewer.ID
			item.ApprovedAt = &at
			if err := repo.SaveReview(ctx, item); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "approve price item")
			}
			result.Updated++
		}
		return nil
	})
	if err != nil {
		return BatchResult{Action: ActionApprove}, err
	}

	s.logBatch(ctx, actor, result, len(ids))
	return result, nil
}

// Reject moves every selected item to rejected in one statement. Approval
// stamps are left as they were.
func (s *service) Reject(ctx context.Context, actor Actor, ids []uuid.UUID) (BatchResult, error) {
	result := BatchResult{Action: ActionReject}
	ids, err := s.checkBatch(actor, ids, false)
	if err != nil {
		return result, err
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		n, err := NewRepository(tx).SetStatus(ctx, ids, enums.PriceItemStatusRejected)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reject price items")
		}
		result.Updated = int(n)
		return nil
	})
	if err != nil {
		return BatchResult{Action: ActionReject}, err
	}

	s.logBatch(ctx, actor, result, len(ids))
	return result, nil
}

// Unapprove returns approved items to pending and clears their stamps.
// Selected items in any other status are left untouched and not counted.
func (s *service) Unapprove(ctx context.Context, actor Actor, ids []uuid.UUID) (BatchResult, error) {
	result := BatchResult{Action: ActionUnapprove}
	ids, err := s.checkBatch(actor, ids, false)
	if err != nil {
		return result, err
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := NewRepository(tx)
		items, err := repo.FindByIDs(ctx, ids)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load price items")
		}
		for i := range items {
			item := &items[i]
			if item.Status != enums.PriceItemStatusApproved {
				continue
			}
			item.Status = enums.PriceItemStatusPending
			item.ApprovedByID = nil
			item.ApprovedAt = nil
			if err := repo.SaveReview(ctx, item); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "unapprove price item")
			}
			result.Updated++
		}
		return nil
	})
	if err != nil {
		return BatchResult{Action: ActionUnapprove}, err
	}

	s.logBatch(ctx, actor, result, len(ids))
	return result, nil
}

// checkBatch dedupes the selection. Only approve stamps a reviewer, so only
// approve requires one.
func (s *service) checkBatch(actor Actor, ids []uuid.UUID, needsActor bool) ([]uuid.UUID, error) {
	if needsActor && actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "reviewer identity missing")
	}
	ids = uniqueIDs(ids)
	if len(ids) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "select at least one price item")
	}
	return ids, nil
}

func (s *service) logBatch(ctx context.Context, actor Actor, result BatchResult, selected int) {
	s.metrics.ObserveBatch(string(result.Action), result.Updated)
	ctx = s.logg.WithActor(ctx, actor.UserID.String(), actor.Username)
	ctx = s.logg.WithFields(ctx, map[string]any{
		"action":   string(result.Action),
		"selected": selected,
		"updated":  result.Updated,
	})
	s.logg.Info(ctx, result.Message())
}

func (s *service) Export(ctx context.Context, ids []uuid.UUID, format ExportFormat, w io.Writer) error {
	ids = uniqueIDs(ids)
	if len(ids) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "select at least one price item")
	}
	if !format.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unsupported export format %q", format))
	}

	rows, err := NewRepository(s.conn).List(ctx, listQuery{ids: ids})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load price items")
	}

	switch format {
	case ExportXLSX:
		err = WriteXLSX(w, rows)
	default:
		err = WriteCSV(w, rows)
	}
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "write export")
	}
	return nil
}

func normalizePrice(price *decimal.Decimal) (decimal.NullDecimal, error) {
	if price == nil {
		return decimal.NullDecimal{}, nil
	}
	if price.IsNegative() {
		return decimal.NullDecimal{}, pkgerrors.New(pkgerrors.CodeValidation, "price cannot be negative")
	}
	return decimal.NewNullDecimal(price.Round(2)), nil
}

func optionalString(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func nullableString(value types.Nullable[string]) any {
	if trimmed := optionalString(value.Value); trimmed != nil {
		return *trimmed
	}
	return nil
}

func uniqueIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if id == uuid.Nil {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func mapLookupErr(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, what+" not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load "+what)
}
