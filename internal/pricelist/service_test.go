package pricelist

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/pricelist-backend/internal/testutil"
	"github.com/angelmondragon/pricelist-backend/pkg/db/models"
	"github.com/angelmondragon/pricelist-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/pricelist-backend/pkg/errors"
	pkgpagination "github.com/angelmondragon/pricelist-backend/pkg/pagination"
	"github.com/angelmondragon/pricelist-backend/pkg/types"
)

var reviewedAt = time.Date(2025, time.March, 1, 12, 30, 0, 0, time.UTC)

func newTestService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()
	client := testutil.NewDB(t)
	svc, err := NewService(ServiceParams{
		DB:   client,
		Conn: client.DB(),
		Now:  func() time.Time { return reviewedAt },
	})
	require.NoError(t, err)
	return svc, client.DB()
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	_, err := NewService(ServiceParams{})
	require.Error(t, err)

	client := testutil.NewDB(t)
	_, err = NewService(ServiceParams{DB: client})
	require.Error(t, err)
}

func TestApproveStampsEverySelectedItem(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	reviewer := testutil.CreateUser(t, conn, "alice")
	supplier := testutil.CreateSupplier(t, conn, "Acme")

	pending := testutil.CreateItem(t, conn, supplier, "X1", "2.50", testutil.Date(2025, 1, 1))
	rejected := testutil.CreateItem(t, conn, supplier, "X2", "3.00", testutil.Date(2025, 1, 1))
	testutil.SetStatus(t, conn, rejected, enums.PriceItemStatusRejected)
	untouched := testutil.CreateItem(t, conn, supplier, "X3", "1.00", testutil.Date(2025, 1, 1))

	result, err := svc.Approve(ctx, Actor{UserID: reviewer.ID, Username: "alice"}, []uuid.UUID{pending.ID, rejected.ID, pending.ID, uuid.New()})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Updated)
	assert.Equal(t, "Approved 2 items.", result.Message())

	for _, id := range []uuid.UUID{pending.ID, rejected.ID} {
		got := testutil.Reload(t, conn, id)
		assert.Equal(t, enums.PriceItemStatusApproved, got.Status)
		require.NotNil(t, got.ApprovedByID)
		assert.Equal(t, reviewer.ID, *got.ApprovedByID)
		require.NotNil(t, got.ApprovedAt)
		assert.True(t, reviewedAt.Equal(*got.ApprovedAt), "approved_at %v", got.ApprovedAt)
	}

	other := testutil.Reload(t, conn, untouched.ID)
	assert.Equal(t, enums.PriceItemStatusPending, other.Status)
	assert.Nil(t, other.ApprovedByID)
}

func TestApproveRestampsAlreadyApprovedItem(t *testing.T) {
	client := testutil.NewDB(t)
	clock := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	svc, err := NewService(ServiceParams{
		DB:   client,
		Conn: client.DB(),
		Now:  func() time.Time { return clock },
	})
	require.NoError(t, err)
	conn := client.DB()
	ctx := context.Background()

	first := testutil.CreateUser(t, conn, "alice")
	second := testutil.CreateUser(t, conn, "bob")
	supplier := testutil.CreateSupplier(t, conn, "Acme")
	item := testutil.CreateItem(t, conn, supplier, "X1", "2.50", testutil.Date(2025, 1, 1))

	_, err = svc.Approve(ctx, Actor{UserID: first.ID, Username: "alice"}, []uuid.UUID{item.ID})
	require.NoError(t, err)

	clock = clock.Add(time.Hour)
	result, err := svc.Approve(ctx, Actor{UserID: second.ID, Username: "bob"}, []uuid.UUID{item.ID})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Updated)
	assert.Equal(t, "Approved 1 items.", result.Message())

	got := testutil.Reload(t, conn, item.ID)
	assert.Equal(t, enums.PriceItemStatusApproved, got.Status)
	require.NotNil(t, got.ApprovedByID)
	assert.Equal(t, second.ID, *got.ApprovedByID)
	require.NotNil(t, got.ApprovedAt)
	assert.True(t, clock.Equal(*got.ApprovedAt), "approved_at %v", got.ApprovedAt)
}

func TestApproveRegistersUnknownReviewer(t *testing.T) {
	svc, conn := newTestService(t)
	supplier := testutil.CreateSupplier(t, conn, "Acme")
	item := testutil.CreateItem(t, conn, supplier, "X1", "2.50", testutil.Date(2025, 1, 1))
	actor := Actor{UserID: uuid.New(), Username: "bob"}

	_, err := svc.Approve(context.Background(), actor, []uuid.UUID{item.ID})
	require.NoError(t, err)

	var user models.User
	require.NoError(t, conn.Where("id = ?", actor.UserID).First(&user).Error)
	assert.Equal(t, "bob", user.Username)
}

func TestRejectKeepsApprovalStamps(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	reviewer := testutil.CreateUser(t, conn, "alice")
	actor := Actor{UserID: reviewer.ID, Username: reviewer.Username}
	supplier := testutil.CreateSupplier(t, conn, "Acme")
	first := testutil.CreateItem(t, conn, supplier, "X1", "2.50", testutil.Date(2025, 1, 1))
	second := testutil.CreateItem(t, conn, supplier, "X2", "2.75", testutil.Date(2025, 1, 1))

	_, err := svc.Approve(ctx, actor, []uuid.UUID{first.ID})
	require.NoError(t, err)

	result, err := svc.Reject(ctx, actor, []uuid.UUID{first.ID, second.ID, uuid.New()})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Updated)
	assert.Equal(t, "Rejected 2 items.", result.Message())

	got := testutil.Reload(t, conn, first.ID)
	assert.Equal(t, enums.PriceItemStatusRejected, got.Status)
	require.NotNil(t, got.ApprovedByID)
	assert.Equal(t, reviewer.ID, *got.ApprovedByID)
	assert.NotNil(t, got.ApprovedAt)

	assert.Equal(t, enums.PriceItemStatusRejected, testutil.Reload(t, conn, second.ID).Status)
}

func TestUnapproveOnlyCountsApprovedItems(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	reviewer := testutil.CreateUser(t, conn, "alice")
	actor := Actor{UserID: reviewer.ID, Username: reviewer.Username}
	supplier := testutil.CreateSupplier(t, conn, "Acme")
	approved := testutil.CreateItem(t, conn, supplier, "X1", "2.50", testutil.Date(2025, 1, 1))
	pending := testutil.CreateItem(t, conn, supplier, "X2", "2.50", testutil.Date(2025, 1, 1))
	rejected := testutil.CreateItem(t, conn, supplier, "X3", "2.50", testutil.Date(2025, 1, 1))
	testutil.SetStatus(t, conn, rejected, enums.PriceItemStatusRejected)

	_, err := svc.Approve(ctx, actor, []uuid.UUID{approved.ID})
	require.NoError(t, err)

	result, err := svc.Unapprove(ctx, actor, []uuid.UUID{approved.ID, pending.ID, rejected.ID})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Updated)
	assert.Equal(t, "Unapproved 1 items.", result.Message())

	got := testutil.Reload(t, conn, approved.ID)
	assert.Equal(t, enums.PriceItemStatusPending, got.Status)
	assert.Nil(t, got.ApprovedByID)
	assert.Nil(t, got.ApprovedAt)

	assert.Equal(t, enums.PriceItemStatusPending, testutil.Reload(t, conn, pending.ID).Status)
	assert.Equal(t, enums.PriceItemStatusRejected, testutil.Reload(t, conn, rejected.ID).Status)
}

func TestBatchActionsValidateInput(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	reviewer := testutil.CreateUser(t, conn, "alice")

	_, err := svc.Approve(ctx, Actor{}, []uuid.UUID{uuid.New()})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized), "got %v", err)

	_, err = svc.Reject(ctx, Actor{UserID: reviewer.ID}, nil)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "got %v", err)

	_, err = svc.Unapprove(ctx, Actor{UserID: reviewer.ID}, []uuid.UUID{uuid.Nil})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "got %v", err)
}

func TestRejectAndUnapproveDoNotNeedReviewer(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	reviewer := testutil.CreateUser(t, conn, "alice")
	supplier := testutil.CreateSupplier(t, conn, "Acme")
	item := testutil.CreateItem(t, conn, supplier, "X1", "2.50", testutil.Date(2025, 1, 1))

	_, err := svc.Approve(ctx, Actor{UserID: reviewer.ID, Username: "alice"}, []uuid.UUID{item.ID})
	require.NoError(t, err)

	result, err := svc.Unapprove(ctx, Actor{}, []uuid.UUID{item.ID})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Updated)

	result, err = svc.Reject(ctx, Actor{}, []uuid.UUID{item.ID})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Updated)
	assert.Equal(t, enums.PriceItemStatusRejected, testutil.Reload(t, conn, item.ID).Status)
}

func TestApprovedItemRefusesLockedEdits(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	reviewer := testutil.CreateUser(t, conn, "alice")
	actor := Actor{UserID: reviewer.ID, Username: reviewer.Username}
	supplier := testutil.CreateSupplier(t, conn, "Acme")
	item := testutil.CreateItem(t, conn, supplier, "X1", "2.50", testutil.Date(2025, 1, 1))

	_, err := svc.Approve(ctx, actor, []uuid.UUID{item.ID})
	require.NoError(t, err)

	_, err = svc.UpdateItem(ctx, item.ID, UpdateItemInput{
		Price:    types.Some(decimal.RequireFromString("9.99")),
		Currency: types.Some("EUR"),
	})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeStateConflict, typed.Code())
	details, ok := typed.Details().(map[string]any)
	require.True(t, ok)
	assert.ElementsMatch(t, []enums.PriceItemField{enums.PriceItemFieldPrice, enums.PriceItemFieldCurrency}, details["fields"])

	stored := testutil.Reload(t, conn, item.ID)
	assert.True(t, stored.Price.Decimal.Equal(decimal.RequireFromString("2.50")))
	assert.Equal(t, "USD", stored.Currency)

	updated, err := svc.UpdateItem(ctx, item.ID, UpdateItemInput{SKU: types.Some("X1-B")})
	require.NoError(t, err)
	assert.Equal(t, "X1-B", updated.SKU)
	assert.Equal(t, enums.PriceItemStatusApproved, updated.Status)

	_, err = svc.Unapprove(ctx, actor, []uuid.UUID{item.ID})
	require.NoError(t, err)

	updated, err = svc.UpdateItem(ctx, item.ID, UpdateItemInput{Price: types.Some(decimal.RequireFromString("9.999"))})
	require.NoError(t, err)
	require.NotNil(t, updated.Price)
	assert.Equal(t, "10.00", *updated.Price)
	assert.Empty(t, updated.ReadOnlyFields)
}

func TestUpdateItemEditsPendingFields(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	supplier := testutil.CreateSupplier(t, conn, "Acme")
	other := testutil.CreateSupplier(t, conn, "Other")
	tomato := testutil.CreateIngredient(t, conn, "Tomato", "")
	item := testutil.CreateItem(t, conn, supplier, "X1", "2.50", testutil.Date(2025, 1, 1))

	updated, err := svc.UpdateItem(ctx, item.ID, UpdateItemInput{
		SupplierID:    types.Some(other.ID),
		IngredientID:  types.Some(tomato.ID),
		PackSize:      types.Some(" 10 lb "),
		UOM:           types.Some(""),
		Price:         types.Null[decimal.Decimal](),
		EffectiveDate: types.Some(time.Date(2025, 2, 3, 15, 0, 0, 0, time.UTC)),
	})
	require.NoError(t, err)
	assert.Equal(t, other.ID, updated.SupplierID)
	assert.Equal(t, "Other", updated.SupplierName)
	require.NotNil(t, updated.IngredientName)
	assert.Equal(t, "Tomato", *updated.IngredientName)
	require.NotNil(t, updated.PackSize)
	assert.Equal(t, "10 lb", *updated.PackSize)
	assert.Nil(t, updated.UOM)
	assert.Nil(t, updated.Price)
	assert.Equal(t, "2025-02-03", updated.EffectiveDate)

	_, err = svc.UpdateItem(ctx, item.ID, UpdateItemInput{SKU: types.Some("  ")})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "got %v", err)

	_, err = svc.UpdateItem(ctx, item.ID, UpdateItemInput{SupplierID: types.Some(uuid.New())})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound), "got %v", err)

	_, err = svc.UpdateItem(ctx, uuid.New(), UpdateItemInput{SKU: types.Some("Z")})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound), "got %v", err)
}

func TestCreateItemResolvesSupplierAndStartsPending(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	existing := testutil.CreateSupplier(t, conn, "Acme")
	price := decimal.RequireFromString("4.555")

	created, err := svc.CreateItem(ctx, CreateItemInput{
		SupplierName:  " Acme ",
		SKU:           " X9 ",
		Price:         &price,
		EffectiveDate: time.Date(2025, 4, 1, 18, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.Equal(t, existing.ID, created.SupplierID)
	assert.Equal(t, "X9", created.SKU)
	assert.Equal(t, enums.PriceItemStatusPending, created.Status)
	assert.Equal(t, "USD", created.Currency)
	require.NotNil(t, created.Price)
	assert.Equal(t, "4.56", *created.Price)
	assert.Equal(t, "2025-04-01", created.EffectiveDate)

	fresh, err := svc.CreateItem(ctx, CreateItemInput{
		SupplierName:  "Brand New Supplier",
		SKU:           "N1",
		Currency:      "eur",
		EffectiveDate: testutil.Date(2025, 4, 1),
	})
	require.NoError(t, err)
	assert.Equal(t, "Brand New Supplier", fresh.SupplierName)
	assert.Equal(t, "EUR", fresh.Currency)
	assert.Nil(t, fresh.Price)

	_, err = svc.CreateItem(ctx, CreateItemInput{SupplierName: "Acme", EffectiveDate: testutil.Date(2025, 4, 1)})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "got %v", err)

	negative := decimal.NewFromInt(-1)
	_, err = svc.CreateItem(ctx, CreateItemInput{SupplierName: "Acme", SKU: "N", Price: &negative, EffectiveDate: testutil.Date(2025, 4, 1)})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "got %v", err)
}

func TestGetItemReportsReadOnlyFields(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	reviewer := testutil.CreateUser(t, conn, "alice")
	supplier := testutil.CreateSupplier(t, conn, "Acme")
	item := testutil.CreateItem(t, conn, supplier, "X1", "2.50", testutil.Date(2025, 1, 1))

	got, err := svc.GetItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Empty(t, got.ReadOnlyFields)
	assert.Nil(t, got.ApprovedBy)

	_, err = svc.Approve(ctx, Actor{UserID: reviewer.ID, Username: "alice"}, []uuid.UUID{item.ID})
	require.NoError(t, err)

	got, err = svc.GetItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Len(t, got.ReadOnlyFields, 7)
	require.NotNil(t, got.ApprovedBy)
	assert.Equal(t, "alice", *got.ApprovedBy)

	_, err = svc.GetItem(ctx, uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound), "got %v", err)
}

func TestListItemsFiltersAndPages(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	acme := testutil.CreateSupplier(t, conn, "Acme")
	zeta := testutil.CreateSupplier(t, conn, "Zeta")
	basil := testutil.CreateIngredient(t, conn, "Basil", "tulsi")

	newest := testutil.CreateItem(t, conn, zeta, "A1", "1.00", testutil.Date(2025, 3, 1))
	acmeItem := testutil.CreateItem(t, conn, acme, "B1", "1.00", testutil.Date(2025, 2, 1))
	zetaItem := testutil.CreateItem(t, conn, zeta, "A2", "1.00", testutil.Date(2025, 2, 1))
	oldest := testutil.CreateItem(t, conn, acme, "C1", "1.00", testutil.Date(2025, 1, 1))
	testutil.SetStatus(t, conn, oldest, enums.PriceItemStatusRejected)
	require.NoError(t, conn.Model(&models.PriceListItem{}).Where("id = ?", zetaItem.ID).Update("ingredient_id", basil.ID).Error)

	all, err := svc.ListItems(ctx, ListParams{})
	require.NoError(t, err)
	require.Len(t, all.Items, 4)
	assert.Equal(t, []uuid.UUID{newest.ID, acmeItem.ID, zetaItem.ID, oldest.ID}, itemIDs(all.Items))
	assert.Empty(t, all.Cursor)

	rejected, err := svc.ListItems(ctx, ListParams{Status: "rejected"})
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{oldest.ID}, itemIDs(rejected.Items))

	bySupplier, err := svc.ListItems(ctx, ListParams{SupplierID: &acme.ID})
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{acmeItem.ID, oldest.ID}, itemIDs(bySupplier.Items))

	byAlias, err := svc.ListItems(ctx, ListParams{Search: "TULSI"})
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{zetaItem.ID}, itemIDs(byAlias.Items))

	from := testutil.Date(2025, 2, 1)
	ranged, err := svc.ListItems(ctx, ListParams{EffectiveFrom: &from, EffectiveTo: &from})
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{acmeItem.ID, zetaItem.ID}, itemIDs(ranged.Items))

	page, err := svc.ListItems(ctx, ListParams{Params: paginationParams(3, "")})
	require.NoError(t, err)
	require.Len(t, page.Items, 3)
	require.NotEmpty(t, page.Cursor)

	next, err := svc.ListItems(ctx, ListParams{Params: paginationParams(3, page.Cursor)})
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{oldest.ID}, itemIDs(next.Items))
	assert.Empty(t, next.Cursor)

	_, err = svc.ListItems(ctx, ListParams{Status: "archived"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "got %v", err)
}

func TestListItemsLoadsRelationsInOneQuery(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	reviewer := testutil.CreateUser(t, conn, "alice")
	for i := 0; i < 5; i++ {
		supplier := testutil.CreateSupplier(t, conn, "Supplier "+string(rune('A'+i)))
		ingredient := testutil.CreateIngredient(t, conn, "Ingredient "+string(rune('A'+i)), "")
		item := testutil.CreateItem(t, conn, supplier, "SKU", "1.00", testutil.Date(2025, 1, 1))
		require.NoError(t, conn.Model(&models.PriceListItem{}).Where("id = ?", item.ID).Update("ingredient_id", ingredient.ID).Error)
		_, err := svc.Approve(ctx, Actor{UserID: reviewer.ID, Username: "alice"}, []uuid.UUID{item.ID})
		require.NoError(t, err)
	}

	queries := 0
	require.NoError(t, conn.Callback().Query().After("gorm:query").Register("test:count_queries", func(*gorm.DB) {
		queries++
	}))

	result, err := svc.ListItems(ctx, ListParams{})
	require.NoError(t, err)
	require.Len(t, result.Items, 5)
	for _, item := range result.Items {
		assert.NotEmpty(t, item.SupplierName)
		assert.NotNil(t, item.IngredientName)
		assert.NotNil(t, item.ApprovedBy)
	}
	assert.Equal(t, 1, queries)
}

func itemIDs(items []ItemDTO) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(items))
	for _, item := range items {
		out = append(out, item.ID)
	}
	return out
}

func paginationParams(limit int, cursor string) pkgpagination.Params {
	return pkgpagination.Params{Limit: limit, Cursor: cursor}
}
