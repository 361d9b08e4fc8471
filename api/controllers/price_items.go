package controllers

import (
	"bytes"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/pricelist-backend/api/middleware"
	"github.com/angelmondragon/pricelist-backend/api/responses"
	"github.com/angelmondragon/pricelist-backend/api/validators"
	"github.com/angelmondragon/pricelist-backend/internal/pricelist"
	pkgerrors "github.com/angelmondragon/pricelist-backend/pkg/errors"
	"github.com/angelmondragon/pricelist-backend/pkg/logger"
	"github.com/angelmondragon/pricelist-backend/pkg/pagination"
	"github.com/angelmondragon/pricelist-backend/pkg/types"
)

const maxSearchLength = 128

// PriceItemList returns a filtered page of price list items.
func PriceItemList(svc pricelist.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "price list service unavailable"))
			return
		}

		params, err := parseListParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.ListItems(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func parseListParams(r *http.Request) (pricelist.ListParams, error) {
	limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
	if err != nil {
		return pricelist.ListParams{}, err
	}
	supplierID, err := validators.ParseQueryUUID(r, "supplier_id")
	if err != nil {
		return pricelist.ListParams{}, err
	}
	ingredientID, err := validators.ParseQueryUUID(r, "ingredient_id")
	if err != nil {
		return pricelist.ListParams{}, err
	}
	from, err := validators.ParseQueryDate(r, "effective_from")
	if err != nil {
		return pricelist.ListParams{}, err
	}
	to, err := validators.ParseQueryDate(r, "effective_to")
	if err != nil {
		return pricelist.ListParams{}, err
	}

	q := r.URL.Query()
	return pricelist.ListParams{
		SupplierID:    supplierID,
		IngredientID:  ingredientID,
		Status:        q.Get("status"),
		Currency:      q.Get("currency"),
		Search:        validators.SanitizeString(q.Get("q"), maxSearchLength),
		EffectiveFrom: from,
		EffectiveTo:   to,
		Params: pagination.Params{
			Limit:  limit,
			Cursor: strings.TrimSpace(q.Get("cursor")),
		},
	}, nil
}

// PriceItemDetail returns one item with its locked fields.
func PriceItemDetail(svc pricelist.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "price list service unavailable"))
			return
		}

		id, err := validators.ParsePathUUID(chi.URLParam(r, "itemId"), "itemId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		item, err := svc.GetItem(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, item)
	}
}

type priceItemCreateRequest struct {
	SupplierName  string           `json:"supplier_name" validate:"required,max=255"`
	IngredientID  *uuid.UUID       `json:"ingredient_id,omitempty"`
	SKU           string           `json:"sku" validate:"required,max=128"`
	PackSize      *string          `json:"pack_size,omitempty"`
	UOM           *string          `json:"uom,omitempty"`
	Price         *decimal.Decimal `json:"price,omitempty"`
	Currency      string           `json:"currency,omitempty" validate:"omitempty,len=3"`
	EffectiveDate string           `json:"effective_date" validate:"required"`
	SourceFile    *string          `json:"source_file,omitempty"`
}

func (req priceItemCreateRequest) toInput() (pricelist.CreateItemInput, error) {
	effective, err := parseBodyDate(req.EffectiveDate, "effective_date")
	if err != nil {
		return pricelist.CreateItemInput{}, err
	}
	return pricelist.CreateItemInput{
		SupplierName:  req.SupplierName,
		IngredientID:  req.IngredientID,
		SKU:           req.SKU,
		PackSize:      req.PackSize,
		UOM:           req.UOM,
		Price:         req.Price,
		Currency:      req.Currency,
		EffectiveDate: effective,
		SourceFile:    req.SourceFile,
	}, nil
}

// PriceItemCreate records a manually entered price as pending.
func PriceItemCreate(svc pricelist.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "price list service unavailable"))
			return
		}

		var payload priceItemCreateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		item, err := svc.CreateItem(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, item)
	}
}

type priceItemUpdateRequest struct {
	SKU           types.Nullable[string]          `json:"sku"`
	SupplierID    types.Nullable[uuid.UUID]       `json:"supplier_id"`
	IngredientID  types.Nullable[uuid.UUID]       `json:"ingredient_id"`
	PackSize      types.Nullable[string]          `json:"pack_size"`
	UOM           types.Nullable[string]          `json:"uom"`
	Price         types.Nullable[decimal.Decimal] `json:"price"`
	Currency      types.Nullable[string]          `json:"currency"`
	EffectiveDate types.Nullable[string]          `json:"effective_date"`
	SourceFile    types.Nullable[string]          `json:"source_file"`
}

func (req priceItemUpdateRequest) toInput() (pricelist.UpdateItemInput, error) {
	input := pricelist.UpdateItemInput{
		SKU:          req.SKU,
		SupplierID:   req.SupplierID,
		IngredientID: req.IngredientID,
		PackSize:     req.PackSize,
		UOM:          req.UOM,
		Price:        req.Price,
		Currency:     req.Currency,
		SourceFile:   req.SourceFile,
	}
	if req.EffectiveDate.Set {
		if req.EffectiveDate.Value == nil {
			input.EffectiveDate = types.Null[time.Time]()
		} else {
			effective, err := parseBodyDate(*req.EffectiveDate.Value, "effective_date")
			if err != nil {
				return pricelist.UpdateItemInput{}, err
			}
			input.EffectiveDate = types.Some(effective)
		}
	}
	return input, nil
}

// PriceItemUpdate applies a partial edit. Approved items refuse changes to locked fields.
func PriceItemUpdate(svc pricelist.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "price list service unavailable"))
			return
		}

		id, err := validators.ParsePathUUID(chi.URLParam(r, "itemId"), "itemId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload priceItemUpdateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		item, err := svc.UpdateItem(r.Context(), id, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, item)
	}
}

type batchRequest struct {
	IDs []uuid.UUID `json:"ids"`
}

type batchAction func(svc pricelist.Service, r *http.Request, actor pricelist.Actor, ids []uuid.UUID) (pricelist.BatchResult, error)

// PriceItemApprove approves the selected items under the caller's identity.
func PriceItemApprove(svc pricelist.Service, logg *logger.Logger) http.HandlerFunc {
	return priceItemBatch(svc, logg, func(svc pricelist.Service, r *http.Request, actor pricelist.Actor, ids []uuid.UUID) (pricelist.BatchResult, error) {
		return svc.Approve(r.Context(), actor, ids)
	})
}

// PriceItemReject rejects the selected items.
func PriceItemReject(svc pricelist.Service, logg *logger.Logger) http.HandlerFunc {
	return priceItemBatch(svc, logg, func(svc pricelist.Service, r *http.Request, actor pricelist.Actor, ids []uuid.UUID) (pricelist.BatchResult, error) {
		return svc.Reject(r.Context(), actor, ids)
	})
}

// PriceItemUnapprove returns approved selections to pending.
func PriceItemUnapprove(svc pricelist.Service, logg *logger.Logger) http.HandlerFunc {
	return priceItemBatch(svc, logg, func(svc pricelist.Service, r *http.Request, actor pricelist.Actor, ids []uuid.UUID) (pricelist.BatchResult, error) {
		return svc.Unapprove(r.Context(), actor, ids)
	})
}

func priceItemBatch(svc pricelist.Service, logg *logger.Logger, action batchAction) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "price list service unavailable"))
			return
		}

		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload batchRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := action(svc, r, actor, payload.IDs)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, types.BatchOutcome{Updated: result.Updated, Message: result.Message()})
	}
}

type exportRequest struct {
	IDs    []uuid.UUID `json:"ids"`
	Format string      `json:"format,omitempty"`
}

// PriceItemExport streams the selected items as a CSV or XLSX download. The
// format query parameter wins over the body field.
func PriceItemExport(svc pricelist.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "price list service unavailable"))
			return
		}

		var payload exportRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		rawFormat := payload.Format
		if q := r.URL.Query().Get("format"); q != "" {
			rawFormat = q
		}
		format, err := pricelist.ParseExportFormat(rawFormat)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unsupported export format"))
			return
		}

		var buf bytes.Buffer
		if err := svc.Export(r.Context(), payload.IDs, format, &buf); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.PrepareAttachment(w, format.ContentType(), format.Filename())
		if _, err := buf.WriteTo(w); err != nil && logg != nil {
			logg.Error(r.Context(), "export.write_failed", err)
		}
	}
}

func actorFromRequest(r *http.Request) (pricelist.Actor, error) {
	raw := middleware.UserIDFromContext(r.Context())
	if raw == "" {
		return pricelist.Actor{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return pricelist.Actor{}, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid user id")
	}
	return pricelist.Actor{UserID: id, Username: middleware.UsernameFromContext(r.Context())}, nil
}

func parseBodyDate(raw, field string) (time.Time, error) {
	parsed, err := time.Parse(pricelist.DateLayout, strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid date").
			WithDetails(map[string]any{"field": field, "format": pricelist.DateLayout})
	}
	return parsed, nil
}
