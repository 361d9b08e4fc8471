package controllers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/pricelist-backend/api/responses"
	"github.com/angelmondragon/pricelist-backend/api/validators"
	"github.com/angelmondragon/pricelist-backend/internal/catalog"
	"github.com/angelmondragon/pricelist-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/pricelist-backend/pkg/errors"
	"github.com/angelmondragon/pricelist-backend/pkg/logger"
)

type supplierResponse struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	CountryCode  *string   `json:"country_code"`
	ContactEmail *string   `json:"contact_email"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func newSupplierResponse(s models.Supplier) supplierResponse {
	return supplierResponse{
		ID:           s.ID,
		Name:         s.Name,
		CountryCode:  s.CountryCode,
		ContactEmail: s.ContactEmail,
		IsActive:     s.IsActive,
		CreatedAt:    s.CreatedAt,
		UpdatedAt:    s.UpdatedAt,
	}
}

type ingredientResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Aliases   []string  `json:"aliases"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

func newIngredientResponse(i models.Ingredient) ingredientResponse {
	return ingredientResponse{
		ID:        i.ID,
		Name:      i.Name,
		Aliases:   i.AliasList(),
		IsActive:  i.IsActive,
		CreatedAt: i.CreatedAt,
	}
}

func SupplierList(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		activeOnly, err := validators.ParseQueryBool(r, "active", false)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rows, err := svc.ListSuppliers(r.Context(), catalog.SupplierFilter{
			Search:      validators.SanitizeString(r.URL.Query().Get("q"), maxSearchLength),
			CountryCode: validators.SanitizeString(r.URL.Query().Get("country_code"), 2),
			ActiveOnly:  activeOnly,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		out := make([]supplierResponse, 0, len(rows))
		for _, row := range rows {
			out = append(out, newSupplierResponse(row))
		}
		responses.WriteSuccess(w, out)
	}
}

type supplierCreateRequest struct {
	Name         string `json:"name" validate:"required,max=255"`
	CountryCode  string `json:"country_code,omitempty" validate:"omitempty,len=2"`
	ContactEmail string `json:"contact_email,omitempty" validate:"omitempty,email"`
}

func SupplierCreate(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		var payload supplierCreateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		supplier, err := svc.CreateSupplier(r.Context(), catalog.CreateSupplierInput{
			Name:         payload.Name,
			CountryCode:  payload.CountryCode,
			ContactEmail: payload.ContactEmail,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newSupplierResponse(*supplier))
	}
}

// SupplierSetActive toggles whether a supplier shows up as active.
func SupplierSetActive(svc catalog.Service, logg *logger.Logger, active bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		id, err := validators.ParsePathUUID(chi.URLParam(r, "supplierId"), "supplierId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		supplier, err := svc.SetSupplierActive(r.Context(), id, active)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newSupplierResponse(*supplier))
	}
}

func IngredientList(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		rows, err := svc.ListIngredients(r.Context(), validators.SanitizeString(r.URL.Query().Get("q"), maxSearchLength))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		out := make([]ingredientResponse, 0, len(rows))
		for _, row := range rows {
			out = append(out, newIngredientResponse(row))
		}
		responses.WriteSuccess(w, out)
	}
}

type ingredientCreateRequest struct {
	Name    string   `json:"name" validate:"required,max=255"`
	Aliases []string `json:"aliases,omitempty"`
}

func IngredientCreate(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		var payload ingredientCreateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ingredient, err := svc.CreateIngredient(r.Context(), catalog.CreateIngredientInput{
			Name:    payload.Name,
			Aliases: payload.Aliases,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newIngredientResponse(*ingredient))
	}
}
