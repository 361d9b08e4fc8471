package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/pricelist-backend/pkg/db"
	"github.com/angelmondragon/pricelist-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/pricelist-backend/pkg/errors"
)

// fieldRules applies the same validator/v10 tags the HTTP bodies use, so
// callers that bypass the API get identical checks.
var fieldRules = validator.New()

type catalogRepository interface {
	CreateSupplier(ctx context.Context, supplier *models.Supplier) error
	FindSupplierByID(ctx context.Context, id uuid.UUID) (*models.Supplier, error)
	ListSuppliers(ctx context.Context, filter SupplierFilter) ([]models.Supplier, error)
	SetSupplierActive(ctx context.Context, id uuid.UUID, active bool) error
	CreateIngredient(ctx context.Context, ingredient *models.Ingredient) error
	FindIngredientByName(ctx context.Context, name string) (*models.Ingredient, error)
	ListIngredients(ctx context.Context, search string) ([]models.Ingredient, error)
}

// Service exposes supplier and ingredient administration.
type Service interface {
	ListSuppliers(ctx context.Context, filter SupplierFilter) ([]models.Supplier, error)
	CreateSupplier(ctx context.Context, input CreateSupplierInput) (*models.Supplier, error)
	SetSupplierActive(ctx context.Context, id uuid.UUID, active bool) (*models.Supplier, error)
	ListIngredients(ctx context.Context, search string) ([]models.Ingredient, error)
	CreateIngredient(ctx context.Context, input CreateIngredientInput) (*models.Ingredient, error)
}

// CreateSupplierInput captures an administrator-entered supplier.
type CreateSupplierInput struct {
	Name         string
	CountryCode  string
	ContactEmail string
}

// CreateIngredientInput captures an administrator-entered ingredient.
type CreateIngredientInput struct {
	Name    string
	Aliases []string
}

type service struct {
	repo catalogRepository
}

// NewService builds the catalog service.
func NewService(repo catalogRepository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) ListSuppliers(ctx context.Context, filter SupplierFilter) ([]models.Supplier, error) {
	rows, err := s.repo.ListSuppliers(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list suppliers")
	}
	return rows, nil
}

func (s *service) CreateSupplier(ctx context.Context, input CreateSupplierInput) (*models.Supplier, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}

	supplier := &models.Supplier{Name: name, IsActive: true}
	if cc := strings.ToUpper(strings.TrimSpace(input.CountryCode)); cc != "" {
		if len(cc) != 2 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "country_code must be a 2 letter code")
		}
		supplier.CountryCode = &cc
	}
	if email := strings.TrimSpace(input.ContactEmail); email != "" {
		if err := fieldRules.Var(email, "email"); err != nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "contact_email is invalid")
		}
		supplier.ContactEmail = &email
	}

	if err := s.repo.CreateSupplier(ctx, supplier); err != nil {
		if db.IsUniqueViolation(err, "idx_suppliers_name_country") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "supplier already exists").
				WithDetails(map[string]any{"name": name, "country_code": supplier.CountryCode})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create supplier")
	}
	return supplier, nil
}

func (s *service) SetSupplierActive(ctx context.Context, id uuid.UUID, active bool) (*models.Supplier, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "supplier id is required")
	}
	if err := s.repo.SetSupplierActive(ctx, id, active); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "supplier not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update supplier")
	}
	supplier, err := s.repo.FindSupplierByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load supplier")
	}
	return supplier, nil
}

func (s *service) ListIngredients(ctx context.Context, search string) ([]models.Ingredient, error) {
	rows, err := s.repo.ListIngredients(ctx, search)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list ingredients")
	}
	return rows, nil
}

func (s *service) CreateIngredient(ctx context.Context, input CreateIngredientInput) (*models.Ingredient, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}

	existing, err := s.repo.FindIngredientByName(ctx, name)
	switch {
	case err == nil:
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "ingredient already exists").
			WithDetails(map[string]any{"id": existing.ID, "name": existing.Name})
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup ingredient")
	}

	ingredient := &models.Ingredient{Name: name, IsActive: true}
	if joined := joinAliases(input.Aliases); joined != "" {
		ingredient.Aliases = &joined
	}
	if err := s.repo.CreateIngredient(ctx, ingredient); err != nil {
		if db.IsUniqueViolation(err, "unique_lower_ingredient_name") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "ingredient already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create ingredient")
	}
	return ingredient, nil
}

func joinAliases(aliases []string) string {
	cleaned := make([]string, 0, len(aliases))
	for _, alias := range aliases {
		if trimmed := strings.TrimSpace(alias); trimmed != "" {
			cleaned = append(cleaned, trimmed)
		}
	}
	return strings.Join(cleaned, models.AliasSeparator)
}
