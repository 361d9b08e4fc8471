package users

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/pricelist-backend/pkg/db/models"
)

// Repository exposes user-related persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a users repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a new user and returns the persisted model.
func (r *Repository) Create(ctx context.Context, dto CreateUserDTO) (*models.User, error) {
	user := dto.ToModel()
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// FindByID loads a user by their UUID.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByUsername retrieves the user with the given username.
func (r *Repository) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// Ensure makes sure the local projection of an authenticated identity exists,
// refreshing the username when the directory renamed it.
func (r *Repository) Ensure(ctx context.Context, id uuid.UUID, username string) (*models.User, error) {
	user, err := r.FindByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return r.Create(ctx, CreateUserDTO{ID: id, Username: username})
	}
	if err != nil {
		return nil, err
	}
	if username != "" && user.Username != username {
		if err := r.db.WithContext(ctx).Model(user).Update("username", username).Error; err != nil {
			return nil, err
		}
		user.Username = username
	}
	return user, nil
}
