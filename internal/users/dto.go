package users

import (
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/pricelist-backend/pkg/db/models"
)

// CreateUserDTO carries the identity fields mirrored from the directory.
type CreateUserDTO struct {
	ID       uuid.UUID
	Username string
	Email    string
}

// ToModel converts the DTO into a persistable user.
func (dto CreateUserDTO) ToModel() *models.User {
	user := &models.User{
		ID:       dto.ID,
		Username: strings.TrimSpace(dto.Username),
		IsActive: true,
	}
	if email := strings.TrimSpace(dto.Email); email != "" {
		user.Email = &email
	}
	return user
}
