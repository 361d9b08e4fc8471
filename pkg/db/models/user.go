package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is the local projection of a directory identity that can act as a reviewer.
type User struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Username  string    `gorm:"column:username;not null;uniqueIndex"`
	Email     *string   `gorm:"column:email"`
	IsActive  bool      `gorm:"column:is_active;not null;default:true"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (u *User) BeforeCreate(*gorm.DB) error {
	ensureID(&u.ID)
	return nil
}
