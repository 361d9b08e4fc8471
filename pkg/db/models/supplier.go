package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Supplier is a vendor submitting price lists. Identity is (name, country_code).
type Supplier struct {
	ID           uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Name         string    `gorm:"column:name;not null;uniqueIndex:idx_suppliers_name_country,priority:1"`
	CountryCode  *string   `gorm:"column:country_code;size:2;uniqueIndex:idx_suppliers_name_country,priority:2"`
	ContactEmail *string   `gorm:"column:contact_email"`
	IsActive     bool      `gorm:"column:is_active;not null;default:true"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (s *Supplier) BeforeCreate(*gorm.DB) error {
	ensureID(&s.ID)
	return nil
}
