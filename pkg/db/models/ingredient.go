package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AliasSeparator splits the raw alias column into individual names.
const AliasSeparator = ";"

// Ingredient is a canonical ingredient; names are unique case-insensitively.
type Ingredient struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Name      string    `gorm:"column:name;not null"`
	Aliases   *string   `gorm:"column:aliases;type:text"`
	IsActive  bool      `gorm:"column:is_active;not null;default:true"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (i *Ingredient) BeforeCreate(*gorm.DB) error {
	ensureID(&i.ID)
	return nil
}

// AliasList parses the semicolon delimited alias column, dropping blanks.
func (i *Ingredient) AliasList() []string {
	if i == nil || i.Aliases == nil {
		return []string{}
	}
	parts := strings.Split(*i.Aliases, AliasSeparator)
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
