package models

import "github.com/google/uuid"

// ensureID assigns a random UUID when the primary key has not been set yet.
// Keys are generated client side so the same models run on Postgres and SQLite.
func ensureID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}

// All lists every persisted model in dependency order.
func All() []any {
	return []any{
		&User{},
		&Supplier{},
		&Ingredient{},
		&PriceListItem{},
	}
}

// ExpressionIndexes cannot be declared through struct tags, so schemas built
// with AutoMigrate apply them afterwards.
var ExpressionIndexes = []string{
	"CREATE UNIQUE INDEX IF NOT EXISTS unique_lower_ingredient_name ON ingredients (LOWER(name))",
}
