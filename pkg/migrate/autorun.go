package migrate

import (
	"context"
	"fmt"

	"github.com/angelmondragon/pricelist-backend/pkg/config"
	"github.com/angelmondragon/pricelist-backend/pkg/db"
	"github.com/angelmondragon/pricelist-backend/pkg/db/models"
	"github.com/angelmondragon/pricelist-backend/pkg/logger"
)

// MaybeRunDev executes migrations automatically when the app is running in dev mode and
// the feature flag is enabled. SQLite databases are brought up with AutoMigrate.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if !cfg.App.IsDev() || !cfg.FeatureFlags.AutoMigrate {
		return nil
	}

	if cfg.DB.IsSQLite() {
		logg.Info(logg.WithField(ctx, "env", cfg.App.Env), "running AutoMigrate (sqlite dev auto-run)")
		return AutoMigrate(ctx, client)
	}

	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}

	meta := map[string]any{"env": cfg.App.Env, "dir": EmbeddedDir}
	ctx = logg.WithFields(ctx, meta)
	logg.Info(ctx, "running Goose migrations (dev auto-run)")

	if err := Run(ctx, sqlDB, "", "up"); err != nil {
		return fmt.Errorf("running goose up: %w", err)
	}

	logg.Info(ctx, "Goose migrations completed")
	return nil
}

// AutoMigrate builds the schema from the GORM models, then applies the
// indexes the struct tags cannot describe.
func AutoMigrate(ctx context.Context, client *db.Client) error {
	if err := client.AutoMigrate(ctx, models.All()...); err != nil {
		return fmt.Errorf("running automigrate: %w", err)
	}
	for _, stmt := range models.ExpressionIndexes {
		if err := client.DB().WithContext(ctx).Exec(stmt).Error; err != nil {
			return fmt.Errorf("creating expression index: %w", err)
		}
	}
	return nil
}
