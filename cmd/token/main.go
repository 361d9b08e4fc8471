package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"gorm.io/gorm"

	"github.com/angelmondragon/pricelist-backend/internal/users"
	"github.com/angelmondragon/pricelist-backend/pkg/auth"
	"github.com/angelmondragon/pricelist-backend/pkg/config"
	"github.com/angelmondragon/pricelist-backend/pkg/db"
	"github.com/angelmondragon/pricelist-backend/pkg/logger"
)

// token mints a reviewer bearer token for local use against the admin API.
func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "token"})

	_ = godotenv.Load()

	username := flag.String("username", "", "reviewer username (created when unknown)")
	email := flag.String("email", "", "email stored on first creation")
	flag.Parse()

	name := strings.TrimSpace(*username)
	if name == "" {
		fmt.Fprintln(os.Stderr, "missing -username")
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(ctx, "failed to load config", err)
		os.Exit(1)
	}
	if cfg.App.IsProd() {
		fmt.Fprintln(os.Stderr, "refusing to mint tokens in prod")
		os.Exit(1)
	}

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer dbClient.Close()

	repo := users.NewRepository(dbClient.DB())
	user, err := repo.FindByUsername(ctx, name)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		user, err = repo.Create(ctx, users.CreateUserDTO{ID: uuid.New(), Username: name, Email: *email})
	}
	if err != nil {
		logg.Error(ctx, "failed to resolve user", err)
		os.Exit(1)
	}

	token, err := auth.MintAccessToken(cfg.JWT, time.Now(), auth.AccessTokenPayload{
		UserID:   user.ID,
		Username: user.Username,
	})
	if err != nil {
		logg.Error(ctx, "failed to mint token", err)
		os.Exit(1)
	}
	fmt.Println(token)
}
