package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/pricelist-backend/pkg/config"
	"github.com/angelmondragon/pricelist-backend/pkg/db"
	"github.com/angelmondragon/pricelist-backend/pkg/logger"
	"github.com/angelmondragon/pricelist-backend/pkg/migrate"
)

type options struct {
	cmd      string
	dir      string
	name     string
	version  string
	embedded bool
}

// dbCommands run against an open connection. automigrate is handled
// separately because it needs the GORM client rather than *sql.DB.
var dbCommands = map[string]func(ctx context.Context, sqlDB *sql.DB, opts options) error{
	"up": func(ctx context.Context, sqlDB *sql.DB, opts options) error {
		return migrate.Run(ctx, sqlDB, opts.dir, "up")
	},
	"down": func(ctx context.Context, sqlDB *sql.DB, opts options) error {
		return migrate.Run(ctx, sqlDB, opts.dir, "down")
	},
	"status": func(ctx context.Context, sqlDB *sql.DB, opts options) error {
		return migrate.Run(ctx, sqlDB, opts.dir, "status")
	},
	"version": func(ctx context.Context, sqlDB *sql.DB, opts options) error {
		if opts.version == "" {
			return fmt.Errorf("missing -version for version command")
		}
		return migrate.MigrateToVersion(ctx, sqlDB, opts.dir, opts.version)
	},
}

func main() {
	_ = godotenv.Load()

	var opts options
	flag.StringVar(&opts.cmd, "cmd", "up", "migration command: up|down|status|version|create|validate|automigrate")
	flag.StringVar(&opts.dir, "dir", migrate.DefaultDir, "goose migrations directory")
	flag.StringVar(&opts.name, "name", "", "migration name (for create)")
	flag.StringVar(&opts.version, "version", "", "target version (YYYYMMDDHHMMSS) for -cmd=version")
	flag.BoolVar(&opts.embedded, "embedded", false, "use the migrations compiled into the binary instead of -dir")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	logg := logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	os.Exit(run(context.Background(), cfg, logg, opts, os.Stdout, os.Stderr))
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger, opts options, stdout, stderr io.Writer) int {
	if opts.embedded {
		opts.dir = ""
	}
	ctx = logg.WithFields(ctx, map[string]any{
		"env": cfg.App.Env,
		"cmd": opts.cmd,
		"dir": opts.dir,
	})

	switch opts.cmd {
	case "create":
		if opts.name == "" {
			fmt.Fprintln(stderr, "missing -name for create")
			return 1
		}
		path, err := migrate.CreateSQLMigration(opts.dir, opts.name)
		if err != nil {
			fmt.Fprintf(stderr, "failed to create migration: %v\n", err)
			return 1
		}
		fmt.Fprintln(stdout, "created migration:", path)
		return 0

	case "validate":
		var err error
		if opts.dir == "" {
			err = migrate.ValidateFS(migrate.Embedded(), migrate.EmbeddedDir)
		} else {
			err = migrate.ValidateDir(opts.dir)
		}
		if err != nil {
			fmt.Fprintf(stderr, "migration validation failed: %v\n", err)
			return 1
		}
		fmt.Fprintln(stdout, "migration validation passed")
		return 0
	}

	command, known := dbCommands[opts.cmd]
	if !known && opts.cmd != "automigrate" {
		fmt.Fprintln(stderr, "unknown -cmd value:", opts.cmd)
		return 1
	}

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "resource not working: database", err)
		return 1
	}
	defer dbClient.Close()

	if opts.cmd == "automigrate" {
		if err := migrate.AutoMigrate(ctx, dbClient); err != nil {
			fmt.Fprintf(stderr, "automigrate failed: %v\n", err)
			return 1
		}
		fmt.Fprintln(stdout, "schema synced from models")
		return 0
	}

	if dbClient.Driver() == config.DriverSQLite {
		fmt.Fprintln(stderr, "goose migrations target postgres; use -cmd=automigrate for sqlite")
		return 1
	}

	sqlDB, err := dbClient.DB().DB()
	if err != nil {
		logg.Error(ctx, "resource not working: sql database", err)
		return 1
	}

	logg.Info(ctx, "migrate ready")
	if err := command(ctx, sqlDB, opts); err != nil {
		fmt.Fprintf(stderr, "goose %s failed: %v\n", opts.cmd, err)
		return 1
	}
	return 0
}
