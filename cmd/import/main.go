package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/pricelist-backend/internal/imports"
	"github.com/angelmondragon/pricelist-backend/pkg/config"
	"github.com/angelmondragon/pricelist-backend/pkg/db"
	pkgerrors "github.com/angelmondragon/pricelist-backend/pkg/errors"
	"github.com/angelmondragon/pricelist-backend/pkg/instance"
	"github.com/angelmondragon/pricelist-backend/pkg/logger"
	"github.com/angelmondragon/pricelist-backend/pkg/metrics"
	"github.com/angelmondragon/pricelist-backend/pkg/migrate"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "import"})

	_ = godotenv.Load()

	file := flag.String("file", "", "path to the supplier price list CSV")
	flag.Parse()

	path := strings.TrimSpace(*file)
	if path == "" && flag.NArg() > 0 {
		path = strings.TrimSpace(flag.Arg(0))
	}
	if path == "" {
		fmt.Fprintln(os.Stderr, "missing -file")
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "import",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	os.Exit(run(ctx, cfg, logg, path, os.Stdout, os.Stderr))
}

// run imports one file and returns the process exit code.
func run(ctx context.Context, cfg *config.Config, logg *logger.Logger, path string, stdout, stderr io.Writer) int {
	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "instance": instance.GetID()})

	if err := imports.CheckFile(path); err != nil {
		fmt.Fprintln(stderr, messageOf(err))
		return 1
	}

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		return 1
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(ctx, "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		logg.Error(ctx, "failed to run dev migrations", err)
		return 1
	}

	pipeline, err := imports.NewPipeline(imports.PipelineParams{
		DB:              dbClient,
		Logger:          logg,
		Metrics:         metrics.NewImportMetrics(prometheus.NewRegistry()),
		DefaultCurrency: cfg.Import.DefaultCurrency,
	})
	if err != nil {
		logg.Error(ctx, "failed to create import pipeline", err)
		return 1
	}

	result, err := pipeline.ImportFile(ctx, path)
	if err != nil {
		fmt.Fprintln(stderr, messageOf(err))
		return 1
	}

	fmt.Fprintf(stdout, "Import complete: %s\n", result.Summary())
	if result.Failed > 0 {
		fmt.Fprintf(stderr, "%d rows failed:\n%v\n", result.Failed, result.RowErrors)
		return 1
	}
	return 0
}

func messageOf(err error) string {
	if typed := pkgerrors.As(err); typed != nil && typed.Message() != "" {
		return typed.Message()
	}
	return err.Error()
}
