package imports

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/angelmondragon/pricelist-backend/internal/catalog"
	"github.com/angelmondragon/pricelist-backend/internal/pricelist"
	"github.com/angelmondragon/pricelist-backend/pkg/db"
	"github.com/angelmondragon/pricelist-backend/pkg/db/models"
	"github.com/angelmondragon/pricelist-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/pricelist-backend/pkg/errors"
	"github.com/angelmondragon/pricelist-backend/pkg/logger"
	"github.com/angelmondragon/pricelist-backend/pkg/metrics"
)

const utf8BOM = "\uFEFF"

// Outcome is what happened to a single imported row.
type Outcome string

const (
	OutcomeCreated Outcome = "created"
	OutcomeUpdated Outcome = "updated"
	OutcomeSkipped Outcome = "skipped"
	OutcomeFailed  Outcome = "failed"
)

// Result tallies an import run. RowErrors collects storage failures for rows
// counted in Failed.
type Result struct {
	Created   int
	Updated   int
	Skipped   int
	Failed    int
	RowErrors error
}

// Summary renders the counters reported after a run.
func (r Result) Summary() string {
	return fmt.Sprintf("created=%d, updated=%d, skipped=%d", r.Created, r.Updated, r.Skipped)
}

func (r *Result) add(outcome Outcome) {
	switch outcome {
	case OutcomeCreated:
		r.Created++
	case OutcomeUpdated:
		r.Updated++
	case OutcomeSkipped:
		r.Skipped++
	case OutcomeFailed:
		r.Failed++
	}
}

// PipelineParams wires an import pipeline.
type PipelineParams struct {
	DB              db.TxRunner
	Logger          *logger.Logger
	Metrics         *metrics.ImportMetrics
	DefaultCurrency string
}

// Pipeline upserts supplier price list files into the catalog.
type Pipeline struct {
	tx              db.TxRunner
	logg            *logger.Logger
	metrics         *metrics.ImportMetrics
	defaultCurrency string
}

// NewPipeline validates dependencies and builds a pipeline.
func NewPipeline(params PipelineParams) (*Pipeline, error) {
	if params.DB == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	currency := strings.ToUpper(strings.TrimSpace(params.DefaultCurrency))
	if currency == "" {
		currency = models.DefaultCurrency
	}
	return &Pipeline{
		tx:              params.DB,
		logg:            logg,
		metrics:         params.Metrics,
		defaultCurrency: currency,
	}, nil
}

// ImportFile opens path and imports every row. A missing or unreadable file
// aborts before any row is touched; row level problems never do.
func (p *Pipeline) ImportFile(ctx context.Context, path string) (*Result, error) {
	if err := CheckFile(path); err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fileError(err, path)
	}
	defer f.Close()

	return p.Import(ctx, f, path)
}

// CheckFile reports whether path names a regular file that can be imported.
func CheckFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fileError(err, path)
	}
	if info.IsDir() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("not a file: %s", path))
	}
	return nil
}

func fileError(err error, path string) error {
	if errors.Is(err, os.ErrNotExist) {
		return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, fmt.Sprintf("File not found: %s", path))
	}
	return pkgerrors.Wrap(pkgerrors.CodeValidation, err, fmt.Sprintf("cannot read file: %s", path))
}

// Import reads CSV from r, recording sourceFile on every upserted item.
func (p *Pipeline) Import(ctx context.Context, r io.Reader, sourceFile string) (*Result, error) {
	ctx = p.logg.WithImportFile(ctx, sourceFile)
	started := time.Now()

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		p.logg.Warn(ctx, "import file is empty")
		result := &Result{}
		p.metrics.ObserveRun("completed", time.Since(started))
		return result, nil
	}
	if err != nil {
		p.metrics.ObserveRun("failed", time.Since(started))
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "cannot read csv header")
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], utf8BOM)
	}

	result := &Result{}
	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				p.logg.Warn(p.logg.WithField(ctx, "line", line), "skipping malformed csv record")
				result.add(OutcomeSkipped)
				continue
			}
			p.metrics.ObserveRun("failed", time.Since(started))
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "cannot read csv")
		}

		outcome, err := p.importRecord(ctx, toMap(header, record), sourceFile)
		if err != nil {
			result.RowErrors = multierr.Append(result.RowErrors, fmt.Errorf("line %d: %w", line, err))
			p.logg.Error(p.logg.WithField(ctx, "line", line), "import row failed", err)
		}
		result.add(outcome)
	}

	p.metrics.AddRows(string(OutcomeCreated), result.Created)
	p.metrics.AddRows(string(OutcomeUpdated), result.Updated)
	p.metrics.AddRows(string(OutcomeSkipped), result.Skipped)
	p.metrics.AddRows(string(OutcomeFailed), result.Failed)
	p.metrics.ObserveRun("completed", time.Since(started))

	p.logg.Info(p.logg.WithFields(ctx, map[string]any{
		"created": result.Created,
		"updated": result.Updated,
		"skipped": result.Skipped,
		"failed":  result.Failed,
	}), "import complete")
	return result, nil
}

func (p *Pipeline) importRecord(ctx context.Context, raw map[string]string, sourceFile string) (Outcome, error) {
	row, reason := ParseRow(raw, p.defaultCurrency)
	if reason != SkipNone {
		p.logg.Debug(p.logg.WithFields(ctx, map[string]any{"reason": string(reason), "sku": row.SKU}), "row skipped")
		return OutcomeSkipped, nil
	}

	outcome := OutcomeFailed
	err := p.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		outcome, err = upsertRow(ctx, tx, row, sourceFile)
		return err
	})
	if err != nil {
		return OutcomeFailed, err
	}
	return outcome, nil
}

// upsertRow resolves the row's supplier and ingredient and creates or
// refreshes the item keyed by (supplier, sku, effective date).
func upsertRow(ctx context.Context, tx *gorm.DB, row Row, sourceFile string) (Outcome, error) {
	catalogRepo := catalog.NewRepository(tx)
	items := pricelist.NewRepository(tx)

	supplier, _, err := catalogRepo.FindOrCreateSupplier(ctx, row.SupplierName)
	if err != nil {
		return OutcomeFailed, fmt.Errorf("resolve supplier %q: %w", row.SupplierName, err)
	}
	ingredient, _, err := catalogRepo.FindIngredientOrCreateWithAlias(ctx, row.IngredientName, row.Aliases)
	if err != nil {
		return OutcomeFailed, fmt.Errorf("resolve ingredient %q: %w", row.IngredientName, err)
	}

	existing, err := items.FindByKey(ctx, supplier.ID, row.SKU, row.EffectiveDate)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return OutcomeFailed, fmt.Errorf("lookup item: %w", err)
	}

	item := existing
	if item == nil {
		item = &models.PriceListItem{
			SupplierID:    supplier.ID,
			SKU:           row.SKU,
			EffectiveDate: row.EffectiveDate,
			Status:        enums.PriceItemStatusPending,
		}
	}
	applyRow(item, row, ingredient, sourceFile)

	if existing == nil {
		if err := items.Create(ctx, item); err != nil {
			return OutcomeFailed, fmt.Errorf("create item: %w", err)
		}
		return OutcomeCreated, nil
	}
	if err := items.SaveImportFields(ctx, item); err != nil {
		return OutcomeFailed, fmt.Errorf("update item: %w", err)
	}
	return OutcomeUpdated, nil
}

func applyRow(item *models.PriceListItem, row Row, ingredient *models.Ingredient, sourceFile string) {
	item.PackSize = optional(row.PackSize)
	item.UOM = optional(row.UOM)
	item.Price.Decimal = row.Price
	item.Price.Valid = true
	item.Currency = row.Currency
	item.SourceFile = optional(sourceFile)
	item.IngredientID = nil
	if ingredient != nil {
		id := ingredient.ID
		item.IngredientID = &id
	}
}

func optional(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}

func toMap(header, record []string) map[string]string {
	out := make(map[string]string, len(header))
	for i, name := range header {
		if i >= len(record) {
			break
		}
		out[name] = record[i]
	}
	return out
}
