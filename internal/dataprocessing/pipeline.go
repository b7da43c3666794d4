package dataprocessing

import (
	"context"
	"log/slog"

	"poscope/internal/config"
	apperrors "poscope/internal/errors"
	"poscope/internal/infrastructure"
	"poscope/pkg/contracts/domain"

	"go.opentelemetry.io/otel/attribute"
)

// Report summarizes one pipeline run for the upload response
type Report struct {
	Archives          int                                `json:"archives"`
	DuplicateArchives []string                           `json:"duplicate_archives,omitempty"`
	SkippedFiles      []string                           `json:"skipped_files,omitempty"`
	Stats             CleanStats                         `json:"stats"`
	PaymentMethods    []domain.PaymentMethod             `json:"payment_methods"`
	StoreRanges       map[domain.Store]*domain.DateRange `json:"store_ranges"`
}

// Pipeline turns uploaded POS archives into a merged dataset
type Pipeline struct {
	reader  *ArchiveReader
	cleaner *Cleaner
	metrics *infrastructure.BusinessMetrics
	logger  *slog.Logger
}

// NewPipeline creates a pipeline. metrics may be nil.
func NewPipeline(cfg config.PipelineConfig, metrics *infrastructure.BusinessMetrics, logger *slog.Logger) (*Pipeline, error) {
	cleaner, err := NewCleaner(cfg, logger)
	if err != nil {
		return nil, err
	}
	return &Pipeline{
		reader:  NewArchiveReader(cfg.SkipIdenticalArchives, logger),
		cleaner: cleaner,
		metrics: metrics,
		logger:  logger.With(slog.String("component", "pos_pipeline")),
	}, nil
}

// Run reads, cleans and merges the archives of one upload batch
func (p *Pipeline) Run(ctx context.Context, archives []Archive) (*domain.POSDataset, *Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	batch, err := p.reader.Read(archives)
	if err != nil {
		return nil, nil, err
	}
	if batch.CheckoutRows() == 0 {
		return nil, nil, apperrors.NewEmptyDatasetError("no checkout rows in upload", apperrors.MsgNoValidData)
	}

	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	tables, err := p.cleaner.Clean(batch)
	if err != nil {
		return nil, nil, err
	}
	ds := Merge(tables, p.logger)
	if ds.Empty() {
		return nil, nil, apperrors.NewEmptyDatasetError("no valid visits after cleaning", apperrors.MsgNoValidData)
	}

	p.metrics.RecordCleanedRows(ctx, "visits", len(ds.Visits))
	p.metrics.RecordCleanedRows(ctx, "items", len(ds.Items))
	infrastructure.AddSpanEvent(ctx, "pos.cleaned",
		attribute.Int("visits", len(ds.Visits)),
		attribute.Int("items", len(ds.Items)))

	report := &Report{
		Archives:          len(archives),
		DuplicateArchives: batch.DuplicateArchives,
		SkippedFiles:      batch.SkippedFiles,
		Stats:             tables.Stats,
		PaymentMethods:    ds.PaymentMethods,
		StoreRanges:       make(map[domain.Store]*domain.DateRange, len(domain.Stores)),
	}
	for _, s := range domain.Stores {
		if r, ok := ds.StoreRange(s); ok {
			rr := r
			report.StoreRanges[s] = &rr
		} else {
			report.StoreRanges[s] = nil
		}
	}

	return ds, report, nil
}
