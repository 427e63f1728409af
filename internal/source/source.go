// Package source retrieves raw order snapshots from the systems that hold
// them: a Metabase saved question, a Google Sheet, a Postgres warehouse, a
// CSV export or a generated demo dataset.
package source

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"order-analysis/internal/orders"
)

// Kinds of order source.
const (
	KindMetabase = "metabase"
	KindSheets   = "sheets"
	KindPostgres = "postgres"
	KindCSV      = "csv"
	KindSample   = "sample"
)

// Kinds lists every supported source kind.
var Kinds = []string{KindMetabase, KindSheets, KindPostgres, KindCSV, KindSample}

// ErrUnknownKind is returned by New for an unsupported source kind.
var ErrUnknownKind = errors.New("unknown source kind")

// Source produces one immutable order snapshot per call.
type Source interface {
	Fetch(ctx context.Context) (*orders.Table, error)
	Name() string
}

// FetchError marks a failure talking to the upstream system, as opposed to a
// problem with the data it returned.
type FetchError struct {
	Source string
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch from %s failed: %v", e.Source, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Config selects and configures a source.
type Config struct {
	Kind     string
	Location *time.Location

	Metabase MetabaseConfig
	Sheets   SheetsConfig
	Postgres PostgresConfig
	CSV      CSVConfig
	Sample   SampleConfig
}

// New builds the source named by cfg.Kind.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (Source, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}

	switch cfg.Kind {
	case KindMetabase:
		return NewMetabaseSource(cfg.Metabase, cfg.Location, logger)
	case KindSheets:
		return NewSheetsSource(ctx, cfg.Sheets, cfg.Location, logger)
	case KindPostgres:
		return NewPostgresSource(ctx, cfg.Postgres, cfg.Location, logger)
	case KindCSV:
		return NewCSVSource(cfg.CSV, cfg.Location, logger)
	case KindSample:
		return NewSampleSource(cfg.Sample, cfg.Location), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, cfg.Kind)
	}
}

// logDecoded reports the shape of a freshly decoded snapshot.
func logDecoded(logger *slog.Logger, name string, table *orders.Table, elapsed time.Duration) {
	if table.Len() == 0 {
		logger.Warn("Source returned no orders", "source", name)
	}
	if table.Unparsed > 0 {
		logger.Warn("Unparseable timestamps stored as empty", "source", name, "cells", table.Unparsed)
	}
	logger.Info("Fetched order snapshot", "source", name, "records", table.Len(), "duration", elapsed)
}
