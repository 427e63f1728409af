package source

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"order-analysis/internal/orders"
)

// CSVConfig points at an exported order file.
type CSVConfig struct {
	Path      string
	Delimiter string
}

// CSVSource reads a CSV export with a header row. The file is re-read on
// every fetch.
type CSVSource struct {
	config CSVConfig
	loc    *time.Location
	logger *slog.Logger
}

// NewCSVSource validates the configured path.
func NewCSVSource(cfg CSVConfig, loc *time.Location, logger *slog.Logger) (*CSVSource, error) {
	if cfg.Path == "" {
		return nil, errors.New("csv path is required")
	}
	if len(cfg.Delimiter) > 1 {
		return nil, fmt.Errorf("csv delimiter must be a single character, got %q", cfg.Delimiter)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CSVSource{config: cfg, loc: loc, logger: logger}, nil
}

// Name identifies the source in caches and run logs.
func (c *CSVSource) Name() string {
	return "csv:" + filepath.Base(c.config.Path)
}

// Fetch parses the whole file.
func (c *CSVSource) Fetch(ctx context.Context) (*orders.Table, error) {
	start := time.Now()

	f, err := os.Open(c.config.Path)
	if err != nil {
		return nil, &FetchError{Source: c.Name(), Err: err}
	}
	defer f.Close()

	table, err := ReadCSV(f, c.config.Delimiter, c.loc)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	logDecoded(c.logger, c.Name(), table, time.Since(start))
	return table, nil
}

// ReadCSV decodes an order export from r. An empty stream yields an empty
// table with the full column contract.
func ReadCSV(r io.Reader, delimiter string, loc *time.Location) (*orders.Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	if delimiter != "" {
		reader.Comma = rune(delimiter[0])
	}

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse csv: %w", err)
	}
	if len(records) == 0 {
		return orders.NewTable(nil), nil
	}
	return orders.FromRows(records[0], records[1:], loc)
}
