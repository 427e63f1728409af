package source

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"order-analysis/internal/orders"
)

// DefaultPostgresQuery selects the order export from the warehouse view.
const DefaultPostgresQuery = `SELECT * FROM order_export`

// PostgresConfig configures the warehouse source. Query result columns must
// carry the export's column names.
type PostgresConfig struct {
	DSN   string
	Query string
}

// PostgresSource queries orders from a Postgres warehouse.
type PostgresSource struct {
	pool   *pgxpool.Pool
	query  string
	loc    *time.Location
	logger *slog.Logger
}

// NewPostgresSource opens a connection pool. The pool connects lazily.
func NewPostgresSource(ctx context.Context, cfg PostgresConfig, loc *time.Location, logger *slog.Logger) (*PostgresSource, error) {
	if cfg.DSN == "" {
		return nil, errors.New("postgres DSN is required")
	}
	if cfg.Query == "" {
		cfg.Query = DefaultPostgresQuery
	}
	if logger == nil {
		logger = slog.Default()
	}

	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres pool: %w", err)
	}
	return &PostgresSource{pool: pool, query: cfg.Query, loc: loc, logger: logger}, nil
}

// Name identifies the source in caches and run logs.
func (p *PostgresSource) Name() string {
	return "postgres:" + p.pool.Config().ConnConfig.Database
}

// Fetch runs the configured query and decodes every row.
func (p *PostgresSource) Fetch(ctx context.Context) (*orders.Table, error) {
	start := time.Now()

	rows, err := p.pool.Query(ctx, p.query)
	if err != nil {
		return nil, &FetchError{Source: p.Name(), Err: err}
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	header := make([]string, len(fields))
	for i, f := range fields {
		header[i] = f.Name
	}

	var records []map[string]any
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, &FetchError{Source: p.Name(), Err: err}
		}
		row := make(map[string]any, len(header))
		for i, col := range header {
			row[col] = values[i]
		}
		records = append(records, row)
	}
	if err := rows.Err(); err != nil {
		return nil, &FetchError{Source: p.Name(), Err: err}
	}

	var table *orders.Table
	if len(records) == 0 {
		// The header still declares the columns of an empty result.
		table, err = orders.FromRows(header, nil, p.loc)
	} else {
		table, err = orders.FromMaps(records, p.loc)
	}
	if err != nil {
		return nil, err
	}
	logDecoded(p.logger, p.Name(), table, time.Since(start))
	return table, nil
}

// Close releases the pool.
func (p *PostgresSource) Close() error {
	p.pool.Close()
	return nil
}
