package database

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Run statuses.
const (
	RunSucceeded = "succeeded"
	RunFailed    = "failed"
)

// Run triggers.
const (
	TriggerRequest  = "request"
	TriggerSchedule = "schedule"
)

// ErrRunNotFound is returned when a run id is unknown.
var ErrRunNotFound = errors.New("report run not found")

// Run records one report computation.
type Run struct {
	ID          string    `json:"id"`
	Source      string    `json:"source"`
	TriggeredBy string    `json:"triggered_by"`
	ReportDate  string    `json:"report_date"`
	Hub         string    `json:"hub"`
	Records     int       `json:"records"`
	Status      string    `json:"status"`
	Error       *string   `json:"error,omitempty"`
	DurationMS  int64     `json:"duration_ms"`
	CreatedAt   time.Time `json:"created_at"`
}

// RunStore handles database operations for report runs
type RunStore struct {
	db *sql.DB
}

func NewRunStore(db *sql.DB) *RunStore {
	return &RunStore{db: db}
}

// Create inserts run, assigning an id and timestamp when missing.
func (s *RunStore) Create(run *Run) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}
	if run.TriggeredBy == "" {
		run.TriggeredBy = TriggerRequest
	}

	query := `INSERT INTO report_runs (id, source, triggered_by, report_date, hub, records, status, error, duration_ms, created_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := s.db.Exec(query, run.ID, run.Source, run.TriggeredBy, run.ReportDate, run.Hub,
		run.Records, run.Status, run.Error, run.DurationMS, run.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}
	return nil
}

// GetByID returns a run by id
func (s *RunStore) GetByID(id string) (*Run, error) {
	query := `SELECT id, source, triggered_by, report_date, hub, records, status, error, duration_ms, created_at
			  FROM report_runs WHERE id = ?`

	var run Run
	err := s.db.QueryRow(query, id).Scan(&run.ID, &run.Source, &run.TriggeredBy, &run.ReportDate,
		&run.Hub, &run.Records, &run.Status, &run.Error, &run.DurationMS, &run.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRunNotFound
		}
		return nil, err
	}
	return &run, nil
}

// List returns the most recent runs, newest first.
func (s *RunStore) List(limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT id, source, triggered_by, report_date, hub, records, status, error, duration_ms, created_at
			  FROM report_runs ORDER BY created_at DESC LIMIT ?`

	rows, err := s.db.Query(query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		var run Run
		err := rows.Scan(&run.ID, &run.Source, &run.TriggeredBy, &run.ReportDate,
			&run.Hub, &run.Records, &run.Status, &run.Error, &run.DurationMS, &run.CreatedAt)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// DeleteOlderThan prunes the run log.
func (s *RunStore) DeleteOlderThan(cutoff time.Time) (int64, error) {
	result, err := s.db.Exec(`DELETE FROM report_runs WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune runs: %w", err)
	}
	return result.RowsAffected()
}
