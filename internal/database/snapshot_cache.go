package database

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"order-analysis/internal/orders"
)

// SnapshotEntry is a cached raw order snapshot for one source.
type SnapshotEntry struct {
	Source    string        `json:"source"`
	Table     *orders.Table `json:"-"`
	Records   int           `json:"records"`
	CachedAt  time.Time     `json:"cached_at"`
	ExpiresAt time.Time     `json:"expires_at"`
}

// SnapshotCacheStore handles database operations for the snapshot cache.
// Only raw snapshots are stored; derived report rows never are.
type SnapshotCacheStore struct {
	db *sql.DB
}

// NewSnapshotCacheStore creates a new snapshot cache store
func NewSnapshotCacheStore(db *sql.DB) *SnapshotCacheStore {
	return &SnapshotCacheStore{db: db}
}

// Get retrieves the cached snapshot for source. A miss or an expired entry
// returns nil without error.
func (s *SnapshotCacheStore) Get(source string) (*SnapshotEntry, error) {
	query := `SELECT payload, records, cached_at, expires_at FROM snapshot_cache WHERE source = ?`

	var payload string
	entry := &SnapshotEntry{Source: source}
	err := s.db.QueryRow(query, source).Scan(&payload, &entry.Records, &entry.CachedAt, &entry.ExpiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get cached snapshot: %w", err)
	}

	if time.Now().After(entry.ExpiresAt) {
		s.Delete(source)
		return nil, nil
	}

	var table orders.Table
	if err := json.Unmarshal([]byte(payload), &table); err != nil {
		return nil, fmt.Errorf("failed to deserialize cached snapshot: %w", err)
	}
	entry.Table = &table
	return entry, nil
}

// Set stores a snapshot with the given TTL, replacing any previous one.
func (s *SnapshotCacheStore) Set(source string, table *orders.Table, ttl time.Duration) (*SnapshotEntry, error) {
	payload, err := json.Marshal(table)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize snapshot: %w", err)
	}

	now := time.Now()
	entry := &SnapshotEntry{
		Source:    source,
		Table:     table,
		Records:   table.Len(),
		CachedAt:  now,
		ExpiresAt: now.Add(ttl),
	}

	query := `INSERT OR REPLACE INTO snapshot_cache (source, payload, records, cached_at, expires_at)
			  VALUES (?, ?, ?, ?, ?)`
	if _, err := s.db.Exec(query, source, string(payload), entry.Records, entry.CachedAt, entry.ExpiresAt); err != nil {
		return nil, fmt.Errorf("failed to cache snapshot: %w", err)
	}
	return entry, nil
}

// Delete removes the cached snapshot for source
func (s *SnapshotCacheStore) Delete(source string) error {
	if _, err := s.db.Exec(`DELETE FROM snapshot_cache WHERE source = ?`, source); err != nil {
		return fmt.Errorf("failed to delete cached snapshot: %w", err)
	}
	return nil
}

// DeleteAll empties the cache and returns how many entries were removed.
func (s *SnapshotCacheStore) DeleteAll() (int64, error) {
	result, err := s.db.Exec(`DELETE FROM snapshot_cache`)
	if err != nil {
		return 0, fmt.Errorf("failed to clear snapshot cache: %w", err)
	}
	return result.RowsAffected()
}

// DeleteExpired removes all expired entries
func (s *SnapshotCacheStore) DeleteExpired() (int64, error) {
	result, err := s.db.Exec(`DELETE FROM snapshot_cache WHERE expires_at <= ?`, time.Now())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired snapshots: %w", err)
	}

	n, err := result.RowsAffected()
	if err == nil && n > 0 {
		slog.Debug("Cleaned up expired snapshots", "count", n)
	}
	return n, nil
}

// LoadAll loads all non-expired entries, for warming the in-memory layer on
// startup. Entries that fail to decode are skipped.
func (s *SnapshotCacheStore) LoadAll() (map[string]*SnapshotEntry, error) {
	query := `SELECT source, payload, records, cached_at, expires_at FROM snapshot_cache WHERE expires_at > ?`

	rows, err := s.db.Query(query, time.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshots: %w", err)
	}
	defer rows.Close()

	entries := make(map[string]*SnapshotEntry)
	for rows.Next() {
		var payload string
		entry := &SnapshotEntry{}
		if err := rows.Scan(&entry.Source, &payload, &entry.Records, &entry.CachedAt, &entry.ExpiresAt); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}

		var table orders.Table
		if err := json.Unmarshal([]byte(payload), &table); err != nil {
			slog.Warn("Failed to deserialize cached snapshot", "source", entry.Source, "error", err)
			continue
		}
		entry.Table = &table
		entries[entry.Source] = entry
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating snapshots: %w", err)
	}
	return entries, nil
}

// GetStats returns the total and expired entry counts
func (s *SnapshotCacheStore) GetStats() (int, int, error) {
	var total, expired int

	if err := s.db.QueryRow("SELECT COUNT(*) FROM snapshot_cache").Scan(&total); err != nil {
		return 0, 0, fmt.Errorf("failed to count snapshots: %w", err)
	}
	if err := s.db.QueryRow("SELECT COUNT(*) FROM snapshot_cache WHERE expires_at <= ?", time.Now()).Scan(&expired); err != nil {
		return 0, 0, fmt.Errorf("failed to count expired snapshots: %w", err)
	}
	return total, expired, nil
}
