package cache

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"order-analysis/internal/database"
	"order-analysis/internal/orders"
)

// CachedSnapshot is an in-memory snapshot with expiry
type CachedSnapshot struct {
	Table     *orders.Table
	CachedAt  time.Time
	ExpiresAt time.Time
}

// IsExpired checks if the cached snapshot has expired
func (c *CachedSnapshot) IsExpired() bool {
	return time.Now().After(c.ExpiresAt)
}

// Age returns how long ago the snapshot was taken.
func (c *CachedSnapshot) Age() time.Duration {
	return time.Since(c.CachedAt)
}

// Manager keeps raw order snapshots in memory with a sqlite copy that
// survives restarts. Snapshots are immutable once stored, so readers share
// them without copying.
type Manager struct {
	store    *database.SnapshotCacheStore
	memory   sync.Map // map[string]*CachedSnapshot
	disabled bool
	ttl      time.Duration
	logger   *slog.Logger

	// Cleanup goroutine control
	ctx    context.Context
	cancel context.CancelFunc
}

// NewManager creates a new cache manager
func NewManager(store *database.SnapshotCacheStore, disabled bool, ttl time.Duration, logger *slog.Logger) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	if logger == nil {
		logger = slog.Default()
	}

	manager := &Manager{
		store:    store,
		disabled: disabled,
		ttl:      ttl,
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
	}

	if !disabled {
		// Load existing cache entries from database
		if err := manager.loadFromDatabase(); err != nil {
			logger.Warn("Failed to load snapshot cache from database", "error", err)
		}
		// Start cleanup goroutine
		go manager.cleanupLoop()
	}

	return manager
}

// Get returns the cached snapshot for source, or nil on a miss.
func (m *Manager) Get(source string) (*CachedSnapshot, error) {
	// Cache disabled, always miss
	if m.disabled {
		return nil, nil
	}

	// Check in-memory cache first
	if value, ok := m.memory.Load(source); ok {
		cached := value.(*CachedSnapshot)
		if !cached.IsExpired() {
			return cached, nil
		}
		// Remove expired entry from memory
		m.memory.Delete(source)
	}

	// Check database cache
	entry, err := m.store.Get(source)
	if err != nil {
		return nil, fmt.Errorf("failed to get from database cache: %w", err)
	}
	if entry == nil {
		return nil, nil
	}

	// Store in memory for faster access next time
	cached := &CachedSnapshot{Table: entry.Table, CachedAt: entry.CachedAt, ExpiresAt: entry.ExpiresAt}
	m.memory.Store(source, cached)
	return cached, nil
}

// Set stores a snapshot in both memory and database
func (m *Manager) Set(source string, table *orders.Table) error {
	if m.disabled {
		return nil
	}

	// Store in database first
	entry, err := m.store.Set(source, table, m.ttl)
	if err != nil {
		return fmt.Errorf("failed to store in database cache: %w", err)
	}

	// Store in memory
	m.memory.Store(source, &CachedSnapshot{Table: table, CachedAt: entry.CachedAt, ExpiresAt: entry.ExpiresAt})
	return nil
}

// Invalidate drops the snapshot for source and returns the age of what was
// dropped, or nil if nothing was cached.
func (m *Manager) Invalidate(source string) (*time.Duration, error) {
	if m.disabled {
		return nil, nil
	}

	// Check if there was a cache entry and get its age
	var age *time.Duration
	if value, ok := m.memory.Load(source); ok {
		a := value.(*CachedSnapshot).Age()
		age = &a
	} else {
		// Check database for cache age
		entry, err := m.store.Get(source)
		if err != nil {
			return nil, fmt.Errorf("failed to check database cache age: %w", err)
		}
		if entry != nil {
			a := time.Since(entry.CachedAt)
			age = &a
		}
	}

	m.memory.Delete(source)
	if err := m.store.Delete(source); err != nil {
		return age, fmt.Errorf("failed to invalidate cache: %w", err)
	}
	return age, nil
}

// InvalidateAll drops every cached snapshot.
func (m *Manager) InvalidateAll() (int64, error) {
	if m.disabled {
		return 0, nil
	}
	m.memory.Range(func(key, _ interface{}) bool {
		m.memory.Delete(key)
		return true
	})
	return m.store.DeleteAll()
}

// IsEnabled returns true if caching is enabled
func (m *Manager) IsEnabled() bool {
	return !m.disabled
}

// GetTTL returns the cache TTL duration
func (m *Manager) GetTTL() time.Duration {
	return m.ttl
}

func (m *Manager) loadFromDatabase() error {
	entries, err := m.store.LoadAll()
	if err != nil {
		return err
	}

	for source, entry := range entries {
		m.memory.Store(source, &CachedSnapshot{Table: entry.Table, CachedAt: entry.CachedAt, ExpiresAt: entry.ExpiresAt})
	}
	if len(entries) > 0 {
		m.logger.Info("Loaded snapshots from database", "count", len(entries))
	}
	return nil
}

func (m *Manager) cleanupLoop() {
	// Cleanup every minute
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-m.ctx.Done():
			return
		case <-ticker.C:
			m.cleanup()
		}
	}
}

// cleanup removes expired entries from both memory and database
func (m *Manager) cleanup() {
	// Clean up memory
	memoryCount := 0
	m.memory.Range(func(key, value interface{}) bool {
		if value.(*CachedSnapshot).IsExpired() {
			m.memory.Delete(key)
			memoryCount++
		}
		return true
	})

	// Clean up database
	if _, err := m.store.DeleteExpired(); err != nil {
		m.logger.Warn("Failed to clean up expired database snapshots", "error", err)
	}

	if memoryCount > 0 {
		m.logger.Debug("Cleaned up expired memory snapshots", "count", memoryCount)
	}
}

// GetStats returns cache statistics
func (m *Manager) GetStats() (CacheStats, error) {
	stats := CacheStats{
		Disabled: m.disabled,
		TTL:      m.ttl.String(),
	}
	if m.disabled {
		return stats, nil
	}

	// Count memory entries
	m.memory.Range(func(key, value interface{}) bool {
		stats.MemoryTotal++
		if value.(*CachedSnapshot).IsExpired() {
			stats.MemoryExpired++
		}
		return true
	})

	// Get database stats
	dbTotal, dbExpired, err := m.store.GetStats()
	if err != nil {
		return stats, fmt.Errorf("failed to get database stats: %w", err)
	}
	stats.DatabaseTotal = dbTotal
	stats.DatabaseExpired = dbExpired

	return stats, nil
}

// Close shuts down the cleanup goroutine
func (m *Manager) Close() {
	if m.cancel != nil {
		m.cancel()
	}
}

// CacheStats represents cache statistics
type CacheStats struct {
	Disabled        bool   `json:"disabled"`
	TTL             string `json:"ttl"`
	MemoryTotal     int    `json:"memory_total"`
	MemoryExpired   int    `json:"memory_expired"`
	DatabaseTotal   int    `json:"database_total"`
	DatabaseExpired int    `json:"database_expired"`
}
