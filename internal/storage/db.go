package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // PostgreSQL driver

	"genstudio/internal/models"
)

// DB wraps the database connection and provides health checks
type DB struct {
	conn         *sqlx.DB
	queryTimeout time.Duration

	// Cache of pricing models by id
	pricingCache *LRUCache[*models.PricingModel]
}

// DBConfig holds database configuration
type DBConfig struct {
	DSN string

	// Pool settings
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration

	// Query timeouts
	QueryTimeout time.Duration

	// Cache settings
	PricingCacheSize int
	PricingCacheTTL  time.Duration
}

// DefaultDBConfig returns default database configuration
func DefaultDBConfig(dsn string) DBConfig {
	return DBConfig{
		DSN: dsn,

		MaxOpenConns:    25,
		MaxIdleConns:    5,
		ConnMaxLifetime: 5 * time.Minute,
		ConnMaxIdleTime: 1 * time.Minute,

		QueryTimeout: 5 * time.Second,

		PricingCacheSize: 500,
		PricingCacheTTL:  5 * time.Minute,
	}
}

// NewDB creates a new database connection with caching
func NewDB(cfg DBConfig) (*DB, error) {
	conn, err := sqlx.Connect("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	conn.SetMaxOpenConns(cfg.MaxOpenConns)
	conn.SetMaxIdleConns(cfg.MaxIdleConns)
	conn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	conn.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	return &DB{
		conn:         conn,
		queryTimeout: cfg.QueryTimeout,
		pricingCache: NewLRUCache[*models.PricingModel](cfg.PricingCacheSize, cfg.PricingCacheTTL),
	}, nil
}

// Close closes the database connection and clears caches
func (db *DB) Close() error {
	db.pricingCache.Clear()
	return db.conn.Close()
}

// Ping checks if the database is reachable
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// Health returns the health status of the database
func (db *DB) Health(ctx context.Context) error {
	if err := db.Ping(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	var result int
	if err := db.conn.GetContext(ctx, &result, "SELECT 1"); err != nil {
		return fmt.Errorf("health check query failed: %w", err)
	}

	return nil
}

// DBStats holds pool and cache statistics
type DBStats struct {
	MaxOpenConnections int
	OpenConnections    int
	InUse              int
	Idle               int
	WaitCount          int64
	WaitDuration       time.Duration
	MaxIdleClosed      int64
	MaxLifetimeClosed  int64

	PricingCacheStats CacheStats
}

// GetStats returns current database and cache statistics
func (db *DB) GetStats() DBStats {
	stats := db.conn.Stats()

	return DBStats{
		MaxOpenConnections: stats.MaxOpenConnections,
		OpenConnections:    stats.OpenConnections,
		InUse:              stats.InUse,
		Idle:               stats.Idle,
		WaitCount:          stats.WaitCount,
		WaitDuration:       stats.WaitDuration,
		MaxIdleClosed:      stats.MaxIdleClosed,
		MaxLifetimeClosed:  stats.MaxLifetimeClosed,

		PricingCacheStats: db.pricingCache.GetStats(),
	}
}

// BeginTx starts a new transaction
func (db *DB) BeginTx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	return db.conn.BeginTxx(ctx, opts)
}

// Conn returns the underlying sqlx connection
func (db *DB) Conn() *sqlx.DB {
	return db.conn
}

// CleanupExpiredCacheEntries removes expired entries from the pricing cache
func (db *DB) CleanupExpiredCacheEntries() int {
	return db.pricingCache.CleanupExpired()
}

// withTimeout bounds a query by the configured timeout.
func (db *DB) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if db.queryTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, db.queryTimeout)
}

// The pricing column is json rather than jsonb so Postgres keeps the key
// order the admin typed; option fallback depends on it.
const schema = `
CREATE TABLE IF NOT EXISTS pricing_models (
	id                 UUID PRIMARY KEY,
	tool               TEXT NOT NULL,
	engine             TEXT NOT NULL,
	model_key          TEXT NOT NULL,
	version            TEXT NOT NULL DEFAULT '',
	name               TEXT NOT NULL,
	description        TEXT,
	status             TEXT NOT NULL DEFAULT 'active',
	pricing            JSON NOT NULL DEFAULT '{}',
	modes              TEXT[] NOT NULL DEFAULT '{}',
	aspect_ratios      TEXT[] NOT NULL DEFAULT '{}',
	requires_image     BOOLEAN NOT NULL DEFAULT FALSE,
	supports_end_image BOOLEAN NOT NULL DEFAULT FALSE,
	prompt_optional    BOOLEAN NOT NULL DEFAULT FALSE,
	created_at         TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at         TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	UNIQUE (engine, version, model_key)
);
CREATE INDEX IF NOT EXISTS pricing_models_tool_idx ON pricing_models (tool);
`

// EnsureSchema creates the pricing tables when missing
func (db *DB) EnsureSchema(ctx context.Context) error {
	if _, err := db.conn.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// NewPricingRepository creates a pricing repository on this connection
func (db *DB) NewPricingRepository() *PricingRepository {
	return NewPricingRepository(db)
}
