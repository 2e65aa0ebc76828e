package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/bimakw/volume-tracker/internal/config"
)

// PostgresDB wraps the sqlx database connection
type PostgresDB struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// NewPostgresDB creates a new PostgreSQL connection
func NewPostgresDB(cfg config.DatabaseConfig, logger *zap.Logger) (*PostgresDB, error) {
	db, err := sqlx.Connect("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("Connected to PostgreSQL",
		zap.String("host", cfg.Host),
		zap.Int("port", cfg.Port),
		zap.String("database", cfg.Name),
	)

	return &PostgresDB{
		db:     db,
		logger: logger,
	}, nil
}

// schema is applied idempotently on start-up
var schema = []string{
	`CREATE TABLE IF NOT EXISTS tokens (
		id SERIAL PRIMARY KEY,
		name VARCHAR(100) NOT NULL UNIQUE,
		slug VARCHAR(100) NOT NULL,
		top_today DECIMAL(20,8) NOT NULL DEFAULT 0,
		top_yesterday DECIMAL(20,8) NOT NULL DEFAULT 0,
		volume_today DECIMAL(20,8),
		volume_yesterday DECIMAL(20,8),
		amount DECIMAL(20,8) NOT NULL DEFAULT 0,
		current_price DECIMAL(20,8),
		total_prize DECIMAL(20,8),
		last_updated TIMESTAMP,
		status VARCHAR(20) NOT NULL DEFAULT 'ongoing',
		archived_at TIMESTAMP,
		created_at TIMESTAMP NOT NULL DEFAULT (NOW() AT TIME ZONE 'UTC'),
		updated_at TIMESTAMP NOT NULL DEFAULT (NOW() AT TIME ZONE 'UTC')
	)`,
	`CREATE TABLE IF NOT EXISTS top_volume_history (
		id SERIAL PRIMARY KEY,
		token_id INTEGER NOT NULL REFERENCES tokens(id) ON DELETE CASCADE,
		date DATE NOT NULL,
		value DECIMAL(20,8) NOT NULL,
		previous_value DECIMAL(20,8),
		timestamp TIMESTAMP NOT NULL,
		type VARCHAR(50) NOT NULL,
		note TEXT,
		created_at TIMESTAMP NOT NULL DEFAULT (NOW() AT TIME ZONE 'UTC')
	)`,
	`CREATE TABLE IF NOT EXISTS trading_volume_history (
		id SERIAL PRIMARY KEY,
		token_id INTEGER NOT NULL REFERENCES tokens(id) ON DELETE CASCADE,
		date DATE NOT NULL,
		value DECIMAL(20,8) NOT NULL,
		previous_value DECIMAL(20,8),
		timestamp TIMESTAMP NOT NULL,
		type VARCHAR(50) NOT NULL,
		note TEXT,
		created_at TIMESTAMP NOT NULL DEFAULT (NOW() AT TIME ZONE 'UTC')
	)`,
	`CREATE INDEX IF NOT EXISTS idx_tokens_status ON tokens(status)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_tokens_slug_lower ON tokens(LOWER(slug))`,
	`CREATE INDEX IF NOT EXISTS idx_top_volume_history_token_ts ON top_volume_history(token_id, timestamp)`,
	`CREATE INDEX IF NOT EXISTS idx_trading_volume_history_token_ts ON trading_volume_history(token_id, timestamp)`,
}

// Migrate creates tables and indexes if they do not exist
func (p *PostgresDB) Migrate(ctx context.Context) error {
	tx, err := p.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin schema transaction: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range schema {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit schema: %w", err)
	}

	p.logger.Info("Database schema ready")
	return nil
}

// Close closes the database connection
func (p *PostgresDB) Close() error {
	return p.db.Close()
}

// DB returns the underlying sqlx.DB
func (p *PostgresDB) DB() *sqlx.DB {
	return p.db
}

// HealthCheck performs a health check on the database
func (p *PostgresDB) HealthCheck(ctx context.Context) error {
	return p.db.PingContext(ctx)
}
