// ./internal/state/db.go
package state

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/rs/zerolog/log"
)

// DB is a global database connection pool.
var DB *sql.DB

// DBConfig holds database connection parameters.
type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string // "disable", "require", "verify-full", etc.
}

// InitDB initializes the database connection pool.
func InitDB(cfg DBConfig) error {
	psqlInfo := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode)

	var err error
	DB, err = sql.Open("postgres", psqlInfo)
	if err != nil {
		return fmt.Errorf("failed to open database connection: %w", err)
	}

	DB.SetMaxOpenConns(25)
	DB.SetMaxIdleConns(25)
	DB.SetConnMaxLifetime(5 * time.Minute)

	err = DB.Ping()
	if err != nil {
		DB.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	log.Info().Msg("Successfully connected to the PostgreSQL database!")
	return nil
}

// CloseDB closes the database connection pool.
func CloseDB() {
	if DB != nil {
		log.Info().Msg("Closing database connection...")
		if err := DB.Close(); err != nil {
			log.Error().Err(err).Msg("Error closing database connection")
		}
	}
}

// EnsureSchema applies the necessary DDL to create tables if they don't exist.
// Amount columns are NUMERIC(80, 0): integer amounts in token base units can
// exceed 64 bits, so they round-trip through strings, never floats.
func EnsureSchema() error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	schemaSQL := `
		CREATE TABLE IF NOT EXISTS harvest_records (
			record_id SERIAL PRIMARY KEY,
			harvest_timestamp TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			claimed_rewards NUMERIC(80, 0) NOT NULL,
			fee_rewards NUMERIC(80, 0) NOT NULL,
			net_rewards NUMERIC(80, 0) NOT NULL,
			fee_assets NUMERIC(80, 0) NOT NULL,
			restaked_assets NUMERIC(80, 0) NOT NULL,
			dust_assets NUMERIC(80, 0) NOT NULL,
			fee_rate_bps BIGINT NOT NULL,
			price_x128 NUMERIC(80, 0) NOT NULL,
			total_assets NUMERIC(80, 0) NOT NULL,
			total_shares NUMERIC(80, 0) NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_harvest_records_timestamp ON harvest_records(harvest_timestamp DESC);

		CREATE TABLE IF NOT EXISTS operation_receipts (
			receipt_id SERIAL PRIMARY KEY,
			operation_timestamp TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			operation_type VARCHAR(50) NOT NULL,
			caller TEXT NOT NULL,
			receiver TEXT,
			asset_amount NUMERIC(80, 0) NOT NULL,
			share_amount NUMERIC(80, 0) NOT NULL,
			success BOOLEAN NOT NULL,
			error_message TEXT
		);
		CREATE INDEX IF NOT EXISTS idx_operation_receipts_timestamp ON operation_receipts(operation_timestamp DESC);
		CREATE INDEX IF NOT EXISTS idx_operation_receipts_type ON operation_receipts(operation_type);
		CREATE INDEX IF NOT EXISTS idx_operation_receipts_caller ON operation_receipts(caller);

		CREATE TABLE IF NOT EXISTS vault_snapshots (
			snapshot_id SERIAL PRIMARY KEY,
			snapshot_timestamp TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			total_shares NUMERIC(80, 0) NOT NULL,
			total_staked_assets NUMERIC(80, 0) NOT NULL,
			accrued_fee_assets NUMERIC(80, 0) NOT NULL,
			deposit_cap NUMERIC(80, 0) NOT NULL,
			fee_rate_bps BIGINT NOT NULL,
			holder_count INTEGER NOT NULL,
			price_x128 NUMERIC(80, 0) NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_vault_snapshots_timestamp ON vault_snapshots(snapshot_timestamp DESC);
	`
	_, err := DB.Exec(schemaSQL)
	if err != nil {
		return fmt.Errorf("failed to execute schema DDL: %w", err)
	}
	log.Info().Msg("Database schema ensured.")
	return nil
}

// TestDBConnection tests if the database connection is healthy
func TestDBConnection() error {
	if DB == nil {
		return fmt.Errorf("database connection is nil")
	}

	// Use a short timeout context for health checks
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := DB.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	return nil
}
