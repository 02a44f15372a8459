package storage

import (
	"context"
	"errors"
	"fmt"
)

// Config holds database connection settings for SQLite, ClickHouse and PostgreSQL.
type Config struct {
	SQLitePath string           `yaml:"sqlitePath"`
	ClickHouse ClickHouseConfig `yaml:"clickhouse"`
	Postgres   PostgresConfig   `yaml:"postgres"`
}

// DefaultConfig returns a configuration with default local development settings.
func DefaultConfig() Config {
	return Config{
		ClickHouse: ClickHouseConfig{
			Host:     "localhost",
			Port:     9000,
			Database: "bcbp",
			User:     "default",
		},
		Postgres: PostgresConfig{
			Host:     "localhost",
			Port:     5432,
			Database: "bcbp",
			User:     "bcbp",
			Password: "bcbp",
		},
	}
}

// Backend selects which stores Open connects to.
type Backend uint8

const (
	BackendSQLite Backend = 1 << iota
	BackendPostgres
	BackendClickHouse

	BackendAll = BackendSQLite | BackendPostgres | BackendClickHouse
)

// DB holds whichever stores were opened. Unopened stores are nil.
type DB struct {
	Archive *SQLiteDB     // every scan, decoded or not
	PG      *PostgresDB   // decoded passes and legs
	CH      *ClickHouseDB // scan events
}

// Open connects to the selected backends. SQLite is skipped when no path is
// configured. On failure every store opened so far is closed again.
func Open(ctx context.Context, cfg Config, backends Backend) (*DB, error) {
	d := &DB{}

	if backends&BackendSQLite != 0 && cfg.SQLitePath != "" {
		archive, err := OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("sqlite: %w", err)
		}
		d.Archive = archive
	}

	if backends&BackendPostgres != 0 {
		pg, err := OpenPostgres(ctx, cfg.Postgres)
		if err != nil {
			_ = d.Close()
			return nil, fmt.Errorf("postgres: %w", err)
		}
		d.PG = pg
	}

	if backends&BackendClickHouse != 0 {
		ch, err := OpenClickHouse(ctx, cfg.ClickHouse)
		if err != nil {
			_ = d.Close()
			return nil, fmt.Errorf("clickhouse: %w", err)
		}
		d.CH = ch
	}

	return d, nil
}

// Close closes every open store.
func (d *DB) Close() error {
	var errs []error
	if d.Archive != nil {
		if err := d.Archive.Close(); err != nil {
			errs = append(errs, fmt.Errorf("sqlite: %w", err))
		}
	}
	if d.PG != nil {
		d.PG.Close()
	}
	if d.CH != nil {
		if err := d.CH.Close(); err != nil {
			errs = append(errs, fmt.Errorf("clickhouse: %w", err))
		}
	}
	return errors.Join(errs...)
}

// CreateSchemas creates the server-side schemas. The SQLite schema is
// created when the archive is opened.
func (d *DB) CreateSchemas(ctx context.Context) error {
	if d.PG != nil {
		if err := d.PG.CreateSchema(ctx); err != nil {
			return fmt.Errorf("postgres schema: %w", err)
		}
	}
	if d.CH != nil {
		if err := d.CH.CreateSchema(ctx); err != nil {
			return fmt.Errorf("clickhouse schema: %w", err)
		}
	}
	return nil
}
