package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/google/uuid"
)

// ClickHouseConfig holds ClickHouse connection settings.
type ClickHouseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
}

// ClickHouseDB wraps a ClickHouse connection for scan event analytics.
type ClickHouseDB struct {
	conn driver.Conn
}

// Conn returns the underlying ClickHouse connection for direct queries.
func (d *ClickHouseDB) Conn() driver.Conn {
	return d.conn
}

// OpenClickHouse opens a connection to ClickHouse.
func OpenClickHouse(ctx context.Context, cfg ClickHouseConfig) (*ClickHouseDB, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.User,
			Password: cfg.Password,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
		DialTimeout:     10 * time.Second,
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxLifetime: time.Hour,
	})
	if err != nil {
		return nil, fmt.Errorf("open clickhouse: %w", err)
	}

	// Test the connection.
	if err := conn.Ping(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("ping clickhouse: %w", err)
	}

	return &ClickHouseDB{conn: conn}, nil
}

// Close closes the ClickHouse connection.
func (d *ClickHouseDB) Close() error {
	return d.conn.Close()
}

// CreateSchema creates the ClickHouse tables.
func (d *ClickHouseDB) CreateSchema(ctx context.Context) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS scan_events (
			event_id        UUID,
			scan_id         Int64,
			timestamp       DateTime64(3),
			source          LowCardinality(String),
			airport         LowCardinality(String),
			gate            LowCardinality(String),
			symbology       LowCardinality(String),
			parser          LowCardinality(String),
			outcome         LowCardinality(String),
			error_kind      LowCardinality(String),
			airline         LowCardinality(String),
			flight_number   String,
			origin          LowCardinality(String),
			destination     LowCardinality(String),
			legs            UInt8,
			payload_len     UInt16,
			decode_micros   UInt32,
			created_at      DateTime64(3) DEFAULT now64(3)
		)
		ENGINE = MergeTree()
		PARTITION BY toYYYYMM(timestamp)
		ORDER BY (outcome, airline, timestamp, event_id)
		SETTINGS index_granularity = 8192`,
	}

	for _, q := range queries {
		if err := d.conn.Exec(ctx, q); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}

	return nil
}

// ScanEvent is one scan outcome recorded for analytics.
type ScanEvent struct {
	EventID      uuid.UUID
	ScanID       int64
	Timestamp    time.Time
	Source       string
	Airport      string
	Gate         string
	Symbology    string
	Parser       string
	Outcome      string // ok or error
	ErrorKind    string
	Airline      string
	FlightNumber string
	Origin       string
	Destination  string
	Legs         uint8
	PayloadLen   uint16
	DecodeTime   time.Duration
}

const scanEventInsert = `INSERT INTO scan_events (event_id, scan_id, timestamp, source, airport, gate, symbology,
	parser, outcome, error_kind, airline, flight_number, origin, destination, legs, payload_len, decode_micros)`

// row returns the column values for scanEventInsert, filling in a fresh
// event ID and the current time when unset.
func (e ScanEvent) row() []any {
	if e.EventID == uuid.Nil {
		e.EventID = uuid.New()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	micros := e.DecodeTime.Microseconds()
	if micros < 0 {
		micros = 0
	}
	return []any{
		e.EventID, e.ScanID, e.Timestamp, e.Source, e.Airport, e.Gate, e.Symbology,
		e.Parser, e.Outcome, e.ErrorKind, e.Airline, e.FlightNumber, e.Origin, e.Destination,
		e.Legs, e.PayloadLen, uint32(micros),
	}
}

// InsertBatch stores multiple scan events in ClickHouse efficiently.
func (d *ClickHouseDB) InsertBatch(ctx context.Context, events []ScanEvent) error {
	if len(events) == 0 {
		return nil
	}

	batch, err := d.conn.PrepareBatch(ctx, scanEventInsert)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, e := range events {
		if err := batch.Append(e.row()...); err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// CountByOutcome returns event counts grouped by outcome.
func (d *ClickHouseDB) CountByOutcome(ctx context.Context) (map[string]uint64, error) {
	return d.countBy(ctx, "outcome", 0)
}

// TopErrorKinds returns the most frequent decode error kinds.
func (d *ClickHouseDB) TopErrorKinds(ctx context.Context, limit int) (map[string]uint64, error) {
	return d.countBy(ctx, "error_kind", limit)
}

func (d *ClickHouseDB) countBy(ctx context.Context, column string, limit int) (map[string]uint64, error) {
	query := fmt.Sprintf("SELECT %s, count() FROM scan_events WHERE %s != '' GROUP BY %s ORDER BY count() DESC",
		column, column, column)
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	counts := make(map[string]uint64)
	rows, err := d.conn.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var key string
		var count uint64
		if err := rows.Scan(&key, &count); err != nil {
			return nil, fmt.Errorf("scan count by %s: %w", column, err)
		}
		counts[key] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate count by %s: %w", column, err)
	}
	return counts, nil
}

// Count returns the total number of events, optionally filtered by outcome.
func (d *ClickHouseDB) Count(ctx context.Context, outcome string) (uint64, error) {
	var count uint64
	var err error
	if outcome != "" {
		row := d.conn.QueryRow(ctx, "SELECT count() FROM scan_events WHERE outcome = ?", outcome)
		err = row.Scan(&count)
	} else {
		row := d.conn.QueryRow(ctx, "SELECT count() FROM scan_events")
		err = row.Scan(&count)
	}
	return count, err
}
