package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"bcbp_parser/internal/bcbp"
)

// PostgresConfig holds PostgreSQL connection settings.
type PostgresConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
}

// PostgresDB wraps a PostgreSQL connection pool for pass storage.
type PostgresDB struct {
	pool *pgxpool.Pool
}

// OpenPostgres opens a connection pool to PostgreSQL.
func OpenPostgres(ctx context.Context, cfg PostgresConfig) (*PostgresDB, error) {
	connStr := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Database)

	poolCfg, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}

	poolCfg.MaxConns = 10
	poolCfg.MinConns = 2
	poolCfg.MaxConnLifetime = time.Hour
	poolCfg.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	// Test the connection.
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &PostgresDB{pool: pool}, nil
}

// Close closes the PostgreSQL connection pool.
func (d *PostgresDB) Close() {
	d.pool.Close()
}

// Pool returns the underlying pool for direct queries.
func (d *PostgresDB) Pool() *pgxpool.Pool {
	return d.pool
}

// CreateSchema creates the PostgreSQL tables.
func (d *PostgresDB) CreateSchema(ctx context.Context) error {
	schema := `
	-- One row per distinct boarding pass payload.
	CREATE TABLE IF NOT EXISTS passes (
		id              BIGSERIAL PRIMARY KEY,
		raw_data        TEXT NOT NULL UNIQUE,
		scan_id         BIGINT,
		source          TEXT,
		version         TEXT,
		pax_type        TEXT,
		last_name       TEXT NOT NULL,
		first_name      TEXT,
		eticket         TEXT,
		issue_date      SMALLINT,
		issue_day       SMALLINT,
		security_kind   TEXT,
		record          JSONB NOT NULL,
		first_seen      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		last_seen       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		scan_count      INTEGER NOT NULL DEFAULT 1
	);

	CREATE INDEX IF NOT EXISTS idx_passes_last_name ON passes(last_name);

	-- Flight legs, in payload order.
	CREATE TABLE IF NOT EXISTS pass_legs (
		pass_id         BIGINT NOT NULL REFERENCES passes(id) ON DELETE CASCADE,
		leg_index       SMALLINT NOT NULL,
		pnr             TEXT NOT NULL,
		origin          TEXT NOT NULL,
		destination     TEXT NOT NULL,
		airline         TEXT NOT NULL,
		flight_number   TEXT NOT NULL,
		flight_day      SMALLINT,
		compartment     TEXT,
		seat            TEXT,
		check_in_seq    INTEGER,
		pax_status      TEXT,
		ff_airline      TEXT,
		ff_number       TEXT,
		PRIMARY KEY (pass_id, leg_index)
	);

	CREATE INDEX IF NOT EXISTS idx_pass_legs_pnr ON pass_legs(pnr);
	CREATE INDEX IF NOT EXISTS idx_pass_legs_flight ON pass_legs(airline, flight_number, flight_day);
	`

	_, err := d.pool.Exec(ctx, schema)
	return err
}

// SavePassParams holds one decoded pass to persist.
type SavePassParams struct {
	RawData   string
	ScanID    int64
	Source    string
	ScannedAt time.Time
	Record    *bcbp.Record
}

// passValues returns the passes insert arguments in column order.
// issue_date keeps the year digit; issue_day is the day of year alone.
func passValues(p SavePassParams, recordJSON []byte) []any {
	r := p.Record
	return []any{
		p.RawData, p.ScanID, p.Source, r.Version, string(r.PaxType), r.LastName, r.FirstName, r.ETicket,
		r.BoardingPassIssueDate, r.IssueDayOfYear(), r.SecurityDataKind, recordJSON, p.ScannedAt,
	}
}

// SavePass inserts or refreshes a pass and replaces its legs in one
// transaction. Re-scanning the same payload bumps scan_count.
func (d *PostgresDB) SavePass(ctx context.Context, p SavePassParams) (int64, error) {
	if p.Record == nil {
		return 0, fmt.Errorf("save pass: nil record")
	}
	if p.ScannedAt.IsZero() {
		p.ScannedAt = time.Now().UTC()
	}
	recordJSON, err := json.Marshal(p.Record)
	if err != nil {
		return 0, fmt.Errorf("marshal record: %w", err)
	}

	tx, err := d.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var id int64
	err = tx.QueryRow(ctx, `
		INSERT INTO passes (raw_data, scan_id, source, version, pax_type, last_name, first_name, eticket,
			issue_date, issue_day, security_kind, record, first_seen, last_seen)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $13)
		ON CONFLICT (raw_data) DO UPDATE SET
			scan_id = EXCLUDED.scan_id,
			source = COALESCE(EXCLUDED.source, passes.source),
			last_seen = EXCLUDED.last_seen,
			scan_count = passes.scan_count + 1
		RETURNING id
	`, passValues(p, recordJSON)...).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("upsert pass: %w", err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM pass_legs WHERE pass_id = $1`, id); err != nil {
		return 0, fmt.Errorf("clear legs: %w", err)
	}

	batch := &pgx.Batch{}
	for i, l := range p.Record.Legs {
		batch.Queue(`
			INSERT INTO pass_legs (pass_id, leg_index, pnr, origin, destination, airline, flight_number,
				flight_day, compartment, seat, check_in_seq, pax_status, ff_airline, ff_number)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		`, id, i, l.PNR, l.From, l.To, l.Airline, l.FlightNumber, l.FlightDay, l.Compartment, l.Seat,
			l.CheckInSequence, string(l.PaxStatus), l.FrequentFlyerAirline, l.FrequentFlyerNumber)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return 0, fmt.Errorf("insert legs: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return id, nil
}

// StoredPass is a pass read back from PostgreSQL.
type StoredPass struct {
	ID        int64
	RawData   string
	ScanID    int64
	Source    string
	FirstSeen time.Time
	LastSeen  time.Time
	ScanCount int
	Record    *bcbp.Record
}

const storedPassColumns = `p.id, p.raw_data, COALESCE(p.scan_id, 0), COALESCE(p.source, ''),
	p.first_seen, p.last_seen, p.scan_count, p.record`

func scanStoredPass(row pgx.Row) (*StoredPass, error) {
	var sp StoredPass
	var recordJSON []byte
	if err := row.Scan(&sp.ID, &sp.RawData, &sp.ScanID, &sp.Source,
		&sp.FirstSeen, &sp.LastSeen, &sp.ScanCount, &recordJSON); err != nil {
		return nil, err
	}
	sp.Record = &bcbp.Record{}
	if err := json.Unmarshal(recordJSON, sp.Record); err != nil {
		return nil, fmt.Errorf("unmarshal record %d: %w", sp.ID, err)
	}
	return &sp, nil
}

// GetPass retrieves a pass by ID. It returns nil when absent.
func (d *PostgresDB) GetPass(ctx context.Context, id int64) (*StoredPass, error) {
	row := d.pool.QueryRow(ctx, `SELECT `+storedPassColumns+` FROM passes p WHERE p.id = $1`, id)
	sp, err := scanStoredPass(row)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return sp, nil
}

// GetPassesByPNR returns every pass with a leg booked under pnr, most
// recently seen first.
func (d *PostgresDB) GetPassesByPNR(ctx context.Context, pnr string) ([]StoredPass, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT `+storedPassColumns+`
		FROM passes p
		WHERE EXISTS (SELECT 1 FROM pass_legs l WHERE l.pass_id = p.id AND l.pnr = $1)
		ORDER BY p.last_seen DESC
	`, strings.ToUpper(strings.TrimSpace(pnr)))
	if err != nil {
		return nil, fmt.Errorf("query passes: %w", err)
	}
	defer rows.Close()

	var passes []StoredPass
	for rows.Next() {
		sp, err := scanStoredPass(rows)
		if err != nil {
			return nil, err
		}
		passes = append(passes, *sp)
	}
	return passes, rows.Err()
}

// FlightLoad counts boarded passengers per compartment for one flight.
type FlightLoad struct {
	Airline      string
	FlightNumber string
	FlightDay    int
	Compartments map[string]int
}

// GetFlightLoad aggregates stored legs for a flight.
func (d *PostgresDB) GetFlightLoad(ctx context.Context, airline, flightNumber string, flightDay int) (*FlightLoad, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT COALESCE(compartment, ''), COUNT(*)
		FROM pass_legs
		WHERE airline = $1 AND flight_number = $2 AND flight_day = $3
		GROUP BY compartment
	`, airline, flightNumber, flightDay)
	if err != nil {
		return nil, fmt.Errorf("query flight load: %w", err)
	}
	defer rows.Close()

	load := &FlightLoad{
		Airline:      airline,
		FlightNumber: flightNumber,
		FlightDay:    flightDay,
		Compartments: make(map[string]int),
	}
	for rows.Next() {
		var compartment string
		var count int
		if err := rows.Scan(&compartment, &count); err != nil {
			return nil, err
		}
		load.Compartments[compartment] = count
	}
	return load, rows.Err()
}
