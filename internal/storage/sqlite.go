// Package storage provides persistent storage for decoded boarding passes.
package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"bcbp_parser/internal/bcbp"
)

// Pass is one archived scan with its decoded boarding pass, or the reason
// it failed to decode.
type Pass struct {
	ID           int64
	ScanID       int64
	Timestamp    time.Time
	Source       string
	PNR          string
	Airline      string
	Origin       string
	Destination  string
	FlightNumber string
	LastName     string
	FirstName    string
	Legs         int
	RawText      string
	ParsedJSON   string
	ErrorKind    string
	ErrorField   string
	ErrorOffset  int
}

// Record unmarshals the stored pass. It returns nil for failed decodes.
func (p *Pass) Record() (*bcbp.Record, error) {
	if p.ParsedJSON == "" || p.ParsedJSON == "null" {
		return nil, nil
	}
	var r bcbp.Record
	if err := json.Unmarshal([]byte(p.ParsedJSON), &r); err != nil {
		return nil, fmt.Errorf("unmarshal pass %d: %w", p.ID, err)
	}
	return &r, nil
}

// SQLiteDB wraps a SQLite database connection for the local pass archive.
type SQLiteDB struct {
	db *sql.DB
}

// OpenSQLite opens or creates a SQLite database at the given path.
func OpenSQLite(path string) (*SQLiteDB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Enable WAL mode for better concurrent access.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}

	// Create schema.
	if err := createSQLiteSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &SQLiteDB{db: db}, nil
}

// Close closes the database connection.
func (d *SQLiteDB) Close() error {
	return d.db.Close()
}

// createSQLiteSchema creates the database tables and indices.
func createSQLiteSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS passes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		scan_id INTEGER,
		timestamp TEXT NOT NULL,
		source TEXT,
		pnr TEXT,
		airline TEXT,
		origin TEXT,
		destination TEXT,
		flight_number TEXT,
		last_name TEXT,
		first_name TEXT,
		legs INTEGER NOT NULL DEFAULT 0,
		raw_text TEXT NOT NULL,
		parsed_json TEXT,
		error_kind TEXT,
		error_field TEXT,
		created_at TEXT DEFAULT (datetime('now'))
	);

	CREATE INDEX IF NOT EXISTS idx_passes_pnr ON passes(pnr);
	CREATE INDEX IF NOT EXISTS idx_passes_airline ON passes(airline);
	CREATE INDEX IF NOT EXISTS idx_passes_error_kind ON passes(error_kind);
	CREATE INDEX IF NOT EXISTS idx_passes_timestamp ON passes(timestamp);

	-- FTS5 virtual table for full-text search on raw payloads and names.
	CREATE VIRTUAL TABLE IF NOT EXISTS passes_fts USING fts5(
		raw_text,
		last_name,
		content='passes',
		content_rowid='id'
	);

	-- Triggers to keep FTS index in sync.
	CREATE TRIGGER IF NOT EXISTS passes_ai AFTER INSERT ON passes BEGIN
		INSERT INTO passes_fts(rowid, raw_text, last_name) VALUES (new.id, new.raw_text, new.last_name);
	END;

	CREATE TRIGGER IF NOT EXISTS passes_ad AFTER DELETE ON passes BEGIN
		INSERT INTO passes_fts(passes_fts, rowid, raw_text, last_name) VALUES('delete', old.id, old.raw_text, old.last_name);
	END;

	CREATE TRIGGER IF NOT EXISTS passes_au AFTER UPDATE ON passes BEGIN
		INSERT INTO passes_fts(passes_fts, rowid, raw_text, last_name) VALUES('delete', old.id, old.raw_text, old.last_name);
		INSERT INTO passes_fts(rowid, raw_text, last_name) VALUES (new.id, new.raw_text, new.last_name);
	END;
	`

	_, err := db.Exec(schema)
	if err != nil {
		return err
	}

	// Run migrations for existing databases.
	return migrateSQLiteSchema(db)
}

// migrateSQLiteSchema adds columns introduced after the first release.
func migrateSQLiteSchema(db *sql.DB) error {
	var count int
	err := db.QueryRow(`SELECT COUNT(*) FROM pragma_table_info('passes') WHERE name='error_offset'`).Scan(&count)
	if err != nil {
		return err
	}

	if count == 0 {
		if _, err := db.Exec(`ALTER TABLE passes ADD COLUMN error_offset INTEGER DEFAULT 0`); err != nil {
			// Ignore "duplicate column" errors for idempotency.
			if !strings.Contains(err.Error(), "duplicate column") {
				return err
			}
		}
	}

	return nil
}

// InsertParams contains the parameters for archiving a scan.
type InsertParams struct {
	ScanID      int64
	Timestamp   string
	Source      string
	RawText     string
	Pass        *bcbp.Record // nil when decoding failed
	ErrorKind   string
	ErrorField  string
	ErrorOffset int
}

// Insert stores a scan in the database. Leg columns come from the first leg.
func (d *SQLiteDB) Insert(p InsertParams) (int64, error) {
	if p.Timestamp == "" {
		p.Timestamp = time.Now().UTC().Format(time.RFC3339)
	}

	var parsedJSON sql.NullString
	var pnr, airline, origin, destination, flight, last, first string
	legs := 0
	if p.Pass != nil {
		b, err := json.Marshal(p.Pass)
		if err != nil {
			return 0, fmt.Errorf("marshal pass: %w", err)
		}
		parsedJSON = sql.NullString{String: string(b), Valid: true}
		last, first = p.Pass.LastName, p.Pass.FirstName
		legs = len(p.Pass.Legs)
		if legs > 0 {
			l := p.Pass.Legs[0]
			pnr, airline, origin, destination, flight = l.PNR, l.Airline, l.From, l.To, l.FlightNumber
		}
	}

	result, err := d.db.Exec(`
		INSERT INTO passes (scan_id, timestamp, source, pnr, airline, origin, destination, flight_number,
			last_name, first_name, legs, raw_text, parsed_json, error_kind, error_field, error_offset)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, p.ScanID, p.Timestamp, p.Source, pnr, airline, origin, destination, flight,
		last, first, legs, p.RawText, parsedJSON, p.ErrorKind, p.ErrorField, p.ErrorOffset)
	if err != nil {
		return 0, fmt.Errorf("insert pass: %w", err)
	}

	return result.LastInsertId()
}

// QueryParams contains filtering options for querying passes.
type QueryParams struct {
	ID          int64  // Filter by specific row ID.
	PNR         string // Filter by PNR (exact match).
	Airline     string // Filter by operating airline (exact match).
	Origin      string // Filter by origin airport.
	Destination string // Filter by destination airport.
	ErrorKind   string // Filter by decode error kind.
	HasError    bool   // Only show scans that failed to decode.
	FullText    string // FTS5 full-text search on raw_text and last_name.
	Limit       int    // Max results (default 100).
	Offset      int    // Pagination offset.
	OrderBy     string // Sort field (timestamp, pnr, airline, last_name).
	OrderDesc   bool   // Sort descending.
}

var passColumnList = []string{
	"id", "scan_id", "timestamp", "source", "pnr", "airline", "origin", "destination", "flight_number",
	"last_name", "first_name", "legs", "raw_text", "parsed_json", "error_kind", "error_field", "error_offset",
}

var passColumns = strings.Join(passColumnList, ", ")

// Query retrieves passes matching the given parameters.
func (d *SQLiteDB) Query(p QueryParams) ([]Pass, error) {
	var conditions []string
	var args []interface{}

	if p.ID != 0 {
		conditions = append(conditions, "p.id = ?")
		args = append(args, p.ID)
	}
	if p.PNR != "" {
		conditions = append(conditions, "p.pnr = ?")
		args = append(args, strings.ToUpper(p.PNR))
	}
	if p.Airline != "" {
		conditions = append(conditions, "p.airline = ?")
		args = append(args, strings.ToUpper(p.Airline))
	}
	if p.Origin != "" {
		conditions = append(conditions, "p.origin = ?")
		args = append(args, strings.ToUpper(p.Origin))
	}
	if p.Destination != "" {
		conditions = append(conditions, "p.destination = ?")
		args = append(args, strings.ToUpper(p.Destination))
	}
	if p.ErrorKind != "" {
		conditions = append(conditions, "p.error_kind = ?")
		args = append(args, p.ErrorKind)
	}
	if p.HasError {
		conditions = append(conditions, "p.error_kind != '' AND p.error_kind IS NOT NULL")
	}

	// Handle FTS5 search - requires a JOIN with the FTS table.
	var query string
	cols := "p." + strings.Join(passColumnList, ", p.")
	if p.FullText != "" {
		query = `SELECT ` + cols + `
				FROM passes p
				JOIN passes_fts fts ON p.id = fts.rowid
				WHERE passes_fts MATCH ?`
		args = append([]interface{}{p.FullText}, args...)
		if len(conditions) > 0 {
			query += " AND " + strings.Join(conditions, " AND ")
		}
	} else {
		query = `SELECT ` + cols + ` FROM passes p`
		if len(conditions) > 0 {
			query += " WHERE " + strings.Join(conditions, " AND ")
		}
	}

	// Order by.
	orderField := "id"
	switch p.OrderBy {
	case "timestamp", "pnr", "airline", "last_name":
		orderField = p.OrderBy
	}
	direction := "ASC"
	if p.OrderDesc {
		direction = "DESC"
	}
	query += fmt.Sprintf(" ORDER BY p.%s %s", orderField, direction)

	// Limit and offset.
	limit := 100
	if p.Limit > 0 {
		limit = p.Limit
	}
	query += fmt.Sprintf(" LIMIT %d OFFSET %d", limit, p.Offset)

	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query passes: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var passes []Pass
	for rows.Next() {
		pass, err := scanPass(rows)
		if err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		passes = append(passes, *pass)
	}

	return passes, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPass(row rowScanner) (*Pass, error) {
	var p Pass
	var scanID, errOffset sql.NullInt64
	var ts, source, pnr, airline, origin, destination, flight, last, first sql.NullString
	var parsed, errKind, errField sql.NullString

	err := row.Scan(&p.ID, &scanID, &ts, &source, &pnr, &airline, &origin, &destination, &flight,
		&last, &first, &p.Legs, &p.RawText, &parsed, &errKind, &errField, &errOffset)
	if err != nil {
		return nil, err
	}

	if ts.Valid {
		p.Timestamp, _ = time.Parse(time.RFC3339, ts.String)
	}
	p.ScanID = scanID.Int64
	p.Source = source.String
	p.PNR = pnr.String
	p.Airline = airline.String
	p.Origin = origin.String
	p.Destination = destination.String
	p.FlightNumber = flight.String
	p.LastName = last.String
	p.FirstName = first.String
	p.ParsedJSON = parsed.String
	p.ErrorKind = errKind.String
	p.ErrorField = errField.String
	p.ErrorOffset = int(errOffset.Int64)
	return &p, nil
}

// GetByID retrieves a single pass by row ID. It returns nil when absent.
func (d *SQLiteDB) GetByID(id int64) (*Pass, error) {
	row := d.db.QueryRow(`SELECT `+passColumns+` FROM passes WHERE id = ?`, id)
	p, err := scanPass(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Stats returns aggregate statistics about stored passes.
type Stats struct {
	TotalScans  int
	Decoded     int
	Failed      int
	ByAirline   map[string]int
	ByErrorKind map[string]int
}

// GetStats returns statistics about the stored passes.
func (d *SQLiteDB) GetStats() (*Stats, error) {
	stats := &Stats{
		ByAirline:   make(map[string]int),
		ByErrorKind: make(map[string]int),
	}

	row := d.db.QueryRow("SELECT COUNT(*) FROM passes")
	if err := row.Scan(&stats.TotalScans); err != nil {
		return nil, err
	}

	row = d.db.QueryRow("SELECT COUNT(*) FROM passes WHERE error_kind != '' AND error_kind IS NOT NULL")
	if err := row.Scan(&stats.Failed); err != nil {
		return nil, err
	}
	stats.Decoded = stats.TotalScans - stats.Failed

	if err := d.groupCount(stats.ByAirline, "airline", 20); err != nil {
		return nil, err
	}
	if err := d.groupCount(stats.ByErrorKind, "error_kind", 0); err != nil {
		return nil, err
	}

	return stats, nil
}

// groupCount fills into with row counts per non-empty value of column.
func (d *SQLiteDB) groupCount(into map[string]int, column string, limit int) error {
	query := fmt.Sprintf("SELECT %s, COUNT(*) FROM passes WHERE %s != '' AND %s IS NOT NULL GROUP BY %s ORDER BY COUNT(*) DESC",
		column, column, column, column)
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}
	rows, err := d.db.Query(query)
	if err != nil {
		return err
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var key string
		var count int
		if err := rows.Scan(&key, &count); err != nil {
			return err
		}
		into[key] = count
	}
	return rows.Err()
}

// Distinct returns distinct values for a given column.
func (d *SQLiteDB) Distinct(column string) ([]string, error) {
	// Validate column name to prevent SQL injection.
	validColumns := map[string]bool{
		"pnr":         true,
		"airline":     true,
		"origin":      true,
		"destination": true,
		"error_kind":  true,
		"source":      true,
	}
	if !validColumns[column] {
		return nil, fmt.Errorf("invalid column: %s", column)
	}

	query := fmt.Sprintf("SELECT DISTINCT %s FROM passes WHERE %s IS NOT NULL AND %s != '' ORDER BY %s", column, column, column, column)
	rows, err := d.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var values []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, rows.Err()
}
