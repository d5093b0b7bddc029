package sink

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/ingestly/ingestly/internal/pipeline"
)

const sqliteSchema = `CREATE TABLE IF NOT EXISTS ingested_rows (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	tbl         TEXT NOT NULL,
	data        TEXT NOT NULL,
	inserted_at TEXT NOT NULL
)`

// SQLite journals every insert as a JSON document in a local database file.
type SQLite struct {
	db      *sql.DB
	path    string
	timeout time.Duration
}

// NewSQLite opens (creating if needed) the journal at path.
func NewSQLite(ctx context.Context, path string) (*SQLite, error) {
	if path == "" {
		return nil, errors.New("sqlite sink requires SQLITE_PATH")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("creating sqlite directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating journal table: %w", err)
	}
	return &SQLite{db: db, path: path}, nil
}

// Insert appends row to the journal under table.
func (s *SQLite) Insert(ctx context.Context, table string, row pipeline.Row) error {
	data, err := json.Marshal(row)
	if err != nil {
		return fmt.Errorf("encoding row: %w", err)
	}
	ctx, cancel := insertContext(ctx, s.timeout)
	defer cancel()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO ingested_rows (tbl, data, inserted_at) VALUES (?, ?, ?)`,
		table, string(data), pipeline.FormatTimestamp(time.Now()))
	return err
}

// Rows reads back the rows journaled under table, in insert order.
func (s *SQLite) Rows(ctx context.Context, table string) ([]pipeline.Row, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT data FROM ingested_rows WHERE tbl = ? ORDER BY id`, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []pipeline.Row
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var row pipeline.Row
		if err := json.Unmarshal([]byte(data), &row); err != nil {
			return nil, fmt.Errorf("decoding row: %w", err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// Path returns the database file path.
func (s *SQLite) Path() string {
	return s.path
}

// Close closes the database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}
