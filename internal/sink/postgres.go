package sink

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ingestly/ingestly/internal/pipeline"
)

const postgresMaxConns = 4

// Postgres inserts rows directly into a Postgres database. Nested values
// (maps and slices) are sent as JSON text for json/jsonb columns.
type Postgres struct {
	pool    *pgxpool.Pool
	timeout time.Duration
}

// NewPostgres connects to dsn.
func NewPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	if dsn == "" {
		return nil, errors.New("postgres sink requires DATABASE_URL")
	}

	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse DATABASE_URL: %w", err)
	}
	cfg.MaxConns = postgresMaxConns

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

// Insert writes row into table.
func (p *Postgres) Insert(ctx context.Context, table string, row pipeline.Row) error {
	query, args, err := buildInsert(table, row)
	if err != nil {
		return err
	}
	ctx, cancel := insertContext(ctx, p.timeout)
	defer cancel()
	_, err = p.pool.Exec(ctx, query, args...)
	return err
}

// Close releases the pool.
func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}

// buildInsert renders a parameterized INSERT with columns in sorted order.
func buildInsert(table string, row pipeline.Row) (string, []any, error) {
	if len(row) == 0 {
		return "", nil, fmt.Errorf("empty row for table %s", table)
	}

	columns := make([]string, 0, len(row))
	for k := range row {
		columns = append(columns, k)
	}
	slices.Sort(columns)

	quoted := make([]string, len(columns))
	placeholders := make([]string, len(columns))
	args := make([]any, len(columns))
	for i, col := range columns {
		quoted[i] = pgx.Identifier{col}.Sanitize()
		placeholders[i] = fmt.Sprintf("$%d", i+1)

		v, err := columnValue(row[col])
		if err != nil {
			return "", nil, fmt.Errorf("column %s: %w", col, err)
		}
		args[i] = v
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		pgx.Identifier{table}.Sanitize(),
		strings.Join(quoted, ", "),
		strings.Join(placeholders, ", "))
	return query, args, nil
}

func columnValue(v any) (any, error) {
	switch v.(type) {
	case map[string]any, []any, []map[string]any, pipeline.Row:
		b, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		return string(b), nil
	default:
		return v, nil
	}
}
