package sink

import (
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/ingestly/ingestly/internal/pipeline"
)

// Memory keeps inserted rows in process.
type Memory struct {
	mu    sync.Mutex
	rows  map[string][]pipeline.Row
	calls int

	// FailOn, when set, is consulted before each insert; a non-nil error
	// rejects the row.
	FailOn func(table string, row pipeline.Row) error
}

// NewMemory creates an empty Memory sink.
func NewMemory() *Memory {
	return &Memory{rows: make(map[string][]pipeline.Row)}
}

// Insert appends a copy of row to table.
func (m *Memory) Insert(ctx context.Context, table string, row pipeline.Row) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	if m.FailOn != nil {
		if err := m.FailOn(table, row); err != nil {
			return err
		}
	}
	m.rows[table] = append(m.rows[table], maps.Clone(row))
	return nil
}

// Rows returns the rows inserted into table, in insert order.
func (m *Memory) Rows(table string) []pipeline.Row {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.rows[table])
}

// Tables returns the names of tables that received at least one row, sorted.
func (m *Memory) Tables() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Sorted(maps.Keys(m.rows))
}

// Calls returns the number of Insert calls, including rejected ones.
func (m *Memory) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Close is a no-op.
func (m *Memory) Close() error { return nil }
