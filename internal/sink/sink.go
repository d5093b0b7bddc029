package sink

import (
	"context"
	"fmt"
	"time"

	"github.com/ingestly/ingestly/internal/pipeline"
)

// Backend names accepted by Open.
const (
	BackendSupabase  = "supabase"
	BackendPostgres  = "postgres"
	BackendSQLite    = "sqlite"
	BackendFirestore = "firestore"
	BackendMemory    = "memory"
)

// Sink is a pipeline.Sink that holds resources.
type Sink interface {
	pipeline.Sink
	Close() error
}

// Settings selects and configures a backend.
type Settings struct {
	Backend string

	SupabaseURL string
	SupabaseKey string

	DatabaseURL string
	SQLitePath  string

	FirestoreProject string

	// Timeout bounds each insert.
	Timeout time.Duration
}

// Open creates the backend named by s.Backend.
func Open(ctx context.Context, s Settings) (Sink, error) {
	switch s.Backend {
	case BackendSupabase, "":
		return NewSupabase(s.SupabaseURL, s.SupabaseKey, s.Timeout)
	case BackendPostgres:
		p, err := NewPostgres(ctx, s.DatabaseURL)
		if err != nil {
			return nil, err
		}
		p.timeout = s.Timeout
		return p, nil
	case BackendSQLite:
		db, err := NewSQLite(ctx, s.SQLitePath)
		if err != nil {
			return nil, err
		}
		db.timeout = s.Timeout
		return db, nil
	case BackendFirestore:
		f, err := NewFirestore(ctx, s.FirestoreProject)
		if err != nil {
			return nil, err
		}
		f.timeout = s.Timeout
		return f, nil
	case BackendMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown sink backend %q", s.Backend)
	}
}

// insertContext bounds one insert by d. A zero d leaves ctx unbounded.
func insertContext(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
