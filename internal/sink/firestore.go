package sink

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"

	"github.com/ingestly/ingestly/internal/pipeline"
)

// Firestore adds one document per insert to the collection named by table.
type Firestore struct {
	client  *firestore.Client
	timeout time.Duration
}

// NewFirestore creates a client for projectID. FIRESTORE_EMULATOR_HOST is
// honored by the client library.
func NewFirestore(ctx context.Context, projectID string) (*Firestore, error) {
	if projectID == "" {
		return nil, errors.New("firestore sink requires FIRESTORE_PROJECT_ID")
	}
	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("create firestore client: %w", err)
	}
	return &Firestore{client: client}, nil
}

// Insert adds row as a new document with a generated ID.
func (f *Firestore) Insert(ctx context.Context, table string, row pipeline.Row) error {
	ctx, cancel := insertContext(ctx, f.timeout)
	defer cancel()
	_, _, err := f.client.Collection(table).Add(ctx, map[string]any(row))
	return err
}

// Close closes the client.
func (f *Firestore) Close() error {
	return f.client.Close()
}
