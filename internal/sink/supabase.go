package sink

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/ingestly/ingestly/internal/httpclient"
	"github.com/ingestly/ingestly/internal/pipeline"
)

// Supabase inserts rows through the PostgREST endpoint of a Supabase project.
type Supabase struct {
	client *httpclient.Client
}

// NewSupabase creates a Supabase sink for projectURL authenticated with key.
func NewSupabase(projectURL, key string, timeout time.Duration) (*Supabase, error) {
	if projectURL == "" || key == "" {
		return nil, errors.New("supabase sink requires a project URL and key")
	}
	if _, err := url.ParseRequestURI(projectURL); err != nil {
		return nil, err
	}

	opts := []httpclient.Option{
		httpclient.WithHeader("apikey", key),
		httpclient.WithBearerToken(key),
	}
	if timeout > 0 {
		opts = append(opts, httpclient.WithTimeout(timeout))
	}
	return &Supabase{client: httpclient.New(projectURL, opts...)}, nil
}

// Insert posts row to /rest/v1/{table}.
func (s *Supabase) Insert(ctx context.Context, table string, row pipeline.Row) error {
	extra := http.Header{}
	extra.Set("Prefer", "return=minimal")
	return s.client.PostJSON(ctx, "/rest/v1/"+url.PathEscape(table), row, extra)
}

// Close is a no-op.
func (s *Supabase) Close() error { return nil }
