package sink

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ingestly/ingestly/internal/httpclient"
	"github.com/ingestly/ingestly/internal/pipeline"
)

func TestSupabase_Insert(t *testing.T) {
	var (
		gotPath   string
		gotKey    string
		gotAuth   string
		gotPrefer string
		gotBody   map[string]any
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("apikey")
		gotAuth = r.Header.Get("Authorization")
		gotPrefer = r.Header.Get("Prefer")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	s, err := NewSupabase(srv.URL, "service-key", time.Second)
	require.NoError(t, err)

	err = s.Insert(context.Background(), "news_daily", pipeline.Row{
		"source": "indian_news_pipeline",
		"status": true,
		"data":   map[string]any{"article_count": 3},
	})
	require.NoError(t, err)

	assert.Equal(t, "/rest/v1/news_daily", gotPath)
	assert.Equal(t, "service-key", gotKey)
	assert.Equal(t, "Bearer service-key", gotAuth)
	assert.Equal(t, "return=minimal", gotPrefer)
	assert.Equal(t, "indian_news_pipeline", gotBody["source"])
	assert.Equal(t, true, gotBody["status"])
	assert.Equal(t, float64(3), gotBody["data"].(map[string]any)["article_count"])
}

func TestSupabase_Rejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte(`{"code":"23505","message":"duplicate key value"}`))
	}))
	defer srv.Close()

	s, err := NewSupabase(srv.URL, "k", 0)
	require.NoError(t, err)

	err = s.Insert(context.Background(), "emails", pipeline.Row{"id": "m1"})
	var apiErr *httpclient.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusConflict, apiErr.StatusCode)
	assert.Contains(t, apiErr.Body, "duplicate key")
}

func TestNewSupabase_Validation(t *testing.T) {
	_, err := NewSupabase("", "k", 0)
	assert.Error(t, err)

	_, err = NewSupabase("https://x.supabase.co", "", 0)
	assert.Error(t, err)

	_, err = NewSupabase("not a url", "k", 0)
	assert.Error(t, err)
}
