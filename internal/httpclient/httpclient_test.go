package httpclient

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func TestGetJSON_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","totalResults":2}`))
	}))
	defer srv.Close()

	c := New(srv.URL)
	var dest struct {
		Status       string `json:"status"`
		TotalResults int    `json:"totalResults"`
	}
	if err := c.GetJSON(context.Background(), "/v2/top-headlines", nil, &dest); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dest.Status != "ok" || dest.TotalResults != 2 {
		t.Fatalf("unexpected result: %+v", dest)
	}
}

func TestGetJSON_QueryParams(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := New(srv.URL + "/")
	q := url.Values{}
	q.Set("country", "in")
	q.Set("category", "business")
	if err := c.GetJSON(context.Background(), "/v2/top-headlines", q, &struct{}{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// url.Values.Encode sorts keys alphabetically
	if gotQuery != "category=business&country=in" {
		t.Fatalf("unexpected query: %q", gotQuery)
	}
}

func TestGetJSON_APIErrorNoRetry(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(strings.Repeat("x", 1000)))
	}))
	defer srv.Close()

	err := New(srv.URL).GetJSON(context.Background(), "/", nil, &struct{}{})

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %T: %v", err, err)
	}
	if apiErr.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", apiErr.StatusCode)
	}
	if len(apiErr.Body) != 512 {
		t.Fatalf("expected body truncated to 512, got %d", len(apiErr.Body))
	}
	if calls.Load() != 1 {
		t.Fatalf("expected exactly 1 call, got %d", calls.Load())
	}
}

func TestGetJSON_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	c := New(srv.URL, WithTimeout(50*time.Millisecond))
	err := c.GetJSON(context.Background(), "/", nil, &struct{}{})
	if err == nil {
		t.Fatal("expected timeout error")
	}
}

func TestGetJSON_ContextDeadline(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := New(srv.URL).GetJSON(ctx, "/", nil, &struct{}{})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected context.DeadlineExceeded, got %v", err)
	}
}

func TestPostJSON_HeadersAndBody(t *testing.T) {
	var gotAuth, gotKey, gotPrefer, gotType, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotKey = r.Header.Get("apikey")
		gotPrefer = r.Header.Get("Prefer")
		gotType = r.Header.Get("Content-Type")
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	c := New(srv.URL, WithBearerToken("secret"), WithHeader("apikey", "secret"))
	extra := http.Header{}
	extra.Set("Prefer", "return=minimal")

	if err := c.PostJSON(context.Background(), "/rest/v1/emails", map[string]any{"id": "m1"}, extra); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotAuth != "Bearer secret" || gotKey != "secret" {
		t.Fatalf("unexpected auth headers: %q %q", gotAuth, gotKey)
	}
	if gotPrefer != "return=minimal" {
		t.Fatalf("unexpected Prefer header: %q", gotPrefer)
	}
	if gotType != "application/json" {
		t.Fatalf("unexpected content type: %q", gotType)
	}
	if gotBody != `{"id":"m1"}` {
		t.Fatalf("unexpected body: %q", gotBody)
	}
}

func TestPostJSON_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"message":"Invalid API key"}`))
	}))
	defer srv.Close()

	err := New(srv.URL).PostJSON(context.Background(), "/rest/v1/emails", map[string]any{}, nil)

	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 *APIError, got %v", err)
	}
	if !strings.Contains(apiErr.Error(), "Invalid API key") {
		t.Fatalf("expected body in error, got %q", apiErr.Error())
	}
}
