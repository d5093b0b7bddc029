package news

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ingestly/ingestly/internal/logging"
	"github.com/ingestly/ingestly/internal/pipeline"
)

func rssDoc(title string, items ...string) string {
	var b strings.Builder
	fmt.Fprintf(&b, `<?xml version="1.0" encoding="UTF-8"?><rss version="2.0"><channel><title>%s</title><link>https://example.com</link><description>d</description>`, title)
	for _, it := range items {
		fmt.Fprintf(&b, `<item><title>%s</title><link>https://example.com/%s</link><description>%s summary</description><pubDate>Fri, 01 Mar 2024 06:00:00 +0000</pubDate></item>`, it, it, it)
	}
	b.WriteString(`</channel></rss>`)
	return b.String()
}

// feedServer serves one RSS document per path; unknown paths are 503.
func feedServer(t *testing.T, docs map[string]string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		doc, ok := docs[r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(doc))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func entryTitles(items []Item) []string {
	var out []string
	for _, it := range items {
		out = append(out, it.(FeedEntry).Title)
	}
	return out
}

func TestFeedFetcher_TakesPerFeedUntilCap(t *testing.T) {
	srv := feedServer(t, map[string]string{
		"/ndtv":  rssDoc("NDTV", "n1", "n2", "n3"),
		"/toi":   rssDoc("Times of India", "t1", "t2"),
		"/hindu": rssDoc("The Hindu", "h1"),
	})
	f := NewFeedFetcher([]string{srv.URL + "/ndtv", srv.URL + "/toi", srv.URL + "/hindu"}, time.Second, logging.Discard())

	items, err := f.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"n1", "n2", "t1"}, entryTitles(items))

	first := items[0].(FeedEntry)
	assert.Equal(t, "NDTV", first.FeedTitle)
	assert.Equal(t, "https://example.com/n1", first.Link)
	assert.Equal(t, "n1 summary", first.Summary)
	assert.NotEmpty(t, first.Published)
}

func TestFeedFetcher_SkipsFailingFeed(t *testing.T) {
	srv := feedServer(t, map[string]string{
		"/toi":   rssDoc("Times of India", "t1", "t2"),
		"/hindu": rssDoc("The Hindu", "h1", "h2"),
	})
	f := NewFeedFetcher([]string{srv.URL + "/down", srv.URL + "/toi", srv.URL + "/hindu"}, time.Second, logging.Discard())

	items, err := f.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"t1", "t2", "h1"}, entryTitles(items))
}

func TestFeedFetcher_AllFeedsFailing(t *testing.T) {
	srv := feedServer(t, nil)
	f := NewFeedFetcher([]string{srv.URL + "/a", srv.URL + "/b"}, time.Second, logging.Discard())

	_, err := f.Fetch(context.Background())
	require.Error(t, err)

	var ue *pipeline.UpstreamError
	require.True(t, errors.As(err, &ue))
	assert.Equal(t, FeedsProvider, ue.Provider)
	assert.Equal(t, http.StatusServiceUnavailable, ue.StatusCode)
}

func TestFeedFetcher_EmptyFeedsAreNotAnError(t *testing.T) {
	srv := feedServer(t, map[string]string{"/empty": rssDoc("Empty")})
	f := NewFeedFetcher([]string{srv.URL + "/empty"}, time.Second, logging.Discard())

	items, err := f.Fetch(context.Background())
	require.NoError(t, err)
	assert.Empty(t, items)
}
