package news

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ingestly/ingestly/internal/logging"
	"github.com/ingestly/ingestly/internal/pipeline"
)

// fakeNewsAPI answers top-headlines per category from a fixed table.
type fakeNewsAPI struct {
	mu        sync.Mutex
	byCat     map[string][]HeadlineArticle
	failCat   map[string]int
	errorBody map[string]string
	requests  []string
	apiKeys   []string
}

func (f *fakeNewsAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	q := r.URL.Query()
	cat := q.Get("category")
	f.requests = append(f.requests, r.URL.Path+"?country="+q.Get("country")+"&category="+cat+"&pageSize="+q.Get("pageSize"))
	f.apiKeys = append(f.apiKeys, r.Header.Get("X-Api-Key"))

	w.Header().Set("Content-Type", "application/json")
	if code, ok := f.failCat[cat]; ok {
		w.WriteHeader(code)
		_, _ = w.Write([]byte(`{"status":"error","code":"apiKeyInvalid","message":"Your API key is invalid."}`))
		return
	}
	if body, ok := f.errorBody[cat]; ok {
		_, _ = w.Write([]byte(body))
		return
	}

	size, _ := strconv.Atoi(q.Get("pageSize"))
	articles := f.byCat[cat]
	if size > 0 && len(articles) > size {
		articles = articles[:size]
	}
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":       "ok",
		"totalResults": len(articles),
		"articles":     articles,
	})
}

func headline(title, url string) HeadlineArticle {
	return HeadlineArticle{
		Source:      ArticleSource{ID: "the-hindu", Name: "The Hindu"},
		Title:       title,
		Description: title + " description",
		URL:         url,
		PublishedAt: "2024-03-01T06:00:00Z",
	}
}

func newHeadlinesServer(t *testing.T, f *fakeNewsAPI) *HeadlinesClient {
	t.Helper()
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	return NewHeadlinesClient(srv.URL, "test-key", "in", 0, logging.Discard())
}

func TestTopHeadlines(t *testing.T) {
	f := &fakeNewsAPI{byCat: map[string][]HeadlineArticle{
		"general": {headline("a", "https://x/a"), headline("b", "https://x/b"), headline("c", "https://x/c")},
	}}
	c := newHeadlinesServer(t, f)

	got, err := c.TopHeadlines(context.Background(), "general", 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].Title)
	assert.Equal(t, "The Hindu", got[0].Source.Name)
	assert.Equal(t, []string{"/top-headlines?country=in&category=general&pageSize=2"}, f.requests)
	assert.Equal(t, []string{"test-key"}, f.apiKeys)
}

func TestTopHeadlines_NonOKStatusCarriesMessage(t *testing.T) {
	f := &fakeNewsAPI{errorBody: map[string]string{
		"general": `{"status":"error","code":"rateLimited","message":"You have made too many requests."}`,
	}}
	c := newHeadlinesServer(t, f)

	_, err := c.TopHeadlines(context.Background(), "general", 2)
	require.Error(t, err)

	var ue *pipeline.UpstreamError
	require.True(t, errors.As(err, &ue))
	assert.Equal(t, NewsAPIProvider, ue.Provider)
	assert.Contains(t, err.Error(), "You have made too many requests.")
}

func TestTopHeadlines_HTTPErrorCarriesStatusAndMessage(t *testing.T) {
	f := &fakeNewsAPI{failCat: map[string]int{"general": http.StatusUnauthorized}}
	c := newHeadlinesServer(t, f)

	_, err := c.TopHeadlines(context.Background(), "general", 2)
	require.Error(t, err)

	var ue *pipeline.UpstreamError
	require.True(t, errors.As(err, &ue))
	assert.Equal(t, http.StatusUnauthorized, ue.StatusCode)
	assert.Contains(t, err.Error(), "Your API key is invalid.")
}

func TestHeadlines_ConcatenatesQuotasInOrder(t *testing.T) {
	f := &fakeNewsAPI{byCat: map[string][]HeadlineArticle{
		"general": {headline("g1", "https://x/g1"), headline("g2", "https://x/g2"), headline("g3", "https://x/g3")},
		"sports":  {headline("s1", "https://x/s1"), headline("s2", "https://x/s2")},
	}}
	c := newHeadlinesServer(t, f)

	items, err := c.Headlines(context.Background(), DefaultQuotas)
	require.NoError(t, err)
	require.Len(t, items, 3)

	var titles []string
	for _, it := range items {
		titles = append(titles, it.(HeadlineArticle).Title)
	}
	assert.Equal(t, []string{"g1", "g2", "s1"}, titles)
}

func TestHeadlines_OneQuotaFailing(t *testing.T) {
	f := &fakeNewsAPI{
		byCat:   map[string][]HeadlineArticle{"sports": {headline("s1", "https://x/s1")}},
		failCat: map[string]int{"general": http.StatusInternalServerError},
	}
	c := newHeadlinesServer(t, f)

	items, err := c.Headlines(context.Background(), DefaultQuotas)
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestHeadlines_AllQuotasFailing(t *testing.T) {
	f := &fakeNewsAPI{failCat: map[string]int{
		"general": http.StatusTooManyRequests,
		"sports":  http.StatusTooManyRequests,
	}}
	c := newHeadlinesServer(t, f)

	_, err := c.Headlines(context.Background(), DefaultQuotas)
	require.Error(t, err)

	var ue *pipeline.UpstreamError
	require.True(t, errors.As(err, &ue))
	assert.Equal(t, http.StatusTooManyRequests, ue.StatusCode)
}

func TestHeadlines_EmptyIsNotAnError(t *testing.T) {
	c := newHeadlinesServer(t, &fakeNewsAPI{})

	items, err := c.Headlines(context.Background(), DefaultQuotas)
	require.NoError(t, err)
	assert.Empty(t, items)
}
