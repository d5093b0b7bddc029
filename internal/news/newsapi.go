package news

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/ingestly/ingestly/internal/httpclient"
	"github.com/ingestly/ingestly/internal/logging"
	"github.com/ingestly/ingestly/internal/pipeline"
)

// NewsAPIProvider identifies NewsAPI in upstream errors and metrics.
const NewsAPIProvider = "newsapi"

// DefaultNewsAPIBaseURL is the public NewsAPI v2 endpoint.
const DefaultNewsAPIBaseURL = "https://newsapi.org/v2"

// CategoryQuota asks for Limit headlines from Category.
type CategoryQuota struct {
	Category string
	Limit    int
}

// DefaultQuotas mirrors the daily digest mix: two general headlines then
// one sports headline.
var DefaultQuotas = []CategoryQuota{
	{Category: "general", Limit: 2},
	{Category: "sports", Limit: 1},
}

type topHeadlinesResponse struct {
	Status       string            `json:"status"`
	Code         string            `json:"code"`
	Message      string            `json:"message"`
	TotalResults int               `json:"totalResults"`
	Articles     []HeadlineArticle `json:"articles"`
}

// HeadlinesClient queries NewsAPI top headlines for one country.
type HeadlinesClient struct {
	http    *httpclient.Client
	country string
	logger  logging.Logger
}

// NewHeadlinesClient creates a client. An empty baseURL selects
// DefaultNewsAPIBaseURL.
func NewHeadlinesClient(baseURL, apiKey, country string, timeout time.Duration, logger logging.Logger) *HeadlinesClient {
	if baseURL == "" {
		baseURL = DefaultNewsAPIBaseURL
	}
	if logger == nil {
		logger = logging.DefaultLogger()
	}
	opts := []httpclient.Option{httpclient.WithHeader("X-Api-Key", apiKey)}
	if timeout > 0 {
		opts = append(opts, httpclient.WithTimeout(timeout))
	}
	return &HeadlinesClient{
		http:    httpclient.New(baseURL, opts...),
		country: country,
		logger:  logger,
	}
}

// TopHeadlines fetches up to limit headlines in category. A response whose
// status is not "ok" is an UpstreamError carrying the provider message.
func (c *HeadlinesClient) TopHeadlines(ctx context.Context, category string, limit int) ([]HeadlineArticle, error) {
	q := url.Values{}
	q.Set("country", c.country)
	q.Set("category", category)
	q.Set("pageSize", strconv.Itoa(limit))

	var resp topHeadlinesResponse
	if err := c.http.GetJSON(ctx, "/top-headlines", q, &resp); err != nil {
		var apiErr *httpclient.APIError
		if errors.As(err, &apiErr) {
			return nil, pipeline.NewUpstreamError(NewsAPIProvider, apiErr.StatusCode, errors.New(providerMessage(apiErr.Body)))
		}
		return nil, pipeline.NewUpstreamError(NewsAPIProvider, 0, err)
	}
	if resp.Status != "ok" {
		msg := resp.Message
		if msg == "" {
			msg = "Unknown error"
		}
		return nil, pipeline.NewUpstreamError(NewsAPIProvider, 0, fmt.Errorf("status %q: %s", resp.Status, msg))
	}
	if len(resp.Articles) > limit {
		resp.Articles = resp.Articles[:limit]
	}
	return resp.Articles, nil
}

// Headlines runs each quota in order and concatenates the results. A quota
// that fails is logged and skipped; the call fails only when every quota
// fails.
func (c *HeadlinesClient) Headlines(ctx context.Context, quotas []CategoryQuota) ([]Item, error) {
	var (
		items []Item
		errs  []error
	)
	for _, quota := range quotas {
		articles, err := c.TopHeadlines(ctx, quota.Category, quota.Limit)
		if err != nil {
			c.logger.Warn("headline category failed", "category", quota.Category, logging.Err(err))
			errs = append(errs, err)
			continue
		}
		c.logger.Info("fetched headlines", "category", quota.Category, "count", len(articles))
		for _, a := range articles {
			items = append(items, a)
		}
	}
	if len(quotas) > 0 && len(errs) == len(quotas) {
		return nil, &pipeline.UpstreamError{Provider: NewsAPIProvider, StatusCode: statusOf(errs[0]), Err: errors.Join(errs...)}
	}
	return items, nil
}

// HeadlinesDescriptor binds the quota mix into a fallback plan entry.
func HeadlinesDescriptor(c *HeadlinesClient, quotas []CategoryQuota) pipeline.Descriptor[Item] {
	return pipeline.Descriptor[Item]{
		Name: NewsAPIProvider,
		Fetch: func(ctx context.Context) ([]Item, error) {
			return c.Headlines(ctx, quotas)
		},
	}
}

func providerMessage(body string) string {
	var resp topHeadlinesResponse
	if err := json.Unmarshal([]byte(body), &resp); err == nil && resp.Message != "" {
		return resp.Message
	}
	return body
}

func statusOf(err error) int {
	var ue *pipeline.UpstreamError
	if errors.As(err, &ue) {
		return ue.StatusCode
	}
	return 0
}
