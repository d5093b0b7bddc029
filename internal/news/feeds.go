package news

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/ingestly/ingestly/internal/logging"
	"github.com/ingestly/ingestly/internal/pipeline"
)

// FeedsProvider identifies the syndication feed fallback.
const FeedsProvider = "rss_feeds"

// DefaultFeeds are the national top-story feeds read when headlines are
// unavailable.
var DefaultFeeds = []string{
	"https://feeds.feedburner.com/ndtvnews-top-stories",
	"https://timesofindia.indiatimes.com/rssfeedstopstories.cms",
	"https://www.thehindu.com/news/national/feeder/default.rss",
}

const (
	// DefaultPerFeed is how many entries are taken from each feed.
	DefaultPerFeed = 2
	// DefaultFeedCap bounds the combined entry count.
	DefaultFeedCap = 3
)

// FeedFetcher pulls entries from a fixed list of feeds in order.
type FeedFetcher struct {
	URLs    []string
	PerFeed int
	Cap     int

	parser *gofeed.Parser
	logger logging.Logger
}

// NewFeedFetcher creates a fetcher over urls with the default per-feed and
// combined limits.
func NewFeedFetcher(urls []string, timeout time.Duration, logger logging.Logger) *FeedFetcher {
	if logger == nil {
		logger = logging.DefaultLogger()
	}
	p := gofeed.NewParser()
	p.Client = &http.Client{Timeout: timeout}
	return &FeedFetcher{
		URLs:    urls,
		PerFeed: DefaultPerFeed,
		Cap:     DefaultFeedCap,
		parser:  p,
		logger:  logger,
	}
}

// Fetch walks the feeds in order, taking up to PerFeed entries from each
// until Cap entries are collected. A failing feed is logged and skipped;
// Fetch fails only when every feed fails.
func (f *FeedFetcher) Fetch(ctx context.Context) ([]Item, error) {
	var (
		items  []Item
		failed []error
	)
	for _, u := range f.URLs {
		if len(items) >= f.Cap {
			break
		}
		feed, err := f.parser.ParseURLWithContext(u, ctx)
		if err != nil {
			f.logger.Warn("feed parse failed", "feed_url", u, logging.Err(err))
			failed = append(failed, fmt.Errorf("%s: %w", u, err))
			continue
		}
		for i, it := range feed.Items {
			if i >= f.PerFeed || len(items) >= f.Cap {
				break
			}
			items = append(items, entryFrom(feed.Title, it))
		}
	}

	if len(f.URLs) > 0 && len(failed) == len(f.URLs) {
		return nil, pipeline.NewUpstreamError(FeedsProvider, feedStatus(failed[0]), errors.Join(failed...))
	}
	f.logger.Info("fetched feed entries", "count", len(items))
	return items, nil
}

// Descriptor wraps the fetcher as a fallback plan entry.
func (f *FeedFetcher) Descriptor() pipeline.Descriptor[Item] {
	return pipeline.Descriptor[Item]{Name: FeedsProvider, Fetch: f.Fetch}
}

func entryFrom(feedTitle string, it *gofeed.Item) FeedEntry {
	return FeedEntry{
		FeedTitle: feedTitle,
		Title:     it.Title,
		Summary:   it.Description,
		Link:      it.Link,
		Published: it.Published,
	}
}

func feedStatus(err error) int {
	var he gofeed.HTTPError
	if errors.As(err, &he) {
		return he.StatusCode
	}
	return 0
}
