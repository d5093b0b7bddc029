package gmail

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/time/rate"
	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/ingestly/ingestly/internal/pipeline"
)

// ProviderName identifies Gmail in upstream errors and metrics.
const ProviderName = "gmail"

// maxPageSize is the largest page the messages.list endpoint accepts.
const maxPageSize = 100

// ClientConfig tunes a Client. Zero values select the defaults.
type ClientConfig struct {
	// RequestsPerSecond caps API calls. Zero or less means unlimited.
	RequestsPerSecond float64
	// Timeout bounds each API call.
	Timeout time.Duration
}

// Client wraps the Gmail Users service for read-only mailbox queries.
type Client struct {
	svc     *gmail.UsersService
	user    string
	limiter *rate.Limiter
	timeout time.Duration
}

// NewClient creates a Gmail client over an already authorized HTTP client.
// Extra options are appended after the HTTP client, which lets tests point
// the service at a local endpoint.
func NewClient(ctx context.Context, httpClient *http.Client, cfg ClientConfig, opts ...option.ClientOption) (*Client, error) {
	if httpClient == nil {
		return nil, errors.New("gmail: http client is required")
	}

	all := append([]option.ClientOption{option.WithHTTPClient(httpClient)}, opts...)
	svc, err := gmail.NewService(ctx, all...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gmail service: %w", err)
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}

	return &Client{
		svc:     svc.Users,
		user:    "me",
		limiter: limiter,
		timeout: cfg.Timeout,
	}, nil
}

// ListMessageIDs returns up to maxResults message IDs matching q, newest
// first as Gmail orders them.
func (c *Client) ListMessageIDs(ctx context.Context, q string, maxResults int64) ([]string, error) {
	var ids []string
	pageToken := ""

	for {
		remaining := maxResults - int64(len(ids))
		if remaining <= 0 {
			break
		}
		pageSize := remaining
		if pageSize > maxPageSize {
			pageSize = maxPageSize
		}

		req := c.svc.Messages.List(c.user).Q(q).MaxResults(pageSize)
		if pageToken != "" {
			req = req.PageToken(pageToken)
		}

		var res *gmail.ListMessagesResponse
		err := c.call(ctx, func(ctx context.Context) error {
			var err error
			res, err = req.Context(ctx).Do()
			return err
		})
		if err != nil {
			return nil, err
		}

		for _, m := range res.Messages {
			ids = append(ids, m.Id)
		}

		if res.NextPageToken == "" {
			break
		}
		pageToken = res.NextPageToken
	}

	if int64(len(ids)) > maxResults {
		ids = ids[:maxResults]
	}
	return ids, nil
}

// GetMessage fetches one message in full format, headers and MIME tree
// included.
func (c *Client) GetMessage(ctx context.Context, id string) (*gmail.Message, error) {
	var msg *gmail.Message
	err := c.call(ctx, func(ctx context.Context) error {
		var err error
		msg, err = c.svc.Messages.Get(c.user, id).Format("full").Context(ctx).Do()
		return err
	})
	if err != nil {
		return nil, err
	}
	return msg, nil
}

// SearchMessages lists the messages matching q and fetches each one. Any
// failed fetch fails the whole search.
func (c *Client) SearchMessages(ctx context.Context, q string, maxResults int64) ([]*gmail.Message, error) {
	ids, err := c.ListMessageIDs(ctx, q, maxResults)
	if err != nil {
		return nil, err
	}

	msgs := make([]*gmail.Message, 0, len(ids))
	for _, id := range ids {
		m, err := c.GetMessage(ctx, id)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, nil
}

func (c *Client) call(ctx context.Context, fn func(context.Context) error) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return pipeline.NewUpstreamError(ProviderName, 0, err)
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	if err := fn(ctx); err != nil {
		return upstreamError(err)
	}
	return nil
}

func upstreamError(err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return pipeline.NewUpstreamError(ProviderName, gerr.Code, err)
	}
	return pipeline.NewUpstreamError(ProviderName, 0, err)
}

// QueryFrom builds the search filter selecting mail sent by address.
func QueryFrom(address string) string {
	return "from:" + address
}

// Descriptor binds a sender search into a fallback plan entry.
func Descriptor(c *Client, query string, maxResults int64) pipeline.Descriptor[*gmail.Message] {
	return pipeline.Descriptor[*gmail.Message]{
		Name: "gmail_search",
		Fetch: func(ctx context.Context) ([]*gmail.Message, error) {
			return c.SearchMessages(ctx, query, maxResults)
		},
	}
}
