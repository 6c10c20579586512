package ingestion

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/crazybass81/GovChat/retry"
)

const (
	defaultPageSize = 100
	defaultMaxPages = 50
	// data.go.kr reports success as "00"
	resultCodeOK = "00"
)

// errTransient marks responses worth retrying.
var errTransient = errors.New("transient feed response")

// FeedClient pages through a public listing feed.
type FeedClient struct {
	httpClient *http.Client
	baseURL    string
	serviceKey string
	params     url.Values
	pageSize   int
	maxPages   int
	retry      retry.Policy
	logger     *slog.Logger
}

// FeedOption configures a FeedClient.
type FeedOption func(*FeedClient) error

// WithServiceKey sets the serviceKey query parameter.
func WithServiceKey(key string) FeedOption {
	return func(c *FeedClient) error {
		c.serviceKey = key
		return nil
	}
}

// WithPageSize sets numOfRows. Default is 100.
func WithPageSize(n int) FeedOption {
	return func(c *FeedClient) error {
		if n < 1 {
			return fmt.Errorf("%w: page size %d", ErrInvalidConfig, n)
		}
		c.pageSize = n
		return nil
	}
}

// WithMaxPages bounds a full fetch. Default is 50.
func WithMaxPages(n int) FeedOption {
	return func(c *FeedClient) error {
		if n < 1 {
			return fmt.Errorf("%w: max pages %d", ErrInvalidConfig, n)
		}
		c.maxPages = n
		return nil
	}
}

// WithQueryParam adds a fixed query parameter such as keyword or type.
func WithQueryParam(key, value string) FeedOption {
	return func(c *FeedClient) error {
		c.params.Set(key, value)
		return nil
	}
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(client *http.Client) FeedOption {
	return func(c *FeedClient) error {
		if client == nil {
			return fmt.Errorf("%w: nil http client", ErrInvalidConfig)
		}
		c.httpClient = client
		return nil
	}
}

// WithFeedRetry sets the retry policy for page requests.
func WithFeedRetry(p retry.Policy) FeedOption {
	return func(c *FeedClient) error {
		c.retry = p
		return nil
	}
}

// WithFeedLogger sets a custom logger.
func WithFeedLogger(logger *slog.Logger) FeedOption {
	return func(c *FeedClient) error {
		if logger == nil {
			logger = slog.Default()
		}
		c.logger = logger
		return nil
	}
}

// NewFeedClient creates a client for the feed at baseURL.
func NewFeedClient(baseURL string, opts ...FeedOption) (*FeedClient, error) {
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("%w: feed url: %w", ErrInvalidConfig, err)
	}
	c := &FeedClient{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    baseURL,
		params:     url.Values{},
		pageSize:   defaultPageSize,
		maxPages:   defaultMaxPages,
		retry:      retry.DefaultPolicy(),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	c.logger = c.logger.With("component", "feed")
	return c, nil
}

// FetchPage retrieves and decodes one page (1-based).
func (c *FeedClient) FetchPage(ctx context.Context, pageNo int) (*Page, error) {
	q := url.Values{}
	for k, vs := range c.params {
		q[k] = vs
	}
	q.Set("pageNo", strconv.Itoa(pageNo))
	q.Set("numOfRows", strconv.Itoa(c.pageSize))
	if c.serviceKey != "" {
		q.Set("serviceKey", c.serviceKey)
	}
	target := c.baseURL + "?" + q.Encode()

	var body []byte
	err := c.retry.Do(ctx, func(ctx context.Context) error {
		var err error
		body, err = c.get(ctx, target)
		if err != nil && !errors.Is(err, errTransient) && !errors.Is(err, retry.ErrProviderTimeout) {
			return retry.Permanent(err)
		}
		return err
	}, func(attempt int, err error) {
		c.logger.Warn("feed request failed, retrying", "page", pageNo, "attempt", attempt, "err", err)
	})
	if err != nil {
		return nil, err
	}

	page, err := ParsePage(body)
	if err != nil {
		return nil, err
	}
	if page.ResultCode != "" && page.ResultCode != resultCodeOK {
		return nil, fmt.Errorf("%w: result code %s: %s", ErrFeed, page.ResultCode, page.ResultMsg)
	}
	return page, nil
}

// Fetch walks pages from 1 until a page has no items or MaxPages is reached,
// handing each page to visit.
func (c *FeedClient) Fetch(ctx context.Context, visit func(pageNo int, page *Page) error) error {
	for pageNo := 1; pageNo <= c.maxPages; pageNo++ {
		page, err := c.FetchPage(ctx, pageNo)
		if err != nil {
			return fmt.Errorf("page %d: %w", pageNo, err)
		}
		if len(page.Items) == 0 && len(page.Rejected) == 0 {
			c.logger.Debug("feed exhausted", "page", pageNo)
			return nil
		}
		if err := visit(pageNo, page); err != nil {
			return err
		}
	}
	c.logger.Info("feed page limit reached", "maxPages", c.maxPages)
	return nil
}

func (c *FeedClient) get(ctx context.Context, target string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errTransient, err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errTransient, err)
	}
	switch {
	case res.StatusCode >= 500 || res.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("%w: %w: status %d", ErrFeed, errTransient, res.StatusCode)
	case res.StatusCode >= 400:
		return nil, fmt.Errorf("%w: status %d", ErrFeed, res.StatusCode)
	}
	return body, nil
}

