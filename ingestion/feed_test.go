package ingestion

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/crazybass81/GovChat/retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastRetry() retry.Policy {
	return retry.Policy{MaxAttempts: 3, BaseDelay: time.Millisecond, AttemptTimeout: time.Second}
}

// jsonFeed serves pages of size items each; pages beyond total are empty.
func jsonFeed(t *testing.T, total int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret", r.URL.Query().Get("serviceKey"))
		pageNo, _ := strconv.Atoi(r.URL.Query().Get("pageNo"))
		size, _ := strconv.Atoi(r.URL.Query().Get("numOfRows"))

		items := ""
		for i := (pageNo - 1) * size; i < min(pageNo*size, total); i++ {
			if items != "" {
				items += ","
			}
			items += fmt.Sprintf(`{"policyId":"P%03d","policyName":"정책 %d"}`, i, i)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"response":{"header":{"resultCode":"00"},"body":{"items":{"item":[%s]}}}}`, items)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestFeedClient_Fetch(t *testing.T) {
	srv := jsonFeed(t, 5)
	client, err := NewFeedClient(srv.URL, WithServiceKey("secret"), WithPageSize(2), WithFeedRetry(fastRetry()))
	require.NoError(t, err)

	var pages []int
	var ids []string
	err = client.Fetch(context.Background(), func(pageNo int, page *Page) error {
		pages = append(pages, pageNo)
		for _, item := range page.Items {
			ids = append(ids, item["policyId"])
		}
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, []int{1, 2, 3}, pages)
	assert.Equal(t, []string{"P000", "P001", "P002", "P003", "P004"}, ids)
}

func TestFeedClient_MaxPages(t *testing.T) {
	srv := jsonFeed(t, 100)
	client, err := NewFeedClient(srv.URL, WithServiceKey("secret"), WithPageSize(10), WithMaxPages(2))
	require.NoError(t, err)

	count := 0
	err = client.Fetch(context.Background(), func(_ int, page *Page) error {
		count += len(page.Items)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 20, count)
}

func TestFeedClient_XML(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/xml")
		fmt.Fprint(w, `<response><header><resultCode>00</resultCode></header><body><items>
			<item><pblancId>B1</pblancId><pblancNm>기술창업 지원</pblancNm></item>
		</items></body></response>`)
	}))
	t.Cleanup(srv.Close)

	client, err := NewFeedClient(srv.URL, WithQueryParam("keyword", "창업"))
	require.NoError(t, err)

	page, err := client.FetchPage(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "B1", page.Items[0]["pblancId"])
}

func TestFeedClient_ResultCodeError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"response":{"header":{"resultCode":"30","resultMsg":"SERVICE_KEY_IS_NOT_REGISTERED_ERROR"}}}`)
	}))
	t.Cleanup(srv.Close)

	client, err := NewFeedClient(srv.URL)
	require.NoError(t, err)

	_, err = client.FetchPage(context.Background(), 1)
	require.ErrorIs(t, err, ErrFeed)
	assert.Contains(t, err.Error(), "SERVICE_KEY_IS_NOT_REGISTERED_ERROR")
}

func TestFeedClient_Retries(t *testing.T) {
	t.Run("transient status is retried", func(t *testing.T) {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) < 3 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			fmt.Fprint(w, `{"items":[{"id":"1","title":"ok"}]}`)
		}))
		t.Cleanup(srv.Close)

		client, err := NewFeedClient(srv.URL, WithFeedRetry(fastRetry()))
		require.NoError(t, err)

		page, err := client.FetchPage(context.Background(), 1)
		require.NoError(t, err)
		assert.Len(t, page.Items, 1)
		assert.Equal(t, int32(3), calls.Load())
	})

	t.Run("client error is not retried", func(t *testing.T) {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusForbidden)
		}))
		t.Cleanup(srv.Close)

		client, err := NewFeedClient(srv.URL, WithFeedRetry(fastRetry()))
		require.NoError(t, err)

		_, err = client.FetchPage(context.Background(), 1)
		assert.ErrorIs(t, err, ErrFeed)
		assert.Equal(t, int32(1), calls.Load())
	})
}

func TestNewFeedClient_Options(t *testing.T) {
	_, err := NewFeedClient("not a url")
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = NewFeedClient("http://localhost", WithPageSize(0))
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = NewFeedClient("http://localhost", WithMaxPages(-1))
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = NewFeedClient("http://localhost", WithHTTPClient(nil))
	assert.ErrorIs(t, err, ErrInvalidConfig)
}
