package downloader

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fbsaver/pkg/errors"
	"fbsaver/pkg/render"
	"fbsaver/pkg/retry"
)

func TestFetchHTTP(t *testing.T) {
	var gotUserAgent string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserAgent = r.Header.Get("User-Agent")
		w.Write([]byte("image bytes"))
	}))
	defer server.Close()

	fetcher := NewHTTPFetcher(5*time.Second, 1, "test-agent/1.0")
	data, err := fetcher.Fetch(server.URL + "/m1.jpg")
	require.NoError(t, err)
	assert.Equal(t, "image bytes", string(data))
	assert.Equal(t, "test-agent/1.0", gotUserAgent)
}

func TestFetchRetriesServerErrors(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	fetcher := NewHTTPFetcher(5*time.Second, 3, "")
	fetcher.retryCfg.Backoff = &retry.ConstantBackoff{Delay: time.Millisecond}

	data, err := fetcher.Fetch(server.URL)
	require.NoError(t, err)
	assert.Equal(t, "ok", string(data))
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestFetchDoesNotRetryNotFound(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	fetcher := NewHTTPFetcher(5*time.Second, 3, "")
	_, err := fetcher.Fetch(server.URL)
	require.Error(t, err)

	var apiErr *errors.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, errors.ErrorTypeNotFound, apiErr.Type)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestFetchDataURL(t *testing.T) {
	doc := "https://example.com\n\nhello, markdown & ümlauts\n"

	fetcher := NewHTTPFetcher(time.Second, 1, "")
	data, err := fetcher.Fetch(render.DataURL(doc))
	require.NoError(t, err)
	assert.Equal(t, doc, string(data))
}

func TestFetchDataURLBase64(t *testing.T) {
	fetcher := NewHTTPFetcher(time.Second, 1, "")
	data, err := fetcher.Fetch("data:text/plain;base64,aGVsbG8=")
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
}

func TestFetchMalformedDataURL(t *testing.T) {
	fetcher := NewHTTPFetcher(time.Second, 1, "")
	_, err := fetcher.Fetch("data:text/plain")
	require.Error(t, err)

	var apiErr *errors.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, errors.ErrorTypeParsing, apiErr.Type)
}
