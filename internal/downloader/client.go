package downloader

import (
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"fbsaver/pkg/errors"
	"fbsaver/pkg/retry"
)

// HTTPFetcher downloads media over HTTP. URLs with the data: scheme are
// decoded locally without touching the network, which is how rendered
// markdown documents travel through the same pool as media files.
type HTTPFetcher struct {
	httpClient *http.Client
	userAgent  string
	retryCfg   *retry.Config
}

// NewHTTPFetcher creates a fetcher with the given timeout and retry attempts
func NewHTTPFetcher(timeout time.Duration, retryAttempts int, userAgent string) *HTTPFetcher {
	cfg := retry.DefaultConfig()
	if retryAttempts > 0 {
		cfg.MaxAttempts = retryAttempts
	}
	return &HTTPFetcher{
		httpClient: &http.Client{Timeout: timeout},
		userAgent:  userAgent,
		retryCfg:   cfg,
	}
}

// Fetch returns the bytes behind rawURL
func (f *HTTPFetcher) Fetch(rawURL string) ([]byte, error) {
	if strings.HasPrefix(rawURL, "data:") {
		return decodeDataURL(rawURL)
	}

	return retry.DoWithResult(func() ([]byte, error) {
		return f.fetchHTTP(rawURL)
	}, f.retryCfg)
}

func (f *HTTPFetcher) fetchHTTP(rawURL string) ([]byte, error) {
	req, err := http.NewRequest("GET", rawURL, nil)
	if err != nil {
		return nil, &errors.Error{
			Type:    errors.ErrorTypeNetwork,
			Message: fmt.Sprintf("failed to create request: %v", err),
		}
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, &errors.Error{
			Type:    errors.ErrorTypeNetwork,
			Message: fmt.Sprintf("request failed: %v", err),
		}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, &errors.Error{
			Type:    errors.ErrorTypeRateLimit,
			Message: "rate limited while downloading media",
			Code:    resp.StatusCode,
		}
	case resp.StatusCode == http.StatusNotFound:
		return nil, &errors.Error{
			Type:    errors.ErrorTypeNotFound,
			Message: "media not found",
			Code:    resp.StatusCode,
		}
	case resp.StatusCode >= 500:
		return nil, &errors.Error{
			Type:    errors.ErrorTypeServerError,
			Message: "server error while downloading media",
			Code:    resp.StatusCode,
		}
	default:
		return nil, &errors.Error{
			Type:    errors.ErrorTypeNetwork,
			Message: fmt.Sprintf("unexpected status %d while downloading media", resp.StatusCode),
			Code:    resp.StatusCode,
		}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &errors.Error{
			Type:    errors.ErrorTypeNetwork,
			Message: fmt.Sprintf("failed to read response body: %v", err),
		}
	}
	return data, nil
}

// decodeDataURL handles both percent-encoded and base64 data URLs
func decodeDataURL(rawURL string) ([]byte, error) {
	comma := strings.IndexByte(rawURL, ',')
	if comma < 0 {
		return nil, &errors.Error{
			Type:    errors.ErrorTypeParsing,
			Message: "malformed data URL",
		}
	}
	meta, payload := rawURL[len("data:"):comma], rawURL[comma+1:]

	if strings.HasSuffix(meta, ";base64") {
		data, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return nil, &errors.Error{
				Type:    errors.ErrorTypeParsing,
				Message: fmt.Sprintf("failed to decode base64 data URL: %v", err),
			}
		}
		return data, nil
	}

	decoded, err := url.PathUnescape(payload)
	if err != nil {
		return nil, &errors.Error{
			Type:    errors.ErrorTypeParsing,
			Message: fmt.Sprintf("failed to decode data URL: %v", err),
		}
	}
	return []byte(decoded), nil
}
