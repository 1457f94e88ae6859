package facebook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"fbsaver/pkg/errors"
	"fbsaver/pkg/logger"
	"fbsaver/pkg/ratelimit"
)

// Operation is a captured request template for one named GraphQL operation:
// its persisted document id plus the baseline form parameters recorded from
// a prior genuine request. Without a template an operation cannot be
// replayed at all.
type Operation struct {
	Name   string            `json:"name"`
	DocID  string            `json:"doc_id"`
	Params map[string]string `json:"params,omitempty"`
}

// Client replays captured GraphQL operations against the Facebook endpoint
type Client struct {
	httpClient *http.Client
	headers    map[string]string
	baseURL    string
	limiter    ratelimit.Limiter
	logger     logger.Logger

	mu        sync.RWMutex
	templates map[string]Operation
}

// NewClient creates a GraphQL replay client
func NewClient(timeout time.Duration, limiter ratelimit.Limiter, log logger.Logger) *Client {
	if log == nil {
		log = logger.GetLogger()
	}
	if limiter == nil {
		limiter = ratelimit.NewSlidingWindow(60, time.Minute)
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		headers: map[string]string{
			"User-Agent":      "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36",
			"Accept":          "*/*",
			"Accept-Language": "en-US,en;q=0.9",
			"Content-Type":    "application/x-www-form-urlencoded",
			"Origin":          BaseURL,
			"Sec-Fetch-Dest":  "empty",
			"Sec-Fetch-Mode":  "cors",
			"Sec-Fetch-Site":  "same-origin",
		},
		baseURL:   BaseURL,
		limiter:   limiter,
		logger:    log,
		templates: make(map[string]Operation),
	}
}

// SetHeader sets a custom header for the client
func (c *Client) SetHeader(key, value string) {
	c.headers[key] = value
}

// SetHeaders sets multiple headers at once
func (c *Client) SetHeaders(headers map[string]string) {
	for key, value := range headers {
		c.headers[key] = value
	}
}

// SetBaseURL overrides the endpoint base, e.g. for tests
func (c *Client) SetBaseURL(base string) {
	c.baseURL = base
}

// Capture registers an operation template for later replay
func (c *Client) Capture(op Operation) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.templates[op.Name] = op

	c.logger.DebugWithFields("captured operation template", map[string]interface{}{
		"operation": op.Name,
		"doc_id":    op.DocID,
	})
}

// HasOperation reports whether a template was captured for an operation
func (c *Client) HasOperation(name string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.templates[name]
	return ok
}

// Send replays a captured operation with the given variables. The response
// body may hold several concatenated JSON documents; each is returned as its
// own raw message. Invoking an operation that was never captured is the one
// hard failure in this layer.
func (c *Client) Send(ctx context.Context, operationName string, variables map[string]interface{}) ([]json.RawMessage, error) {
	c.mu.RLock()
	template, ok := c.templates[operationName]
	c.mu.RUnlock()
	if !ok {
		c.logger.ErrorWithFields("operation template missing", map[string]interface{}{
			"operation": operationName,
		})
		return nil, errors.OperationNotFound(operationName)
	}

	varsJSON, err := json.Marshal(variables)
	if err != nil {
		return nil, &errors.Error{
			Type:    errors.ErrorTypeParsing,
			Message: fmt.Sprintf("failed to encode variables: %v", err),
		}
	}

	form := url.Values{}
	for key, value := range template.Params {
		form.Set(key, value)
	}
	form.Set("fb_api_req_friendly_name", operationName)
	form.Set("doc_id", template.DocID)
	form.Set("variables", string(varsJSON))

	endpoint := c.baseURL + GraphQLEndpoint
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, &errors.Error{
			Type:    errors.ErrorTypeUnknown,
			Message: fmt.Sprintf("failed to create request: %v", err),
		}
	}
	for key, value := range c.headers {
		req.Header.Set(key, value)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &errors.Error{
			Type:    errors.ErrorTypeNetwork,
			Message: fmt.Sprintf("rate limit wait aborted: %v", err),
		}
	}

	start := time.Now()
	c.logger.DebugWithFields("sending GraphQL request", map[string]interface{}{
		"operation": operationName,
		"doc_id":    template.DocID,
	})

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.ErrorWithFields("GraphQL request failed", map[string]interface{}{
			"operation": operationName,
			"error":     err.Error(),
			"duration":  time.Since(start),
		})
		return nil, &errors.Error{
			Type:    errors.ErrorTypeNetwork,
			Message: fmt.Sprintf("network error: %v", err),
		}
	}
	defer resp.Body.Close()

	if err := checkResponseStatus(resp, c.logger); err != nil {
		return nil, err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &errors.Error{
			Type:    errors.ErrorTypeNetwork,
			Message: fmt.Sprintf("failed to read response body: %v", err),
			Code:    resp.StatusCode,
		}
	}

	messages, err := splitResponses(body)
	if err != nil {
		preview := string(body)
		if len(preview) > 200 {
			preview = preview[:200] + "..."
		}
		c.logger.ErrorWithFields("failed to parse GraphQL response", map[string]interface{}{
			"operation":    operationName,
			"status":       resp.StatusCode,
			"error":        err.Error(),
			"body_preview": preview,
		})
		return nil, &errors.Error{
			Type:    errors.ErrorTypeParsing,
			Message: fmt.Sprintf("failed to parse response: %v", err),
			Code:    resp.StatusCode,
		}
	}

	c.logger.DebugWithFields("GraphQL request completed", map[string]interface{}{
		"operation": operationName,
		"status":    resp.StatusCode,
		"documents": len(messages),
		"duration":  time.Since(start),
	})

	return messages, nil
}

// splitResponses parses a body holding one or more concatenated JSON
// documents, tolerating the anti-hijacking prefix Facebook prepends
func splitResponses(body []byte) ([]json.RawMessage, error) {
	body = bytes.TrimPrefix(bytes.TrimSpace(body), []byte("for (;;);"))

	var messages []json.RawMessage
	dec := json.NewDecoder(bytes.NewReader(body))
	for {
		var raw json.RawMessage
		if err := dec.Decode(&raw); err == io.EOF {
			break
		} else if err != nil {
			return nil, err
		}
		messages = append(messages, raw)
	}

	if len(messages) == 0 {
		return nil, fmt.Errorf("empty response body")
	}
	return messages, nil
}

// checkResponseStatus maps HTTP statuses onto the error taxonomy
func checkResponseStatus(resp *http.Response, log logger.Logger) error {
	switch {
	case resp.StatusCode == http.StatusOK:
		return nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		log.WarnWithFields("authentication error", map[string]interface{}{
			"status": resp.StatusCode,
		})
		return &errors.Error{
			Type:    errors.ErrorTypeAuth,
			Message: "authentication required",
			Code:    resp.StatusCode,
		}
	case resp.StatusCode == http.StatusNotFound:
		return &errors.Error{
			Type:    errors.ErrorTypeNotFound,
			Message: "resource not found",
			Code:    resp.StatusCode,
		}
	case resp.StatusCode == http.StatusTooManyRequests:
		log.WarnWithFields("rate limit exceeded", map[string]interface{}{
			"status": resp.StatusCode,
		})
		return &errors.Error{
			Type:    errors.ErrorTypeRateLimit,
			Message: "rate limit exceeded",
			Code:    resp.StatusCode,
		}
	case resp.StatusCode >= 500:
		return &errors.Error{
			Type:    errors.ErrorTypeServerError,
			Message: "server error",
			Code:    resp.StatusCode,
		}
	case resp.StatusCode >= 400:
		return &errors.Error{
			Type:    errors.ErrorTypeUnknown,
			Message: fmt.Sprintf("unexpected status code: %d", resp.StatusCode),
			Code:    resp.StatusCode,
		}
	default:
		return nil
	}
}

// NextMedia implements Navigator by replaying the photo or video navigation
// operation for one node of a mediaset. The response is probed structurally;
// a response without currMedia reads as end-of-data.
func (c *Client) NextMedia(ctx context.Context, kind MediaKind, nodeID, mediasetToken string) (*NavigationPage, error) {
	operationName := navigationOperation(kind)

	messages, err := c.Send(ctx, operationName, map[string]interface{}{
		"nodeID":        nodeID,
		"mediasetToken": mediasetToken,
		"scale":         1,
	})
	if err != nil {
		return nil, err
	}

	page := &NavigationPage{}
	for _, raw := range messages {
		var decoded interface{}
		if err := json.Unmarshal(raw, &decoded); err != nil {
			continue
		}
		if page.Media == nil {
			if currRaw, ok := findKey(decoded, "currMedia"); ok {
				if currObj, ok := asObject(currRaw); ok {
					if media, ok := classifyMedia(currObj); ok {
						page.Media = media
					}
				}
			}
		}
		if page.NextID == "" {
			if nextRaw, ok := findKey(decoded, "nextMediaAfterNodeId"); ok {
				if next, ok := nextRaw.(string); ok {
					page.NextID = next
				}
			}
		}
	}

	return page, nil
}
