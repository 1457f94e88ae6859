package facebook

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fbsaver/pkg/errors"
)

func newTestClient(serverURL string) *Client {
	client := NewClient(5*time.Second, nil, nil)
	client.SetBaseURL(serverURL)
	return client
}

func TestSendRequiresCapturedTemplate(t *testing.T) {
	client := newTestClient("http://unused.invalid")

	_, err := client.Send(context.Background(), "CometPhotoRootMediaViewerQuery", nil)
	require.Error(t, err)

	var apiErr *errors.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, errors.ErrorTypeOperationNotFound, apiErr.Type)
}

func TestSendReplaysTemplate(t *testing.T) {
	var gotForm map[string]string
	var gotCookie string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		gotForm = map[string]string{
			"fb_api_req_friendly_name": r.PostFormValue("fb_api_req_friendly_name"),
			"doc_id":                   r.PostFormValue("doc_id"),
			"variables":                r.PostFormValue("variables"),
			"fb_dtsg":                  r.PostFormValue("fb_dtsg"),
		}
		gotCookie = r.Header.Get("Cookie")
		w.Write([]byte(`for (;;);{"data": {"ok": true}}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	client.SetHeader("Cookie", "c_user=1; xs=secret")
	client.Capture(Operation{
		Name:   "CometPhotoRootMediaViewerQuery",
		DocID:  "7001",
		Params: map[string]string{"fb_dtsg": "token123", "server_timestamps": "true"},
	})

	messages, err := client.Send(context.Background(), "CometPhotoRootMediaViewerQuery",
		map[string]interface{}{"nodeID": "n1"})
	require.NoError(t, err)
	require.Len(t, messages, 1)

	assert.Equal(t, "CometPhotoRootMediaViewerQuery", gotForm["fb_api_req_friendly_name"])
	assert.Equal(t, "7001", gotForm["doc_id"])
	assert.JSONEq(t, `{"nodeID": "n1"}`, gotForm["variables"])
	assert.Equal(t, "token123", gotForm["fb_dtsg"])
	assert.Equal(t, "c_user=1; xs=secret", gotCookie)
}

func TestSendSplitsConcatenatedDocuments(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`for (;;);{"first": 1}
{"second": 2}{"third": 3}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	client.Capture(Operation{Name: "Op", DocID: "1"})

	messages, err := client.Send(context.Background(), "Op", nil)
	require.NoError(t, err)
	assert.Len(t, messages, 3)
}

func TestSendStatusMapping(t *testing.T) {
	tests := []struct {
		status   int
		wantType errors.ErrorType
	}{
		{http.StatusUnauthorized, errors.ErrorTypeAuth},
		{http.StatusForbidden, errors.ErrorTypeAuth},
		{http.StatusNotFound, errors.ErrorTypeNotFound},
		{http.StatusTooManyRequests, errors.ErrorTypeRateLimit},
		{http.StatusInternalServerError, errors.ErrorTypeServerError},
	}

	for _, tt := range tests {
		status := tt.status
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		}))

		client := newTestClient(server.URL)
		client.Capture(Operation{Name: "Op", DocID: "1"})

		_, err := client.Send(context.Background(), "Op", nil)
		require.Error(t, err)

		var apiErr *errors.Error
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, tt.wantType, apiErr.Type, "status %d", tt.status)
		assert.Equal(t, tt.status, apiErr.Code)

		server.Close()
	}
}

func TestNextMediaParsesNavigationResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, PhotoNavigationOperation, r.PostFormValue("fb_api_req_friendly_name"))

		w.Write([]byte(`{
			"data": {"mediaset": {
				"currMedia": {
					"id": "m7",
					"__typename": "Photo",
					"image": {"uri": "https://cdn/m7.jpg", "width": 800, "height": 600}
				},
				"nextMediaAfterNodeId": "m8"
			}}
		}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	client.Capture(Operation{Name: PhotoNavigationOperation, DocID: "7002"})

	page, err := client.NextMedia(context.Background(), MediaPhoto, "m6", "pcb.p1")
	require.NoError(t, err)
	require.NotNil(t, page.Media)
	assert.Equal(t, "m7", page.Media.ID)
	assert.Equal(t, "https://cdn/m7.jpg", page.Media.URL)
	assert.Equal(t, "m8", page.NextID)
}

func TestNextMediaEndOfData(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data": {"mediaset": {}}}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	client.Capture(Operation{Name: VideoNavigationOperation, DocID: "7003"})

	page, err := client.NextMedia(context.Background(), MediaVideo, "m6", "pcb.p1")
	require.NoError(t, err)
	assert.Nil(t, page.Media)
	assert.Empty(t, page.NextID)
}

func TestSplitResponsesEmptyBody(t *testing.T) {
	_, err := splitResponses([]byte("   "))
	assert.Error(t, err)
}
