package facebook

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCapture(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "capture.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadCapture(t *testing.T) {
	path := writeCapture(t, `{"kind": "operation", "operation": {"name": "CometPhotoRootMediaViewerQuery", "doc_id": "7001", "params": {"fb_dtsg": "tok"}}}
{"kind": "response", "response": {"data": {"ok": true}}}

{"kind": "response", "response": {"data": {"another": 1}}}
{"kind": "future_thing", "payload": "ignored"}
`)

	capture, err := LoadCapture(path)
	require.NoError(t, err)

	require.Len(t, capture.Operations, 1)
	assert.Equal(t, "CometPhotoRootMediaViewerQuery", capture.Operations[0].Name)
	assert.Equal(t, "7001", capture.Operations[0].DocID)
	assert.Equal(t, "tok", capture.Operations[0].Params["fb_dtsg"])

	assert.Len(t, capture.Responses, 2)
}

func TestLoadCaptureInvalidLine(t *testing.T) {
	path := writeCapture(t, `{"kind": "operation"`)
	_, err := LoadCapture(path)
	assert.Error(t, err)
}

func TestLoadCaptureMissingFile(t *testing.T) {
	_, err := LoadCapture(filepath.Join(t.TempDir(), "nope.jsonl"))
	assert.Error(t, err)
}

func TestCaptureRegister(t *testing.T) {
	capture := &Capture{Operations: []Operation{
		{Name: PhotoNavigationOperation, DocID: "1"},
		{Name: VideoNavigationOperation, DocID: "2"},
	}}

	client := NewClient(0, nil, nil)
	capture.Register(client)

	assert.True(t, client.HasOperation(PhotoNavigationOperation))
	assert.True(t, client.HasOperation(VideoNavigationOperation))
	assert.False(t, client.HasOperation("SomethingElse"))
}
