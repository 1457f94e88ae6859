package facebook

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMediasetToken(t *testing.T) {
	assert.Equal(t, "pcb.12345", MediasetToken("12345"))
}

func TestWatchURL(t *testing.T) {
	assert.Equal(t, "https://www.facebook.com/watch/?v=987", WatchURL("987"))
}

func TestNavigationOperation(t *testing.T) {
	assert.Equal(t, PhotoNavigationOperation, navigationOperation(MediaPhoto))
	assert.Equal(t, VideoNavigationOperation, navigationOperation(MediaVideo))
	assert.Equal(t, VideoNavigationOperation, navigationOperation(MediaWatchVideo))
}
