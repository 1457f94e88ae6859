package render

import (
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fbsaver/pkg/facebook"
)

func TestDocumentFullPost(t *testing.T) {
	in := Input{
		Story: &facebook.Story{
			Kind:    facebook.StoryPost,
			ID:      "s1",
			PostID:  "p1",
			URL:     "https://www.facebook.com/groups/g/permalink/p1/",
			Message: "two photos and a video",
			Actor:   &facebook.User{ID: "u1", Name: "Jane Miller"},
		},
		Attachments: []*facebook.Media{
			{Kind: facebook.MediaPhoto, ID: "m1", URL: "https://cdn/m1.jpg"},
			{Kind: facebook.MediaPhoto, ID: "m2", URL: "https://cdn/m2.jpg"},
			{Kind: facebook.MediaVideo, ID: "v1", URL: "https://cdn/v1.mp4"},
		},
		GroupName:  "Local Gardeners",
		CreateTime: time.Unix(1700000000, 0),
	}

	doc := Document(in)
	want := `https://www.facebook.com/groups/g/permalink/p1/
Group: Local Gardeners
Author: Jane Miller
2023-11-14T22:13:20Z

two photos and a video

![m1](https://cdn/m1.jpg)
![m2](https://cdn/m2.jpg)
[v1](https://cdn/v1.mp4)
`
	assert.Equal(t, want, doc)
}

func TestDocumentTextOnly(t *testing.T) {
	in := Input{
		Story: &facebook.Story{
			Kind:    facebook.StoryPost,
			PostID:  "p1",
			URL:     "https://www.facebook.com/p1",
			Message: "just words",
		},
	}

	doc := Document(in)
	assert.Equal(t, "https://www.facebook.com/p1\n\njust words\n", doc)
}

func TestDocumentOmitsUnknownSections(t *testing.T) {
	in := Input{
		Story: &facebook.Story{Kind: facebook.StoryPost, PostID: "p1", Message: "bare"},
	}

	doc := Document(in)
	assert.NotContains(t, doc, "Group:")
	assert.NotContains(t, doc, "Author:")
	assert.NotContains(t, doc, "Title:")
	assert.Equal(t, "\nbare\n", doc)
}

func TestDocumentSkipsMediaWithoutURL(t *testing.T) {
	in := Input{
		Story: &facebook.Story{Kind: facebook.StoryPost, PostID: "p1", Message: "mixed"},
		Attachments: []*facebook.Media{
			{Kind: facebook.MediaPhoto, ID: "m1", URL: "https://cdn/m1.jpg"},
			{Kind: facebook.MediaWatchVideo, ID: "v1"},
		},
	}

	doc := Document(in)
	assert.Contains(t, doc, "![m1]")
	assert.NotContains(t, doc, "v1")
}

func TestDocumentNestedStoryBlockquoted(t *testing.T) {
	nested := Document(Input{
		Story: &facebook.Story{
			Kind:    facebook.StoryPost,
			PostID:  "inner",
			URL:     "https://www.facebook.com/inner",
			Message: "original text",
		},
	})

	doc := Document(Input{
		Story: &facebook.Story{
			Kind:    facebook.StoryPost,
			PostID:  "outer",
			URL:     "https://www.facebook.com/outer",
			Message: "sharing this",
		},
		Nested: nested,
	})

	require.Contains(t, doc, "> https://www.facebook.com/inner\n")
	require.Contains(t, doc, "> original text\n")

	// every nested line is quoted, including the blank separator
	lines := strings.Split(strings.TrimRight(doc, "\n"), "\n")
	inNested := false
	for _, line := range lines {
		if strings.HasPrefix(line, "> ") {
			inNested = true
		} else {
			require.False(t, inNested && line != "", "unquoted line after nested section: %q", line)
		}
	}
}

func TestDocumentVideoStoryTitle(t *testing.T) {
	in := Input{
		Story: &facebook.Story{
			Kind:  facebook.StoryVideo,
			ID:    "s1",
			Title: "launch recap",
			Attachments: []facebook.Attachment{
				{Media: &facebook.Media{Kind: facebook.MediaVideo, ID: "v1", URL: "https://cdn/v1.mp4"}},
			},
		},
		Attachments: []*facebook.Media{
			{Kind: facebook.MediaVideo, ID: "v1", URL: "https://cdn/v1.mp4"},
		},
	}

	doc := Document(in)
	assert.True(t, strings.HasPrefix(doc, "https://www.facebook.com/watch/?v=v1\n"))
	assert.Contains(t, doc, "Title: launch recap\n")
	assert.Contains(t, doc, "[v1](https://cdn/v1.mp4)\n")
}

func TestFolderName(t *testing.T) {
	story := &facebook.Story{
		Kind:   facebook.StoryPost,
		PostID: "p1",
		Actor:  &facebook.User{Name: "Jane / Miller"},
	}

	tests := []struct {
		name string
		in   Input
		want string
	}{
		{
			name: "all parts",
			in: Input{
				Story:      story,
				GroupName:  "Local: Gardeners",
				CreateTime: time.Unix(1700000000, 0),
			},
			want: "2023-11-14 - Local_ Gardeners - Jane _ Miller - p1",
		},
		{
			name: "no group",
			in: Input{
				Story:      story,
				CreateTime: time.Unix(1700000000, 0),
			},
			want: "2023-11-14 - Jane _ Miller - p1",
		},
		{
			name: "key only",
			in:   Input{Story: &facebook.Story{Kind: facebook.StoryPost, PostID: "p1"}},
			want: "p1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FolderName(tt.in))
		})
	}
}

func TestSanitize(t *testing.T) {
	assert.Equal(t, "a_b_c", Sanitize(`a/b\c`))
	assert.Equal(t, "no change", Sanitize("no change"))
	assert.Equal(t, "q_", Sanitize("q?"))
	assert.Equal(t, "tab_here", Sanitize("tab\there"))
}

func TestDataURLRoundTrip(t *testing.T) {
	doc := "https://example.com\n\nhello world, ümlauts & #hashes\n"
	dataURL := DataURL(doc)

	require.True(t, strings.HasPrefix(dataURL, "data:text/markdown;charset=utf-8,"))

	payload := strings.TrimPrefix(dataURL, "data:text/markdown;charset=utf-8,")
	decoded, err := url.PathUnescape(payload)
	require.NoError(t, err)
	assert.Equal(t, doc, decoded)
}

func TestDocumentDeterminism(t *testing.T) {
	in := Input{
		Story: &facebook.Story{
			Kind:    facebook.StoryPost,
			PostID:  "p1",
			URL:     "https://www.facebook.com/p1",
			Message: "same every time",
			Actor:   &facebook.User{Name: "A"},
		},
		Attachments: []*facebook.Media{
			{Kind: facebook.MediaPhoto, ID: "m1", URL: "https://cdn/m1.jpg"},
		},
		GroupName:  "G",
		CreateTime: time.Unix(1700000000, 0),
	}

	first := Document(in)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, Document(in))
	}
}
