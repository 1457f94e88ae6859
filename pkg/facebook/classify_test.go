package facebook

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// decode parses a JSON literal into the untyped form the classifier works on
func decode(t *testing.T, raw string) map[string]interface{} {
	t.Helper()
	var obj map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(raw), &obj))
	return obj
}

func TestClassifyStoryPhotoPost(t *testing.T) {
	obj := decode(t, `{
		"id": "story1",
		"post_id": "post1",
		"wwwURL": "https://www.facebook.com/groups/g/permalink/post1/",
		"message": {"text": "three photos from the trip"},
		"actors": [{"id": "u1", "name": "Jane Miller"}],
		"attachments": [{
			"all_subattachments": {
				"count": 3,
				"nodes": [
					{"media": {"id": "m1", "__typename": "Photo", "image": {"uri": "https://cdn/m1.jpg", "width": 1080, "height": 720}}},
					{"media": {"id": "m2", "__typename": "Photo", "image": {"uri": "https://cdn/m2.jpg", "width": 640, "height": 480}}}
				]
			}
		}]
	}`)

	story, ok := ClassifyStory(obj)
	require.True(t, ok)
	assert.Equal(t, StoryPost, story.Kind)
	assert.Equal(t, "story1", story.ID)
	assert.Equal(t, "post1", story.PostID)
	assert.Equal(t, "post1", story.Key())
	assert.Equal(t, "https://www.facebook.com/groups/g/permalink/post1/", story.URL)
	assert.Equal(t, "three photos from the trip", story.Message)
	assert.Equal(t, "Jane Miller", story.ActorName())

	require.Len(t, story.Attachments, 1)
	sub := story.Attachments[0].Subattachments
	require.NotNil(t, sub)
	assert.Equal(t, 3, sub.Count)
	require.Len(t, sub.Nodes, 2)
	assert.Equal(t, "https://cdn/m1.jpg", sub.Nodes[0].URL)
}

func TestClassifyStoryNodelessCollectionKeepsCoverMedia(t *testing.T) {
	obj := decode(t, `{
		"id": "story1",
		"post_id": "post1",
		"message": {"text": "album with elided nodes"},
		"attachments": [{
			"media": {"id": "m1", "__typename": "Photo", "image": {"uri": "https://cdn/m1.jpg", "width": 1080, "height": 720}},
			"all_subattachments": {"count": 4, "nodes": []}
		}]
	}`)

	story, ok := ClassifyStory(obj)
	require.True(t, ok)

	require.Len(t, story.Attachments, 1)
	att := story.Attachments[0]
	require.NotNil(t, att.Subattachments)
	assert.Equal(t, 4, att.Subattachments.Count)
	assert.Empty(t, att.Subattachments.Nodes)
	require.NotNil(t, att.Media)
	assert.Equal(t, "m1", att.Media.ID)
}

func TestClassifyStoryPopulatedCollectionIgnoresCoverMedia(t *testing.T) {
	obj := decode(t, `{
		"id": "story1",
		"post_id": "post1",
		"attachments": [{
			"media": {"id": "m1", "__typename": "Photo", "image": {"uri": "https://cdn/m1.jpg", "width": 1080, "height": 720}},
			"all_subattachments": {
				"count": 2,
				"nodes": [
					{"media": {"id": "m1", "__typename": "Photo", "image": {"uri": "https://cdn/m1.jpg", "width": 1080, "height": 720}}},
					{"media": {"id": "m2", "__typename": "Photo", "image": {"uri": "https://cdn/m2.jpg", "width": 640, "height": 480}}}
				]
			}
		}]
	}`)

	story, ok := ClassifyStory(obj)
	require.True(t, ok)

	// the cover duplicates the first node, so only the nodes survive
	att := story.Attachments[0]
	require.Len(t, att.Subattachments.Nodes, 2)
	assert.Nil(t, att.Media)
}

func TestClassifyStoryTextOnlyPost(t *testing.T) {
	obj := decode(t, `{
		"id": "story2",
		"post_id": "post2",
		"url": "https://www.facebook.com/post2",
		"message": {"text": "words only"},
		"attachments": []
	}`)

	story, ok := ClassifyStory(obj)
	require.True(t, ok)
	assert.Equal(t, StoryPost, story.Kind)
	assert.Empty(t, story.Attachments)
	// wwwURL missing, plain url is the fallback
	assert.Equal(t, "https://www.facebook.com/post2", story.URL)
}

func TestClassifyStoryRejections(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{
			name: "missing post_id",
			raw:  `{"id": "x", "attachments": [], "message": {"text": "hi"}}`,
		},
		{
			name: "missing id",
			raw:  `{"post_id": "x", "attachments": [], "message": {"text": "hi"}}`,
		},
		{
			name: "no attachments and no message",
			raw:  `{"id": "x", "post_id": "y", "attachments": []}`,
		},
		{
			name: "attachments not an array",
			raw:  `{"id": "x", "post_id": "y", "attachments": {"media": {}}}`,
		},
		{
			name: "unclassifiable attachment poisons the post",
			raw: `{"id": "x", "post_id": "y", "message": {"text": "hi"},
				"attachments": [{"media": {"id": "m", "__typename": "GenericAttachmentMedia"}}]}`,
		},
		{
			name: "empty object",
			raw:  `{}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := ClassifyStory(decode(t, tt.raw))
			assert.False(t, ok)
		})
	}
}

func TestClassifyStoryVideo(t *testing.T) {
	obj := decode(t, `{
		"id": "story3",
		"actors": [{"id": "u2", "name": "Max"}],
		"attachments": [{
			"url": "https://www.facebook.com/some/video/",
			"media": {
				"id": "v1",
				"__typename": "Video",
				"publish_time": 1700000000,
				"title": {"text": "launch recap"},
				"progressive_urls": [
					{"progressive_url": "https://cdn/v1-sd.mp4", "metadata": {"quality": "SD"}},
					{"progressive_url": "https://cdn/v1-hd.mp4", "metadata": {"quality": "HD"}}
				]
			}
		}]
	}`)

	story, ok := ClassifyStory(obj)
	require.True(t, ok)
	assert.Equal(t, StoryVideo, story.Kind)
	assert.Equal(t, "launch recap", story.Title)

	media := story.PrimaryMedia()
	require.NotNil(t, media)
	assert.Equal(t, MediaVideo, media.Kind)
	assert.Equal(t, "https://cdn/v1-hd.mp4", media.URL)
	assert.Equal(t, int64(1700000000), media.PublishTime)
	assert.Equal(t, "https://www.facebook.com/watch/?v=v1", story.CanonicalURL())
}

func TestClassifyStoryVideoRequiresPublishTime(t *testing.T) {
	obj := decode(t, `{
		"id": "story4",
		"attachments": [{
			"url": "https://www.facebook.com/some/video/",
			"media": {"id": "v2", "__typename": "Video"}
		}]
	}`)

	_, ok := ClassifyStory(obj)
	assert.False(t, ok)
}

func TestClassifyStoryWatch(t *testing.T) {
	obj := decode(t, `{
		"id": "story5",
		"attachments": [{
			"media": {
				"id": "v3",
				"__typename": "Video",
				"name": "full episode",
				"creation_story": {"comet_sections": {}}
			}
		}]
	}`)

	story, ok := ClassifyStory(obj)
	require.True(t, ok)
	assert.Equal(t, StoryWatch, story.Kind)
	assert.Equal(t, "full episode", story.Title)
	// no post_id, dedup key falls back to id
	assert.Equal(t, "story5", story.Key())

	media := story.PrimaryMedia()
	require.NotNil(t, media)
	assert.Equal(t, MediaWatchVideo, media.Kind)
	assert.Empty(t, media.URL)
}

func TestClassifyStoryVideoBeforeWatch(t *testing.T) {
	// A node satisfying both variants must classify as Video: the stricter
	// check runs first.
	obj := decode(t, `{
		"id": "story6",
		"attachments": [{
			"url": "https://www.facebook.com/some/video/",
			"media": {
				"id": "v4",
				"__typename": "Video",
				"publish_time": 1700000001,
				"creation_story": {"comet_sections": {}}
			}
		}]
	}`)

	story, ok := ClassifyStory(obj)
	require.True(t, ok)
	assert.Equal(t, StoryVideo, story.Kind)
}

func TestClassifyStoryAttachedStory(t *testing.T) {
	obj := decode(t, `{
		"id": "outer",
		"post_id": "outer-post",
		"message": {"text": "sharing this"},
		"attachments": [],
		"attached_story": {
			"id": "inner",
			"post_id": "inner-post",
			"message": {"text": "original"},
			"attachments": []
		}
	}`)

	story, ok := ClassifyStory(obj)
	require.True(t, ok)
	require.NotNil(t, story.AttachedStory)
	assert.Equal(t, "inner-post", story.AttachedStory.PostID)
	assert.Equal(t, "original", story.AttachedStory.Message)
}

func TestBestImagePicksLargestArea(t *testing.T) {
	obj := decode(t, `{
		"id": "m9",
		"__typename": "Photo",
		"image": {"uri": "https://cdn/small.jpg", "width": 320, "height": 240},
		"photo_image": {"uri": "https://cdn/large.jpg", "width": 2048, "height": 1536},
		"viewer_image": {"uri": "https://cdn/medium.jpg", "width": 1080, "height": 720}
	}`)

	media, ok := classifyMedia(obj)
	require.True(t, ok)
	assert.Equal(t, "https://cdn/large.jpg", media.URL)
	assert.Equal(t, 2048, media.Width)
	assert.Equal(t, 1536, media.Height)
}

func TestBestProgressiveURLLegacyFields(t *testing.T) {
	obj := decode(t, `{
		"id": "v9",
		"__typename": "Video",
		"videoDeliveryLegacyFields": {
			"progressive_urls": [
				{"progressive_url": "https://cdn/v9-sd.mp4", "metadata": {"quality": "SD"}}
			]
		}
	}`)

	media, ok := classifyMedia(obj)
	require.True(t, ok)
	assert.Equal(t, MediaVideo, media.Kind)
	// no HD stream, first with a URL wins
	assert.Equal(t, "https://cdn/v9-sd.mp4", media.URL)
}

func TestClassifyMediaUnknownTypename(t *testing.T) {
	obj := decode(t, `{"id": "m", "__typename": "Sticker"}`)
	_, ok := classifyMedia(obj)
	assert.False(t, ok)
}
