package facebook

// StoryKind discriminates the story variants found in feed responses
type StoryKind string

const (
	// StoryPost is an ordinary feed post: text, photos, videos, or a mix
	StoryPost StoryKind = "post"
	// StoryVideo is a post whose single attachment is an embedded video
	StoryVideo StoryKind = "video"
	// StoryWatch is a Watch-style video post; its playable URL is only
	// recoverable from DASH prefetch data, not from the post payload
	StoryWatch StoryKind = "watch"
)

// MediaKind discriminates the downloadable media variants
type MediaKind string

const (
	MediaPhoto      MediaKind = "photo"
	MediaVideo      MediaKind = "video"
	MediaWatchVideo MediaKind = "watch_video"
)

// User is the author of a story
type User struct {
	ID   string
	Name string
}

// Group is the group a story was posted in. Group association arrives in a
// separate correlation record and is joined to the story by id.
type Group struct {
	ID   string
	Name string
}

// Media is one downloadable image or video unit referenced by a story's
// attachments. URL is the selected download URL: the largest image candidate
// for photos, the preferred progressive stream for videos, and empty for
// watch videos until the DASH cache supplies one.
type Media struct {
	Kind        MediaKind
	ID          string
	Typename    string
	URL         string
	Width       int
	Height      int
	PublishTime int64
}

// Subattachments is the collection form of a post's attachment container.
// Count is the authoritative total; Nodes is usually only a prefix of it.
type Subattachments struct {
	Count int
	Nodes []*Media
}

// Attachment is one entry of a post's attachment list: a single media
// reference, an all_subattachments collection, or a collection whose nodes
// were elided upstream, in which case Media carries the cover item.
type Attachment struct {
	Media          *Media
	Subattachments *Subattachments
}

// Story is the normalized representation of one feed post.
type Story struct {
	Kind StoryKind

	// ID keys the metadata caches. PostID keys dedup and folder naming;
	// the two are not always equal, and Watch stories have no PostID.
	ID     string
	PostID string

	// URL is the post's own canonical URL (Post variant only; Video and
	// Watch synthesize a watch URL from the media id instead).
	URL string

	Message string
	Title   string
	Actor   *User

	Attachments []Attachment

	// AttachedStory is a shared/quoted post nested inside this one. It is
	// never surfaced as a top-level story by the extractor.
	AttachedStory *Story
}

// Key returns the business key used for dedup: post_id, or id for Watch
// stories since they carry no post_id.
func (s *Story) Key() string {
	if s.Kind == StoryWatch {
		return s.ID
	}
	return s.PostID
}

// ActorName returns the author's name, or "" when unknown
func (s *Story) ActorName() string {
	if s.Actor == nil {
		return ""
	}
	return s.Actor.Name
}

// PrimaryMedia returns the first embedded media reference, or nil. For the
// Video and Watch variants this is the video the post is about.
func (s *Story) PrimaryMedia() *Media {
	for _, att := range s.Attachments {
		if att.Media != nil {
			return att.Media
		}
		if att.Subattachments != nil && len(att.Subattachments.Nodes) > 0 {
			return att.Subattachments.Nodes[0]
		}
	}
	return nil
}

// CanonicalURL returns the permalink for the story. Posts carry their own;
// video variants derive a watch URL from the media id.
func (s *Story) CanonicalURL() string {
	switch s.Kind {
	case StoryPost:
		return s.URL
	case StoryVideo, StoryWatch:
		if m := s.PrimaryMedia(); m != nil {
			return WatchURL(m.ID)
		}
		return ""
	default:
		return ""
	}
}
