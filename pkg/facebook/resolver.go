package facebook

import (
	"context"
	"time"

	"fbsaver/pkg/logger"
	"fbsaver/pkg/retry"
)

// navigationDelay is the fixed pause between successive navigation calls of
// one walk. Static policy, not per-call configurable.
const navigationDelay = 200 * time.Millisecond

// NavigationPage is one step of a media navigation walk. A nil Media means
// the upstream reported end-of-data, which is not an error.
type NavigationPage struct {
	Media  *Media
	NextID string
}

// Navigator is the network collaborator the resolver walks pagination
// through. Implemented by the GraphQL replay client.
type Navigator interface {
	NextMedia(ctx context.Context, kind MediaKind, nodeID, mediasetToken string) (*NavigationPage, error)
}

// Resolver assembles the complete ordered attachment list for a story, even
// when the embedded data under-represents the authoritative count. Results
// are memoized per story instance in the session; a second Resolve on the
// same instance replays the cached list without network access.
//
// Concurrent Resolve calls for the same story instance before the first one
// completes are not deduplicated; callers wanting single-flight semantics
// must serialize per instance themselves.
type Resolver struct {
	session *Session
	nav     Navigator
	logger  logger.Logger

	// sleep is swapped for a no-op in tests
	sleep func(ctx context.Context, d time.Duration) error
}

// NewResolver creates an attachment resolver bound to a session and a
// navigation collaborator
func NewResolver(session *Session, nav Navigator, log logger.Logger) *Resolver {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Resolver{
		session: session,
		nav:     nav,
		logger:  log,
		sleep:   retry.Wait,
	}
}

// Resolve produces the ordered media list backing a story's attachments.
// Each item is delivered to onMedia as soon as it is known, before the walk
// completes, so downstream consumers can start acting early. Walk failures
// truncate rather than fail: callers get whatever was accumulated.
func (r *Resolver) Resolve(ctx context.Context, story *Story, onMedia func(*Media)) []*Media {
	if list, ok := r.session.cachedAttachments(story); ok {
		r.logger.DebugWithFields("attachment resolution cache hit", map[string]interface{}{
			"story_id":    story.ID,
			"media_count": len(list),
		})
		emitAll(list, onMedia)
		return list
	}

	var list []*Media
	switch story.Kind {
	case StoryWatch:
		list = r.resolveWatch(story, onMedia)
	default:
		list = r.resolvePost(ctx, story, onMedia)
	}

	r.session.storeAttachments(story, list)
	return list
}

// resolveWatch bypasses the pagination walk entirely: the single attachment's
// playable URL comes from the DASH prefetch cache. If the cache has nothing
// for the video id, the story yields no attachment. Silent skip, not an error.
func (r *Resolver) resolveWatch(story *Story, onMedia func(*Media)) []*Media {
	media := story.PrimaryMedia()
	if media == nil {
		return nil
	}

	url, ok := r.session.VideoURL(media.ID)
	if !ok {
		r.logger.WarnWithFields("no cached video URL for watch story", map[string]interface{}{
			"story_id": story.ID,
			"video_id": media.ID,
		})
		return nil
	}

	resolved := *media
	resolved.URL = url
	emit(&resolved, onMedia)
	return []*Media{&resolved}
}

// resolvePost collects the embedded media and, when the embedded prefix is
// shorter than the authoritative count, walks the media navigation endpoint
// to discover the rest.
func (r *Resolver) resolvePost(ctx context.Context, story *Story, onMedia func(*Media)) []*Media {
	if len(story.Attachments) == 0 {
		return nil
	}

	var list []*Media
	count := 0
	for _, att := range story.Attachments {
		switch {
		case att.Subattachments != nil:
			count += att.Subattachments.Count
			nodes := att.Subattachments.Nodes
			if len(nodes) == 0 && att.Media != nil {
				// Node-less collection: the cover media seeds the walk
				// and is itself part of the authoritative count
				nodes = []*Media{att.Media}
			}
			for _, m := range nodes {
				list = append(list, m)
				emit(m, onMedia)
			}
		case att.Media != nil:
			count++
			list = append(list, att.Media)
			emit(att.Media, onMedia)
		}
	}

	if len(list) >= count || len(list) == 0 || story.PostID == "" {
		return list
	}

	return r.walk(ctx, story, list, count, onMedia)
}

// walk follows nextMediaAfterNodeId pointers starting from the last embedded
// media until the authoritative count is reached, the upstream reports
// end-of-data, a next pointer repeats, or the step budget runs out. The
// budget is max(10, count) navigation calls, which bounds the walk even
// against adversarial cyclic next pointers.
func (r *Resolver) walk(ctx context.Context, story *Story, list []*Media, count int, onMedia func(*Media)) []*Media {
	seed := list[len(list)-1]
	token := MediasetToken(story.PostID)

	budget := count
	if budget < 10 {
		budget = 10
	}

	have := make(map[string]bool, len(list))
	for _, m := range list {
		have[m.ID] = true
	}
	visited := map[string]bool{seed.ID: true}

	r.logger.DebugWithFields("starting attachment walk", map[string]interface{}{
		"story_id":  story.ID,
		"post_id":   story.PostID,
		"embedded":  len(list),
		"total":     count,
		"seed_id":   seed.ID,
		"max_steps": budget,
	})

	kind := seed.Kind
	cur := seed.ID
	for steps := 0; steps < budget && len(list) < count; steps++ {
		if steps > 0 {
			// Fixed pause between navigation calls to stay under
			// upstream rate limits
			if err := r.sleep(ctx, navigationDelay); err != nil {
				break
			}
		}

		page, err := r.nav.NextMedia(ctx, kind, cur, token)
		if err != nil {
			// Fail-soft: keep whatever was accumulated
			r.logger.WarnWithFields("attachment walk truncated", map[string]interface{}{
				"story_id": story.ID,
				"node_id":  cur,
				"error":    err.Error(),
			})
			break
		}
		if page == nil || page.Media == nil {
			// End of data
			break
		}

		if !have[page.Media.ID] {
			have[page.Media.ID] = true
			list = append(list, page.Media)
			kind = page.Media.Kind
			emit(page.Media, onMedia)
		}

		if page.NextID == "" || visited[page.NextID] {
			// Exhausted or cycling
			break
		}
		visited[page.NextID] = true
		cur = page.NextID
	}

	r.logger.DebugWithFields("attachment walk finished", map[string]interface{}{
		"story_id": story.ID,
		"resolved": len(list),
		"total":    count,
	})

	return list
}

func emit(m *Media, onMedia func(*Media)) {
	if onMedia != nil {
		onMedia(m)
	}
}

func emitAll(list []*Media, onMedia func(*Media)) {
	for _, m := range list {
		emit(m, onMedia)
	}
}
