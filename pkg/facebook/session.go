package facebook

import (
	"sync"
	"time"
)

// Session holds the per-browsing-session caches that cross-reference
// out-of-band metadata to stories. Caches are populated incrementally by
// every parse pass, only ever grow, and live until Reset at teardown.
//
// The attachment memo is keyed by story instance, not id: resolution is a
// memoized operation on a specific in-memory story.
type Session struct {
	mu sync.RWMutex

	createTimeByStoryID map[string]int64
	groupByStoryID      map[string]Group
	videoURLByVideoID   map[string]string
	attachmentsByStory  map[*Story][]*Media
}

// NewSession creates an empty session
func NewSession() *Session {
	s := &Session{}
	s.init()
	return s
}

func (s *Session) init() {
	s.createTimeByStoryID = make(map[string]int64)
	s.groupByStoryID = make(map[string]Group)
	s.videoURLByVideoID = make(map[string]string)
	s.attachmentsByStory = make(map[*Story][]*Media)
}

// Reset clears every cache. Only meant for session teardown.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.init()
}

// SetCreateTime records a story's creation timestamp. First write wins.
func (s *Session) SetCreateTime(storyID string, unix int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.createTimeByStoryID[storyID]; !ok {
		s.createTimeByStoryID[storyID] = unix
	}
}

// CreateTime returns the cached creation time for a story id
func (s *Session) CreateTime(storyID string) (time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	unix, ok := s.createTimeByStoryID[storyID]
	if !ok {
		return time.Time{}, false
	}
	return time.Unix(unix, 0).UTC(), true
}

// SetGroup records the parent group of a story. First write wins.
func (s *Session) SetGroup(storyID string, group Group) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.groupByStoryID[storyID]; !ok {
		s.groupByStoryID[storyID] = group
	}
}

// GroupFor returns the cached parent group for a story id
func (s *Session) GroupFor(storyID string) (Group, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	group, ok := s.groupByStoryID[storyID]
	return group, ok
}

// SetVideoURL records the alternate playable URL for a video id. First
// write wins.
func (s *Session) SetVideoURL(videoID, url string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.videoURLByVideoID[videoID]; !ok {
		s.videoURLByVideoID[videoID] = url
	}
}

// VideoURL returns the cached playable URL for a video id
func (s *Session) VideoURL(videoID string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	url, ok := s.videoURLByVideoID[videoID]
	return url, ok
}

// HasVideoURL reports whether a video id is already cached
func (s *Session) HasVideoURL(videoID string) bool {
	_, ok := s.VideoURL(videoID)
	return ok
}

// cachedAttachments returns the memoized resolution for a story instance
func (s *Session) cachedAttachments(story *Story) ([]*Media, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	list, ok := s.attachmentsByStory[story]
	return list, ok
}

// storeAttachments memoizes a completed resolution for a story instance
func (s *Session) storeAttachments(story *Story, list []*Media) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attachmentsByStory[story] = list
}
