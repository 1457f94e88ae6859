// Package saver orchestrates the full pipeline: load a capture, extract and
// deduplicate stories, resolve attachments, render markdown, and hand the
// resulting files to the download pool.
package saver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"fbsaver/internal/downloader"
	"fbsaver/pkg/archive"
	"fbsaver/pkg/config"
	"fbsaver/pkg/facebook"
	"fbsaver/pkg/logger"
	"fbsaver/pkg/ratelimit"
	"fbsaver/pkg/render"
	"fbsaver/pkg/storage"
)

// Stats summarizes one saving run
type Stats struct {
	Stories     int
	Skipped     int
	FilesSaved  int
	FilesFailed int
	MediaQueued int
	Duration    time.Duration
}

// Saver wires the feed pipeline together
type Saver struct {
	session    *facebook.Session
	client     *facebook.Client
	resolver   *facebook.Resolver
	storage    *storage.Manager
	archiveMgr *archive.Manager
	pool       *downloader.WorkerPool
	config     *config.Config
	logger     logger.Logger

	// seen dedupes stories across all responses of a run
	seen map[string]bool
}

// New creates a Saver instance from configuration
func New(cfg *config.Config) (*Saver, error) {
	log := logger.GetLogger()

	var apiLimiter ratelimit.Limiter
	if cfg.RateLimit.RequestsPerMinute > 0 {
		apiLimiter = ratelimit.NewSlidingWindow(cfg.RateLimit.RequestsPerMinute, time.Minute)
	} else {
		apiLimiter = ratelimit.NewSlidingWindow(60, time.Minute)
	}

	client := facebook.NewClient(cfg.Download.DownloadTimeout, apiLimiter, log)

	var cookies []string
	if cfg.Facebook.CUser != "" {
		cookies = append(cookies, fmt.Sprintf("c_user=%s", cfg.Facebook.CUser))
	}
	if cfg.Facebook.XS != "" {
		cookies = append(cookies, fmt.Sprintf("xs=%s", cfg.Facebook.XS))
	}
	if len(cookies) > 0 {
		client.SetHeader("Cookie", strings.Join(cookies, "; "))
	}
	if cfg.Facebook.UserAgent != "" {
		client.SetHeader("User-Agent", cfg.Facebook.UserAgent)
	}

	storageManager, err := storage.NewManager(cfg.Output.BaseDirectory)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage manager: %w", err)
	}

	archiveMgr, err := archive.NewManager(cfg.Output.BaseDirectory)
	if err != nil {
		return nil, fmt.Errorf("failed to create archive manager: %w", err)
	}

	fetcher := downloader.NewHTTPFetcher(
		cfg.Download.DownloadTimeout,
		cfg.Download.RetryAttempts,
		cfg.Facebook.UserAgent,
	)

	downloadLimiter := ratelimit.NewTokenBucket(cfg.RateLimit.RequestsPerMinute, time.Minute)
	pool := downloader.NewWorkerPool(
		cfg.Download.ConcurrentDownloads,
		fetcher,
		storageManager,
		downloadLimiter,
		log,
	)

	session := facebook.NewSession()

	return &Saver{
		session:    session,
		client:     client,
		resolver:   facebook.NewResolver(session, client, log),
		storage:    storageManager,
		archiveMgr: archiveMgr,
		pool:       pool,
		config:     cfg,
		logger:     log,
		seen:       make(map[string]bool),
	}, nil
}

// ProcessCapture runs the full pipeline over a JSONL capture file
func (s *Saver) ProcessCapture(ctx context.Context, path string) (*Stats, error) {
	capture, err := facebook.LoadCapture(path)
	if err != nil {
		return nil, err
	}

	capture.Register(s.client)

	s.logger.InfoWithFields("capture loaded", map[string]interface{}{
		"path":       path,
		"operations": len(capture.Operations),
		"responses":  len(capture.Responses),
	})

	return s.ProcessResponses(ctx, capture.Responses)
}

// ProcessResponses extracts, resolves, and saves every story found in the
// given raw GraphQL responses. Metadata from all responses is correlated
// before any story is processed, since a story and its creation time or
// parent group often arrive in different responses.
func (s *Saver) ProcessResponses(ctx context.Context, responses []json.RawMessage) (*Stats, error) {
	start := time.Now()
	stats := &Stats{}

	roots := make([]interface{}, 0, len(responses))
	for i, raw := range responses {
		var root interface{}
		if err := json.Unmarshal(raw, &root); err != nil {
			s.logger.WarnWithFields("skipping undecodable response", map[string]interface{}{
				"index": i,
				"error": err.Error(),
			})
			continue
		}
		roots = append(roots, root)
	}

	// Metadata first so every story sees the complete caches
	for _, root := range roots {
		facebook.CollectMetadata(s.session, root)
	}

	var stories []*facebook.Story
	for _, root := range roots {
		for _, story := range facebook.ExtractStories(root) {
			if s.seen[story.Key()] {
				continue
			}
			s.seen[story.Key()] = true
			stories = append(stories, story)
		}
	}
	stats.Stories = len(stories)

	s.logger.InfoWithFields("extraction complete", map[string]interface{}{
		"responses": len(roots),
		"stories":   len(stories),
	})

	arch, err := s.archiveMgr.LoadOrCreate()
	if err != nil {
		return nil, err
	}

	s.pool.Start()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for result := range s.pool.Results() {
			if result.Success {
				stats.FilesSaved++
			} else {
				stats.FilesFailed++
				s.logger.WarnWithFields("file not saved", map[string]interface{}{
					"story_id": result.Job.StoryID,
					"filename": result.Job.Filename,
					"error":    fmt.Sprint(result.Error),
				})
			}
		}
	}()

	for _, story := range stories {
		if arch.IsSaved(story.Key()) {
			stats.Skipped++
			s.logger.DebugWithFields("story already archived", map[string]interface{}{
				"story_id": story.ID,
				"key":      story.Key(),
			})
			continue
		}

		folder, queued := s.processStory(ctx, story)
		stats.MediaQueued += queued

		if err := s.archiveMgr.Record(arch, story.Key(), folder); err != nil {
			s.logger.WithError(err).Warn("failed to update archive")
		}
	}

	s.pool.Stop()
	wg.Wait()

	stats.Duration = time.Since(start)
	s.logger.InfoWithFields("run complete", map[string]interface{}{
		"stories":      stats.Stories,
		"skipped":      stats.Skipped,
		"files_saved":  stats.FilesSaved,
		"files_failed": stats.FilesFailed,
		"duration":     stats.Duration.String(),
	})

	return stats, nil
}

// processStory resolves one story, queues its media, renders the markdown
// document, and queues that too. Returns the destination folder and the
// number of jobs queued.
func (s *Saver) processStory(ctx context.Context, story *facebook.Story) (string, int) {
	in := s.renderInput(story)
	folder := render.FolderName(in)
	queued := 0

	attachments := s.resolver.Resolve(ctx, story, func(m *facebook.Media) {
		if job, ok := s.mediaJob(story, folder, m); ok {
			if err := s.pool.Submit(job); err != nil {
				s.logger.WithError(err).Warn("failed to queue media download")
				return
			}
			queued++
		}
	})
	in.Attachments = attachments

	if story.AttachedStory != nil {
		in.Nested = s.renderNested(ctx, story.AttachedStory, folder, &queued)
	}

	doc := render.Document(in)
	job := downloader.DownloadJob{
		StoryID:  story.ID,
		URL:      render.DataURL(doc),
		Filename: folder + "/index.md",
	}
	if err := s.pool.Submit(job); err != nil {
		s.logger.WithError(err).Warn("failed to queue document")
	} else {
		queued++
	}

	return folder, queued
}

// renderNested resolves and renders an attached story. Its media land in the
// parent's folder and its text is blockquoted into the parent document
// rather than getting a document of its own.
func (s *Saver) renderNested(ctx context.Context, nested *facebook.Story, folder string, queued *int) string {
	attachments := s.resolver.Resolve(ctx, nested, func(m *facebook.Media) {
		if job, ok := s.mediaJob(nested, folder, m); ok {
			if err := s.pool.Submit(job); err != nil {
				s.logger.WithError(err).Warn("failed to queue nested media download")
				return
			}
			*queued++
		}
	})

	in := s.renderInput(nested)
	in.Attachments = attachments
	return render.Document(in)
}

// renderInput joins a story against the session metadata caches
func (s *Saver) renderInput(story *facebook.Story) render.Input {
	in := render.Input{Story: story}
	if t, ok := s.session.CreateTime(story.ID); ok {
		in.CreateTime = t
	}
	if group, ok := s.session.GroupFor(story.ID); ok {
		in.GroupName = group.Name
	}
	return in
}

// mediaJob builds the download job for one media item, honoring the
// skip-photos and skip-videos settings
func (s *Saver) mediaJob(story *facebook.Story, folder string, m *facebook.Media) (downloader.DownloadJob, bool) {
	if m.URL == "" {
		return downloader.DownloadJob{}, false
	}

	var ext string
	switch m.Kind {
	case facebook.MediaPhoto:
		if s.config.Download.SkipImages {
			return downloader.DownloadJob{}, false
		}
		ext = ".jpg"
	case facebook.MediaVideo, facebook.MediaWatchVideo:
		if s.config.Download.SkipVideos {
			return downloader.DownloadJob{}, false
		}
		ext = ".mp4"
	default:
		return downloader.DownloadJob{}, false
	}

	return downloader.DownloadJob{
		StoryID:  story.ID,
		URL:      m.URL,
		Filename: folder + "/" + m.ID + ext,
	}, true
}
