// Package archive keeps a ledger of already-saved posts so repeated runs
// over overlapping feed captures skip work instead of redoing it.
package archive

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"fbsaver/pkg/logger"
)

// Archive maps saved post ids to the folder each was saved under
type Archive struct {
	SavedPosts map[string]string `json:"saved_posts"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
	Version    int               `json:"version"`
}

// Manager handles archive persistence
type Manager struct {
	archivePath string
	logger      logger.Logger
}

// NewManager creates an archive manager storing its ledger inside the
// output directory
func NewManager(outputDir string) (*Manager, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	return &Manager{
		archivePath: filepath.Join(outputDir, ".fbsaver-archive.json"),
		logger:      logger.GetLogger(),
	}, nil
}

// Exists reports whether an archive file is present
func (m *Manager) Exists() bool {
	_, err := os.Stat(m.archivePath)
	return err == nil
}

// Load loads the archive, returning nil without error when none exists
func (m *Manager) Load() (*Archive, error) {
	file, err := os.Open(m.archivePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open archive file: %w", err)
	}
	defer file.Close()

	var archive Archive
	if err := json.NewDecoder(file).Decode(&archive); err != nil {
		return nil, fmt.Errorf("failed to decode archive: %w", err)
	}
	if archive.SavedPosts == nil {
		archive.SavedPosts = make(map[string]string)
	}

	return &archive, nil
}

// LoadOrCreate loads the archive, creating a fresh one if none exists
func (m *Manager) LoadOrCreate() (*Archive, error) {
	archive, err := m.Load()
	if err != nil {
		return nil, err
	}
	if archive != nil {
		return archive, nil
	}

	archive = &Archive{
		SavedPosts: make(map[string]string),
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
		Version:    1,
	}
	if err := m.Save(archive); err != nil {
		return nil, fmt.Errorf("failed to save initial archive: %w", err)
	}

	m.logger.InfoWithFields("archive created", map[string]interface{}{
		"path": m.archivePath,
	})

	return archive, nil
}

// Save persists the archive atomically
func (m *Manager) Save(archive *Archive) error {
	archive.UpdatedAt = time.Now()

	data, err := json.MarshalIndent(archive, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode archive: %w", err)
	}

	tempPath := m.archivePath + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write archive: %w", err)
	}
	if err := os.Rename(tempPath, m.archivePath); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to rename archive: %w", err)
	}

	return nil
}

// Record marks a post as saved and persists the ledger
func (m *Manager) Record(archive *Archive, postID, folder string) error {
	archive.SavedPosts[postID] = folder
	if err := m.Save(archive); err != nil {
		return err
	}

	m.logger.DebugWithFields("post recorded in archive", map[string]interface{}{
		"post_id": postID,
		"folder":  folder,
	})

	return nil
}

// IsSaved reports whether a post was already saved
func (a *Archive) IsSaved(postID string) bool {
	if a == nil {
		return false
	}
	_, ok := a.SavedPosts[postID]
	return ok
}

// Delete removes the archive file
func (m *Manager) Delete() error {
	if err := os.Remove(m.archivePath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete archive: %w", err)
	}
	return nil
}
