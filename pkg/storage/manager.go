// Package storage handles writing saved files under the output directory
// and tracking what already exists there.
package storage

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// Manager handles file storage operations and duplicate detection. Files
// live in per-story subfolders beneath the output directory, so paths are
// relative and may contain separators.
type Manager struct {
	outputDir  string
	savedFiles map[string]bool
	mu         sync.RWMutex
}

// NewManager creates a new storage manager rooted at outputDir
func NewManager(outputDir string) (*Manager, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	manager := &Manager{
		outputDir:  outputDir,
		savedFiles: make(map[string]bool),
	}

	if err := manager.scanExistingFiles(); err != nil {
		return nil, fmt.Errorf("failed to scan existing files: %w", err)
	}

	return manager, nil
}

// scanExistingFiles records every file already under the output directory
// for duplicate detection
func (m *Manager) scanExistingFiles() error {
	return filepath.WalkDir(m.outputDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(m.outputDir, path)
		if err != nil {
			return err
		}
		m.savedFiles[filepath.ToSlash(rel)] = true
		return nil
	})
}

// IsDownloaded checks if a file at the given relative path was already saved
func (m *Manager) IsDownloaded(relPath string) bool {
	relPath = filepath.ToSlash(relPath)

	m.mu.RLock()
	known := m.savedFiles[relPath]
	m.mu.RUnlock()
	if known {
		return true
	}

	if _, err := os.Stat(filepath.Join(m.outputDir, filepath.FromSlash(relPath))); err == nil {
		m.mu.Lock()
		m.savedFiles[relPath] = true
		m.mu.Unlock()
		return true
	}

	return false
}

// SaveFile saves data to the given relative path, creating parent folders as
// needed. The write goes through a temp file and an atomic rename.
func (m *Manager) SaveFile(r io.Reader, relPath string) error {
	relPath = filepath.ToSlash(relPath)
	target := filepath.Join(m.outputDir, filepath.FromSlash(relPath))

	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return fmt.Errorf("failed to create story folder: %w", err)
	}

	tempFile := target + ".tmp"
	out, err := os.Create(tempFile)
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}

	_, err = io.Copy(out, r)
	closeErr := out.Close()

	if err != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to save file data: %w", err)
	}
	if closeErr != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to close file: %w", closeErr)
	}

	if err := os.Rename(tempFile, target); err != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to rename temporary file: %w", err)
	}

	m.mu.Lock()
	m.savedFiles[relPath] = true
	m.mu.Unlock()

	return nil
}

// GetOutputDir returns the output directory path
func (m *Manager) GetOutputDir() string {
	return m.outputDir
}

// GetSavedCount returns the number of saved files
func (m *Manager) GetSavedCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.savedFiles)
}
