// Package project persists the per-project JSON document holding deployment
// state, run history, and recorded environment outputs.
package project

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mitchellh/mapstructure"

	"github.com/appforge/appforge/internal/interfaces"
	"github.com/appforge/appforge/pkg/logging"
)

// File permissions for project documents; they can hold backend settings and
// secret references.
const (
	documentFileMode = 0o600
	documentDirMode  = 0o700
)

// FileStore stores one JSON document per project under a base directory
type FileStore struct {
	baseDir string
	logger  *logging.Logger
}

// NewFileStore creates a project document store rooted at baseDir
func NewFileStore(baseDir string) *FileStore {
	return &FileStore{
		baseDir: baseDir,
		logger:  logging.Project,
	}
}

// Load reads and decodes a project's document. A missing document is an
// invariant violation for deployment operations and surfaces as an error.
func (s *FileStore) Load(_ context.Context, project string) (*interfaces.ProjectDocument, error) {
	data, err := os.ReadFile(s.documentPath(project)) // #nosec G304 - path is derived from the configured project dir
	if err != nil {
		return nil, fmt.Errorf("failed to read project document for %q: %w", project, err)
	}

	// Decode through a generic map so documents written by older CLI versions
	// with extra or missing fields still load.
	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse project document for %q: %w", project, err)
	}

	doc := &interfaces.ProjectDocument{}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:     doc,
		TagName:    "json",
		DecodeHook: mapstructure.StringToTimeHookFunc(time.RFC3339Nano),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build document decoder: %w", err)
	}
	if err := decoder.Decode(raw); err != nil {
		return nil, fmt.Errorf("failed to decode project document for %q: %w", project, err)
	}
	return doc, nil
}

// Save atomically writes a project's document
func (s *FileStore) Save(_ context.Context, project string, doc *interfaces.ProjectDocument) error {
	if err := os.MkdirAll(s.baseDir, documentDirMode); err != nil {
		return fmt.Errorf("failed to create project directory: %w", err)
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode project document for %q: %w", project, err)
	}

	// Write-then-rename so a crash mid-write never leaves a corrupt document.
	target := s.documentPath(project)
	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, data, documentFileMode); err != nil {
		return fmt.Errorf("failed to write project document for %q: %w", project, err)
	}
	if err := os.Rename(tmp, target); err != nil {
		return fmt.Errorf("failed to replace project document for %q: %w", project, err)
	}
	s.logger.Debug("saved project document for %s", project)
	return nil
}

// Delete removes a project's document from disk. Callers must consult the
// delete guard first: removing the record never destroys cloud resources.
func (s *FileStore) Delete(_ context.Context, project string) error {
	if err := os.Remove(s.documentPath(project)); err != nil {
		return fmt.Errorf("failed to delete project document for %q: %w", project, err)
	}
	s.logger.Info("deleted project document for %s", project)
	return nil
}

// documentPath returns the on-disk location of a project's document
func (s *FileStore) documentPath(project string) string {
	return filepath.Join(s.baseDir, project+".json")
}

// Ensure FileStore implements interfaces.ProjectStore
var _ interfaces.ProjectStore = (*FileStore)(nil)
