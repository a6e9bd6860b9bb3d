// Package mocks provides test doubles for the appforge collaborator interfaces
package mocks

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/appforge/appforge/internal/interfaces"
)

// ProjectStore implements interfaces.ProjectStore in memory for testing.
// Documents are deep-copied through JSON on every load and save so tests see
// the same isolation a file-backed store provides.
type ProjectStore struct {
	documents  map[string][]byte
	shouldFail map[string]error
	saveCount  int
	mutex      sync.RWMutex
}

// NewProjectStore creates an empty in-memory project store
func NewProjectStore() *ProjectStore {
	return &ProjectStore{
		documents:  make(map[string][]byte),
		shouldFail: make(map[string]error),
	}
}

// SetShouldFail configures the store to fail for a specific method
func (s *ProjectStore) SetShouldFail(method string, err error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.shouldFail[method] = err
}

// Seed stores a document directly, bypassing failure injection
func (s *ProjectStore) Seed(project string, doc *interfaces.ProjectDocument) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	data, err := json.Marshal(doc)
	if err != nil {
		panic(fmt.Sprintf("mocks: failed to seed project document: %v", err))
	}
	s.documents[project] = data
}

// Load returns a deep copy of the stored document. Like a real store it
// refuses to operate on a done context.
func (s *ProjectStore) Load(ctx context.Context, project string) (*interfaces.ProjectDocument, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if err := s.shouldFail["Load"]; err != nil {
		return nil, err
	}
	data, ok := s.documents[project]
	if !ok {
		return nil, fmt.Errorf("project document for %q not found", project)
	}

	doc := &interfaces.ProjectDocument{}
	if err := json.Unmarshal(data, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// Save stores a deep copy of the document, refusing a done context
func (s *ProjectStore) Save(ctx context.Context, project string, doc *interfaces.ProjectDocument) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if err := s.shouldFail["Save"]; err != nil {
		return err
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	s.documents[project] = data
	s.saveCount++
	return nil
}

// SaveCount returns how many saves have succeeded
func (s *ProjectStore) SaveCount() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.saveCount
}

// Ensure ProjectStore implements interfaces.ProjectStore
var _ interfaces.ProjectStore = (*ProjectStore)(nil)
