// Package memstore is an in-memory document store used for tests and local dry runs
package memstore

import (
	"context"
	"maps"
	"net/http"
	"sync"

	"github.com/Gobusters/ectoerror/httperror"

	"github.com/Ramsey-B/sorrel/pkg/models"
	"github.com/Ramsey-B/sorrel/pkg/policy"
)

// Store holds documents in insertion order
type Store struct {
	mu     sync.RWMutex
	docs   []*models.Document
	byID   map[string]*models.Document
	failOn map[string]error
	calls  []Call
}

// Call records a write made against the store
type Call struct {
	Op         string
	ID         string
	Properties map[string]any
}

// New creates a store seeded with documents
func New(docs ...models.Document) *Store {
	s := &Store{
		byID:   make(map[string]*models.Document),
		failOn: make(map[string]error),
	}
	for _, d := range docs {
		s.Put(d)
	}
	return s
}

// Put inserts or replaces a document
func (s *Store) Put(doc models.Document) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d := doc
	d.Properties = maps.Clone(doc.Properties)
	if existing, ok := s.byID[d.ID]; ok {
		*existing = d
		return
	}
	s.docs = append(s.docs, &d)
	s.byID[d.ID] = &d
}

// FailOn makes every write to id return err
func (s *Store) FailOn(id string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failOn[id] = err
}

// Get returns a copy of a document
func (s *Store) Get(id string) (models.Document, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.byID[id]
	if !ok {
		return models.Document{}, false
	}
	out := *d
	out.Properties = maps.Clone(d.Properties)
	return out, true
}

// Calls returns the writes made so far
func (s *Store) Calls() []Call {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Call, len(s.calls))
	copy(out, s.calls)
	return out
}

// QueryAll returns every unarchived document matching the filter
func (s *Store) QueryAll(ctx context.Context, collection string, filter *models.QueryFilter) ([]models.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Document, 0, len(s.docs))
	for _, d := range s.docs {
		if d.Archived {
			continue
		}
		if collection != "" && d.Collection != "" && d.Collection != collection {
			continue
		}
		if !matches(d, filter) {
			continue
		}
		doc := *d
		doc.Properties = maps.Clone(d.Properties)
		out = append(out, doc)
	}
	return out, nil
}

// UpdatePartial merges properties into the document
func (s *Store) UpdatePartial(ctx context.Context, id string, properties map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls = append(s.calls, Call{Op: "update", ID: id, Properties: maps.Clone(properties)})
	d, err := s.writable(id)
	if err != nil {
		return err
	}
	if d.Properties == nil {
		d.Properties = make(map[string]any, len(properties))
	}
	maps.Copy(d.Properties, properties)
	return nil
}

// Archive marks the document archived
func (s *Store) Archive(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls = append(s.calls, Call{Op: "archive", ID: id})
	d, err := s.writable(id)
	if err != nil {
		return err
	}
	d.Archived = true
	return nil
}

func (s *Store) writable(id string) (*models.Document, error) {
	if err, ok := s.failOn[id]; ok {
		return nil, err
	}
	d, ok := s.byID[id]
	if !ok {
		return nil, httperror.NewHTTPErrorf(http.StatusNotFound, "document %s not found", id)
	}
	if d.Archived {
		return nil, httperror.NewHTTPErrorf(http.StatusConflict, "document %s is archived", id)
	}
	return d, nil
}

func matches(d *models.Document, filter *models.QueryFilter) bool {
	if filter == nil {
		return true
	}
	for key, want := range filter.Properties {
		got, ok := policy.ReadPath(d.Properties, key)
		if !ok || !policy.Equivalent(got, want) {
			return false
		}
	}
	return true
}
