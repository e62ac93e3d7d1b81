// Package store provides the in-memory incident store for the daemon.
// It is the single source of truth: everything handed out is a copy, and
// every operation runs under the store lock so concurrent creates can
// never lose an update or reuse an id.
package store

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/opswatch/incidentd/errors"
	"github.com/opswatch/incidentd/pkg/models"
)

// Store owns the canonical id → incident mapping and the id counter.
type Store struct {
	mu        sync.RWMutex
	incidents map[int64]*models.Incident
	nextID    int64
}

// New creates an empty Store. The first incident gets id 1.
func New() *Store {
	return &Store{
		incidents: make(map[int64]*models.Incident),
		nextID:    1,
	}
}

// Create validates the inputs, allocates the next id and stores a new
// pending incident. Both timestamps are stamped equal. The returned
// incident is a copy.
func (s *Store) Create(title, description, author string) (*models.Incident, error) {
	if strings.TrimSpace(title) == "" {
		return nil, errors.MissingField("title")
	}
	if strings.TrimSpace(description) == "" {
		return nil, errors.MissingField("description")
	}
	if strings.TrimSpace(author) == "" {
		author = models.AnonymousAuthor
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	inc := &models.Incident{
		ID:          s.nextID,
		Title:       title,
		Description: description,
		Author:      author,
		State:       models.StatePending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.nextID++
	s.incidents[inc.ID] = inc

	return inc.Clone(), nil
}

// UpdateState moves an incident to newState. Any state may follow any
// other, including the same one: a repeated state still refreshes
// UpdatedAt so the change stays observable downstream. Returns the
// updated incident and the state it had before.
func (s *Store) UpdateState(id int64, newState, actor string) (*models.Incident, models.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Existence is checked before the state value, so an unknown id is
	// always NOT_FOUND even when the requested state is also bad.
	inc, exists := s.incidents[id]
	if !exists {
		return nil, "", errors.IncidentNotFound(id)
	}

	state, ok := models.ParseState(newState)
	if !ok {
		return nil, "", errors.InvalidState(newState, models.ValidStates())
	}

	previous := inc.State
	inc.State = state
	inc.UpdatedAt = time.Now()
	if strings.TrimSpace(actor) != "" {
		inc.LastModifier = actor
	}

	return inc.Clone(), previous, nil
}

// Delete removes an incident permanently. Ids are never reused.
func (s *Store) Delete(id int64) (*models.Incident, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	inc, exists := s.incidents[id]
	if !exists {
		return nil, errors.IncidentNotFound(id)
	}
	delete(s.incidents, id)

	return inc.Clone(), nil
}

// Get returns a copy of a single incident.
func (s *Store) Get(id int64) (*models.Incident, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	inc, exists := s.incidents[id]
	if !exists {
		return nil, errors.IncidentNotFound(id)
	}
	return inc.Clone(), nil
}

// List returns copies of all incidents in insertion order (ascending id),
// so clients can diff successive snapshots deterministically.
func (s *Store) List() []*models.Incident {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*models.Incident, 0, len(s.incidents))
	for _, inc := range s.incidents {
		result = append(result, inc.Clone())
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

// Len returns the number of stored incidents.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.incidents)
}
