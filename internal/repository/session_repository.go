package repository

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/Lixing-Zhang/menu-extractor/internal/pipeline"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionExists   = errors.New("session already exists")
)

// SessionRepository defines the interface for editing session storage
type SessionRepository interface {
	Create(ctx context.Context, s *pipeline.Session) error
	Get(ctx context.Context, id string) (*pipeline.Session, error)
	Delete(ctx context.Context, id string) (*pipeline.Session, error)
	List(ctx context.Context) ([]*pipeline.Session, error)
	// DeleteIdle removes sessions not updated since before and returns them
	DeleteIdle(ctx context.Context, before time.Time) ([]*pipeline.Session, error)
}

// InMemorySessionRepository implements SessionRepository with in-memory storage.
// Sessions live only as long as the process.
type InMemorySessionRepository struct {
	mu       sync.RWMutex
	sessions map[string]*pipeline.Session
}

// NewInMemorySessionRepository creates an empty repository
func NewInMemorySessionRepository() *InMemorySessionRepository {
	return &InMemorySessionRepository{
		sessions: make(map[string]*pipeline.Session),
	}
}

// Create stores a new session
func (r *InMemorySessionRepository) Create(ctx context.Context, s *pipeline.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sessions[s.ID()]; exists {
		return ErrSessionExists
	}
	r.sessions[s.ID()] = s
	return nil
}

// Get returns a session by its ID
func (r *InMemorySessionRepository) Get(ctx context.Context, id string) (*pipeline.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, exists := r.sessions[id]
	if !exists {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Delete removes a session and returns it so the caller can close it
func (r *InMemorySessionRepository) Delete(ctx context.Context, id string) (*pipeline.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, exists := r.sessions[id]
	if !exists {
		return nil, ErrSessionNotFound
	}
	delete(r.sessions, id)
	return s, nil
}

// List returns all sessions ordered by ID
func (r *InMemorySessionRepository) List(ctx context.Context) ([]*pipeline.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sessions := make([]*pipeline.Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].ID() < sessions[j].ID()
	})
	return sessions, nil
}

// DeleteIdle removes every session last updated before the given time
func (r *InMemorySessionRepository) DeleteIdle(ctx context.Context, before time.Time) ([]*pipeline.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var removed []*pipeline.Session
	for id, s := range r.sessions {
		if s.UpdatedAt().Before(before) {
			removed = append(removed, s)
			delete(r.sessions, id)
		}
	}
	return removed, nil
}
