package diagnostic

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Session, error)
	Save(ctx context.Context, s *Session) error
	Delete(ctx context.Context, id uuid.UUID) (*Session, error)
	Count(ctx context.Context) int
	// DeleteIdle removes and returns every session last active before cutoff.
	DeleteIdle(ctx context.Context, cutoff time.Time) []*Session
}

// memoryRepo keeps live sessions only for the lifetime of the process.
type memoryRepo struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session
}

func NewRepository() Repository {
	return &memoryRepo{sessions: make(map[uuid.UUID]*Session)}
}

func (r *memoryRepo) GetByID(_ context.Context, id uuid.UUID) (*Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return s, nil
}

func (r *memoryRepo) Save(_ context.Context, s *Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sessions[s.ID()] = s
	return nil
}

func (r *memoryRepo) Delete(_ context.Context, id uuid.UUID) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	delete(r.sessions, id)
	return s, nil
}

func (r *memoryRepo) Count(_ context.Context) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

func (r *memoryRepo) DeleteIdle(_ context.Context, cutoff time.Time) []*Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	var idle []*Session
	for id, s := range r.sessions {
		if s.LastActive().Before(cutoff) {
			idle = append(idle, s)
			delete(r.sessions, id)
		}
	}
	return idle
}
