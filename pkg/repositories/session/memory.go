package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/sgarza/eldorado/pkg/entities"
)

// MemoryRepository implements Repository using in-memory storage.
type MemoryRepository struct {
	sessions map[string]*entities.GameSession
	mu       sync.RWMutex
}

// NewMemoryRepository creates a new in-memory session repository
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		sessions: make(map[string]*entities.GameSession),
	}
}

// CreateSession stores a new session at version 1.
func (r *MemoryRepository) CreateSession(ctx context.Context, session *entities.GameSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sessions[session.ID]; exists {
		return fmt.Errorf("session %s already exists", session.ID)
	}

	session.Version = 1
	if session.UpdatedAt.IsZero() {
		session.UpdatedAt = time.Now()
	}

	stored, err := cloneSession(session)
	if err != nil {
		return err
	}
	r.sessions[session.ID] = stored
	return nil
}

// GetSession retrieves a session by ID
func (r *MemoryRepository) GetSession(ctx context.Context, id string) (*entities.GameSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stored, exists := r.sessions[id]
	if !exists {
		return nil, ErrSessionNotFound
	}
	return cloneSession(stored)
}

// SaveSession persists the session if the caller's Version still matches.
func (r *MemoryRepository) SaveSession(ctx context.Context, session *entities.GameSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, exists := r.sessions[session.ID]
	if !exists {
		return ErrSessionNotFound
	}
	if stored.Version != session.Version {
		return ErrVersionConflict
	}

	session.Version++
	session.UpdatedAt = time.Now()

	next, err := cloneSession(session)
	if err != nil {
		session.Version--
		return err
	}
	r.sessions[session.ID] = next
	return nil
}

// ListIdleSessions returns active sessions last updated before the cutoff.
func (r *MemoryRepository) ListIdleSessions(ctx context.Context, cutoff time.Time, limit int) ([]*entities.GameSession, error) {
	return r.list(func(s *entities.GameSession) bool {
		return s.Status == entities.SessionStatusActive && s.UpdatedAt.Before(cutoff)
	}, limit)
}

// ListSessionsByStatus returns sessions in a status updated after the
// watermark.
func (r *MemoryRepository) ListSessionsByStatus(ctx context.Context, status entities.SessionStatus, updatedAfter time.Time, limit int) ([]*entities.GameSession, error) {
	return r.list(func(s *entities.GameSession) bool {
		return s.Status == status && s.UpdatedAt.After(updatedAfter)
	}, limit)
}

// Close is a no-op for the memory repository.
func (r *MemoryRepository) Close() error {
	return nil
}

func (r *MemoryRepository) list(match func(*entities.GameSession) bool, limit int) ([]*entities.GameSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*entities.GameSession
	for _, stored := range r.sessions {
		if !match(stored) {
			continue
		}
		clone, err := cloneSession(stored)
		if err != nil {
			return nil, err
		}
		result = append(result, clone)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].UpdatedAt.Before(result[j].UpdatedAt)
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// cloneSession deep-copies through JSON so stored state and caller state can
// never alias; the outcome payloads hold nested slices and pointers.
func cloneSession(session *entities.GameSession) (*entities.GameSession, error) {
	data, err := json.Marshal(session)
	if err != nil {
		return nil, fmt.Errorf("error copying session: %w", err)
	}
	var clone entities.GameSession
	if err := json.Unmarshal(data, &clone); err != nil {
		return nil, fmt.Errorf("error copying session: %w", err)
	}
	return &clone, nil
}
